package version

import (
	"regexp"
	"testing"
)

func TestCurrentIsSemverWithoutVPrefix(t *testing.T) {
	semver := regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
	if !semver.MatchString(Current) {
		t.Fatalf("Current=%q must match <major>.<minor>.<patch>", Current)
	}
}

func TestUserAgent(t *testing.T) {
	if got, want := UserAgent(), "destination-pipeline/"+Current; got != want {
		t.Fatalf("UserAgent()=%q want=%q", got, want)
	}
}
