// Package version holds the build version of the pipeline binaries.
package version

// Current is overridden at link time with -ldflags "-X .../internal/version.Current=...".
var Current = "0.1.0"

// UserAgent is sent on outbound HTTP requests.
func UserAgent() string {
	return "destination-pipeline/" + Current
}
