package scoring

import "unicode/utf16"

// Hash is the 31-multiplier string hash over UTF-16 code units with 32-bit signed
// wraparound, returned as its absolute value. Reference fixtures depend on the exact
// wraparound, so h must stay int32.
func Hash(s string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}
