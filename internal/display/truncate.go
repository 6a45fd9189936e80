package display

// DefaultMaxChars is the display width of a formatted amount.
const DefaultMaxChars = 7

// Truncate returns the first maxChars characters of value. It does not
// round. Values that already fit, and any maxChars below 1, leave value
// unchanged.
func Truncate(value string, maxChars int) string {
	if maxChars < 1 || len(value) <= maxChars {
		return value
	}
	runes := []rune(value)
	if len(runes) <= maxChars {
		return value
	}
	return string(runes[:maxChars])
}
