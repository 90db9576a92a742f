// Package khmer holds small text helpers for the Khmer script.
package khmer

import "strings"

// Contains reports whether text has at least one rune in the Khmer
// Unicode block (U+1780–U+17FF).
func Contains(text string) bool {
	for _, r := range text {
		if r >= 0x1780 && r <= 0x17FF {
			return true
		}
	}
	return false
}

// Greeting returns a time-of-day greeting in Khmer for the given hour.
func Greeting(hour int) string {
	switch {
	case hour < 12:
		return "សួស្តី អរុណសួស្តី!"
	case hour < 18:
		return "សួស្តី ទិវាសួស្តី!"
	default:
		return "សួស្តី រាត្រីសួស្តី!"
	}
}

// Truncate shortens text to at most max runes, appending an ellipsis when
// anything was cut.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
