package utils

import "strings"

// FirstRunes returns at most limit leading runes of s, untouched otherwise.
func FirstRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// TruncateForLog flattens s onto one line and cuts it to limit runes,
// marking the cut with "...". CV and prompt text is multi-line.
func TruncateForLog(s string, limit int) string {
	flat := strings.Join(strings.Fields(s), " ")
	cut := FirstRunes(flat, limit)
	if cut != flat && cut != "" {
		cut += "..."
	}
	return cut
}
