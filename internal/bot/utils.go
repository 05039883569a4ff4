package bot

import (
	"strings"
	"unicode"
)

// sanitizeText trims text, drops control and format characters, and folds
// runs of whitespace (including newlines) into single spaces.
func sanitizeText(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}

// maskID shortens a LINE ID for logs.
func maskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
