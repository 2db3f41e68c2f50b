package engine

import "strings"

// Normalize prepares raw extracted text for detection: non-printable ASCII
// control characters are removed (tab, newline and carriage return survive),
// Windows line endings become "\n", and surrounding whitespace is trimmed.
// Detection always runs on normalized text, never on the raw input.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if (r < 0x20 && r != '\t' && r != '\n' && r != '\r') || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.ReplaceAll(b.String(), "\r\n", "\n")
	return strings.TrimSpace(out)
}
