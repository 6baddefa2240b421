package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize splits raw OCR output into trimmed lines in reading order.
// Full-width digits and symbols are folded to their ASCII forms. Blank lines
// are kept so that line positions match the original text.
func Normalize(raw string) []string {
	raw = norm.NFKC.String(raw)
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
