package recognition

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// confusions maps characters that optical recognition routinely reads in place
// of a digit. Applied globally after stripping.
var confusions = strings.NewReplacer(
	"O", "0",
	"I", "1",
	"L", "1",
	"S", "5",
	"B", "8",
	"Z", "2",
	"Q", "0",
)

// Normalize cleans raw recognized text: compatibility forms are folded (so
// full-width Ｊ becomes J), everything except ASCII letters, digits and '-' is
// dropped, letters are upper-cased and the confusion table is applied.
//
// Normalize is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	folded := norm.NFKC.String(raw)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return confusions.Replace(b.String())
}

// NormalizeCode is the lighter normalization applied to codes typed by people:
// surrounding space trimmed and upper-cased, no confusion substitutions.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
