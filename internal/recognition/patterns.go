package recognition

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultPriority is the score of a candidate that matches no known shape.
const DefaultPriority = 50

// Shape describes one family of tracking codes. Tails are written against
// normalized text, so they only need upper-case letters and digits.
type Shape struct {
	Name string
	// Prefix as printed on labels; empty for bare digit runs.
	Prefix string
	// Tail follows the prefix in the compact (spaceless) pattern.
	Tail string
	// SpacedTail is the tail tolerant of blanks between characters. Gaps never
	// span lines.
	SpacedTail string
	// Carrier marks shapes whose prefix is a carrier marker, also looked for in filenames.
	Carrier bool
	// MinDigits and MaxDigits bound a digits-only shape.
	MinDigits, MaxDigits int
	Priority             int
}

// Shapes is the table of recognized code families, highest priority first.
var Shapes = []Shape{
	{
		Name:       "jt-express",
		Prefix:     "JTE",
		Tail:       `[A-Z0-9]{6,}`,
		SpacedTail: `(?:[ \t]*[A-Z0-9]){6,}`,
		Carrier:    true,
		Priority:   100,
	},
	{
		Name:       "ajex",
		Prefix:     "AJA",
		Tail:       `[A-Z0-9]{6,}`,
		SpacedTail: `(?:[ \t]*[A-Z0-9]){6,}`,
		Carrier:    true,
		Priority:   95,
	},
	{
		Name:       "invoice",
		Prefix:     "BG-",
		Tail:       `\d+[A-Z0-9]{6,}`,
		SpacedTail: `[ \t]*\d(?:[ \t]*\d)*(?:[ \t]*[A-Z0-9]){6,}`,
		Priority:   90,
	},
	{
		Name:      "digits",
		MinDigits: 10,
		MaxDigits: 16,
		Priority:  85,
	},
}

type compiledShape struct {
	Shape
	normPrefix string
	spaceless  *regexp.Regexp
	spaced     *regexp.Regexp
}

var compiledShapes = compileShapes(Shapes)

func compileShapes(shapes []Shape) []compiledShape {
	out := make([]compiledShape, 0, len(shapes))
	for _, s := range shapes {
		c := compiledShape{Shape: s}
		if s.Prefix == "" {
			c.spaceless = regexp.MustCompile(digitRun(s.MinDigits, s.MaxDigits))
			out = append(out, c)
			continue
		}
		// Prefixes are matched in normalized space: BG- arrives as 8G-.
		c.normPrefix = Normalize(s.Prefix)
		c.spaceless = regexp.MustCompile(`\b` + regexp.QuoteMeta(c.normPrefix) + s.Tail + `\b`)
		if s.SpacedTail != "" {
			c.spaced = regexp.MustCompile(`(?i)` + spacedPrefix(s.Prefix) + s.SpacedTail)
		}
		out = append(out, c)
	}
	return out
}

func digitRun(lo, hi int) string {
	return `\b\d{` + strconv.Itoa(lo) + `,` + strconv.Itoa(hi) + `}\b`
}

// spacedPrefix accepts blanks between prefix characters and either the
// printed character or its normalized look-alike.
func spacedPrefix(prefix string) string {
	parts := make([]string, 0, len(prefix))
	for _, r := range prefix {
		raw := string(r)
		alt := Normalize(raw)
		switch {
		case alt == "" || alt == raw:
			parts = append(parts, regexp.QuoteMeta(raw))
		default:
			parts = append(parts, "["+regexp.QuoteMeta(raw)+regexp.QuoteMeta(alt)+"]")
		}
	}
	return strings.Join(parts, `[ \t]*`)
}

// matches reports whether an already extracted candidate belongs to the shape.
func (c compiledShape) matches(candidate string) bool {
	if c.Prefix != "" {
		return strings.HasPrefix(candidate, c.Prefix) || strings.HasPrefix(candidate, c.normPrefix)
	}
	if len(candidate) < c.MinDigits || len(candidate) > c.MaxDigits {
		return false
	}
	for _, r := range candidate {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
