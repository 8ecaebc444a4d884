package recognition

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Extract pulls candidate codes out of raw recognized text.
//
// Three forms are searched in turn: every line with its whitespace removed,
// each whitespace separated token, and the original text with the spaced
// patterns. Every candidate is in normalized form; duplicates are dropped and
// first-seen order is kept.
func Extract(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(c string) {
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for _, line := range strings.Split(text, "\n") {
		despaced := Normalize(whitespace.ReplaceAllString(line, ""))
		if despaced == "" {
			continue
		}
		for _, s := range compiledShapes {
			for _, m := range s.spaceless.FindAllString(despaced, -1) {
				add(m)
			}
		}
	}

	for _, tok := range strings.Fields(text) {
		n := Normalize(tok)
		if n == "" {
			continue
		}
		for _, s := range compiledShapes {
			for _, m := range s.spaceless.FindAllString(n, -1) {
				add(m)
			}
		}
	}

	for _, s := range compiledShapes {
		if s.spaced == nil {
			continue
		}
		for _, m := range s.spaced.FindAllString(text, -1) {
			n := Normalize(m)
			for _, t := range compiledShapes {
				add(t.spaceless.FindString(n))
			}
		}
	}
	return out
}
