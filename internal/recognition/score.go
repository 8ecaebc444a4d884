package recognition

import "strings"

// Score ranks a candidate. Higher priority wins, then longer length.
type Score struct {
	Priority int
	Length   int
}

// Better reports whether s strictly outranks o.
func (s Score) Better(o Score) bool {
	if s.Priority != o.Priority {
		return s.Priority > o.Priority
	}
	return s.Length > o.Length
}

// ScoreCandidate scores one candidate against the shape table. Prefixes are
// checked in both printed and normalized form.
func ScoreCandidate(candidate string) Score {
	c := strings.ToUpper(candidate)
	for _, s := range compiledShapes {
		if s.matches(c) {
			return Score{Priority: s.Priority, Length: len(c)}
		}
	}
	return Score{Priority: DefaultPriority, Length: len(c)}
}

// ChooseBest returns the highest scoring candidate. Ties keep the earliest
// candidate. ok is false when candidates is empty.
func ChooseBest(candidates []string) (best string, ok bool) {
	var bestScore Score
	for _, c := range candidates {
		sc := ScoreCandidate(c)
		if !ok || sc.Better(bestScore) {
			best, bestScore, ok = c, sc, true
		}
	}
	return best, ok
}
