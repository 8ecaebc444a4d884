package recognition

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Charset maps model output classes onto text. Class 0 is the CTC blank, so
// class i is token i-1.
type Charset struct {
	Tokens []string
}

// LoadCharset reads a dictionary file with one token per non-empty line.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return &Charset{Tokens: tokens}, nil
}

// Token returns the text for an output class, "" for the blank or unknown classes.
func (c *Charset) Token(class int) string {
	i := class - 1
	if i < 0 || i >= len(c.Tokens) {
		return ""
	}
	return c.Tokens[i]
}

// decodeCTCGreedy takes the best class per timestep, collapses repeats and
// drops blanks. logits has layout [N, T, C], or [N, C, T] when classesFirst.
func decodeCTCGreedy(logits []float32, shape []int64, classesFirst bool) [][]int {
	if len(shape) != 3 {
		return nil
	}
	n := int(shape[0])
	tDim, cDim := int(shape[1]), int(shape[2])
	if classesFirst {
		tDim, cDim = cDim, tDim
	}
	if n <= 0 || tDim <= 0 || cDim <= 0 || len(logits) < n*tDim*cDim {
		return nil
	}

	out := make([][]int, n)
	for b := 0; b < n; b++ {
		base := b * tDim * cDim
		prev := -1
		var seq []int
		for t := 0; t < tDim; t++ {
			best, bestVal := 0, float32(0)
			for k := 0; k < cDim; k++ {
				var v float32
				if classesFirst {
					v = logits[base+k*tDim+t]
				} else {
					v = logits[base+t*cDim+k]
				}
				if k == 0 || v > bestVal {
					best, bestVal = k, v
				}
			}
			if best != 0 && best != prev {
				seq = append(seq, best)
			}
			prev = best
		}
		out[b] = seq
	}
	return out
}
