package duplicates

import "strings"

// Scorer computes a textual similarity score in [0,1] between two strings.
// The exact function is a replaceable strategy, not part of the contract.
type Scorer interface {
	Score(a, b string) float64
}

// BigramScorer scores by the Dice coefficient over character bigrams of the
// lowercased inputs. It is cheap, order-insensitive within words, and close
// enough to sequence-ratio scoring for short issue titles.
type BigramScorer struct{}

func (BigramScorer) Score(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	overlap := 0
	for gram, count := range ba {
		if other, ok := bb[gram]; ok {
			if other < count {
				count = other
			}
			overlap += count
		}
	}

	total := 0
	for _, c := range ba {
		total += c
	}
	for _, c := range bb {
		total += c
	}

	score := 2 * float64(overlap) / float64(total)
	if score > 1 {
		score = 1
	}
	return score
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}
