package normalizer

import (
	"sort"
	"strings"
	"unicode"
)

// tokenize splits a string into lowercase alphanumeric tokens.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return fields
}

// TokenSetRatio scores the similarity of two strings in [0,1] using the
// token-set method: shared tokens are compared against each side's full
// token set, so a string that merely adds qualifiers ("county government
// of nairobi" vs "nairobi county") still scores high.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	setA := map[string]bool{}
	for _, t := range ta {
		setA[t] = true
	}
	setB := map[string]bool{}
	for _, t := range tb {
		setB[t] = true
	}

	var inter, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	t0 := strings.Join(inter, " ")
	t1 := strings.TrimSpace(t0 + " " + strings.Join(onlyA, " "))
	t2 := strings.TrimSpace(t0 + " " + strings.Join(onlyB, " "))

	best := similarity(t0, t1)
	if s := similarity(t0, t2); s > best {
		best = s
	}
	if s := similarity(t1, t2); s > best {
		best = s
	}
	return best
}

// similarity is a normalized Levenshtein ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dist := levenshtein(a, b)
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return 1 - float64(dist)/float64(longer)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
