// Package match decides whether a spoken word counts as the expected target word.
package match

import "math"

// Distance returns the Levenshtein edit distance between a and b. It keeps a
// single row sized to the shorter string.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	row := make([]int, len(ra)+1)
	for i := range row {
		row[i] = i
	}
	for i := 1; i <= len(rb); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			above := row[j]
			row[j] = min(above+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}
	return row[len(ra)]
}

const confidencePerEdit = 33.33

// Confidence maps an edit distance to a score in [0,100] with a linear decay.
func Confidence(distance int) float64 {
	c := 100 - float64(distance)*confidencePerEdit
	return math.Max(0, math.Min(100, c))
}
