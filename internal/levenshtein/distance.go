// Package levenshtein scores hostname similarity for the typo
// suggestion flow.
package levenshtein

// Distance returns the minimum number of single-rune edits (insert,
// delete, substitute) that turn a into b. Runs in O(len(a)*len(b))
// time with a single row of working memory.
func Distance(a, b string) int {
	ar, br := []rune(a), []rune(b)

	// Size the row by the shorter input.
	if len(br) < len(ar) {
		ar, br = br, ar
	}

	row := make([]int, len(ar)+1)
	for i := range row {
		row[i] = i
	}

	for j := 1; j <= len(br); j++ {
		diag := row[0]
		row[0] = j
		for i := 1; i <= len(ar); i++ {
			sub := diag
			if ar[i-1] != br[j-1] {
				sub++
			}
			diag = row[i]
			row[i] = min(row[i-1]+1, row[i]+1, sub)
		}
	}

	return row[len(ar)]
}
