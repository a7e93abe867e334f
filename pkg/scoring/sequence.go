package scoring

// sequenceRatio measures character-level similarity between two rune
// sequences as 2*M/T, where M is the number of characters covered by
// matching blocks and T the combined length. Matching blocks are found by
// repeatedly taking the longest common substring and recursing on the
// unmatched flanks.
func sequenceRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := matchingChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

func matchingChars(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest common substring. Ties resolve to the
// earliest occurrence in a, then in b, so the result is deterministic.
func longestMatch(a, b []rune) (bestA, bestB, bestSize int) {
	runLen := make(map[int]int)
	for i := 0; i < len(a); i++ {
		next := make(map[int]int)
		for j := 0; j < len(b); j++ {
			if a[i] != b[j] {
				continue
			}
			k := runLen[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestA = i - k + 1
				bestB = j - k + 1
				bestSize = k
			}
		}
		runLen = next
	}
	return bestA, bestB, bestSize
}
