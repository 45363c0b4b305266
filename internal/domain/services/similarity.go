package services

import (
	"regexp"
	"strings"
)

// \w in Go is ASCII-only; spell out the classes so accented letters survive.
var nonWordChars = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// NormalizeText lowercases, strips punctuation and trims surrounding
// whitespace so two address strings compare on their words alone.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = nonWordChars.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// StringSimilarity returns the Ratcliff/Obershelp similarity of the two
// strings after normalization, in [0, 1]. Both empty compares as 0.
func StringSimilarity(a, b string) float64 {
	a = NormalizeText(a)
	b = NormalizeText(b)
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	matched := matchingCharacters([]rune(a), []rune(b))
	return 2 * float64(matched) / float64(len([]rune(a))+len([]rune(b)))
}

// matchingCharacters counts the characters covered by recursively taking the
// longest common substring and recursing into the unmatched flanks.
func matchingCharacters(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	aStart, bStart, length := longestCommonSubstring(a, b)
	if length == 0 {
		return 0
	}

	total := length
	total += matchingCharacters(a[:aStart], b[:bStart])
	total += matchingCharacters(a[aStart+length:], b[bStart+length:])
	return total
}

func longestCommonSubstring(a, b []rune) (aStart, bStart, length int) {
	// prev[j] holds the length of the common suffix ending at a[i-1], b[j-1]
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > length {
					length = curr[j]
					aStart = i - length
					bStart = j - length
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return aStart, bStart, length
}
