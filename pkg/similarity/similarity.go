// Package similarity provides the string similarity algorithms used to match entity names.
// Every algorithm scores a pair of strings from 0 (unrelated) to 100 (identical).
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Algorithm names, in the order the pipeline runs them
const (
	DamerauLevenshtein = "damerau-levenshtein"
	Levenshtein        = "levenshtein"
	LIG                = "lig"
	LIG2               = "lig2"
	LIG3               = "lig3"
	Guth               = "guth"
	Soundex            = "soundex"
	Phonex             = "phonex"
)

// DefaultOrder is the fixed order in which matching stages run
var DefaultOrder = []string{DamerauLevenshtein, Levenshtein, LIG, LIG2, LIG3, Guth, Soundex, Phonex}

// Algorithm scores how alike two strings are.
// PercentualMatch must be symmetric, deterministic and safe for concurrent use.
type Algorithm interface {
	Name() string
	PercentualMatch(a, b string) float64
}

// EditDistance returns the Levenshtein distance between a and b, counted in runes
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	return levenshtein.ComputeDistance(a, b)
}

// EqualLetters counts the positions at which a and b hold the same rune
func EqualLetters(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := min(len(ra), len(rb))
	equal := 0
	for i := 0; i < n; i++ {
		if ra[i] == rb[i] {
			equal++
		}
	}
	return equal
}

func maxRuneLen(a, b string) int {
	return max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
}

// percent returns num/den as a percentage; an empty denominator means both inputs were empty
func percent(num, den int) float64 {
	if den <= 0 {
		return 100
	}
	return float64(num) / float64(den) * 100
}
