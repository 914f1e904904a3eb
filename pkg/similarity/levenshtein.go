package similarity

import "github.com/antzucaro/matchr"

type levenshteinAlgorithm struct{}

// NewLevenshtein scores (maxLen - editDistance) / maxLen
func NewLevenshtein() Algorithm {
	return levenshteinAlgorithm{}
}

func (levenshteinAlgorithm) Name() string {
	return Levenshtein
}

func (levenshteinAlgorithm) PercentualMatch(a, b string) float64 {
	maxLen := maxRuneLen(a, b)
	return percent(maxLen-EditDistance(a, b), maxLen)
}

type damerauLevenshteinAlgorithm struct{}

// NewDamerauLevenshtein scores like Levenshtein but counts an adjacent
// transposition as a single edit
func NewDamerauLevenshtein() Algorithm {
	return damerauLevenshteinAlgorithm{}
}

func (damerauLevenshteinAlgorithm) Name() string {
	return DamerauLevenshtein
}

func (damerauLevenshteinAlgorithm) PercentualMatch(a, b string) float64 {
	maxLen := maxRuneLen(a, b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return percent(maxLen-matchr.DamerauLevenshtein(a, b), maxLen)
}
