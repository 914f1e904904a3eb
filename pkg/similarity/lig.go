package similarity

// The LIG family combines the count of positionally equal letters (E) with an
// edit measure:
//
//	LIG  = E / (E + D), D = maxLen - E
//	LIG2 = E / (E + C), C = edit distance
//	LIG3 = 2E / (2E + C)

type ligAlgorithm struct{}

// NewLIG returns the LIG algorithm
func NewLIG() Algorithm {
	return ligAlgorithm{}
}

func (ligAlgorithm) Name() string {
	return LIG
}

func (ligAlgorithm) PercentualMatch(a, b string) float64 {
	e := EqualLetters(a, b)
	d := maxRuneLen(a, b) - e
	return percent(e, e+d)
}

type lig2Algorithm struct{}

// NewLIG2 returns the LIG2 algorithm
func NewLIG2() Algorithm {
	return lig2Algorithm{}
}

func (lig2Algorithm) Name() string {
	return LIG2
}

func (lig2Algorithm) PercentualMatch(a, b string) float64 {
	if a == b {
		return 100
	}
	e := EqualLetters(a, b)
	return percent(e, e+EditDistance(a, b))
}

type lig3Algorithm struct{}

// NewLIG3 returns the LIG3 algorithm
func NewLIG3() Algorithm {
	return lig3Algorithm{}
}

func (lig3Algorithm) Name() string {
	return LIG3
}

func (lig3Algorithm) PercentualMatch(a, b string) float64 {
	if a == b {
		return 100
	}
	e := EqualLetters(a, b)
	return percent(2*e, 2*e+EditDistance(a, b))
}
