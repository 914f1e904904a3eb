package similarity

// guthOffsets are the neighbouring positions searched for each letter
var guthOffsets = [...]int{0, 1, 2, -1, -2}

type guthAlgorithm struct{}

// NewGuth returns the Guth algorithm. The score is binary: 100 when every
// letter of the shorter string has an equal letter within two positions in
// the other string, 0 otherwise.
func NewGuth() Algorithm {
	return guthAlgorithm{}
}

func (guthAlgorithm) Name() string {
	return Guth
}

func (guthAlgorithm) PercentualMatch(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if !guthCovers(ra, rb) {
		return 0
	}
	// equal lengths have no natural scan direction
	if len(ra) == len(rb) && !guthCovers(rb, ra) {
		return 0
	}
	return 100
}

func guthCovers(s, t []rune) bool {
	for i, r := range s {
		found := false
		for _, offset := range guthOffsets {
			j := i + offset
			if j < 0 || j >= len(t) {
				continue
			}
			if t[j] == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
