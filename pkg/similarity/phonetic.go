package similarity

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// codeLength is the fixed length of Soundex and Phonex codes
const codeLength = 4

type soundexAlgorithm struct{}

// NewSoundex compares the Soundex codes of both strings
func NewSoundex() Algorithm {
	return soundexAlgorithm{}
}

func (soundexAlgorithm) Name() string {
	return Soundex
}

func (soundexAlgorithm) PercentualMatch(a, b string) float64 {
	return codeMatch(SoundexCode(a), SoundexCode(b))
}

type phonexAlgorithm struct{}

// NewPhonex compares the Phonex codes of both strings
func NewPhonex() Algorithm {
	return phonexAlgorithm{}
}

func (phonexAlgorithm) Name() string {
	return Phonex
}

func (phonexAlgorithm) PercentualMatch(a, b string) float64 {
	return codeMatch(PhonexCode(a), PhonexCode(b))
}

// codeMatch is the share of code positions that agree. Positions where
// both codes hold the '0' placeholder are not counted.
func codeMatch(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	considered, agree := 0, 0
	for i := 0; i < codeLength; i++ {
		if ra[i] == '0' && rb[i] == '0' {
			continue
		}
		considered++
		if ra[i] == rb[i] {
			agree++
		}
	}
	return percent(agree, considered)
}

// SoundexCode returns the 4 character Soundex code of the letters in s.
// Input without letters codes to "0000".
func SoundexCode(s string) string {
	letters := lettersOnly(s)
	if letters == "" {
		return fixedCode("")
	}
	return fixedCode(matchr.Soundex(letters))
}

// PhonexCode returns the 4 character Phonex code of the letters in s.
func PhonexCode(s string) string {
	letters := lettersOnly(s)
	if letters == "" {
		return fixedCode("")
	}
	return fixedCode(matchr.Phonex(letters))
}

// lettersOnly drops everything but letters so separators never reset the
// digit run or end the code early.
func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}

// fixedCode truncates or right-pads code with '0' to codeLength runes.
// matchr pads by byte length, which falls short for a non-ASCII first letter.
func fixedCode(code string) string {
	runes := []rune(code)
	if len(runes) > codeLength {
		runes = runes[:codeLength]
	}
	for len(runes) < codeLength {
		runes = append(runes, '0')
	}
	return string(runes)
}
