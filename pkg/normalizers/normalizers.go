// Package normalizers provides the string normalizations used to key and compare entity names
package normalizers

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("strip_accents", StripAccents)
	Register("fold", Fold)
	Register("name_key", NameKey)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// CollapseWhitespace trims and replaces whitespace runs with a single space
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// StripAccents removes combining marks, so "Müller" becomes "Muller"
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// Fold is the comparison form of a name: accents stripped, lowercased,
// whitespace collapsed.
func Fold(s string) string {
	return CollapseWhitespace(strings.ToLower(StripAccents(s)))
}

// NameKey is the normalization key of a name: lowercased, split on
// whitespace, tokens sorted and rejoined with a single space.
// "JOHN SMITH" and "Smith  John" share the key "john smith".
func NameKey(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// Words returns the distinct lowercase whitespace-separated words of s
func Words(s string) map[string]struct{} {
	return wordSet(strings.Fields(strings.ToLower(s)))
}

// StrippedWords returns the distinct lowercase words of s after punctuation removal
func StrippedWords(s string) map[string]struct{} {
	return wordSet(strings.Fields(strings.ToLower(RemovePunctuation(s))))
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
