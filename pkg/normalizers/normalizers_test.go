package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "reordered tokens", input: "SMITH JOHN", expected: "john smith"},
		{name: "already ordered", input: "JOHN SMITH", expected: "john smith"},
		{name: "extra whitespace", input: "  John \t  Smith ", expected: "john smith"},
		{name: "single token", input: "ACME", expected: "acme"},
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
		{name: "punctuation kept", input: "ACME, CORP.", expected: "acme, corp."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NameKey(tt.input))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "muller hans", Fold("  MÜLLER   Hans "))
	assert.Equal(t, "jose", Fold("José"))
	assert.Equal(t, "", Fold(""))
}

func TestWords(t *testing.T) {
	assert.Equal(t, map[string]struct{}{"acme": {}, "corp.": {}}, Words("ACME Corp. acme"))
	assert.Equal(t, map[string]struct{}{"acme": {}, "corp": {}}, StrippedWords("ACME, Corp."))
	assert.Empty(t, Words(" "))
}

func TestRegistry(t *testing.T) {
	fn, ok := Get("name_key")
	assert.True(t, ok)
	assert.Equal(t, "a b", fn("B A"))

	_, ok = Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "Value", Apply("Value", "missing"))
	assert.Equal(t, "acme corp", ApplyChain(" ACME,  CORP ", "remove_punctuation", "lowercase", "collapse_whitespace"))
}
