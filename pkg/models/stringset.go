package models

import (
	"encoding/json"
	"slices"
)

// StringSet is an unordered set of strings compared by exact equality
type StringSet map[string]struct{}

// NewStringSet creates a set holding the given values
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	s.Add(values...)
	return s
}

// Add inserts values, skipping empty strings
func (s StringSet) Add(values ...string) {
	for _, v := range values {
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
}

// Contains reports whether v is in the set
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Union adds every value of other to s
func (s StringSet) Union(other StringSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Len returns the number of values
func (s StringSet) Len() int {
	return len(s)
}

// Values returns the values sorted lexicographically
func (s StringSet) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}

// Equal reports whether both sets hold the same values
func (s StringSet) Equal(other StringSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the set as a sorted array
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array into the set
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
