package models

import "strings"

// Kind is the declared type of a sanctioned subject
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindPerson  Kind = "person"
	KindCompany Kind = "company"
)

// ParseKind maps the kind labels used by list providers onto a Kind.
// Anything unrecognized is KindUnknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "person", "individual", "natural person", "p":
		return KindPerson
	case "company", "entity", "organization", "organisation", "legal person", "c":
		return KindCompany
	default:
		return KindUnknown
	}
}

// String implements fmt.Stringer
func (k Kind) String() string {
	if k == "" {
		return string(KindUnknown)
	}
	return string(k)
}

// Label returns the graph label for the kind
func (k Kind) Label() string {
	switch k {
	case KindPerson:
		return "Person"
	case KindCompany:
		return "Company"
	default:
		return "Unknown"
	}
}
