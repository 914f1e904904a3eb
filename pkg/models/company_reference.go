package models

import (
	"encoding/json"
	"slices"
)

// CompanyReference is a company mention embedded in an entity's source record,
// such as a "care of" address line. References are identified by name only.
type CompanyReference struct {
	Name             string `json:"name"`
	Address          string `json:"address,omitempty"`
	ResolvedEntityID *int64 `json:"resolved_entity_id,omitempty"`
}

// Resolve links the reference to a canonical company entity
func (r *CompanyReference) Resolve(entityID int64) {
	r.ResolvedEntityID = &entityID
}

// IsResolved reports whether a company entity has been linked
func (r *CompanyReference) IsResolved() bool {
	return r.ResolvedEntityID != nil
}

// CompanyReferences is a set of references keyed by name
type CompanyReferences map[string]*CompanyReference

// Add inserts references. A reference whose name is already present is ignored.
func (c CompanyReferences) Add(refs ...*CompanyReference) {
	for _, ref := range refs {
		if ref == nil || ref.Name == "" {
			continue
		}
		if _, ok := c[ref.Name]; ok {
			continue
		}
		c[ref.Name] = ref
	}
}

// Get returns the reference with the given name
func (c CompanyReferences) Get(name string) (*CompanyReference, bool) {
	ref, ok := c[name]
	return ref, ok
}

// Union adds every reference of other to c
func (c CompanyReferences) Union(other CompanyReferences) {
	for _, ref := range other {
		c.Add(ref)
	}
}

// Values returns the references ordered by name
func (c CompanyReferences) Values() []*CompanyReference {
	refs := make([]*CompanyReference, 0, len(c))
	for _, ref := range c {
		refs = append(refs, ref)
	}
	slices.SortFunc(refs, func(a, b *CompanyReference) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return refs
}

// MarshalJSON encodes the references as an array ordered by name
func (c CompanyReferences) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Values())
}

// UnmarshalJSON decodes an array of references
func (c *CompanyReferences) UnmarshalJSON(data []byte) error {
	var refs []*CompanyReference
	if err := json.Unmarshal(data, &refs); err != nil {
		return err
	}
	*c = make(CompanyReferences, len(refs))
	c.Add(refs...)
	return nil
}
