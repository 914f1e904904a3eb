package models

// Entity is one sanctioned subject record. Entities are mutable and absorb
// duplicates in place; ID is the identity and is never recomputed.
type Entity struct {
	ID                int64             `json:"id"`
	Kind              Kind              `json:"kind"`
	Names             StringSet         `json:"names"`
	Addresses         StringSet         `json:"addresses"`
	Nationalities     StringSet         `json:"nationalities"`
	PlacesOfBirth     StringSet         `json:"places_of_birth"`
	DatesOfBirth      StringSet         `json:"dates_of_birth"`
	CompanyReferences CompanyReferences `json:"company_references"`
	Sources           StringSet         `json:"sources"`
}

func newEntity(id int64, kind Kind) *Entity {
	if kind == "" {
		kind = KindUnknown
	}
	return &Entity{
		ID:                id,
		Kind:              kind,
		Names:             StringSet{},
		Addresses:         StringSet{},
		Nationalities:     StringSet{},
		PlacesOfBirth:     StringSet{},
		DatesOfBirth:      StringSet{},
		CompanyReferences: CompanyReferences{},
		Sources:           StringSet{},
	}
}

// Merge unions every set field of other into e. An unknown kind adopts the
// kind of other. Merging an entity into itself is a no-op.
func (e *Entity) Merge(other *Entity) {
	if other == nil || other == e {
		return
	}
	e.ensureSets()

	e.Names.Union(other.Names)
	e.Addresses.Union(other.Addresses)
	e.Nationalities.Union(other.Nationalities)
	e.PlacesOfBirth.Union(other.PlacesOfBirth)
	e.DatesOfBirth.Union(other.DatesOfBirth)
	e.CompanyReferences.Union(other.CompanyReferences)
	e.Sources.Union(other.Sources)

	if e.Kind == KindUnknown || e.Kind == "" {
		e.Kind = other.Kind
	}
}

// AddCompanyReference attaches a company mention to the entity
func (e *Entity) AddCompanyReference(name, address string) {
	e.ensureSets()
	e.CompanyReferences.Add(&CompanyReference{Name: name, Address: address})
}

// SameContent reports whether both entities carry identical field content.
// IDs are not compared.
func (e *Entity) SameContent(other *Entity) bool {
	if e.Kind != other.Kind {
		return false
	}
	if len(e.CompanyReferences) != len(other.CompanyReferences) {
		return false
	}
	for name := range e.CompanyReferences {
		if _, ok := other.CompanyReferences[name]; !ok {
			return false
		}
	}
	return e.Names.Equal(other.Names) &&
		e.Addresses.Equal(other.Addresses) &&
		e.Nationalities.Equal(other.Nationalities) &&
		e.PlacesOfBirth.Equal(other.PlacesOfBirth) &&
		e.DatesOfBirth.Equal(other.DatesOfBirth) &&
		e.Sources.Equal(other.Sources)
}

// entities decoded from storage or built as literals may carry nil sets
func (e *Entity) ensureSets() {
	if e.Names == nil {
		e.Names = StringSet{}
	}
	if e.Addresses == nil {
		e.Addresses = StringSet{}
	}
	if e.Nationalities == nil {
		e.Nationalities = StringSet{}
	}
	if e.PlacesOfBirth == nil {
		e.PlacesOfBirth = StringSet{}
	}
	if e.DatesOfBirth == nil {
		e.DatesOfBirth = StringSet{}
	}
	if e.CompanyReferences == nil {
		e.CompanyReferences = CompanyReferences{}
	}
	if e.Sources == nil {
		e.Sources = StringSet{}
	}
}
