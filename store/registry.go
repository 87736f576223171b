package store

// Relationship declares that records of ChildKind may be owned by records of
// ParentKind. An empty ParentKind declares a root kind.
type Relationship struct {
	// ParentKind is the owning kind (e.g., "block").
	ParentKind Kind

	// ChildKind is the owned kind (e.g., "data_array").
	ChildKind Kind
}

// Registry holds all known ownership relationships.
type Registry struct {
	relationships []Relationship
	byParent      map[Kind][]Relationship
	byChild       map[Kind][]Relationship
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		relationships: []Relationship{},
		byParent:      make(map[Kind][]Relationship),
		byChild:       make(map[Kind][]Relationship),
	}
}

// DefaultRegistry returns the ownership tree of a NIX file.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rel := range []Relationship{
		{"", KindFile},
		{KindFile, KindBlock},
		{KindFile, KindSection},
		{KindSection, KindSection},
		{KindSection, KindProperty},
		{KindBlock, KindSource},
		{KindSource, KindSource},
		{KindBlock, KindDataArray},
		{KindBlock, KindTag},
		{KindBlock, KindMultiTag},
		{KindBlock, KindGroup},
	} {
		r.Register(rel)
	}
	return r
}

// Register adds a relationship to the registry.
func (r *Registry) Register(rel Relationship) {
	r.relationships = append(r.relationships, rel)
	r.byParent[rel.ParentKind] = append(r.byParent[rel.ParentKind], rel)
	r.byChild[rel.ChildKind] = append(r.byChild[rel.ChildKind], rel)
}

// ChildrenOf returns all child relationships for a given parent kind.
func (r *Registry) ChildrenOf(parent Kind) []Relationship {
	return r.byParent[parent]
}

// ParentsOf returns the kinds that may own child.
func (r *Registry) ParentsOf(child Kind) []Kind {
	var kinds []Kind
	for _, rel := range r.byChild[child] {
		if rel.ParentKind != "" {
			kinds = append(kinds, rel.ParentKind)
		}
	}
	return kinds
}

// AllRelationships returns all registered relationships.
func (r *Registry) AllRelationships() []Relationship {
	return r.relationships
}

// HasChildren returns true if the parent kind has any registered child relationships.
func (r *Registry) HasChildren(parent Kind) bool {
	return len(r.byParent[parent]) > 0
}

// Allows reports whether a record of kind child may be owned by a record of
// kind parent. Use an empty parent for root records.
func (r *Registry) Allows(parent, child Kind) bool {
	for _, rel := range r.byParent[parent] {
		if rel.ChildKind == child {
			return true
		}
	}
	return false
}
