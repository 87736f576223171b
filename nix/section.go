package nix

import (
	"github.com/cockroachdb/errors"

	"github.com/jacentio/nixcore/store"
)

// Section is a node of the metadata tree. Sections own child sections and
// properties and may link to another section to inherit its properties.
type Section struct {
	namedEntity

	parent     *Section
	repository string
	mapping    string
	link       string
	sections   []*Section
	properties []*Property
}

func newSection(f *File, parent *Section, siblings []*Section, name, typ string) (*Section, error) {
	if err := checkSibling(siblings, name); err != nil {
		return nil, errors.Wrap(err, "create section")
	}
	parentID := f.id
	if parent != nil {
		parentID = parent.id
	}
	ne, err := newNamedEntity(f, store.KindSection, parentID, name, typ)
	if err != nil {
		return nil, errors.Wrap(err, "create section")
	}
	s := &Section{namedEntity: ne, parent: parent}
	f.index[s.id] = s
	return s, nil
}

// File returns the owning file.
func (s *Section) File() *File {
	return s.file
}

// Parent returns the owning section, nil for a top-level section.
func (s *Section) Parent() *Section {
	return s.parent
}

// Repository returns the repository URL, "" when unset.
func (s *Section) Repository() string {
	return s.repository
}

// SetRepository replaces the repository URL; "" removes it.
func (s *Section) SetRepository(repo string) {
	s.repository = repo
	s.touch()
}

// Mapping returns the mapping, "" when unset.
func (s *Section) Mapping() string {
	return s.mapping
}

// SetMapping replaces the mapping; "" removes it.
func (s *Section) SetMapping(mapping string) {
	s.mapping = mapping
	s.touch()
}

// Link returns the linked section, nil when unset or deleted.
func (s *Section) Link() *Section {
	l, _ := s.file.index[s.link].(*Section)
	return l
}

// SetLink links another section of the same file. Links may form cycles.
func (s *Section) SetLink(l *Section) error {
	if err := checkMember(s.file, l); err != nil {
		return errors.Wrap(err, "set link")
	}
	s.link = l.id
	s.touch()
	return nil
}

// RemoveLink unlinks the linked section.
func (s *Section) RemoveLink() {
	if s.link == "" {
		return
	}
	s.link = ""
	s.touch()
}

// CreateSection creates a child section.
func (s *Section) CreateSection(name, typ string) (*Section, error) {
	c, err := newSection(s.file, s, s.sections, name, typ)
	if err != nil {
		return nil, err
	}
	s.sections = append(s.sections, c)
	return c, nil
}

// Section returns the direct child with the given name or id, nil when
// absent.
func (s *Section) Section(nameOrID string) *Section {
	c, _ := lookup(s.sections, nameOrID)
	return c
}

// HasSection reports whether a direct child with the given name or id
// exists.
func (s *Section) HasSection(nameOrID string) bool {
	_, ok := lookup(s.sections, nameOrID)
	return ok
}

// Sections returns the direct children in creation order.
func (s *Section) Sections() []*Section {
	return append([]*Section(nil), s.sections...)
}

// SectionCount returns the number of direct children.
func (s *Section) SectionCount() int {
	return len(s.sections)
}

// DeleteSection deletes a direct child and its subtree. Links and metadata
// pointing into the subtree are cleared.
func (s *Section) DeleteSection(nameOrID string) bool {
	c, ok := lookup(s.sections, nameOrID)
	if !ok {
		return false
	}
	s.sections = without(s.sections, c.id)
	s.file.remove(c)
	return true
}

// CreateProperty creates a property without values.
func (s *Section) CreateProperty(name string, dtype DataType) (*Property, error) {
	if !dtype.valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "create property: unknown data type %d", dtype)
	}
	p, err := s.newProperty(name, dtype)
	if err != nil {
		return nil, err
	}
	s.properties = append(s.properties, p)
	return p, nil
}

// CreatePropertyWithValues creates a property holding values. Its data type
// is taken from the first value.
func (s *Section) CreatePropertyWithValues(name string, values []Value) (*Property, error) {
	if len(values) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "create property: no values")
	}
	if err := checkHomogeneous(values[0].DataType(), values); err != nil {
		return nil, errors.Wrap(err, "create property")
	}
	p, err := s.newProperty(name, values[0].DataType())
	if err != nil {
		return nil, err
	}
	p.values = append([]Value(nil), values...)
	s.properties = append(s.properties, p)
	return p, nil
}

func (s *Section) newProperty(name string, dtype DataType) (*Property, error) {
	if err := checkSibling(s.properties, name); err != nil {
		return nil, errors.Wrap(err, "create property")
	}
	ne, err := newNamedEntity(s.file, store.KindProperty, s.id, name, dtype.String())
	if err != nil {
		return nil, errors.Wrap(err, "create property")
	}
	p := &Property{namedEntity: ne, section: s, dataType: dtype}
	s.file.index[p.id] = p
	return p, nil
}

// Property returns the own property with the given name or id, nil when
// absent.
func (s *Section) Property(nameOrID string) *Property {
	p, _ := lookup(s.properties, nameOrID)
	return p
}

// HasProperty reports whether an own property with the given name or id
// exists.
func (s *Section) HasProperty(nameOrID string) bool {
	_, ok := lookup(s.properties, nameOrID)
	return ok
}

// Properties returns the own properties in creation order.
func (s *Section) Properties() []*Property {
	return append([]*Property(nil), s.properties...)
}

// PropertyCount returns the number of own properties.
func (s *Section) PropertyCount() int {
	return len(s.properties)
}

// DeleteProperty deletes an own property.
func (s *Section) DeleteProperty(nameOrID string) bool {
	p, ok := lookup(s.properties, nameOrID)
	if !ok {
		return false
	}
	s.properties = without(s.properties, p.id)
	s.file.remove(p)
	return true
}

// InheritedProperties returns the own properties followed by those reached
// through the link chain. A name already collected hides later properties of
// the same name.
func (s *Section) InheritedProperties() []*Property {
	var out []*Property
	names := make(map[string]bool)
	visited := make(map[string]bool)
	for cur := s; cur != nil && !visited[cur.id]; cur = cur.Link() {
		visited[cur.id] = true
		for _, p := range cur.properties {
			if names[p.name] {
				continue
			}
			names[p.name] = true
			out = append(out, p)
		}
	}
	return out
}

// FindSections searches the subtree breadth-first starting with s at depth 0.
func (s *Section) FindSections(filter func(*Section) bool, maxDepth int) []*Section {
	return findBFS([]*Section{s}, (*Section).childSections, filter, maxDepth)
}

// FindRelated returns the sections closest to s that match filter. It first
// searches below s with increasing depth, then walks up the ancestors,
// searching each ancestor and its direct children. s itself is never
// returned.
func (s *Section) FindRelated(filter func(*Section) bool) []*Section {
	notSelf := func(c *Section) bool {
		return c != s && (filter == nil || filter(c))
	}

	depth := s.treeDepth()
	for d := 1; d <= depth; d++ {
		if found := s.FindSections(notSelf, d); len(found) > 0 {
			return found
		}
	}

	for p := s.parent; p != nil; p = p.parent {
		if found := p.FindSections(notSelf, 1); len(found) > 0 {
			return found
		}
	}
	return nil
}

// treeDepth returns the height of the subtree below s.
func (s *Section) treeDepth() int {
	depth := 0
	for _, c := range s.sections {
		if d := c.treeDepth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}

func (s *Section) childSections() []*Section {
	return s.sections
}

func (s *Section) ownedRecords() []record {
	out := make([]record, 0, len(s.sections)+len(s.properties))
	for _, c := range s.sections {
		out = append(out, c)
	}
	for _, p := range s.properties {
		out = append(out, p)
	}
	return out
}

func (s *Section) scrub(dead map[string]bool) bool {
	if s.link != "" && dead[s.link] {
		s.link = ""
		return true
	}
	return false
}
