package nix

import (
	"github.com/cockroachdb/errors"
)

// Property is a named list of values of one data type inside a Section.
type Property struct {
	namedEntity

	section  *Section
	dataType DataType
	unit     string
	mapping  string
	values   []Value
}

// Section returns the owning section.
func (p *Property) Section() *Section {
	return p.section
}

// DataType returns the data type shared by all values.
func (p *Property) DataType() DataType {
	return p.dataType
}

// Unit returns the unit, "" when unset.
func (p *Property) Unit() string {
	return p.unit
}

// SetUnit replaces the unit with a sanitized SI unit; "" removes it. An
// invalid unit leaves the previous unit in place.
func (p *Property) SetUnit(unit string) error {
	u, err := checkUnit(unit, false)
	if err != nil {
		return errors.Wrap(err, "set property unit")
	}
	p.unit = u
	p.touch()
	return nil
}

// RemoveUnit removes the unit.
func (p *Property) RemoveUnit() {
	if p.unit == "" {
		return
	}
	p.unit = ""
	p.touch()
}

// Mapping returns the mapping, "" when unset.
func (p *Property) Mapping() string {
	return p.mapping
}

// SetMapping replaces the mapping; "" removes it.
func (p *Property) SetMapping(mapping string) {
	p.mapping = mapping
	p.touch()
}

// Values returns a copy of the values.
func (p *Property) Values() []Value {
	return append([]Value(nil), p.values...)
}

// ValueCount returns the number of values.
func (p *Property) ValueCount() int {
	return len(p.values)
}

// SetValues replaces all values. They must share the property's data type;
// a property created without a data type adopts the type of the values. An
// empty list deletes the values.
func (p *Property) SetValues(values []Value) error {
	if len(values) == 0 {
		p.DeleteValues()
		return nil
	}
	dtype := p.dataType
	if dtype == DataTypeNothing {
		dtype = values[0].DataType()
	}
	if err := checkHomogeneous(dtype, values); err != nil {
		return errors.Wrap(err, "set property values")
	}
	p.dataType = dtype
	p.values = append([]Value(nil), values...)
	p.touch()
	return nil
}

// DeleteValues removes all values.
func (p *Property) DeleteValues() {
	if len(p.values) == 0 {
		return
	}
	p.values = nil
	p.touch()
}

func checkHomogeneous(dtype DataType, values []Value) error {
	for i, v := range values {
		if v.DataType() != dtype {
			return errors.Wrapf(ErrInvalidArgument, "value %d is %s, want %s", i, v.DataType(), dtype)
		}
	}
	return nil
}

func (p *Property) ownedRecords() []record {
	return nil
}

func (p *Property) scrub(map[string]bool) bool {
	return false
}
