package nix

import (
	"github.com/cockroachdb/errors"
)

// Value is one element of a Property. It holds exactly one of a bool, int32,
// int64, double or string, or nothing, plus an optional uncertainty and
// reference.
type Value struct {
	dtype       DataType
	b           bool
	i           int64
	d           float64
	s           string
	uncertainty float64
	reference   string
}

// BoolValue returns a Value holding b.
func BoolValue(b bool) Value { return Value{dtype: DataTypeBool, b: b} }

// Int32Value returns a Value holding i.
func Int32Value(i int32) Value { return Value{dtype: DataTypeInt32, i: int64(i)} }

// Int64Value returns a Value holding i.
func Int64Value(i int64) Value { return Value{dtype: DataTypeInt64, i: i} }

// DoubleValue returns a Value holding d.
func DoubleValue(d float64) Value { return Value{dtype: DataTypeDouble, d: d} }

// StringValue returns a Value holding s.
func StringValue(s string) Value { return Value{dtype: DataTypeString, s: s} }

// NothingValue returns an empty Value.
func NothingValue() Value { return Value{dtype: DataTypeNothing} }

// DataType returns the variant held by v.
func (v Value) DataType() DataType {
	return v.dtype
}

func (v Value) wrongVariant(want DataType) error {
	return errors.Wrapf(ErrInvalidArgument, "value holds %s, not %s", v.dtype, want)
}

// AsBool returns the bool held by v.
func (v Value) AsBool() (bool, error) {
	if v.dtype != DataTypeBool {
		return false, v.wrongVariant(DataTypeBool)
	}
	return v.b, nil
}

// AsInt32 returns the int32 held by v.
func (v Value) AsInt32() (int32, error) {
	if v.dtype != DataTypeInt32 {
		return 0, v.wrongVariant(DataTypeInt32)
	}
	return int32(v.i), nil
}

// AsInt64 returns the int64 held by v.
func (v Value) AsInt64() (int64, error) {
	if v.dtype != DataTypeInt64 {
		return 0, v.wrongVariant(DataTypeInt64)
	}
	return v.i, nil
}

// AsDouble returns the float64 held by v.
func (v Value) AsDouble() (float64, error) {
	if v.dtype != DataTypeDouble {
		return 0, v.wrongVariant(DataTypeDouble)
	}
	return v.d, nil
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	if v.dtype != DataTypeString {
		return "", v.wrongVariant(DataTypeString)
	}
	return v.s, nil
}

// Uncertainty returns the uncertainty attached to v.
func (v Value) Uncertainty() float64 {
	return v.uncertainty
}

// WithUncertainty returns a copy of v with the given uncertainty.
func (v Value) WithUncertainty(u float64) Value {
	v.uncertainty = u
	return v
}

// Reference returns the free-form reference attached to v.
func (v Value) Reference() string {
	return v.reference
}

// WithReference returns a copy of v with the given reference.
func (v Value) WithReference(ref string) Value {
	v.reference = ref
	return v
}

// Equal reports whether v and o hold the same variant, payload, uncertainty
// and reference.
func (v Value) Equal(o Value) bool {
	return v == o
}
