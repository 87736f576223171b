package nix

// DataType is the element type of a DataArray or Property.
type DataType int

// Known data types.
const (
	DataTypeNothing DataType = iota
	DataTypeBool
	DataTypeInt32
	DataTypeInt64
	DataTypeFloat
	DataTypeDouble
	DataTypeString
)

var dataTypeNames = map[DataType]string{
	DataTypeNothing: "nothing",
	DataTypeBool:    "bool",
	DataTypeInt32:   "int32",
	DataTypeInt64:   "int64",
	DataTypeFloat:   "float",
	DataTypeDouble:  "double",
	DataTypeString:  "string",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "unknown"
}

// IsNumeric reports whether d is an integer or floating point type.
func (d DataType) IsNumeric() bool {
	switch d {
	case DataTypeInt32, DataTypeInt64, DataTypeFloat, DataTypeDouble:
		return true
	}
	return false
}

func (d DataType) valid() bool {
	_, ok := dataTypeNames[d]
	return ok
}
