package table

import (
	"strconv"
)

// Kind is the storage type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindFloat
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return "unknown"
	}
}

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	i    int64
}

// Null returns a missing value.
func Null() Value { return Value{} }

// Str returns a text value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Float returns a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, num: f} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Kind reports the storage type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the raw string and true for string values.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Float64 returns the numeric value for float and int values.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.num, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Int64 returns the integer for int values.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// String renders the value as text. Nulls render as the empty string and
// floats use the shortest representation that round-trips.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindFloat:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return ""
	}
}
