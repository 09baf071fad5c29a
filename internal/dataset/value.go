// Package dataset holds the column-oriented table that flows through the
// cleaning pipeline: named columns of nullable typed scalars sharing one row
// count.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the logical type of a column or of a single non-missing Value.
type Kind uint8

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	// KindCategory is only ever a column kind; category values carry text payloads.
	KindCategory
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindCategory:
		return "category"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsNumeric reports whether columns of this kind are imputed with the median.
func (k Kind) IsNumeric() bool { return k == KindInt || k == KindFloat }

// Value is a nullable scalar. The zero Value is missing, which is distinct
// from every valid payload including 0, false and "".
type Value struct {
	valid bool
	kind  Kind
	s     string
	i     int64
	f     float64
	b     bool
}

// Missing returns the missing marker.
func Missing() Value { return Value{} }

func Text(s string) Value   { return Value{valid: true, kind: KindText, s: s} }
func Int(i int64) Value     { return Value{valid: true, kind: KindInt, i: i} }
func Float(f float64) Value { return Value{valid: true, kind: KindFloat, f: f} }
func Bool(b bool) Value     { return Value{valid: true, kind: KindBool, b: b} }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return !v.valid }

// Kind returns the payload kind. It is meaningless for missing values.
func (v Value) Kind() Kind { return v.kind }

// Str returns the text payload.
func (v Value) Str() (string, bool) {
	if !v.valid || v.kind != KindText {
		return "", false
	}
	return v.s, true
}

// Int64 returns the integer payload.
func (v Value) Int64() (int64, bool) {
	if !v.valid || v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float64 returns the numeric payload of an int or float value.
func (v Value) Float64() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// BoolValue returns the boolean payload.
func (v Value) BoolValue() (bool, bool) {
	if !v.valid || v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// String renders v the way the cleaned CSV spells it: booleans as
// True/False, integral floats with a trailing ".0", missing as "".
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	}
	return ""
}

// Interface returns nil, string, int64, float64 or bool.
func (v Value) Interface() any {
	if !v.valid {
		return nil
	}
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	}
	return nil
}

// Equal compares kind and payload. Two missing values are equal.
func (v Value) Equal(o Value) bool {
	if v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	}
	return false
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
