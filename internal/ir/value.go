package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Scalar is a sealed interface for literal payloads.
// Only Int, Float, String and Bool implement it.
type Scalar interface {
	scalar() // Sealed - only these types implement it
	fmt.Stringer
}

// Int is an integer literal.
type Int int64

func (Int) scalar() {}

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is a floating point literal.
//
// Floats never enter canonical JSON as numbers; they are encoded through
// their shortest round-trip text form so digests stay deterministic.
type Float float64

func (Float) scalar() {}

func (v Float) String() string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 64)
	// Keep 1000.0 distinguishable from 1000 when printed.
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' || c == 'N' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}

// String is a string literal.
type String string

func (String) scalar() {}

func (v String) String() string { return strconv.Quote(string(v)) }

// Bool is a boolean literal.
type Bool bool

func (Bool) scalar() {}

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// ScalarOf converts a Go value to a Scalar.
// Returns false when the value has no literal form.
func ScalarOf(v any) (Scalar, bool) {
	switch val := v.(type) {
	case Scalar:
		return val, true
	case int:
		return Int(val), true
	case int8:
		return Int(val), true
	case int16:
		return Int(val), true
	case int32:
		return Int(val), true
	case int64:
		return Int(val), true
	case uint8:
		return Int(val), true
	case uint16:
		return Int(val), true
	case uint32:
		return Int(val), true
	case uint:
		return uintScalar(uint64(val))
	case uint64:
		return uintScalar(val)
	case uintptr:
		return uintScalar(uint64(val))
	case float32:
		return Float(val), true
	case float64:
		return Float(val), true
	case string:
		return String(val), true
	case bool:
		return Bool(val), true
	default:
		return nil, false
	}
}

// uintScalar accepts unsigned values that fit an Int.
func uintScalar(v uint64) (Scalar, bool) {
	if v > math.MaxInt64 {
		return nil, false
	}
	return Int(v), true
}

// scalarType names the payload type inside canonical headers.
func scalarType(s Scalar) string {
	switch s.(type) {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}
