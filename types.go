package carmine

import (
	"fmt"
	"strconv"

	"github.com/andreyvit/carmine/numkey"
)

// Projector exposes the typed views of a key or value. Every concrete type
// supports exactly one projection; the rest report false.
type Projector interface {
	AsText() (string, bool)
	AsInt64() (int64, bool)
	AsNumber() (Number, bool)
	AsBytes() ([]byte, bool)
}

// Key is anything usable as a collection key: Text, Int64, Number or Bytes.
type Key interface {
	Projector
	KeyKind() KeyKind
}

// Value is anything storable in a collection: Text, Int64, Number, Bytes,
// Structured or Opaque.
type Value interface {
	Projector
	ValueKind() ValueKind
}

type (
	// Text is a UTF-8 string key or value.
	Text string

	// Int64 is a signed 64-bit integer key or value. Keys sort numerically.
	Int64 int64

	// Number is the sortable 8-byte encoding of a float64 (see package numkey).
	// Comparing two Numbers byte by byte compares the floats they hold.
	Number [numkey.Size]byte

	// Bytes is an arbitrary byte string key or value.
	Bytes []byte

	// Structured holds a value that was serialized by the caller (usually via
	// MarshalStructured) before reaching the collection.
	Structured []byte

	// Opaque holds caller-defined bytes whose format is unknown to carmine.
	Opaque []byte
)

// NumberOf encodes f.
func NumberOf(f float64) Number {
	return Number(numkey.Encode(f))
}

// Float64 decodes the number. -0 comes back as +0, and any NaN as the
// canonical NaN.
func (n Number) Float64() float64 {
	return numkey.Decode(n)
}

func (n Number) String() string {
	return strconv.FormatFloat(n.Float64(), 'g', -1, 64)
}

func (v Text) KeyKind() KeyKind         { return KeyText }
func (v Text) ValueKind() ValueKind     { return ValueText }
func (v Text) AsText() (string, bool)   { return string(v), true }
func (v Text) AsInt64() (int64, bool)   { return 0, false }
func (v Text) AsNumber() (Number, bool) { return Number{}, false }
func (v Text) AsBytes() ([]byte, bool)  { return nil, false }

func (v Int64) KeyKind() KeyKind         { return KeyInt64 }
func (v Int64) ValueKind() ValueKind     { return ValueInt64 }
func (v Int64) AsText() (string, bool)   { return "", false }
func (v Int64) AsInt64() (int64, bool)   { return int64(v), true }
func (v Int64) AsNumber() (Number, bool) { return Number{}, false }
func (v Int64) AsBytes() ([]byte, bool)  { return nil, false }

func (v Number) KeyKind() KeyKind         { return KeyNumber }
func (v Number) ValueKind() ValueKind     { return ValueNumber }
func (v Number) AsText() (string, bool)   { return "", false }
func (v Number) AsInt64() (int64, bool)   { return 0, false }
func (v Number) AsNumber() (Number, bool) { return v, true }
func (v Number) AsBytes() ([]byte, bool)  { return nil, false }

func (v Bytes) KeyKind() KeyKind         { return KeyBytes }
func (v Bytes) ValueKind() ValueKind     { return ValueBytes }
func (v Bytes) AsText() (string, bool)   { return "", false }
func (v Bytes) AsInt64() (int64, bool)   { return 0, false }
func (v Bytes) AsNumber() (Number, bool) { return Number{}, false }
func (v Bytes) AsBytes() ([]byte, bool)  { return []byte(v), true }

func (v Structured) ValueKind() ValueKind     { return ValueStructured }
func (v Structured) AsText() (string, bool)   { return "", false }
func (v Structured) AsInt64() (int64, bool)   { return 0, false }
func (v Structured) AsNumber() (Number, bool) { return Number{}, false }
func (v Structured) AsBytes() ([]byte, bool)  { return []byte(v), true }

func (v Opaque) ValueKind() ValueKind     { return ValueOpaque }
func (v Opaque) AsText() (string, bool)   { return "", false }
func (v Opaque) AsInt64() (int64, bool)   { return 0, false }
func (v Opaque) AsNumber() (Number, bool) { return Number{}, false }
func (v Opaque) AsBytes() ([]byte, bool)  { return []byte(v), true }

// KeyOf adapts a native Go value to a Key. Strings become Text, integers
// Int64, floats Number and byte slices Bytes. Keys are returned as is.
func KeyOf(v any) (Key, error) {
	switch v := v.(type) {
	case Key:
		return v, nil
	case string:
		return Text(v), nil
	case int:
		return Int64(v), nil
	case int64:
		return Int64(v), nil
	case int32:
		return Int64(v), nil
	case float64:
		return NumberOf(v), nil
	case float32:
		return NumberOf(float64(v)), nil
	case []byte:
		return Bytes(v), nil
	default:
		return nil, fmt.Errorf("carmine: %T cannot be used as a key", v)
	}
}

// ValueOf adapts a native Go value to a Value, using the same rules as KeyOf.
func ValueOf(v any) (Value, error) {
	switch v := v.(type) {
	case Value:
		return v, nil
	case string:
		return Text(v), nil
	case int:
		return Int64(v), nil
	case int64:
		return Int64(v), nil
	case int32:
		return Int64(v), nil
	case float64:
		return NumberOf(v), nil
	case float32:
		return NumberOf(float64(v)), nil
	case []byte:
		return Bytes(v), nil
	default:
		return nil, fmt.Errorf("carmine: %T cannot be used as a value", v)
	}
}
