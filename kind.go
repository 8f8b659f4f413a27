package carmine

import "fmt"

// KeyKind classifies the logical type of a collection's keys.
type KeyKind uint8

const (
	KeyText KeyKind = iota
	KeyInt64
	KeyNumber
	KeyBytes

	keyKindCount = iota
)

var keyKindNames = [keyKindCount]string{"Text", "Int64", "Number", "Bytes"}

func (k KeyKind) Valid() bool {
	return k < keyKindCount
}

func (k KeyKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("KeyKind(%d)", uint8(k))
	}
	return keyKindNames[k]
}

// ValueKind classifies the logical type of a collection's values.
//
// ValueStructured and ValueOpaque are stored exactly like ValueBytes; they
// only differ in how values read back from the collection are typed.
type ValueKind uint8

const (
	ValueText ValueKind = iota
	ValueInt64
	ValueNumber
	ValueBytes
	ValueStructured
	ValueOpaque

	valueKindCount = iota
)

var valueKindNames = [valueKindCount]string{"Text", "Int64", "Number", "Bytes", "Structured", "Opaque"}

func (k ValueKind) Valid() bool {
	return k < valueKindCount
}

func (k ValueKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
	return valueKindNames[k]
}

// valueShape is the physical representation of a value kind. There are only
// four: Structured and Opaque collapse into shapeBytes.
type valueShape uint8

const (
	shapeText valueShape = iota
	shapeInt64
	shapeNumber
	shapeBytes

	valueShapeCount = iota
)

func (k ValueKind) shape() valueShape {
	switch k {
	case ValueText:
		return shapeText
	case ValueInt64:
		return shapeInt64
	case ValueNumber:
		return shapeNumber
	case ValueBytes, ValueStructured, ValueOpaque:
		return shapeBytes
	default:
		panic(fmt.Errorf("invalid %v", k))
	}
}

func (s valueShape) String() string {
	return valueKindNames[s]
}
