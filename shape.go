package carmine

import (
	"encoding/binary"
	"slices"
	"unicode/utf8"

	"github.com/andreyvit/carmine/numkey"
)

// physicalShape translates between typed keys/values and the bytes stored in
// one physical table layout. There is one shape per (key kind, value shape)
// pair, see shapes.
type physicalShape interface {
	keyKind() KeyKind
	valueShape() valueShape
	encodeKey(k Key) ([]byte, bool)
	decodeKey(raw []byte) (Key, error)
	encodeValue(v Value) ([]byte, bool)
	decodeValue(raw []byte, declared ValueKind) (Value, error)
}

// codec is the binary contract of one Go type: encode, decode and the
// projection used to pull the type out of an arbitrary Key or Value.
// Decoded results must not alias raw, since engine memory is only valid
// within its transaction.
type codec[T any] struct {
	project func(p Projector) (T, bool)
	encode  func(v T) []byte
	decode  func(raw []byte) (T, bool)
}

type keyCodec[T any] struct {
	codec[T]
	kind KeyKind
	wrap func(v T) Key
}

type valueCodec[T any] struct {
	codec[T]
	shape valueShape
	wrap  func(v T, declared ValueKind) Value
}

// physical is the single implementation behind all sixteen shapes.
type physical[K, V any] struct {
	k keyCodec[K]
	v valueCodec[V]
}

func (p physical[K, V]) keyKind() KeyKind       { return p.k.kind }
func (p physical[K, V]) valueShape() valueShape { return p.v.shape }

func (p physical[K, V]) encodeKey(k Key) ([]byte, bool) {
	v, ok := p.k.project(k)
	if !ok {
		return nil, false
	}
	return p.k.encode(v), true
}

func (p physical[K, V]) decodeKey(raw []byte) (Key, error) {
	v, ok := p.k.decode(raw)
	if !ok {
		return nil, dataErrf(raw, "cannot decode %v key", p.k.kind)
	}
	return p.k.wrap(v), nil
}

func (p physical[K, V]) encodeValue(v Value) ([]byte, bool) {
	x, ok := p.v.project(v)
	if !ok {
		return nil, false
	}
	return p.v.encode(x), true
}

func (p physical[K, V]) decodeValue(raw []byte, declared ValueKind) (Value, error) {
	x, ok := p.v.decode(raw)
	if !ok {
		return nil, dataErrf(raw, "cannot decode %v value", p.v.shape)
	}
	return p.v.wrap(x, declared), nil
}

var (
	textCodec = codec[string]{
		project: Projector.AsText,
		encode: func(v string) []byte {
			return append([]byte{}, v...)
		},
		decode: func(raw []byte) (string, bool) {
			return string(raw), utf8.Valid(raw)
		},
	}
	int64Codec = codec[int64]{
		project: Projector.AsInt64,
		encode: func(v int64) []byte {
			return binary.BigEndian.AppendUint64(make([]byte, 0, 8), uint64(v))
		},
		decode: func(raw []byte) (int64, bool) {
			if len(raw) != 8 {
				return 0, false
			}
			return int64(binary.BigEndian.Uint64(raw)), true
		},
	}
	numberCodec = codec[Number]{
		project: Projector.AsNumber,
		encode: func(v Number) []byte {
			return slices.Clone(v[:])
		},
		decode: func(raw []byte) (Number, bool) {
			var n Number
			if len(raw) != numkey.Size {
				return n, false
			}
			copy(n[:], raw)
			return n, true
		},
	}
	bytesCodec = codec[[]byte]{
		project: Projector.AsBytes,
		encode: func(v []byte) []byte {
			return append([]byte{}, v...)
		},
		decode: func(raw []byte) ([]byte, bool) {
			return append([]byte{}, raw...), true
		},
	}

	// Int64 keys flip the sign bit so that byte order matches numeric order.
	int64KeyCodec = codec[int64]{
		project: Projector.AsInt64,
		encode: func(v int64) []byte {
			return binary.BigEndian.AppendUint64(make([]byte, 0, 8), uint64(v)^(1<<63))
		},
		decode: func(raw []byte) (int64, bool) {
			if len(raw) != 8 {
				return 0, false
			}
			return int64(binary.BigEndian.Uint64(raw) ^ (1 << 63)), true
		},
	}
)

var (
	textKeys   = keyCodec[string]{textCodec, KeyText, func(v string) Key { return Text(v) }}
	int64Keys  = keyCodec[int64]{int64KeyCodec, KeyInt64, func(v int64) Key { return Int64(v) }}
	numberKeys = keyCodec[Number]{numberCodec, KeyNumber, func(v Number) Key { return v }}
	bytesKeys  = keyCodec[[]byte]{bytesCodec, KeyBytes, func(v []byte) Key { return Bytes(v) }}

	textValues   = valueCodec[string]{textCodec, shapeText, func(v string, _ ValueKind) Value { return Text(v) }}
	int64Values  = valueCodec[int64]{int64Codec, shapeInt64, func(v int64, _ ValueKind) Value { return Int64(v) }}
	numberValues = valueCodec[Number]{numberCodec, shapeNumber, func(v Number, _ ValueKind) Value { return v }}
	bytesValues  = valueCodec[[]byte]{bytesCodec, shapeBytes, wrapBytesValue}
)

func wrapBytesValue(v []byte, declared ValueKind) Value {
	switch declared {
	case ValueStructured:
		return Structured(v)
	case ValueOpaque:
		return Opaque(v)
	default:
		return Bytes(v)
	}
}

// shapes is indexed by [KeyKind][valueShape].
var shapes = buildShapes()

func buildShapes() (r [keyKindCount][valueShapeCount]physicalShape) {
	r[KeyText] = shapeRow(textKeys)
	r[KeyInt64] = shapeRow(int64Keys)
	r[KeyNumber] = shapeRow(numberKeys)
	r[KeyBytes] = shapeRow(bytesKeys)
	return
}

func shapeRow[K any](k keyCodec[K]) (row [valueShapeCount]physicalShape) {
	row[shapeText] = physical[K, string]{k, textValues}
	row[shapeInt64] = physical[K, int64]{k, int64Values}
	row[shapeNumber] = physical[K, Number]{k, numberValues}
	row[shapeBytes] = physical[K, []byte]{k, bytesValues}
	return
}

func shapeOf(kk KeyKind, vk ValueKind) physicalShape {
	return shapes[kk][vk.shape()]
}
