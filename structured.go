package carmine

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MarshalStructured serializes v with MessagePack. Maps with string keys,
// including maps nested in structs and slices, are written in sorted key
// order, so equal values always produce equal bytes.
func MarshalStructured(v any) (Structured, error) {
	raw, err := encodeStructured(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}

	// msgpack only sorts map[string]string and map[string]any, so re-encode
	// through the generic form where every map is one of those.
	var generic any
	if err := msgpack.Unmarshal(raw, &generic); err != nil {
		// non-string map keys; keep the encoder's order
		return Structured(raw), nil
	}
	raw, err = encodeStructured(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
	}
	return Structured(raw), nil
}

func encodeStructured(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a value produced by MarshalStructured into v, which must
// be a pointer.
func (s Structured) Unmarshal(v any) error {
	var r bytes.Reader
	r.Reset(s)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(v)
	msgpack.PutDecoder(dec)
	if err != nil {
		return fmt.Errorf("%w: %w", dataErrf(s, "failed to decode msgpack into %T", v), err)
	}
	return nil
}
