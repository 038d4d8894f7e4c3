package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Codec defines how typed values are encoded into and decoded out of the
// byte store.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// CramCodec encodes values with cramberry, the stack's deterministic binary
// codec. Anything that must be Merkle-proven cross-chain uses this.
type CramCodec[T any] struct{}

func (CramCodec[T]) Encode(value T) ([]byte, error) {
	return cramberry.Marshal(value)
}

func (CramCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := cramberry.Unmarshal(data, &value); err != nil {
		return value, err
	}
	return value, nil
}

// JSONCodec encodes values as JSON, used where the wire format is
// human-facing (genesis state, bank balances).
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return value, err
	}
	return value, nil
}

// RawCodec stores byte slices as-is.
type RawCodec struct{}

func (RawCodec) Encode(value []byte) ([]byte, error) { return value, nil }

func (RawCodec) Decode(data []byte) ([]byte, error) { return data, nil }

// U64Codec stores unsigned integers as 8-byte big-endian words, the
// canonical cross-chain encoding for sequence numbers.
type U64Codec struct{}

func (U64Codec) Encode(value uint64) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf, nil
}

func (U64Codec) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("expected 8 bytes for sequence, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Typed provides type-safe access and serde over a KV.
type Typed[T any] struct {
	kv    KV
	codec Codec[T]
}

// NewTyped binds a codec to a KV.
func NewTyped[T any](kv KV, codec Codec[T]) Typed[T] {
	return Typed[T]{kv: kv, codec: codec}
}

// NewCram is shorthand for a cramberry-coded typed store.
func NewCram[T any](kv KV) Typed[T] {
	return NewTyped[T](kv, CramCodec[T]{})
}

// NewJSON is shorthand for a JSON-coded typed store.
func NewJSON[T any](kv KV) Typed[T] {
	return NewTyped[T](kv, JSONCodec[T]{})
}

// Get decodes the value at path. The second return is false if absent.
func (t Typed[T]) Get(path Path) (T, bool, error) {
	var zero T
	data, ok := t.kv.Get(path)
	if !ok {
		return zero, false, nil
	}
	value, err := t.codec.Decode(data)
	if err != nil {
		return zero, false, fmt.Errorf("decoding value at %q: %w", path, err)
	}
	return value, true, nil
}

// Set encodes and stores a value at path.
func (t Typed[T]) Set(path Path, value T) error {
	data, err := t.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encoding value at %q: %w", path, err)
	}
	return t.kv.Set(path, data)
}

// Delete removes the value at path.
func (t Typed[T]) Delete(path Path) error {
	return t.kv.Delete(path)
}

// Has reports whether path holds a value.
func (t Typed[T]) Has(path Path) bool {
	_, ok := t.kv.Get(path)
	return ok
}

// GetKeys lists the keys under prefix.
func (t Typed[T]) GetKeys(prefix Path) []Path {
	return t.kv.GetKeys(prefix)
}
