// Package types defines the transaction envelope and the error model shared
// by the hostberry modules and the application aggregator.
package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Msg is a single routed message: a fully-qualified type URL selecting
// exactly one module handler, and the cramberry-encoded message body.
type Msg struct {
	TypeURL string `cramberry:"1"`
	Value   []byte `cramberry:"2"`
}

// Tx is the transaction envelope. Signature verification is external to the
// state machine; the signer string is carried through to handlers.
type Tx struct {
	Messages  []Msg  `cramberry:"1"`
	Signer    string `cramberry:"2"`
	Nonce     uint64 `cramberry:"3"`
	Signature []byte `cramberry:"4"`
}

// DecodeTx parses a raw transaction.
func DecodeTx(data []byte) (Tx, error) {
	var tx Tx
	if err := cramberry.Unmarshal(data, &tx); err != nil {
		return Tx{}, ErrInvalidMessage("malformed transaction: %v", err)
	}
	if len(tx.Messages) == 0 {
		return Tx{}, ErrInvalidMessage("transaction carries no messages")
	}
	return tx, nil
}

// Encode serializes the transaction.
func (tx Tx) Encode() ([]byte, error) {
	return cramberry.Marshal(tx)
}

// Hash returns the SHA-256 of the encoded transaction.
func (tx Tx) Hash() ([32]byte, error) {
	data, err := tx.Encode()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// DecodeMsg unmarshals a message body into the given value.
func DecodeMsg(msg Msg, into any) error {
	if err := cramberry.Unmarshal(msg.Value, into); err != nil {
		return ErrInvalidMessage("malformed %s: %v", msg.TypeURL, err)
	}
	return nil
}

// NewMsg wraps a message value under its type URL.
func NewMsg(typeURL string, value any) (Msg, error) {
	data, err := cramberry.Marshal(value)
	if err != nil {
		return Msg{}, fmt.Errorf("encoding %s: %w", typeURL, err)
	}
	return Msg{TypeURL: typeURL, Value: data}, nil
}
