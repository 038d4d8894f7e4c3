// Package modules defines the module contract and the message router that
// dispatches transactions across modules.
package modules

import (
	"encoding/json"

	"github.com/blockberries/blockberry/abi"

	"github.com/blockberries/hostberry/store"
	"github.com/blockberries/hostberry/types"
)

// Module is the contract every hostberry module implements. A module owns a
// disjoint store prefix, a closed set of message type URLs, and a set of
// query paths.
//
// Deliver implementations must be deterministic. Handlers never persist
// partial writes themselves: the aggregator stages or discards the scope's
// write-set around each transaction.
type Module interface {
	// Name returns the module's identifier, which doubles as its store
	// prefix. Prefixes are disjoint and stable for a chain's lifetime.
	Name() store.Identifier

	// MessageTypes returns the fully-qualified type URLs this module
	// handles. The set is closed at construction time.
	MessageTypes() []string

	// Init seeds the module's state from its genesis document.
	// Called exactly once, at genesis, in deliver scope. Idempotent.
	Init(scope store.Scope, appState json.RawMessage) error

	// Check performs lightweight validation of a message for mempool
	// admission. Writes through the scope land in the check overlay and
	// are never persisted.
	Check(scope store.Scope, msg types.Msg) error

	// Deliver executes a message authoritatively, returning the events it
	// emitted.
	Deliver(scope store.Scope, msg types.Msg, signer string) ([]abi.Event, error)

	// BeginBlock runs the module's block-start hook.
	BeginBlock(scope store.Scope, header *abi.BlockHeader) []abi.Event

	// Query serves a read against the module's namespace at the scope's
	// revision. The relative path has the module segment already stripped.
	Query(scope store.Scope, path store.Path, data []byte) ([]byte, error)
}
