package types

import (
	"errors"
	"fmt"

	"github.com/blockberries/blockberry/abi"
)

// Application-specific result codes. Framework codes (abi.CodeInsufficientFunds,
// abi.CodeNotAuthorized, ...) are reused where they exist; codes at or above
// abi.CodeAppErrorStart cover the rest.
const (
	// CodeUnroutable: no module recognizes the message's type URL.
	CodeUnroutable abi.ResultCode = abi.CodeAppErrorStart + iota

	// CodeInvalidProof: a commitment proof failed verification.
	CodeInvalidProof

	// CodeUnexpectedState: an entity is not in the state the message requires.
	CodeUnexpectedState

	// CodeInvalidClient: a light client is missing, frozen or expired when
	// it must be active.
	CodeInvalidClient
)

// Error is a transaction-level failure. All Errors are equivalent from the
// ledger's perspective: the transaction is marked failed, its writes are
// dropped, and no events are emitted.
type Error struct {
	Code abi.ResultCode
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(code abi.ResultCode, format string, args ...any) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

// ErrUnroutable reports a message no module recognizes.
func ErrUnroutable(typeURL string) *Error {
	return newError(CodeUnroutable, "no module for message type %s", typeURL)
}

// ErrInvalidMessage reports a message that fails to decode or is
// semantically invalid.
func ErrInvalidMessage(format string, args ...any) *Error {
	return newError(abi.CodeInvalidTx, format, args...)
}

// ErrInvalidProof reports a failed commitment-proof verification.
func ErrInvalidProof(format string, args ...any) *Error {
	return newError(CodeInvalidProof, format, args...)
}

// ErrUnexpectedState reports a state-machine precondition violation.
func ErrUnexpectedState(format string, args ...any) *Error {
	return newError(CodeUnexpectedState, format, args...)
}

// ErrInvalidClient reports a missing or unusable light client.
func ErrInvalidClient(format string, args ...any) *Error {
	return newError(CodeInvalidClient, format, args...)
}

// ErrTimeout reports a packet timeout condition violation.
func ErrTimeout(format string, args ...any) *Error {
	return newError(abi.CodeTimeout, format, args...)
}

// ErrInsufficientFunds reports a balance underflow.
func ErrInsufficientFunds(format string, args ...any) *Error {
	return newError(abi.CodeInsufficientFunds, format, args...)
}

// ErrUnauthorized reports a signer lacking permission for an operation.
func ErrUnauthorized(format string, args ...any) *Error {
	return newError(abi.CodeNotAuthorized, format, args...)
}

// ErrNotFound reports a missing queried entity.
func ErrNotFound(format string, args ...any) *Error {
	return newError(abi.CodeNotFound, format, args...)
}

// CodeOf extracts the result code from a handler error.
func CodeOf(err error) abi.ResultCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return abi.CodeUnknownError
}

// FatalError is a storage-layer invariant violation. Unlike Error it aborts
// the whole block rather than a single transaction.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("storage corruption: %s", e.Reason)
}

// ErrStorageCorruption reports a missing invariant-required key or a
// store-layer fault. The block is aborted and the fault propagated to the
// consensus engine.
func ErrStorageCorruption(format string, args ...any) *FatalError {
	return &FatalError{Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err is a block-aborting storage fault.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
