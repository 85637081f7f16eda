package hyperlinkr

import (
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// CoreError is the error type every core operation wraps failures in.
type CoreError = types.CoreError

// Sentinel errors, re-exported from internal/types so callers can use
// errors.Is without importing it.
var (
	ErrNotFound      = types.ErrNotFound
	ErrValidation    = types.ErrValidation
	ErrCodeGen       = types.ErrCodeGen
	ErrRemote        = types.ErrRemote
	ErrRejected      = types.ErrRejected
	ErrPoolExhausted = types.ErrPoolExhausted
	ErrTimeout       = types.ErrTimeout
	ErrInternal      = types.ErrInternal
	ErrAlreadyExists = types.ErrAlreadyExists
	ErrClosed        = types.ErrClosed
)

// IsNotFound reports whether err (or anything it wraps) is ErrNotFound.
func IsNotFound(err error) bool { return types.IsNotFound(err) }

// IsRejected reports whether the circuit breaker denied the call.
func IsRejected(err error) bool { return types.IsRejected(err) }

// IsRemoteFailure reports whether the underlying remote call failed.
func IsRemoteFailure(err error) bool { return types.IsRemoteFailure(err) }

// IsRetryable reports whether a failed call is worth retrying.
func IsRetryable(err error) bool { return types.IsRetryable(err) }
