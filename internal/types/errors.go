package types

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per taxonomy entry in spec §7.
var (
	ErrNotFound      = errors.New("hyperlinkr: code not found")
	ErrValidation    = errors.New("hyperlinkr: validation failed")
	ErrCodeGen       = errors.New("hyperlinkr: code generation failed")
	ErrRemote        = errors.New("hyperlinkr: remote store call failed")
	ErrRejected      = errors.New("hyperlinkr: circuit breaker rejected call")
	ErrPoolExhausted = errors.New("hyperlinkr: connection pool exhausted")
	ErrTimeout       = errors.New("hyperlinkr: operation timed out")
	ErrInternal      = errors.New("hyperlinkr: internal invariant violation")

	// ErrAlreadyExists is returned by a conditional (set-if-absent) insert
	// when a value is already present under the same code.
	ErrAlreadyExists = errors.New("hyperlinkr: code already exists")
	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("hyperlinkr: service closed")
)

// CoreError wraps an underlying error with the operation, the code it
// concerned, and its taxonomy Kind, the way the teacher's CacheError
// wraps layer/op/key.
type CoreError struct {
	Op   string
	Code string
	Kind ErrorKind
	Err  error
}

func (e *CoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("hyperlinkr %s [%s] (%s): %v", e.Op, e.Code, e.Kind, e.Err)
	}
	return fmt.Sprintf("hyperlinkr %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel associated with e's Kind,
// so callers can match on the taxonomy (errors.Is(err, ErrRejected))
// without needing to know the specific underlying cause e wraps.
func (e *CoreError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

// NewCoreError constructs a CoreError, defaulting Err to the sentinel
// matching Kind when err is nil.
func NewCoreError(op, code string, kind ErrorKind, err error) *CoreError {
	if err == nil {
		err = sentinelFor(kind)
	}
	return &CoreError{Op: op, Code: code, Kind: kind, Err: err}
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindCodeGen:
		return ErrCodeGen
	case KindRemote:
		return ErrRemote
	case KindRejected:
		return ErrRejected
	case KindPoolExhausted:
		return ErrPoolExhausted
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrInternal
	}
}

// IsNotFound reports whether err (or anything it wraps) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsRejected reports whether the breaker denied the call.
func IsRejected(err error) bool { return errors.Is(err, ErrRejected) }

// IsRemoteFailure reports whether the underlying remote call failed
// (as opposed to being rejected by the breaker before it was attempted).
func IsRemoteFailure(err error) bool { return errors.Is(err, ErrRemote) }

// IsRetryable reports whether a failed remote call is worth retrying.
// Rejections and validation errors are not: they indicate the breaker
// is protecting the endpoint, or the caller's input is malformed, and
// retrying would just repeat the same outcome.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRejected) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrClosed) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) {
		return false
	}
	return true
}
