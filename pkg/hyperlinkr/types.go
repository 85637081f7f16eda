// Package hyperlinkr is the public entry point for embedding the URL
// shortener's cache, code generation, and analytics core in a host
// application, the way the teacher's pkg/rentfree fronts its internal
// packages with constructors, functional options, and re-exported
// types instead of requiring callers to import internal/*.
package hyperlinkr

import (
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// Re-export the per-call insert options from internal/types so callers
// never need to import it directly.
type (
	Option          = types.Option
	InsertOptions   = types.InsertOptions
	MetricsRecorder = types.MetricsRecorder
	Logger          = types.Logger
	Publisher       = types.Publisher
)

// WithTTL overrides the configured default TTL for a single Insert call.
func WithTTL(ttl time.Duration) Option {
	return types.WithTTL(ttl)
}

// AsCustomAlias marks an Insert call as a caller-supplied code rather
// than one produced by the code generator, routing the write through
// the set-if-absent path.
func AsCustomAlias() Option {
	return types.AsCustomAlias()
}

// ApplyOptions resolves opts against defaultTTL. Exposed mainly for
// tests that need to inspect the resolved InsertOptions.
func ApplyOptions(defaultTTL time.Duration, opts ...Option) *InsertOptions {
	return types.ApplyOptions(defaultTTL, opts...)
}
