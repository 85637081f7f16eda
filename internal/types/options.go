package types

import "time"

// InsertOptions configures a single composer Insert call.
type InsertOptions struct {
	// TTL overrides the configured default TTL for this mapping.
	TTL time.Duration
	// CustomAlias marks a caller-supplied code (as opposed to one from
	// the generator), routing the remote write through the
	// set-if-absent path so two concurrent custom inserts of different
	// URLs never silently last-writer-wins (DESIGN.md Open Question 3).
	CustomAlias bool
}

// Option is a functional option for InsertOptions.
type Option func(*InsertOptions)

func WithTTL(ttl time.Duration) Option {
	return func(o *InsertOptions) { o.TTL = ttl }
}

func AsCustomAlias() Option {
	return func(o *InsertOptions) { o.CustomAlias = true }
}

func ApplyOptions(defaultTTL time.Duration, opts ...Option) *InsertOptions {
	o := &InsertOptions{TTL: defaultTTL}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
