package hyperlinkr

import (
	"log/slog"

	"github.com/hyperlinkr/hyperlinkr/internal/clock"
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// serviceOptions collects ServiceOption overrides applied before a
// Service wires its collaborators from *config.Config.
type serviceOptions struct {
	logger    *slog.Logger
	metrics   types.MetricsRecorder
	publisher types.Publisher
	remote    types.RemoteStore
	cold      types.ColdStore
	clock     clock.Clock
}

// ServiceOption customizes New/NewFromConfig/NewFromFile construction,
// the way the teacher's ManagerOption injects a serializer or overrides
// Redis settings for tests.
type ServiceOption func(*serviceOptions)

// WithLogger routes the Service's structured logs through logger
// instead of slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithMetricsRecorder overrides the MetricsRecorder the Service would
// otherwise build from Config.Metrics.Enabled.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) { o.metrics = recorder }
}

// WithPublisher overrides the background health-metrics Publisher the
// Service would otherwise build from Config.Metrics.
func WithPublisher(publisher Publisher) ServiceOption {
	return func(o *serviceOptions) { o.publisher = publisher }
}

// WithRemote overrides the resilient remote store a Service would
// otherwise dial from Config.DatabaseURLs. Primarily for tests: it
// lets a fake types.RemoteStore stand in without a live endpoint.
func WithRemote(remote types.RemoteStore) ServiceOption {
	return func(o *serviceOptions) { o.remote = remote }
}

// WithColdStore overrides the cold tier a Service would otherwise open
// from Config.ColdStore. Passing nil here still lets Config.ColdStore
// win; to force the cold tier off regardless of Config, set
// Config.ColdStore.Enabled to false instead.
func WithColdStore(cold types.ColdStore) ServiceOption {
	return func(o *serviceOptions) { o.cold = cold }
}

// WithClock overrides the clock.Clock used for analytics timestamps
// and flush-trigger timing. Tests inject a clock.Fake.
func WithClock(clk clock.Clock) ServiceOption {
	return func(o *serviceOptions) { o.clock = clk }
}
