package hyperlinkr

import (
	"github.com/hyperlinkr/hyperlinkr/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state of a Service.
	HealthStatus = types.HealthStatus

	// HealthMetrics is the aggregate health snapshot returned by Health.
	HealthMetrics = types.HealthMetrics

	// TierHealthMetrics reports L1/L2 in-memory tier health.
	TierHealthMetrics = types.TierHealthMetrics

	// EndpointHealthMetrics reports one remote endpoint's breaker state.
	EndpointHealthMetrics = types.EndpointHealthMetrics

	// ColdStoreHealthMetrics reports the optional cold tier's state.
	ColdStoreHealthMetrics = types.ColdStoreHealthMetrics

	// MetricsSnapshot is a point-in-time view of operation counters.
	MetricsSnapshot = types.MetricsSnapshot
)

// Re-export health status constants.
const (
	HealthStatusHealthy   = types.HealthStatusHealthy
	HealthStatusDegraded  = types.HealthStatusDegraded
	HealthStatusUnhealthy = types.HealthStatusUnhealthy
)
