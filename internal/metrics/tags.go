package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// LevelTag creates a cache level tag.
func LevelTag(level string) string {
	return Tag("level", level)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// PatternTag creates a pattern tag for bulk operations.
func PatternTag(pattern string) string {
	return Tag("pattern", pattern)
}

// StatusTag creates a status tag (hit/miss/error).
func StatusTag(status string) string {
	return Tag("status", status)
}

// TierTag creates a cache tier tag (l1/l2/remote/cold).
func TierTag(tier string) string {
	return Tag("tier", tier)
}

// EndpointTag creates a remote endpoint tag.
func EndpointTag(endpoint string) string {
	return Tag("endpoint", endpoint)
}

// CircuitStateTag creates a circuit breaker state tag.
func CircuitStateTag(state string) string {
	return Tag("circuit_state", state)
}
