package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/config"
)

func TestMultiBreakerHealthy(t *testing.T) {
	cfg := config.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenDuration:      1 * time.Hour,
	}
	mb := NewMultiBreaker([]string{"a:1", "b:1", "c:1"}, cfg)

	if got := mb.Healthy(); len(got) != 3 {
		t.Fatalf("Healthy() = %v, want all 3 endpoints", got)
	}

	mb.Breaker(1).RecordFailure()

	healthy := mb.Healthy()
	if len(healthy) != 2 {
		t.Fatalf("Healthy() after tripping endpoint 1 = %v, want 2 entries", healthy)
	}
	for _, idx := range healthy {
		if idx == 1 {
			t.Fatal("Healthy() included tripped endpoint 1")
		}
	}
}

func TestMultiBreakerNextSkipsOpen(t *testing.T) {
	cfg := config.CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: 1 * time.Hour}
	mb := NewMultiBreaker([]string{"a:1", "b:1"}, cfg)
	mb.Breaker(0).RecordFailure()

	for i := 0; i < 10; i++ {
		idx, ok := mb.Next()
		if !ok {
			t.Fatal("Next() ok = false, want true (endpoint 1 still healthy)")
		}
		if idx != 1 {
			t.Fatalf("Next() = %d, want 1 (only healthy endpoint)", idx)
		}
	}
}

func TestMultiBreakerNoHealthyEndpoints(t *testing.T) {
	cfg := config.CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: 1 * time.Hour}
	mb := NewMultiBreaker([]string{"a:1"}, cfg)
	mb.Breaker(0).RecordFailure()

	_, ok := mb.Next()
	if ok {
		t.Fatal("Next() ok = true, want false when all endpoints tripped")
	}

	_, err := mb.Execute(func(idx int) (any, error) { return nil, nil })
	if !errors.Is(err, ErrNoHealthyEndpoints) {
		t.Fatalf("Execute() error = %v, want ErrNoHealthyEndpoints", err)
	}
}

func TestMultiBreakerExecuteRecordsOutcome(t *testing.T) {
	cfg := config.CircuitBreakerConfig{FailureThreshold: 2, OpenDuration: 1 * time.Hour}
	mb := NewMultiBreaker([]string{"a:1"}, cfg)

	_, _ = mb.Execute(func(idx int) (any, error) { return nil, errors.New("boom") })
	if mb.Breaker(0).IsOpen() {
		t.Fatal("breaker opened after a single failure below threshold")
	}

	_, _ = mb.Execute(func(idx int) (any, error) { return nil, errors.New("boom") })
	if !mb.Breaker(0).IsOpen() {
		t.Fatal("breaker did not open after reaching failure threshold")
	}
}
