package analytics

import (
	"testing"
	"time"
)

func TestQueueTryPushRespectsCapacity(t *testing.T) {
	q := newQueue(4)
	now := time.Now()

	for i := 0; i < 4; i++ {
		if !q.tryPush("code", int64(i), now) {
			t.Fatalf("tryPush %d failed, want success while under capacity", i)
		}
	}
	if q.tryPush("code", 99, now) {
		t.Error("tryPush at capacity succeeded, want drop-newest rejection")
	}
	if q.len() != 4 {
		t.Errorf("len() = %d, want 4", q.len())
	}
}

func TestQueueDrainIsFIFO(t *testing.T) {
	q := newQueue(8)
	now := time.Now()
	for i := 0; i < 5; i++ {
		q.tryPush("code", int64(i), now)
	}

	events := q.drain(3)
	if len(events) != 3 {
		t.Fatalf("drain(3) returned %d events, want 3", len(events))
	}
	for i, e := range events {
		if e.ts != int64(i) {
			t.Errorf("events[%d].ts = %d, want %d", i, e.ts, i)
		}
	}
	if q.len() != 2 {
		t.Errorf("len() after drain = %d, want 2", q.len())
	}
}

func TestQueueOldestAgeReflectsEnqueueTime(t *testing.T) {
	q := newQueue(4)
	base := time.Now()

	if age := q.oldestAge(base); age != 0 {
		t.Errorf("oldestAge() on empty queue = %v, want 0", age)
	}

	q.tryPush("code", 1, base)
	later := base.Add(250 * time.Millisecond)
	if age := q.oldestAge(later); age != 250*time.Millisecond {
		t.Errorf("oldestAge() = %v, want 250ms", age)
	}
}

func TestQueueDrainProducesCeilBatches(t *testing.T) {
	const total = 25000
	const maxBatchSize = 500

	q := newQueue(total)
	now := time.Now()
	for i := 0; i < total; i++ {
		if !q.tryPush("code", int64(i), now) {
			t.Fatalf("tryPush %d failed, want queue sized to hold all %d events", i, total)
		}
	}

	batches := 0
	drained := 0
	for q.len() > 0 {
		events := q.drain(maxBatchSize)
		if len(events) == 0 {
			t.Fatal("drain returned no events while queue reports non-zero length")
		}
		batches++
		drained += len(events)
	}

	wantBatches := (total + maxBatchSize - 1) / maxBatchSize
	if batches != wantBatches {
		t.Errorf("batches = %d, want %d", batches, wantBatches)
	}
	if drained != total {
		t.Errorf("drained %d events total, want %d", drained, total)
	}
}
