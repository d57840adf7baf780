package shiftlib

import "testing"

// TestJobQueue_PriorityOrder tests that jobs come out in priority order
// regardless of insertion order, with critical (1) before batch (5).
func TestJobQueue_PriorityOrder(t *testing.T) {
	q := NewJobQueue()
	q.Add(&JobSpec{JobID: "batch", Priority: PriorityBatch})
	q.Add(&JobSpec{JobID: "critical", Priority: PriorityCritical})
	q.Add(&JobSpec{JobID: "normal", Priority: PriorityNormal})

	want := []string{"critical", "normal", "batch"}
	for _, id := range want {
		spec, ok := q.Next()
		if !ok {
			t.Fatalf("queue drained early, wanted %s", id)
		}
		if spec.JobID != id {
			t.Fatalf("expected %s next, got %s", id, spec.JobID)
		}
	}
	if _, ok := q.Next(); ok {
		t.Fatal("expected empty queue after draining")
	}
}

// TestJobQueue_EqualPriorityFIFO tests that jobs of equal priority keep
// their insertion order.
func TestJobQueue_EqualPriorityFIFO(t *testing.T) {
	q := NewJobQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.Add(&JobSpec{JobID: id, Priority: PriorityNormal})
	}

	for _, id := range []string{"a", "b", "c"} {
		spec, _ := q.Next()
		if spec.JobID != id {
			t.Fatalf("expected %s next, got %s", id, spec.JobID)
		}
	}
}

// TestJobQueue_DuplicateIgnored tests that re-adding a queued job id is a
// no-op.
func TestJobQueue_DuplicateIgnored(t *testing.T) {
	q := NewJobQueue()
	q.Add(&JobSpec{JobID: "a", Priority: PriorityNormal})
	q.Add(&JobSpec{JobID: "a", Priority: PriorityCritical})

	if q.Len() != 1 {
		t.Fatalf("expected 1 queued job, got %d", q.Len())
	}
}

// TestJobQueue_Snapshot tests that Snapshot returns dispatch order without
// consuming the queue.
func TestJobQueue_Snapshot(t *testing.T) {
	q := NewJobQueue()
	q.Add(&JobSpec{JobID: "low", Priority: PriorityLow})
	q.Add(&JobSpec{JobID: "high", Priority: PriorityHigh})

	snap := q.Snapshot()
	if len(snap) != 2 || snap[0].JobID != "high" {
		t.Fatalf("unexpected snapshot order: %v", snap)
	}
	if q.Len() != 2 {
		t.Fatalf("snapshot consumed the queue, len=%d", q.Len())
	}
}

// TestJobQueue_Refill tests that Refill discards stale contents, applies
// priority ordering to the new jobs, and still deduplicates ids.
func TestJobQueue_Refill(t *testing.T) {
	q := NewJobQueue()
	q.Add(&JobSpec{JobID: "stale", Priority: PriorityNormal})

	q.Refill([]*JobSpec{
		{JobID: "batch", Priority: PriorityBatch},
		{JobID: "critical", Priority: PriorityCritical},
		{JobID: "critical", Priority: PriorityNormal},
	})

	if q.Len() != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", q.Len())
	}
	for _, id := range []string{"critical", "batch"} {
		spec, ok := q.Next()
		if !ok || spec.JobID != id {
			t.Fatalf("expected %s next, got %v (ok=%v)", id, spec, ok)
		}
	}
}
