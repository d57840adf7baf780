package session

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

func newTestManager(t *testing.T) (*Manager, *FileStore) {
	t.Helper()
	store := NewFileStoreFS(afero.NewMemMapFs(), "/night/checkpoint.json")
	return NewManager(store, logger.NewNopLogger(), Config{}), store
}

// TestManager_StartFresh tests that a fresh session gets the full token
// budget and is persisted immediately.
func TestManager_StartFresh(t *testing.T) {
	m, store := newTestManager(t)

	cp, err := m.Start("")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if cp.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	if cp.TokenBudgetRemaining != DEF_TOKEN_BUDGET || cp.TokenBudgetUsed != 0 {
		t.Fatalf("expected full budget, got used=%d remaining=%d", cp.TokenBudgetUsed, cp.TokenBudgetRemaining)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if persisted == nil || persisted.SessionID != cp.SessionID {
		t.Fatal("fresh session was not persisted immediately")
	}
}

// TestManager_StartIdempotentResume tests that Start with an open
// checkpoint present resumes the same session id and preserves progress
// and spent budget. Calling Start twice in a row must not reset anything.
func TestManager_StartIdempotentResume(t *testing.T) {
	m, store := newTestManager(t)

	first, err := m.Start("ns-night-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.RecordCompletion("t1", shiftlib.StatusCompleted, 30_000); err != nil {
		t.Fatalf("record: %v", err)
	}

	// A second manager simulating a process restart over the same store.
	m2 := NewManager(store, logger.NewNopLogger(), Config{})
	resumed, err := m2.Start("")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.SessionID != first.SessionID {
		t.Fatalf("expected resumed session %s, got %s", first.SessionID, resumed.SessionID)
	}
	if len(resumed.TasksCompleted) != 1 || resumed.TasksCompleted[0] != "t1" {
		t.Fatalf("progress lost on resume: %+v", resumed.TasksCompleted)
	}
	if resumed.TokenBudgetRemaining != DEF_TOKEN_BUDGET-30_000 {
		t.Fatalf("budget reset on resume: remaining=%d", resumed.TokenBudgetRemaining)
	}

	// Start again on the same manager: still the same session.
	again, err := m2.Start("")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.SessionID != first.SessionID {
		t.Fatal("Start is not idempotent with an open checkpoint")
	}
}

// TestManager_TokenAccountingInvariant tests that used + remaining equals
// the initial budget exactly after any sequence of recordings.
func TestManager_TokenAccountingInvariant(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Start(""); err != nil {
		t.Fatalf("start: %v", err)
	}

	spends := []struct {
		id     string
		status shiftlib.TaskStatus
		tokens int64
	}{
		{"t1", shiftlib.StatusCompleted, 12_345},
		{"t2", shiftlib.StatusDeferred, 0},
		{"t3", shiftlib.StatusFailed, 991},
		{"t4", shiftlib.StatusCompleted, 55_000},
	}
	for _, s := range spends {
		if err := m.RecordCompletion(s.id, s.status, s.tokens); err != nil {
			t.Fatalf("record %s: %v", s.id, err)
		}
		cp := m.Checkpoint()
		if cp.TokenBudgetUsed+cp.TokenBudgetRemaining != DEF_TOKEN_BUDGET {
			t.Fatalf("invariant broken after %s: used=%d remaining=%d", s.id, cp.TokenBudgetUsed, cp.TokenBudgetRemaining)
		}
	}

	cp := m.Checkpoint()
	if len(cp.TasksCompleted) != 2 || len(cp.TasksDeferred) != 1 || len(cp.TasksFailed) != 1 {
		t.Fatalf("outcome lists wrong: %+v", cp)
	}
}

// TestManager_ShouldContinue tests the 5% remaining-ratio cutoff.
func TestManager_ShouldContinue(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Start(""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.ShouldContinue() {
		t.Fatal("fresh session should continue")
	}

	// Burn down to exactly 5%: still allowed.
	if err := m.RecordCompletion("t1", shiftlib.StatusCompleted, DEF_TOKEN_BUDGET*95/100); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !m.ShouldContinue() {
		t.Fatal("exactly at the threshold should continue")
	}

	// One token below the threshold: stop.
	if err := m.RecordCompletion("t2", shiftlib.StatusCompleted, 1); err != nil {
		t.Fatalf("record: %v", err)
	}
	if m.ShouldContinue() {
		t.Fatal("below the threshold must stop")
	}
}

// TestManager_EndIsTerminal tests that a closed session rejects further
// mutation and records its completion reason durably.
func TestManager_EndIsTerminal(t *testing.T) {
	m, store := newTestManager(t)
	if _, err := m.Start(""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.End(shiftlib.ReasonTokenExhausted); err != nil {
		t.Fatalf("end: %v", err)
	}

	if err := m.RecordCompletion("t1", shiftlib.StatusCompleted, 1); !errors.Is(err, shiftlib.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := m.End(shiftlib.ReasonQueueComplete); !errors.Is(err, shiftlib.ErrSessionClosed) {
		t.Fatalf("second End: expected ErrSessionClosed, got %v", err)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if persisted.Open() || persisted.CompletionReason != shiftlib.ReasonTokenExhausted {
		t.Fatalf("end not persisted: %+v", persisted)
	}
}

// TestManager_ResumePointer tests the durable resume pointer round trip,
// including that a restart sees the pointer.
func TestManager_ResumePointer(t *testing.T) {
	m, store := newTestManager(t)
	if _, err := m.Start(""); err != nil {
		t.Fatalf("start: %v", err)
	}

	next := "t-42"
	if err := m.SetNextTask(&next); err != nil {
		t.Fatalf("set next: %v", err)
	}

	m2 := NewManager(store, logger.NewNopLogger(), Config{})
	if _, err := m2.Start(""); err != nil {
		t.Fatalf("resume: %v", err)
	}
	got := m2.ResumeTaskID()
	if got == nil || *got != "t-42" {
		t.Fatalf("expected resume pointer t-42, got %v", got)
	}

	if err := m2.SetNextTask(nil); err != nil {
		t.Fatalf("clear next: %v", err)
	}
	if m2.ResumeTaskID() != nil {
		t.Fatal("expected cleared resume pointer")
	}
}

// TestFileStore_LoadMissing tests that a never-written store loads as nil
// without error.
func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStoreFS(afero.NewMemMapFs(), "/night/checkpoint.json")
	cp, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cp != nil {
		t.Fatalf("expected nil checkpoint, got %+v", cp)
	}
}
