package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestScheduler_AddAndFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	fired := make(map[string]bool)
	onOpen := func(id string) {
		mu.Lock()
		fired[id] = true
		mu.Unlock()
	}

	s := New(ctx, onOpen)

	// Schedule a window 100ms from now
	s.Add(WindowEvent{
		WindowID:  "w1",
		TriggerAt: time.Now().Add(100 * time.Millisecond),
	})

	// Wait enough time for the window to open
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !fired["w1"] {
		t.Fatal("expected w1 to fire")
	}
}

func TestScheduler_CancelBeforeFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	fired := make(map[string]bool)
	onOpen := func(id string) {
		mu.Lock()
		fired[id] = true
		mu.Unlock()
	}

	s := New(ctx, onOpen)

	// Schedule a window 2s from now (plenty of margin)
	s.Add(WindowEvent{
		WindowID:  "w2",
		TriggerAt: time.Now().Add(2 * time.Second),
	})

	// Give the goroutine time to process the add
	time.Sleep(100 * time.Millisecond)

	// Cancel it before it fires
	s.Remove("w2")

	// Give the goroutine time to process the remove
	time.Sleep(100 * time.Millisecond)

	// Wait past the trigger time
	time.Sleep(2 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	if fired["w2"] {
		t.Fatal("expected w2 NOT to fire after cancel")
	}
}

func TestScheduler_ShutdownViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	fired := make(map[string]bool)
	onOpen := func(id string) {
		mu.Lock()
		fired[id] = true
		mu.Unlock()
	}

	s := New(ctx, onOpen)

	s.Add(WindowEvent{
		WindowID:  "w3",
		TriggerAt: time.Now().Add(500 * time.Millisecond),
	})

	// Cancel context immediately
	cancel()

	// Wait past the trigger time
	time.Sleep(700 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired["w3"] {
		t.Fatal("expected w3 NOT to fire after context cancel")
	}
	_ = s // ensure scheduler is referenced
}

func TestScheduler_EmptyDoesNotFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	firedCount := 0
	onOpen := func(id string) {
		firedCount++
	}

	_ = New(ctx, onOpen)

	// Wait a bit to ensure nothing spurious fires
	time.Sleep(200 * time.Millisecond)

	if firedCount != 0 {
		t.Fatalf("expected no fires on empty scheduler, got %d", firedCount)
	}
}

func TestScheduler_MultipleEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	fired := []string{}
	onOpen := func(id string) {
		mu.Lock()
		fired = append(fired, id)
		mu.Unlock()
	}

	s := New(ctx, onOpen)

	// Schedule two windows at different times
	s.Add(WindowEvent{
		WindowID:  "first",
		TriggerAt: time.Now().Add(100 * time.Millisecond),
	})
	s.Add(WindowEvent{
		WindowID:  "second",
		TriggerAt: time.Now().Add(200 * time.Millisecond),
	})

	// Wait for both to fire
	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 2 {
		t.Fatalf("expected 2 fires, got %d", len(fired))
	}
	// First should fire before second
	if fired[0] != "first" {
		t.Errorf("expected first to fire first, got %s", fired[0])
	}
	if fired[1] != "second" {
		t.Errorf("expected second to fire second, got %s", fired[1])
	}
}

func TestScheduler_RecurringReschedules(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	count := 0
	onOpen := func(id string) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	s := New(ctx, onOpen)

	// Every-minute cron: fires once now, then re-schedules for the next
	// minute boundary without firing again within the test window.
	s.Add(WindowEvent{
		WindowID:  "nightly",
		TriggerAt: time.Now().Add(50 * time.Millisecond),
		CronExpr:  "* * * * *",
	})

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", count)
	}
}

func TestNextOccurrence(t *testing.T) {
	// Saturday 2026-08-01 10:00 UTC; next 22:00 fire is the same day.
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	next, err := NextOccurrence(DEF_WINDOW_CRON, start)
	if err != nil {
		t.Fatalf("next occurrence: %v", err)
	}
	want := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestValidExpr(t *testing.T) {
	if !ValidExpr(DEF_WINDOW_CRON) {
		t.Fatalf("default window cron %q rejected", DEF_WINDOW_CRON)
	}
	if ValidExpr("not a cron") {
		t.Fatal("nonsense expression accepted")
	}
}
