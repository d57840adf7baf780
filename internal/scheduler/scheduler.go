package scheduler

import (
	"container/heap"
	"context"
	"time"

	"github.com/adhocore/gronx"
)

const maxSleepCap = 60 * time.Second

// DEF_WINDOW_CRON opens the overnight window at 22:00 every day. The
// business-hours gate keeps daytime fires from dispatching anything, so a
// misconfigured expression degrades to a no-op run, not a daytime burn.
const DEF_WINDOW_CRON = "0 22 * * *"

// Scheduler manages run-window events using a min-heap.
// It runs a background goroutine that sleeps until the next event's
// trigger time, then calls the onOpen callback with the window id.
type Scheduler struct {
	addChan    chan WindowEvent
	removeChan chan string
	ctx        context.Context
}

// New creates and starts a new Scheduler.
// The onOpen callback is invoked when a window opens.
// The scheduler goroutine exits when ctx is cancelled.
func New(ctx context.Context, onOpen func(string)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan WindowEvent, 64),
		removeChan: make(chan string, 64),
		ctx:        ctx,
	}
	go s.run(onOpen)
	return s
}

// Add enqueues a new window event.
func (s *Scheduler) Add(event WindowEvent) {
	select {
	case s.addChan <- event:
	case <-s.ctx.Done():
	}
}

// Remove cancels a scheduled window by id.
func (s *Scheduler) Remove(windowID string) {
	select {
	case s.removeChan <- windowID:
	case <-s.ctx.Done():
	}
}

// run owns the heap and the timer. Sleeps are capped at a minute so a
// wall-clock jump is noticed promptly. A recurring window (CronExpr set)
// is re-armed at its next occurrence right after it fires.
func (s *Scheduler) run(onOpen func(string)) {
	h := &windowHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			// Nothing scheduled; wait on the control channels alone.
			return nil
		}
		next := (*h)[0].TriggerAt
		dur := time.Until(next)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event := <-s.addChan:
			heapPush(h, event)
			timerCh = resetTimer()

		case id := <-s.removeChan:
			heapRemoveByID(h, id)
			timerCh = resetTimer()

		case <-timerCh:
			// Open every window that has come due
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				event := heapPop(h)
				onOpen(event.WindowID)
				if event.CronExpr != "" {
					next, err := NextOccurrence(event.CronExpr, time.Now())
					if err == nil {
						heapPush(h, WindowEvent{
							WindowID:  event.WindowID,
							TriggerAt: next,
							CronExpr:  event.CronExpr,
						})
					}
				}
			}
			timerCh = resetTimer()
		}
	}
}

// NextOccurrence returns the next time the cron expression fires strictly
// after start. Uses gronx.NextTickAfter with inclRefTime=false.
func NextOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// ValidExpr reports whether expr is a parseable cron expression.
func ValidExpr(expr string) bool {
	return gronx.New().IsValid(expr)
}
