package scheduler

import "time"

// WindowEvent is one pending run window. Events live only in the heap;
// the daemon rebuilds them from configuration on restart, so nothing is
// persisted here.
type WindowEvent struct {
	// WindowID names the run window to open at TriggerAt.
	WindowID string
	// TriggerAt is when the window opens.
	TriggerAt time.Time
	// CronExpr recurs the window. Left empty the window fires once and
	// is not re-armed.
	CronExpr string
}
