package shiftlib

import "time"

// TaskStatus is the per-task outcome recorded in a session checkpoint.
type TaskStatus string

const (
	StatusCompleted TaskStatus = "completed"
	StatusDeferred  TaskStatus = "deferred"
	StatusFailed    TaskStatus = "failed"
)

// CompletionReason explains why a session closed.
type CompletionReason string

const (
	// ReasonTokenExhausted means the session hit its token ceiling and
	// handed the remaining queue to a future session.
	ReasonTokenExhausted CompletionReason = "token_exhausted"
	// ReasonQueueComplete means the queue drained before the budget did.
	ReasonQueueComplete CompletionReason = "queue_complete"
	// ReasonError means the session was closed by an unrecoverable error.
	ReasonError CompletionReason = "error"
)

// Checkpoint is the resumable state of one execution window. Exactly one
// checkpoint is open (SessionEnd nil) at a time; it is owned exclusively by
// the session manager and persisted after every task so that a process
// restart loses at most the in-flight task.
type Checkpoint struct {
	// SessionID is the unique identifier of the execution window.
	SessionID string `json:"session_id"`
	// SessionStart is the time the session was created.
	SessionStart time.Time `json:"session_start"`
	// SessionEnd is nil while the session is open.
	SessionEnd *time.Time `json:"session_end"`
	// TasksCompleted lists task ids that ran to completion, in order.
	TasksCompleted []string `json:"tasks_completed"`
	// TasksDeferred lists task ids skipped by admission control, in order.
	TasksDeferred []string `json:"tasks_deferred"`
	// TasksFailed lists task ids whose dispatch failed, in order.
	TasksFailed []string `json:"tasks_failed"`
	// TokenBudgetUsed is the number of tokens spent so far.
	TokenBudgetUsed int64 `json:"token_budget_used"`
	// TokenBudgetRemaining is the number of tokens left in the window.
	TokenBudgetRemaining int64 `json:"token_budget_remaining"`
	// NextTaskID is the durable resume pointer, nil when none is set.
	NextTaskID *string `json:"next_task_id"`
	// CompletionReason is set when the session closes.
	CompletionReason CompletionReason `json:"completion_reason,omitempty"`
}

// InitialBudget returns the token budget the session started with.
func (c *Checkpoint) InitialBudget() int64 {
	return c.TokenBudgetUsed + c.TokenBudgetRemaining
}

// RemainingRatio returns the fraction of the budget still unspent.
func (c *Checkpoint) RemainingRatio() float64 {
	initial := c.InitialBudget()
	if initial <= 0 {
		return 0
	}
	return float64(c.TokenBudgetRemaining) / float64(initial)
}

// Open reports whether the session is still open.
func (c *Checkpoint) Open() bool {
	return c.SessionEnd == nil
}

// Processed reports whether the task id already appears in any of the
// checkpoint's outcome lists.
func (c *Checkpoint) Processed(taskID string) bool {
	for _, list := range [][]string{c.TasksCompleted, c.TasksDeferred, c.TasksFailed} {
		for _, id := range list {
			if id == taskID {
				return true
			}
		}
	}
	return false
}
