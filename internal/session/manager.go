package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// Default session configuration values
const (
	DEF_TOKEN_BUDGET       = 200_000
	DEF_MIN_CONTINUE_RATIO = 0.05
)

// Config holds the session budget parameters. Zero fields take defaults.
type Config struct {
	// TokenBudget is the full budget a fresh session starts with.
	TokenBudget int64
	// MinContinueRatio is the remaining-budget ratio below which the
	// session must close gracefully instead of starting another task.
	MinContinueRatio float64
}

// Manager owns the checkpoint for the current session. It is the only
// writer: the queue processor mutates session state exclusively through
// it, and every mutation is persisted before control returns.
type Manager struct {
	store Store
	log   logger.Logger
	cfg   Config
	cp    *shiftlib.Checkpoint
}

// NewManager creates a session manager over the given checkpoint store.
func NewManager(store Store, log logger.Logger, cfg Config) *Manager {
	if cfg.TokenBudget == 0 {
		cfg.TokenBudget = DEF_TOKEN_BUDGET
	}
	if cfg.MinContinueRatio == 0 {
		cfg.MinContinueRatio = DEF_MIN_CONTINUE_RATIO
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{store: store, log: log, cfg: cfg}
}

// Start opens the session. If the durable store holds an open checkpoint
// it is resumed as-is: same session id, progress lists and spent budget
// preserved. Callers must not assume a fresh token budget on resume.
// Otherwise a new checkpoint is created with the full budget and persisted
// immediately. sessionID is only used for fresh sessions; empty means
// generate one.
func (m *Manager) Start(sessionID string) (*shiftlib.Checkpoint, error) {
	existing, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Open() {
		m.cp = existing
		m.log.Info("resuming session %s: %d completed, %d tokens remaining",
			existing.SessionID, len(existing.TasksCompleted), existing.TokenBudgetRemaining)
		return m.cp, nil
	}

	if sessionID == "" {
		sessionID = "ns-" + uuid.NewString()
	}
	m.cp = &shiftlib.Checkpoint{
		SessionID:            sessionID,
		SessionStart:         time.Now().UTC(),
		TasksCompleted:       []string{},
		TasksDeferred:        []string{},
		TasksFailed:          []string{},
		TokenBudgetRemaining: m.cfg.TokenBudget,
	}
	if err := m.store.Save(m.cp); err != nil {
		m.cp = nil
		return nil, fmt.Errorf("persist new session: %w", err)
	}
	m.log.Info("started session %s with %d token budget", sessionID, m.cfg.TokenBudget)
	return m.cp, nil
}

// open returns the live checkpoint or an error when no mutable session
// exists.
func (m *Manager) open() (*shiftlib.Checkpoint, error) {
	if m.cp == nil {
		return nil, shiftlib.ErrSessionNotOpen
	}
	if !m.cp.Open() {
		return nil, shiftlib.ErrSessionClosed
	}
	return m.cp, nil
}

// RecordCompletion appends the task to the outcome list matching status,
// charges tokensUsed against the budget, and persists synchronously.
// Every call is a durability checkpoint.
func (m *Manager) RecordCompletion(taskID string, status shiftlib.TaskStatus, tokensUsed int64) error {
	cp, err := m.open()
	if err != nil {
		return err
	}

	switch status {
	case shiftlib.StatusCompleted:
		cp.TasksCompleted = append(cp.TasksCompleted, taskID)
	case shiftlib.StatusDeferred:
		cp.TasksDeferred = append(cp.TasksDeferred, taskID)
	case shiftlib.StatusFailed:
		cp.TasksFailed = append(cp.TasksFailed, taskID)
	default:
		return fmt.Errorf("unknown task status %q", status)
	}

	cp.TokenBudgetUsed += tokensUsed
	cp.TokenBudgetRemaining -= tokensUsed

	if err := m.store.Save(cp); err != nil {
		return fmt.Errorf("persist task outcome: %w", err)
	}
	return nil
}

// SetNextTask establishes the durable resume pointer. nil clears it.
func (m *Manager) SetNextTask(taskID *string) error {
	cp, err := m.open()
	if err != nil {
		return err
	}
	cp.NextTaskID = taskID
	if err := m.store.Save(cp); err != nil {
		return fmt.Errorf("persist resume pointer: %w", err)
	}
	return nil
}

// ResumeTaskID returns the durable resume pointer, nil when none is set.
func (m *Manager) ResumeTaskID() *string {
	if m.cp == nil {
		return nil
	}
	return m.cp.NextTaskID
}

// ShouldContinue reports whether the session still has budget headroom.
// false is the sole trigger for graceful termination: the session must
// close cleanly rather than be killed mid-task.
func (m *Manager) ShouldContinue() bool {
	if m.cp == nil || !m.cp.Open() {
		return false
	}
	return m.cp.RemainingRatio() >= m.cfg.MinContinueRatio
}

// End closes the session with the given reason and persists the final
// checkpoint. The checkpoint is terminal afterwards: further mutation
// returns ErrSessionClosed and a new session must be started.
func (m *Manager) End(reason shiftlib.CompletionReason) error {
	cp, err := m.open()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	cp.SessionEnd = &now
	cp.CompletionReason = reason
	if err := m.store.Save(cp); err != nil {
		return fmt.Errorf("persist session end: %w", err)
	}
	m.log.Info("session %s closed: %s (%d completed, %d deferred, %d failed, %d tokens used)",
		cp.SessionID, reason, len(cp.TasksCompleted), len(cp.TasksDeferred), len(cp.TasksFailed), cp.TokenBudgetUsed)
	return nil
}

// Checkpoint returns a copy of the current checkpoint for reporting.
func (m *Manager) Checkpoint() *shiftlib.Checkpoint {
	if m.cp == nil {
		return nil
	}
	cp := *m.cp
	return &cp
}
