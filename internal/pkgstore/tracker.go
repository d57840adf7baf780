package pkgstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/nightshift-run/nightshift/pkg/logger"
)

// Tracker mirrors job outcomes into the package store. The processing loop
// reports each terminal result once; the tracker creates the package row
// on first sight and walks it through the lifecycle so the validation
// pipeline has an execution record to certify.
type Tracker struct {
	store Store
	log   logger.Logger
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Tracker{store: store, log: log}
}

// Record registers the terminal outcome of one job. outcome must be
// StatusCompleted, StatusFailed or StatusBlocked. A completed package
// rests at completed; ingestion and validation advances belong to the
// validation pipeline, which requires the completed status as its entry
// evidence.
func (t *Tracker) Record(jobID string, outcome Status, outputs []string, errMsg string) error {
	switch outcome {
	case StatusCompleted, StatusFailed, StatusBlocked:
	default:
		return fmt.Errorf("tracker: %q is not a terminal outcome", outcome)
	}

	if err := t.ensure(jobID); err != nil {
		return err
	}

	now := time.Now().UTC()
	meta := &Metadata{Error: errMsg}
	if outcome == StatusCompleted {
		meta.ExecutionCompletedAt = &now
		meta.OutputsGenerated = outputs
	}
	if err := t.store.Update(jobID, Update{Status: &outcome, Merge: meta}); err != nil {
		return fmt.Errorf("record outcome for %s: %w", jobID, err)
	}
	return nil
}

// ensure creates the package row at queued and moves it to running, so
// the history reflects the path the job actually took. An existing row is
// advanced from wherever it sits.
func (t *Tracker) ensure(jobID string) error {
	existing, err := t.store.Get(jobID)
	if errors.Is(err, ErrNotFound) {
		if err := t.store.Create(&Package{ID: jobID, Status: StatusQueued}); err != nil {
			return fmt.Errorf("create package %s: %w", jobID, err)
		}
	} else if err != nil {
		return err
	} else if existing.Status == StatusRunning {
		return nil
	}

	running := StatusRunning
	if err := t.store.Update(jobID, Update{Status: &running}); err != nil {
		t.log.Warning("package %s could not move to running: %s", jobID, err.Error())
	}
	return nil
}
