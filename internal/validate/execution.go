package validate

import (
	"github.com/nightshift-run/nightshift/internal/pkgstore"
)

// minStatusHistory is the history length proving a real state progression
// rather than a single jump into completed.
const minStatusHistory = 2

// ExecutionValidator runs the V1 tier: did execution genuinely happen for
// this package.
type ExecutionValidator struct {
	store pkgstore.Store
}

// NewExecutionValidator creates the V1 validator over the package store.
func NewExecutionValidator(store pkgstore.Store) *ExecutionValidator {
	return &ExecutionValidator{store: store}
}

// Validate performs the V1 checks. All checks run and all failures are
// reported individually; the overall flag requires every check to pass.
func (v *ExecutionValidator) Validate(pkgID string) (*Report, error) {
	p, err := v.store.Get(pkgID)
	if err != nil {
		return nil, err
	}

	var r Report

	r.add("status_completed", p.Status == pkgstore.StatusCompleted,
		"package status is %q, want %q", p.Status, pkgstore.StatusCompleted)

	// An error key alongside a completion timestamp means the backend
	// recorded a failure and something still marked the run complete.
	errWithCompletion := p.Metadata.Error != "" && p.Metadata.ExecutionCompletedAt != nil
	r.add("no_error_recorded", !errWithCompletion,
		"error %q recorded despite execution_completed_at being set", p.Metadata.Error)

	r.add("outputs_listed", len(p.Metadata.OutputsGenerated) >= 1,
		"no outputs listed in package metadata")

	r.add("status_progression", len(p.Metadata.StatusHistory) >= minStatusHistory,
		"status history has %d entries, want at least %d", len(p.Metadata.StatusHistory), minStatusHistory)

	r.finish()
	return &r, nil
}
