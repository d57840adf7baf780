// Package backend defines the job execution contract the queue processor
// dispatches against, plus the reference OpenAI-backed implementation.
// The processor never inspects how a backend works, only the result shape.
package backend

import (
	"context"

	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// ResultStatus is the terminal status of one job dispatch.
type ResultStatus string

const (
	// StatusCompleted means the job produced its outputs.
	StatusCompleted ResultStatus = "completed"
	// StatusParked means the job needs a more capable backend and was
	// set aside without consuming budget.
	StatusParked ResultStatus = "parked"
	// StatusDeferred means the backend declined the job for now.
	StatusDeferred ResultStatus = "deferred"
	// StatusInsufficientEvidence means the job ran to a defensible
	// conclusion: the source material cannot support the requested
	// output.
	StatusInsufficientEvidence ResultStatus = "insufficient_evidence"
	// StatusFailed means the dispatch errored out.
	StatusFailed ResultStatus = "failed"
)

// Result is what a backend returns for one dispatched job.
type Result struct {
	Status     ResultStatus `json:"status"`
	Success    bool         `json:"success"`
	Outputs    []string     `json:"outputs,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	TokensUsed int          `json:"tokens_used"`
}

// JobBackend executes one job at a time. Execute blocks until the job
// reaches a terminal status; a non-nil error means the dispatch itself
// broke, not that the job failed.
type JobBackend interface {
	Execute(ctx context.Context, spec *shiftlib.JobSpec) (*Result, error)
}
