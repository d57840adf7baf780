package backend

import (
	"context"

	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// StubBackend returns scripted results keyed by job id. Jobs without a
// scripted result fall back to Default. Used by tests and dry runs.
type StubBackend struct {
	// Results maps job ids to their scripted outcome.
	Results map[string]*Result
	// Default is returned for unscripted jobs. Nil means completed.
	Default *Result
	// Dispatched records every job id in dispatch order.
	Dispatched []string
}

// NewStubBackend creates an empty stub.
func NewStubBackend() *StubBackend {
	return &StubBackend{Results: make(map[string]*Result)}
}

func (s *StubBackend) Execute(_ context.Context, spec *shiftlib.JobSpec) (*Result, error) {
	s.Dispatched = append(s.Dispatched, spec.JobID)
	if r, ok := s.Results[spec.JobID]; ok {
		return r, nil
	}
	if s.Default != nil {
		return s.Default, nil
	}
	return &Result{Status: StatusCompleted, Success: true}, nil
}
