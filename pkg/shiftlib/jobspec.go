package shiftlib

import (
	"path/filepath"
	"strings"
)

// WorkloadClass separates cheap local work from work that must be parked
// for a more capable backend.
type WorkloadClass string

const (
	// ClassStandard jobs run on the local overnight backend.
	ClassStandard WorkloadClass = "standard"
	// ClassDemanding jobs are parked for a more capable backend.
	ClassDemanding WorkloadClass = "demanding"
)

// JobType names the kind of artifact a job produces.
type JobType string

const (
	JobSummary        JobType = "summary"
	JobResearchReport JobType = "research_report"
	JobCodeStub       JobType = "code_stub"
)

// OutputKind is the content kind of a declared job output.
type OutputKind string

const (
	OutputMarkdown OutputKind = "markdown"
	OutputJSON     OutputKind = "json"
	OutputSource   OutputKind = "source"
	OutputText     OutputKind = "text"
)

// JobInput is one input file handed to the backend.
type JobInput struct {
	Path string `json:"path"`
	// Stub is true when the input file was synthesized because no real
	// source material was located for the task.
	Stub bool `json:"stub,omitempty"`
}

// JobOutput is one artifact the backend must produce.
type JobOutput struct {
	Kind OutputKind `json:"kind"`
	Path string     `json:"path"`
}

// JobSpec is the scheduler-facing view of a Task. It is assembled once by
// the classifier and immutable thereafter.
type JobSpec struct {
	// JobID mirrors the originating task id.
	JobID string `json:"job_id"`
	// Type is the job type the backend dispatches on.
	Type JobType `json:"type"`
	// Class is the workload class assigned by the classifier.
	Class WorkloadClass `json:"class"`
	// Priority is carried over from the task record.
	Priority Priority `json:"priority"`
	// Inputs are the source files for the job.
	Inputs []JobInput `json:"inputs"`
	// Outputs are the artifacts the backend must produce.
	Outputs []JobOutput `json:"outputs"`
	// EstimatedDurationSec is the producer's runtime estimate in seconds.
	EstimatedDurationSec float64 `json:"estimated_duration_sec"`
	// ThermalSafetyRequired jobs are only dispatched while the CPU
	// reading is in the safe band, never under a thermal warning.
	ThermalSafetyRequired bool `json:"thermal_safety_required,omitempty"`
	// Metadata carries open-ended key/value annotations for the backend.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// KindForOutput maps a declared output file name to its content kind by
// extension.
func KindForOutput(name string) OutputKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return OutputMarkdown
	case ".json":
		return OutputJSON
	case ".py", ".go":
		return OutputSource
	default:
		return OutputText
	}
}
