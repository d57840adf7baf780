// Package shiftlib provides the core structures shared by the nightshift
// scheduler: task records, scheduler-facing job specs, session checkpoints,
// the priority job queue, and the retry policy used by backends.
package shiftlib

import "time"

// TaskType categorizes a raw task record by the kind of work it carries.
type TaskType string

const (
	// TaskThroughput is routine batch work (summaries, transcriptions).
	TaskThroughput TaskType = "throughput"
	// TaskDevelopment is code-generation work.
	TaskDevelopment TaskType = "development"
	// TaskMaintenance is housekeeping work (re-indexing, cleanup).
	TaskMaintenance TaskType = "maintenance"
	// TaskUnknown is anything the producer did not label.
	TaskUnknown TaskType = "unknown"
)

// Priority orders tasks in the queue. 1 is critical, 5 is background batch.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityNormal   Priority = 3
	PriorityLow      Priority = 4
	PriorityBatch    Priority = 5
)

// OutputDescriptor names one artifact a task is expected to produce.
type OutputDescriptor struct {
	// Name is the file name of the expected artifact, extension included.
	Name string `json:"name"`
	// Description is an optional free-form note from the producer.
	Description string `json:"description,omitempty"`
}

// Task is the unit of work handed to the scheduler by upstream producers.
// It is read-only to the scheduler; outcomes are recorded in the session
// checkpoint, never written back into the task record.
type Task struct {
	// TaskID is the unique identifier of the task.
	TaskID string `json:"task_id"`
	// Type is the producer-assigned task type.
	Type TaskType `json:"task_type"`
	// EstimatedDurationMinutes is the producer's runtime estimate.
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes"`
	// ExpectedOutputs lists the artifacts the task should produce, in order.
	ExpectedOutputs []OutputDescriptor `json:"expected_outputs"`
	// Priority ranks the task, 1 (critical) through 5 (batch).
	Priority Priority `json:"priority"`
	// ThermalSafetyRequired marks tasks that must never run on a hot machine.
	ThermalSafetyRequired bool `json:"thermal_safety_required"`
	// DateAdded is the time the producer enqueued the task.
	DateAdded time.Time `json:"date_added,omitempty"`
}

// EstimatedDurationSec returns the producer's estimate in seconds.
func (t *Task) EstimatedDurationSec() float64 {
	return t.EstimatedDurationMinutes * 60
}
