package validate

import (
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// SchemaResult is the V0 outcome: structural pass/fail with the offending
// fields listed. V0 is the precondition for a task ever entering the
// queue; it runs at submission time.
type SchemaResult struct {
	Passed        bool     `json:"passed"`
	MissingFields []string `json:"missing_fields,omitempty"`
	InvalidFields []string `json:"invalid_fields,omitempty"`
}

// ValidateTaskSchema performs the V0 structural check on a task record.
func ValidateTaskSchema(t *shiftlib.Task) SchemaResult {
	var res SchemaResult

	if t.TaskID == "" {
		res.MissingFields = append(res.MissingFields, "task_id")
	}

	switch t.Type {
	case shiftlib.TaskThroughput, shiftlib.TaskDevelopment, shiftlib.TaskMaintenance, shiftlib.TaskUnknown:
	case "":
		res.MissingFields = append(res.MissingFields, "task_type")
	default:
		res.InvalidFields = append(res.InvalidFields, "task_type")
	}

	if t.EstimatedDurationMinutes < 0 {
		res.InvalidFields = append(res.InvalidFields, "estimated_duration_minutes")
	}

	if t.Priority != 0 && (t.Priority < shiftlib.PriorityCritical || t.Priority > shiftlib.PriorityBatch) {
		res.InvalidFields = append(res.InvalidFields, "priority")
	}

	for _, out := range t.ExpectedOutputs {
		if out.Name == "" {
			res.InvalidFields = append(res.InvalidFields, "expected_outputs")
			break
		}
	}

	res.Passed = len(res.MissingFields) == 0 && len(res.InvalidFields) == 0
	return res
}
