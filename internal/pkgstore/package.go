// Package pkgstore persists job packages and drives their lifecycle.
// The scheduler core only issues status transitions and appends metadata;
// it never deletes metadata keys and never regresses a terminal status.
package pkgstore

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a package.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusReady           Status = "ready"
	StatusSubmitted       Status = "submitted"
	StatusAccepted        Status = "accepted"
	StatusQueued          Status = "queued"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusOutputsIngested Status = "outputs_ingested"
	StatusValidated       Status = "validated"
	StatusClosed          Status = "closed"
	StatusFailed          Status = "failed"
	StatusBlocked         Status = "blocked"
)

// statusRank orders the forward lifecycle chain. failed and blocked sit
// outside the chain.
var statusRank = map[Status]int{
	StatusDraft:           0,
	StatusReady:           1,
	StatusSubmitted:       2,
	StatusAccepted:        3,
	StatusQueued:          4,
	StatusRunning:         5,
	StatusCompleted:       6,
	StatusOutputsIngested: 7,
	StatusValidated:       8,
	StatusClosed:          9,
}

// Terminal reports whether s is a terminal status that must never be
// regressed by the core.
func (s Status) Terminal() bool {
	return s == StatusValidated || s == StatusClosed
}

// CanTransition reports whether the core may move a package from one
// status to another. Forward moves along the chain are allowed; failed and
// blocked are reachable from any non-terminal state; failed and blocked
// packages may be re-queued. Terminal states only move forward (validated
// to closed).
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if from.Terminal() && to != StatusClosed {
		return false
	}
	if to == StatusFailed || to == StatusBlocked {
		return !from.Terminal()
	}
	fromRank, fromOK := statusRank[from]
	toRank, toOK := statusRank[to]
	if !toOK {
		return false
	}
	if !fromOK {
		// Re-admission path out of failed/blocked.
		return !to.Terminal()
	}
	return toRank > fromRank
}

// StatusChange is one entry in a package's status history.
type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// ValidationRecord is one persisted validation outcome. Records accumulate
// per tier; earlier records are never overwritten.
type ValidationRecord struct {
	Passed   bool      `json:"passed"`
	PassRate float64   `json:"pass_rate"`
	Checks   []string  `json:"checks,omitempty"`
	Failures []string  `json:"failures,omitempty"`
	At       time.Time `json:"at"`
}

// Metadata is the package's accumulating metadata envelope. The fields the
// core reads are typed; everything else producers attach rides in Extra.
type Metadata struct {
	// StatusHistory records every transition, oldest first.
	StatusHistory []StatusChange `json:"status_history,omitempty"`
	// Error is set by the backend when execution failed.
	Error string `json:"error,omitempty"`
	// ExecutionCompletedAt is set by the backend on completion.
	ExecutionCompletedAt *time.Time `json:"execution_completed_at,omitempty"`
	// OutputsGenerated lists the artifact paths the backend produced.
	OutputsGenerated []string `json:"outputs_generated,omitempty"`
	// ClaimsExtracted counts claims found in the outputs.
	ClaimsExtracted int `json:"claims_extracted,omitempty"`
	// EntitiesFound counts entities found in the outputs.
	EntitiesFound int `json:"entities_found,omitempty"`
	// V1Validation accumulates execution-validation results.
	V1Validation []ValidationRecord `json:"v1_validation,omitempty"`
	// V2Validation accumulates output-conformance results.
	V2Validation []ValidationRecord `json:"v2_validation,omitempty"`
	// Extra carries producer keys the core does not interpret.
	Extra map[string]json.RawMessage `json:"-"`
}

// knownMetadataKeys are the JSON keys owned by the typed fields above.
var knownMetadataKeys = []string{
	"status_history", "error", "execution_completed_at", "outputs_generated",
	"claims_extracted", "entities_found", "v1_validation", "v2_validation",
}

// metadataAlias avoids recursing into the custom JSON methods.
type metadataAlias Metadata

// MarshalJSON flattens the typed fields and Extra keys into one object.
// A typed field always wins over an Extra key of the same name.
func (m Metadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(metadataAlias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits an object into the typed fields and Extra keys.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var alias metadataAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownMetadataKeys {
		delete(raw, k)
	}
	*m = Metadata(alias)
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// MergeFrom additively merges patch into m: histories and output lists are
// appended, scalars are set when present in the patch, and Extra keys are
// added. Nothing is ever removed.
func (m *Metadata) MergeFrom(patch *Metadata) {
	if patch == nil {
		return
	}
	m.StatusHistory = append(m.StatusHistory, patch.StatusHistory...)
	m.OutputsGenerated = append(m.OutputsGenerated, patch.OutputsGenerated...)
	m.V1Validation = append(m.V1Validation, patch.V1Validation...)
	m.V2Validation = append(m.V2Validation, patch.V2Validation...)
	if patch.Error != "" {
		m.Error = patch.Error
	}
	if patch.ExecutionCompletedAt != nil {
		m.ExecutionCompletedAt = patch.ExecutionCompletedAt
	}
	if patch.ClaimsExtracted != 0 {
		m.ClaimsExtracted = patch.ClaimsExtracted
	}
	if patch.EntitiesFound != 0 {
		m.EntitiesFound = patch.EntitiesFound
	}
	for k, v := range patch.Extra {
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[k] = v
	}
}

// Package is one persisted job package row. The store owns the row; the
// core only reads it and issues updates.
type Package struct {
	ID       string   `json:"id"`
	Status   Status   `json:"status"`
	Metadata Metadata `json:"metadata"`
}
