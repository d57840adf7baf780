package shiftcli

import (
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// VersionResponse mirrors the daemon's system.getVersion result.
type VersionResponse struct {
	Version string `json:"version"`
}

// RunSummary mirrors the daemon's run-level report.
type RunSummary struct {
	Total                int     `json:"total"`
	Completed            int     `json:"completed"`
	InsufficientEvidence int     `json:"insufficient_evidence"`
	Parked               int     `json:"parked"`
	Deferred             int     `json:"deferred"`
	Failed               int     `json:"failed"`
	Skipped              int     `json:"skipped"`
	SuccessRate          float64 `json:"success_rate"`
	SLATarget            float64 `json:"sla_target"`
	MetSLA               bool    `json:"met_sla"`

	Issues           map[string][]string `json:"issues,omitempty"`
	CompletionReason string              `json:"completion_reason"`
}

// SessionStatusResponse mirrors the daemon's session.status result.
type SessionStatusResponse struct {
	Checkpoint  *shiftlib.Checkpoint `json:"checkpoint"`
	RunActive   bool                 `json:"runActive"`
	LastSummary *RunSummary          `json:"lastSummary,omitempty"`
}

// QueueListResponse mirrors the daemon's queue.list result.
type QueueListResponse struct {
	Jobs []*shiftlib.JobSpec `json:"jobs"`
}

// Version returns the daemon's version.
func (c *Client) Version() (*VersionResponse, error) {
	return invoke[VersionResponse](c, "system.getVersion", nil)
}

// SessionStatus returns the current checkpoint and run state.
func (c *Client) SessionStatus() (*SessionStatusResponse, error) {
	return invoke[SessionStatusResponse](c, "session.status", nil)
}

// QueueList returns the pending jobs in dispatch order.
func (c *Client) QueueList() (*QueueListResponse, error) {
	return invoke[QueueListResponse](c, "queue.list", nil)
}

// StartRun opens a run window immediately.
func (c *Client) StartRun() error {
	_, err := c.call("run.start", nil)
	return err
}

// StopDaemon requests a graceful daemon shutdown.
func (c *Client) StopDaemon() error {
	_, err := c.call("daemon.stop", nil)
	return err
}
