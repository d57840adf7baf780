package daemon

import (
	"context"
	"net/http"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/nightshift-run/nightshift/internal/runner"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// Custom JSON-RPC error codes for the control surface.
const (
	codeNoSession = jrpc2.Code(-32001)
	codeRunActive = jrpc2.Code(-32002)
)

// rpcServer exposes the daemon over the control socket as JSON-RPC 2.0.
type rpcServer struct {
	d      *Daemon
	bridge jhttp.Bridge
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version string `json:"version"`
}

// SessionStatusResult is the response for session.status.
type SessionStatusResult struct {
	Checkpoint  *shiftlib.Checkpoint `json:"checkpoint"`
	RunActive   bool                 `json:"runActive"`
	LastSummary *runner.Summary      `json:"lastSummary,omitempty"`
}

// QueueListResult is the response for queue.list.
type QueueListResult struct {
	Jobs []*shiftlib.JobSpec `json:"jobs"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

func newRPCServer(d *Daemon) *rpcServer {
	rs := &rpcServer{d: d}
	methods := handler.Map{
		"system.getVersion": handler.New(rs.systemGetVersion),
		"session.status":    handler.New(rs.sessionStatus),
		"queue.list":        handler.New(rs.queueList),
		"run.start":         handler.New(rs.runStart),
		"daemon.stop":       handler.New(rs.daemonStop),
	}
	rs.bridge = jhttp.NewBridge(methods, nil)
	return rs
}

func (rs *rpcServer) handler() http.Handler {
	return rs.bridge
}

func (rs *rpcServer) systemGetVersion(_ context.Context) (*VersionResult, error) {
	return &VersionResult{Version: rs.d.cfg.Version}, nil
}

// sessionStatus reports the current checkpoint and run state.
func (rs *rpcServer) sessionStatus(_ context.Context) (*SessionStatusResult, error) {
	res := &SessionStatusResult{
		RunActive:   rs.d.RunActive(),
		LastSummary: rs.d.LastSummary(),
	}
	if rs.d.deps.SessionStatus != nil {
		res.Checkpoint = rs.d.deps.SessionStatus()
	}
	if res.Checkpoint == nil && res.LastSummary == nil {
		return nil, &jrpc2.Error{Code: codeNoSession, Message: "no session recorded yet"}
	}
	return res, nil
}

// queueList returns the pending jobs in dispatch order.
func (rs *rpcServer) queueList(_ context.Context) (*QueueListResult, error) {
	res := &QueueListResult{Jobs: []*shiftlib.JobSpec{}}
	if rs.d.deps.Queue != nil {
		res.Jobs = rs.d.deps.Queue.Snapshot()
	}
	return res, nil
}

// runStart opens a run window immediately.
func (rs *rpcServer) runStart(_ context.Context) (*EmptyResult, error) {
	if err := rs.d.StartRun(); err != nil {
		if err == ErrRunActive {
			return nil, &jrpc2.Error{Code: codeRunActive, Message: err.Error()}
		}
		return nil, err
	}
	return &EmptyResult{}, nil
}

// daemonStop requests a graceful daemon shutdown.
func (rs *rpcServer) daemonStop(_ context.Context) (*EmptyResult, error) {
	rs.d.Stop()
	return &EmptyResult{}, nil
}
