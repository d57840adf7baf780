package runner

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/internal/backend"
	"github.com/nightshift-run/nightshift/internal/decision"
	"github.com/nightshift-run/nightshift/internal/session"
	"github.com/nightshift-run/nightshift/internal/sysinfo"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// saturday eight pm, well outside business hours.
var offHours = time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)

func coolGate() *sysinfo.StaticGate {
	return &sysinfo.StaticGate{
		Reading: sysinfo.Reading{CPUTempC: sysinfo.Float(62)},
		MemGB:   sysinfo.Float(8),
	}
}

func newSession(t *testing.T, budget int64) *session.Manager {
	t.Helper()
	fs := afero.NewMemMapFs()
	m := session.NewManager(session.NewFileStoreFS(fs, "/state/checkpoint.json"), nil,
		session.Config{TokenBudget: budget})
	if _, err := m.Start(""); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return m
}

func job(id string, durationSec float64) *shiftlib.JobSpec {
	return &shiftlib.JobSpec{
		JobID:                id,
		Type:                 shiftlib.JobSummary,
		Class:                shiftlib.ClassStandard,
		Priority:             shiftlib.PriorityNormal,
		EstimatedDurationSec: durationSec,
	}
}

func queueOf(specs ...*shiftlib.JobSpec) *shiftlib.JobQueue {
	q := shiftlib.NewJobQueue()
	for _, s := range specs {
		q.Add(s)
	}
	return q
}

func newProcessor(sess *session.Manager, gate sysinfo.Gate, be backend.JobBackend) *Processor {
	return NewProcessor(decision.New(decision.DefaultConfig()), gate, sess, be, nil,
		Config{Now: func() time.Time { return offHours }})
}

// TestProcessor_DrainsQueue checks the happy path: every job completes,
// the session closes with queue_complete, and the SLA is met.
func TestProcessor_DrainsQueue(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	be.Default = &backend.Result{Status: backend.StatusCompleted, Success: true, TokensUsed: 1000}

	sum, err := newProcessor(sess, coolGate(), be).Run(context.Background(),
		queueOf(job("a", 600), job("b", 600), job("c", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Completed != 3 || sum.SuccessRate != 1.0 || !sum.MetSLA {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Reason != shiftlib.ReasonQueueComplete {
		t.Fatalf("reason = %s, want queue_complete", sum.Reason)
	}

	cp := sess.Checkpoint()
	if cp.Open() {
		t.Fatal("session still open after drain")
	}
	if cp.CompletionReason != shiftlib.ReasonQueueComplete {
		t.Fatalf("checkpoint reason = %s", cp.CompletionReason)
	}
	if cp.NextTaskID != nil {
		t.Fatalf("resume pointer = %v, want nil after a drained queue", *cp.NextTaskID)
	}
	if cp.TokenBudgetUsed != 3000 {
		t.Fatalf("tokens used = %d, want 3000", cp.TokenBudgetUsed)
	}
}

// TestProcessor_DefersOnHotCPU checks that admission denial records a
// deferred outcome without dispatching or spending budget.
func TestProcessor_DefersOnHotCPU(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	gate := &sysinfo.StaticGate{
		Reading: sysinfo.Reading{CPUTempC: sysinfo.Float(88)},
		MemGB:   sysinfo.Float(8),
	}

	sum, err := newProcessor(sess, gate, be).Run(context.Background(), queueOf(job("hot", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Deferred != 1 || sum.Completed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(be.Dispatched) != 0 {
		t.Fatalf("backend dispatched %v during a thermal deferral", be.Dispatched)
	}
	if used := sess.Checkpoint().TokenBudgetUsed; used != 0 {
		t.Fatalf("tokens used = %d, want 0 for a deferral", used)
	}
	if len(sum.Issues["hot"]) == 0 {
		t.Fatalf("expected admission issues retained for job, got %+v", sum.Issues)
	}
}

// TestProcessor_MissingSensorDefers checks that an absent temperature
// reading is treated as unsafe rather than admitted by default.
func TestProcessor_MissingSensorDefers(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	gate := &sysinfo.StaticGate{MemGB: sysinfo.Float(8)}

	sum, err := newProcessor(sess, gate, be).Run(context.Background(), queueOf(job("blind", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Deferred != 1 || len(be.Dispatched) != 0 {
		t.Fatalf("summary = %+v, dispatched = %v", sum, be.Dispatched)
	}
}

// TestProcessor_StopsOnTokenExhaustion checks that the loop stops
// mid-queue when the budget runs dry, closes with token_exhausted and
// leaves the resume pointer at the first unprocessed job.
func TestProcessor_StopsOnTokenExhaustion(t *testing.T) {
	sess := newSession(t, 10_000)
	be := backend.NewStubBackend()
	be.Default = &backend.Result{Status: backend.StatusCompleted, Success: true, TokensUsed: 9800}

	sum, err := newProcessor(sess, coolGate(), be).Run(context.Background(),
		queueOf(job("first", 600), job("second", 600), job("third", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Reason != shiftlib.ReasonTokenExhausted {
		t.Fatalf("reason = %s, want token_exhausted", sum.Reason)
	}
	if sum.Completed != 1 {
		t.Fatalf("completed = %d, want 1", sum.Completed)
	}
	if len(be.Dispatched) != 1 {
		t.Fatalf("dispatched = %v, want only the first job", be.Dispatched)
	}

	cp := sess.Checkpoint()
	if cp.CompletionReason != shiftlib.ReasonTokenExhausted {
		t.Fatalf("completion reason = %s", cp.CompletionReason)
	}
	if cp.NextTaskID == nil || *cp.NextTaskID != "second" {
		t.Fatalf("resume pointer = %v, want second", cp.NextTaskID)
	}
}

// TestProcessor_ParkedExcludedFromSuccessRate checks that parked jobs
// leave the processable set entirely.
func TestProcessor_ParkedExcludedFromSuccessRate(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	be.Default = &backend.Result{Status: backend.StatusCompleted, Success: true, TokensUsed: 500}
	be.Results["big"] = &backend.Result{Status: backend.StatusParked}

	sum, err := newProcessor(sess, coolGate(), be).Run(context.Background(),
		queueOf(job("ok", 600), job("big", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Parked != 1 || sum.Completed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.SuccessRate != 1.0 || !sum.MetSLA {
		t.Fatalf("success rate = %v, want 1.0 with parked excluded", sum.SuccessRate)
	}
}

// TestProcessor_InsufficientEvidenceCountsAsSuccess checks the evidence
// sentinel outcome lands in the completed side of the rate.
func TestProcessor_InsufficientEvidenceCountsAsSuccess(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	be.Results["thin"] = &backend.Result{
		Status: backend.StatusInsufficientEvidence, Success: true, TokensUsed: 200,
	}

	sum, err := newProcessor(sess, coolGate(), be).Run(context.Background(), queueOf(job("thin", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.InsufficientEvidence != 1 || sum.SuccessRate != 1.0 {
		t.Fatalf("summary = %+v", sum)
	}
	cp := sess.Checkpoint()
	if len(cp.TasksCompleted) != 1 {
		t.Fatalf("checkpoint completed = %v", cp.TasksCompleted)
	}
}

// TestProcessor_SkipsProcessedTasks checks that a resumed session does
// not re-dispatch work an earlier run already recorded.
func TestProcessor_SkipsProcessedTasks(t *testing.T) {
	sess := newSession(t, 200_000)
	if err := sess.RecordCompletion("done", shiftlib.StatusCompleted, 100); err != nil {
		t.Fatal(err)
	}
	be := backend.NewStubBackend()
	be.Default = &backend.Result{Status: backend.StatusCompleted, Success: true, TokensUsed: 100}

	sum, err := newProcessor(sess, coolGate(), be).Run(context.Background(),
		queueOf(job("done", 600), job("fresh", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Skipped != 1 || sum.Completed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	for _, id := range be.Dispatched {
		if id == "done" {
			t.Fatal("re-dispatched an already processed task")
		}
	}
}

// TestProcessor_FailedJobNotFatal checks a failed dispatch is recorded
// and the loop continues.
func TestProcessor_FailedJobNotFatal(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	be.Default = &backend.Result{Status: backend.StatusCompleted, Success: true, TokensUsed: 100}
	be.Results["broken"] = &backend.Result{Status: backend.StatusFailed, Reason: "backend exploded"}

	sum, err := newProcessor(sess, coolGate(), be).Run(context.Background(),
		queueOf(job("broken", 600), job("after", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Failed != 1 || sum.Completed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.SuccessRate != 0.5 {
		t.Fatalf("success rate = %v, want 0.5", sum.SuccessRate)
	}
}

// TestProcessor_ThermalSafetyRequiredSitsOutWarmBand checks that a job
// flagged thermal_safety_required is deferred while the CPU reads warm,
// while an unflagged job in the same window still dispatches.
func TestProcessor_ThermalSafetyRequiredSitsOutWarmBand(t *testing.T) {
	sess := newSession(t, 200_000)
	be := backend.NewStubBackend()
	be.Default = &backend.Result{Status: backend.StatusCompleted, Success: true, TokensUsed: 1000}
	gate := &sysinfo.StaticGate{
		Reading: sysinfo.Reading{CPUTempC: sysinfo.Float(77)},
		MemGB:   sysinfo.Float(8),
	}

	strict := job("strict", 600)
	strict.ThermalSafetyRequired = true

	sum, err := newProcessor(sess, gate, be).Run(context.Background(),
		queueOf(strict, job("loose", 600)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Deferred != 1 || sum.Completed != 1 {
		t.Fatalf("deferred = %d completed = %d, want 1 and 1", sum.Deferred, sum.Completed)
	}
	if len(sum.Issues["strict"]) == 0 {
		t.Fatal("expected the deferral reason retained for the strict job")
	}
}
