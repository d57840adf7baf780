// Package runner drives the overnight execution loop: it pulls classified
// jobs in priority order, gates each dispatch on the admission rules and
// live sensor readings, hands admitted jobs to the backend, and records
// every outcome in the session checkpoint.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/nightshift-run/nightshift/internal/backend"
	"github.com/nightshift-run/nightshift/internal/decision"
	"github.com/nightshift-run/nightshift/internal/session"
	"github.com/nightshift-run/nightshift/internal/sysinfo"
	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// DEF_SLA_TARGET is the run-level success-rate target. Missing it is
// reported, never fatal.
const DEF_SLA_TARGET = 0.85

// Config holds the processor settings. Zero fields take defaults.
type Config struct {
	SLATarget float64
	// Now is the clock used for business-hours decisions. Defaults to
	// time.Now.
	Now func() time.Time
}

// Summary is the run-level report: counts by outcome and the success rate
// measured against the SLA target.
type Summary struct {
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

	// Issues maps job ids to what kept them from completing: admission
	// denials and failure reasons.
	Issues map[string][]string `json:"issues,omitempty"`

	Reason shiftlib.CompletionReason `json:"completion_reason"`
}

func (s *Summary) addIssues(jobID string, issues []string) {
	if len(issues) == 0 {
		return
	}
	if s.Issues == nil {
		s.Issues = make(map[string][]string)
	}
	s.Issues[jobID] = append(s.Issues[jobID], issues...)
}

// Processor is the single-worker queue execution loop. Exactly one job is
// in flight at a time; the machine's thermal and memory budget is the
// scarce resource the gating exists to protect.
type Processor struct {
	engine  *decision.Engine
	gate    sysinfo.Gate
	session *session.Manager
	backend backend.JobBackend
	log     logger.Logger
	cfg     Config

	// OnResult, when set, is called after every recorded job outcome.
	// Used by the CLI for progress reporting.
	OnResult func(spec *shiftlib.JobSpec, res *backend.Result)
}

// NewProcessor assembles the loop. The session must already be started.
func NewProcessor(engine *decision.Engine, gate sysinfo.Gate, sess *session.Manager, be backend.JobBackend, log logger.Logger, cfg Config) *Processor {
	if cfg.SLATarget == 0 {
		cfg.SLATarget = DEF_SLA_TARGET
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Processor{
		engine:  engine,
		gate:    gate,
		session: sess,
		backend: be,
		log:     log,
		cfg:     cfg,
	}
}

// Run drains the queue. It returns the run summary and a non-nil error
// only when checkpoint persistence breaks; admission denials and backend
// failures are recorded outcomes, not errors. The session is always
// closed on a nil-error return.
func (p *Processor) Run(ctx context.Context, queue *shiftlib.JobQueue) (*Summary, error) {
	sum := &Summary{SLATarget: p.cfg.SLATarget}

	for {
		spec, ok := queue.Next()
		if !ok {
			sum.Reason = shiftlib.ReasonQueueComplete
			break
		}

		if cp := p.session.Checkpoint(); cp != nil && cp.Processed(spec.JobID) {
			sum.Skipped++
			continue
		}
		sum.Total++

		if err := p.session.SetNextTask(&spec.JobID); err != nil {
			return sum, err
		}

		if issues := p.admit(spec); issues != nil {
			p.log.Info("job %s deferred: %v", spec.JobID, issues)
			sum.addIssues(spec.JobID, issues)
			if err := p.session.RecordCompletion(spec.JobID, shiftlib.StatusDeferred, 0); err != nil {
				return sum, err
			}
			sum.Deferred++
			p.report(spec, &backend.Result{Status: backend.StatusDeferred})
			continue
		}

		res, err := p.backend.Execute(ctx, spec)
		if err != nil {
			// Only the dispatch plumbing itself errors here, typically
			// a canceled context during shutdown.
			if endErr := p.session.End(shiftlib.ReasonError); endErr != nil {
				return sum, endErr
			}
			sum.Reason = shiftlib.ReasonError
			return sum, err
		}

		if err := p.record(spec, res, sum); err != nil {
			return sum, err
		}
		p.report(spec, res)

		if !p.session.ShouldContinue() {
			p.log.Info("token budget exhausted, handing remaining queue to a future session")
			sum.Reason = shiftlib.ReasonTokenExhausted
			break
		}
	}

	// A budget-exhausted session must leave a valid resume pointer for
	// the session that picks up the remainder.
	var resume *string
	if sum.Reason == shiftlib.ReasonTokenExhausted {
		if remaining := queue.Snapshot(); len(remaining) > 0 {
			resume = &remaining[0].JobID
		}
	}
	if err := p.session.SetNextTask(resume); err != nil {
		return sum, err
	}
	if err := p.session.End(sum.Reason); err != nil {
		return sum, err
	}

	p.finish(sum)
	return sum, nil
}

// admit runs the composite admission check with live sensor readings and
// returns the issue list, nil when dispatch may proceed.
func (p *Processor) admit(spec *shiftlib.JobSpec) []string {
	reading := p.gate.Read()
	mem := p.gate.AvailableMemGB()
	if mem == nil {
		return []string{"available memory unknown; refusing to dispatch blind"}
	}
	d := p.engine.CanProceed(spec.EstimatedDurationSec, *mem, reading.CPUTempC, p.cfg.Now())
	if !d.OK {
		return d.Issues
	}
	// Jobs flagged thermal_safety_required sit out the warm band too;
	// they run only when the reading is fully in the safe band.
	if spec.ThermalSafetyRequired && d.Info["thermal_level"] != string(decision.LevelSafe) {
		return []string{fmt.Sprintf("job requires thermal safety and cpu is at level %s", d.Info["thermal_level"])}
	}
	return nil
}

// record maps the backend result onto the checkpoint outcome lists and
// the summary counters.
func (p *Processor) record(spec *shiftlib.JobSpec, res *backend.Result, sum *Summary) error {
	var status shiftlib.TaskStatus
	switch res.Status {
	case backend.StatusCompleted:
		status = shiftlib.StatusCompleted
		sum.Completed++
	case backend.StatusInsufficientEvidence:
		// Ran to a defensible conclusion; counted with completions.
		status = shiftlib.StatusCompleted
		sum.InsufficientEvidence++
	case backend.StatusParked:
		status = shiftlib.StatusDeferred
		sum.Parked++
	case backend.StatusDeferred:
		status = shiftlib.StatusDeferred
		sum.Deferred++
	case backend.StatusFailed:
		status = shiftlib.StatusFailed
		sum.Failed++
		p.log.Warning("job %s failed: %s", spec.JobID, res.Reason)
		if res.Reason != "" {
			sum.addIssues(spec.JobID, []string{res.Reason})
		}
	default:
		return fmt.Errorf("backend returned unknown status %q for job %s", res.Status, spec.JobID)
	}
	return p.session.RecordCompletion(spec.JobID, status, int64(res.TokensUsed))
}

func (p *Processor) report(spec *shiftlib.JobSpec, res *backend.Result) {
	if p.OnResult != nil {
		p.OnResult(spec, res)
	}
}

// finish computes the run success rate. Parked jobs are excluded from the
// processable set; insufficient-evidence outcomes count as successes.
func (p *Processor) finish(sum *Summary) {
	processable := sum.Total - sum.Parked
	if processable > 0 {
		sum.SuccessRate = float64(sum.Completed+sum.InsufficientEvidence) / float64(processable)
	}
	sum.MetSLA = processable == 0 || sum.SuccessRate >= sum.SLATarget
	if !sum.MetSLA {
		p.log.Warning("success rate %.2f below target %.2f", sum.SuccessRate, sum.SLATarget)
	}
}
