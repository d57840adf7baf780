package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/internal/backend"
	"github.com/nightshift-run/nightshift/internal/classify"
	"github.com/nightshift-run/nightshift/internal/decision"
	"github.com/nightshift-run/nightshift/internal/pkgstore"
	"github.com/nightshift-run/nightshift/internal/runner"
	"github.com/nightshift-run/nightshift/internal/session"
	"github.com/nightshift-run/nightshift/internal/sysinfo"
	"github.com/nightshift-run/nightshift/internal/validate"
	"github.com/nightshift-run/nightshift/pkg/credman"
	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// stack is the assembled processing core behind the daemon and the
// foreground run. Everything is built from one config so the daemon and
// the one-shot commands see the same state on disk.
type stack struct {
	cfg     *config
	log     logger.Logger
	store   pkgstore.Store
	tracker *pkgstore.Tracker
	sess    *session.Manager
	proc    *runner.Processor
}

// buildStack assembles the full processing stack: credential lookup,
// package store, session manager, decision engine, sensor gate, job
// backend and the queue processor wired to mirror outcomes into the
// package store.
func buildStack(cfg *config) (*stack, error) {
	log, err := logger.NewFileLogger(cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	be, err := buildBackend(cfg, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	store, err := pkgstore.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("open package store: %w", err)
	}

	sess := session.NewManager(
		session.NewFileStore(cfg.Checkpoint),
		log,
		session.Config{TokenBudget: cfg.TokenBudget},
	)

	engine := decision.New(cfg.decisionConfig())
	var gate sysinfo.Gate = sysinfo.NewSensorGate()
	if cfg.AssumeSafe {
		gate = &sysinfo.StaticGate{
			Reading: sysinfo.Reading{CPUTempC: sysinfo.Float(55)},
			MemGB:   sysinfo.Float(8),
		}
	}

	tracker := pkgstore.NewTracker(store, log)
	proc := runner.NewProcessor(engine, gate, sess, be, log, runner.Config{
		SLATarget: cfg.SLATarget,
	})
	proc.OnResult = func(spec *shiftlib.JobSpec, res *backend.Result) {
		if err := tracker.Record(spec.JobID, trackerOutcome(res), res.Outputs, res.Reason); err != nil {
			log.Warning("package tracking for %s: %s", spec.JobID, err.Error())
		}
	}

	return &stack{
		cfg:     cfg,
		log:     log,
		store:   store,
		tracker: tracker,
		sess:    sess,
		proc:    proc,
	}, nil
}

// buildBackend picks the job backend: a site-local execution harness when
// NIGHTSHIFT_BACKEND_CMD is set, the OpenAI backend otherwise. Only the
// OpenAI path needs a credential.
func buildBackend(cfg *config, log logger.Logger) (backend.JobBackend, error) {
	if parts := strings.Fields(cfg.BackendCmd); len(parts) > 0 {
		return backend.NewScriptBackend(parts[0], parts[1:], log), nil
	}

	key, err := credman.NewManager(cfg.ConfigDir).Get(DEF_PROVIDER)
	if err != nil {
		return nil, err
	}
	return backend.NewOpenAIBackend(afero.NewOsFs(), backend.Config{
		APIKey:  key,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}, log), nil
}

func (s *stack) Close() {
	s.store.Close()
	s.log.Close()
}

// trackerOutcome maps a backend result onto the package lifecycle.
// Insufficient evidence is a graceful completion; parked and deferred jobs
// are blocked, not failed, so they can be re-admitted later.
func trackerOutcome(res *backend.Result) pkgstore.Status {
	switch res.Status {
	case backend.StatusCompleted, backend.StatusInsufficientEvidence:
		return pkgstore.StatusCompleted
	case backend.StatusParked, backend.StatusDeferred:
		return pkgstore.StatusBlocked
	default:
		return pkgstore.StatusFailed
	}
}

// loadQueue reads the imported task list and builds the job queue. Tasks
// failing the schema check were rejected at import time; a second check
// here guards against hand-edited files.
func loadQueue(cfg *config, log logger.Logger) (*shiftlib.JobQueue, error) {
	specs, err := loadJobSpecs(cfg, log)
	if err != nil {
		return nil, err
	}
	queue := shiftlib.NewJobQueue()
	queue.Refill(specs)
	return queue, nil
}

// refillQueue reloads the task list from disk and replaces the queue
// contents. The daemon calls this at the start of every run window so
// tasks imported while it was up are picked up.
func refillQueue(cfg *config, log logger.Logger, queue *shiftlib.JobQueue) error {
	specs, err := loadJobSpecs(cfg, log)
	if err != nil {
		return err
	}
	queue.Refill(specs)
	return nil
}

func loadJobSpecs(cfg *config, log logger.Logger) ([]*shiftlib.JobSpec, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	tasks, err := readTasks(cfg.TasksFile)
	if err != nil {
		return nil, err
	}

	cl := classify.New(cfg.InputDir, cfg.OutputDir)
	specs := make([]*shiftlib.JobSpec, 0, len(tasks))
	for _, task := range tasks {
		if res := validate.ValidateTaskSchema(task); !res.Passed {
			log.Warning("task %s dropped from queue: missing %v, invalid %v",
				task.TaskID, res.MissingFields, res.InvalidFields)
			continue
		}
		spec, err := cl.BuildJobSpec(task)
		if err != nil {
			log.Warning("task %s dropped from queue: %s", task.TaskID, err.Error())
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func readTasks(path string) ([]*shiftlib.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task list: %w", err)
	}
	var tasks []*shiftlib.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse task list: %w", err)
	}
	return tasks, nil
}
