package cmd

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nightshift-run/nightshift/internal/daemon"
	"github.com/nightshift-run/nightshift/internal/decision"
	"github.com/nightshift-run/nightshift/internal/runner"
	"github.com/nightshift-run/nightshift/internal/scheduler"
	"github.com/nightshift-run/nightshift/internal/session"
)

const (
	DEF_PROVIDER         = "openai"
	DEF_SHUTDOWN_TIMEOUT = time.Second * 10

	DEF_TASKS_FILE = "tasks.json"
	DEF_DB_FILE    = "packages.db"
	DEF_LOG_FILE   = "nightshift.log"
	DEF_CHECKPOINT = "checkpoint.json"
	DEF_INPUT_DIR  = "inbox"
	DEF_OUTPUT_DIR = "artifacts"
)

const DESCRIPTION = `
Nightshift is an unattended batch processor for AI workloads.
It drains a queue of producer-submitted tasks overnight, one job
at a time, gated on machine thermals, available memory and a
per-session token budget, and validates every produced package
before marking it trustworthy.
`

const (
	DaemonDescription = `The daemon command starts the long-lived nightshift process.
It owns the control socket, opens run windows on the configured
cron schedule and executes processing runs.

Example:
        nightshift daemon

`
	RunDescription = `The run command starts a processing run over the imported
task queue. By default the run executes in the foreground with
a progress bar; with --via-daemon the run is handed to the
daemon, which is spawned first if absent.

Example:
        nightshift run
        nightshift run --via-daemon

`
	ResumeDescription = `The resume command continues an interrupted session from its
checkpoint. Tasks already recorded in the checkpoint are skipped
and the token budget carries over.

Example:
        nightshift resume

`
	StatusDescription = `The status command reports the current session: tasks
completed, deferred and failed, the remaining token budget and
the resume pointer. It asks the daemon first and falls back to
the checkpoint file on disk.

Example:
        nightshift status

`
	StopDescription = `The stop command asks the running daemon to shut down
gracefully.

Example:
        nightshift stop

`
	QueueDescription = `The queue command manages the task queue. "import" reads a
JSON task list, schema-checks each record and stores the
accepted tasks; "list" shows the pending queue.

Example:
        nightshift queue import tasks.json
        nightshift queue list

`
	ValidateDescription = `The validate command runs the full validation pipeline over a
stored package: the execution tier first, then output
conformance, advancing the package to validated on a full pass.

Example:
        nightshift validate pkg-2208a

`
	KeyDescription = `The key command manages API credentials. Keys are stored in
the system keyring when one is available, falling back to a
permission-restricted file under the config directory.

Example:
        nightshift key set openai sk-...
        nightshift key delete openai

`
)

// config collects everything the commands need to assemble the processing
// stack. Values come from NIGHTSHIFT_* environment variables, with a .env
// file in the config directory loaded first.
type config struct {
	ConfigDir   string
	SocketPath  string
	DBPath      string
	TasksFile   string
	Checkpoint  string
	LogFile     string
	InputDir    string
	OutputDir   string
	WindowCron  string
	BackendCmd  string
	Model       string
	BaseURL     string
	TokenBudget int64
	SLATarget   float64
	AssumeSafe  bool
}

func loadConfig() (*config, error) {
	dir := os.Getenv("NIGHTSHIFT_HOME")
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "nightshift")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	// Not finding a .env file is the common case, not an error.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := &config{
		ConfigDir:   dir,
		SocketPath:  envOr("NIGHTSHIFT_SOCKET", filepath.Join(dir, daemon.DefaultSocketName)),
		DBPath:      envOr("NIGHTSHIFT_DB", filepath.Join(dir, DEF_DB_FILE)),
		TasksFile:   envOr("NIGHTSHIFT_TASKS", filepath.Join(dir, DEF_TASKS_FILE)),
		Checkpoint:  envOr("NIGHTSHIFT_CHECKPOINT", filepath.Join(dir, DEF_CHECKPOINT)),
		LogFile:     envOr("NIGHTSHIFT_LOG", filepath.Join(dir, DEF_LOG_FILE)),
		InputDir:    envOr("NIGHTSHIFT_INPUT_DIR", filepath.Join(dir, DEF_INPUT_DIR)),
		OutputDir:   envOr("NIGHTSHIFT_OUTPUT_DIR", filepath.Join(dir, DEF_OUTPUT_DIR)),
		WindowCron:  envOr("NIGHTSHIFT_WINDOW_CRON", scheduler.DEF_WINDOW_CRON),
		BackendCmd:  os.Getenv("NIGHTSHIFT_BACKEND_CMD"),
		Model:       os.Getenv("NIGHTSHIFT_MODEL"),
		BaseURL:     os.Getenv("NIGHTSHIFT_BASE_URL"),
		TokenBudget: envInt64("NIGHTSHIFT_TOKEN_BUDGET", session.DEF_TOKEN_BUDGET),
		SLATarget:   envFloat("NIGHTSHIFT_SLA_TARGET", runner.DEF_SLA_TARGET),
		AssumeSafe:  os.Getenv("NIGHTSHIFT_ASSUME_SAFE") == "1",
	}
	return cfg, nil
}

func (c *config) decisionConfig() decision.Config {
	return decision.DefaultConfig()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
