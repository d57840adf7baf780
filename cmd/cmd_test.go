package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nightshift-run/nightshift/internal/backend"
	"github.com/nightshift-run/nightshift/internal/pkgstore"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

func testHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NIGHTSHIFT_HOME", dir)
	return dir
}

// TestExecute_Version tests that the version command runs without error.
func TestExecute_Version(t *testing.T) {
	testHome(t)
	err := Execute([]string{"nightshift", "version"}, BuildArgs{
		Version:   "1.2.3",
		BuildType: "test",
	})
	if err != nil {
		t.Fatalf("version: %v", err)
	}
}

// TestTemplatesNonEmpty guards against blanking the help templates.
func TestTemplatesNonEmpty(t *testing.T) {
	if len(HELP_TEMPL) == 0 || len(CMD_HELP_TEMPL) == 0 {
		t.Fatal("help templates must not be empty")
	}
}

// TestLoadConfig_EnvOverrides tests that NIGHTSHIFT_* variables win over
// the computed defaults.
func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := testHome(t)
	t.Setenv("NIGHTSHIFT_TOKEN_BUDGET", "5000")
	t.Setenv("NIGHTSHIFT_SLA_TARGET", "0.5")
	t.Setenv("NIGHTSHIFT_WINDOW_CRON", "30 21 * * *")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ConfigDir != dir {
		t.Fatalf("expected config dir %s, got %s", dir, cfg.ConfigDir)
	}
	if cfg.TokenBudget != 5000 {
		t.Fatalf("expected budget 5000, got %d", cfg.TokenBudget)
	}
	if cfg.SLATarget != 0.5 {
		t.Fatalf("expected sla 0.5, got %f", cfg.SLATarget)
	}
	if cfg.WindowCron != "30 21 * * *" {
		t.Fatalf("expected cron override, got %q", cfg.WindowCron)
	}
}

// TestLoadConfig_DotEnv tests that a .env file in the config directory is
// loaded before the defaults are computed.
func TestLoadConfig_DotEnv(t *testing.T) {
	dir := testHome(t)
	env := "NIGHTSHIFT_MODEL=gpt-4o\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Fatalf("expected model from .env, got %q", cfg.Model)
	}
}

// TestQueueImport_AcceptsAndRejects tests the import path end to end: a
// valid task lands in the stored queue, a structurally broken one is
// rejected without blocking the batch.
func TestQueueImport_AcceptsAndRejects(t *testing.T) {
	dir := testHome(t)

	tasks := []map[string]any{
		{
			"task_id":                    "task-ok",
			"task_type":                  "throughput",
			"estimated_duration_minutes": 10,
			"priority":                   3,
		},
		{
			"task_type":                  "throughput",
			"estimated_duration_minutes": 5,
		},
	}
	data, _ := json.Marshal(tasks)
	src := filepath.Join(dir, "incoming.json")
	if err := os.WriteFile(src, data, 0644); err != nil {
		t.Fatalf("write tasks: %v", err)
	}

	err := Execute([]string{"nightshift", "queue", "import", src}, BuildArgs{Version: "test"})
	if err != nil {
		t.Fatalf("queue import: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	stored, err := readTasks(cfg.TasksFile)
	if err != nil {
		t.Fatalf("read stored queue: %v", err)
	}
	if len(stored) != 1 || stored[0].TaskID != "task-ok" {
		t.Fatalf("expected only task-ok stored, got %+v", stored)
	}

	store, err := pkgstore.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	p, err := store.Get("task-ok")
	if err != nil {
		t.Fatalf("expected package row for accepted task: %v", err)
	}
	if p.Status != pkgstore.StatusQueued {
		t.Fatalf("expected queued package, got %s", p.Status)
	}
}

// TestReadTasks_BadJSON tests the error path for a corrupt task file.
func TestReadTasks_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readTasks(path); err == nil || !strings.Contains(err.Error(), "parse task list") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

// TestTrackerOutcome tests the backend-result to lifecycle mapping:
// insufficient evidence completes, parked and deferred block, errors fail.
func TestTrackerOutcome(t *testing.T) {
	cases := map[backend.ResultStatus]pkgstore.Status{
		backend.StatusCompleted:            pkgstore.StatusCompleted,
		backend.StatusInsufficientEvidence: pkgstore.StatusCompleted,
		backend.StatusParked:               pkgstore.StatusBlocked,
		backend.StatusDeferred:             pkgstore.StatusBlocked,
		backend.StatusFailed:               pkgstore.StatusFailed,
	}
	for in, want := range cases {
		if got := trackerOutcome(&backend.Result{Status: in}); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}

// TestLoadQueue_SkipsInvalid tests that a hand-edited queue file with a
// broken record still yields the valid jobs.
func TestLoadQueue_SkipsInvalid(t *testing.T) {
	dir := testHome(t)
	tasks := []*shiftlib.Task{
		{TaskID: "good", Type: shiftlib.TaskThroughput, EstimatedDurationMinutes: 5},
		{Type: shiftlib.TaskThroughput},
	}
	data, _ := json.Marshal(tasks)
	if err := os.WriteFile(filepath.Join(dir, DEF_TASKS_FILE), data, 0644); err != nil {
		t.Fatalf("write tasks: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	queue, err := loadQueue(cfg, nil)
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected 1 job, got %d", queue.Len())
	}
	if queue.Snapshot()[0].JobID != "good" {
		t.Fatalf("unexpected job %s", queue.Snapshot()[0].JobID)
	}
}

// TestRefillQueue_PicksUpNewTasks tests that a queue refilled between run
// windows reflects tasks imported after the first load, the way the daemon
// reloads before each window.
func TestRefillQueue_PicksUpNewTasks(t *testing.T) {
	dir := testHome(t)
	writeTasks := func(tasks []*shiftlib.Task) {
		t.Helper()
		data, _ := json.Marshal(tasks)
		if err := os.WriteFile(filepath.Join(dir, DEF_TASKS_FILE), data, 0644); err != nil {
			t.Fatalf("write tasks: %v", err)
		}
	}
	writeTasks([]*shiftlib.Task{
		{TaskID: "first", Type: shiftlib.TaskThroughput, EstimatedDurationMinutes: 5},
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	queue, err := loadQueue(cfg, nil)
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}
	// First window drains the queue.
	if _, ok := queue.Next(); !ok {
		t.Fatal("expected a job in the first window")
	}

	writeTasks([]*shiftlib.Task{
		{TaskID: "second", Type: shiftlib.TaskThroughput, EstimatedDurationMinutes: 5},
	})
	if err := refillQueue(cfg, nil, queue); err != nil {
		t.Fatalf("refill queue: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("expected 1 job after refill, got %d", queue.Len())
	}
	if got := queue.Snapshot()[0].JobID; got != "second" {
		t.Fatalf("expected imported job, got %s", got)
	}
}

// TestValidate_DraftPackageNotReady tests that validating a package with
// no execution record reports it as not ready instead of running V1
// against a package that cannot pass it. The package must stay untouched.
func TestValidate_DraftPackageNotReady(t *testing.T) {
	testHome(t)
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := pkgstore.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Create(&pkgstore.Package{ID: "pkg-draft", Status: pkgstore.StatusDraft}); err != nil {
		t.Fatalf("seed package: %v", err)
	}
	store.Close()

	if err := Execute([]string{"nightshift", "validate", "pkg-draft"}, BuildArgs{Version: "test"}); err != nil {
		t.Fatalf("validate: %v", err)
	}

	store, err = pkgstore.OpenSQLiteStore(cfg.DBPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	got, err := store.Get("pkg-draft")
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	if got.Status != pkgstore.StatusDraft {
		t.Fatalf("status = %s, want draft left alone", got.Status)
	}
	if len(got.Metadata.V1Validation) != 0 {
		t.Fatalf("expected no validation records, got %d", len(got.Metadata.V1Validation))
	}
}
