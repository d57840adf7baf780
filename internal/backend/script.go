package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/nightshift-run/nightshift/pkg/logger"
	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// ScriptBackend hands each job to an external command. The job spec is
// written to the command's stdin as JSON and the command must print a
// Result JSON object on stdout. This is the escape hatch for sites that
// run their own execution harness instead of the OpenAI backend.
type ScriptBackend struct {
	command string
	args    []string
	log     logger.Logger

	// runCmd is swapped out by tests.
	runCmd func(ctx context.Context, stdin []byte) ([]byte, error)
}

// NewScriptBackend creates a backend driving the given command.
func NewScriptBackend(command string, args []string, log logger.Logger) *ScriptBackend {
	if log == nil {
		log = logger.NewNopLogger()
	}
	b := &ScriptBackend{command: command, args: args, log: log}
	b.runCmd = b.execute
	return b
}

// Execute serializes the spec, runs the command and parses its verdict.
// A command that exits non-zero or prints garbage yields a failed result,
// not an error, matching the OpenAI backend's contract.
func (b *ScriptBackend) Execute(ctx context.Context, spec *shiftlib.JobSpec) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode job spec: %w", err)
	}

	out, err := b.runCmd(ctx, payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.log.Warning("script backend failed for %s: %s", spec.JobID, err.Error())
		return &Result{Status: StatusFailed, Reason: err.Error()}, nil
	}

	var res Result
	if err := json.Unmarshal(bytes.TrimSpace(out), &res); err != nil {
		return &Result{
			Status: StatusFailed,
			Reason: fmt.Sprintf("unparseable script output: %s", err.Error()),
		}, nil
	}
	if res.Status == "" {
		return &Result{Status: StatusFailed, Reason: "script output missing status"}, nil
	}
	return &res, nil
}

func (b *ScriptBackend) execute(ctx context.Context, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.command, b.args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
