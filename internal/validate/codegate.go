package validate

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ToolRunner abstracts the external tool invocations the code gate makes
// so tests can substitute a fake.
type ToolRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools through os/exec.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// toolSet names the lint and type-check tools for one source language.
type toolSet struct {
	lint      []string
	typeCheck []string
	test      []string
	testFile  func(path string) string
}

var toolSets = map[string]toolSet{
	".py": {
		lint:      []string{"ruff", "check"},
		typeCheck: []string{"mypy", "--no-error-summary"},
		test:      []string{"pytest", "-q"},
		testFile: func(path string) string {
			dir, base := filepath.Split(path)
			return filepath.Join(dir, "test_"+base)
		},
	},
	".go": {
		lint:      []string{"gofmt", "-l"},
		typeCheck: []string{"go", "vet"},
		test:      []string{"go", "test"},
		testFile: func(path string) string {
			return strings.TrimSuffix(path, ".go") + "_test.go"
		},
	},
}

// CodeGate runs three independent quality passes over a generated source
// artifact: lint, type-check, and a test run when a matching test file
// exists. All three must pass; a missing tool is a failure, not a skip.
type CodeGate struct {
	fs     afero.Fs
	runner ToolRunner
}

// NewCodeGate creates a gate over the local filesystem and real tools.
func NewCodeGate(fs afero.Fs, runner ToolRunner) *CodeGate {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CodeGate{fs: fs, runner: runner}
}

// Check runs every pass regardless of earlier failures and reports each
// one individually.
func (g *CodeGate) Check(ctx context.Context, path string) (*Report, error) {
	ts, ok := toolSets[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("no code gate tooling for %q", filepath.Ext(path))
	}

	var r Report
	g.pass(ctx, &r, "lint", ts.lint, path)
	g.pass(ctx, &r, "type_check", ts.typeCheck, path)

	testPath := ts.testFile(path)
	if exists, _ := afero.Exists(g.fs, testPath); exists {
		g.pass(ctx, &r, "test", ts.test, testPath)
	} else {
		// No matching test file; the test pass is optional and
		// vacuously passes.
		r.add("test", true, "")
	}

	r.finish()
	return &r, nil
}

func (g *CodeGate) pass(ctx context.Context, r *Report, name string, argv []string, target string) {
	if _, err := g.runner.LookPath(argv[0]); err != nil {
		r.add(name, false, "tool %q not installed", argv[0])
		return
	}
	out, err := g.runner.Run(ctx, argv[0], append(argv[1:], target)...)
	if err != nil {
		r.add(name, false, "%s failed: %v: %s", argv[0], err, strings.TrimSpace(string(out)))
		return
	}
	// gofmt -l reports offending files on stdout with a zero exit.
	if name == "lint" && argv[0] == "gofmt" && strings.TrimSpace(string(out)) != "" {
		r.add(name, false, "gofmt wants changes in %s", strings.TrimSpace(string(out)))
		return
	}
	r.add(name, true, "")
}
