// Package classify assigns raw task records a workload class and job type,
// and assembles the immutable scheduler-facing job spec consumed by the
// backend. Classification errs conservative: anything unrecognized is
// demanding so an unknown-risk job is never silently admitted into the
// cheap lane.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// compositeOutputCount is the expected-output count at which a throughput
// task stops being a single cheap artifact and becomes a composite job.
const compositeOutputCount = 3

// Classifier inspects task records. The filesystem is consulted only to
// locate input material when building job specs.
type Classifier struct {
	fs afero.Fs
	// InputDir is where producers drop source material, keyed by task id.
	InputDir string
	// OutputDir is where the backend writes artifacts.
	OutputDir string
}

// New creates a classifier over the real filesystem.
func New(inputDir, outputDir string) *Classifier {
	return NewFS(afero.NewOsFs(), inputDir, outputDir)
}

// NewFS creates a classifier over the given filesystem.
func NewFS(fs afero.Fs, inputDir, outputDir string) *Classifier {
	return &Classifier{fs: fs, InputDir: inputDir, OutputDir: outputDir}
}

// Classify assigns the workload class. Development tasks are always
// demanding (unbounded code-generation risk). Throughput tasks with
// exactly one text-like output are standard; with three or more outputs
// they are composite and demanding. Remaining throughput and all
// maintenance tasks are standard. Anything else is demanding.
func (c *Classifier) Classify(t *shiftlib.Task) shiftlib.WorkloadClass {
	switch t.Type {
	case shiftlib.TaskDevelopment:
		return shiftlib.ClassDemanding
	case shiftlib.TaskThroughput:
		if len(t.ExpectedOutputs) == 1 && textLikeOutput(t.ExpectedOutputs[0]) {
			return shiftlib.ClassStandard
		}
		if len(t.ExpectedOutputs) >= compositeOutputCount {
			return shiftlib.ClassDemanding
		}
		return shiftlib.ClassStandard
	case shiftlib.TaskMaintenance:
		return shiftlib.ClassStandard
	default:
		return shiftlib.ClassDemanding
	}
}

// MapJobType assigns the job type the backend dispatches on.
func (c *Classifier) MapJobType(t *shiftlib.Task) shiftlib.JobType {
	switch t.Type {
	case shiftlib.TaskThroughput:
		if len(t.ExpectedOutputs) >= compositeOutputCount {
			return shiftlib.JobResearchReport
		}
		return shiftlib.JobSummary
	case shiftlib.TaskDevelopment:
		return shiftlib.JobCodeStub
	case shiftlib.TaskMaintenance:
		return shiftlib.JobSummary
	default:
		return shiftlib.JobSummary
	}
}

// BuildJobSpec assembles the immutable job spec for a task: the located
// (or stubbed) input file and the declared outputs mapped to content
// kinds. A task declaring no outputs gets one default markdown output.
func (c *Classifier) BuildJobSpec(t *shiftlib.Task) (*shiftlib.JobSpec, error) {
	if t.TaskID == "" {
		return nil, shiftlib.ErrTaskIDMissing
	}

	spec := &shiftlib.JobSpec{
		JobID:                 t.TaskID,
		Type:                  c.MapJobType(t),
		Class:                 c.Classify(t),
		Priority:              t.Priority,
		EstimatedDurationSec:  t.EstimatedDurationSec(),
		ThermalSafetyRequired: t.ThermalSafetyRequired,
		Inputs:                []shiftlib.JobInput{c.locateInput(t.TaskID)},
	}

	if len(t.ExpectedOutputs) == 0 {
		spec.Outputs = []shiftlib.JobOutput{{
			Kind: shiftlib.OutputMarkdown,
			Path: filepath.Join(c.OutputDir, t.TaskID+".md"),
		}}
		return spec, nil
	}

	for _, out := range t.ExpectedOutputs {
		spec.Outputs = append(spec.Outputs, shiftlib.JobOutput{
			Kind: shiftlib.KindForOutput(out.Name),
			Path: filepath.Join(c.OutputDir, out.Name),
		})
	}
	return spec, nil
}

// locateInput finds the source material for a task, preferring real files
// dropped by the producer. When nothing is found a stub path is recorded
// so the backend can report the gap instead of the scheduler guessing.
func (c *Classifier) locateInput(taskID string) shiftlib.JobInput {
	for _, ext := range []string{".md", ".txt", ".json"} {
		p := filepath.Join(c.InputDir, taskID+ext)
		if ok, err := afero.Exists(c.fs, p); err == nil && ok {
			return shiftlib.JobInput{Path: p}
		}
	}
	return shiftlib.JobInput{
		Path: filepath.Join(c.InputDir, fmt.Sprintf("%s.md", taskID)),
		Stub: true,
	}
}

// textLikeOutput reports whether the descriptor names a plain-text
// artifact (markdown or text).
func textLikeOutput(o shiftlib.OutputDescriptor) bool {
	switch strings.ToLower(filepath.Ext(o.Name)) {
	case ".md", ".txt", "":
		return true
	default:
		return false
	}
}
