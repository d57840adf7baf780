package classify

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

func newTestClassifier() *Classifier {
	return NewFS(afero.NewMemMapFs(), "/night/in", "/night/out")
}

func outputs(names ...string) []shiftlib.OutputDescriptor {
	var out []shiftlib.OutputDescriptor
	for _, n := range names {
		out = append(out, shiftlib.OutputDescriptor{Name: n})
	}
	return out
}

// TestClassify_Rules tests the workload-class decision table, including
// the conservative default for unrecognized task types.
func TestClassify_Rules(t *testing.T) {
	c := newTestClassifier()

	cases := []struct {
		name string
		task shiftlib.Task
		want shiftlib.WorkloadClass
	}{
		{"development always demanding", shiftlib.Task{Type: shiftlib.TaskDevelopment, ExpectedOutputs: outputs("stub.py")}, shiftlib.ClassDemanding},
		{"throughput single text output", shiftlib.Task{Type: shiftlib.TaskThroughput, ExpectedOutputs: outputs("summary.md")}, shiftlib.ClassStandard},
		{"throughput composite", shiftlib.Task{Type: shiftlib.TaskThroughput, ExpectedOutputs: outputs("a.md", "b.json", "c.md")}, shiftlib.ClassDemanding},
		{"throughput two outputs", shiftlib.Task{Type: shiftlib.TaskThroughput, ExpectedOutputs: outputs("a.md", "b.json")}, shiftlib.ClassStandard},
		{"throughput single json output", shiftlib.Task{Type: shiftlib.TaskThroughput, ExpectedOutputs: outputs("data.json")}, shiftlib.ClassStandard},
		{"maintenance standard", shiftlib.Task{Type: shiftlib.TaskMaintenance}, shiftlib.ClassStandard},
		{"unknown demanding", shiftlib.Task{Type: shiftlib.TaskUnknown}, shiftlib.ClassDemanding},
		{"unlabeled demanding", shiftlib.Task{Type: shiftlib.TaskType("mystery")}, shiftlib.ClassDemanding},
	}
	for _, tc := range cases {
		if got := c.Classify(&tc.task); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

// TestMapJobType tests the task-type to job-type routing.
func TestMapJobType(t *testing.T) {
	c := newTestClassifier()

	cases := []struct {
		name string
		task shiftlib.Task
		want shiftlib.JobType
	}{
		{"composite throughput", shiftlib.Task{Type: shiftlib.TaskThroughput, ExpectedOutputs: outputs("a.md", "b.md", "c.md")}, shiftlib.JobResearchReport},
		{"plain throughput", shiftlib.Task{Type: shiftlib.TaskThroughput, ExpectedOutputs: outputs("a.md")}, shiftlib.JobSummary},
		{"development", shiftlib.Task{Type: shiftlib.TaskDevelopment}, shiftlib.JobCodeStub},
		{"maintenance", shiftlib.Task{Type: shiftlib.TaskMaintenance}, shiftlib.JobSummary},
		{"unknown", shiftlib.Task{Type: shiftlib.TaskUnknown}, shiftlib.JobSummary},
	}
	for _, tc := range cases {
		if got := c.MapJobType(&tc.task); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

// TestBuildJobSpec_OutputKinds tests extension-to-kind mapping for the
// declared outputs.
func TestBuildJobSpec_OutputKinds(t *testing.T) {
	c := newTestClassifier()

	spec, err := c.BuildJobSpec(&shiftlib.Task{
		TaskID:          "t-1",
		Type:            shiftlib.TaskThroughput,
		ExpectedOutputs: outputs("report.md", "claims.json", "helper.py", "raw.log"),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := []shiftlib.OutputKind{
		shiftlib.OutputMarkdown,
		shiftlib.OutputJSON,
		shiftlib.OutputSource,
		shiftlib.OutputText,
	}
	if len(spec.Outputs) != len(want) {
		t.Fatalf("expected %d outputs, got %d", len(want), len(spec.Outputs))
	}
	for i, kind := range want {
		if spec.Outputs[i].Kind != kind {
			t.Fatalf("output %d: expected kind %s, got %s", i, kind, spec.Outputs[i].Kind)
		}
	}
}

// TestBuildJobSpec_DefaultOutput tests that a task declaring no outputs
// synthesizes one markdown output.
func TestBuildJobSpec_DefaultOutput(t *testing.T) {
	c := newTestClassifier()

	spec, err := c.BuildJobSpec(&shiftlib.Task{TaskID: "t-2", Type: shiftlib.TaskThroughput})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(spec.Outputs) != 1 {
		t.Fatalf("expected 1 synthesized output, got %d", len(spec.Outputs))
	}
	if spec.Outputs[0].Kind != shiftlib.OutputMarkdown {
		t.Fatalf("expected markdown default, got %s", spec.Outputs[0].Kind)
	}
}

// TestBuildJobSpec_InputLocation tests that a real producer file is
// preferred and a stub is recorded otherwise.
func TestBuildJobSpec_InputLocation(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := NewFS(fs, "/night/in", "/night/out")

	if err := afero.WriteFile(fs, "/night/in/t-3.txt", []byte("source"), 0644); err != nil {
		t.Fatalf("seed input: %v", err)
	}

	spec, err := c.BuildJobSpec(&shiftlib.Task{TaskID: "t-3", Type: shiftlib.TaskThroughput})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if spec.Inputs[0].Stub || spec.Inputs[0].Path != "/night/in/t-3.txt" {
		t.Fatalf("expected located input, got %+v", spec.Inputs[0])
	}

	spec, err = c.BuildJobSpec(&shiftlib.Task{TaskID: "t-missing", Type: shiftlib.TaskThroughput})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !spec.Inputs[0].Stub {
		t.Fatal("expected stub input for missing source material")
	}
}

// TestBuildJobSpec_MissingID tests the error for a task without an id.
func TestBuildJobSpec_MissingID(t *testing.T) {
	c := newTestClassifier()
	if _, err := c.BuildJobSpec(&shiftlib.Task{}); err != shiftlib.ErrTaskIDMissing {
		t.Fatalf("expected ErrTaskIDMissing, got %v", err)
	}
}

// TestBuildJobSpec_CarriesThermalSafety tests that the task's thermal
// safety flag survives into the dispatched spec so admission can see it.
func TestBuildJobSpec_CarriesThermalSafety(t *testing.T) {
	c := newTestClassifier()

	spec, err := c.BuildJobSpec(&shiftlib.Task{
		TaskID:                "t-hot",
		Type:                  shiftlib.TaskThroughput,
		ThermalSafetyRequired: true,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !spec.ThermalSafetyRequired {
		t.Fatal("thermal safety flag dropped from job spec")
	}
}
