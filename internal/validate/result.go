// Package validate certifies completed packages before they are marked
// trustworthy. Three tiers run as a strict pipeline: V0 checks the record
// shape at submission, V1 checks that execution really happened, and V2
// checks that the produced outputs conform. Narrower gates for generated
// code and citations compose into the same pipeline. Validators never
// panic and never throw: every outcome is a structured result.
package validate

import "fmt"

// Check is one named validation check with its outcome.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Report is the outcome of one validation tier: every check performed,
// every failure reported, no short-circuiting.
type Report struct {
	Checks []Check `json:"checks"`
	Passed bool    `json:"passed"`
}

// add records a check outcome. The failure message is formatted only when
// the check failed.
func (r *Report) add(name string, passed bool, failFormat string, args ...any) {
	c := Check{Name: name, Passed: passed}
	if !passed {
		c.Message = fmt.Sprintf(failFormat, args...)
	}
	r.Checks = append(r.Checks, c)
}

// finish sets the overall flag: pass only when every check passed.
func (r *Report) finish() {
	r.Passed = true
	for _, c := range r.Checks {
		if !c.Passed {
			r.Passed = false
			return
		}
	}
}

// PassRate returns passedChecks / performedChecks, 0 for an empty report.
func (r *Report) PassRate() float64 {
	if len(r.Checks) == 0 {
		return 0
	}
	passed := 0
	for _, c := range r.Checks {
		if c.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(r.Checks))
}

// Failures returns the messages of all failing checks.
func (r *Report) Failures() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, fmt.Sprintf("%s: %s", c.Name, c.Message))
		}
	}
	return out
}

// Names returns the names of all performed checks.
func (r *Report) Names() []string {
	out := make([]string, len(r.Checks))
	for i, c := range r.Checks {
		out[i] = c.Name
	}
	return out
}
