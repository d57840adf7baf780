package validate

import (
	"fmt"
	"time"

	"github.com/nightshift-run/nightshift/internal/pkgstore"
	"github.com/nightshift-run/nightshift/pkg/logger"
)

// Pipeline chains the execution and conformance tiers over the package
// store, persisting each tier's outcome as it lands.
type Pipeline struct {
	store pkgstore.Store
	v1    *ExecutionValidator
	v2    *ConformanceValidator
	log   logger.Logger
}

// PipelineResult is the outcome of a full validation pass. V2 is nil when
// V1 failed and the conformance tier never ran.
type PipelineResult struct {
	PackageID string
	V1        *Report
	V2        *Report
	Passed    bool
}

// NewPipeline assembles the full pipeline over a store.
func NewPipeline(store pkgstore.Store, v1 *ExecutionValidator, v2 *ConformanceValidator, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Pipeline{store: store, v1: v1, v2: v2, log: log}
}

// RunFull validates a package end to end: V1 first, persisted whatever the
// outcome, then V2 only on a V1 pass. Overall pass means V2 passed. A
// passing package sitting at outputs_ingested is advanced to validated.
func (p *Pipeline) RunFull(pkgID string) (*PipelineResult, error) {
	res := &PipelineResult{PackageID: pkgID}

	r1, err := p.v1.Validate(pkgID)
	if err != nil {
		return nil, fmt.Errorf("execution validation: %w", err)
	}
	res.V1 = r1
	if err := p.persist(pkgID, r1, false); err != nil {
		return nil, err
	}
	if !r1.Passed {
		p.log.Warning("package %s failed execution validation: %v", pkgID, r1.Failures())
		return res, nil
	}

	r2, err := p.v2.Validate(pkgID)
	if err != nil {
		return nil, fmt.Errorf("conformance validation: %w", err)
	}
	res.V2 = r2
	if err := p.persist(pkgID, r2, true); err != nil {
		return nil, err
	}
	res.Passed = r2.Passed
	if !r2.Passed {
		p.log.Warning("package %s failed output conformance: %v", pkgID, r2.Failures())
		return res, nil
	}

	if err := p.advance(pkgID); err != nil {
		return nil, err
	}
	p.log.Info("package %s validated", pkgID)
	return res, nil
}

// persist appends one tier's record to the package's accumulating metadata.
func (p *Pipeline) persist(pkgID string, r *Report, v2 bool) error {
	rec := pkgstore.ValidationRecord{
		Passed:   r.Passed,
		PassRate: r.PassRate(),
		Checks:   r.Names(),
		Failures: r.Failures(),
		At:       time.Now().UTC(),
	}
	var merge pkgstore.Metadata
	if v2 {
		merge.V2Validation = []pkgstore.ValidationRecord{rec}
	} else {
		merge.V1Validation = []pkgstore.ValidationRecord{rec}
	}
	if err := p.store.Update(pkgID, pkgstore.Update{Merge: &merge}); err != nil {
		return fmt.Errorf("persist validation record: %w", err)
	}
	return nil
}

// advance moves a fully validated package to the validated status. A
// package still at completed is stepped through outputs_ingested first so
// the history shows the real progression.
func (p *Pipeline) advance(pkgID string) error {
	pkg, err := p.store.Get(pkgID)
	if err != nil {
		return err
	}
	switch pkg.Status {
	case pkgstore.StatusCompleted:
		if err := p.setStatus(pkgID, pkgstore.StatusOutputsIngested); err != nil {
			return err
		}
		return p.setStatus(pkgID, pkgstore.StatusValidated)
	case pkgstore.StatusOutputsIngested:
		return p.setStatus(pkgID, pkgstore.StatusValidated)
	default:
		// Already validated or further; leave it alone.
		return nil
	}
}

func (p *Pipeline) setStatus(pkgID string, s pkgstore.Status) error {
	if err := p.store.Update(pkgID, pkgstore.Update{Status: &s}); err != nil {
		return fmt.Errorf("advance package to %s: %w", s, err)
	}
	return nil
}
