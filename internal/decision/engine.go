// Package decision implements the admission-control rules for the
// overnight scheduler: model selection, memory estimation, thermal gating,
// business-hours deferral, and the composite can-proceed check. Every
// function is pure over its explicit inputs; live readings are supplied
// by the caller.
package decision

import (
	"fmt"
	"time"

	"github.com/nightshift-run/nightshift/internal/pkgstore"
)

// Default rule thresholds. All of them are configuration points on Config;
// these are the values the production daemon ships with.
const (
	DEF_THERMAL_WARNING_C  = 75.0
	DEF_THERMAL_UNSAFE_C   = 80.0
	DEF_THERMAL_CRITICAL_C = 85.0

	DEF_SAFE_MEMORY_GB = 3.0

	DEF_BUSINESS_START_HOUR = 6
	DEF_BUSINESS_END_HOUR   = 19

	// Model-selection breakpoints.
	defModelMinMemGB     = 2.0
	defModelLongJobSec   = 1800.0
	defModelLongJobMemGB = 2.5
	defQualityMinMemGB   = 2.5
)

// Model identifies an inference model tier.
type Model string

const (
	// ModelTiny is the smallest tier, the conservative default.
	ModelTiny Model = "tiny"
	// ModelBase is the quality tier, selected only with memory headroom.
	ModelBase Model = "base"
)

// memCoeff is the linear memory model for one tier:
// estimate = base + perMinute * minutes.
type memCoeff struct {
	base      float64
	perMinute float64
}

var memCoeffs = map[Model]memCoeff{
	ModelTiny: {base: 0.9, perMinute: 0.015},
	ModelBase: {base: 1.6, perMinute: 0.02},
}

// conservativeCoeff is used for unknown model tiers: the largest
// coefficients so an unrecognized model is never under-budgeted.
var conservativeCoeff = memCoeff{base: 2.0, perMinute: 0.04}

// Level classifies a thermal reading.
type Level string

const (
	LevelSafe     Level = "SAFE"
	LevelWarning  Level = "WARNING"
	LevelUnsafe   Level = "UNSAFE"
	LevelCritical Level = "CRITICAL"
)

// Tier is a validation tier selected by package status.
type Tier string

const (
	TierV0 Tier = "V0"
	TierV1 Tier = "V1"
	TierV2 Tier = "V2"
)

// Config holds the rule thresholds. Zero fields take the DEF_ values.
type Config struct {
	ThermalWarningC  float64
	ThermalUnsafeC   float64
	ThermalCriticalC float64

	SafeMemoryCeilingGB float64

	BusinessStartHour int
	BusinessEndHour   int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		ThermalWarningC:     DEF_THERMAL_WARNING_C,
		ThermalUnsafeC:      DEF_THERMAL_UNSAFE_C,
		ThermalCriticalC:    DEF_THERMAL_CRITICAL_C,
		SafeMemoryCeilingGB: DEF_SAFE_MEMORY_GB,
		BusinessStartHour:   DEF_BUSINESS_START_HOUR,
		BusinessEndHour:     DEF_BUSINESS_END_HOUR,
	}
}

// Engine evaluates the admission rules. It holds thresholds only, never
// live machine state.
type Engine struct {
	cfg Config
}

// New creates an engine, filling zero Config fields with defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ThermalWarningC == 0 {
		cfg.ThermalWarningC = def.ThermalWarningC
	}
	if cfg.ThermalUnsafeC == 0 {
		cfg.ThermalUnsafeC = def.ThermalUnsafeC
	}
	if cfg.ThermalCriticalC == 0 {
		cfg.ThermalCriticalC = def.ThermalCriticalC
	}
	if cfg.SafeMemoryCeilingGB == 0 {
		cfg.SafeMemoryCeilingGB = def.SafeMemoryCeilingGB
	}
	if cfg.BusinessStartHour == 0 {
		cfg.BusinessStartHour = def.BusinessStartHour
	}
	if cfg.BusinessEndHour == 0 {
		cfg.BusinessEndHour = def.BusinessEndHour
	}
	return &Engine{cfg: cfg}
}

// SelectModel picks a model tier for a job. First matching rule wins:
// low memory forces the smallest tier, long jobs without headroom force
// the smallest tier, quality preference with headroom gets the base tier,
// and everything else falls back to the smallest tier.
func (e *Engine) SelectModel(durationSec, availMemGB float64, preferQuality bool) Model {
	switch {
	case availMemGB < defModelMinMemGB:
		return ModelTiny
	case durationSec > defModelLongJobSec && availMemGB < defModelLongJobMemGB:
		return ModelTiny
	case preferQuality && availMemGB >= defQualityMinMemGB:
		return ModelBase
	default:
		return ModelTiny
	}
}

// ThermalSafety classifies a CPU temperature. WARNING is still safe but
// flagged; UNSAFE and CRITICAL block dispatch. Callers must treat a
// missing temperature as unsafe rather than calling this with a guess.
func (e *Engine) ThermalSafety(cpuTempC float64) (safe bool, level Level, msg string) {
	switch {
	case cpuTempC >= e.cfg.ThermalCriticalC:
		return false, LevelCritical, fmt.Sprintf("cpu at %.1f°C, at or above critical threshold %.1f°C", cpuTempC, e.cfg.ThermalCriticalC)
	case cpuTempC >= e.cfg.ThermalUnsafeC:
		return false, LevelUnsafe, fmt.Sprintf("cpu at %.1f°C, at or above unsafe threshold %.1f°C", cpuTempC, e.cfg.ThermalUnsafeC)
	case cpuTempC >= e.cfg.ThermalWarningC:
		return true, LevelWarning, fmt.Sprintf("cpu at %.1f°C, running warm", cpuTempC)
	default:
		return true, LevelSafe, ""
	}
}

// SelectValidationLevel maps a package status to the validation tier to
// run. Unrecognized statuses fall back to V0 so validation is never
// skipped.
func (e *Engine) SelectValidationLevel(status pkgstore.Status) Tier {
	switch status {
	case pkgstore.StatusDraft, pkgstore.StatusReady:
		return TierV0
	case pkgstore.StatusCompleted:
		return TierV1
	case pkgstore.StatusOutputsIngested:
		return TierV2
	default:
		return TierV0
	}
}

// ShouldDeferForBusinessHours reports whether now falls inside the hard
// exclusion window (weekdays, start hour inclusive to end hour exclusive).
// No job may be dispatched inside the window regardless of priority.
func (e *Engine) ShouldDeferForBusinessHours(now time.Time) (deferDispatch bool, reason string) {
	wd := now.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false, ""
	}
	h := now.Hour()
	if h >= e.cfg.BusinessStartHour && h < e.cfg.BusinessEndHour {
		return true, fmt.Sprintf("inside business hours (%02d:00-%02d:00 %s)",
			e.cfg.BusinessStartHour, e.cfg.BusinessEndHour, wd)
	}
	return false, ""
}

// EstimateMemoryGB applies the linear per-tier memory model. Unknown
// tiers use the most conservative coefficients.
func (e *Engine) EstimateMemoryGB(durationSec float64, m Model) float64 {
	c, ok := memCoeffs[m]
	if !ok {
		c = conservativeCoeff
	}
	return c.base + c.perMinute*(durationSec/60)
}

// Decision is the result of the composite admission check. Issues lists
// every failing check, not just the first, so deferral diagnostics are
// complete for logging and human review.
type Decision struct {
	OK     bool
	Issues []string
	Info   map[string]string
}

// CanProceed composes thermal safety, business-hours deferral, and memory
// headroom into one dispatch decision. A nil cpuTempC means the sensor is
// unavailable and is treated as unsafe.
func (e *Engine) CanProceed(durationSec, availMemGB float64, cpuTempC *float64, now time.Time) Decision {
	d := Decision{Info: make(map[string]string)}

	if cpuTempC == nil {
		d.Issues = append(d.Issues, "cpu temperature unavailable; unknown thermal state is unsafe")
		d.Info["thermal_level"] = string(LevelUnsafe)
	} else {
		safe, level, msg := e.ThermalSafety(*cpuTempC)
		d.Info["thermal_level"] = string(level)
		if !safe {
			d.Issues = append(d.Issues, msg)
		} else if level == LevelWarning {
			d.Info["thermal_note"] = msg
		}
	}

	if deferDispatch, reason := e.ShouldDeferForBusinessHours(now); deferDispatch {
		d.Issues = append(d.Issues, reason)
	}

	model := e.SelectModel(durationSec, availMemGB, false)
	est := e.EstimateMemoryGB(durationSec, model)
	d.Info["model"] = string(model)
	d.Info["estimated_mem_gb"] = fmt.Sprintf("%.2f", est)
	if est > availMemGB {
		d.Issues = append(d.Issues, fmt.Sprintf("estimated memory %.2fGB exceeds available %.2fGB", est, availMemGB))
	}
	if est > e.cfg.SafeMemoryCeilingGB {
		d.Issues = append(d.Issues, fmt.Sprintf("estimated memory %.2fGB exceeds safe ceiling %.2fGB", est, e.cfg.SafeMemoryCeilingGB))
	}

	d.OK = len(d.Issues) == 0
	return d
}
