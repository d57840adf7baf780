// Package sysinfo reads instantaneous machine health: CPU temperature,
// load average, cooling-fan speed, and available memory. Sensor absence is
// meaningful, not an error: a missing reading is reported as a nil field
// and the decision engine treats unknown as unsafe.
package sysinfo

// Reading is one machine-health sample. Each field is nil when the
// corresponding sensor is unavailable.
type Reading struct {
	// CPUTempC is the CPU package temperature in degrees Celsius.
	CPUTempC *float64
	// LoadAvg is the 1-minute load average.
	LoadAvg *float64
	// FanRPM is the cooling fan speed.
	FanRPM *float64
}

// Gate supplies live machine-health readings to the admission loop.
type Gate interface {
	// Read samples the sensors. It never fails: unavailable sensors are
	// reported as nil fields in the returned Reading.
	Read() Reading

	// AvailableMemGB returns the memory currently available to the job
	// backend, or nil when it cannot be determined.
	AvailableMemGB() *float64
}

// Float returns a pointer to v. Convenience for building readings.
func Float(v float64) *float64 {
	return &v
}

// StaticGate returns fixed readings. Used in tests and for the
// --assume-safe escape hatch on machines without sensors.
type StaticGate struct {
	Reading Reading
	MemGB   *float64
}

// Read returns the configured reading.
func (s *StaticGate) Read() Reading {
	return s.Reading
}

// AvailableMemGB returns the configured memory figure.
func (s *StaticGate) AvailableMemGB() *float64 {
	return s.MemGB
}
