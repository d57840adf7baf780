//go:build !linux

package sysinfo

import "github.com/spf13/afero"

// SensorGate has no sensor sources on non-Linux platforms. Every reading
// comes back absent, which the decision engine treats as unsafe.
type SensorGate struct{}

// NewSensorGate creates a gate with no sensors.
func NewSensorGate() *SensorGate {
	return &SensorGate{}
}

// NewSensorGateFS creates a gate with no sensors. The filesystem is unused.
func NewSensorGateFS(fs afero.Fs) *SensorGate {
	return &SensorGate{}
}

// Read returns an all-absent reading.
func (g *SensorGate) Read() Reading {
	return Reading{}
}

// AvailableMemGB returns nil; memory cannot be determined.
func (g *SensorGate) AvailableMemGB() *float64 {
	return nil
}
