//go:build linux

package sysinfo

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// Default sysfs/procfs locations on Linux.
const (
	defThermalGlob = "/sys/class/thermal/thermal_zone*/temp"
	defLoadAvgPath = "/proc/loadavg"
	defFanGlob     = "/sys/class/hwmon/hwmon*/fan1_input"
	defMeminfoPath = "/proc/meminfo"
)

// SensorGate reads machine health from sysfs and procfs. All reads go
// through an afero filesystem so tests can fake the kernel interfaces.
type SensorGate struct {
	fs          afero.Fs
	thermalGlob string
	loadAvgPath string
	fanGlob     string
	meminfoPath string
}

// NewSensorGate creates a gate reading the standard Linux sensor paths.
func NewSensorGate() *SensorGate {
	return NewSensorGateFS(afero.NewOsFs())
}

// NewSensorGateFS creates a gate reading sensors from the given filesystem.
func NewSensorGateFS(fs afero.Fs) *SensorGate {
	return &SensorGate{
		fs:          fs,
		thermalGlob: defThermalGlob,
		loadAvgPath: defLoadAvgPath,
		fanGlob:     defFanGlob,
		meminfoPath: defMeminfoPath,
	}
}

// Read samples the thermal zone, load average, and fan sensors. A sensor
// that is missing or unparseable yields a nil field.
func (g *SensorGate) Read() Reading {
	return Reading{
		CPUTempC: g.readCPUTemp(),
		LoadAvg:  g.readLoadAvg(),
		FanRPM:   g.readFanRPM(),
	}
}

// readCPUTemp returns the hottest thermal zone in degrees Celsius.
// Thermal zones report millidegrees.
func (g *SensorGate) readCPUTemp() *float64 {
	paths, err := afero.Glob(g.fs, g.thermalGlob)
	if err != nil || len(paths) == 0 {
		return nil
	}
	var max *float64
	for _, p := range paths {
		raw, err := afero.ReadFile(g.fs, p)
		if err != nil {
			continue
		}
		milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
		if err != nil {
			continue
		}
		c := milli / 1000
		if max == nil || c > *max {
			max = &c
		}
	}
	return max
}

func (g *SensorGate) readLoadAvg() *float64 {
	raw, err := afero.ReadFile(g.fs, g.loadAvgPath)
	if err != nil {
		return nil
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &v
}

func (g *SensorGate) readFanRPM() *float64 {
	paths, err := afero.Glob(g.fs, g.fanGlob)
	if err != nil || len(paths) == 0 {
		return nil
	}
	raw, err := afero.ReadFile(g.fs, paths[0])
	if err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil
	}
	return &v
}

// AvailableMemGB reads MemAvailable from /proc/meminfo, falling back to
// sysinfo(2) free+buffer memory when meminfo is unreadable.
func (g *SensorGate) AvailableMemGB() *float64 {
	if v := g.readMemAvailable(); v != nil {
		return v
	}

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return nil
	}
	bytes := (uint64(si.Freeram) + uint64(si.Bufferram)) * uint64(si.Unit)
	gb := float64(bytes) / (1 << 30)
	return &gb
}

func (g *SensorGate) readMemAvailable() *float64 {
	raw, err := afero.ReadFile(g.fs, g.meminfoPath)
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil
		}
		gb := kb / (1 << 20)
		return &gb
	}
	return nil
}
