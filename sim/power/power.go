// Package power provides host power models. A model maps CPU (and for some
// models memory) utilization in [0, 1] to watts.
package power

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ErrUtilizationRange is returned for utilization outside [0, 1].
var ErrUtilizationRange = errors.New("utilization value must be between 0 and 1")

// Model computes the power draw of a host.
type Model interface {
	Power(cpu, mem float64) (float64, error)
}

// ValidModels is the set of recognized power model names.
var ValidModels = map[string]bool{"": true, "none": true, "linear": true, "zf": true}

// IsValidModel reports whether name is a recognized power model.
func IsValidModel(name string) bool {
	return ValidModels[name]
}

// NewModel creates a power model by name. An empty string or "none" returns
// nil (no energy accounting). Panics on unrecognized names.
func NewModel(name string, maxPower, staticFraction float64) Model {
	if !IsValidModel(name) {
		panic(fmt.Sprintf("unknown power model %q", name))
	}
	switch name {
	case "", "none":
		return nil
	case "linear":
		return Linear{MaxPower: maxPower, StaticFraction: staticFraction}
	case "zf":
		return ZF{}
	default:
		panic(fmt.Sprintf("unhandled power model %q", name))
	}
}

func checkRange(name string, u float64) error {
	if u < 0 || u > 1 || math.IsNaN(u) {
		return errors.Wrapf(ErrUtilizationRange, "%s utilization %v", name, u)
	}
	return nil
}

// Linear draws StaticFraction of MaxPower when idle and grows linearly with
// CPU utilization up to MaxPower. An idle host with no load is switched off.
type Linear struct {
	MaxPower       float64
	StaticFraction float64
}

func (m Linear) Power(cpu, _ float64) (float64, error) {
	if err := checkRange("cpu", cpu); err != nil {
		return 0, err
	}
	if cpu == 0 {
		return 0, nil
	}
	static := m.StaticFraction * m.MaxPower
	return static + (m.MaxPower-static)*cpu, nil
}

// ZF is a fitted cubic over CPU and memory utilization, with a 1.2 PUE-style
// overhead factor.
type ZF struct{}

func (ZF) Power(cpu, mem float64) (float64, error) {
	if err := checkRange("cpu", cpu); err != nil {
		return 0, err
	}
	if err := checkRange("memory", mem); err != nil {
		return 0, err
	}
	if cpu == 0 {
		return 0, nil
	}
	p := 155.057327270508 +
		357.8550*cpu - 401.0088*cpu*cpu + 164.4327*cpu*cpu*cpu -
		30.6192*mem + 41.8946*mem*mem - 19.8122*mem*mem*mem
	return p * 1.2, nil
}

// Meter integrates a host's power draw over time into energy.
type Meter struct {
	model    Model
	lastTime float64
	lastCPU  float64
	lastMem  float64
	joules   float64
}

// NewMeter creates a meter. A nil model yields a meter that always reads 0.
func NewMeter(model Model) *Meter {
	return &Meter{model: model}
}

// Record closes the interval since the previous sample at the utilization
// seen then, and starts a new one at (cpu, mem).
func (m *Meter) Record(now, cpu, mem float64) error {
	if m.model == nil {
		return nil
	}
	if dt := now - m.lastTime; dt > 0 {
		w, err := m.model.Power(m.lastCPU, m.lastMem)
		if err != nil {
			return err
		}
		m.joules += w * dt
	}
	m.lastTime = now
	m.lastCPU = clamp01(cpu)
	m.lastMem = clamp01(mem)
	return nil
}

// WattHours returns the energy recorded so far.
func (m *Meter) WattHours() float64 {
	return m.joules / 3600
}

func clamp01(u float64) float64 {
	return math.Min(1, math.Max(0, u))
}
