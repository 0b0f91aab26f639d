package workload

import (
	"fmt"
	"math/rand/v2"

	"github.com/cloudsim-go/cloudsim/sim/resource"
)

// UtilizationSpec selects the CPU utilization model of a cloudlet group.
type UtilizationSpec struct {
	Model string  `yaml:"model"`
	Min   float64 `yaml:"min,omitempty"` // stochastic floor, in [0, 1)
}

// ValidUtilizationModels is the set of recognized utilization model names.
var ValidUtilizationModels = map[string]bool{"": true, "full": true, "stochastic": true}

// IsValidUtilizationModel reports whether name is a recognized utilization model.
func IsValidUtilizationModel(name string) bool {
	return ValidUtilizationModels[name]
}

func (u UtilizationSpec) validate(prefix string) error {
	if !IsValidUtilizationModel(u.Model) {
		return fmt.Errorf("%s: unknown utilization model %q; valid: full, stochastic", prefix, u.Model)
	}
	if u.Min < 0 || u.Min >= 1 {
		return fmt.Errorf("%s: utilization min must be in [0, 1), got %f", prefix, u.Min)
	}
	return nil
}

// NewUtilizationModel creates a utilization model by name. An empty string
// selects "full". Panics on unrecognized names.
func NewUtilizationModel(spec UtilizationSpec, rng *rand.Rand) resource.UtilizationModel {
	if !IsValidUtilizationModel(spec.Model) {
		panic(fmt.Sprintf("unknown utilization model %q", spec.Model))
	}
	switch spec.Model {
	case "", "full":
		return resource.UtilizationModelFull{}
	case "stochastic":
		return NewStochasticUtilization(rng, spec.Min)
	default:
		panic(fmt.Sprintf("unhandled utilization model %q", spec.Model))
	}
}

// minStochasticUtilization keeps a sampled cloudlet from stalling forever.
const minStochasticUtilization = 1e-3

// StochasticUtilization draws a uniform utilization in [floor, 1) the first
// time a point in time is asked for, and returns the same value for that
// time afterwards.
type StochasticUtilization struct {
	rng     *rand.Rand
	floor   float64
	history map[float64]float64
}

// NewStochasticUtilization creates a model drawing from rng.
func NewStochasticUtilization(rng *rand.Rand, floor float64) *StochasticUtilization {
	return &StochasticUtilization{rng: rng, floor: floor, history: make(map[float64]float64)}
}

func (s *StochasticUtilization) Utilization(t float64) float64 {
	if u, ok := s.history[t]; ok {
		return u
	}
	u := max(minStochasticUtilization, s.floor+(1-s.floor)*s.rng.Float64())
	s.history[t] = u
	return u
}

// History returns the number of distinct times sampled so far.
func (s *StochasticUtilization) History() int { return len(s.history) }
