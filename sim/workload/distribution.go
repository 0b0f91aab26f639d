package workload

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// DistSpec describes a distribution of positive values, e.g. cloudlet lengths.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// Sampler draws positive values.
type Sampler interface {
	Sample() float64
}

// distParams lists the parameters each distribution type requires.
var distParams = map[string][]string{
	"constant":    {"value"},
	"uniform":     {"min", "max"},
	"gaussian":    {"mean", "std_dev"},
	"exponential": {"mean"},
	"lognormal":   {"mu", "sigma"},
	"pareto":      {"xm", "alpha"},
}

// IsValidDistType reports whether name is a recognized distribution type.
func IsValidDistType(name string) bool {
	_, ok := distParams[name]
	return ok
}

func validDistTypes() string {
	names := make([]string, 0, len(distParams))
	for name := range distParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// validate checks the type and that every required parameter is present and
// finite. Optional "min"/"max" clamp bounds are checked too.
func (d DistSpec) validate(prefix string) error {
	required, ok := distParams[d.Type]
	if !ok {
		return fmt.Errorf("%s: unknown distribution type %q; valid: %s", prefix, d.Type, validDistTypes())
	}
	for _, name := range required {
		if _, ok := d.Params[name]; !ok {
			return fmt.Errorf("%s: %s distribution requires params.%s", prefix, d.Type, name)
		}
	}
	for name, val := range d.Params {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%s.params.%s must be a finite number, got %f", prefix, name, val)
		}
	}
	switch d.Type {
	case "constant":
		if d.Params["value"] <= 0 {
			return fmt.Errorf("%s: constant value must be positive, got %f", prefix, d.Params["value"])
		}
	case "uniform":
		if d.Params["min"] <= 0 || d.Params["max"] < d.Params["min"] {
			return fmt.Errorf("%s: uniform needs 0 < min <= max, got [%f, %f]", prefix, d.Params["min"], d.Params["max"])
		}
	case "gaussian":
		if d.Params["std_dev"] < 0 {
			return fmt.Errorf("%s: std_dev must be non-negative, got %f", prefix, d.Params["std_dev"])
		}
	case "exponential":
		if d.Params["mean"] <= 0 {
			return fmt.Errorf("%s: mean must be positive, got %f", prefix, d.Params["mean"])
		}
	case "lognormal":
		if d.Params["sigma"] < 0 {
			return fmt.Errorf("%s: sigma must be non-negative, got %f", prefix, d.Params["sigma"])
		}
	case "pareto":
		if d.Params["xm"] <= 0 || d.Params["alpha"] <= 0 {
			return fmt.Errorf("%s: pareto needs positive xm and alpha", prefix)
		}
	}
	return nil
}

// NewSampler builds a sampler for spec drawing from src. Samples are clamped
// to the optional params "min" and "max" and never fall below 1.
func NewSampler(spec DistSpec, src rand.Source) (Sampler, error) {
	if err := spec.validate("distribution"); err != nil {
		return nil, err
	}
	p := spec.Params
	var dist interface{ Rand() float64 }
	switch spec.Type {
	case "constant":
		return constantSampler(p["value"]), nil
	case "uniform":
		dist = distuv.Uniform{Min: p["min"], Max: p["max"], Src: src}
	case "gaussian":
		dist = distuv.Normal{Mu: p["mean"], Sigma: p["std_dev"], Src: src}
	case "exponential":
		dist = distuv.Exponential{Rate: 1 / p["mean"], Src: src}
	case "lognormal":
		dist = distuv.LogNormal{Mu: p["mu"], Sigma: p["sigma"], Src: src}
	case "pareto":
		dist = distuv.Pareto{Xm: p["xm"], Alpha: p["alpha"], Src: src}
	}
	lo, hi := 1.0, math.Inf(1)
	if v, ok := p["min"]; ok && spec.Type != "uniform" {
		lo = math.Max(lo, v)
	}
	if v, ok := p["max"]; ok && spec.Type != "uniform" {
		hi = v
	}
	return &clampedSampler{dist: dist, min: lo, max: hi}, nil
}

type constantSampler float64

func (c constantSampler) Sample() float64 { return float64(c) }

type clampedSampler struct {
	dist     interface{ Rand() float64 }
	min, max float64
}

func (s *clampedSampler) Sample() float64 {
	v := s.dist.Rand()
	// guard against +Inf from heavy tails
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.min
	}
	return math.Min(s.max, math.Max(s.min, v))
}
