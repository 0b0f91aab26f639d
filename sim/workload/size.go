package workload

import (
	"strconv"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Size is an amount of memory or storage in megabytes, the unit hosts and
// VMs are accounted in. In YAML it is either a bare number of megabytes or a
// human size such as "512MiB", "2GiB" or "1TB" (binary multiples).
type Size int64

// ParseSize parses a human size into megabytes.
func ParseSize(s string) (Size, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, errors.Errorf("negative size %q", s)
		}
		return Size(n), nil
	}
	b, err := units.RAMInBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing size %q", s)
	}
	if b < 0 {
		return 0, errors.Errorf("negative size %q", s)
	}
	return Size(b / units.MiB), nil
}

// MB returns the size in megabytes.
func (s Size) MB() int64 { return int64(s) }

func (s Size) String() string {
	return units.BytesSize(float64(s) * units.MiB)
}

func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: size must be a scalar", value.Line)
	}
	parsed, err := ParseSize(value.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*s = parsed
	return nil
}

func (s Size) MarshalYAML() (any, error) {
	return int64(s), nil
}
