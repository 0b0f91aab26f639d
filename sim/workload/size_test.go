package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want Size
	}{
		{"512", 512},
		{"0", 0},
		{"512MiB", 512},
		{"2GiB", 2048},
		{"2g", 2048},
		{"1TB", 1024 * 1024},
		{"1536k", 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "lots", "-5", "-1GiB"} {
		_, err := ParseSize(in)
		assert.Error(t, err, in)
	}
}

func TestSize_String(t *testing.T) {
	assert.Equal(t, "2GiB", Size(2048).String())
	assert.Equal(t, "512MiB", Size(512).String())
}

func TestSize_YAML(t *testing.T) {
	var v struct {
		RAM     Size `yaml:"ram"`
		Storage Size `yaml:"storage"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("ram: 4GiB\nstorage: 100000\n"), &v))
	assert.Equal(t, Size(4096), v.RAM)
	assert.Equal(t, Size(100000), v.Storage)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "ram: 4096\nstorage: 100000\n", string(out))

	err = yaml.Unmarshal([]byte("ram: [1, 2]\n"), &v)
	assert.Error(t, err)
}
