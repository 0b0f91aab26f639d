package power

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Power(t *testing.T) {
	m := NewModel("linear", 250, 0.7)

	idle, err := m.Power(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, idle, "an idle host is switched off")

	half, err := m.Power(0.5, 0)
	require.NoError(t, err)
	assert.InDelta(t, 175+37.5, half, 1e-9)

	full, err := m.Power(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, full, 1e-9)
}

func TestZF_Power(t *testing.T) {
	m := ZF{}

	w, err := m.Power(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, (155.057327270508+357.8550-401.0088+164.4327)*1.2, w, 1e-9)

	w, err = m.Power(0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w)
}

func TestModels_RejectOutOfRange(t *testing.T) {
	for _, m := range []Model{Linear{MaxPower: 100}, ZF{}} {
		_, err := m.Power(1.5, 0)
		assert.True(t, errors.Is(err, ErrUtilizationRange))
	}
	_, err := ZF{}.Power(0.5, -0.1)
	assert.True(t, errors.Is(err, ErrUtilizationRange))
}

func TestNewModel(t *testing.T) {
	assert.Nil(t, NewModel("", 0, 0))
	assert.Nil(t, NewModel("none", 0, 0))
	assert.IsType(t, ZF{}, NewModel("zf", 0, 0))
	assert.Panics(t, func() { NewModel("cubic", 0, 0) })
}

func TestMeter_IntegratesPiecewiseConstantPower(t *testing.T) {
	// GIVEN a 100 W linear host with no static draw
	meter := NewMeter(Linear{MaxPower: 100})

	// WHEN it runs at 50% for 3600 s and then 100% for 1800 s
	require.NoError(t, meter.Record(0, 0.5, 0))
	require.NoError(t, meter.Record(3600, 1, 0))
	require.NoError(t, meter.Record(5400, 0, 0))

	// THEN it used 50 Wh + 50 Wh
	assert.InDelta(t, 100.0, meter.WattHours(), 1e-9)
}

func TestMeter_NilModelReadsZero(t *testing.T) {
	meter := NewMeter(nil)
	require.NoError(t, meter.Record(10, 1, 1))
	assert.Equal(t, 0.0, meter.WattHours())
}
