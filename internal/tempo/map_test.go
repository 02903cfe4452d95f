package tempo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantTempoTransform(t *testing.T) {
	m := NewMap(44100)
	require.NoError(t, m.AddConstant(0, 96, 120, 1))
	require.NoError(t, m.Finish(1))

	got, err := m.Transform(0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got)

	got, err = m.Transform(96)
	require.NoError(t, err)
	assert.EqualValues(t, 220500, got)
}

func TestFirstTempoMustBeAtZero(t *testing.T) {
	m := NewMap(44100)
	assert.Error(t, m.AddConstant(10, 96, 120, 1))
}

func TestTempoOffsetsMustStrictlyIncrease(t *testing.T) {
	m := NewMap(44100)
	require.NoError(t, m.AddConstant(0, 96, 120, 1))
	assert.Error(t, m.AddConstant(0, 96, 120, 1))
}

func TestDanglingRampErrors(t *testing.T) {
	m := NewMap(44100)
	require.NoError(t, m.BufferRamp(0, 96, 120, 96, 240, 1))
	assert.Error(t, m.Finish(1))
}

func TestDegenerateRampBehavesAsConstant(t *testing.T) {
	m := NewMap(44100)
	require.NoError(t, m.BufferRamp(0, 96, 120, 96, 120, 1))
	assert.False(t, m.rampPending)
	require.NoError(t, m.Finish(1))
}

func TestEmptyMapFinishErrors(t *testing.T) {
	m := NewMap(44100)
	assert.Error(t, m.Finish(1))
}

func TestRampTransformIsMonotonic(t *testing.T) {
	m := NewMap(44100)
	require.NoError(t, m.BufferRamp(0, 96, 120, 96, 240, 1))
	require.NoError(t, m.AddConstant(96, 96, 240, 1))
	require.NoError(t, m.Finish(1))

	var prev int32 = -1
	for _, x := range []int32{0, 24, 48, 72, 96, 192} {
		got, err := m.Transform(x)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestTransformNegativeFaults(t *testing.T) {
	m := NewMap(44100)
	require.NoError(t, m.AddConstant(0, 96, 120, 1))
	require.NoError(t, m.Finish(1))
	assert.Panics(t, func() { m.Transform(-1) })
}
