package pitchset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInRange(t *testing.T) {
	assert.True(t, InRange(MinPitch))
	assert.True(t, InRange(MaxPitch))
	assert.True(t, InRange(0))
	assert.False(t, InRange(MinPitch-1))
	assert.False(t, InRange(MaxPitch+1))
}

func TestEmptySet(t *testing.T) {
	var s Set
	assert.True(t, s.Empty())
	_, ok := s.Min()
	assert.False(t, ok)
	_, ok = s.Max()
	assert.False(t, ok)
	assert.Empty(t, s.Pitches())
}

func TestAddContainsMinMax(t *testing.T) {
	var s Set
	s.Add(-39)
	s.Add(0)
	s.Add(48)
	s.Add(5)

	assert.False(t, s.Empty())
	assert.True(t, s.Contains(-39))
	assert.True(t, s.Contains(0))
	assert.True(t, s.Contains(48))
	assert.True(t, s.Contains(5))
	assert.False(t, s.Contains(1))

	lo, ok := s.Min()
	require.True(t, ok)
	assert.Equal(t, -39, lo)

	hi, ok := s.Max()
	require.True(t, ok)
	assert.Equal(t, 48, hi)

	assert.Equal(t, []int{-39, 0, 5, 48}, s.Pitches())
}

func TestAddOutOfRangePanics(t *testing.T) {
	var s Set
	assert.Panics(t, func() { s.Add(MaxPitch + 1) })
	assert.Panics(t, func() { s.Add(MinPitch - 1) })
}

func TestTransposeWithinRange(t *testing.T) {
	var s Set
	s.Add(0)
	s.Add(-10)
	s.Add(20)

	up, ok := s.Transpose(5)
	require.True(t, ok)
	assert.True(t, up.Contains(5))
	assert.True(t, up.Contains(-5))
	assert.True(t, up.Contains(25))

	down, ok := s.Transpose(-5)
	require.True(t, ok)
	assert.True(t, down.Contains(-5))
	assert.True(t, down.Contains(-15))
	assert.True(t, down.Contains(15))
}

func TestTransposeOutOfRange(t *testing.T) {
	var s Set
	s.Add(MaxPitch)
	_, ok := s.Transpose(1)
	assert.False(t, ok)

	var s2 Set
	s2.Add(MinPitch)
	_, ok = s2.Transpose(-1)
	assert.False(t, ok)
}

func TestTransposeEmptySetAlwaysOK(t *testing.T) {
	var s Set
	out, ok := s.Transpose(1000)
	assert.True(t, ok)
	assert.True(t, out.Empty())
}

func TestTransposeZeroIsIdentity(t *testing.T) {
	var s Set
	s.Add(3)
	s.Add(-7)
	out, ok := s.Transpose(0)
	require.True(t, ok)
	assert.Equal(t, s.Pitches(), out.Pitches())
}

func TestTransposeAcrossZeroBoundary(t *testing.T) {
	var s Set
	s.Add(-1)
	s.Add(-2)
	s.Add(-3)

	up, ok := s.Transpose(3)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, up.Pitches())

	down, ok := up.Transpose(-3)
	require.True(t, ok)
	assert.Equal(t, s.Pitches(), down.Pitches())
}
