package tempo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstantTempoProgram(t *testing.T) {
	m, err := Parse(strings.NewReader("%noir-tempo;96 120 tempo|;"), 44100, []uint32{0})
	require.NoError(t, err)

	got, err := m.Transform(96)
	require.NoError(t, err)
	assert.EqualValues(t, 220500, got)
}

func TestParseRejectsMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("96 120 tempo|;"), 44100, []uint32{0})
	assert.Error(t, err)
}

func TestParseRejectsMissingSentinel(t *testing.T) {
	_, err := Parse(strings.NewReader("%noir-tempo;96 120 tempo"), 44100, []uint32{0})
	assert.Error(t, err)
}

func TestParseDurationStringLiteral(t *testing.T) {
	m, err := Parse(strings.NewReader(`%noir-tempo;"5" 120 tempo|;`), 44100, []uint32{0})
	require.NoError(t, err)

	got, err := m.Transform(96)
	require.NoError(t, err)
	assert.EqualValues(t, 220500, got)
}

func TestParseSectOperator(t *testing.T) {
	m, err := Parse(strings.NewReader("%noir-tempo;0 sect 96 120 tempo|;"), 44100, []uint32{0, 200})
	require.NoError(t, err)

	got, err := m.Transform(96)
	require.NoError(t, err)
	assert.EqualValues(t, 220500, got)
}

func TestParseUnknownOperatorErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("%noir-tempo;bogus|;"), 44100, []uint32{0})
	assert.Error(t, err)
}
