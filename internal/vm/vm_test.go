package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noir/internal/event"
	"noir/internal/pitchset"
)

func singleton(p int) pitchset.Set {
	var s pitchset.Set
	s.Add(p)
	return s
}

func TestRepeatRequiresPitchAndDuration(t *testing.T) {
	m := New(event.New())
	assert.Error(t, m.Repeat(1))

	require.NoError(t, m.SetDuration(48, 1))
	assert.Error(t, m.Repeat(1), "pitch still undefined")
}

func TestArticulationPrecedence(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.SetDuration(48, 1))

	require.NoError(t, m.PushArt(5, 1))
	require.NoError(t, m.PushPitch(singleton(0), 1))
	note := m.ev

	require.NoError(t, m.ImmArt(9, 1))
	require.NoError(t, m.PushPitch(singleton(0), 1))

	require.NoError(t, m.PushPitch(singleton(0), 1))

	obj, err := note.Finish()
	require.NoError(t, err)
	require.Equal(t, 3, obj.NoteCount())
	assert.EqualValues(t, 5, obj.NoteAt(0).Art)
	assert.EqualValues(t, 9, obj.NoteAt(1).Art)
	assert.EqualValues(t, 5, obj.NoteAt(2).Art, "imm art is cleared after one use, falls back to stack top")
}

func TestLayerPrecedence(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.SetDuration(48, 1))

	require.NoError(t, m.PushPitch(singleton(0), 1))
	require.NoError(t, m.PushLayer(3, 1))
	require.NoError(t, m.PushPitch(singleton(0), 1))
	require.NoError(t, m.PopLayer(1))
	require.NoError(t, m.PushPitch(singleton(0), 1))

	obj, err := m.ev.Finish()
	require.NoError(t, err)
	require.Equal(t, 3, obj.NoteCount())
	assert.EqualValues(t, 0, obj.NoteAt(0).LayerI)
	assert.EqualValues(t, 2, obj.NoteAt(1).LayerI)
	assert.EqualValues(t, 0, obj.NoteAt(2).LayerI)
}

func TestStackUnderflowErrors(t *testing.T) {
	m := New(event.New())
	assert.Error(t, m.PopTranspose(1))
	assert.Error(t, m.PopArt(1))
	assert.Error(t, m.PopLayer(1))
	assert.Error(t, m.PopLocation(1))
	assert.Error(t, m.JumpLocation(1))
}

func TestSectionRequiresEmptyStacks(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.PushLocation(1))
	assert.Error(t, m.Section(1))
}

func TestSectionRequiresNoImmArt(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.ImmArt(1, 1))
	assert.Error(t, m.Section(1))
}

func TestCueOutOfRangeErrors(t *testing.T) {
	m := New(event.New())
	assert.Error(t, m.Cue(1<<22, 1))
}

func TestEOFRequiresEmptyStacks(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.PushTranspose(1, 1))
	_, err := m.EOF(1)
	assert.Error(t, err)
}

func TestEOFFlushesGrace(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.SetDuration(0, 1))
	require.NoError(t, m.PushPitch(singleton(0), 1))
	require.NoError(t, m.PushPitch(singleton(0), 1))

	ev, err := m.EOF(1)
	require.NoError(t, err)
	obj, err := ev.Finish()
	require.NoError(t, err)
	require.Equal(t, 2, obj.NoteCount())
	assert.EqualValues(t, -2, obj.NoteAt(0).Dur)
	assert.EqualValues(t, -1, obj.NoteAt(1).Dur)
}

func TestGraceRestDoesNotBumpGraceCount(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.SetDuration(0, 1))
	require.NoError(t, m.PushPitch(pitchset.Set{}, 1))
	require.NoError(t, m.SetDuration(48, 1), "flushing grace must not see a phantom trailing note from the rest")

	ev, err := m.EOF(1)
	require.NoError(t, err)
	obj, err := ev.Finish()
	require.NoError(t, err)
	assert.Equal(t, 0, obj.NoteCount(), "the rest appended nothing to flip")
}

func TestTransposeOutOfRangePitchErrors(t *testing.T) {
	m := New(event.New())
	require.NoError(t, m.SetDuration(48, 1))
	require.NoError(t, m.PushTranspose(1000, 1))
	assert.Error(t, m.PushPitch(singleton(0), 1))
}
