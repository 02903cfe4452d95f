package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteAndSection(t *testing.T) {
	b := New()
	require.NoError(t, b.Section(100))
	require.NoError(t, b.Note(0, 10, 5, 0, 0, 0))
	require.NoError(t, b.Note(150, 10, 5, 0, 1, 0))

	obj, err := b.Finish()
	require.NoError(t, err)
	require.Equal(t, 2, obj.NoteCount())
	require.Equal(t, 2, obj.SectionCount())
}

func TestCuePacksCueNumber(t *testing.T) {
	b := New()
	require.NoError(t, b.Cue(0, 0x1FFFFF, 0))

	obj, err := b.Finish()
	require.NoError(t, err)
	n := obj.NoteAt(0)
	assert.EqualValues(t, 0, n.Dur)
	cue := uint32(n.Art)<<16 | uint32(n.LayerI)
	assert.EqualValues(t, 0x1FFFFF, cue)
}

func TestCueOverflowFaults(t *testing.T) {
	b := New()
	assert.Panics(t, func() { b.Cue(0, 1<<22, 0) })
}

func TestFlipRewritesGraceOffsets(t *testing.T) {
	b := New()
	require.NoError(t, b.Note(100, -1, 1, 1, 0, 0))
	require.NoError(t, b.Note(100, -2, 2, 1, 0, 0))
	require.NoError(t, b.Note(100, -3, 3, 1, 0, 0))
	b.Flip(3, 3)

	obj, err := b.Finish()
	require.NoError(t, err)

	durs := make([]int32, obj.NoteCount())
	for i := 0; i < obj.NoteCount(); i++ {
		durs[i] = obj.NoteAt(i).Dur
	}
	assert.ElementsMatch(t, []int32{-1, -2, -3}, durs)

	var closest int32 = -1000
	for _, d := range durs {
		if d > closest {
			closest = d
		}
	}
	last := obj.NoteAt(obj.NoteCount() - 1)
	assert.Equal(t, closest, last.Dur)
}

func TestFlipHandlesGraceChordSharingOneOffset(t *testing.T) {
	b := New()
	require.NoError(t, b.Note(100, -1, 1, 1, 0, 0))
	require.NoError(t, b.Note(100, -1, 2, 1, 0, 0))
	b.Flip(2, 1)

	obj, err := b.Finish()
	require.NoError(t, err)
	require.Equal(t, 2, obj.NoteCount())
	for i := 0; i < 2; i++ {
		assert.EqualValues(t, -1, obj.NoteAt(i).Dur, "both chord members share the single repeat's grace offset")
	}
}

func TestFlipFaultsWhenGraceOffsetExceedsMax(t *testing.T) {
	b := New()
	require.NoError(t, b.Note(100, -4, 1, 1, 0, 0))
	assert.Panics(t, func() { b.Flip(1, 1) })
}

func TestFlipRejectsNonGraceTail(t *testing.T) {
	b := New()
	require.NoError(t, b.Note(100, 5, 1, 1, 0, 0))
	assert.Panics(t, func() { b.Flip(1, 1) })
}

func TestOperationsAfterFinishFault(t *testing.T) {
	b := New()
	require.NoError(t, b.Note(0, 1, 0, 0, 0, 0))
	_, err := b.Finish()
	require.NoError(t, err)

	assert.Panics(t, func() { b.Note(0, 1, 0, 0, 0, 0) })
	assert.Panics(t, func() { b.Section(0) })
	assert.Panics(t, func() { b.Finish() })
}
