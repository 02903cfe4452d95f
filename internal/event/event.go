// Package event is the thin facade over internal/nmf that the virtual
// machine emits through: section/note/cue/flip/finish, with the
// {uninitialized, open, finalized} lifecycle spec.md §4.B requires.
package event

import (
	"noir/internal/errs"
	"noir/internal/nmf"
)

type state int

const (
	uninitialized state = iota
	open
	finalized
)

// Buffer collects notes and cues for a single compile run and hands back
// a finished NMF object. It is single-run: Finish is the sole legal
// terminal operation, and every other method requires the open state.
type Buffer struct {
	st  state
	obj *nmf.NMF
}

// New returns a Buffer in the open state, ready to collect events.
func New() *Buffer {
	return &Buffer{st: open, obj: nmf.Alloc()}
}

func (b *Buffer) requireOpen() {
	if b.st != open {
		errs.Fault("event: operation requires the open state")
	}
}

// Section appends a new section at offset, mirroring nmf.Sect.
func (b *Buffer) Section(offset uint32) error {
	b.requireOpen()
	return b.obj.Sect(offset)
}

// Note appends a measured or grace note.
func (b *Buffer) Note(t uint32, dur int32, pitch int16, art, sect, layerI uint16) error {
	b.requireOpen()
	return b.obj.Append(nmf.Note{T: t, Dur: dur, Pitch: pitch, Art: art, Sect: sect, LayerI: layerI})
}

// Cue appends a zero-duration cue event, packing the 22-bit cue number
// across art (high 6 bits) and layerI (low 16 bits).
func (b *Buffer) Cue(t uint32, cue uint32, sect uint16) error {
	b.requireOpen()
	if cue > 1<<22-1 {
		errs.Fault("event: cue number %d exceeds 22 bits", cue)
	}
	art := uint16(cue >> 16)
	layerI := uint16(cue & 0xFFFF)
	return b.obj.Append(nmf.Note{T: t, Dur: 0, Pitch: 0, Art: art, Sect: sect, LayerI: layerI})
}

// Flip rewrites the trailing n notes' durations from insertion-order
// grace offsets to musical order before the beat: a tail note holding
// offset -d (1 <= d <= m) becomes -((m+1)-d), so the most recently
// inserted grace (smallest offset) sits closest to the beat. A single
// repeat can emit a grace chord, several trailing notes sharing the
// same offset, so tail notes are matched by their own dur rather than
// by position. Faults if any tail note is not a grace note (dur >= 0),
// or a grace offset exceeds m.
func (b *Buffer) Flip(n int, m int32) {
	b.requireOpen()
	count := b.obj.NoteCount()
	if n < 0 || n > count {
		errs.Fault("event: flip(%d) exceeds buffered note count %d", n, count)
	}
	for i := count - n; i < count; i++ {
		note := b.obj.NoteAt(i)
		if note.Dur >= 0 {
			errs.Fault("event: flip tail note %d has non-grace dur %d", i, note.Dur)
		}
		offset := m + 1 + note.Dur
		if offset < 1 {
			errs.Fault("event: flip grace offset exceeds max %d", m)
		}
		note.Dur = -offset
		if err := b.obj.Set(i, note); err != nil {
			errs.Fault("event: flip could not rewrite note %d: %v", i, err)
		}
	}
}

// Finish transitions to finalized and returns the accumulated NMF,
// sorted into wire order.
func (b *Buffer) Finish() (*nmf.NMF, error) {
	b.requireOpen()
	b.st = finalized
	b.obj.Sort()
	return b.obj, nil
}
