// Package nmf implements the NMF binary codec and in-memory data object:
// the single-owner section/note table, its parse/serialize wire format,
// and the mutators (sect, append, set, rebase, sort) spec.md §4.A names.
package nmf

import (
	"sort"

	"noir/internal/errs"
)

// Basis is the quantum basis tag.
type Basis uint16

const (
	BasisQ96    Basis = 0
	BasisF44100 Basis = 1
	BasisF48000 Basis = 2
)

func (b Basis) valid() bool {
	return b == BasisQ96 || b == BasisF44100 || b == BasisF48000
}

const (
	primarySig   uint32 = 1928196216
	secondarySig uint32 = 1313818926

	MaxSections = 65535
	MaxNotes    = 1048576

	MinPitch = -39
	MaxPitch = 48
	MaxArt   = 61
)

// Note is a note or cue record. Dur==0 marks a cue; the 22-bit cue number
// is packed across Art (high 6 bits) and LayerI (low 16 bits).
type Note struct {
	T      uint32
	Dur    int32
	Pitch  int16
	Art    uint16
	Sect   uint16
	LayerI uint16
}

// NMF is the single-owner in-memory data object: a quantum basis, a
// section-offset table, and a note table.
type NMF struct {
	basis    Basis
	sections []uint32
	notes    []Note
}

// Alloc returns an empty object: Q96 basis, section 0 at offset 0, no
// notes.
func Alloc() *NMF {
	return &NMF{basis: BasisQ96, sections: []uint32{0}}
}

// Basis returns the current quantum basis.
func (n *NMF) Basis() Basis { return n.basis }

// SectionCount returns the number of sections.
func (n *NMF) SectionCount() int { return len(n.sections) }

// SectionOffset returns the offset of section i.
func (n *NMF) SectionOffset(i int) uint32 { return n.sections[i] }

// NoteCount returns the number of notes.
func (n *NMF) NoteCount() int { return len(n.notes) }

// NoteAt returns note i.
func (n *NMF) NoteAt(i int) Note { return n.notes[i] }

// Sect appends a new section with a non-decreasing offset. Fails (without
// faulting) when the section table is already at capacity.
func (n *NMF) Sect(offset uint32) error {
	if len(n.sections) >= MaxSections {
		return errs.New(errs.CodeTooManySections, "too many sections")
	}
	if offset < n.sections[len(n.sections)-1] {
		return errs.New(errs.CodeBadSectionOffset, "section offset %d precedes previous %d", offset, n.sections[len(n.sections)-1])
	}
	n.sections = append(n.sections, offset)
	return nil
}

func (n *NMF) validateNote(note Note) error {
	if int(note.Sect) >= len(n.sections) {
		return errs.New(errs.CodeBadField, "section index %d out of range", note.Sect)
	}
	if note.T < n.sections[note.Sect] {
		return errs.New(errs.CodeNoteBeforeSection, "note t=%d precedes section %d offset %d", note.T, note.Sect, n.sections[note.Sect])
	}
	if note.Pitch < MinPitch || note.Pitch > MaxPitch {
		return errs.New(errs.CodeBadField, "pitch %d out of range", note.Pitch)
	}
	if note.Art > MaxArt {
		return errs.New(errs.CodeBadField, "articulation %d out of range", note.Art)
	}
	if note.Dur == minInt32 {
		return errs.New(errs.CodeBadField, "duration out of range")
	}
	return nil
}

const minInt32 = -2147483648

// Append validates and appends a note. Fails on cap.
func (n *NMF) Append(note Note) error {
	if len(n.notes) >= MaxNotes {
		return errs.New(errs.CodeTooManyNotes, "too many notes")
	}
	if err := n.validateNote(note); err != nil {
		return err
	}
	n.notes = append(n.notes, note)
	return nil
}

// Set replaces note index, revalidating it.
func (n *NMF) Set(index int, note Note) error {
	if index < 0 || index >= len(n.notes) {
		errs.Fault("nmf: Set index %d out of range", index)
	}
	if err := n.validateNote(note); err != nil {
		return err
	}
	n.notes[index] = note
	return nil
}

// Rebase changes the basis tag only; it never rescales times.
func (n *NMF) Rebase(b Basis) {
	if !b.valid() {
		errs.Fault("nmf: Rebase with invalid basis %d", b)
	}
	n.basis = b
}

// Sort orders notes primarily by ascending T, secondarily by ascending
// Dur, which places grace notes (Dur<0) before cues (Dur==0) before
// measured notes (Dur>0) at the same T.
func (n *NMF) Sort() {
	notes := n.notes
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].T != notes[j].T {
			return notes[i].T < notes[j].T
		}
		return notes[i].Dur < notes[j].Dur
	})
}
