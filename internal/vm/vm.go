// Package vm implements the Noir virtual machine: the registers and
// bounded stacks of spec.md §4.E, driving note/cue emission through
// internal/event while enforcing grace-note, section, transposition,
// articulation, and layer ordering discipline.
package vm

import (
	"noir/internal/errs"
	"noir/internal/event"
	"noir/internal/pitchset"
)

const (
	maxStack   = 1024
	maxSection = 65534
	maxLayer   = 65536
	noImmArt   = -1
)

type layerRef struct {
	sect   uint16
	layerI uint16
}

// VM holds the single-threaded, process-owned register and stack state
// for one compile run and emits through an event.Buffer.
type VM struct {
	ev *event.Buffer

	cursor  int32
	pitch   pitchset.Set
	pitchOK bool
	dur     int32
	durOK   bool

	section uint16
	baseT   int32
	base    layerRef
	immArt  int

	graceCount  uint32
	graceOffset int32

	locStack   []int32
	transStack []int32
	layerStack []layerRef
	artStack   []int32
}

// New returns a VM emitting through ev, with registers in their initial
// (section 0, undefined pitch/duration, empty stacks) state.
func New(ev *event.Buffer) *VM {
	return &VM{ev: ev, immArt: noImmArt}
}

func addI32(a, b int32, line int, what string) (int32, error) {
	sum := int64(a) + int64(b)
	if sum < -2147483648 || sum > 2147483647 {
		return 0, errs.NewAt(errs.CodeArithOverflow, line, "%s overflow", what)
	}
	return int32(sum), nil
}

// flushGrace performs the grace-note flip whenever duration changes from
// grace to measured, a section boundary is crossed, registers reset, or
// EOF is reached.
func (m *VM) flushGrace() {
	if m.graceCount > 0 {
		m.ev.Flip(int(m.graceCount), m.graceOffset)
		m.graceCount = 0
		m.graceOffset = 0
	}
}

func (m *VM) resetCurrent() {
	m.pitchOK = false
	m.durOK = false
}

func (m *VM) stacksEmpty() bool {
	return len(m.locStack) == 0 && len(m.transStack) == 0 && len(m.layerStack) == 0 && len(m.artStack) == 0
}

// PushPitch is nvm_pset: transpose the incoming set by the current
// transposition, store it, and behave as a repeat.
func (m *VM) PushPitch(set pitchset.Set, line int) error {
	k := int32(0)
	if n := len(m.transStack); n > 0 {
		k = m.transStack[n-1]
	}
	transposed, ok := set.Transpose(int(k))
	if !ok {
		return errs.NewAt(errs.CodeBadPitch, line, "transposition pushes pitch out of range")
	}
	m.pitch = transposed
	m.pitchOK = true
	return m.Repeat(line)
}

// SetDuration is nvm_dur: flush grace when transitioning out of a grace
// context, then update the duration register.
func (m *VM) SetDuration(dur int32, line int) error {
	if m.durOK && m.dur == 0 && dur != 0 {
		m.flushGrace()
	}
	m.dur = dur
	m.durOK = true
	return nil
}

// Repeat is "/": emit the current pitch set at the current duration.
func (m *VM) Repeat(line int) error {
	if !m.pitchOK {
		return errs.NewAt(errs.CodeUndefinedPitch, line, "pitch undefined")
	}
	if !m.durOK {
		return errs.NewAt(errs.CodeUndefinedDuration, line, "duration undefined")
	}

	var dur int32
	if m.dur == 0 {
		next, err := addI32(m.graceOffset, 1, line, "grace offset")
		if err != nil {
			return err
		}
		m.graceOffset = next
		dur = -m.graceOffset
	} else {
		dur = m.dur
	}

	art := uint16(0)
	if m.immArt != noImmArt {
		art = uint16(m.immArt)
		m.immArt = noImmArt
	} else if n := len(m.artStack); n > 0 {
		art = uint16(m.artStack[n-1])
	}

	layer := m.base
	if n := len(m.layerStack); n > 0 {
		layer = m.layerStack[n-1]
	}

	emitGraceStep := func() error {
		if dur >= 0 {
			return nil
		}
		next, err := addI32(int32(m.graceCount), 1, line, "grace count")
		if err != nil {
			return err
		}
		m.graceCount = uint32(next)
		return nil
	}

	pitches := m.pitch.Pitches()
	for _, p := range pitches {
		if err := m.ev.Note(uint32(m.cursor), dur, int16(p), art, layer.sect, layer.layerI); err != nil {
			return err
		}
		if err := emitGraceStep(); err != nil {
			return err
		}
	}
	// A rest advances the cursor like any other repeat (below), per
	// spec.md §9's resolution of the top-level-rest open question, but
	// appends no note, so it must not bump graceCount: there is nothing
	// for a later Flip to rewrite.

	if dur > 0 {
		next, err := addI32(m.cursor, dur, line, "cursor")
		if err != nil {
			return err
		}
		m.cursor = next
	}
	return nil
}

// MultiRepeat is "\n;": invoke Repeat n times.
func (m *VM) MultiRepeat(n int32, line int) error {
	if n < 1 {
		return errs.NewAt(errs.CodeBadOperator, line, "multiple-repeat count must be >= 1")
	}
	for i := int32(0); i < n; i++ {
		if err := m.Repeat(line); err != nil {
			return err
		}
	}
	return nil
}

// Section is "$": begin a new section at the current cursor.
func (m *VM) Section(line int) error {
	if !m.stacksEmpty() || m.immArt != noImmArt {
		return errs.NewAt(errs.CodeStacksNotEmpty, line, "stacks must be empty before a new section")
	}
	m.flushGrace()
	if int(m.section) >= maxSection {
		return errs.NewAt(errs.CodeSectionOverflow, line, "too many sections")
	}
	if err := m.ev.Section(uint32(m.cursor)); err != nil {
		return err
	}
	m.section++
	m.resetCurrent()
	m.baseT = m.cursor
	m.base = layerRef{sect: m.section, layerI: 0}
	return nil
}

// Return is "@": return to the current section's base time.
func (m *VM) Return(line int) error {
	if !m.stacksEmpty() || m.immArt != noImmArt {
		return errs.NewAt(errs.CodeStacksNotEmpty, line, "stacks must be empty to return to section base")
	}
	m.flushGrace()
	m.resetCurrent()
	m.cursor = m.baseT
	m.base.layerI = 0
	return nil
}

// PushLocation is "{".
func (m *VM) PushLocation(line int) error {
	if len(m.locStack) >= maxStack {
		return errs.NewAt(errs.CodeStackOverflow, line, "location stack overflow")
	}
	m.locStack = append(m.locStack, m.cursor)
	return nil
}

// JumpLocation is ":": jump to the top of the location stack.
func (m *VM) JumpLocation(line int) error {
	if m.immArt != noImmArt {
		return errs.NewAt(errs.CodeDanglingArticulation, line, "dangling immediate articulation at jump")
	}
	if len(m.locStack) == 0 {
		return errs.NewAt(errs.CodeStackUnderflow, line, "location stack underflow")
	}
	m.flushGrace()
	m.resetCurrent()
	m.cursor = m.locStack[len(m.locStack)-1]
	return nil
}

// PopLocation is "}".
func (m *VM) PopLocation(line int) error {
	if len(m.locStack) == 0 {
		return errs.NewAt(errs.CodeStackUnderflow, line, "location stack underflow")
	}
	m.locStack = m.locStack[:len(m.locStack)-1]
	return nil
}

// PushTranspose is "^n;": cumulative push.
func (m *VM) PushTranspose(n int32, line int) error {
	if len(m.transStack) >= maxStack {
		return errs.NewAt(errs.CodeStackOverflow, line, "transposition stack overflow")
	}
	top := int32(0)
	if k := len(m.transStack); k > 0 {
		top = m.transStack[k-1]
	}
	sum, err := addI32(top, n, line, "transposition")
	if err != nil {
		return err
	}
	m.transStack = append(m.transStack, sum)
	return nil
}

// PopTranspose is "=".
func (m *VM) PopTranspose(line int) error {
	if len(m.transStack) == 0 {
		return errs.NewAt(errs.CodeStackUnderflow, line, "transposition stack underflow")
	}
	m.transStack = m.transStack[:len(m.transStack)-1]
	return nil
}

// ImmArt is "*k": set the immediate articulation for the next emission.
func (m *VM) ImmArt(k int, line int) error {
	if k < 0 || k > 61 {
		return errs.NewAt(errs.CodeBadOperator, line, "articulation %d out of range", k)
	}
	m.immArt = k
	return nil
}

// PushArt is "!k".
func (m *VM) PushArt(k int, line int) error {
	if k < 0 || k > 61 {
		return errs.NewAt(errs.CodeBadOperator, line, "articulation %d out of range", k)
	}
	if len(m.artStack) >= maxStack {
		return errs.NewAt(errs.CodeStackOverflow, line, "articulation stack overflow")
	}
	m.artStack = append(m.artStack, int32(k))
	return nil
}

// PopArt is "~".
func (m *VM) PopArt(line int) error {
	if len(m.artStack) == 0 {
		return errs.NewAt(errs.CodeStackUnderflow, line, "articulation stack underflow")
	}
	m.artStack = m.artStack[:len(m.artStack)-1]
	return nil
}

// SetBaseLayer is "&n;": rewrite the current section's base layer.
func (m *VM) SetBaseLayer(n int32, line int) error {
	if n < 1 || n > maxLayer {
		return errs.NewAt(errs.CodeBadOperator, line, "layer %d out of range", n)
	}
	m.base.layerI = uint16(n - 1)
	return nil
}

// PushLayer is "+n;".
func (m *VM) PushLayer(n int32, line int) error {
	if n < 1 || n > maxLayer {
		return errs.NewAt(errs.CodeBadOperator, line, "layer %d out of range", n)
	}
	if len(m.layerStack) >= maxStack {
		return errs.NewAt(errs.CodeStackOverflow, line, "layer stack overflow")
	}
	m.layerStack = append(m.layerStack, layerRef{sect: m.section, layerI: uint16(n - 1)})
	return nil
}

// PopLayer is "-".
func (m *VM) PopLayer(line int) error {
	if len(m.layerStack) == 0 {
		return errs.NewAt(errs.CodeStackUnderflow, line, "layer stack underflow")
	}
	m.layerStack = m.layerStack[:len(m.layerStack)-1]
	return nil
}

// Cue emits a zero-duration cue event, packing cue across art/layer_i.
func (m *VM) Cue(cue uint32, line int) error {
	if cue > 1<<22-1 {
		return errs.NewAt(errs.CodeBadCue, line, "cue number %d exceeds 22 bits", cue)
	}
	return m.ev.Cue(uint32(m.cursor), cue, m.section)
}

// EOF finalizes the run: all stacks and immArt must be empty, a final
// grace flush happens, and the event buffer is returned for the caller
// to finish into an NMF object.
func (m *VM) EOF(line int) (*event.Buffer, error) {
	if !m.stacksEmpty() || m.immArt != noImmArt {
		return nil, errs.NewAt(errs.CodeStacksNotEmpty, line, "stacks and articulation must be empty at EOF")
	}
	m.flushGrace()
	return m.ev, nil
}
