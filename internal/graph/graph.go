// Package graph builds per-layer dynamics curves out of an NMF whose
// articulation/pitch fields encode intensity rather than notes, and
// renders them as Retro-synthesizer layer blocks (spec.md §4.G,
// nmfgraph).
package graph

import "noir/internal/errs"

const (
	artConstant = 0
	artRamp     = 1
	artHighMul  = 10
	artLowMul   = 11
)

const (
	dynMinPitch = -7
	dynMaxPitch = 7
	mulMinPitch = 0
	mulMaxPitch = 31
)

type kind int

const (
	kindConstant kind = iota
	kindRamp
)

// record is one resolved or pending dynamics event. start is always
// known when the record is created; end is the ramp's ending intensity,
// resolved either immediately (a grace note preceded this ramp) or later
// when the next dynamic in the layer arrives.
type record struct {
	t      int32
	kind   kind
	start  int16
	end    int16
	hasEnd bool
}

type layerState struct {
	index   uint16
	records []record

	hasGrace   bool
	graceT     int32
	gracePitch int16

	hasMulHigh, hasMulLow bool
	mulHigh, mulLow       int16
}

// Builder accumulates per-layer dynamics records from a stream of NMF
// notes and, once Finish succeeds, exposes them for rendering.
type Builder struct {
	layers map[uint16]*layerState
	order  []uint16
	done   bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{layers: make(map[uint16]*layerState)}
}

func (b *Builder) layerFor(i uint16) *layerState {
	l, ok := b.layers[i]
	if !ok {
		l = &layerState{index: i}
		b.layers[i] = l
		b.order = append(b.order, i)
	}
	return l
}

func (l *layerState) checkOrder(t int32, line int) error {
	if len(l.records) == 0 {
		if t != 0 {
			return errs.NewAt(errs.CodeFirstNotZero, line, "layer %d's first dynamic is not at t=0", l.index)
		}
		return nil
	}
	if t <= l.records[len(l.records)-1].t {
		return errs.NewAt(errs.CodeDuplicateTime, line, "layer %d has simultaneous dynamics at t=%d", l.index, t)
	}
	return nil
}

// bindPendingRamp resolves the previous record's ending intensity, if it
// is an unresolved ramp, to the starting intensity of the dynamic that is
// about to be appended.
func (l *layerState) bindPendingRamp(startOfNext int16) {
	if len(l.records) == 0 {
		return
	}
	prev := &l.records[len(l.records)-1]
	if prev.kind != kindRamp || prev.hasEnd {
		return
	}
	prev.end = startOfNext
	prev.hasEnd = true
}

// Note routes one NMF note into its layer's dynamics bookkeeping, per
// its articulation key.
func (b *Builder) Note(layerI uint16, t uint32, dur int32, pitch int16, art uint16, line int) error {
	if b.done {
		errs.Fault("graph: Note called after Finish")
	}
	l := b.layerFor(layerI)

	switch art {
	case artConstant:
		if pitch < dynMinPitch || pitch > dynMaxPitch {
			return errs.NewAt(errs.CodeBadField, line, "dynamic pitch %d out of range", pitch)
		}
		if dur < 0 {
			return errs.NewAt(errs.CodeBadField, line, "constant dynamic may not be a grace note")
		}
		if l.hasGrace {
			return errs.NewAt(errs.CodeDanglingGraph, line, "grace note before a constant dynamic")
		}
		if err := l.checkOrder(int32(t), line); err != nil {
			return err
		}
		l.bindPendingRamp(pitch)
		l.records = append(l.records, record{t: int32(t), kind: kindConstant, start: pitch, end: pitch, hasEnd: true})
		return nil

	case artRamp:
		if pitch < dynMinPitch || pitch > dynMaxPitch {
			return errs.NewAt(errs.CodeBadField, line, "dynamic pitch %d out of range", pitch)
		}
		switch {
		case dur >= 0:
			if err := l.checkOrder(int32(t), line); err != nil {
				return err
			}
			if l.hasGrace && l.graceT != int32(t) {
				return errs.NewAt(errs.CodeDanglingGraph, line, "grace note does not match its ramp's beat")
			}
			if l.hasGrace {
				l.bindPendingRamp(l.gracePitch)
				l.records = append(l.records, record{t: int32(t), kind: kindRamp, start: l.gracePitch, end: pitch, hasEnd: true})
				l.hasGrace = false
			} else {
				l.bindPendingRamp(pitch)
				l.records = append(l.records, record{t: int32(t), kind: kindRamp, start: pitch, hasEnd: false})
			}
		case dur == -1:
			if l.hasGrace {
				return errs.NewAt(errs.CodeDanglingGraph, line, "multiple grace notes before a ramp")
			}
			l.hasGrace = true
			l.graceT = int32(t)
			l.gracePitch = pitch
		default:
			return errs.NewAt(errs.CodeBadField, line, "grace offset before a ramp must be exactly one")
		}
		return nil

	case artHighMul:
		if pitch < mulMinPitch || pitch > mulMaxPitch {
			return errs.NewAt(errs.CodeBadField, line, "multiplier bits %d out of range", pitch)
		}
		if l.hasMulHigh {
			return errs.NewAt(errs.CodeDanglingGraph, line, "layer %d's high multiplier bits set twice", layerI)
		}
		l.mulHigh = pitch
		l.hasMulHigh = true
		return nil

	case artLowMul:
		if pitch < mulMinPitch || pitch > mulMaxPitch {
			return errs.NewAt(errs.CodeBadField, line, "multiplier bits %d out of range", pitch)
		}
		if l.hasMulLow {
			return errs.NewAt(errs.CodeDanglingGraph, line, "layer %d's low multiplier bits set twice", layerI)
		}
		l.mulLow = pitch
		l.hasMulLow = true
		return nil
	}

	return errs.NewAt(errs.CodeBadField, line, "unrecognized dynamics articulation key %d", art)
}

// Finish validates every layer's terminal state (no dangling ramp, no
// dangling grace, no half-set multiplier, no empty layer) and freezes
// the builder for rendering.
func (b *Builder) Finish(line int) error {
	if b.done {
		errs.Fault("graph: Finish called more than once")
	}
	b.done = true

	for _, i := range b.order {
		l := b.layers[i]
		if len(l.records) == 0 {
			return errs.NewAt(errs.CodeDanglingGraph, line, "layer %d has no dynamics", i)
		}
		if l.records[len(l.records)-1].kind == kindRamp {
			return errs.NewAt(errs.CodeDanglingGraph, line, "layer %d ends on a dangling ramp", i)
		}
		if l.hasGrace {
			return errs.NewAt(errs.CodeDanglingGraph, line, "layer %d has a dangling grace note", i)
		}
		if l.hasMulHigh != l.hasMulLow {
			return errs.NewAt(errs.CodeDanglingGraph, line, "layer %d sets only one multiplier half", i)
		}
	}
	return nil
}

// multiplier returns the layer's intensity multiplier: 1024 by default,
// or one more than the 10-bit register packed from the high and low
// multiplier-bit notes.
func (l *layerState) multiplier() int {
	if !l.hasMulHigh {
		return 1024
	}
	reg := int(l.mulHigh)<<5 | int(l.mulLow)
	return reg + 1
}
