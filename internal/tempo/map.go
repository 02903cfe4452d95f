// Package tempo interprets a Shastina-style tempo-map program into a
// monotonic piecewise-quadratic function from Q96 input quanta to
// fixed-rate output quanta, and applies it to an NMF object (spec.md
// §4.F, nmftempo).
package tempo

import (
	"math"

	"noir/internal/errs"
)

const maxTempi = 16384

// node is one piece of the piecewise-quadratic map: for x = t -
// offsetInput, y = a*x^2 + b*x, and the transformed value is y +
// offsetOutput.
type node struct {
	a, b                       float64
	offsetInput, offsetOutput int32
}

// Map is the tempo map under construction or already built: a sorted
// node list plus a one-slot pending-ramp buffer.
type Map struct {
	rate int32
	nodes []node

	rampPending            bool
	rampT                  int32
	rampQ1, rampR1         int32
	rampQ2, rampR2         int32
}

// NewMap returns an empty map targeting the given output sample rate.
// rate must already be validated to 44100 or 48000 by the caller.
func NewMap(rate int32) *Map {
	return &Map{rate: rate}
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func (m *Map) checkTime(t int32, line int) error {
	if n := len(m.nodes); n > 0 && t <= m.nodes[n-1].offsetInput {
		return errs.NewAt(errs.CodeTempoNotIncreasing, line, "tempo at t=%d does not follow previous tempo at t=%d", t, m.nodes[n-1].offsetInput)
	}
	if m.rampPending && t <= m.rampT {
		return errs.NewAt(errs.CodeTempoNotIncreasing, line, "tempo at t=%d does not follow buffered ramp at t=%d", t, m.rampT)
	}
	if len(m.nodes) == 0 && !m.rampPending && t != 0 {
		return errs.NewAt(errs.CodeTempoNotFirst, line, "first tempo must be at t=0")
	}
	return nil
}

func (m *Map) addNode(t int32, a, b float64, line int) error {
	if err := m.checkTime(t, line); err != nil {
		return err
	}
	if !isFinite(a) || !isFinite(b) {
		return errs.NewAt(errs.CodeBadTempoSyntax, line, "non-finite tempo parameters")
	}
	if len(m.nodes) >= maxTempi {
		return errs.NewAt(errs.CodeTooManyTempi, line, "tempo map exceeds %d nodes", maxTempi)
	}

	var offsetOutput int32
	if n := len(m.nodes); n > 0 {
		prev := m.nodes[n-1]
		x := float64(t - prev.offsetInput)
		var f float64
		if prev.a == 0 {
			f = prev.b * x
		} else {
			f = prev.a*x*x + prev.b*x
		}
		f += float64(prev.offsetOutput)
		f = math.Floor(f)
		if !isFinite(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return errs.NewAt(errs.CodeArithOverflow, line, "tempo node output offset overflow")
		}
		offsetOutput = int32(f)
		if offsetOutput <= prev.offsetOutput {
			offsetOutput = prev.offsetOutput + 1
		}
	}

	m.nodes = append(m.nodes, node{a: a, b: b, offsetInput: t, offsetOutput: offsetOutput})
	return nil
}

// AddConstant adds a constant-tempo node: q quanta per beat at r beats
// per ten minutes. Flushes any pending ramp first.
func (m *Map) AddConstant(t, q, r int32, line int) error {
	if q < 1 || r < 1 {
		return errs.NewAt(errs.CodeBadTempoSyntax, line, "tempo quanta and rate must be positive")
	}
	if err := m.flushRamp(t, line); err != nil {
		return err
	}
	f := 600.0 * float64(m.rate) / (float64(r) * float64(q))
	return m.addNode(t, 0, f, line)
}

// AddSpan adds a constant-tempo node defined so that q quanta occupy ms
// milliseconds. Flushes any pending ramp first.
func (m *Map) AddSpan(t, q, ms int32, line int) error {
	if q < 1 || ms < 1 {
		return errs.NewAt(errs.CodeBadTempoSyntax, line, "span quanta and milliseconds must be positive")
	}
	if err := m.flushRamp(t, line); err != nil {
		return err
	}
	f := float64(ms) * (float64(m.rate) / 1000.0) / float64(q)
	return m.addNode(t, 0, f, line)
}

// BufferRamp buffers a ramp from (q1,r1) to (q2,r2) starting at t; it is
// committed once the next node's offset is known. A ramp whose endpoints
// match degenerates to AddConstant.
func (m *Map) BufferRamp(t, q1, r1, q2, r2 int32, line int) error {
	if q1 < 1 || r1 < 1 || q2 < 1 || r2 < 1 {
		return errs.NewAt(errs.CodeBadTempoSyntax, line, "ramp quanta and rate must be positive")
	}
	if err := m.checkTime(t, line); err != nil {
		return err
	}
	if q1 == q2 && r1 == r2 {
		return m.AddConstant(t, q1, r1, line)
	}
	if err := m.flushRamp(t, line); err != nil {
		return err
	}
	m.rampT, m.rampQ1, m.rampR1, m.rampQ2, m.rampR2 = t, q1, r1, q2, r2
	m.rampPending = true
	return nil
}

func (m *Map) flushRamp(tNext int32, line int) error {
	if !m.rampPending {
		return nil
	}
	m.rampPending = false
	return m.addRamp(m.rampT, tNext, m.rampQ1, m.rampR1, m.rampQ2, m.rampR2, line)
}

func (m *Map) addRamp(t, tNext, q1, r1, q2, r2 int32, line int) error {
	if err := m.checkTime(t, line); err != nil {
		return err
	}
	vStart := 600.0 * float64(m.rate) / (float64(r1) * float64(q1))
	vEnd := 600.0 * float64(m.rate) / (float64(r2) * float64(q2))
	accel := (vEnd - vStart) / float64(tNext-t)
	return m.addNode(t, accel/2, vStart, line)
}

// Finish closes the map: a pending ramp with no following node is
// dangling, and an empty map is rejected.
func (m *Map) Finish(line int) error {
	if m.rampPending {
		return errs.NewAt(errs.CodeDanglingRamp, line, "ramp tempo has no following node")
	}
	if len(m.nodes) == 0 {
		return errs.NewAt(errs.CodeBadTempoSyntax, line, "tempo map has no tempi")
	}
	return nil
}

// Transform maps an input quantum offset to an output quantum offset.
// The map must already be finished.
func (m *Map) Transform(t int32) (int32, error) {
	if t < 0 {
		errs.Fault("tempo: Transform called with negative t")
	}
	if len(m.nodes) == 0 {
		errs.Fault("tempo: Transform called on an unfinished map")
	}

	last := len(m.nodes) - 1
	idx := last
	hasNext := false
	if m.nodes[last].offsetInput > t {
		lo, hi := 0, last
		for lo < hi {
			mid := lo + (hi-lo)/2
			if mid <= lo {
				mid = lo + 1
			}
			switch {
			case t < m.nodes[mid].offsetInput:
				hi = mid - 1
			case t > m.nodes[mid].offsetInput:
				lo = mid
			default:
				lo, hi = mid, mid
			}
		}
		idx = lo
		hasNext = true
	}

	nd := m.nodes[idx]
	x := float64(t - nd.offsetInput)
	var f float64
	if nd.a == 0 {
		f = nd.b * x
	} else {
		f = nd.a*x*x + nd.b*x
	}
	f = math.Floor(f)
	if !isFinite(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errs.New(errs.CodeArithOverflow, "tempo transform produced a non-finite or out-of-range offset")
	}
	out := int32(f)
	if out < 0 {
		out = 0
	}
	sum := int64(out) + int64(nd.offsetOutput)
	if sum > math.MaxInt32 {
		return 0, errs.New(errs.CodeArithOverflow, "tempo transform output offset overflow")
	}
	out = int32(sum)

	if hasNext {
		next := m.nodes[idx+1]
		if next.offsetOutput <= out {
			out = next.offsetOutput - 1
		}
	}
	return out, nil
}
