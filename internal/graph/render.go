package graph

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"

	"noir/internal/errs"
)

// intensity maps a dynamics pitch in [dynMinPitch, dynMaxPitch] through
// the linear-then-gamma curve onto [0, 1024], scaled by the layer's
// multiplier.
func intensity(pitch int16, gamma float64, multiplier int) int {
	v := float64(int(pitch)-dynMinPitch) / float64(dynMaxPitch-dynMinPitch)
	if gamma != 1.0 {
		v = math.Pow(v, gamma)
	}
	out := math.Round(v * float64(multiplier))
	if out < 0 {
		out = 0
	}
	if out > 1024 {
		out = 1024
	}
	return int(out)
}

// Render writes every layer's textual Retro-synthesizer layer block to
// w, in ascending layer-index order. The Builder must already have had
// Finish called successfully. gamma of 1.0 applies no correction.
func (b *Builder) Render(w io.Writer, gamma float64) error {
	if !b.done {
		errs.Fault("graph: Render called before Finish")
	}

	indices := make([]uint16, len(b.order))
	copy(indices, b.order)
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	bw := bufio.NewWriter(w)
	for _, idx := range indices {
		l := b.layers[idx]
		mul := l.multiplier()
		if _, err := fmt.Fprintf(bw, "layer %d mul %d\n", idx, mul); err != nil {
			return err
		}
		for _, rec := range l.records {
			switch rec.kind {
			case kindConstant:
				if _, err := fmt.Fprintf(bw, "  dyn %d %d\n", rec.t, intensity(rec.start, gamma, mul)); err != nil {
					return err
				}
			case kindRamp:
				start := intensity(rec.start, gamma, mul)
				end := intensity(rec.end, gamma, mul)
				if _, err := fmt.Fprintf(bw, "  ramp %d %d %d\n", rec.t, start, end); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(bw, "end\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
