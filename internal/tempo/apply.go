package tempo

import (
	"noir/internal/errs"
	"noir/internal/nmf"
)

// Apply transforms in through the already-finished map m, rewriting
// every section offset and every measured note's (t, t+dur) pair while
// leaving grace-note and cue durations untouched, producing an output
// NMF at outBasis.
func Apply(in *nmf.NMF, m *Map, outBasis nmf.Basis) (*nmf.NMF, error) {
	if in.Basis() != nmf.BasisQ96 {
		return nil, errs.New(errs.CodeBadBasis, "tempo map input must use the Q96 basis")
	}

	out := nmf.Alloc()
	out.Rebase(outBasis)

	for i := 1; i < in.SectionCount(); i++ {
		x, err := m.Transform(int32(in.SectionOffset(i)))
		if err != nil {
			return nil, err
		}
		if err := out.Sect(uint32(x)); err != nil {
			return nil, err
		}
	}

	for i := 0; i < in.NoteCount(); i++ {
		note := in.NoteAt(i)

		var x int32
		if note.T != 0 {
			tx, err := m.Transform(int32(note.T))
			if err != nil {
				return nil, err
			}
			x = tx
		}

		dur := note.Dur
		if dur > 0 {
			end := int64(note.T) + int64(dur)
			if end > 2147483647 {
				return nil, errs.New(errs.CodeArithOverflow, "note end time overflow")
			}
			y, err := m.Transform(int32(end))
			if err != nil {
				return nil, err
			}
			dur = y - x
		}

		note.T = uint32(x)
		note.Dur = dur
		if err := out.Append(note); err != nil {
			return nil, err
		}
	}

	return out, nil
}
