package nmf

import (
	"io"

	"github.com/icza/bitio"

	"noir/internal/errs"
)

// encodeBiased32 applies the +2^31 bias, failing if the raw value would
// fall outside [1, 2^32-1] (value outside [-2^31+1, 2^31-1]).
func encodeBiased32(v int32) (uint32, error) {
	raw := int64(v) + 2147483648
	if raw < 1 || raw > 4294967295 {
		return 0, errs.New(errs.CodeBadField, "dur %d cannot be biased-encoded", v)
	}
	return uint32(raw), nil
}

func decodeBiased32(raw uint32) (int32, error) {
	if raw < 1 {
		return 0, errs.New(errs.CodeBadField, "biased int32 raw %d below sentinel", raw)
	}
	return int32(int64(raw) - 2147483648), nil
}

// encodeBiased16 applies the +32768 bias, failing if raw would fall
// outside [1, 65535] (value outside [-32767, 32767]).
func encodeBiased16(v int16) (uint16, error) {
	raw := int32(v) + 32768
	if raw < 1 || raw > 65535 {
		return 0, errs.New(errs.CodeBadField, "pitch %d cannot be biased-encoded", v)
	}
	return uint16(raw), nil
}

func decodeBiased16(raw uint16) (int16, error) {
	if raw < 1 {
		return 0, errs.New(errs.CodeBadField, "biased int16 raw %d below sentinel", raw)
	}
	return int16(int32(raw) - 32768), nil
}

// Parse reads a complete NMF object from r, validating every field and
// invariant before returning it. The object is never partially exposed on
// failure.
func Parse(r io.Reader) (*NMF, error) {
	return decode(bitio.NewReader(r))
}

func decode(br *bitio.Reader) (*NMF, error) {
	primary := uint32(br.TryReadBits(32))
	secondary := uint32(br.TryReadBits(32))
	if br.TryError != nil {
		return nil, errs.Wrap(errs.CodeShortRead, 0, br.TryError, "short read in NMF header")
	}
	if primary != primarySig || secondary != secondarySig {
		return nil, errs.New(errs.CodeBadSignature, "bad NMF signature")
	}

	basis := Basis(br.TryReadBits(16))
	sectCount := int(br.TryReadBits(16))
	noteCount := int(br.TryReadBits(32))
	if br.TryError != nil {
		return nil, errs.Wrap(errs.CodeShortRead, 0, br.TryError, "short read in NMF preamble")
	}
	if !basis.valid() {
		return nil, errs.New(errs.CodeBadBasis, "bad basis %d", basis)
	}
	if sectCount < 1 || sectCount > MaxSections {
		return nil, errs.New(errs.CodeBadSectionCount, "bad section count %d", sectCount)
	}
	if noteCount < 1 || noteCount > MaxNotes {
		return nil, errs.New(errs.CodeBadNoteCount, "bad note count %d", noteCount)
	}

	sections := make([]uint32, sectCount)
	for i := 0; i < sectCount; i++ {
		sections[i] = uint32(br.TryReadBits(32))
	}
	if br.TryError != nil {
		return nil, errs.Wrap(errs.CodeShortRead, 0, br.TryError, "short read in section table")
	}
	if sections[0] != 0 {
		return nil, errs.New(errs.CodeBadSectionOffset, "section 0 offset must be 0")
	}
	for i := 1; i < sectCount; i++ {
		if sections[i] < sections[i-1] {
			return nil, errs.New(errs.CodeBadSectionOffset, "section %d offset %d precedes section %d offset %d", i, sections[i], i-1, sections[i-1])
		}
	}

	notes := make([]Note, noteCount)
	for i := 0; i < noteCount; i++ {
		t := uint32(br.TryReadBits(32))
		rawDur := uint32(br.TryReadBits(32))
		rawPitch := uint16(br.TryReadBits(16))
		art := uint16(br.TryReadBits(16))
		sect := uint16(br.TryReadBits(16))
		layer := uint16(br.TryReadBits(16))
		if br.TryError != nil {
			return nil, errs.Wrap(errs.CodeShortRead, 0, br.TryError, "short read in note %d", i)
		}

		dur, err := decodeBiased32(rawDur)
		if err != nil {
			return nil, err
		}
		pitch, err := decodeBiased16(rawPitch)
		if err != nil {
			return nil, err
		}

		notes[i] = Note{T: t, Dur: dur, Pitch: pitch, Art: art, Sect: sect, LayerI: layer}
	}

	obj := &NMF{basis: basis, sections: sections}
	for i, note := range notes {
		if err := obj.validateNote(note); err != nil {
			return nil, errs.NewAt(err.(*errs.Error).Code, 0, "note %d: %s", i, err.(*errs.Error).Msg)
		}
	}
	obj.notes = notes
	return obj, nil
}

// Serialize writes the object in the canonical NMF wire format. Fails if
// there are no notes.
func (n *NMF) Serialize(w io.Writer) error {
	if len(n.notes) == 0 {
		return errs.New(errs.CodeEmptyNMF, "cannot serialize an NMF with no notes")
	}

	bw := bitio.NewWriter(w)
	bw.TryWriteBits(uint64(primarySig), 32)
	bw.TryWriteBits(uint64(secondarySig), 32)
	bw.TryWriteBits(uint64(n.basis), 16)
	bw.TryWriteBits(uint64(len(n.sections)), 16)
	bw.TryWriteBits(uint64(len(n.notes)), 32)
	for _, off := range n.sections {
		bw.TryWriteBits(uint64(off), 32)
	}
	for _, note := range n.notes {
		rawDur, err := encodeBiased32(note.Dur)
		if err != nil {
			return err
		}
		rawPitch, err := encodeBiased16(note.Pitch)
		if err != nil {
			return err
		}
		bw.TryWriteBits(uint64(note.T), 32)
		bw.TryWriteBits(uint64(rawDur), 32)
		bw.TryWriteBits(uint64(rawPitch), 16)
		bw.TryWriteBits(uint64(note.Art), 16)
		bw.TryWriteBits(uint64(note.Sect), 16)
		bw.TryWriteBits(uint64(note.LayerI), 16)
	}
	if bw.TryError != nil {
		return errs.Wrap(errs.CodeShortRead, 0, bw.TryError, "short write serializing NMF")
	}
	return bw.Close()
}
