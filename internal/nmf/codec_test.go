package nmf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *NMF {
	n := Alloc()
	n.Rebase(BasisF44100)
	_ = n.Sect(0)
	_ = n.Sect(1000)
	_ = n.Append(Note{T: 0, Dur: 500, Pitch: -10, Art: 1, Sect: 0, LayerI: 2})
	_ = n.Append(Note{T: 500, Dur: -1, Pitch: 3, Art: 2, Sect: 0, LayerI: 2})
	_ = n.Append(Note{T: 1000, Dur: 250, Pitch: 48, Art: 0, Sect: 1, LayerI: 0})
	return n
}

func TestSerializeParseRoundTrip(t *testing.T) {
	want := sample()

	var buf bytes.Buffer
	require.NoError(t, want.Serialize(&buf))

	got, err := Parse(&buf)
	require.NoError(t, err)

	assert.Equal(t, want.Basis(), got.Basis())
	require.Equal(t, want.SectionCount(), got.SectionCount())
	for i := 0; i < want.SectionCount(); i++ {
		assert.Equal(t, want.SectionOffset(i), got.SectionOffset(i))
	}
	require.Equal(t, want.NoteCount(), got.NoteCount())
	for i := 0; i < want.NoteCount(); i++ {
		assert.Equal(t, want.NoteAt(i), got.NoteAt(i))
	}
}

func TestSerializeRejectsEmpty(t *testing.T) {
	n := Alloc()
	var buf bytes.Buffer
	assert.Error(t, n.Serialize(&buf))
}

func TestParseRejectsBadSignature(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Serialize(&buf))
	data := buf.Bytes()
	data[0] ^= 0xFF

	_, err := Parse(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestParseRejectsShortRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Serialize(&buf))
	truncated := buf.Bytes()[:10]

	_, err := Parse(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestParseRejectsNonZeroFirstSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample().Serialize(&buf))
	data := buf.Bytes()

	sectionsStart := 4 + 4 + 2 + 2 + 4
	data[sectionsStart+3] = 1

	_, err := Parse(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestBiasedCodecRoundTrips(t *testing.T) {
	for _, v := range []int32{-2147483647, -1, 0, 1, 2147483647} {
		raw, err := encodeBiased32(v)
		require.NoError(t, err)
		got, err := decodeBiased32(raw)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	for _, v := range []int16{-32767, -1, 0, 1, 32767} {
		raw, err := encodeBiased16(v)
		require.NoError(t, err)
		got, err := decodeBiased16(raw)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEncodeBiased32RejectsSentinel(t *testing.T) {
	_, err := encodeBiased32(minInt32)
	assert.Error(t, err)
}
