package rle

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/pressio/press"
)

func TestEncodeKnownStream(t *testing.T) {
	var c Codec
	got, err := c.Encode([]byte("AAAAABBB"))
	require.NoError(t, err)
	want := []byte{0x05, 0x41, 0x03, 0x42}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}

	back, err := c.Decode(got)
	require.NoError(t, err)
	require.Equal(t, []byte("AAAAABBB"), back)
}

func TestSingleByte(t *testing.T) {
	var c Codec
	got, err := c.Encode([]byte{0x76})
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x76}, got)
}

func TestLongRunSplitting(t *testing.T) {
	var c Codec
	for _, runLen := range []int{1, 254, 255, 256, 510, 511, 1000} {
		in := bytes.Repeat([]byte{'x'}, runLen)
		enc, err := c.Encode(in)
		require.NoError(t, err)
		want := 2 * ((runLen + 254) / 255)
		require.Len(t, enc, want, "run of %d", runLen)

		dec, err := c.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, in, dec)
	}
}

func TestDistinctBytes(t *testing.T) {
	var c Codec
	in := []byte("abcdefgh")
	enc, err := c.Encode(in)
	require.NoError(t, err)
	require.Len(t, enc, 2*len(in))
}

func TestDecodeErrors(t *testing.T) {
	var c Codec
	_, err := c.Decode([]byte{0x01, 0x41, 0x02})
	require.ErrorIs(t, err, press.ErrCorrupted)

	_, err = c.Decode([]byte{0x00, 0x41})
	require.ErrorIs(t, err, press.ErrCorrupted)
}

func TestRoundTrip(t *testing.T) {
	var c Codec
	inputs := [][]byte{
		nil,
		{0},
		[]byte("hello world"),
		bytes.Repeat([]byte{0xAB}, 4096),
		{1, 1, 2, 2, 2, 3, 3, 3, 3, 0, 0},
	}
	for _, in := range inputs {
		enc, err := c.Encode(in)
		require.NoError(t, err)
		dec, err := c.Decode(enc)
		require.NoError(t, err)
		require.Equal(t, len(in), len(dec))
		require.True(t, bytes.Equal(in, dec))
	}
}
