package arith

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/pressio/press"
)

func TestCoderRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	random := make([]byte, 4096)
	rng.Read(random)

	inputs := [][]byte{
		{0x41},
		[]byte("abracadabra"),
		[]byte("aaaaaaaaaab"),
		random,
		bytes.Repeat([]byte{1, 2}, 2000),
	}
	for _, in := range inputs {
		var counts [256]uint64
		for _, b := range in {
			counts[b]++
		}
		m := newModel(&counts)
		enc := encodeStream(m, in)
		dec, err := decodeStream(m, enc, len(in))
		if err != nil {
			t.Fatalf("%d-byte input: %v", len(in), err)
		}
		if !bytes.Equal(dec, in) {
			t.Fatalf("%d-byte input: round trip mismatch", len(in))
		}
	}
}

func TestModelLayout(t *testing.T) {
	var counts [256]uint64
	counts['a'] = 3
	counts['b'] = 1
	m := newModel(&counts)

	lo, hi, ok := m.rangeOf('a')
	require.True(t, ok)
	require.Equal(t, uint64(0), lo)
	require.Equal(t, uint64(3), hi)

	lo, hi, ok = m.rangeOf(eofSymbol)
	require.True(t, ok)
	require.Equal(t, uint64(4), lo)
	require.Equal(t, uint64(5), hi)
	require.Equal(t, uint64(5), m.total)

	_, _, ok = m.rangeOf('c')
	require.False(t, ok)
}

func TestConstantInputFormat(t *testing.T) {
	var c Codec
	in := bytes.Repeat([]byte{0x41}, 1000)
	enc, err := c.Encode(in)
	require.NoError(t, err)

	// After the container header: tag 1, length 1000 little-endian,
	// the repeated byte.
	body := enc[press.HeaderSize:]
	want := []byte{0x01, 0xE8, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x41}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, in, dec)
}

func TestSmallInputStored(t *testing.T) {
	var c Codec
	in := []byte("hello world")
	enc, err := c.Encode(in)
	require.NoError(t, err)
	body := enc[press.HeaderSize:]
	require.Equal(t, byte(formatStored), body[0])

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, in, dec)
}

func TestRunHeavySelectsRLE(t *testing.T) {
	var c Codec
	in := append(bytes.Repeat([]byte{0x00}, 3000), bytes.Repeat([]byte{0xFF}, 2000)...)
	enc, err := c.Encode(in)
	require.NoError(t, err)
	require.Equal(t, byte(formatRLE), enc[press.HeaderSize])
	require.Less(t, len(enc), len(in))

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, in, dec)
}

func TestWrapperRoundTrip(t *testing.T) {
	opticks, err := os.ReadFile("../testdata/opticks.txt")
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(29))
	random := make([]byte, 20000)
	rng.Read(random)

	png := append([]byte{0x89, 'P', 'N', 'G'}, random[:5000]...)

	inputs := map[string][]byte{
		"empty":      nil,
		"one":        {0x42},
		"small":      []byte("xy"),
		"text":       opticks,
		"random":     random,
		"png-ish":    png,
		"zero-holes": flatten(bytes.Repeat([]byte{1}, 100), bytes.Repeat([]byte{0}, 5000), []byte("tail")),
		"skewed":     bytes.Repeat([]byte("aaab"), 5000),
	}
	var c Codec
	for name, in := range inputs {
		enc, err := c.Encode(in)
		require.NoError(t, err, name)
		dec, err := c.Decode(enc)
		require.NoError(t, err, name)
		require.True(t, bytes.Equal(dec, in), "%s: round trip mismatch", name)
	}
}

func TestArithmeticCodedPath(t *testing.T) {
	// Skewed distribution over a wide alphabet: not run-heavy, not
	// binary-looking, too many distinct bytes for the text store.
	rng := rand.New(rand.NewSource(31))
	in := make([]byte, 20000)
	for i := range in {
		if rng.Intn(100) < 85 {
			in[i] = byte(' ' + rng.Intn(40)) // common printable band
		} else {
			in[i] = byte(0x80 + rng.Intn(120))
		}
	}
	var c Codec
	enc, err := c.Encode(in)
	require.NoError(t, err)
	require.Equal(t, byte(formatCoded), enc[press.HeaderSize])
	require.Less(t, len(enc), len(in))

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	require.True(t, bytes.Equal(dec, in))
}

func flatten(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDecodeErrors(t *testing.T) {
	var c Codec

	_, err := c.Decode([]byte{1, 2, 3})
	require.ErrorIs(t, err, press.ErrTruncated)

	// Valid header, unknown sub-format tag.
	h := press.Header{Version: press.FormatVersion, Algorithm: press.AlgorithmArithmetic}
	hdr, _ := h.MarshalBinary()
	_, err = c.Decode(append(hdr, 0x09))
	require.ErrorIs(t, err, press.ErrCorrupted)

	// Wrong algorithm in the embedded header.
	h.Algorithm = press.AlgorithmRLE
	hdr, _ = h.MarshalBinary()
	_, err = c.Decode(append(hdr, 0x00))
	require.ErrorIs(t, err, press.ErrCorrupted)
}

func TestCorruptedStreamFailsChecksum(t *testing.T) {
	var c Codec
	in := []byte("a somewhat longer sample input that will be stored verbatim")
	enc, err := c.Encode(in)
	require.NoError(t, err)

	bad := append([]byte(nil), enc...)
	bad[len(bad)-1] ^= 0xFF
	_, err = c.Decode(bad)
	if !errors.Is(err, press.ErrChecksumMismatch) && !errors.Is(err, press.ErrCorrupted) &&
		!errors.Is(err, press.ErrTruncated) && !errors.Is(err, press.ErrLengthMismatch) {
		t.Fatalf("err = %v, want a corruption error", err)
	}
}

func TestRangeInvariants(t *testing.T) {
	// The encoder state must keep low <= high through a skewed model.
	var counts [256]uint64
	counts['x'] = 1 << 30
	counts['y'] = 1
	m := newModel(&counts)

	e := newEncoder()
	for i := 0; i < 1000; i++ {
		sym := 'x'
		if i%97 == 0 {
			sym = 'y'
		}
		require.NoError(t, e.encode(m, int(sym)))
		require.LessOrEqual(t, e.low, e.high)
	}
}
