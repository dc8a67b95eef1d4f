package bwt

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pressio/press"
)

func TestTransformBanana(t *testing.T) {
	l, primary := Transform([]byte("banana"))
	if diff := cmp.Diff([]byte("nnbaaa"), l); diff != "" {
		t.Errorf("L column mismatch (-want +got):\n%s", diff)
	}
	if primary != 3 {
		t.Errorf("primary index = %d, want 3", primary)
	}

	back, err := Inverse(l, primary)
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != "banana" {
		t.Errorf("inverse = %q", back)
	}
}

func TestTransformInverseProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	random := make([]byte, 2000)
	rng.Read(random)

	inputs := [][]byte{
		{0x01},
		[]byte("abracadabra"),
		bytes.Repeat([]byte{'a'}, 500), // identical rotations
		random,                         // exercises prefix doubling
		bytes.Repeat([]byte("ab"), 300),
	}
	for _, in := range inputs {
		l, primary := Transform(in)
		if len(l) != len(in) {
			t.Fatalf("transform changed length: %d -> %d", len(in), len(l))
		}
		back, err := Inverse(l, primary)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(back, in) {
			t.Fatalf("inverse mismatch for %d-byte input", len(in))
		}
	}
}

func TestInverseBadPrimary(t *testing.T) {
	_, err := Inverse([]byte("nnbaaa"), 6)
	if !errors.Is(err, press.ErrCorrupted) {
		t.Errorf("err = %v, want ErrCorrupted", err)
	}
}

func TestMTFInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	random := make([]byte, 1000)
	rng.Read(random)
	inputs := [][]byte{
		nil,
		{0x00},
		[]byte("bananaaa"),
		random,
	}
	for _, in := range inputs {
		if got := mtfDecode(mtfEncode(in)); !bytes.Equal(got, in) {
			t.Fatalf("MTF round trip mismatch for %d-byte input", len(in))
		}
	}
}

func TestMTFKnownRanks(t *testing.T) {
	// "aaa" ranks: first 'a' is at position 97, then rank 0 twice.
	got := mtfEncode([]byte("aaa"))
	want := []byte{97, 0, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rank mismatch (-want +got):\n%s", diff)
	}
}

func TestInternalRLERoundTrip(t *testing.T) {
	inputs := [][]byte{
		{0},
		{0, 0, 0},
		bytes.Repeat([]byte{0}, 1000),
		bytes.Repeat([]byte{7}, 259),
		bytes.Repeat([]byte{7}, 260),
		bytes.Repeat([]byte{7}, 3),
		[]byte{1, 2, 3, 0, 4, 0, 0, 5},
		append(bytes.Repeat([]byte{9}, 50), 0, 0, 1),
	}
	for _, in := range inputs {
		enc := runLengthEncode(in)
		dec, err := runLengthDecode(enc)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(dec, in) {
			t.Fatalf("RLE round trip mismatch for %v", in)
		}
	}
}

func TestInternalRLENoDoubling(t *testing.T) {
	// Incompressible non-zero data must pass through untouched.
	in := []byte("abcdefghij")
	enc := runLengthEncode(in)
	if !bytes.Equal(enc, in) {
		t.Errorf("pass-through mismatch: %v", enc)
	}
}

func TestInternalRLETruncatedMarker(t *testing.T) {
	_, err := runLengthDecode([]byte{5, 0, 3})
	if !errors.Is(err, press.ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", err)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	opticks, err := os.ReadFile("../testdata/opticks.txt")
	if err != nil {
		t.Fatal(err)
	}
	c := &Codec{}
	inputs := map[string][]byte{
		"empty":      nil,
		"tiny":       []byte("banana"), // stored path, below the pipeline minimum
		"nine":       []byte("123454321"),
		"ten":        []byte("1234554321"),
		"text":       opticks,
		"all-equal":  bytes.Repeat([]byte{'A'}, 1000),
		"binary-ish": bytes.Repeat([]byte{0, 0, 0, 1, 255}, 400),
	}
	for name, in := range inputs {
		enc, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		dec, err := c.Decode(enc)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if !bytes.Equal(dec, in) {
			t.Fatalf("%s: round trip mismatch", name)
		}
	}
}

func TestCodecMultiBlock(t *testing.T) {
	// Over the single-block limit, the input splits into fixed blocks.
	rng := rand.New(rand.NewSource(17))
	in := make([]byte, 130000)
	for i := range in {
		in[i] = byte('a' + rng.Intn(6))
	}
	c := &Codec{BlockSize: 1 << 15}
	enc, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, in) {
		t.Fatal("multi-block round trip mismatch")
	}
}

func TestDecodeErrors(t *testing.T) {
	c := &Codec{}
	if _, err := c.Decode([]byte("BW")); !errors.Is(err, press.ErrTruncated) {
		t.Errorf("short preamble: %v", err)
	}
	if _, err := c.Decode([]byte("XWT\x01\x01")); !errors.Is(err, press.ErrCorrupted) {
		t.Errorf("bad magic: %v", err)
	}
	if _, err := c.Decode([]byte("BWT\x02\x01")); !errors.Is(err, press.ErrCorrupted) {
		t.Errorf("bad version: %v", err)
	}
	if _, err := c.Decode([]byte("BWT\x01\x01\x00\x00")); !errors.Is(err, press.ErrTruncated) {
		t.Errorf("cut block header: %v", err)
	}
}
