package lz77

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pressio/press"
)

func TestParseKnownMatches(t *testing.T) {
	matches, err := Parse([]byte("ABCABCABCABC"), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	// Three literals, then one long overlapping match back three bytes.
	want := []Match{{Unmatched: 3, Length: 9, Distance: 3}}
	if diff := cmp.Diff(want, matches); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	opticks, err := os.ReadFile("../testdata/opticks.txt")
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(3))
	random := make([]byte, 16384)
	rng.Read(random)

	inputs := map[string][]byte{
		"empty":     nil,
		"one":       {0x42},
		"cycle":     []byte("ABCABCABCABC"),
		"text":      opticks,
		"random":    random,
		"all-equal": bytes.Repeat([]byte{'q'}, 5000),
		"overlap":   append([]byte("x"), bytes.Repeat([]byte("ab"), 500)...),
	}
	configs := map[string]Config{
		"default":    DefaultConfig(),
		"greedy":     {Parser: ParserGreedy},
		"lazy-plain": {},
		"aggressive": {Aggressive: true, AdaptiveMinMatch: true},
		"tiny-chain": {ChainLimit: 64},
	}
	for cfgName, cfg := range configs {
		c := &Codec{Config: cfg}
		for name, in := range inputs {
			enc, err := c.Encode(in)
			if err != nil {
				t.Fatalf("%s/%s: encode: %v", cfgName, name, err)
			}
			dec, err := c.Decode(enc)
			if err != nil {
				t.Fatalf("%s/%s: decode: %v", cfgName, name, err)
			}
			if !bytes.Equal(dec, in) {
				t.Fatalf("%s/%s: round trip mismatch", cfgName, name)
			}
		}
	}
}

func TestOptimalParserRoundTrip(t *testing.T) {
	c := &Codec{Config: Config{Parser: ParserOptimal, AdaptiveMinMatch: true}}
	in := []byte("she sells sea shells by the sea shore, she sells sea shells")
	enc, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, in) {
		t.Fatal("round trip mismatch")
	}
}

func TestDeterminism(t *testing.T) {
	opticks, err := os.ReadFile("../testdata/opticks.txt")
	if err != nil {
		t.Fatal(err)
	}
	a := &Codec{Config: DefaultConfig()}
	b := &Codec{Config: DefaultConfig()}
	ea, err := a.Encode(opticks)
	if err != nil {
		t.Fatal(err)
	}
	eb, err := b.Encode(opticks)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ea, eb) {
		t.Error("identical configurations produced different streams")
	}
}

func TestOverlappingCopy(t *testing.T) {
	// dist=1, len=32: the match copies its own freshly written output.
	stream := []byte{
		tagLiteral, 'r',
		tagMatch, 32, 0, 1, 0,
		tagEnd,
	}
	dec, err := decodeTokens(stream)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, bytes.Repeat([]byte{'r'}, 33)) {
		t.Errorf("decode = %q", dec)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
		want   error
	}{
		{"missing EOB", []byte{tagLiteral, 'a'}, press.ErrTruncated},
		{"literal cut short", []byte{tagLiteral}, press.ErrTruncated},
		{"match cut short", []byte{tagMatch, 3, 0}, press.ErrTruncated},
		{"zero distance", []byte{tagLiteral, 'a', tagMatch, 3, 0, 0, 0, tagEnd}, press.ErrCorrupted},
		{"distance beyond output", []byte{tagLiteral, 'a', tagMatch, 3, 0, 9, 0, tagEnd}, press.ErrCorrupted},
		{"bad length", []byte{tagLiteral, 'a', tagMatch, 1, 0, 1, 0, tagEnd}, press.ErrCorrupted},
		{"unknown tag", []byte{0x09, tagEnd}, press.ErrCorrupted},
		{"run cut short", []byte{tagLiteralRun, 4, 'a', 'b'}, press.ErrTruncated},
		{"compact zero distance", []byte{tagLiteral, 'a', tagCompact, 0x00, 0x00, tagEnd}, press.ErrCorrupted},
	}
	c := &Codec{}
	for _, tt := range tests {
		_, err := c.Decode(tt.stream)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestMatchValidityInDecodedStreams(t *testing.T) {
	// Walk the encoder's own output and check every match token's
	// distance against the bytes produced so far.
	in := append(bytes.Repeat([]byte("abcdefgh"), 200), bytes.Repeat([]byte{0}, 100)...)
	c := &Codec{Config: DefaultConfig()}
	enc, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	produced := 0
	for pos := 0; pos < len(enc); {
		switch enc[pos] {
		case tagLiteral:
			produced++
			pos += 2
		case tagMatch:
			length := int(enc[pos+1]) | int(enc[pos+2])<<8
			dist := int(enc[pos+3]) | int(enc[pos+4])<<8
			if dist < 1 || dist > produced {
				t.Fatalf("match at offset %d: distance %d with %d bytes produced", pos, dist, produced)
			}
			produced += length
			pos += 5
		case tagEnd:
			pos = len(enc)
		case tagLiteralRun:
			n := int(enc[pos+1]) + 1
			produced += n
			pos += 2 + n
		case tagCompact:
			v := int(enc[pos+1]) | int(enc[pos+2])<<8
			length := (v>>10)&0x3F + 3
			dist := v & 0x3FF
			if dist < 1 || dist > produced {
				t.Fatalf("compact match at offset %d: distance %d with %d bytes produced", pos, dist, produced)
			}
			produced += length
			pos += 3
		default:
			t.Fatalf("unexpected tag %#02x at offset %d", enc[pos], pos)
		}
	}
	if produced != len(in) {
		t.Fatalf("stream produces %d bytes, want %d", produced, len(in))
	}
}

func TestConfigVerify(t *testing.T) {
	bad := []Config{
		{WindowSize: -1},
		{WindowSize: MaxWindowSize * 2},
		{MinMatch: 2},
		{MaxMatch: 300},
		{ChainLimit: 63},
		{ChainLimit: 10000},
	}
	for i, cfg := range bad {
		cfg.setDefaults()
		if err := cfg.Verify(); !errors.Is(err, press.ErrInvalidInput) {
			t.Errorf("config %d: err = %v, want ErrInvalidInput", i, err)
		}
	}
}
