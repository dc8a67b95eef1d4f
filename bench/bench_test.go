package bench_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pressio/press/bench"

	_ "github.com/pressio/press/arith"
	_ "github.com/pressio/press/bwt"
	_ "github.com/pressio/press/deflate"
	_ "github.com/pressio/press/huffman"
	_ "github.com/pressio/press/lz77"
	_ "github.com/pressio/press/rle"
)

func TestRunAllCodecs(t *testing.T) {
	inputs := []bench.Input{
		{Name: "text", Data: bytes.Repeat([]byte("pack my box with five dozen liquor jugs. "), 200)},
		{Name: "short", Data: []byte("hi")},
	}
	results, err := bench.Run(inputs)
	if err != nil {
		t.Fatalf("benchmark failures: %v", err)
	}

	perInput := map[string]int{}
	for _, r := range results {
		if !r.RoundTrip {
			t.Errorf("%s over %s: round trip mismatch", r.Codec, r.Input)
		}
		perInput[r.Input]++
	}
	want := len(bench.Codecs())
	for _, in := range inputs {
		if perInput[in.Name] != want {
			t.Errorf("%s: %d results, want %d", in.Name, perInput[in.Name], want)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	results, err := bench.Run([]bench.Input{{Name: "tiny", Data: []byte("aaaabbbb")}})
	if err != nil {
		t.Fatal(err)
	}
	report := bench.RenderMarkdown(results)
	if !strings.HasPrefix(report, "| Input | Codec |") {
		t.Errorf("unexpected report header:\n%s", report)
	}
	for _, name := range []string{"huffman", "lz77", "bwt", "ref/flate", "ref/zstd"} {
		if !strings.Contains(report, name) {
			t.Errorf("report missing codec %s", name)
		}
	}
}
