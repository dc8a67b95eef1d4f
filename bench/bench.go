// Package bench measures the module's codecs against well-known ecosystem
// compressors over a set of inputs and renders the results as a Markdown
// table. Round-trip mismatches are reported as failures, never suppressed.
package bench

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pierrec/xxHash/xxHash64"
	"golang.org/x/exp/slices"

	"github.com/pressio/press"
)

// An Input is one named byte buffer to benchmark over.
type Input struct {
	Name string
	Data []byte
}

// A Result records one codec run over one input.
type Result struct {
	Codec          string
	Input          string
	InputSize      int
	CompressedSize int
	EncodeTime     time.Duration
	DecodeTime     time.Duration
	RoundTrip      bool
}

// Ratio returns compressed size over input size.
func (r Result) Ratio() float64 {
	if r.InputSize == 0 {
		return 1
	}
	return float64(r.CompressedSize) / float64(r.InputSize)
}

// An Entry pairs a codec with its display name.
type Entry struct {
	Name  string
	Codec press.Codec
}

// Codecs returns the registered module codecs followed by the ecosystem
// reference codecs.
func Codecs() []Entry {
	var entries []Entry
	for _, name := range press.Names() {
		c, _, err := press.ByName(name)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: name, Codec: c})
	}
	return append(entries, referenceCodecs()...)
}

// Run benchmarks every codec over every input. Individual failures are
// collected rather than aborting the run; the results for the runs that
// completed are returned alongside the aggregate error.
func Run(inputs []Input) ([]Result, error) {
	var results []Result
	var errs *multierror.Error
	for _, in := range inputs {
		want := xxHash64.Checksum(in.Data, 0)
		for _, e := range Codecs() {
			res, err := runOne(e, in, want)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s over %s: %w", e.Name, in.Name, err))
				continue
			}
			results = append(results, res)
		}
	}
	return results, errs.ErrorOrNil()
}

func runOne(e Entry, in Input, want uint64) (Result, error) {
	start := time.Now()
	compressed, err := e.Codec.Encode(in.Data)
	encodeTime := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("encode: %w", err)
	}

	start = time.Now()
	decoded, err := e.Codec.Decode(compressed)
	decodeTime := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("decode: %w", err)
	}

	ok := xxHash64.Checksum(decoded, 0) == want && bytes.Equal(decoded, in.Data)
	res := Result{
		Codec:          e.Name,
		Input:          in.Name,
		InputSize:      len(in.Data),
		CompressedSize: len(compressed),
		EncodeTime:     encodeTime,
		DecodeTime:     decodeTime,
		RoundTrip:      ok,
	}
	if !ok {
		return res, fmt.Errorf("round trip mismatch (%d bytes in, %d bytes out)", len(in.Data), len(decoded))
	}
	return res, nil
}

// RenderMarkdown renders results as a Markdown table, grouped by input.
func RenderMarkdown(results []Result) string {
	results = slices.Clone(results)
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := strings.Compare(a.Input, b.Input); c != 0 {
			return c
		}
		return strings.Compare(a.Codec, b.Codec)
	})

	var b strings.Builder
	b.WriteString("| Input | Codec | Size | Compressed | Ratio | Encode | Decode | Round trip |\n")
	b.WriteString("|-------|-------|------|------------|-------|--------|--------|------------|\n")
	for _, r := range results {
		status := "ok"
		if !r.RoundTrip {
			status = "MISMATCH"
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %.3f | %s | %s | %s |\n",
			r.Input, r.Codec, r.InputSize, r.CompressedSize, r.Ratio(),
			r.EncodeTime.Round(time.Microsecond), r.DecodeTime.Round(time.Microsecond), status)
	}
	return b.String()
}
