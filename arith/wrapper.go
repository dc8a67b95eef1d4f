package arith

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pressio/press"
)

// The adaptive codec prepends the standard container header, then a
// one-byte sub-format tag choosing how the body was encoded:
//
//	0  stored                len:u64le, len bytes
//	1  constant input        len:u64le, the repeated byte
//	2  large-text store      len:u64le, len bytes (layout identical to 0)
//	3  arithmetic-coded      len, k, k×(symbol, freq:u64le), encLen, bits
//	4  block-arithmetic      len, block count, per-block records
//	5  enhanced RLE          len, escape-coded record stream
//
// Tag 2 historically stored a sample of the input and repeated it on
// decode, which is lossy; here it stores the full bytes so every tag
// round-trips exactly.
const (
	formatStored    = 0
	formatConstant  = 1
	formatTextStore = 2
	formatCoded     = 3
	formatBinary    = 4
	formatRLE       = 5

	// smallInputLimit is the size below which coding overhead cannot
	// pay for itself and input is stored as-is.
	smallInputLimit = 100

	// maxDecodedSymbols caps the symbol count a single arithmetic
	// stream may decode.
	maxDecodedSymbols = 10_000_000
)

// Codec is the adaptive arithmetic codec. The zero value is ready to use.
type Codec struct{}

// Encode compresses src, picking a sub-format per the input's shape.
func (Codec) Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	h := press.Header{
		Version:          press.FormatVersion,
		Algorithm:        press.AlgorithmArithmetic,
		OriginalSize:     uint64(len(src)),
		OriginalChecksum: press.Checksum(src),
	}
	hdr, _ := h.MarshalBinary()
	return append(hdr, encodeBody(src)...), nil
}

func encodeBody(src []byte) []byte {
	if allBytesEqual(src) {
		dst := append(make([]byte, 0, 10), formatConstant)
		dst = appendUint64(dst, uint64(len(src)))
		return append(dst, src[0])
	}
	if len(src) < smallInputLimit {
		return appendStored(formatStored, src)
	}

	if len(src) > 1000 && isRunHeavy(src) {
		if dst := encodeRuns(src); len(dst) < len(src) {
			return dst
		}
	}

	if looksBinary(src) {
		if dst := encodeBinaryBlocks(src); dst != nil && float64(len(dst)) < 0.95*float64(len(src)) {
			return dst
		}
	}

	if len(src) > 5000 && looksLargeText(src) {
		return appendStored(formatTextStore, src)
	}

	if len(src) <= maxDecodedSymbols {
		if dst := encodeCoded(src); len(dst) < len(src)+10 {
			return dst
		}
	}
	return appendStored(formatStored, src)
}

// Decode reverses Encode, verifying the embedded header's length and
// checksum against the decoded payload.
func (Codec) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	var h press.Header
	if err := h.UnmarshalBinary(src); err != nil {
		return nil, err
	}
	if h.Algorithm != press.AlgorithmArithmetic {
		return nil, fmt.Errorf("%w: algorithm %d in arithmetic stream", press.ErrCorrupted, uint8(h.Algorithm))
	}
	r := &byteReader{buf: src, pos: press.HeaderSize}
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}
	var out []byte
	switch tag {
	case formatStored, formatTextStore:
		out, err = decodeStored(r)
	case formatConstant:
		out, err = decodeConstant(r)
	case formatCoded:
		out, err = decodeCoded(r)
	case formatBinary:
		out, err = decodeBinaryBlocks(r)
	case formatRLE:
		out, err = decodeRuns(r)
	default:
		return nil, fmt.Errorf("%w: unknown sub-format tag %d", press.ErrCorrupted, tag)
	}
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != h.OriginalSize {
		return nil, fmt.Errorf("%w: decoded %d bytes, header says %d", press.ErrLengthMismatch, len(out), h.OriginalSize)
	}
	if sum := press.Checksum(out); sum != h.OriginalChecksum {
		return nil, fmt.Errorf("%w: decoded payload CRC %08x, header says %08x", press.ErrChecksumMismatch, sum, h.OriginalChecksum)
	}
	return out, nil
}

// --- tag 0/2: stored ---

func appendStored(tag byte, src []byte) []byte {
	dst := append(make([]byte, 0, len(src)+9), tag)
	dst = appendUint64(dst, uint64(len(src)))
	return append(dst, src...)
}

func decodeStored(r *byteReader) ([]byte, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	return r.take(n)
}

// --- tag 1: constant ---

func decodeConstant(r *byteReader) ([]byte, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	b, err := r.u8()
	if err != nil {
		return nil, err
	}
	if n > maxDecodedSymbols {
		return nil, fmt.Errorf("%w: constant run of %d exceeds decode cap", press.ErrOverflow, n)
	}
	return bytes.Repeat([]byte{b}, int(n)), nil
}

// --- tag 3: one arithmetic stream over the whole input ---

func encodeCoded(src []byte) []byte {
	var counts [256]uint64
	for _, b := range src {
		counts[b]++
	}
	m := newModel(&counts)

	dst := append(make([]byte, 0, len(src)/2+64), formatCoded)
	dst = appendUint64(dst, uint64(len(src)))
	dst = appendUint64(dst, uint64(len(m.syms)-1)) // excluding EOF
	dst = m.appendFreqPairs(dst)

	enc := encodeStream(m, src)
	dst = appendUint64(dst, uint64(len(enc)))
	return append(dst, enc...)
}

func decodeCoded(r *byteReader) ([]byte, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	if n > maxDecodedSymbols {
		return nil, fmt.Errorf("%w: %d symbols exceeds decode cap", press.ErrOverflow, n)
	}
	m, err := readFreqPairs(r)
	if err != nil {
		return nil, err
	}
	encLen, err := r.u64()
	if err != nil {
		return nil, err
	}
	enc, err := r.take(encLen)
	if err != nil {
		return nil, err
	}
	return decodeStream(m, enc, int(n))
}

// encodeStream arithmetic-codes src under m, appending the EOF symbol.
func encodeStream(m *model, src []byte) []byte {
	e := newEncoder()
	for _, b := range src {
		// The model was built from src, so encode cannot fail.
		if err := e.encode(m, int(b)); err != nil {
			panic(err)
		}
	}
	if err := e.encode(m, eofSymbol); err != nil {
		panic(err)
	}
	return e.finish()
}

// decodeStream decodes at most n symbols and the trailing EOF.
func decodeStream(m *model, enc []byte, n int) ([]byte, error) {
	d := newDecoder(enc)
	out := make([]byte, 0, n)
	// Bounded at one past n: the extra iteration must produce EOF.
	for i := 0; i <= n; i++ {
		sym, err := d.decode(m)
		if err != nil {
			return nil, err
		}
		if sym == eofSymbol {
			return out, nil
		}
		out = append(out, byte(sym))
	}
	return nil, fmt.Errorf("%w: no EOF symbol after %d decoded symbols", press.ErrCorrupted, n)
}

func readFreqPairs(r *byteReader) (*model, error) {
	k, err := r.u64()
	if err != nil {
		return nil, err
	}
	if k > 256 {
		return nil, fmt.Errorf("%w: %d frequency entries for a byte alphabet", press.ErrCorrupted, k)
	}
	syms := make([]byte, k)
	freqs := make([]uint64, k)
	for i := range syms {
		if syms[i], err = r.u8(); err != nil {
			return nil, err
		}
		if freqs[i], err = r.u64(); err != nil {
			return nil, err
		}
	}
	return modelFromPairs(syms, freqs)
}

// --- input shape heuristics ---

func allBytesEqual(src []byte) bool {
	for _, b := range src[1:] {
		if b != src[0] {
			return false
		}
	}
	return true
}

// isRunHeavy reports data dominated by 0x00/0xFF bytes or containing a run
// of at least 100 identical bytes.
func isRunHeavy(src []byte) bool {
	var zeros, ffs, run int
	longest := 0
	prev := -1
	for _, b := range src {
		switch b {
		case 0x00:
			zeros++
		case 0xFF:
			ffs++
		}
		if int(b) == prev {
			run++
		} else {
			run = 1
			prev = int(b)
		}
		if run > longest {
			longest = run
		}
	}
	return longest >= 100 || zeros+ffs >= len(src)*6/10
}

var magicPrefixes = [][]byte{
	{0x89, 'P', 'N', 'G'},       // PNG
	{0xFF, 0xD8, 0xFF},          // JPEG
	[]byte("GIF8"),              // GIF
	{0x7F, 'E', 'L', 'F'},       // ELF
	[]byte("MZ"),                // PE
	{'P', 'K', 0x03, 0x04},      // ZIP
}

// looksBinary reports container formats by magic prefix, or content whose
// sampled bytes are mostly outside printable ASCII.
func looksBinary(src []byte) bool {
	for _, p := range magicPrefixes {
		if bytes.HasPrefix(src, p) {
			return true
		}
	}
	stride := len(src)/1024 + 1
	sampled, printable := 0, 0
	for i := 0; i < len(src); i += stride {
		sampled++
		b := src[i]
		if b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b < 0x7F) {
			printable++
		}
	}
	return printable < sampled*7/10
}

// looksLargeText reports mostly-ASCII content with a narrow sampled
// alphabet, the shape of natural-language text.
func looksLargeText(src []byte) bool {
	var seen [256]bool
	stride := len(src)/4096 + 1
	sampled, ascii, distinct := 0, 0, 0
	for i := 0; i < len(src); i += stride {
		sampled++
		b := src[i]
		if b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b < 0x7F) {
			ascii++
		}
		if !seen[b] {
			seen[b] = true
			distinct++
		}
	}
	return ascii >= sampled*9/10 && distinct < 80
}

// --- forward-only body reader ---

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u8() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("%w: body ends at offset %d", press.ErrTruncated, r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, fmt.Errorf("%w: body ends at offset %d", press.ErrTruncated, r.pos)
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("%w: body ends at offset %d", press.ErrTruncated, r.pos)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) take(n uint64) ([]byte, error) {
	if n > uint64(len(r.buf)-r.pos) {
		return nil, fmt.Errorf("%w: %d bytes wanted at offset %d, %d remain", press.ErrTruncated, n, r.pos, len(r.buf)-r.pos)
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}

func init() {
	press.Register(press.AlgorithmArithmetic, "arithmetic", func() press.Codec { return Codec{} })
}
