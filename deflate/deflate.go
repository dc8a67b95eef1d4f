// Package deflate composes the lz77 match finder with canonical Huffman
// coding over the Deflate literal/length and distance alphabets. The
// dynamic code tables travel as code lengths, compressed with the Deflate
// code-length alphabet (symbols 16, 17 and 18 encode repeats). The bit
// stream is MSB-first and self-terminating via the end-of-block symbol; it
// is this module's own format, not zlib's.
package deflate

import (
	"fmt"

	"github.com/pressio/press"
	"github.com/pressio/press/bitio"
	"github.com/pressio/press/lz77"
)

// Codec is the LZ77+Huffman codec. Configuration fields must not be
// mutated once the codec is in use.
type Codec struct {
	// Config tunes the LZ77 front-end.
	Config lz77.Config
}

// Encode compresses src.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	matches, err := lz77.Parse(src, c.Config)
	if err != nil {
		return nil, err
	}

	// Token frequencies over both alphabets.
	litLenFreq := make([]int, numLitLen)
	distFreq := make([]int, numDist)
	litLenFreq[endOfBlock]++
	pos := 0
	for _, m := range matches {
		for _, b := range src[pos : pos+m.Unmatched] {
			litLenFreq[b]++
		}
		pos += m.Unmatched
		if m.Length > 0 {
			litLenFreq[257+int(lengthCode[m.Length])]++
			distFreq[distCodeOf(m.Distance)]++
			pos += m.Length
		}
	}
	for _, b := range src[pos:] {
		litLenFreq[b]++
	}

	litLens := codeLengths(litLenFreq, maxCodeBits)
	distLens := codeLengths(distFreq, maxCodeBits)
	litTable := canonicalCodes(litLens)
	distTable := canonicalCodes(distLens)

	var w bitio.Writer
	if err := writeTables(&w, litLens, distLens); err != nil {
		return nil, err
	}

	pos = 0
	for _, m := range matches {
		for _, b := range src[pos : pos+m.Unmatched] {
			litTable.write(&w, int(b))
		}
		pos += m.Unmatched
		if m.Length > 0 {
			writeMatch(&w, &litTable, &distTable, m.Length, m.Distance)
			pos += m.Length
		}
	}
	for _, b := range src[pos:] {
		litTable.write(&w, int(b))
	}
	litTable.write(&w, endOfBlock)
	return w.Bytes(), nil
}

func writeMatch(w *bitio.Writer, lit, dist *encTable, length, distance int) {
	lc := int(lengthCode[length])
	lit.write(w, 257+lc)
	if n := lengthExtra[lc]; n > 0 {
		w.WriteBits(uint32(length-lengthBase[lc]), n)
	}
	dc := distCodeOf(distance)
	dist.write(w, dc)
	if n := distExtra[dc]; n > 0 {
		w.WriteBits(uint32(distance-distBase[dc]), n)
	}
}

// Decode reverses Encode.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	r := bitio.NewReader(src)
	litLens, distLens, err := readTables(r)
	if err != nil {
		return nil, err
	}
	lit, err := newDecTable(litLens)
	if err != nil {
		return nil, err
	}
	dist, err := newDecTable(distLens)
	if err != nil {
		return nil, err
	}

	dst := make([]byte, 0, len(src)*3)
	for {
		sym, err := lit.read(r)
		if err != nil {
			return nil, err
		}
		switch {
		case sym < 256:
			dst = append(dst, byte(sym))

		case sym == endOfBlock:
			return dst, nil

		default:
			lc := sym - 257
			if lc >= 29 {
				return nil, fmt.Errorf("%w: length symbol %d", press.ErrCorrupted, sym)
			}
			length := lengthBase[lc]
			if n := lengthExtra[lc]; n > 0 {
				extra, err := r.ReadBits(n)
				if err != nil {
					return nil, err
				}
				length += int(extra)
			}
			dc, err := dist.read(r)
			if err != nil {
				return nil, err
			}
			if dc >= numDist {
				return nil, fmt.Errorf("%w: distance symbol %d", press.ErrCorrupted, dc)
			}
			distance := distBase[dc]
			if n := distExtra[dc]; n > 0 {
				extra, err := r.ReadBits(n)
				if err != nil {
					return nil, err
				}
				distance += int(extra)
			}
			if distance > len(dst) {
				return nil, fmt.Errorf("%w: match distance %d with only %d bytes produced", press.ErrCorrupted, distance, len(dst))
			}
			start := len(dst) - distance
			for i := 0; i < length; i++ {
				dst = append(dst, dst[start+i])
			}
		}
	}
}

func init() {
	press.Register(press.AlgorithmDeflate, "deflate", func() press.Codec {
		return &Codec{Config: lz77.DefaultConfig()}
	})
}
