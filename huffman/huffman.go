// Package huffman implements a byte-oriented Huffman entropy codec. The
// encoded stream carries the symbol frequency table, so the decoder rebuilds
// the exact tree the encoder used. It is also the entropy back-end of the
// bwt package's block-sorting pipeline.
package huffman

import (
	"fmt"

	"github.com/pressio/press"
	"github.com/pressio/press/bitio"
)

// Codec is the Huffman codec. The zero value is ready to use.
type Codec struct{}

// Stream layout:
//
//	count byte (0 encodes 256, the full alphabet)
//	count × { symbol byte, frequency as 7-bit little-endian varint }
//	valid-bits-in-last-byte byte (0..7; 0 with a non-empty body means the
//	last byte is fully used)
//	bit-packed symbol codes, MSB-first, zero-padded

// Encode compresses src.
func (Codec) Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	freq := countFrequencies(src)
	t := buildTree(freq)
	codes := t.codes()

	dst := appendFrequencyTable(nil, freq)

	var w bitio.Writer
	for _, b := range src {
		c := codes[b]
		for i := int(c.n) - 1; i >= 0; i-- {
			w.WriteBit(c.bits>>uint(i)&1 != 0)
		}
	}
	valid := byte(w.Len() % 8)
	dst = append(dst, valid)
	return append(dst, w.Bytes()...), nil
}

// Decode reverses Encode.
func (Codec) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	freq, pos, err := parseFrequencyTable(src)
	if err != nil {
		return nil, err
	}
	t := buildTree(freq)

	if pos >= len(src) {
		return nil, fmt.Errorf("%w: missing valid-bits field", press.ErrTruncated)
	}
	valid := src[pos]
	pos++
	if valid > 7 {
		return nil, fmt.Errorf("%w: valid-bits field %d out of range", press.ErrCorrupted, valid)
	}
	body := src[pos:]
	if len(body) == 0 {
		if valid != 0 {
			return nil, fmt.Errorf("%w: %d trailing bits with no body", press.ErrTruncated, valid)
		}
		return nil, nil
	}
	totalBits := 8 * (len(body) - 1)
	if valid == 0 {
		totalBits += 8
	} else {
		totalBits += int(valid)
	}

	// Each decoded symbol consumes at least one bit, so totalBits bounds
	// the output size regardless of what the frequency table claims.
	var total uint64
	for _, f := range freq {
		total += f.count
	}
	if total > uint64(totalBits) {
		total = uint64(totalBits)
	}
	dst := make([]byte, 0, total)

	r := bitio.NewReaderBits(body, totalBits)
	node := t.root
	for r.Remaining() > 0 {
		bit, err := r.ReadBit()
		if err != nil {
			return nil, err
		}
		if bit {
			node = t.nodes[node].right
		} else {
			node = t.nodes[node].left
		}
		if node < 0 {
			return nil, fmt.Errorf("%w: code walk reached a missing branch", press.ErrCorrupted)
		}
		if t.nodes[node].leaf() {
			dst = append(dst, byte(t.nodes[node].symbol))
			node = t.root
		}
	}
	if node != t.root {
		return nil, fmt.Errorf("%w: incomplete code at end of stream", press.ErrCorrupted)
	}
	return dst, nil
}

// symbolFreq is one frequency-table entry. Entries are kept in ascending
// symbol order so that encoder and decoder build identical trees.
type symbolFreq struct {
	symbol uint8
	count  uint64
}

func countFrequencies(src []byte) []symbolFreq {
	var counts [256]uint64
	for _, b := range src {
		counts[b]++
	}
	freq := make([]symbolFreq, 0, 16)
	for sym, n := range counts {
		if n > 0 {
			freq = append(freq, symbolFreq{symbol: uint8(sym), count: n})
		}
	}
	return freq
}

func appendFrequencyTable(dst []byte, freq []symbolFreq) []byte {
	// 256 entries wrap to a count byte of 0.
	dst = append(dst, byte(len(freq)))
	for _, f := range freq {
		dst = append(dst, f.symbol)
		v := f.count
		for {
			b := byte(v & 0x7F)
			v >>= 7
			if v > 0 {
				b |= 0x80
			}
			dst = append(dst, b)
			if v == 0 {
				break
			}
		}
	}
	return dst
}

func parseFrequencyTable(src []byte) ([]symbolFreq, int, error) {
	count := int(src[0])
	if count == 0 {
		count = 256
	}
	pos := 1
	freq := make([]symbolFreq, 0, count)
	prev := -1
	for i := 0; i < count; i++ {
		if pos >= len(src) {
			return nil, 0, fmt.Errorf("%w: frequency table ends after %d of %d entries", press.ErrTruncated, i, count)
		}
		sym := src[pos]
		pos++
		if int(sym) <= prev {
			return nil, 0, fmt.Errorf("%w: frequency table symbols out of order", press.ErrCorrupted)
		}
		prev = int(sym)
		var v uint64
		var shift uint
		for {
			if pos >= len(src) {
				return nil, 0, fmt.Errorf("%w: frequency varint cut short", press.ErrTruncated)
			}
			if shift >= 64 {
				return nil, 0, fmt.Errorf("%w: frequency varint too long", press.ErrCorrupted)
			}
			b := src[pos]
			pos++
			v |= uint64(b&0x7F) << shift
			shift += 7
			if b&0x80 == 0 {
				break
			}
		}
		if v == 0 {
			return nil, 0, fmt.Errorf("%w: zero frequency for symbol %d", press.ErrCorrupted, sym)
		}
		freq = append(freq, symbolFreq{symbol: sym, count: v})
	}
	return freq, pos, nil
}

func init() {
	press.Register(press.AlgorithmHuffman, "huffman", func() press.Codec { return Codec{} })
}
