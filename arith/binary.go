package arith

import (
	"bytes"
	"fmt"

	"github.com/pressio/press"
)

// Tag 4 codes binary data one block at a time so that a single noisy
// region cannot spoil the whole input. Body layout:
//
//	len:u64le, blockCount:u64le, then per block one record:
//
//	0 stored         blockLen:u64le, blockLen bytes
//	1 arithmetic     blockLen:u64le, k:u64le, k×(symbol, freq:u64le),
//	                 encLen:u64le, encLen bytes
//	2 repeated byte  blockLen:u64le, the byte
//	3 zero-run RLE   blockLen:u64le, runCount:u64le,
//	                 runCount×(offset:u64le, runLen:u64le),
//	                 residLen:u64le, the non-zero residue bytes
//
// Every record carries its own lengths, so decoding is forward-only and
// bounded.
const (
	blockStored   = 0
	blockCoded    = 1
	blockRepeated = 2
	blockZeroRLE  = 3

	binaryBlockSize = 1 << 16

	// Zero runs shorter than this are left in the residue.
	minZeroRun = 16
)

func encodeBinaryBlocks(src []byte) []byte {
	blocks := (len(src) + binaryBlockSize - 1) / binaryBlockSize
	dst := append(make([]byte, 0, len(src)/2+32), formatBinary)
	dst = appendUint64(dst, uint64(len(src)))
	dst = appendUint64(dst, uint64(blocks))
	for start := 0; start < len(src); start += binaryBlockSize {
		end := start + binaryBlockSize
		if end > len(src) {
			end = len(src)
		}
		dst = appendBinaryBlock(dst, src[start:end])
	}
	return dst
}

func appendBinaryBlock(dst, block []byte) []byte {
	if allBytesEqual(block) {
		dst = append(dst, blockRepeated)
		dst = appendUint64(dst, uint64(len(block)))
		return append(dst, block[0])
	}
	if bytes.Count(block, []byte{0}) >= len(block)/2 {
		if out := appendZeroRLEBlock(dst, block); out != nil {
			return out
		}
	}

	var counts [256]uint64
	for _, b := range block {
		counts[b]++
	}
	m := newModel(&counts)
	enc := encodeStream(m, block)

	coded := []byte{blockCoded}
	coded = appendUint64(coded, uint64(len(block)))
	coded = appendUint64(coded, uint64(len(m.syms)-1))
	coded = m.appendFreqPairs(coded)
	coded = appendUint64(coded, uint64(len(enc)))
	coded = append(coded, enc...)

	if len(coded) < len(block)+9 {
		return append(dst, coded...)
	}
	dst = append(dst, blockStored)
	dst = appendUint64(dst, uint64(len(block)))
	return append(dst, block...)
}

// appendZeroRLEBlock emits a record 3 for block, or returns nil when the
// run table would not pay for itself.
func appendZeroRLEBlock(dst, block []byte) []byte {
	type run struct{ off, n int }
	var runs []run
	resid := make([]byte, 0, len(block)/2)
	for i := 0; i < len(block); {
		if block[i] != 0 {
			resid = append(resid, block[i])
			i++
			continue
		}
		n := 1
		for i+n < len(block) && block[i+n] == 0 {
			n++
		}
		if n >= minZeroRun {
			runs = append(runs, run{off: i, n: n})
		} else {
			resid = append(resid, block[i:i+n]...)
		}
		i += n
	}
	if overhead := 17 + 16*len(runs) + 8 + len(resid); overhead >= len(block) {
		return nil
	}

	dst = append(dst, blockZeroRLE)
	dst = appendUint64(dst, uint64(len(block)))
	dst = appendUint64(dst, uint64(len(runs)))
	for _, r := range runs {
		dst = appendUint64(dst, uint64(r.off))
		dst = appendUint64(dst, uint64(r.n))
	}
	dst = appendUint64(dst, uint64(len(resid)))
	return append(dst, resid...)
}

func decodeBinaryBlocks(r *byteReader) ([]byte, error) {
	total, err := r.u64()
	if err != nil {
		return nil, err
	}
	blocks, err := r.u64()
	if err != nil {
		return nil, err
	}
	if blocks > total {
		return nil, fmt.Errorf("%w: %d blocks for %d bytes", press.ErrCorrupted, blocks, total)
	}
	if total > maxDecodedSymbols*16 {
		return nil, fmt.Errorf("%w: %d bytes exceeds decode cap", press.ErrOverflow, total)
	}
	out := make([]byte, 0, total)
	for i := uint64(0); i < blocks; i++ {
		block, err := decodeBinaryBlock(r)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	if uint64(len(out)) != total {
		return nil, fmt.Errorf("%w: blocks decode to %d bytes, body says %d", press.ErrCorrupted, len(out), total)
	}
	return out, nil
}

func decodeBinaryBlock(r *byteReader) ([]byte, error) {
	kind, err := r.u8()
	if err != nil {
		return nil, err
	}
	blockLen, err := r.u64()
	if err != nil {
		return nil, err
	}
	if blockLen > maxDecodedSymbols {
		return nil, fmt.Errorf("%w: block of %d bytes exceeds decode cap", press.ErrOverflow, blockLen)
	}
	switch kind {
	case blockStored:
		return r.take(blockLen)

	case blockCoded:
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
		block, err := decodeStream(m, enc, int(blockLen))
		if err != nil {
			return nil, err
		}
		if uint64(len(block)) != blockLen {
			return nil, fmt.Errorf("%w: block decodes to %d bytes, record says %d", press.ErrCorrupted, len(block), blockLen)
		}
		return block, nil

	case blockRepeated:
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		return bytes.Repeat([]byte{b}, int(blockLen)), nil

	case blockZeroRLE:
		return decodeZeroRLEBlock(r, int(blockLen))

	default:
		return nil, fmt.Errorf("%w: unknown block record %d", press.ErrCorrupted, kind)
	}
}

func decodeZeroRLEBlock(r *byteReader, blockLen int) ([]byte, error) {
	runCount, err := r.u64()
	if err != nil {
		return nil, err
	}
	if runCount > uint64(blockLen/minZeroRun)+1 {
		return nil, fmt.Errorf("%w: %d zero runs in a %d-byte block", press.ErrCorrupted, runCount, blockLen)
	}
	type run struct{ off, n int }
	runs := make([]run, runCount)
	for i := range runs {
		off, err := r.u64()
		if err != nil {
			return nil, err
		}
		n, err := r.u64()
		if err != nil {
			return nil, err
		}
		if off > uint64(blockLen) || n > uint64(blockLen)-off {
			return nil, fmt.Errorf("%w: zero run %d+%d outside %d-byte block", press.ErrCorrupted, off, n, blockLen)
		}
		runs[i] = run{off: int(off), n: int(n)}
	}
	residLen, err := r.u64()
	if err != nil {
		return nil, err
	}
	resid, err := r.take(residLen)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, blockLen)
	ri := 0
	for _, rn := range runs {
		if rn.off < len(out) {
			return nil, fmt.Errorf("%w: zero runs out of order", press.ErrCorrupted)
		}
		gap := rn.off - len(out)
		if gap > len(resid)-ri {
			return nil, fmt.Errorf("%w: residue exhausted before offset %d", press.ErrCorrupted, rn.off)
		}
		out = append(out, resid[ri:ri+gap]...)
		ri += gap
		for j := 0; j < rn.n; j++ {
			out = append(out, 0)
		}
	}
	out = append(out, resid[ri:]...)
	if len(out) != blockLen {
		return nil, fmt.Errorf("%w: zero-run block decodes to %d bytes, record says %d", press.ErrCorrupted, len(out), blockLen)
	}
	return out, nil
}
