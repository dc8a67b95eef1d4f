package deflate

import (
	"fmt"

	"github.com/pressio/press"
	"github.com/pressio/press/bitio"
)

// The dynamic table header. Both code tables travel as one concatenated
// sequence of code lengths, itself prefix-coded with the 19-symbol
// code-length alphabet:
//
//	0..15  a literal code length
//	16     repeat the previous length 3..6 times (2 extra bits)
//	17     repeat zero 3..10 times (3 extra bits)
//	18     repeat zero 11..138 times (7 extra bits)
//
// Header bit layout: HLIT:5 (litlen count - 257), HDIST:5 (dist count - 1),
// HCLEN:4 (code-length count - 4), (HCLEN+4)×3 bits of code-length code
// lengths in clOrder, then the coded length sequence.

func writeTables(w *bitio.Writer, litLens, distLens []uint8) error {
	nlit := numLitLen
	for nlit > 257 && litLens[nlit-1] == 0 {
		nlit--
	}
	ndist := numDist
	for ndist > 1 && distLens[ndist-1] == 0 {
		ndist--
	}

	seq := make([]uint8, 0, nlit+ndist)
	seq = append(seq, litLens[:nlit]...)
	seq = append(seq, distLens[:ndist]...)
	ops := foldLengths(seq)

	clFreq := make([]int, numCodeLen)
	for _, op := range ops {
		clFreq[op.sym]++
	}
	clLens := codeLengths(clFreq, maxCLBits)
	clTable := canonicalCodes(clLens)

	ncl := numCodeLen
	for ncl > 4 && clLens[clOrder[ncl-1]] == 0 {
		ncl--
	}

	w.WriteBits(uint32(nlit-257), 5)
	w.WriteBits(uint32(ndist-1), 5)
	w.WriteBits(uint32(ncl-4), 4)
	for i := 0; i < ncl; i++ {
		w.WriteBits(uint32(clLens[clOrder[i]]), 3)
	}
	for _, op := range ops {
		clTable.write(w, op.sym)
		switch op.sym {
		case 16:
			w.WriteBits(uint32(op.arg-3), 2)
		case 17:
			w.WriteBits(uint32(op.arg-3), 3)
		case 18:
			w.WriteBits(uint32(op.arg-11), 7)
		}
	}
	return nil
}

// A clOp is one code-length alphabet symbol with its repeat argument.
type clOp struct {
	sym int
	arg int
}

func foldLengths(seq []uint8) []clOp {
	var ops []clOp
	for i := 0; i < len(seq); {
		l := seq[i]
		run := 1
		for i+run < len(seq) && seq[i+run] == l {
			run++
		}
		if l == 0 {
			rest := run
			for rest >= 11 {
				n := rest
				if n > 138 {
					n = 138
				}
				ops = append(ops, clOp{sym: 18, arg: n})
				rest -= n
			}
			if rest >= 3 {
				ops = append(ops, clOp{sym: 17, arg: rest})
				rest = 0
			}
			for ; rest > 0; rest-- {
				ops = append(ops, clOp{sym: 0})
			}
		} else {
			ops = append(ops, clOp{sym: int(l)})
			rest := run - 1
			for rest >= 3 {
				n := rest
				if n > 6 {
					n = 6
				}
				ops = append(ops, clOp{sym: 16, arg: n})
				rest -= n
			}
			for ; rest > 0; rest-- {
				ops = append(ops, clOp{sym: int(l)})
			}
		}
		i += run
	}
	return ops
}

func readTables(r *bitio.Reader) (litLens, distLens []uint8, err error) {
	hlit, err := r.ReadBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist, err := r.ReadBits(5)
	if err != nil {
		return nil, nil, err
	}
	hclen, err := r.ReadBits(4)
	if err != nil {
		return nil, nil, err
	}
	nlit := int(hlit) + 257
	ndist := int(hdist) + 1
	ncl := int(hclen) + 4
	if nlit > numLitLen {
		return nil, nil, fmt.Errorf("%w: %d literal/length codes", press.ErrCorrupted, nlit)
	}
	if ndist > numDist {
		return nil, nil, fmt.Errorf("%w: %d distance codes", press.ErrCorrupted, ndist)
	}

	clLens := make([]uint8, numCodeLen)
	for i := 0; i < ncl; i++ {
		v, err := r.ReadBits(3)
		if err != nil {
			return nil, nil, err
		}
		clLens[clOrder[i]] = uint8(v)
	}
	clTable, err := newDecTable(clLens)
	if err != nil {
		return nil, nil, err
	}

	seq := make([]uint8, 0, nlit+ndist)
	for len(seq) < nlit+ndist {
		sym, err := clTable.read(r)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case sym < 16:
			seq = append(seq, uint8(sym))
		case sym == 16:
			if len(seq) == 0 {
				return nil, nil, fmt.Errorf("%w: repeat with no previous length", press.ErrCorrupted)
			}
			n, err := r.ReadBits(2)
			if err != nil {
				return nil, nil, err
			}
			prev := seq[len(seq)-1]
			for j := 0; j < int(n)+3; j++ {
				seq = append(seq, prev)
			}
		case sym == 17:
			n, err := r.ReadBits(3)
			if err != nil {
				return nil, nil, err
			}
			for j := 0; j < int(n)+3; j++ {
				seq = append(seq, 0)
			}
		default: // 18
			n, err := r.ReadBits(7)
			if err != nil {
				return nil, nil, err
			}
			for j := 0; j < int(n)+11; j++ {
				seq = append(seq, 0)
			}
		}
	}
	if len(seq) != nlit+ndist {
		return nil, nil, fmt.Errorf("%w: code length sequence overruns the table sizes", press.ErrCorrupted)
	}

	litLens = make([]uint8, numLitLen)
	copy(litLens, seq[:nlit])
	distLens = make([]uint8, numDist)
	copy(distLens, seq[nlit:])
	return litLens, distLens, nil
}
