package arith

import (
	"fmt"

	"github.com/pressio/press"
)

// Tag 5 is an escape-coded run-length form for data dominated by long
// identical runs. Body layout after len:u64le:
//
//	254 runLen:u16le byte   a run of 8..65535 repeats
//	253 runLen:u8 byte      a run of 4..7 repeats
//	255 byte                an escaped literal 253..255
//	b                       any other byte, literally
const (
	escMedium  = 253
	escLong    = 254
	escLiteral = 255

	mediumRunMin = 4
	longRunMin   = 8
	longRunMax   = 65535
)

func encodeRuns(src []byte) []byte {
	dst := append(make([]byte, 0, len(src)/4+16), formatRLE)
	dst = appendUint64(dst, uint64(len(src)))
	for i := 0; i < len(src); {
		b := src[i]
		run := 1
		for i+run < len(src) && src[i+run] == b && run < longRunMax {
			run++
		}
		switch {
		case run >= longRunMin:
			dst = append(dst, escLong, byte(run), byte(run>>8), b)
			i += run
		case run >= mediumRunMin:
			dst = append(dst, escMedium, byte(run), b)
			i += run
		default:
			for j := 0; j < run; j++ {
				if b >= escMedium {
					dst = append(dst, escLiteral)
				}
				dst = append(dst, b)
			}
			i += run
		}
	}
	return dst
}

func decodeRuns(r *byteReader) ([]byte, error) {
	total, err := r.u64()
	if err != nil {
		return nil, err
	}
	if total > maxDecodedSymbols*16 {
		return nil, fmt.Errorf("%w: %d bytes exceeds decode cap", press.ErrOverflow, total)
	}
	out := make([]byte, 0, total)
	for uint64(len(out)) < total {
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		switch b {
		case escLong:
			n, err := r.u16()
			if err != nil {
				return nil, err
			}
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, fmt.Errorf("%w: zero-length long run", press.ErrCorrupted)
			}
			for j := 0; j < int(n); j++ {
				out = append(out, v)
			}
		case escMedium:
			n, err := r.u8()
			if err != nil {
				return nil, err
			}
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, fmt.Errorf("%w: zero-length run", press.ErrCorrupted)
			}
			for j := 0; j < int(n); j++ {
				out = append(out, v)
			}
		case escLiteral:
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		default:
			out = append(out, b)
		}
	}
	if uint64(len(out)) != total {
		return nil, fmt.Errorf("%w: run stream decodes past %d bytes", press.ErrCorrupted, total)
	}
	return out, nil
}
