package bwt

import (
	"fmt"

	"github.com/pressio/press"
)

// The pipeline-internal run-length filter. Unlike the standalone rle codec
// it never doubles incompressible data: bytes pass through untouched and
// only runs worth collapsing are escaped with a marker record.
//
//	0x00 B L  with B != 0: a run of B repeated L+4 times (runs 4..259)
//	0x00 0x00 L: a run of zeros repeated L+1 times (runs 1..256)
//
// MTF output is dense with zeros, so zeros of any run length are escaped;
// this keeps a lone zero from being mistaken for a marker. Non-zero runs
// shorter than four bytes are cheaper left alone.
const (
	runMarker     = 0x00
	minRun        = 4
	maxRun        = minRun + 255
	maxZeroRun    = 256
	markerRecSize = 3
)

func runLengthEncode(src []byte) []byte {
	dst := make([]byte, 0, len(src))
	for i := 0; i < len(src); {
		b := src[i]
		run := 1
		for i+run < len(src) && src[i+run] == b {
			run++
		}
		switch {
		case b == runMarker:
			for rest := run; rest > 0; {
				n := rest
				if n > maxZeroRun {
					n = maxZeroRun
				}
				dst = append(dst, runMarker, 0, byte(n-1))
				rest -= n
			}
		case run >= minRun:
			for rest := run; rest > 0; {
				if rest < minRun {
					for j := 0; j < rest; j++ {
						dst = append(dst, b)
					}
					break
				}
				n := rest
				if n > maxRun {
					n = maxRun
				}
				dst = append(dst, runMarker, b, byte(n-minRun))
				rest -= n
			}
		default:
			for j := 0; j < run; j++ {
				dst = append(dst, b)
			}
		}
		i += run
	}
	return dst
}

func runLengthDecode(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src)*2)
	for i := 0; i < len(src); {
		if src[i] != runMarker {
			dst = append(dst, src[i])
			i++
			continue
		}
		if i+markerRecSize > len(src) {
			return nil, fmt.Errorf("%w: run marker cut short at offset %d", press.ErrTruncated, i)
		}
		b := src[i+1]
		run := int(src[i+2])
		if b == 0 {
			run++
		} else {
			run += minRun
		}
		for j := 0; j < run; j++ {
			dst = append(dst, b)
		}
		i += markerRecSize
	}
	return dst, nil
}
