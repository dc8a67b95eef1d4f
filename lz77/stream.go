package lz77

import (
	"encoding/binary"
	"fmt"

	"github.com/pressio/press"
)

// Byte-level stream format, a sequence of tagged records:
//
//	0x00  b                  one literal byte
//	0x01  len:u16le dist:u16le  match, length 3..258, distance 1..32768
//	0x02  -                  end of stream
//	0x03  n:u8, n+1 bytes    literal run of 1..256 bytes
//	0x04  u16le ((len-3)<<10)|dist  match, length 3..6, distance 1..1023
//
// The encoder prefers 0x04 whenever it fits, 0x03 for two or more
// consecutive literals, and ends the stream with exactly one 0x02.
const (
	tagLiteral    = 0x00
	tagMatch      = 0x01
	tagEnd        = 0x02
	tagLiteralRun = 0x03
	tagCompact    = 0x04

	compactMaxLength   = 6
	compactMaxDistance = 1023

	maxLiteralRun = 256
)

// appendTokens serializes the parsed matches over src to dst.
func appendTokens(dst, src []byte, matches []Match) []byte {
	pos := 0
	for _, m := range matches {
		dst = appendLiterals(dst, src[pos:pos+m.Unmatched])
		pos += m.Unmatched
		if m.Length > 0 {
			dst = appendMatch(dst, m.Length, m.Distance)
			pos += m.Length
		}
	}
	dst = appendLiterals(dst, src[pos:])
	return append(dst, tagEnd)
}

func appendLiterals(dst, lits []byte) []byte {
	for len(lits) >= 2 {
		n := len(lits)
		if n > maxLiteralRun {
			n = maxLiteralRun
		}
		dst = append(dst, tagLiteralRun, byte(n-1))
		dst = append(dst, lits[:n]...)
		lits = lits[n:]
	}
	if len(lits) == 1 {
		dst = append(dst, tagLiteral, lits[0])
	}
	return dst
}

func appendMatch(dst []byte, length, distance int) []byte {
	if length <= compactMaxLength && distance <= compactMaxDistance {
		v := uint16(length-MinMatchLength)<<10 | uint16(distance)
		return append(dst, tagCompact, byte(v), byte(v>>8))
	}
	return append(dst, tagMatch,
		byte(length), byte(length>>8),
		byte(distance), byte(distance>>8))
}

// decodeTokens parses the record stream, resolving matches against the
// already-produced output. Copies are byte by byte so that overlapping
// matches replicate their own output.
func decodeTokens(src []byte) ([]byte, error) {
	dst := make([]byte, 0, len(src)*2)
	pos := 0
	for pos < len(src) {
		tag := src[pos]
		pos++
		switch tag {
		case tagLiteral:
			if pos >= len(src) {
				return nil, fmt.Errorf("%w: literal record cut short at offset %d", press.ErrTruncated, pos)
			}
			dst = append(dst, src[pos])
			pos++

		case tagMatch:
			if pos+4 > len(src) {
				return nil, fmt.Errorf("%w: match record cut short at offset %d", press.ErrTruncated, pos)
			}
			length := int(binary.LittleEndian.Uint16(src[pos:]))
			distance := int(binary.LittleEndian.Uint16(src[pos+2:]))
			pos += 4
			if length < MinMatchLength || length > MaxMatchLength {
				return nil, fmt.Errorf("%w: match length %d outside %d..%d", press.ErrCorrupted, length, MinMatchLength, MaxMatchLength)
			}
			if distance > MaxWindowSize {
				return nil, fmt.Errorf("%w: match distance %d beyond window", press.ErrCorrupted, distance)
			}
			var err error
			if dst, err = copyMatch(dst, length, distance, pos); err != nil {
				return nil, err
			}

		case tagEnd:
			return dst, nil

		case tagLiteralRun:
			if pos >= len(src) {
				return nil, fmt.Errorf("%w: literal run count cut short at offset %d", press.ErrTruncated, pos)
			}
			n := int(src[pos]) + 1
			pos++
			if pos+n > len(src) {
				return nil, fmt.Errorf("%w: literal run of %d bytes cut short at offset %d", press.ErrTruncated, n, pos)
			}
			dst = append(dst, src[pos:pos+n]...)
			pos += n

		case tagCompact:
			if pos+2 > len(src) {
				return nil, fmt.Errorf("%w: compact match cut short at offset %d", press.ErrTruncated, pos)
			}
			v := binary.LittleEndian.Uint16(src[pos:])
			pos += 2
			length := int(v>>10&0x3F) + MinMatchLength
			distance := int(v & 0x3FF)
			if length > compactMaxLength {
				return nil, fmt.Errorf("%w: compact match length %d outside 3..%d", press.ErrCorrupted, length, compactMaxLength)
			}
			var err error
			if dst, err = copyMatch(dst, length, distance, pos); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("%w: unknown record tag %#02x at offset %d", press.ErrCorrupted, tag, pos-1)
		}
	}
	return nil, fmt.Errorf("%w: stream ends without an end-of-stream record", press.ErrTruncated)
}

func copyMatch(dst []byte, length, distance, offset int) ([]byte, error) {
	if distance == 0 || distance > len(dst) {
		return nil, fmt.Errorf("%w: match distance %d with only %d bytes produced (record at offset %d)",
			press.ErrCorrupted, distance, len(dst), offset)
	}
	start := len(dst) - distance
	for i := 0; i < length; i++ {
		dst = append(dst, dst[start+i])
	}
	return dst, nil
}
