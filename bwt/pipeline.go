package bwt

import (
	"encoding/binary"
	"fmt"

	"github.com/pressio/press"
	"github.com/pressio/press/huffman"
)

// Stream envelope. A 5-byte preamble:
//
//	"BWT", version byte 1, flags byte
//
// flags bit 0: the run-length filter was applied.
// flags bit 1: blocks hold raw BWT output with no MTF/RLE/entropy stage
// (used for inputs too small to be worth the full pipeline).
//
// Then per block: body length (u32, big-endian), primary index (u32,
// big-endian), body. Blocks concatenate until end of input.
const (
	preambleSize = 5
	version      = 1

	flagRLE    = 1 << 0
	flagStored = 1 << 1

	// Inputs shorter than this are stored as bare BWT blocks.
	minPipelineInput = 10

	// Inputs up to this size are transformed as a single block.
	singleBlockLimit = 100000

	// DefaultBlockSize is the block size used for larger inputs.
	DefaultBlockSize = 1 << 20
)

// Codec is the block-sorting codec. The zero value uses the default block
// size of one MiB.
type Codec struct {
	// BlockSize caps the bytes transformed per block for inputs larger
	// than the single-block limit.
	BlockSize int

	entropy huffman.Codec
}

// Encode compresses src.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	blockSize := c.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("%w: block size %d", press.ErrInvalidInput, blockSize)
	}

	if len(src) < minPipelineInput {
		dst := append(make([]byte, 0, preambleSize+8+len(src)), 'B', 'W', 'T', version, flagStored)
		l, primary := Transform(src)
		dst = appendBlockHeader(dst, uint32(len(l)), primary)
		return append(dst, l...), nil
	}

	dst := append(make([]byte, 0, len(src)/2+preambleSize), 'B', 'W', 'T', version, flagRLE)
	if len(src) <= singleBlockLimit {
		blockSize = len(src)
	}
	for start := 0; start < len(src); start += blockSize {
		end := start + blockSize
		if end > len(src) {
			end = len(src)
		}
		body, primary, err := c.encodeBlock(src[start:end])
		if err != nil {
			return nil, err
		}
		dst = appendBlockHeader(dst, uint32(len(body)), primary)
		dst = append(dst, body...)
	}
	return dst, nil
}

func (c *Codec) encodeBlock(block []byte) (body []byte, primary uint32, err error) {
	l, primary := Transform(block)
	body, err = c.entropy.Encode(runLengthEncode(mtfEncode(l)))
	if err != nil {
		return nil, 0, err
	}
	return body, primary, nil
}

// Decode reverses Encode.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	if len(src) < preambleSize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d for preamble", press.ErrTruncated, len(src), preambleSize)
	}
	if src[0] != 'B' || src[1] != 'W' || src[2] != 'T' {
		return nil, fmt.Errorf("%w: bad preamble % x", press.ErrCorrupted, src[:3])
	}
	if src[3] != version {
		return nil, fmt.Errorf("%w: unsupported version %d", press.ErrCorrupted, src[3])
	}
	flags := src[4]
	if flags&^(flagRLE|flagStored) != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#02x", press.ErrCorrupted, flags)
	}

	var dst []byte
	pos := preambleSize
	for pos < len(src) {
		if pos+8 > len(src) {
			return nil, fmt.Errorf("%w: block header cut short at offset %d", press.ErrTruncated, pos)
		}
		bodyLen := int(binary.BigEndian.Uint32(src[pos:]))
		primary := binary.BigEndian.Uint32(src[pos+4:])
		pos += 8
		if pos+bodyLen > len(src) {
			return nil, fmt.Errorf("%w: block body of %d bytes cut short at offset %d", press.ErrTruncated, bodyLen, pos)
		}
		body := src[pos : pos+bodyLen]
		pos += bodyLen

		block, err := c.decodeBlock(body, primary, flags)
		if err != nil {
			return nil, err
		}
		dst = append(dst, block...)
	}
	return dst, nil
}

func (c *Codec) decodeBlock(body []byte, primary uint32, flags byte) ([]byte, error) {
	if flags&flagStored != 0 {
		return Inverse(body, primary)
	}
	rle, err := c.entropy.Decode(body)
	if err != nil {
		return nil, err
	}
	mtf := rle
	if flags&flagRLE != 0 {
		if mtf, err = runLengthDecode(rle); err != nil {
			return nil, err
		}
	}
	return Inverse(mtfDecode(mtf), primary)
}

func appendBlockHeader(dst []byte, bodyLen, primary uint32) []byte {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:], bodyLen)
	binary.BigEndian.PutUint32(hdr[4:], primary)
	return append(dst, hdr[:]...)
}

func init() {
	press.Register(press.AlgorithmBWT, "bwt", func() press.Codec { return &Codec{} })
}
