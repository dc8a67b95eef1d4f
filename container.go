package press

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Container header layout, 18 bytes:
//
//	[0:4]   magic "CPRO"
//	[4]     format version (1)
//	[5]     algorithm ID
//	[6:14]  original payload length, little-endian
//	[14:18] CRC-32 of the original payload, little-endian
//
// The length and checksum describe the decoded payload, not the compressed
// body that follows the header.

var magic = []byte{'C', 'P', 'R', 'O'}

const (
	// FormatVersion is the current container format version.
	FormatVersion = 1

	// HeaderSize is the size of the serialized container header in bytes.
	HeaderSize = 18
)

// A Header describes the payload of a compressed container.
type Header struct {
	Version          uint8
	Algorithm        AlgorithmID
	OriginalSize     uint64
	OriginalChecksum uint32
}

// MarshalBinary serializes the header into its fixed 18-byte layout.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf, magic)
	buf[4] = h.Version
	buf[5] = byte(h.Algorithm)
	binary.LittleEndian.PutUint64(buf[6:], h.OriginalSize)
	binary.LittleEndian.PutUint32(buf[14:], h.OriginalChecksum)
	return buf, nil
}

// UnmarshalBinary parses and validates a serialized header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: %d bytes, want at least %d for header", ErrTruncated, len(data), HeaderSize)
	}
	if !bytes.Equal(data[:4], magic) {
		return fmt.Errorf("%w: bad magic % x", ErrCorrupted, data[:4])
	}
	if data[4] != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrCorrupted, data[4])
	}
	h.Version = data[4]
	h.Algorithm = AlgorithmID(data[5])
	h.OriginalSize = binary.LittleEndian.Uint64(data[6:])
	h.OriginalChecksum = binary.LittleEndian.Uint32(data[14:])
	return nil
}

// Wrap encodes src with c and prepends a container header recording id, the
// original length and the original CRC-32.
func Wrap(c Codec, id AlgorithmID, src []byte) ([]byte, error) {
	payload, err := c.Encode(src)
	if err != nil {
		return nil, err
	}
	h := Header{
		Version:          FormatVersion,
		Algorithm:        id,
		OriginalSize:     uint64(len(src)),
		OriginalChecksum: Checksum(src),
	}
	buf, _ := h.MarshalBinary()
	return append(buf, payload...), nil
}

// Unwrap parses the container header of src, decodes the payload with the
// codec registered for the header's algorithm ID, and verifies the decoded
// length and checksum against the header.
func Unwrap(src []byte) ([]byte, error) {
	var h Header
	if err := h.UnmarshalBinary(src); err != nil {
		return nil, err
	}
	c, err := New(h.Algorithm)
	if err != nil {
		return nil, err
	}
	return UnwrapWith(c, src)
}

// UnwrapWith is Unwrap with an explicit codec, bypassing the registry. The
// codec must match the header's algorithm ID semantics.
func UnwrapWith(c Codec, src []byte) ([]byte, error) {
	var h Header
	if err := h.UnmarshalBinary(src); err != nil {
		return nil, err
	}
	out, err := c.Decode(src[HeaderSize:])
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != h.OriginalSize {
		return nil, fmt.Errorf("%w: decoded %d bytes, header says %d", ErrLengthMismatch, len(out), h.OriginalSize)
	}
	if sum := Checksum(out); sum != h.OriginalChecksum {
		return nil, fmt.Errorf("%w: decoded payload CRC %08x, header says %08x", ErrChecksumMismatch, sum, h.OriginalChecksum)
	}
	return out, nil
}
