// Package rle implements run-length encoding as a stream of (count, value)
// byte pairs with run lengths from 1 to 255. It is the simplest real codec
// in the module; incompressible input expands by a factor of two.
package rle

import (
	"fmt"

	"github.com/pressio/press"
)

// Codec is the run-length codec. The zero value is ready to use.
type Codec struct{}

// Encode emits one (count, value) pair per maximal run, splitting runs
// longer than 255 bytes.
func (Codec) Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst := make([]byte, 0, len(src)/2+2)
	cur := src[0]
	count := 1
	for _, b := range src[1:] {
		if b == cur && count < 255 {
			count++
			continue
		}
		dst = append(dst, byte(count), cur)
		cur = b
		count = 1
	}
	dst = append(dst, byte(count), cur)
	return dst, nil
}

// Decode expands (count, value) pairs. A zero count or an odd-length input
// is corrupt.
func (Codec) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	if len(src)%2 != 0 {
		return nil, fmt.Errorf("%w: odd-length RLE body (%d bytes)", press.ErrCorrupted, len(src))
	}
	var total int
	for i := 0; i < len(src); i += 2 {
		if src[i] == 0 {
			return nil, fmt.Errorf("%w: zero run count at offset %d", press.ErrCorrupted, i)
		}
		total += int(src[i])
	}
	dst := make([]byte, 0, total)
	for i := 0; i < len(src); i += 2 {
		count, value := int(src[i]), src[i+1]
		for j := 0; j < count; j++ {
			dst = append(dst, value)
		}
	}
	return dst, nil
}

func init() {
	press.Register(press.AlgorithmRLE, "rle", func() press.Codec { return Codec{} })
}
