// Package arith implements a 64-bit binary range coder and the adaptive
// codec built on it, which picks between arithmetic coding, run-length
// forms and plain storage per input.
package arith

import (
	"fmt"
	"math/bits"

	"github.com/pressio/press"
	"github.com/pressio/press/bitio"
)

// Register geometry. Registers hold 63 significant bits so that the range
// arithmetic never overflows a uint64 even before the 128-bit intermediate.
const (
	codeBits = 63
	top      = 1<<codeBits - 1
	firstQtr = (top + 1) / 4
	half     = 2 * firstQtr
	thirdQtr = 3 * firstQtr

	// renormCap bounds the renormalization loop per symbol. A 63-bit
	// register can never shift more often than its width; reaching the
	// cap means the state is wedged.
	renormCap = 100
)

// mulDiv returns a*b/c using a 128-bit intermediate. It requires b <= c so
// the quotient fits in 64 bits.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// An encoder narrows [low, high] by each symbol's cumulative range and
// emits the bits the two registers agree on, with E2-style underflow
// tracking while they disagree only at the second MSB.
type encoder struct {
	w         bitio.Writer
	low, high uint64
	underflow int
}

func newEncoder() *encoder {
	return &encoder{high: top}
}

func (e *encoder) emit(bit bool) {
	e.w.WriteBit(bit)
	for ; e.underflow > 0; e.underflow-- {
		e.w.WriteBit(!bit)
	}
}

func (e *encoder) encode(m *model, sym int) error {
	cumLo, cumHi, ok := m.rangeOf(sym)
	if !ok {
		return fmt.Errorf("%w: symbol %d not in model", press.ErrCorrupted, sym)
	}
	size := e.high - e.low + 1
	e.high = e.low + mulDiv(size, cumHi, m.total) - 1
	e.low = e.low + mulDiv(size, cumLo, m.total)
	if e.high <= e.low {
		// Range underflow; reset to full range rather than wedge.
		e.low, e.high = 0, top
		return fmt.Errorf("%w: range collapsed while encoding", press.ErrOverflow)
	}

	for i := 0; ; i++ {
		if i >= renormCap {
			return fmt.Errorf("%w: renormalization did not converge", press.ErrOverflow)
		}
		switch {
		case e.high&half == e.low&half:
			e.emit(e.high&half != 0)
			e.low = e.low << 1 & top
			e.high = e.high<<1&top | 1
		case e.low >= firstQtr && e.high < thirdQtr:
			e.underflow++
			e.low = (e.low - firstQtr) << 1
			e.high = (e.high-firstQtr)<<1 | 1
		default:
			return nil
		}
	}
}

// finish terminates the stream with a bit selecting the final range plus
// the pending underflow bits, and returns the padded byte stream.
func (e *encoder) finish() []byte {
	e.underflow++
	e.emit(e.low >= firstQtr)
	return e.w.Bytes()
}

// A decoder mirrors the encoder, tracking the current window of code bits
// in value. Bits past the end of the input read as zero.
type decoder struct {
	r         *bitio.Reader
	low, high uint64
	value     uint64
}

func newDecoder(src []byte) *decoder {
	d := &decoder{r: bitio.NewReader(src), high: top}
	for i := 0; i < codeBits; i++ {
		d.value = d.value<<1 | d.nextBit()
	}
	return d
}

func (d *decoder) nextBit() uint64 {
	if d.r.Remaining() == 0 {
		return 0
	}
	bit, _ := d.r.ReadBit()
	if bit {
		return 1
	}
	return 0
}

func (d *decoder) decode(m *model) (int, error) {
	// scaled = ((value-low+1)*total - 1) / size, with a 128-bit
	// intermediate. The +1/-1 pair undoes the truncation bias of the
	// encoder's range narrowing, so every value the encoder could have
	// settled on maps back into the emitting symbol's cumulative range.
	size := d.high - d.low + 1
	hi, lo := bits.Mul64(d.value-d.low+1, m.total)
	var borrow uint64
	lo, borrow = bits.Sub64(lo, 1, 0)
	hi -= borrow
	scaled, _ := bits.Div64(hi, lo, size)
	sym, cumLo, cumHi, ok := m.find(scaled)
	if !ok {
		return 0, fmt.Errorf("%w: code value outside every symbol range", press.ErrCorrupted)
	}

	d.high = d.low + mulDiv(size, cumHi, m.total) - 1
	d.low = d.low + mulDiv(size, cumLo, m.total)
	if d.high <= d.low {
		d.low, d.high = 0, top
		return 0, fmt.Errorf("%w: range collapsed while decoding", press.ErrOverflow)
	}

	for i := 0; ; i++ {
		if i >= renormCap {
			return 0, fmt.Errorf("%w: renormalization did not converge", press.ErrOverflow)
		}
		switch {
		case d.high&half == d.low&half:
			d.low = d.low << 1 & top
			d.high = d.high<<1&top | 1
			d.value = d.value<<1&top | d.nextBit()
		case d.low >= firstQtr && d.high < thirdQtr:
			d.low = (d.low - firstQtr) << 1
			d.high = (d.high-firstQtr)<<1 | 1
			d.value = (d.value-firstQtr)<<1 | d.nextBit()
		default:
			return sym, nil
		}
	}
}
