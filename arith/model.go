package arith

import (
	"fmt"
	"sort"

	"github.com/pressio/press"
)

// eofSymbol is the sentinel appended to every model, distinct from any real
// byte. It terminates decoding and always occupies the minimal cumulative
// width of 1.
const eofSymbol = 256

// maxTotal caps the sum of model frequencies. Totals above it are scaled
// down so that the range narrowing always keeps total far below the
// register quarter boundary.
const maxTotal = 1 << 32

// A model maps symbols to half-open cumulative frequency ranges
// [cum[i], cum[i+1]). Symbols are kept in ascending order so that the
// encoder and decoder lay out identical ranges from the same frequencies.
type model struct {
	syms  []uint16 // ascending; last entry is eofSymbol
	cum   []uint64 // len(syms)+1, cum[0] == 0
	total uint64   // == cum[len(syms)]
}

// newModel builds a model from per-byte counts. Present symbols keep at
// least frequency 1; if the raw total exceeds maxTotal all counts are
// scaled down proportionally (still at least 1 each).
func newModel(counts *[256]uint64) *model {
	var rawTotal uint64
	n := 0
	for _, c := range counts {
		if c > 0 {
			rawTotal += c
			n++
		}
	}

	m := &model{
		syms: make([]uint16, 0, n+1),
		cum:  make([]uint64, 1, n+2),
	}
	for sym, c := range counts {
		if c == 0 {
			continue
		}
		if rawTotal > maxTotal {
			if c = c * maxTotal / rawTotal; c == 0 {
				c = 1
			}
		}
		m.syms = append(m.syms, uint16(sym))
		m.cum = append(m.cum, m.cum[len(m.cum)-1]+c)
	}
	m.syms = append(m.syms, eofSymbol)
	m.cum = append(m.cum, m.cum[len(m.cum)-1]+1)
	m.total = m.cum[len(m.cum)-1]
	return m
}

// rangeOf returns the cumulative bounds of sym.
func (m *model) rangeOf(sym int) (cumLo, cumHi uint64, ok bool) {
	i := sort.Search(len(m.syms), func(i int) bool { return int(m.syms[i]) >= sym })
	if i == len(m.syms) || int(m.syms[i]) != sym {
		return 0, 0, false
	}
	return m.cum[i], m.cum[i+1], true
}

// find returns the symbol whose cumulative range contains scaled.
func (m *model) find(scaled uint64) (sym int, cumLo, cumHi uint64, ok bool) {
	if scaled >= m.total {
		return 0, 0, 0, false
	}
	// First i with cum[i+1] > scaled.
	i := sort.Search(len(m.syms), func(i int) bool { return m.cum[i+1] > scaled })
	return int(m.syms[i]), m.cum[i], m.cum[i+1], true
}

// appendFreqPairs serializes the model's byte symbols and their effective
// frequencies as (symbol, freq:u64le) pairs, excluding the EOF sentinel.
func (m *model) appendFreqPairs(dst []byte) []byte {
	for i, s := range m.syms {
		if s == eofSymbol {
			break
		}
		dst = append(dst, byte(s))
		dst = appendUint64(dst, m.cum[i+1]-m.cum[i])
	}
	return dst
}

// modelFromPairs rebuilds a model from parsed (symbol, frequency) pairs.
// Pairs must arrive in strictly ascending symbol order with non-zero
// frequencies; anything else cannot have come from the encoder.
func modelFromPairs(syms []byte, freqs []uint64) (*model, error) {
	m := &model{
		syms: make([]uint16, 0, len(syms)+1),
		cum:  make([]uint64, 1, len(syms)+2),
	}
	prev := -1
	for i, s := range syms {
		if int(s) <= prev {
			return nil, fmt.Errorf("%w: frequency table symbols out of order", press.ErrCorrupted)
		}
		prev = int(s)
		if freqs[i] == 0 {
			return nil, fmt.Errorf("%w: zero frequency for symbol %d", press.ErrCorrupted, s)
		}
		if freqs[i] > maxTotal {
			return nil, fmt.Errorf("%w: frequency %d for symbol %d exceeds scale cap", press.ErrCorrupted, freqs[i], s)
		}
		m.syms = append(m.syms, uint16(s))
		m.cum = append(m.cum, m.cum[len(m.cum)-1]+freqs[i])
	}
	m.syms = append(m.syms, eofSymbol)
	m.cum = append(m.cum, m.cum[len(m.cum)-1]+1)
	m.total = m.cum[len(m.cum)-1]
	return m, nil
}

func appendUint64(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
