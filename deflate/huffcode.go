package deflate

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/pressio/press"
	"github.com/pressio/press/bitio"
)

// Canonical prefix codes over small alphabets. Codes are described purely
// by their per-symbol bit lengths: within one length, codes are assigned in
// ascending symbol order, so the decoder rebuilds the exact table from the
// lengths alone.

type hnode struct {
	weight      int
	seq         int
	left, right int32
	sym         int16
}

type hnodeQueue struct {
	nodes []hnode
	order []int32
}

func (q *hnodeQueue) Len() int { return len(q.order) }

func (q *hnodeQueue) Less(i, j int) bool {
	a, b := q.nodes[q.order[i]], q.nodes[q.order[j]]
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.seq < b.seq
}

func (q *hnodeQueue) Swap(i, j int) { q.order[i], q.order[j] = q.order[j], q.order[i] }

func (q *hnodeQueue) Push(x any) { q.order = append(q.order, x.(int32)) }

func (q *hnodeQueue) Pop() any {
	x := q.order[len(q.order)-1]
	q.order = q.order[:len(q.order)-1]
	return x
}

// codeLengths computes length-limited prefix code lengths for freqs. A
// single used symbol gets length 1; symbols with zero frequency get length
// 0 and no code.
func codeLengths(freqs []int, maxBits int) []uint8 {
	lens := make([]uint8, len(freqs))

	type leaf struct{ freq, sym int }
	var used []leaf
	for sym, f := range freqs {
		if f > 0 {
			used = append(used, leaf{freq: f, sym: sym})
		}
	}
	switch len(used) {
	case 0:
		return lens
	case 1:
		lens[used[0].sym] = 1
		return lens
	}

	// Standard Huffman tree over the used symbols; ties break toward
	// the earlier-created node so the build is deterministic.
	q := &hnodeQueue{nodes: make([]hnode, 0, 2*len(used))}
	for _, l := range used {
		q.order = append(q.order, int32(len(q.nodes)))
		q.nodes = append(q.nodes, hnode{weight: l.freq, seq: len(q.nodes), left: -1, right: -1, sym: int16(l.sym)})
	}
	heap.Init(q)
	for q.Len() > 1 {
		a := heap.Pop(q).(int32)
		b := heap.Pop(q).(int32)
		q.nodes = append(q.nodes, hnode{
			weight: q.nodes[a].weight + q.nodes[b].weight,
			seq:    len(q.nodes),
			left:   a,
			right:  b,
			sym:    -1,
		})
		heap.Push(q, int32(len(q.nodes)-1))
	}
	root := q.order[0]

	// Iterative depth-first length assignment, clamping depths beyond
	// the limit.
	type frame struct {
		node  int32
		depth int
	}
	counts := make([]int, maxBits+1)
	overflow := 0
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := q.nodes[f.node]
		if n.sym >= 0 {
			d := f.depth
			if d > maxBits {
				d = maxBits
				overflow++
			}
			lens[n.sym] = uint8(d)
			counts[d]++
			continue
		}
		stack = append(stack, frame{n.left, f.depth + 1}, frame{n.right, f.depth + 1})
	}

	if overflow > 0 {
		// Restore the Kraft inequality the way zlib does: move a leaf
		// down from the deepest underfull level, freeing room at
		// maxBits for two of the clamped leaves. Each move lowers the
		// Kraft sum by 2^-maxBits; repeat until it is at most 1.
		kraft := 0
		for bits := 1; bits <= maxBits; bits++ {
			kraft += counts[bits] << uint(maxBits-bits)
		}
		for kraft > 1<<uint(maxBits) {
			bits := maxBits - 1
			for counts[bits] == 0 {
				bits--
			}
			counts[bits]--
			counts[bits+1] += 2
			counts[maxBits]--
			kraft--
		}
		// Hand the fixed length multiset back to the symbols, rarer
		// symbols taking the longer codes.
		sort.Slice(used, func(i, j int) bool {
			if used[i].freq != used[j].freq {
				return used[i].freq > used[j].freq
			}
			return used[i].sym < used[j].sym
		})
		i := 0
		for bits := 1; bits <= maxBits; bits++ {
			for n := counts[bits]; n > 0; n-- {
				lens[used[i].sym] = uint8(bits)
				i++
			}
		}
	}
	return lens
}

// An encTable holds the canonical code of each symbol for writing.
type encTable struct {
	codes []uint32
	lens  []uint8
}

// canonicalCodes assigns codes to lengths: within each length, codes run
// in ascending symbol order.
func canonicalCodes(lens []uint8) encTable {
	var count [maxCodeBits + 1]int
	for _, l := range lens {
		count[l]++
	}
	count[0] = 0
	var next [maxCodeBits + 1]uint32
	code := uint32(0)
	for bits := 1; bits <= maxCodeBits; bits++ {
		code = (code + uint32(count[bits-1])) << 1
		next[bits] = code
	}

	t := encTable{codes: make([]uint32, len(lens)), lens: lens}
	for sym, l := range lens {
		if l == 0 {
			continue
		}
		t.codes[sym] = next[l]
		next[l]++
	}
	return t
}

func (t *encTable) write(w *bitio.Writer, sym int) {
	w.WriteBits(t.codes[sym], int(t.lens[sym]))
}

// A decTable decodes canonical codes bit by bit using per-length
// first-code offsets.
type decTable struct {
	firstCode  [maxCodeBits + 1]uint32
	firstIndex [maxCodeBits + 1]int
	count      [maxCodeBits + 1]int
	syms       []uint16 // symbols sorted by (length, symbol)
	maxLen     int
}

func newDecTable(lens []uint8) (*decTable, error) {
	t := &decTable{}
	total := 0
	for _, l := range lens {
		if int(l) > maxCodeBits {
			return nil, fmt.Errorf("%w: code length %d", press.ErrCorrupted, l)
		}
		if l > 0 {
			t.count[l]++
			total++
			if int(l) > t.maxLen {
				t.maxLen = int(l)
			}
		}
	}
	// Reject over-subscribed length sets; incomplete ones are fine (a
	// lone symbol of length 1 is the normal degenerate table).
	kraft := uint64(0)
	for bits := 1; bits <= maxCodeBits; bits++ {
		kraft += uint64(t.count[bits]) << uint(maxCodeBits-bits)
	}
	if kraft > 1<<maxCodeBits {
		return nil, fmt.Errorf("%w: over-subscribed code length set", press.ErrCorrupted)
	}

	code := uint32(0)
	index := 0
	for bits := 1; bits <= maxCodeBits; bits++ {
		code = (code + uint32(t.count[bits-1])) << 1
		t.firstCode[bits] = code
		t.firstIndex[bits] = index
		index += t.count[bits]
	}
	t.syms = make([]uint16, 0, total)
	for bits := 1; bits <= t.maxLen; bits++ {
		for sym, l := range lens {
			if int(l) == bits {
				t.syms = append(t.syms, uint16(sym))
			}
		}
	}
	return t, nil
}

// read consumes one canonical code from r and returns its symbol.
func (t *decTable) read(r *bitio.Reader) (int, error) {
	if len(t.syms) == 0 {
		return 0, fmt.Errorf("%w: code read from an empty table", press.ErrCorrupted)
	}
	code := uint32(0)
	for bits := 1; bits <= t.maxLen; bits++ {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		code <<= 1
		if b {
			code |= 1
		}
		if n := t.count[bits]; n > 0 {
			if off := code - t.firstCode[bits]; off < uint32(n) {
				return int(t.syms[t.firstIndex[bits]+int(off)]), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: bit sequence matches no code", press.ErrCorrupted)
}
