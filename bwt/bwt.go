// Package bwt implements a block-sorting codec: a Burrows-Wheeler transform
// over fixed-size blocks, followed by a move-to-front transform, a short
// run-length filter and a Huffman entropy back-end.
package bwt

import (
	"fmt"
	"sort"

	"github.com/pressio/press"
)

// Transform computes the Burrows-Wheeler transform of block: the last
// column L of the sorted rotation matrix and the primary index, the row
// that equals the original block.
func Transform(block []byte) (l []byte, primary uint32) {
	if len(block) == 0 {
		return nil, 0
	}
	sa := rotationArray(block)
	n := len(block)
	l = make([]byte, n)
	for i, s := range sa {
		l[i] = block[(int(s)+n-1)%n]
		if s == 0 {
			primary = uint32(i)
		}
	}
	return l, primary
}

// Inverse reverses Transform in linear time using the LF-mapping.
func Inverse(l []byte, primary uint32) ([]byte, error) {
	n := len(l)
	if n == 0 {
		return nil, nil
	}
	if int(primary) >= n {
		return nil, fmt.Errorf("%w: primary index %d for %d-byte block", press.ErrCorrupted, primary, n)
	}

	var count [256]int32
	for _, b := range l {
		count[b]++
	}
	var start [256]int32
	var sum int32
	for c := 0; c < 256; c++ {
		start[c] = sum
		sum += count[c]
	}
	next := make([]int32, n)
	for i, b := range l {
		next[start[b]] = int32(i)
		start[b]++
	}

	block := make([]byte, n)
	idx := next[primary]
	for i := 0; i < n; i++ {
		block[i] = l[idx]
		idx = next[idx]
	}
	return block, nil
}

// rotationArray returns the indices of the block's rotations in
// lexicographic order. Small blocks are comparison sorted; larger ones use
// prefix doubling with a stable counting sort per round.
func rotationArray(block []byte) []int32 {
	n := len(block)
	sa := make([]int32, n)
	for i := range sa {
		sa[i] = int32(i)
	}
	if n < 100 {
		sort.Slice(sa, func(a, b int) bool {
			return lessRotation(block, sa[a], sa[b])
		})
		return sa
	}

	rank := make([]int32, n)
	newRank := make([]int32, n)
	tmp := make([]int32, n)
	nbuckets := n
	if nbuckets < 256 {
		nbuckets = 256
	}
	count := make([]int32, nbuckets)

	for i, b := range block {
		rank[i] = int32(b)
	}
	// The first round expects the array already sorted by that rank.
	sort.SliceStable(sa, func(a, b int) bool { return block[sa[a]] < block[sa[b]] })

	for h := 1; h < n; h *= 2 {
		// The array is sorted by rank from the previous round, which
		// is the second component of the pair at position i-h. One
		// stable counting sort keyed on that component, walked in
		// reverse, therefore sorts by (rank[i], rank[i+h]).
		for i := range count {
			count[i] = 0
		}
		for _, s := range sa {
			count[rank[(int(s)-h+n)%n]]++
		}
		for i := 1; i < len(count); i++ {
			count[i] += count[i-1]
		}
		for i := n - 1; i >= 0; i-- {
			pos := int32((int(sa[i]) - h + n) % n)
			count[rank[pos]]--
			tmp[count[rank[pos]]] = pos
		}
		sa, tmp = tmp, sa

		newRank[sa[0]] = 0
		for i := 1; i < n; i++ {
			a, b := sa[i], sa[i-1]
			same := rank[a] == rank[b] &&
				rank[(int(a)+h)%n] == rank[(int(b)+h)%n]
			if same {
				newRank[a] = newRank[b]
			} else {
				newRank[a] = newRank[b] + 1
			}
		}
		rank, newRank = newRank, rank

		if rank[sa[n-1]] == int32(n-1) {
			break
		}
	}
	return sa
}

func lessRotation(block []byte, i, j int32) bool {
	n := int32(len(block))
	for k := int32(0); k < n; k++ {
		ci := block[(i+k)%n]
		cj := block[(j+k)%n]
		if ci != cj {
			return ci < cj
		}
	}
	return i < j
}
