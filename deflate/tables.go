package deflate

// The standard Deflate length and distance code tables. Lengths 3..258 map
// to codes 257..285 in the literal/length alphabet; distances 1..32768 map
// to codes 0..29. Both are process-wide constants, immutable after init.

const (
	endOfBlock  = 256
	numLitLen   = 286
	numDist     = 30
	numCodeLen  = 19
	maxCodeBits = 15
	maxCLBits   = 7
)

var lengthBase = [29]int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtra = [29]int{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

var distBase = [30]int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
	8193, 12289, 16385, 24577,
}

var distExtra = [30]int{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// clOrder is the order in which code-length code lengths are transmitted,
// most useful symbols first so trailing zeros can be trimmed.
var clOrder = [numCodeLen]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// lengthCode maps a match length to its code index (0..28, for symbols
// 257..285).
var lengthCode [259]uint16

// distCodeOf returns the distance code for d in 1..32768.
func distCodeOf(d int) int {
	for c := numDist - 1; c >= 0; c-- {
		if d >= distBase[c] {
			return c
		}
	}
	return 0
}

func init() {
	for c := 0; c < 29; c++ {
		hi := 258
		if c < 28 {
			hi = lengthBase[c+1] - 1
		}
		for l := lengthBase[c]; l <= hi; l++ {
			lengthCode[l] = uint16(c)
		}
	}
}
