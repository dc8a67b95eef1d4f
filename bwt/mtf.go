package bwt

// The move-to-front transform over the full byte alphabet. Each encoded
// byte is the current rank of the input byte, after which that byte moves
// to rank 0, so recently seen values encode as small ranks.

func mtfAlphabet() [256]byte {
	var a [256]byte
	for i := range a {
		a[i] = byte(i)
	}
	return a
}

// mtfEncode replaces each byte with its current rank.
func mtfEncode(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dict := mtfAlphabet()
	dst := make([]byte, len(src))
	for i, b := range src {
		var rank int
		for dict[rank] != b {
			rank++
		}
		dst[i] = byte(rank)
		copy(dict[1:rank+1], dict[:rank])
		dict[0] = b
	}
	return dst
}

// mtfDecode replaces each rank with the byte currently holding it.
func mtfDecode(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dict := mtfAlphabet()
	dst := make([]byte, len(src))
	for i, r := range src {
		b := dict[r]
		dst[i] = b
		copy(dict[1:int(r)+1], dict[:r])
		dict[0] = b
	}
	return dst
}
