package lz77

// Parse runs the configured parser over src and returns the chosen
// matches, for callers that pair the match finder with their own back-end
// encoder. The configuration is validated after defaults are applied.
func Parse(src []byte, cfg Config) ([]Match, error) {
	if len(src) == 0 {
		return nil, nil
	}
	cfg.setDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	return parse(src, &cfg), nil
}

// parse runs the configured parser over src and returns the chosen matches.
// The returned slice covers all of src: the sum of Unmatched and Length
// over all entries equals len(src).
func parse(src []byte, cfg *Config) []Match {
	f := newMatchFinder(src, cfg)
	switch cfg.Parser {
	case ParserGreedy:
		return greedyParse(f)
	case ParserOptimal:
		return optimalParse(f)
	default:
		return lazyParse(f)
	}
}

// insertRange records hash entries for the consumed range of a match. The
// aggressive mode inserts every position; otherwise every ceil(length/8)-th.
func insertRange(f *matchFinder, pos, length int) {
	stride := 1
	if !f.cfg.Aggressive {
		stride = (length + 7) / 8
	}
	for i := 0; i < length; i += stride {
		f.insert(pos + i)
	}
}

// greedyParse takes the best match at every position, emitting a literal
// and advancing one byte when no match has positive benefit.
func greedyParse(f *matchFinder) []Match {
	src := f.src
	var dst []Match
	nextEmit := 0
	for p := 0; p < len(src); {
		l, d := f.bestMatch(p)
		if l == 0 {
			f.insert(p)
			p++
			continue
		}
		dst = append(dst, Match{Unmatched: p - nextEmit, Length: l, Distance: d})
		insertRange(f, p, l)
		p += l
		nextEmit = p
	}
	if nextEmit < len(src) {
		dst = append(dst, Match{Unmatched: len(src) - nextEmit})
	}
	return dst
}

// lazyParse also evaluates the following position before committing to a
// match; if that match is longer and scores strictly better, the current
// byte becomes a literal and the decision is replayed one byte later. The aggressive mode
// extends the lookahead by one more byte.
func lazyParse(f *matchFinder) []Match {
	src := f.src
	var dst []Match
	nextEmit := 0
	for p := 0; p < len(src); {
		l, d := f.bestMatch(p)
		if l == 0 {
			f.insert(p)
			p++
			continue
		}
		score := l - tokenCost(l, d)

		if p+1 < len(src) {
			l1, d1 := f.bestMatch(p + 1)
			if l1 > l && l1-tokenCost(l1, d1) > score {
				// The deferred match dominates; emit one
				// literal and re-evaluate there.
				f.insert(p)
				p++
				continue
			}
		}

		if f.cfg.Aggressive && p+2 < len(src) {
			l2, d2 := f.bestMatch(p + 2)
			if l2 > l+1 && l2-tokenCost(l2, d2) > score+2 {
				f.insert(p)
				f.insert(p + 1)
				p += 2
				continue
			}
		}

		dst = append(dst, Match{Unmatched: p - nextEmit, Length: l, Distance: d})
		insertRange(f, p, l)
		p += l
		nextEmit = p
	}
	if nextEmit < len(src) {
		dst = append(dst, Match{Unmatched: len(src) - nextEmit})
	}
	return dst
}

// optimalParse computes a minimum-cost parse by dynamic programming from
// the end of the input toward the front. Candidate matches at each position
// are the finder's best match truncated to every acceptable length, all at
// the same distance. Ties break toward the shorter token encoding.
func optimalParse(f *matchFinder) []Match {
	src := f.src
	n := len(src)

	type choice struct {
		length   int // 0 for a literal step
		distance int
	}
	cost := make([]int32, n+1)
	chosen := make([]choice, n)

	// Seed the finder's chains with every position in a forward pass
	// first; bestMatch skips positions at or after the one searched.
	for p := 0; p < n; p++ {
		f.insert(p)
	}

	for p := n - 1; p >= 0; p-- {
		// Literal step, charged one byte; the literal-run header is
		// not counted.
		cost[p] = 1 + cost[p+1]
		chosen[p] = choice{}

		l, d := f.bestMatch(p)
		if l == 0 {
			continue
		}
		for ml := f.minLengthFor(d); ml <= l && p+ml <= n; ml++ {
			if ml == MinMatchLength && d > 8192 {
				continue
			}
			c := int32(tokenCost(ml, d))
			if c+cost[p+ml] < cost[p] {
				cost[p] = c + cost[p+ml]
				chosen[p] = choice{length: ml, distance: d}
			}
		}
	}

	var dst []Match
	nextEmit := 0
	for p := 0; p < n; {
		ch := chosen[p]
		if ch.length == 0 {
			p++
			continue
		}
		dst = append(dst, Match{Unmatched: p - nextEmit, Length: ch.length, Distance: ch.distance})
		p += ch.length
		nextEmit = p
	}
	if nextEmit < n {
		dst = append(dst, Match{Unmatched: n - nextEmit})
	}
	return dst
}
