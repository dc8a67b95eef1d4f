// Package lz77 implements dictionary coding over a sliding window of up to
// 32768 bytes. A hash-chain match finder feeds a greedy, lazy or optimal
// parser; the chosen matches are serialized as a byte-oriented token stream
// with a compact encoding for short, near matches.
package lz77

import (
	"fmt"

	"github.com/pressio/press"
)

const (
	// MaxWindowSize is the largest supported match distance.
	MaxWindowSize = 32768

	// MinMatchLength and MaxMatchLength bound the length of any match
	// token.
	MinMatchLength = 3
	MaxMatchLength = 258

	// Chain limits outside this range are rejected by Verify.
	MinChainLimit = 64
	MaxChainLimit = 8192

	// A match at least this long is good enough to stop searching the
	// chain early.
	satisfactoryLength = 64
)

// ParserMode selects the strategy used to choose between overlapping match
// candidates.
type ParserMode int

const (
	// ParserLazy evaluates the next position before committing to a
	// match. It is the default.
	ParserLazy ParserMode = iota

	// ParserGreedy always takes the best match at the current position.
	ParserGreedy

	// ParserOptimal computes a minimum-cost parse by dynamic programming.
	// Intended for small inputs; memory is linear in the input size but
	// the constant is large.
	ParserOptimal
)

// Config holds the encoder tuning knobs. The zero value selects the
// defaults: a full 32768-byte window, lengths 3..258, lazy parsing, and a
// chain limit of 8192.
type Config struct {
	// WindowSize is the maximum match distance, at most 32768.
	WindowSize int

	// MinMatch and MaxMatch bound accepted match lengths.
	MinMatch int
	MaxMatch int

	// Parser selects the parsing strategy.
	Parser ParserMode

	// Aggressive spends more effort: denser hash insertion and a two-step
	// lookahead in the lazy parser. The chain walk stays bounded by
	// ChainLimit either way.
	Aggressive bool

	// AdaptiveMinMatch raises the minimum accepted match length with
	// distance, so that far-away short matches whose tokens cost more
	// than the bytes they replace are never emitted.
	AdaptiveMinMatch bool

	// ChainLimit bounds how many chain entries are examined per
	// position; it must lie in 64..8192.
	ChainLimit int
}

func (c *Config) setDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = MaxWindowSize
	}
	if c.MinMatch == 0 {
		c.MinMatch = MinMatchLength
	}
	if c.MaxMatch == 0 {
		c.MaxMatch = MaxMatchLength
	}
	if c.ChainLimit == 0 {
		c.ChainLimit = MaxChainLimit
	}
}

// Verify reports whether the configuration is usable after defaults have
// been applied.
func (c *Config) Verify() error {
	if c.WindowSize <= 0 || c.WindowSize > MaxWindowSize {
		return fmt.Errorf("%w: window size %d outside 1..%d", press.ErrInvalidInput, c.WindowSize, MaxWindowSize)
	}
	if c.MinMatch < MinMatchLength {
		return fmt.Errorf("%w: minimum match %d below %d", press.ErrInvalidInput, c.MinMatch, MinMatchLength)
	}
	if c.MaxMatch < c.MinMatch || c.MaxMatch > MaxMatchLength {
		return fmt.Errorf("%w: maximum match %d outside %d..%d", press.ErrInvalidInput, c.MaxMatch, c.MinMatch, MaxMatchLength)
	}
	if c.ChainLimit < MinChainLimit || c.ChainLimit > MaxChainLimit {
		return fmt.Errorf("%w: chain limit %d outside %d..%d", press.ErrInvalidInput, c.ChainLimit, MinChainLimit, MaxChainLimit)
	}
	if c.Parser < ParserLazy || c.Parser > ParserOptimal {
		return fmt.Errorf("%w: unknown parser mode %d", press.ErrInvalidInput, c.Parser)
	}
	return nil
}

// DefaultConfig returns the configuration used by the registered codec:
// lazy parsing with adaptive minimum match lengths.
func DefaultConfig() Config {
	return Config{AdaptiveMinMatch: true}
}

// A Match describes a run of unmatched literal bytes followed by a
// length/distance copy. A Length of zero marks trailing literals at the end
// of the parse.
type Match struct {
	Unmatched int // literal bytes preceding the match
	Length    int // match length, 0 or MinMatch..MaxMatch
	Distance  int // how far back to copy from, 1..WindowSize
}

// Codec is the LZ77 codec. Configuration fields must not be mutated once
// the codec is in use.
type Codec struct {
	Config Config
}

// Encode compresses src into the tagged token stream.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	cfg := c.Config
	cfg.setDefaults()
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	matches := parse(src, &cfg)
	return appendTokens(make([]byte, 0, len(src)/2+16), src, matches), nil
}

// Decode reverses Encode.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	return decodeTokens(src)
}

func init() {
	press.Register(press.AlgorithmLZ77, "lz77", func() press.Codec {
		return &Codec{Config: DefaultConfig()}
	})
}
