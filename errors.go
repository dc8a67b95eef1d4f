package press

import "errors"

// The error taxonomy shared by every codec in the module. Codec functions
// never partially succeed: on any error they return nil output and an error
// wrapping exactly one of these sentinels, so callers can classify failures
// with errors.Is.
var (
	// ErrTruncated reports that a reader ran out of bytes or bits before
	// the expected structure completed.
	ErrTruncated = errors.New("press: truncated input")

	// ErrCorrupted reports a violated structural invariant: bad magic,
	// unknown version or algorithm ID, an impossible code walk, an
	// out-of-range match distance, and the like.
	ErrCorrupted = errors.New("press: corrupted input")

	// ErrChecksumMismatch reports that a decoded payload's CRC-32
	// disagrees with the container header's.
	ErrChecksumMismatch = errors.New("press: checksum mismatch")

	// ErrLengthMismatch reports that a decoded payload's length disagrees
	// with the container header's.
	ErrLengthMismatch = errors.New("press: length mismatch")

	// ErrInvalidInput reports an invalid codec configuration or codec
	// name, such as an LZ77 window size beyond 32768.
	ErrInvalidInput = errors.New("press: invalid input")

	// ErrOverflow reports that an internal arithmetic guard fired, such
	// as a range underflow or an exceeded iteration cap.
	ErrOverflow = errors.New("press: internal overflow")
)
