package press

// Identity is the no-op codec: Encode and Decode return their input
// unchanged. It serves as the reference oracle for container and benchmark
// tests.
type Identity struct{}

func (Identity) Encode(src []byte) ([]byte, error) { return src, nil }

func (Identity) Decode(src []byte) ([]byte, error) { return src, nil }

func init() {
	Register(AlgorithmIdentity, "null", func() Codec { return Identity{} })
}
