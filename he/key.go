package he

import (
	"fmt"

	"github.com/awnumar/memguard"
)

// SecretKey holds the key words in a locked, read-only memory region.
// It is generated once, never mutated and never serialized.
type SecretKey struct {
	buf       *memguard.LockedBuffer
	dimension int
}

// GenerateKey samples a key of dimension random 32-bit words.
func GenerateKey(dimension int) (*SecretKey, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid key dimension %d", dimension)
	}

	buf := memguard.NewBufferRandom(dimension * 4)
	buf.Freeze()

	return &SecretKey{
		buf:       buf,
		dimension: dimension,
	}, nil
}

func (k *SecretKey) Dimension() int {
	return k.dimension
}

// IsAlive returns false once the key has been destroyed.
func (k *SecretKey) IsAlive() bool {
	return k != nil && k.buf.IsAlive()
}

// Destroy wipes the key. Ciphertexts produced under it can no longer be
// decrypted by anyone.
func (k *SecretKey) Destroy() {
	k.buf.Destroy()
}

func (k *SecretKey) words() ([]uint32, error) {
	if !k.IsAlive() {
		return nil, ErrKeyDestroyed
	}
	return k.buf.Uint32(), nil
}
