package he

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"time"

	"github.com/rcrowley/go-metrics"
)

const (
	// BitWidth fixes the scaling factor Δ = 2^(BitWidth-1).
	BitWidth         = 32
	DefaultDimension = 512
	DefaultNoiseBits = 14
	MaxNoiseBits     = BitWidth - 2

	MetricsPrefix = "zerotrustdb.he"
)

var (
	ErrIntegerOverflow     = errors.New("cipher arithmetic exceeds integer width")
	ErrNoiseBudgetExceeded = errors.New("ciphertext noise budget exceeded")
	ErrDimensionMismatch   = errors.New("ciphertext dimension mismatch")
	ErrKeyDestroyed        = errors.New("secret key destroyed")
)

var (
	delta     = new(big.Int).Lsh(big.NewInt(1), BitWidth-1)
	halfDelta = new(big.Int).Lsh(big.NewInt(1), BitWidth-2)

	encryptTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.encrypt", MetricsPrefix), nil)
	decryptTimer = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.decrypt", MetricsPrefix), nil)
	addTimer     = metrics.GetOrRegisterTimer(fmt.Sprintf("%s.add", MetricsPrefix), nil)
)

// Ciphertext is a (mask, body) pair. Terms counts the fresh encryptions
// that were added together to produce it.
type Ciphertext struct {
	Mask  []uint64
	Body  *big.Int
	Terms int
}

// Clone returns a deep copy of ct.
func (ct Ciphertext) Clone() Ciphertext {
	mask := make([]uint64, len(ct.Mask))
	copy(mask, ct.Mask)

	var body *big.Int
	if ct.Body != nil {
		body = new(big.Int).Set(ct.Body)
	}

	return Ciphertext{Mask: mask, Body: body, Terms: ct.Terms}
}

type Cipher struct {
	key        *SecretKey
	noiseBits  uint
	noiseBound *big.Int
	maxTerms   int
}

type Option func(*Cipher)

// WithNoiseBits sets the per-encryption noise bound to 2^n. Larger noise
// leaves room for fewer additions.
func WithNoiseBits(n uint) Option {
	return func(c *Cipher) {
		c.noiseBits = n
	}
}

func New(key *SecretKey, opts ...Option) (*Cipher, error) {
	if !key.IsAlive() {
		return nil, ErrKeyDestroyed
	}

	c := &Cipher{
		key:       key,
		noiseBits: DefaultNoiseBits,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.noiseBits == 0 || c.noiseBits > MaxNoiseBits {
		return nil, fmt.Errorf("noise bits must be in [1, %d], got %d", MaxNoiseBits, c.noiseBits)
	}

	c.noiseBound = new(big.Int).Lsh(big.NewInt(1), c.noiseBits)
	c.maxTerms = 1 << (MaxNoiseBits - c.noiseBits)

	return c, nil
}

func (c *Cipher) Dimension() int {
	return c.key.Dimension()
}

func (c *Cipher) NoiseBits() uint {
	return c.noiseBits
}

// MaxTerms is the largest number of fresh ciphertexts that may be summed
// while decryption stays exact.
func (c *Cipher) MaxTerms() int {
	return c.maxTerms
}

func (c *Cipher) Encrypt(plaintext *big.Int) (Ciphertext, error) {
	defer encryptTimer.UpdateSince(time.Now())

	mask, err := c.sampleMask()
	if err != nil {
		return Ciphertext{}, err
	}

	noise, err := rand.Int(rand.Reader, c.noiseBound)
	if err != nil {
		return Ciphertext{}, fmt.Errorf("failed to sample noise: %w", err)
	}

	inner, err := c.innerProduct(mask)
	if err != nil {
		return Ciphertext{}, err
	}

	body := new(big.Int).Mul(plaintext, delta)
	body.Add(body, inner)
	body.Add(body, noise)

	return Ciphertext{Mask: mask, Body: body, Terms: 1}, nil
}

func (c *Cipher) EncryptInt64(plaintext int64) (Ciphertext, error) {
	return c.Encrypt(big.NewInt(plaintext))
}

func (c *Cipher) Decrypt(ct Ciphertext) (*big.Int, error) {
	defer decryptTimer.UpdateSince(time.Now())

	if ct.Body == nil {
		return nil, fmt.Errorf("ciphertext has no body")
	}

	inner, err := c.innerProduct(ct.Mask)
	if err != nil {
		return nil, err
	}

	// floor((body - <mask, key> + Δ/2) / Δ); Rsh floors negative values too.
	plaintext := new(big.Int).Sub(ct.Body, inner)
	plaintext.Add(plaintext, halfDelta)
	plaintext.Rsh(plaintext, BitWidth-1)

	return plaintext, nil
}

// DecryptInt64 decrypts ct and fails with ErrIntegerOverflow when the
// plaintext does not fit in an int64.
func (c *Cipher) DecryptInt64(ct Ciphertext) (int64, error) {
	plaintext, err := c.Decrypt(ct)
	if err != nil {
		return 0, err
	}
	if !plaintext.IsInt64() {
		return 0, fmt.Errorf("%w: plaintext %s", ErrIntegerOverflow, plaintext)
	}
	return plaintext.Int64(), nil
}

// Add returns a ciphertext of the sum of the plaintexts of a and b.
func (c *Cipher) Add(a, b Ciphertext) (Ciphertext, error) {
	defer addTimer.UpdateSince(time.Now())

	dimension := c.Dimension()
	if len(a.Mask) != dimension || len(b.Mask) != dimension {
		return Ciphertext{}, fmt.Errorf("%w: expected %d, got %d and %d", ErrDimensionMismatch, dimension, len(a.Mask), len(b.Mask))
	}
	if a.Body == nil || b.Body == nil {
		return Ciphertext{}, fmt.Errorf("ciphertext has no body")
	}
	if a.Terms+b.Terms > c.maxTerms {
		return Ciphertext{}, fmt.Errorf("%w: %d terms, limit %d", ErrNoiseBudgetExceeded, a.Terms+b.Terms, c.maxTerms)
	}

	mask := make([]uint64, dimension)
	for i := range mask {
		var carry uint64
		mask[i], carry = bits.Add64(a.Mask[i], b.Mask[i], 0)
		if carry != 0 {
			return Ciphertext{}, fmt.Errorf("%w: mask word %d", ErrIntegerOverflow, i)
		}
	}

	return Ciphertext{
		Mask:  mask,
		Body:  new(big.Int).Add(a.Body, b.Body),
		Terms: a.Terms + b.Terms,
	}, nil
}

func (c *Cipher) sampleMask() ([]uint64, error) {
	dimension := c.Dimension()
	buf := make([]byte, dimension*4)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to sample mask: %w", err)
	}

	mask := make([]uint64, dimension)
	for i := range mask {
		mask[i] = uint64(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return mask, nil
}

// innerProduct accumulates <mask, key> in 128 bits.
func (c *Cipher) innerProduct(mask []uint64) (*big.Int, error) {
	key, err := c.key.words()
	if err != nil {
		return nil, err
	}
	if len(mask) != len(key) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, len(key), len(mask))
	}

	var hi, lo uint64
	for i, m := range mask {
		productHi, productLo := bits.Mul64(m, uint64(key[i]))

		var carry uint64
		lo, carry = bits.Add64(lo, productLo, 0)
		hi, carry = bits.Add64(hi, productHi, carry)
		if carry != 0 {
			return nil, fmt.Errorf("%w: inner product", ErrIntegerOverflow)
		}
	}

	inner := new(big.Int).SetUint64(hi)
	inner.Lsh(inner, 64)
	inner.Or(inner, new(big.Int).SetUint64(lo))
	return inner, nil
}
