package he

import (
	"math"
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T, opts ...Option) *Cipher {
	t.Helper()

	key, err := GenerateKey(DefaultDimension)
	require.NoError(t, err)
	t.Cleanup(key.Destroy)

	cipher, err := New(key, opts...)
	require.NoError(t, err)
	return cipher
}

func TestRoundTrip(t *testing.T) {
	cipher := newTestCipher(t)

	values := []int64{0, 1, -1, 100, -150, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64}
	for i := 0; i < 20; i++ {
		values = append(values, rand.Int64N(1<<40)-(1<<39))
	}

	for _, v := range values {
		ct, err := cipher.EncryptInt64(v)
		require.NoError(t, err)
		assert.Equal(t, 1, ct.Terms)

		got, err := cipher.DecryptInt64(ct)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestRoundTripBeyondInt64(t *testing.T) {
	cipher := newTestCipher(t)

	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	ct, err := cipher.Encrypt(huge)
	require.NoError(t, err)

	got, err := cipher.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, 0, huge.Cmp(got))

	_, err = cipher.DecryptInt64(ct)
	require.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestHomomorphicAdd(t *testing.T) {
	cipher := newTestCipher(t)

	for i := 0; i < 20; i++ {
		p := rand.Int64N(1<<32) - (1 << 31)
		q := rand.Int64N(1<<32) - (1 << 31)

		a, err := cipher.EncryptInt64(p)
		require.NoError(t, err)
		b, err := cipher.EncryptInt64(q)
		require.NoError(t, err)

		sum, err := cipher.Add(a, b)
		require.NoError(t, err)
		assert.Equal(t, 2, sum.Terms)

		got, err := cipher.DecryptInt64(sum)
		require.NoError(t, err)
		assert.Equal(t, p+q, got)
	}
}

func TestManyAdditionsStayExact(t *testing.T) {
	cipher := newTestCipher(t)

	acc, err := cipher.EncryptInt64(0)
	require.NoError(t, err)

	var want int64
	for i := int64(1); i <= 500; i++ {
		ct, err := cipher.EncryptInt64(i)
		require.NoError(t, err)
		acc, err = cipher.Add(acc, ct)
		require.NoError(t, err)
		want += i
	}

	got, err := cipher.DecryptInt64(acc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNoiseBudget(t *testing.T) {
	cipher := newTestCipher(t, WithNoiseBits(MaxNoiseBits))
	assert.Equal(t, 1, cipher.MaxTerms())

	a, err := cipher.EncryptInt64(1)
	require.NoError(t, err)
	b, err := cipher.EncryptInt64(2)
	require.NoError(t, err)

	_, err = cipher.Add(a, b)
	require.ErrorIs(t, err, ErrNoiseBudgetExceeded)

	got, err := cipher.DecryptInt64(a)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestDefaultMaxTerms(t *testing.T) {
	cipher := newTestCipher(t)
	assert.Equal(t, 1<<16, cipher.MaxTerms())
	assert.Equal(t, uint(DefaultNoiseBits), cipher.NoiseBits())
}

func TestInvalidNoiseBits(t *testing.T) {
	key, err := GenerateKey(8)
	require.NoError(t, err)
	defer key.Destroy()

	_, err = New(key, WithNoiseBits(MaxNoiseBits+1))
	require.Error(t, err)
}

func TestDimensionMismatch(t *testing.T) {
	cipher := newTestCipher(t)

	key, err := GenerateKey(16)
	require.NoError(t, err)
	defer key.Destroy()
	other, err := New(key)
	require.NoError(t, err)
	assert.Equal(t, 16, other.Dimension())

	a, err := cipher.EncryptInt64(1)
	require.NoError(t, err)
	b, err := other.EncryptInt64(1)
	require.NoError(t, err)

	_, err = cipher.Add(a, b)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = other.Decrypt(a)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMaskOverflow(t *testing.T) {
	cipher := newTestCipher(t)

	a, err := cipher.EncryptInt64(1)
	require.NoError(t, err)
	b := a.Clone()
	a.Mask[0] = math.MaxUint64
	b.Mask[0] = 1

	_, err = cipher.Add(a, b)
	require.ErrorIs(t, err, ErrIntegerOverflow)
}

func TestCloneIsIndependent(t *testing.T) {
	cipher := newTestCipher(t)

	ct, err := cipher.EncryptInt64(42)
	require.NoError(t, err)

	clone := ct.Clone()
	clone.Mask[0]++
	clone.Body.Add(clone.Body, big.NewInt(1))

	got, err := cipher.DecryptInt64(ct)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestDestroyedKey(t *testing.T) {
	key, err := GenerateKey(8)
	require.NoError(t, err)
	cipher, err := New(key)
	require.NoError(t, err)

	ct, err := cipher.EncryptInt64(5)
	require.NoError(t, err)

	key.Destroy()
	assert.False(t, key.IsAlive())

	_, err = cipher.Decrypt(ct)
	require.ErrorIs(t, err, ErrKeyDestroyed)
}
