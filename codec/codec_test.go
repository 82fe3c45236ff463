package codec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	for _, text := range []string{"Alice", "Bob", "Charlie", "naïve", "a much longer value than eight bytes", ""} {
		assert.Equal(t, text, Decode(Encode(text)), text)
	}
}

func TestEncodeIsBigEndian(t *testing.T) {
	assert.Equal(t, int64(0x4142), Encode("AB").Int64())
}

func TestDecodeFallsBackToNumber(t *testing.T) {
	invalid := new(big.Int).SetBytes([]byte{0xff, 0xfe})
	assert.Equal(t, invalid.String(), Decode(invalid))
	assert.Equal(t, "-5", Decode(big.NewInt(-5)))
	assert.Equal(t, "", Decode(nil))
}
