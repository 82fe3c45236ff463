// Package codec maps text onto the non-negative integer domain used by the
// he package and back.
//
// Encode interprets the UTF-8 bytes of the text as a big-endian unsigned
// integer. Decode reverses that when the integer's bytes form valid UTF-8
// and otherwise falls back to the decimal representation of the integer.
// The round trip is best effort: text with leading NUL bytes does not
// survive it.
package codec

import (
	"math/big"
	"unicode/utf8"
)

// Encode returns the big-endian integer value of the UTF-8 bytes of text.
func Encode(text string) *big.Int {
	return new(big.Int).SetBytes([]byte(text))
}

// Decode returns the text whose bytes encode value.
func Decode(value *big.Int) string {
	if value == nil {
		return ""
	}
	if value.Sign() < 0 {
		return value.String()
	}

	data := value.Bytes()
	if !utf8.Valid(data) {
		return value.String()
	}
	return string(data)
}
