// Package he implements the additive-homomorphic cipher that protects every
// stored cell.
//
// The scheme is a learning-with-errors construction over unbounded integers:
//
//	body = <mask, key> + Δ·plaintext + noise
//
// with Δ = 2^31, a fresh random mask of Dimension 32-bit words per
// ciphertext and non-negative noise below 2^NoiseBits. Adding two
// ciphertexts adds masks, bodies and noise; decryption subtracts the inner
// product and rounds to the nearest multiple of Δ, which is exact while the
// accumulated noise stays below Δ/2.
//
// Every ciphertext counts the fresh encryptions it was summed from (Terms).
// Add refuses to exceed MaxTerms = 2^(30-NoiseBits), which keeps the noise
// sum under Δ/2. There is no re-encryption step, so MaxTerms is a hard limit.
//
// The scheme is teaching-grade: it offers no security proof and the key
// never leaves the process.
//
//	key, _ := he.GenerateKey(he.DefaultDimension)
//	defer key.Destroy()
//	cipher, _ := he.New(key)
//	a, _ := cipher.EncryptInt64(100)
//	b, _ := cipher.EncryptInt64(200)
//	sum, _ := cipher.Add(a, b)
//	total, _ := cipher.DecryptInt64(sum) // 300
package he
