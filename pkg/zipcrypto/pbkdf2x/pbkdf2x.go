// Package pbkdf2x implements PBKDF2-HMAC-SHA1 (RFC 2898) over
// pkg/zipcrypto/hmacx, used to stretch a WinZip archive password into the
// AES key, MAC key and password-verification code.
//
// Grounded on original_source/nyaszip.hpp's pbkdf2<PRF> template, which
// fixes the iteration count at 1000 for the AE-2 profile.
package pbkdf2x

import "zipforge/pkg/zipcrypto/hmacx"

// Iterations is the iteration count WinZip's AE-2 profile mandates.
const Iterations = 1000

// Derive produces dkLen bytes of key material from password and salt
// using PBKDF2-HMAC-SHA1 with the fixed WinZip iteration count.
func Derive(password, salt []byte, dkLen int) []byte {
	const hLen = 20
	numBlocks := (dkLen + hLen - 1) / hLen
	out := make([]byte, 0, numBlocks*hLen)

	for blockIndex := 1; blockIndex <= numBlocks; blockIndex++ {
		out = append(out, block(password, salt, blockIndex)...)
	}
	return out[:dkLen]
}

func block(password, salt []byte, index int) []byte {
	indexBytes := []byte{
		byte(index >> 24), byte(index >> 16), byte(index >> 8), byte(index),
	}

	h := hmacx.New(password)
	h.Write(salt)
	h.Write(indexBytes)
	u := h.Sum()

	result := u
	for i := 1; i < Iterations; i++ {
		h = hmacx.New(password)
		h.Write(u[:])
		u = h.Sum()
		for j := range result {
			result[j] ^= u[j]
		}
	}
	return result[:]
}
