// Package hmacx implements HMAC (RFC 2104) over pkg/zipcrypto/sha1x,
// the authentication primitive for the AE-2 "HMAC-SHA1-80" MAC.
//
// Grounded on original_source/nyaszip.hpp's Hash::HMAC<H> template, which
// precomputes the inner/outer padded keys once at construction and resets
// the inner digest for reuse.
package hmacx

import "zipforge/pkg/zipcrypto/sha1x"

const (
	blockLength  = sha1x.BlockLength
	outputLength = sha1x.OutputLength
	ipad         = 0x36
	opad         = 0x5C
)

// HMAC computes HMAC-SHA-1 over the SHA-1 implementation in sha1x.
type HMAC struct {
	inner    *sha1x.Digest
	outerKey [blockLength]byte
}

// New builds an HMAC keyed with key, which may be any length (keys longer
// than the block length are hashed down first, per RFC 2104).
func New(key []byte) *HMAC {
	h := &HMAC{inner: sha1x.New()}
	h.setKey(key)
	return h
}

func (h *HMAC) setKey(key []byte) {
	var k [blockLength]byte
	if len(key) > blockLength {
		sum := sha1x.New()
		sum.Write(key)
		digest := sum.Sum()
		copy(k[:], digest[:])
	} else {
		copy(k[:], key)
	}

	var innerKey [blockLength]byte
	for i := 0; i < blockLength; i++ {
		innerKey[i] = k[i] ^ ipad
		h.outerKey[i] = k[i] ^ opad
	}
	h.inner.Reset()
	h.inner.Write(innerKey[:])
}

// Write feeds more message data into the running MAC.
func (h *HMAC) Write(data []byte) (int, error) {
	return h.inner.Write(data)
}

// Sum finalizes the MAC and returns the 20-byte tag. The HMAC instance
// must not be reused after calling Sum.
func (h *HMAC) Sum() [outputLength]byte {
	innerDigest := h.inner.Sum()

	outer := sha1x.New()
	outer.Write(h.outerKey[:])
	outer.Write(innerDigest[:])
	return outer.Sum()
}
