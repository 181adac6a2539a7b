// Package ctr implements CTR mode over a block cipher, producing a
// keystream from a monotonic counter plus a fixed nonce and XORing it
// into data.
//
// Grounded on original_source/nyaszip.hpp's CTR<blockCipher, nonceLength>.
package ctr

// BlockCipher is the minimal surface a block cipher must expose to be
// driven by CTR mode.
type BlockCipher interface {
	Encrypt(block []byte)
}

// Stream is a CTR-mode keystream generator over a fixed-size block cipher.
// The low (blockLen-nonceLen) bytes of the internal block are the
// little-endian counter; the high bytes are the constant nonce.
type Stream struct {
	cipher        BlockCipher
	blockLen      int
	nonceLen      int
	block         []byte
	mask          []byte
	remainingMask int
}

// New creates a Stream driving cipher, with blockLen the cipher's block
// size and nonceLen bytes reserved at the high end of the block for a
// fixed nonce (nonceLen must be less than blockLen, leaving room for at
// least one counter byte).
func New(cipher BlockCipher, blockLen, nonceLen int) *Stream {
	if nonceLen >= blockLen {
		panic("ctr: nonce must leave at least one counter byte")
	}
	s := &Stream{
		cipher:   cipher,
		blockLen: blockLen,
		nonceLen: nonceLen,
		block:    make([]byte, blockLen),
		mask:     make([]byte, blockLen),
	}
	return s
}

func (s *Stream) counterLen() int { return s.blockLen - s.nonceLen }

// Reset zeroes the counter and discards any leftover keystream. It does
// not change the nonce.
func (s *Stream) Reset() {
	for i := 0; i < s.counterLen(); i++ {
		s.block[i] = 0
	}
	s.remainingMask = 0
}

// SetNonce copies nonce (which must be exactly nonceLen bytes) into the
// high bytes of the counter block.
func (s *Stream) SetNonce(nonce []byte) {
	copy(s.block[s.counterLen():], nonce)
}

// count increments the little-endian counter with byte-level carry, then
// re-derives the keystream mask by encrypting the counter block. Per
// AE-2, the counter is incremented before the block is encrypted, so the
// first mask corresponds to counter=1, not counter=0.
func (s *Stream) count() {
	for i := 0; i < s.counterLen(); i++ {
		s.block[i]++
		if s.block[i] != 0 {
			break
		}
	}
	copy(s.mask, s.block)
	s.cipher.Encrypt(s.mask)
	s.remainingMask = s.blockLen
}

// Apply XORs the keystream into data in place; encryption and decryption
// are the same operation. Successive calls continue the same keystream.
func (s *Stream) Apply(data []byte) {
	if s.remainingMask != 0 {
		use := min(s.remainingMask, len(data))
		maskStart := s.blockLen - s.remainingMask
		for i, v := range s.mask[maskStart : maskStart+use] {
			data[i] ^= v
		}
		s.remainingMask -= use
		data = data[use:]
		if s.remainingMask != 0 {
			return
		}
	}

	for len(data) != 0 {
		if s.remainingMask == 0 {
			s.count()
		}
		use := min(s.remainingMask, len(data))
		for i, v := range s.mask[:use] {
			data[i] ^= v
		}
		s.remainingMask -= use
		data = data[use:]
	}
}
