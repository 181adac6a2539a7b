// Package aesblock implements the AES block cipher (FIPS-197) for
// key lengths 128, 192 and 256 bits, built from the GF(2) primitives in
// [zipforge/pkg/zipcrypto/gf2] rather than the standard library's
// crypto/aes.
//
// The core archive writer needs AES for WinZip AE-2 encryption, and the
// specification calls for the primitive to be implemented from scratch
// (key expansion, S-box, MixColumns table), so this package deliberately
// does not import crypto/aes. Decomposition follows
// other_examples/81cfb09c_wedkarz02-aes256 (separate galois/sbox/key
// packages feeding one cipher type) and the exact schedule/round
// structure in original_source/nyaszip.hpp (AES_basic, AES<bits>).
package aesblock

import (
	"fmt"
	"math/bits"

	"zipforge/pkg/zipcrypto/gf2"
)

// BlockLength is the fixed AES block size in bytes.
const BlockLength = 16

// gf2PolyDivisor is the AES field's irreducible polynomial
// x^8 + x^4 + x^3 + x + 1.
const gf2PolyDivisor = 0x011B

func byteMul(x, y byte) byte {
	return byte(gf2.ModMul(uint16(x), uint16(y), gf2PolyDivisor))
}

func byteInv(x byte) byte {
	return byte(gf2.InvModMul(uint16(x), gf2PolyDivisor))
}

func rcon(i uint8) byte {
	if i < 8 {
		return 1 << i
	}
	if i&1 != 0 {
		return 0x36
	}
	return 0x1B
}

func subByte(x byte) byte {
	inv := byteInv(x)
	trans := inv ^ bits.RotateLeft8(inv, 1) ^ bits.RotateLeft8(inv, 2) ^
		bits.RotateLeft8(inv, 3) ^ bits.RotateLeft8(inv, 4)
	return trans ^ 0x63
}

// sBox and byteMul0x03010102 are computed once at init time instead of
// hand-transcribed, mirroring AES_basic::_gen_sbox() /
// _gen_word_mul_table() in the original source.
var sBox [256]byte
var byteMul0x03010102 [256]uint32

func init() {
	for i := range sBox {
		sBox[i] = subByte(byte(i))
	}

	x0, x1, x2, x3 := byte(0x02), byte(0x01), byte(0x01), byte(0x03)
	for y := 0; y < 256; y++ {
		r0 := byteMul(x0, byte(y))
		r1 := byteMul(x1, byte(y))
		r2 := byteMul(x2, byte(y))
		r3 := byteMul(x3, byte(y))
		byteMul0x03010102[y] = uint32(r0) | uint32(r1)<<8 | uint32(r2)<<16 | uint32(r3)<<24
	}
}

func wordMul0x03010102(y uint32) uint32 {
	y0, y1, y2, y3 := byte(y), byte(y>>8), byte(y>>16), byte(y>>24)
	r0 := byteMul0x03010102[y0]
	r1 := bits.RotateLeft32(byteMul0x03010102[y1], 8)
	r2 := bits.RotateLeft32(byteMul0x03010102[y2], 16)
	r3 := bits.RotateLeft32(byteMul0x03010102[y3], 24)
	return r0 ^ r1 ^ r2 ^ r3
}

func subWord(x uint32) uint32 {
	return uint32(sBox[byte(x)]) | uint32(sBox[byte(x>>8)])<<8 |
		uint32(sBox[byte(x>>16)])<<16 | uint32(sBox[byte(x>>24)])<<24
}

func subBytes(state []byte) {
	for i, b := range state {
		state[i] = sBox[b]
	}
}

func shiftRows(state []byte) {
	state[1], state[5], state[9], state[13] = state[5], state[9], state[13], state[1]
	state[2], state[10] = state[10], state[2]
	state[6], state[14] = state[14], state[6]
	state[3], state[15], state[11], state[7] = state[15], state[11], state[7], state[3]
}

func mixCols(state []byte) {
	for i := 0; i < 16; i += 4 {
		w := uint32(state[i]) | uint32(state[i+1])<<8 | uint32(state[i+2])<<16 | uint32(state[i+3])<<24
		w = wordMul0x03010102(w)
		state[i] = byte(w)
		state[i+1] = byte(w >> 8)
		state[i+2] = byte(w >> 16)
		state[i+3] = byte(w >> 24)
	}
}

func addRoundKey(state, roundKey []byte) {
	for i := range state {
		state[i] ^= roundKey[i]
	}
}

// Cipher is a key-scheduled AES instance for a fixed key length.
type Cipher struct {
	nk, nr   int
	roundKey []uint32 // len == 4*(nr+1)
}

// KeyLength reports the key length in bytes (16/24/32).
func (c *Cipher) KeyLength() int { return c.nk * 4 }

// New128, New192 and New256 build a scheduled cipher for the given key
// length. The key slice must be exactly the matching length.
func New128(key []byte) (*Cipher, error) { return newCipher(key, 4) }
func New192(key []byte) (*Cipher, error) { return newCipher(key, 6) }
func New256(key []byte) (*Cipher, error) { return newCipher(key, 8) }

func newCipher(key []byte, nk int) (*Cipher, error) {
	if len(key) != nk*4 {
		return nil, fmt.Errorf("aesblock: key must be %d bytes, got %d", nk*4, len(key))
	}
	c := &Cipher{nk: nk, nr: nk + 6}
	c.setKey(key)
	return c, nil
}

func (c *Cipher) setKey(key []byte) {
	total := 4 * (c.nr + 1)
	c.roundKey = make([]uint32, total)
	for i := 0; i < c.nk; i++ {
		c.roundKey[i] = uint32(key[4*i]) | uint32(key[4*i+1])<<8 |
			uint32(key[4*i+2])<<16 | uint32(key[4*i+3])<<24
	}
	for i := c.nk; i < total; i++ {
		word0 := c.roundKey[i-c.nk]
		word1 := c.roundKey[i-1]

		d, r := i/c.nk, i%c.nk
		switch {
		case r == 0:
			word1 = subWord(bits.RotateLeft32(word1, -8)) ^ uint32(rcon(uint8(d-1)))
		case c.nk == 8 && r == 4:
			word1 = subWord(word1)
		}
		c.roundKey[i] = word0 ^ word1
	}
}

// Encrypt encrypts a single 16-byte block in place.
func (c *Cipher) Encrypt(state []byte) {
	if len(state) != BlockLength {
		panic("aesblock: state must be 16 bytes")
	}
	rk := roundKeyBytes(c.roundKey[0:4])
	addRoundKey(state, rk)

	for round := 1; round < c.nr; round++ {
		subBytes(state)
		shiftRows(state)
		mixCols(state)
		rk = roundKeyBytes(c.roundKey[4*round : 4*round+4])
		addRoundKey(state, rk)
	}

	subBytes(state)
	shiftRows(state)
	rk = roundKeyBytes(c.roundKey[4*c.nr : 4*c.nr+4])
	addRoundKey(state, rk)
}

func roundKeyBytes(words []uint32) []byte {
	out := make([]byte, 16)
	for i, w := range words {
		out[4*i] = byte(w)
		out[4*i+1] = byte(w >> 8)
		out[4*i+2] = byte(w >> 16)
		out[4*i+3] = byte(w >> 24)
	}
	return out
}
