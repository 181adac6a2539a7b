// Package zipcrypto binds the from-scratch AES, CTR, HMAC and PBKDF2
// primitives in its subpackages into WinZip's AE-2 encryption profile:
// a password and salt are stretched via PBKDF2-HMAC-SHA1 into an AES
// key, a separate HMAC-SHA1 authentication key and a 2-byte password
// verification code; archive data is then XORed with an AES-CTR
// keystream while being accumulated into a running HMAC whose first 10
// bytes become the AE-2 authentication code.
//
// Grounded on original_source/nyaszip.hpp's AbstractZipAES/ZipAES<bits>.
package zipcrypto

import (
	"fmt"

	"zipforge/pkg/zipcrypto/aesblock"
	"zipforge/pkg/zipcrypto/ctr"
	"zipforge/pkg/zipcrypto/hmacx"
	"zipforge/pkg/zipcrypto/pbkdf2x"
)

// VariCodeLength is the length in bytes of the PBKDF2-derived password
// verification code stored right after the salt on the wire.
const VariCodeLength = 2

// AuthCodeLength is the length in bytes of the AE-2 authentication code
// (the truncated HMAC-SHA1 tag) appended after the ciphertext.
const AuthCodeLength = 10

// ZipAES implements one WinZip AE-2 encryption context for a fixed AES
// key size (128, 192 or 256 bits).
type ZipAES struct {
	bits       int
	keyLength  int
	saltLength int

	salt     []byte
	variCode [VariCodeLength]byte

	ctr  *ctr.Stream
	auth *hmacx.HMAC
}

// New builds a ZipAES context for the given AES key size in bits (128,
// 192 or 256). Call Salt then SetPassword before Apply.
func New(bits int) (*ZipAES, error) {
	keyLength, err := keyLengthForBits(bits)
	if err != nil {
		return nil, err
	}
	return &ZipAES{
		bits:       bits,
		keyLength:  keyLength,
		saltLength: keyLength / 2,
	}, nil
}

func keyLengthForBits(bits int) (int, error) {
	switch bits {
	case 128:
		return 16, nil
	case 192:
		return 24, nil
	case 256:
		return 32, nil
	default:
		return 0, fmt.Errorf("zipcrypto: unsupported AES key size %d", bits)
	}
}

// SaltLength reports the number of salt bytes this context requires.
func (z *ZipAES) SaltLength() int { return z.saltLength }

// Salt sets the per-entry salt, which must be exactly SaltLength bytes.
// Call SetPassword afterward to derive keys from it.
func (z *ZipAES) Salt(salt []byte) *ZipAES {
	z.salt = append([]byte(nil), salt...)
	return z
}

// VariCode returns the 2-byte password verification code produced by the
// most recent SetPassword call.
func (z *ZipAES) VariCode() []byte { return z.variCode[:] }

// SetPassword derives the AES key, HMAC key and verification code from
// password and the previously set salt via PBKDF2-HMAC-SHA1 (1000
// iterations), then resets the CTR keystream and HMAC state for a fresh
// entry.
func (z *ZipAES) SetPassword(password []byte) error {
	keysLength := z.keyLength*2 + VariCodeLength
	keys := pbkdf2x.Derive(password, z.salt, keysLength)

	aesKey := keys[0:z.keyLength]
	authKey := keys[z.keyLength : z.keyLength*2]
	copy(z.variCode[:], keys[z.keyLength*2:])

	var cipher interface{ Encrypt(block []byte) }
	var err error
	switch z.bits {
	case 128:
		cipher, err = aesblock.New128(aesKey)
	case 192:
		cipher, err = aesblock.New192(aesKey)
	case 256:
		cipher, err = aesblock.New256(aesKey)
	}
	if err != nil {
		return err
	}

	z.ctr = ctr.New(cipher, aesblock.BlockLength, 0)
	z.auth = hmacx.New(authKey)
	return nil
}

// Apply XORs the CTR keystream into data in place and feeds the result
// into the running authentication HMAC. It must be called in order over
// the entire plaintext stream for one entry.
func (z *ZipAES) Apply(data []byte) {
	z.ctr.Apply(data)
	z.auth.Write(data)
}

// Finalize returns the 10-byte truncated HMAC-SHA1 authentication code
// for everything passed to Apply so far.
func (z *ZipAES) Finalize() [AuthCodeLength]byte {
	full := z.auth.Sum()
	var tag [AuthCodeLength]byte
	copy(tag[:], full[:AuthCodeLength])
	return tag
}
