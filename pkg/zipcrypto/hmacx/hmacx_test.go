package hmacx

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Test cases from RFC 2202 §3, HMAC-SHA1.
func TestHMACSHA1RFC2202(t *testing.T) {
	cases := []struct {
		name string
		key  []byte
		data []byte
		want string
	}{
		{
			"case1",
			bytes.Repeat([]byte{0x0b}, 20),
			[]byte("Hi There"),
			"b617318655057264e28bc0b6fb378c8ef146be00",
		},
		{
			"case2",
			[]byte("Jefe"),
			[]byte("what do ya want for nothing?"),
			"effcdf6ae5eb2fa2d27416d5f184df9c259a7c79",
		},
		{
			"case6-long-key",
			bytes.Repeat([]byte{0xaa}, 80),
			[]byte("Test Using Larger Than Block-Size Key - Hash Key First"),
			"aa4ae5e15272d00e95705637ce8a3b55ed402112",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := New(c.key)
			h.Write(c.data)
			sum := h.Sum()
			got := hex.EncodeToString(sum[:])
			if got != c.want {
				t.Errorf("HMAC-SHA1 = %s, want %s", got, c.want)
			}
		})
	}
}
