package deflatecomp

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
)

func TestRoundTripThroughStandardFlateReader(t *testing.T) {
	plain := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	c := New(0)
	if c.Method() != 0x8 {
		t.Fatalf("Method() = %d, want 8 (Deflate)", c.Method())
	}

	var out bytes.Buffer
	for off := 0; off < len(plain); {
		chunk := plain[off:]
		if len(chunk) > 37 {
			chunk = chunk[:37]
		}
		consumed, produced := c.Compress(chunk)
		out.Write(produced)
		if consumed <= 0 {
			t.Fatalf("Compress consumed %d bytes, want > 0", consumed)
		}
		off += consumed
	}
	out.Write(c.Flush())

	r := flate.NewReader(bytes.NewReader(out.Bytes()))
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("decoding with the standard library's flate reader: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(plain))
	}
	if out.Len() >= len(plain) {
		t.Fatalf("compressed output (%d bytes) did not shrink the repetitive input (%d bytes)", out.Len(), len(plain))
	}
}

func TestLevelOutOfRangeFallsBackToDefault(t *testing.T) {
	c := New(999)
	if c == nil {
		t.Fatal("New with an out-of-range level should still return a usable Compressor")
	}
	_, produced := c.Compress([]byte("x"))
	_ = produced
	tail := c.Flush()
	_ = tail
}
