package binutil

import "testing"

func TestCRC32KnownAnswers(t *testing.T) {
	if got := CRC32(0, nil); got != 0 {
		t.Errorf("CRC32(0, nil) = %#x, want 0", got)
	}
	if got := CRC32(0, []byte("123456789")); got != 0xCBF43926 {
		t.Errorf("CRC32(0, \"123456789\") = %#x, want 0xCBF43926", got)
	}
}

func TestCRC32IsIncremental(t *testing.T) {
	whole := CRC32(0, []byte("123456789"))

	c := CRC32(0, []byte("1234"))
	c = CRC32(c, []byte("56789"))

	if c != whole {
		t.Errorf("incremental CRC32 = %#x, want %#x (whole-buffer result)", c, whole)
	}
}

func TestPutUintFieldsAreLittleEndian(t *testing.T) {
	buf := make([]byte, 2+4+8+1)
	cur := Buf(buf)
	cur.PutUint16(0x0201)
	cur.PutUint32(0x04030201)
	cur.PutUint64(0x0807060504030201)
	cur.PutByte(0xAA)

	want := []byte{
		0x01, 0x02,
		0x01, 0x02, 0x03, 0x04,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0xAA,
	}
	for i, b := range want {
		if buf[i] != b {
			t.Fatalf("byte %d = %#x, want %#x (buf=%x)", i, buf[i], b, buf)
		}
	}
}

func TestPutBytesAdvancesCursor(t *testing.T) {
	buf := make([]byte, 6)
	cur := Buf(buf)
	cur.PutBytes([]byte("ab"))
	cur.PutBytes([]byte("cdef"))
	if string(buf) != "abcdef" {
		t.Fatalf("buf = %q, want %q", buf, "abcdef")
	}
}

func TestXorInto(t *testing.T) {
	dst := []byte{0x00, 0xFF, 0x0F}
	src := []byte{0xFF, 0xFF, 0xF0}
	XorInto(dst, src)
	want := []byte{0xFF, 0x00, 0xFF}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("XorInto result byte %d = %#x, want %#x", i, dst[i], want[i])
		}
	}
}
