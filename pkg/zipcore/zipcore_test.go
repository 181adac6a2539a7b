package zipcore

import (
	"encoding/binary"
	"io"
	"testing"

	"zipforge/pkg/zipcore/internal/binutil"
)

// memSeeker is a minimal io.WriteSeeker backed by a growable in-memory
// buffer, standing in for the file Create would open.
type memSeeker struct {
	buf []byte
	pos int64
}

func (m *memSeeker) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = m.pos + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	}
	m.pos = next
	return next, nil
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func TestEmptyArchive(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(sink.buf) != 22 {
		t.Fatalf("empty archive length = %d, want 22 (bare EOCD)", len(sink.buf))
	}
	if got := le32(sink.buf[0:4]); got != endOfCentralDirSignature {
		t.Fatalf("EOCD signature = %#x, want %#x", got, endOfCentralDirSignature)
	}
	if got := le16(sink.buf[8:10]); got != 0 {
		t.Fatalf("entries on disk = %d, want 0", got)
	}
	if got := le32(sink.buf[12:16]); got != 0 {
		t.Fatalf("central directory size = %d, want 0", got)
	}
	if got := le32(sink.buf[16:20]); got != 0 {
		t.Fatalf("central directory offset = %d, want 0", got)
	}
}

func TestSingleStoredEntryKnownCRC(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("hello.txt")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	payload := []byte("Hello, World!")
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wantCRC := binutil.CRC32(0, payload)
	if wantCRC != 0xEC4AC3D0 {
		t.Fatalf("sanity check failed: CRC32(%q) = %#x, want 0xec4ac3d0", payload, wantCRC)
	}

	buf := sink.buf
	if got := le32(buf[0:4]); got != localHeaderSignature {
		t.Fatalf("local header signature = %#x, want %#x", got, localHeaderSignature)
	}
	if got := le16(buf[8:10]); got != Store {
		t.Fatalf("method = %d, want Store(0)", got)
	}
	if got := le32(buf[14:18]); got != wantCRC {
		t.Fatalf("header CRC = %#x, want %#x", got, wantCRC)
	}
	compSize := le32(buf[18:22])
	uncompSize := le32(buf[22:26])
	if compSize != uint32(len(payload)) || uncompSize != uint32(len(payload)) {
		t.Fatalf("sizes = (%d, %d), want both %d", compSize, uncompSize, len(payload))
	}
	nameLen := le16(buf[26:28])
	if int(nameLen) != len("hello.txt") {
		t.Fatalf("name length = %d, want %d", nameLen, len("hello.txt"))
	}
	name := string(buf[30 : 30+nameLen])
	if name != "hello.txt" {
		t.Fatalf("name = %q, want %q", name, "hello.txt")
	}
	gotPayload := buf[30+nameLen : 30+uint16(nameLen)+uint16(len(payload))]
	if string(gotPayload) != string(payload) {
		t.Fatalf("stored payload = %q, want %q", gotPayload, payload)
	}
}

func TestAES256EntryLayout(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("secret.txt")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.Password("hunter2", 256)
	plaintext := []byte("this is encrypted entry content")
	if _, err := f.Write(plaintext); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := sink.buf
	flag := le16(buf[6:8])
	if flag&FlagEncrypted == 0 {
		t.Fatal("encrypted flag not set")
	}
	method := le16(buf[8:10])
	if method != aesPlaceholderMethod {
		t.Fatalf("method field = %#x, want placeholder %#x", method, aesPlaceholderMethod)
	}
	crc := le32(buf[14:18])
	if crc != 0 {
		t.Fatalf("CRC in header = %#x, want 0 (AES entries zero the header CRC)", crc)
	}

	nameLen := int(le16(buf[26:28]))
	extraLen := int(le16(buf[28:30]))
	extra := buf[30+nameLen : 30+nameLen+extraLen]
	if len(extra) < 4 {
		t.Fatalf("extra field too short: %d bytes", len(extra))
	}
	if tag := le16(extra[0:2]); tag != extraTagAES {
		t.Fatalf("extra field tag = %#x, want AE-x tag %#x", tag, extraTagAES)
	}
	aesBody := extra[4:11]
	if vendorVersion := le16(aesBody[0:2]); vendorVersion != 2 {
		t.Fatalf("AE vendor version = %d, want 2 (AE-2)", vendorVersion)
	}
	if realMethod := le16(aesBody[5:7]); realMethod != Store {
		t.Fatalf("real method recorded in AES extra = %d, want Store(0)", realMethod)
	}

	compSize := int(le32(buf[18:22]))
	saltLen := 16 // 256-bit AES salt length
	wantCompSize := saltLen + 2 + len(plaintext) + 10
	if compSize != wantCompSize {
		t.Fatalf("compressed size = %d, want %d (salt+varicode+ciphertext+tag)", compSize, wantCompSize)
	}

	entryStart := 30 + nameLen + extraLen
	salt := buf[entryStart : entryStart+saltLen]
	if allZero(salt) {
		t.Fatal("salt is all zero, PRNG not wired")
	}
	ciphertext := buf[entryStart+saltLen+2 : entryStart+saltLen+2+len(plaintext)]
	if string(ciphertext) == string(plaintext) {
		t.Fatal("stored bytes equal the plaintext; encryption did not run")
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestDirectoryEntry(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("a/b/")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.ExternalAttribute(FileAttributeDirectory)
	if err := f.Close(); err != nil {
		t.Fatalf("Close entry: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := sink.buf
	version := le16(buf[4:6])
	if version != versionNeedDirectory {
		t.Fatalf("version needed = %d, want %d (directory)", version, versionNeedDirectory)
	}
	compSize := le32(buf[18:22])
	uncompSize := le32(buf[22:26])
	if compSize != 0 || uncompSize != 0 {
		t.Fatalf("directory entry sizes = (%d, %d), want (0, 0)", compSize, uncompSize)
	}
}

func TestZip64Promotion(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	const entries = 70000
	for i := 0; i < entries; i++ {
		f, err := z.Add(nameFor(i))
		if err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close entry %d: %v", i, err)
		}
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := sink.buf
	eocd := buf[len(buf)-22:]
	if got := le32(eocd[0:4]); got != endOfCentralDirSignature {
		t.Fatalf("EOCD signature = %#x, want %#x", got, endOfCentralDirSignature)
	}
	if got := le16(eocd[8:10]); got != uint16(uint16Max) {
		t.Fatalf("EOCD entry count = %d, want sentinel %#x", got, uint16Max)
	}

	locator := buf[len(buf)-22-20:]
	if got := le32(locator[0:4]); got != zip64LocatorSignature {
		t.Fatalf("zip64 locator signature = %#x, want %#x", got, zip64LocatorSignature)
	}

	record := buf[len(buf)-22-20-56:]
	if got := le32(record[0:4]); got != zip64EndRecordSignature {
		t.Fatalf("zip64 end record signature = %#x, want %#x", got, zip64EndRecordSignature)
	}
	recordCount := binary.LittleEndian.Uint64(record[24:32])
	if recordCount != entries {
		t.Fatalf("zip64 end record entry count = %d, want %d", recordCount, entries)
	}
}

func nameFor(i int) string {
	digits := [6]byte{}
	for j := 5; j >= 0; j-- {
		digits[j] = byte('0' + i%10)
		i /= 10
	}
	return "f" + string(digits[:]) + ".bin"
}

func TestSizeOverflowWithoutZip64(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("huge.bin")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Simulate an entry that has already accumulated nearly 4GiB without
	// actually writing that much data in the test.
	f.uncompressed = uint32Max - 5
	f.compressed = uint32Max - 5
	f.state = Writing
	f.compressor = NewStoreCompressor()

	_, err = f.Write(make([]byte, 16))
	var overflow *SizeOverflowError
	if err == nil {
		t.Fatal("expected SizeOverflowError, got nil")
	}
	if !asSizeOverflow(err, &overflow) {
		t.Fatalf("error = %v, want *SizeOverflowError", err)
	}
}

func asSizeOverflow(err error, target **SizeOverflowError) bool {
	if e, ok := err.(*SizeOverflowError); ok {
		*target = e
		return true
	}
	return false
}

func TestSizeOverflowAvoidedWithZip64(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("huge.bin")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.ZIP64(true)
	f.uncompressed = uint32Max - 5
	f.compressed = uint32Max - 5
	f.state = Writing
	f.compressor = NewStoreCompressor()

	if _, err := f.Write(make([]byte, 16)); err != nil {
		t.Fatalf("Write with ZIP64 enabled should not overflow: %v", err)
	}
}

func TestNameSanitization(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add(`\windows\style\path.txt`)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if f.NameValue() != "windows/style/path.txt" {
		t.Fatalf("sanitized name = %q, want %q", f.NameValue(), "windows/style/path.txt")
	}

	if _, err := z.Add("///"); err == nil {
		t.Fatal("expected InvalidNameError for an all-slash name")
	} else if _, ok := err.(*InvalidNameError); !ok {
		t.Fatalf("error = %v (%T), want *InvalidNameError", err, err)
	}
}

func TestModifiedPatchesHeaderMidWrite(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("stamped.txt")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.Write([]byte("first chunk")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := MsDosTime{Date: 0x4A21, Time: 0x5678}
	f.Modified(want)

	if _, err := f.Write([]byte("second chunk")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := sink.buf
	gotTime := le16(buf[10:12])
	gotDate := le16(buf[12:14])
	if gotTime != want.Time || gotDate != want.Date {
		t.Fatalf("local header time/date = (%#x, %#x), want (%#x, %#x)", gotTime, gotDate, want.Time, want.Date)
	}
}

func TestLocalFileCloseIsIdempotent(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("only.txt")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("Zip Close: %v", err)
	}
}

func TestZipCloseIsIdempotent(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	if _, err := z.Add("a.txt"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := z.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	lenAfterFirst := len(sink.buf)
	if err := z.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if len(sink.buf) != lenAfterFirst {
		t.Fatalf("second Close wrote more bytes: %d != %d", len(sink.buf), lenAfterFirst)
	}
}

func TestEmptyEntryFallsBackToStoredOnClose(t *testing.T) {
	sink := &memSeeker{}
	z := NewZip(sink, false)

	f, err := z.Add("never-written.txt")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.Password("irrelevant", 256)
	f.ZIP64(true)
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := sink.buf
	flag := le16(buf[6:8])
	if flag&FlagEncrypted != 0 {
		t.Fatal("never-written entry should not end up encrypted")
	}
	method := le16(buf[8:10])
	if method != Store {
		t.Fatalf("method = %d, want Store(0) for the untouched fallback", method)
	}
}
