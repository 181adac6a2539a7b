package zipcore

import (
	"strings"

	"zipforge/pkg/zipcore/internal/binutil"
	"zipforge/pkg/zipcrypto"
)

// LocalFile is one entry being written into a Zip archive. It moves
// through Preparing (configurable via Password/ZIP64/Comment/etc.),
// Writing (accepting Write calls), and Closed. Unlike the standard
// library's archive/zip, headers are patched in place once the entry's
// final size and CRC are known rather than trailed by a data
// descriptor, so the underlying writer must support seeking.
//
// Grounded on original_source/nyaszip.hpp's LocalFile.
type LocalFile struct {
	zip    *Zip
	offset int64

	state WritingState
	zip64 bool

	method            uint16
	compressorVersion uint16
	compressor        Compressor

	aes         *zipcrypto.ZipAES
	aesMode     byte
	pendingSalt []byte

	flag     uint16
	modified MsDosTime
	crc      uint32

	compressed   uint64
	uncompressed uint64

	name     string
	comment  string
	external uint32
}

func newLocalFile(z *Zip) *LocalFile {
	offset, _ := z.tell()
	return &LocalFile{
		zip:               z,
		offset:            offset,
		state:             Preparing,
		method:            Store,
		compressorVersion: versionNeedDefault,
		modified:          DefaultMsDosTime,
	}
}

// Name sets the entry's path, normalizing backslashes to forward
// slashes and stripping any leading slashes. Only valid in Preparing.
func (f *LocalFile) Name(name string) error {
	if f.state != Preparing {
		return ErrWrongState
	}
	safe := safeFileName(name)
	if safe == "" {
		return &InvalidNameError{Name: name}
	}
	f.name = safe
	return nil
}

func safeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimLeft(name, "/")
}

// State reports the entry's current lifecycle stage.
func (f *LocalFile) State() WritingState { return f.state }

// NameValue returns the entry's normalized name.
func (f *LocalFile) NameValue() string { return f.name }

// ZIP64 enables or disables ZIP64 size fields for this entry. Writing
// more than 4GiB into an entry without enabling ZIP64 fails with
// SizeOverflowError. Only valid in Preparing.
func (f *LocalFile) ZIP64(enable bool) *LocalFile {
	if f.state == Preparing {
		f.zip64 = enable
	}
	return f
}

// Method selects the compression method (Store or Deflate). Only valid
// in Preparing.
func (f *LocalFile) Method(method uint16) *LocalFile {
	if f.state == Preparing {
		f.method = method
		f.compressorVersion = versionForMethod(method)
	}
	return f
}

// Comment sets the entry comment, stored in the central directory only.
func (f *LocalFile) Comment(s string) *LocalFile {
	if f.zip.state != Closed {
		f.comment = s
	}
	return f
}

// UTF8 marks (or unmarks) the entry's name and comment as UTF-8 encoded,
// patching the already-written local header flag field if writing has
// started.
func (f *LocalFile) UTF8(isUTF8 bool) *LocalFile {
	if f.zip.state == Closed {
		return f
	}
	if isUTF8 {
		f.flag |= FlagUTF8
	} else {
		f.flag &^= FlagUTF8
	}
	if f.state != Preparing {
		f.patchFlag()
	}
	return f
}

// Modified sets the entry's last-modified timestamp, patching the
// already-written local header if writing has started.
func (f *LocalFile) Modified(t MsDosTime) *LocalFile {
	if f.zip.state == Closed {
		return f
	}
	f.modified = t
	if f.state != Preparing {
		f.patchModified()
	}
	return f
}

// ExternalAttribute sets the external file attribute word (see the
// FileAttribute* constants).
func (f *LocalFile) ExternalAttribute(attr uint32) *LocalFile {
	if f.zip.state != Closed {
		f.external = attr
	}
	return f
}

// Password enables WinZip AE-2 AES encryption with the given password
// and key size in bits (128, 192 or 256; any other value defaults to
// 256). Only valid in Preparing. Pass an empty password to disable
// encryption again.
func (f *LocalFile) Password(password string, bits int) *LocalFile {
	if f.state != Preparing {
		return f
	}
	if password == "" {
		f.aes = nil
		f.aesMode = 0
		f.pendingSalt = nil
		f.flag &^= FlagEncrypted
		return f
	}

	aes, err := zipcrypto.New(normalizeAESBits(bits))
	if err != nil {
		return f
	}
	salt := make([]byte, aes.SaltLength())
	f.zip.genSalt(salt)
	aes.Salt(salt)
	if err := aes.SetPassword([]byte(password)); err != nil {
		return f
	}

	f.aes = aes
	f.aesMode = aesModeForBits(normalizeAESBits(bits))
	f.pendingSalt = salt
	f.flag |= FlagEncrypted
	return f
}

func normalizeAESBits(bits int) int {
	switch bits {
	case 128, 192, 256:
		return bits
	default:
		return 256
	}
}

func (f *LocalFile) version() uint16 {
	v := f.compressorVersion
	if ev := f.encryptionVersion(); ev > v {
		v = ev
	}
	if fv := f.functionalityVersion(); fv > v {
		v = fv
	}
	return v
}

func (f *LocalFile) encryptionVersion() uint16 {
	if f.aesMode != 0 {
		return versionNeedAES
	}
	return versionNeedDefault
}

func (f *LocalFile) functionalityVersion() uint16 {
	res := uint16(versionNeedDefault)
	if f.external&FileAttributeVolumeID != 0 {
		res = versionNeedVolumeLabel
	}
	if f.external&FileAttributeDirectory != 0 {
		res = versionNeedDirectory
	}
	if f.zip64 || uint64(f.offset) >= uint32Max {
		res = versionNeedZip64
	}
	return res
}

func (f *LocalFile) crcInHeader() uint32 {
	if f.aesMode != 0 {
		return 0
	}
	return f.crc
}

func (f *LocalFile) sizesInHeader() (uint32, uint32) {
	if f.zip64 {
		return uint32(uint32Max), uint32(uint32Max)
	}
	return uint32(f.compressed), uint32(f.uncompressed)
}

func (f *LocalFile) localExtraLength() uint16 {
	var n uint16
	if f.zip64 {
		n += 20
	}
	if f.aesMode != 0 {
		n += 11
	}
	return n
}

func (f *LocalFile) methodField() uint16 {
	if f.aesMode != 0 {
		return aesPlaceholderMethod
	}
	return f.method
}

func (f *LocalFile) writeLocalHeader() error {
	cmpr, uncmpr := f.sizesInHeader()
	nameLen := uint16(len(f.name))

	buf := make([]byte, 30)
	b := binutil.Buf(buf)
	b.PutUint32(localHeaderSignature)
	b.PutUint16(f.version())
	b.PutUint16(f.flag)
	b.PutUint16(f.methodField())
	b.PutUint16(f.modified.Time)
	b.PutUint16(f.modified.Date)
	b.PutUint32(f.crcInHeader())
	b.PutUint32(cmpr)
	b.PutUint32(uncmpr)
	b.PutUint16(nameLen)
	b.PutUint16(f.localExtraLength())

	if _, err := f.zip.w.Write(buf); err != nil {
		return err
	}
	if _, err := f.zip.w.Write([]byte(f.name)); err != nil {
		return err
	}
	return f.writeLocalExtra()
}

func (f *LocalFile) writeLocalExtra() error {
	buf := make([]byte, f.localExtraLength())
	b := binutil.Buf(buf)
	if f.zip64 {
		b.PutUint16(extraTagZip64)
		b.PutUint16(16)
		b.PutUint64(f.uncompressed)
		b.PutUint64(f.compressed)
	}
	if f.aesMode != 0 {
		b.PutUint16(extraTagAES)
		b.PutUint16(7)
		b.PutUint16(0x0002) // AE-2
		b.PutUint16(0x4541) // "AE"
		b.PutByte(f.aesMode)
		b.PutUint16(f.method)
	}
	_, err := f.zip.w.Write(buf)
	return err
}

// start writes the local header (and any AES salt/verification bytes)
// the first time the entry is actually written to. Close writes the
// header of an entry that was never written to itself, without start.
func (f *LocalFile) start() error {
	if f.state != Preparing {
		return nil
	}
	if err := f.writeLocalHeader(); err != nil {
		return err
	}
	f.state = Writing

	if f.aes != nil {
		if _, err := f.zip.w.Write(f.pendingSalt); err != nil {
			return err
		}
		if _, err := f.zip.w.Write(f.aes.VariCode()); err != nil {
			return err
		}
		f.compressed += uint64(len(f.pendingSalt) + len(f.aes.VariCode()))
	}

	f.compressor = lookupCompressor(f.zip.compressors, f.method)
	if f.compressor == nil {
		return &UnsupportedMethodError{Method: f.method}
	}
	return nil
}

// emit writes one fragment of already-compressed data to the sink,
// encrypting it in place first if the entry is password-protected, and
// tracks it against the running compressed size.
func (f *LocalFile) emit(out []byte) error {
	if len(out) == 0 {
		return nil
	}
	f.compressed += uint64(len(out))
	if f.aes != nil {
		buf := append([]byte(nil), out...)
		f.aes.Apply(buf)
		_, err := f.zip.w.Write(buf)
		return err
	}
	_, err := f.zip.w.Write(out)
	return err
}

// Write appends data to the entry, compressing and (if a password was
// set) encrypting it before it reaches the underlying writer.
func (f *LocalFile) Write(p []byte) (int, error) {
	if f.state == Closed {
		return 0, ErrClosed
	}
	if err := f.start(); err != nil {
		return 0, err
	}

	total := len(p)
	if f.aesMode == 0 {
		f.crc = binutil.CRC32(f.crc, p)
	}
	f.uncompressed += uint64(total)

	for len(p) != 0 {
		consumed, out := f.compressor.Compress(p)
		if err := f.emit(out); err != nil {
			return total - len(p), err
		}
		if consumed <= 0 {
			break
		}
		p = p[consumed:]
	}

	if !f.zip64 && (f.compressed >= uint32Max || f.uncompressed >= uint32Max) {
		return total, &SizeOverflowError{Compressed: f.compressed, Uncompressed: f.uncompressed}
	}
	return total, nil
}

// Close finalizes the entry: flushes the compressor, appends the AES
// authentication tag if encrypted, and patches the local header in
// place with the final CRC and sizes. Close is idempotent.
func (f *LocalFile) Close() error {
	if f.state == Closed {
		return nil
	}
	if f.state == Preparing {
		// an entry with nothing ever written to it cannot be compressed
		// or encrypted; fall back to a plain zero-length stored entry.
		f.zip64 = false
		f.method = Store
		f.compressorVersion = versionForMethod(Store)
		f.aes = nil
		f.aesMode = 0
		f.flag &^= FlagEncrypted
		if err := f.writeLocalHeader(); err != nil {
			return err
		}
		f.state = Writing
	}

	if f.compressor != nil {
		if tail := f.compressor.Flush(); len(tail) != 0 {
			if err := f.emit(tail); err != nil {
				return err
			}
		}
	}
	if f.aes != nil {
		tag := f.aes.Finalize()
		if _, err := f.zip.w.Write(tag[:]); err != nil {
			return err
		}
		f.compressed += uint64(len(tag))
	}
	f.state = Closed

	return f.updateLocalHeader()
}

func (f *LocalFile) updateLocalHeader() error {
	pos, err := f.zip.tell()
	if err != nil {
		return err
	}

	cmpr, uncmpr := f.sizesInHeader()
	buf := make([]byte, 12)
	b := binutil.Buf(buf)
	b.PutUint32(f.crcInHeader())
	b.PutUint32(cmpr)
	b.PutUint32(uncmpr)

	if err := f.zip.seekTo(f.offset + 14); err != nil {
		return err
	}
	if _, err := f.zip.w.Write(buf); err != nil {
		return err
	}

	if f.zip64 {
		buf2 := make([]byte, 16)
		b2 := binutil.Buf(buf2)
		b2.PutUint64(f.uncompressed)
		b2.PutUint64(f.compressed)
		if err := f.zip.seekTo(f.offset + 30 + int64(len(f.name)) + 4); err != nil {
			return err
		}
		if _, err := f.zip.w.Write(buf2); err != nil {
			return err
		}
	}

	return f.zip.seekTo(pos)
}

func (f *LocalFile) patchFlag() {
	pos, err := f.zip.tell()
	if err != nil {
		return
	}
	if f.zip.seekTo(f.offset+6) != nil {
		return
	}
	buf := make([]byte, 2)
	b := binutil.Buf(buf)
	b.PutUint16(f.flag)
	f.zip.w.Write(buf)
	f.zip.seekTo(pos)
}

func (f *LocalFile) patchModified() {
	pos, err := f.zip.tell()
	if err != nil {
		return
	}
	if f.zip.seekTo(f.offset+10) != nil {
		return
	}
	buf := make([]byte, 4)
	b := binutil.Buf(buf)
	b.PutUint16(f.modified.Time)
	b.PutUint16(f.modified.Date)
	f.zip.w.Write(buf)
	f.zip.seekTo(pos)
}

func (f *LocalFile) centralExtraLength() uint16 {
	var z64Len uint16 = 4
	if f.uncompressed >= uint32Max {
		z64Len += 8
	}
	if f.compressed >= uint32Max {
		z64Len += 8
	}
	if uint64(f.offset) >= uint32Max {
		z64Len += 8
	}
	var n uint16
	if z64Len > 4 {
		n += z64Len
	}
	if f.aesMode != 0 {
		n += 11
	}
	return n
}

func (f *LocalFile) writeCentralExtra() error {
	buf := make([]byte, f.centralExtraLength())
	b := binutil.Buf(buf)

	var payload []byte
	if f.uncompressed >= uint32Max {
		payload = appendUint64(payload, f.uncompressed)
	}
	if f.compressed >= uint32Max {
		payload = appendUint64(payload, f.compressed)
	}
	if uint64(f.offset) >= uint32Max {
		payload = appendUint64(payload, uint64(f.offset))
	}
	if len(payload) != 0 {
		b.PutUint16(extraTagZip64)
		b.PutUint16(uint16(len(payload)))
		b.PutBytes(payload)
	}
	if f.aesMode != 0 {
		b.PutUint16(extraTagAES)
		b.PutUint16(7)
		b.PutUint16(0x0002)
		b.PutUint16(0x4541)
		b.PutByte(f.aesMode)
		b.PutUint16(f.method)
	}
	_, err := f.zip.w.Write(buf)
	return err
}

func appendUint64(dst []byte, v uint64) []byte {
	var tmp [8]byte
	b := binutil.Buf(tmp[:])
	b.PutUint64(v)
	return append(dst, tmp[:]...)
}

func (f *LocalFile) writeCentralHeader() error {
	cmpr, uncmpr := f.sizesInHeader()
	nameLen := uint16(len(f.name))
	commentLen := uint16(len(f.comment))
	offsetField := uint32(f.offset)
	if uint64(f.offset) >= uint32Max {
		offsetField = uint32(uint32Max)
	}

	buf := make([]byte, 46)
	b := binutil.Buf(buf)
	b.PutUint32(centralHeaderSignature)
	b.PutUint16(versionMadeBy)
	b.PutUint16(f.version())
	b.PutUint16(f.flag)
	b.PutUint16(f.methodField())
	b.PutUint16(f.modified.Time)
	b.PutUint16(f.modified.Date)
	b.PutUint32(f.crcInHeader())
	b.PutUint32(cmpr)
	b.PutUint32(uncmpr)
	b.PutUint16(nameLen)
	b.PutUint16(f.centralExtraLength())
	b.PutUint16(commentLen)
	b.PutUint16(0) // disk number start
	b.PutUint16(0) // internal file attributes
	b.PutUint32(f.external)
	b.PutUint32(offsetField)

	if _, err := f.zip.w.Write(buf); err != nil {
		return err
	}
	if _, err := f.zip.w.Write([]byte(f.name)); err != nil {
		return err
	}
	if err := f.writeCentralExtra(); err != nil {
		return err
	}
	_, err := f.zip.w.Write([]byte(f.comment))
	return err
}
