// Package zipcore implements a ZIP archive writer supporting ZIP64
// extensions and WinZip AE-2 AES encryption, built around an
// in-place-patchable local header (no data descriptors) the way
// original_source/nyaszip.hpp's Zip/LocalFile pair does it, reshaped
// into the countWriter/header-struct idiom of the teacher's
// editor/zip/writer.go.
package zipcore

import (
	"io"
	"os"
	"time"

	"zipforge/pkg/zipcore/internal/binutil"
	"zipforge/pkg/zipcrypto/pcgrand"
)

// WritingState is the lifecycle stage of a Zip or LocalFile.
type WritingState uint8

const (
	Preparing WritingState = iota
	Writing
	Closed
)

// Zip is a streaming ZIP archive writer. Entries are added with Add,
// written to via the returned LocalFile, and the archive is finalized
// with Close.
//
// A Zip is not safe for concurrent use; only one LocalFile may be open
// (in Preparing or Writing state) at a time, mirroring the single
// shared-buffer constraint of the original writer.
type Zip struct {
	w     io.WriteSeeker
	owned io.Closer

	state   WritingState
	base    int64 // offset of byte 0 of the archive within w
	comment string

	dir     []*LocalFile
	current *LocalFile

	random *pcgrand.Source

	compressors map[uint16]func() Compressor
}

// Create truncates or creates the file at path and returns a Zip
// writing into it; Close also closes the underlying file.
func Create(path string) (*Zip, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	z := NewZip(f, true)
	z.owned = f
	return z, nil
}

// NewZip wraps w as a Zip archive writer, starting at w's current
// position. If owned is true, Close also closes w (w must implement
// io.Closer in that case).
func NewZip(w io.WriteSeeker, owned bool) *Zip {
	base, _ := w.Seek(0, io.SeekCurrent)
	seed := uint64(time.Now().UnixNano()) ^ uint64(base)*0x9E3779B97F4A7C15
	z := &Zip{
		w:      w,
		state:  Writing,
		base:   base,
		random: pcgrand.New(seed),
	}
	if owned {
		if c, ok := w.(io.Closer); ok {
			z.owned = c
		}
	}
	return z
}

// Comment sets the archive-level comment stored in the end-of-central-
// directory record.
func (z *Zip) Comment(s string) *Zip {
	if z.state != Closed {
		z.comment = s
	}
	return z
}

// State reports the archive's current lifecycle stage.
func (z *Zip) State() WritingState { return z.state }

// Current returns the most recently added entry, or nil if none has been
// added or the archive is closed.
func (z *Zip) Current() *LocalFile {
	if z.state == Closed || len(z.dir) == 0 {
		return nil
	}
	return z.current
}

// RegisterCompressor installs factory as the source of fresh Compressor
// instances for method on this Zip, overriding (or, for any method other
// than Store, introducing) the engine LocalFile.start binds to entries
// requesting it. factory is called once per entry so stateful engines
// (a real DEFLATE stream, for instance) don't leak state across entries.
func (z *Zip) RegisterCompressor(method uint16, factory func() Compressor) {
	if z.compressors == nil {
		z.compressors = make(map[uint16]func() Compressor)
	}
	z.compressors[method] = factory
}

func (z *Zip) tell() (int64, error) {
	pos, err := z.w.Seek(0, io.SeekCurrent)
	return pos - z.base, err
}

func (z *Zip) seekTo(offset int64) error {
	_, err := z.w.Seek(z.base+offset, io.SeekStart)
	return err
}

func (z *Zip) genSalt(buf []byte) {
	z.random.Read(buf)
}

// Add appends a new entry named name and makes it current, closing the
// previously current entry first. The returned LocalFile starts in the
// Preparing state: configure it (Password, ZIP64, etc.) before writing.
func (z *Zip) Add(name string) (*LocalFile, error) {
	if z.state != Writing {
		return nil, ErrClosed
	}
	if err := z.closeCurrent(); err != nil {
		return nil, err
	}

	f := newLocalFile(z)
	if err := f.Name(name); err != nil {
		return nil, err
	}

	z.dir = append(z.dir, f)
	z.current = f
	return f, nil
}

func (z *Zip) closeCurrent() error {
	if z.current != nil && z.current.state != Closed {
		return z.current.Close()
	}
	return nil
}

// Close finalizes the current entry (if any), writes the central
// directory and end-of-central-directory records (upgrading to ZIP64
// forms as needed), and closes the underlying writer if Zip owns it.
// Close is idempotent.
func (z *Zip) Close() error {
	if z.state == Closed {
		return nil
	}
	if err := z.closeCurrent(); err != nil {
		return err
	}
	z.state = Closed

	cdOffset, err := z.tell()
	if err != nil {
		return err
	}
	for _, f := range z.dir {
		if err := f.writeCentralHeader(); err != nil {
			return err
		}
	}
	cdEnd, err := z.tell()
	if err != nil {
		return err
	}
	cdSize := uint64(cdEnd - cdOffset)

	needsZip64 := uint64(len(z.dir)) >= uint16Max || cdSize >= uint32Max || uint64(cdOffset) >= uint32Max
	if needsZip64 {
		recordOffset, err := z.tell()
		if err != nil {
			return err
		}
		if err := z.writeZip64EndRecord(cdSize, uint64(cdOffset)); err != nil {
			return err
		}
		if err := z.writeZip64Locator(uint64(recordOffset)); err != nil {
			return err
		}
	}
	if err := z.writeEndOfCentralDir(cdSize, uint64(cdOffset), needsZip64); err != nil {
		return err
	}

	if z.owned != nil {
		return z.owned.Close()
	}
	return nil
}

func (z *Zip) writeZip64EndRecord(cdSize, cdOffset uint64) error {
	buf := make([]byte, 56)
	b := binutil.Buf(buf)
	b.PutUint32(zip64EndRecordSignature)
	b.PutUint64(44) // record size minus signature and this field
	b.PutUint16(versionMadeBy)
	b.PutUint16(versionNeedZip64)
	b.PutUint32(0) // number of this disk
	b.PutUint32(0) // disk with start of central directory
	b.PutUint64(uint64(len(z.dir)))
	b.PutUint64(uint64(len(z.dir)))
	b.PutUint64(cdSize)
	b.PutUint64(cdOffset)
	_, err := z.w.Write(buf)
	return err
}

func (z *Zip) writeZip64Locator(recordOffset uint64) error {
	buf := make([]byte, 20)
	b := binutil.Buf(buf)
	b.PutUint32(zip64LocatorSignature)
	b.PutUint32(0) // disk with start of zip64 end record
	b.PutUint64(recordOffset)
	b.PutUint32(1) // total number of disks
	_, err := z.w.Write(buf)
	return err
}

func (z *Zip) writeEndOfCentralDir(cdSize, cdOffset uint64, zip64 bool) error {
	records := uint64(len(z.dir))
	if zip64 {
		records = uint16Max
		cdSize = uint32Max
		cdOffset = uint32Max
	}

	buf := make([]byte, 22)
	b := binutil.Buf(buf)
	b.PutUint32(endOfCentralDirSignature)
	b.PutUint16(0) // number of this disk
	b.PutUint16(0) // disk with start of central directory
	b.PutUint16(uint16(records))
	b.PutUint16(uint16(records))
	b.PutUint32(uint32(cdSize))
	b.PutUint32(uint32(cdOffset))
	b.PutUint16(uint16(len(z.comment)))
	if _, err := z.w.Write(buf); err != nil {
		return err
	}
	_, err := io.WriteString(z.w, z.comment)
	return err
}
