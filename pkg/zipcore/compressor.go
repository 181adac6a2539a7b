package zipcore

// Compression method codes understood by versionForMethod. Store is the
// only one the core actually drives end to end; the others are recognized
// so a plugged-in Compressor can report a method the writer will size its
// version-needed field for correctly.
const (
	Store     uint16 = 0
	Deflate   uint16 = 8
	Deflate64 uint16 = 9
	BZip2     uint16 = 12
	LZMA      uint16 = 14
)

func versionForMethod(method uint16) uint16 {
	switch method {
	case Deflate:
		return versionNeedDeflate
	case Deflate64:
		return versionNeedDeflate64
	case BZip2:
		return versionNeedBZip2
	case LZMA:
		return versionNeedLZMA
	default:
		return versionNeedDefault
	}
}

// Compressor is the compression engine seam the core consumes. The core
// ships only NewStoreCompressor (method 0, a no-op pass-through); an
// implementation may plug in DEFLATE/BZip2/LZMA by honoring this
// contract — the actual DEFLATE engine is an external collaborator, not
// something this module implements.
//
// Grounded on original_source/nyaszip.hpp's AbstractCompression
// (method()/version()/compress()) and on the teacher's method-keyed
// Compressor registry in editor/zip/writer.go: each Zip keeps its own
// method-keyed map of Compressor factories (Zip.RegisterCompressor),
// with Store available without registration.
type Compressor interface {
	// Method returns the compression method number stored in headers.
	Method() uint16
	// Version returns the "version needed to extract" this method
	// imposes, independent of any encryption or zip64 requirement.
	Version() uint16
	// Compress consumes a prefix of data, returning how many bytes were
	// consumed and the compressed bytes produced for them. The returned
	// slice is only valid until the next call to Compress.
	Compress(data []byte) (consumed int, out []byte)
	// Flush returns any buffered trailing bytes the engine still owes
	// once every byte of the entry has been passed to Compress. Store
	// never buffers, so its Flush is always nil.
	Flush() []byte
}

type storeCompressor struct{}

func (storeCompressor) Method() uint16                      { return Store }
func (storeCompressor) Version() uint16                     { return versionNeedDefault }
func (storeCompressor) Compress(data []byte) (int, []byte)  { return len(data), data }
func (storeCompressor) Flush() []byte                       { return nil }

// NewStoreCompressor returns the default store-only (no-op) compression
// engine.
func NewStoreCompressor() Compressor { return storeCompressor{} }

// lookupCompressor resolves the Compressor to drive for method, checking
// registry (a Zip's per-archive overrides) before falling back to the
// package default for Store. It returns nil for any other unregistered
// method, which LocalFile.start turns into an UnsupportedMethodError.
func lookupCompressor(registry map[uint16]func() Compressor, method uint16) Compressor {
	if registry != nil {
		if factory, ok := registry[method]; ok {
			return factory()
		}
	}
	if method == Store {
		return NewStoreCompressor()
	}
	return nil
}
