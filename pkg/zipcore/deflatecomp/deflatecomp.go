// Package deflatecomp plugs github.com/klauspost/compress/flate into
// pkg/zipcore's Compressor seam, giving the otherwise store-only writer
// a real DEFLATE engine the way spec.md §4.8 anticipates ("an
// implementation may plug in DEFLATE/... by honoring this contract").
//
// The core itself never imports this package — wiring it in is a
// decision the driver (cmd/zipforge) makes per entry, keeping the
// from-scratch cryptographic core and the no-engine-by-default writer
// exactly as spec.md describes them.
package deflatecomp

import (
	"bytes"

	"github.com/klauspost/compress/flate"

	"zipforge/pkg/zipcore"
)

// compressor adapts a flate.Writer to zipcore.Compressor by flushing
// after every Compress call: each entry still ends up a valid DEFLATE
// stream, just chunked less efficiently than a writer with access to
// the final Close point up front would manage.
type compressor struct {
	out *bytes.Buffer
	fw  *flate.Writer
}

// New returns a fresh Compressor for one entry at the given
// flate.Writer compression level (flate.DefaultCompression if level is
// 0 or out of flate's accepted range).
func New(level int) zipcore.Compressor {
	if level == 0 || level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	buf := new(bytes.Buffer)
	fw, err := flate.NewWriter(buf, level)
	if err != nil {
		// Only returned for an out-of-range level, already guarded above.
		panic(err)
	}
	return &compressor{out: buf, fw: fw}
}

func (c *compressor) Method() uint16  { return zipcore.Deflate }
func (c *compressor) Version() uint16 { return 20 }

func (c *compressor) Compress(data []byte) (int, []byte) {
	c.out.Reset()
	n, err := c.fw.Write(data)
	if err != nil {
		return n, nil
	}
	if err := c.fw.Flush(); err != nil {
		return n, nil
	}
	return n, append([]byte(nil), c.out.Bytes()...)
}

func (c *compressor) Flush() []byte {
	c.out.Reset()
	c.fw.Close()
	return append([]byte(nil), c.out.Bytes()...)
}
