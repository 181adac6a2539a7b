// Command zipforge packs files and directories into a ZIP archive,
// optionally AES-encrypting (WinZip AE-2) and ZIP64-sizing individual
// entries via a TOML overlay file.
//
// Usage mirrors spec.md §6's driver-facing CLI surface and, in its flag
// handling, the style of github.com/RIZZZIOM-phishfolio/bomber's
// main.go (flag.Usage overridden to print a banner-free usage block,
// exit 0 on success, non-zero on any create/walk/write failure).
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"zipforge/internal/config"
	"zipforge/internal/walker"
	"zipforge/pkg/zipcore"
	"zipforge/pkg/zipcore/deflatecomp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("zipforge", flag.ContinueOnError)
	var out string
	var configPath string
	var comment string
	var deflate bool
	fs.StringVar(&out, "o", "out.zip", "output archive path")
	fs.StringVar(&out, "out", "out.zip", "output archive path (long form of -o)")
	fs.StringVar(&configPath, "c", "", "TOML overlay file of per-path encryption/comment/modified-time rules")
	fs.StringVar(&comment, "comment", "", "archive-level comment")
	fs.BoolVar(&deflate, "deflate", false, "compress entries with DEFLATE instead of storing them")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: zipforge [inputs...] [-o out.zip] [-c config.toml] [-h]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	overlay := config.Empty()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			logger.Error("loading config", "path", configPath, "error", err)
			return 1
		}
		overlay = loaded
	}

	entries, err := walker.Walk(inputs)
	if err != nil {
		logger.Error("walking inputs", "error", err)
		return 1
	}

	z, err := zipcore.Create(out)
	if err != nil {
		logger.Error("creating archive", "path", out, "error", err)
		return 1
	}
	if deflate {
		z.RegisterCompressor(zipcore.Deflate, func() zipcore.Compressor { return deflatecomp.New(0) })
	}
	z.Comment(comment)

	for _, e := range entries {
		if err := addEntry(z, overlay, e, deflate); err != nil {
			logger.Error("adding entry", "name", e.ArchiveName, "error", err)
			return 1
		}
	}

	if err := z.Close(); err != nil {
		logger.Error("closing archive", "error", err)
		return 1
	}
	return 0
}

func addEntry(z *zipcore.Zip, overlay *config.Overlay, e walker.Entry, deflate bool) error {
	f, err := z.Add(e.ArchiveName)
	if err != nil {
		return err
	}
	f.Modified(e.Modified)

	rule, matched := overlay.Match(e.ArchiveName)
	if matched && rule.Comment != "" {
		f.Comment(rule.Comment)
	}
	if matched {
		if t, ok := rule.Modified(); ok {
			f.Modified(zipcore.NewMsDosTime(t))
		}
	}

	if e.IsDir {
		f.ExternalAttribute(zipcore.FileAttributeDirectory)
		return nil
	}

	// 3.999GiB, assume other things in local file data besides the real
	// file data (salt, vari-code, auth tag) are under 1MiB. Matches
	// original_source/main.cpp's THRESHOLD_SIZE auto-zip64 trigger
	// (static_cast<u64>(3.999 * 1024 * 1024 * 1024)).
	const zip64Threshold uint64 = 4293893554
	if uint64(e.Size) >= zip64Threshold {
		f.ZIP64(true)
	}
	if deflate {
		f.Method(zipcore.Deflate)
	}
	if matched && rule.Password != "" {
		f.Password(rule.Password, rule.AESBits)
	}

	in, err := os.Open(e.AbsPath)
	if err != nil {
		return err
	}
	defer in.Close()

	buf := make([]byte, 4096)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}
