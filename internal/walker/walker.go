// Package walker discovers the files and directories a zipforge
// invocation should archive, turning each CLI input path into a flat
// sequence of Entry values the driver feeds to pkg/zipcore.Zip.Add.
//
// Grounded on original_source/main.cpp's nyaszipbuilder::_add_path (walk
// files before subdirectories, preserve empty directories, compute each
// entry's modified time from the filesystem) and, for the Go traversal
// idiom itself, on elliotnunn-BeHierarchic/internal/walk's
// fs.WalkDir-based recursive descent producing forward-slash names.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"zipforge/pkg/zipcore"
)

// Entry is one file or directory to be added to the archive.
type Entry struct {
	// AbsPath is the entry's location on disk.
	AbsPath string
	// ArchiveName is the forward-slash path to store it under, relative
	// to the root of the archive.
	ArchiveName string
	// IsDir marks directory entries (stored with a trailing slash and
	// zipcore.FileAttributeDirectory, never compressed or encrypted).
	IsDir bool
	// Size is the file size in bytes; 0 for directories.
	Size int64
	// Modified is the entry's last-modified time, taken from the
	// filesystem.
	Modified zipcore.MsDosTime
}

// Walk resolves each of inputs (a file or a directory) into a flat,
// deterministically ordered list of Entry values. A directory input
// contributes one Entry per file and per directory beneath it,
// archive-named relative to the directory's own parent (so walking
// "a/b" produces entries rooted at "b/..."), matching the teacher's
// apk-packing convention of archiving directory contents under the
// directory's own base name rather than its absolute path.
func Walk(inputs []string) ([]Entry, error) {
	var entries []Entry
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, fmt.Errorf("walker: resolving %q: %w", input, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("walker: %q: %w", input, err)
		}

		base := filepath.Base(abs)
		if !info.IsDir() {
			entries = append(entries, fileEntry(abs, base, info))
			continue
		}

		sub, err := walkDir(abs, base)
		if err != nil {
			return nil, err
		}
		entries = append(entries, sub...)
	}
	return entries, nil
}

func walkDir(root, archiveRoot string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := archiveRoot
		if rel != "." {
			name = archiveRoot + "/" + filepath.ToSlash(rel)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			entries = append(entries, Entry{
				AbsPath:     p,
				ArchiveName: name + "/",
				IsDir:       true,
				Modified:    zipcore.NewMsDosTime(info.ModTime()),
			})
			return nil
		}
		entries = append(entries, fileEntry(p, name, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walker: walking %q: %w", root, err)
	}

	// Files before the directories that contain them, mirroring
	// nyaszipbuilder's "files added before subdirectories" ordering so a
	// config overlay rooted at a subdirectory can override one rooted
	// above it when both match the same entry.
	sort.SliceStable(entries, func(i, j int) bool {
		return !entries[i].IsDir && entries[j].IsDir
	})
	return entries, nil
}

func fileEntry(abs, name string, info os.FileInfo) Entry {
	return Entry{
		AbsPath:     abs,
		ArchiveName: strings.TrimPrefix(name, "/"),
		Size:        info.Size(),
		Modified:    zipcore.NewMsDosTime(info.ModTime()),
	}
}
