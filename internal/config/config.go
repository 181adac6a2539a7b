// Package config loads the per-path encryption/comment/modified-time
// overlay that zipforge's command-line front end applies to each file it
// walks, before handing the entry to pkg/zipcore.
//
// The wire format is TOML, loaded with github.com/BurntSushi/toml (named
// explicitly in spec.md §1 as one of the "external collaborators" this
// module ships a concrete implementation of). The rule shape — glob,
// password, AES bits, comment, forced modified time, first match wins —
// is grounded on original_source/main.cpp's nyaszipconfigs, which
// resolves a path-keyed config table with parent-path fallback; zipforge
// flattens that into an ordered glob list instead of a directory tree,
// since the CLI takes arbitrary input paths rather than a single rooted
// walk.
package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"
)

// Rule is one [[rule]] entry in an overlay file.
type Rule struct {
	Glob          string `toml:"glob"`
	Password      string `toml:"password"`
	AESBits       int    `toml:"aes_bits"`
	Comment       string `toml:"comment"`
	ForceModified string `toml:"modified"`
}

// Overlay is a parsed configuration file: an ordered list of rules, first
// match wins, the way original_source/main.cpp's nyaszipconfigs resolves
// the closest enclosing nyaszip.toml.
type Overlay struct {
	Rules []Rule `toml:"rule"`
}

// Load parses the TOML overlay file at path. A missing file is not an
// error — Load returns an empty Overlay so the CLI can treat "-c" as
// optional.
func Load(filePath string) (*Overlay, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return Empty(), nil
	}

	var overlay Overlay
	meta, err := toml.DecodeFile(filePath, &overlay)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", filePath, err)
	}
	for _, key := range meta.Undecoded() {
		return nil, fmt.Errorf("config: %s: unexpected key %q", filePath, key.String())
	}
	return &overlay, nil
}

// Empty returns a config with no rules, for callers that were not given
// an overlay file at all.
func Empty() *Overlay { return &Overlay{} }

// Match returns the first rule whose Glob matches name (a forward-slash
// archive-relative path), and true, or the zero Rule and false if none
// match.
func (o *Overlay) Match(name string) (Rule, bool) {
	if o == nil {
		return Rule{}, false
	}
	for _, r := range o.Rules {
		ok, err := path.Match(r.Glob, name)
		if err == nil && ok {
			return r, true
		}
	}
	return Rule{}, false
}

// Modified parses the rule's ForceModified field (RFC 3339, matching
// what a TOML datetime round-trips to as a string via BurntSushi/toml),
// returning ok=false if it is empty or malformed.
func (r Rule) Modified() (t time.Time, ok bool) {
	if r.ForceModified == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, r.ForceModified)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
