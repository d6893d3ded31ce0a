// Package scan discovers installed plugins on disk and turns them into
// mod records the resolve engine and the store can consume.
//
// A scan walks a plugin directory, keeps files matching the extension set
// (.esp and .esm by default), and records each file's on-disk spelling,
// size, and optional content hash. A plugin may carry a YAML sidecar
// (<plugin>.yaml next to the file) supplying description and version
// metadata; sidecar values merge into the mod's metadata map.
//
// Output order is deterministic: folded name by default, or modification
// time (the classic plugin load-order convention) with WithModTimeOrder.
package scan

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// DefaultExtensions is the plugin extension set scanned when none is
// configured. Matching is case-insensitive.
var DefaultExtensions = []string{".esp", ".esm"}

// Scanner discovers plugins under a directory.
type Scanner struct {
	extensions map[string]bool
	hashing    bool
	byModTime  bool
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithExtensions replaces the plugin extension set. Extensions are matched
// case-insensitively and must include the leading dot.
func WithExtensions(exts ...string) ScannerOption {
	return func(s *Scanner) {
		s.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			s.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithContentHash enables content hashing. Each plugin's bytes are read
// and digested, which makes scans slower but lets the store detect
// changed files under an unchanged name.
func WithContentHash() ScannerOption {
	return func(s *Scanner) {
		s.hashing = true
	}
}

// WithModTimeOrder orders the scan output by file modification time
// instead of folded name. This is the classic plugin load-order
// convention: older files load first. Equal timestamps fall back to
// folded name so the output stays deterministic.
func WithModTimeOrder() ScannerOption {
	return func(s *Scanner) {
		s.byModTime = true
	}
}

// New creates a Scanner with the given options.
func New(opts ...ScannerOption) *Scanner {
	s := &Scanner{}
	WithExtensions(DefaultExtensions...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks dir and returns one mod per matching plugin file.
//
// The returned order is the scan's installation order: it feeds straight
// into mods.NewSet and from there into resolution, so it is always
// deterministic for identical directory contents.
func (s *Scanner) Scan(dir string) ([]mods.Mod, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", dir)
	}

	type entry struct {
		mod     mods.Mod
		modTime int64
	}
	var entries []entry

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !s.extensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		m, err := s.readPlugin(dir, path, fi)
		if err != nil {
			return err
		}

		entries = append(entries, entry{mod: m, modTime: fi.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	if s.byModTime {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].modTime != entries[j].modTime {
				return entries[i].modTime < entries[j].modTime
			}
			return mods.Key(entries[i].mod.Name) < mods.Key(entries[j].mod.Name)
		})
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			return mods.Key(entries[i].mod.Name) < mods.Key(entries[j].mod.Name)
		})
	}

	list := make([]mods.Mod, len(entries))
	for i, e := range entries {
		list[i] = e.mod
	}
	return list, nil
}

// readPlugin builds the mod record for one plugin file.
func (s *Scanner) readPlugin(root, path string, fi fs.FileInfo) (mods.Mod, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = fi.Name()
	}

	m := mods.Mod{
		Name:   fi.Name(),
		Source: filepath.ToSlash(rel),
		Metadata: map[string]string{
			mods.MetaSize: strconv.FormatInt(fi.Size(), 10),
		},
	}

	if s.hashing {
		data, err := os.ReadFile(path)
		if err != nil {
			return mods.Mod{}, fmt.Errorf("hash %s: %w", path, err)
		}
		m.ContentHash = rules.HashWithDomain(rules.DomainMod, data)
	}

	if err := mergeSidecar(path, &m); err != nil {
		return mods.Mod{}, err
	}

	return m, nil
}

// sidecar is the optional metadata file a plugin may carry alongside it,
// named <plugin>.yaml.
type sidecar struct {
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// mergeSidecar folds sidecar metadata into the mod when a sidecar exists.
// A missing sidecar is normal; a malformed one fails the scan so typos
// surface instead of silently dropping metadata.
func mergeSidecar(pluginPath string, m *mods.Mod) error {
	sidecarPath := pluginPath + ".yaml"
	data, err := os.ReadFile(sidecarPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sidecar %s: %w", sidecarPath, err)
	}

	var sc sidecar
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return fmt.Errorf("parse sidecar %s: %w", sidecarPath, err)
	}

	if sc.Description != "" {
		m.Metadata[mods.MetaDescription] = sc.Description
	}
	if sc.Version != "" {
		m.Metadata[mods.MetaVersion] = sc.Version
	}
	return nil
}
