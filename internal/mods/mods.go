// Package mods models the installed-mod snapshot a resolution pass runs
// against.
//
// Mod names are identities with case-insensitive comparison. Identity uses
// Unicode case folding over NFC-normalized text, never ASCII lowercasing,
// so "Straße" and "STRASSE" collide the way users expect. The original
// spelling (truename) is preserved for all output.
package mods

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Metadata keys read by the built-in predicate comparators.
const (
	MetaDescription = "description"
	MetaSize        = "size"
	MetaVersion     = "version"
)

// Mod is a unique installable unit.
//
// Mods are immutable for the duration of one resolution pass; the engine
// never mutates them.
type Mod struct {
	// Name is the unique identifier. Compared case-insensitively,
	// displayed as spelled here.
	Name string `json:"name" yaml:"name"`

	// ContentHash optionally disambiguates identity and version.
	ContentHash string `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`

	// Source is an informational origin tag (scanner, import, store).
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Metadata maps predicate-evaluable keys (description, size, version)
	// to their values.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Meta looks up a metadata field. A nil map behaves like an empty one.
func (m Mod) Meta(key string) (string, bool) {
	if m.Metadata == nil {
		return "", false
	}
	v, ok := m.Metadata[key]
	return v, ok
}

// Key computes the caseless identity of a mod name: trim, NFC normalize,
// then Unicode case folding. Two names with equal keys are the same mod.
func Key(name string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}

// Set is an installed-mod snapshot preserving installation order.
//
// The zero value is not usable; construct with NewSet. Lookup is caseless,
// iteration order is insertion order. The first spelling of a name wins;
// adding a caseless duplicate is a no-op.
type Set struct {
	list  []Mod
	index map[string]int
}

// NewSet builds a snapshot from mods in installation order.
func NewSet(list ...Mod) *Set {
	s := &Set{index: make(map[string]int, len(list))}
	for _, m := range list {
		s.Add(m)
	}
	return s
}

// Add appends a mod unless its caseless name is already present.
// Reports whether the mod was added.
func (s *Set) Add(m Mod) bool {
	k := Key(m.Name)
	if k == "" {
		return false
	}
	if _, exists := s.index[k]; exists {
		return false
	}
	s.index[k] = len(s.list)
	s.list = append(s.list, m)
	return true
}

// Has reports whether a mod with this name is installed.
func (s *Set) Has(name string) bool {
	_, ok := s.index[Key(name)]
	return ok
}

// Get returns the installed mod for a name, caselessly.
func (s *Set) Get(name string) (Mod, bool) {
	i, ok := s.index[Key(name)]
	if !ok {
		return Mod{}, false
	}
	return s.list[i], true
}

// IndexOf returns the installation-order index for a name.
func (s *Set) IndexOf(name string) (int, bool) {
	i, ok := s.index[Key(name)]
	return i, ok
}

// Len returns the number of installed mods.
func (s *Set) Len() int {
	return len(s.list)
}

// Mods returns the mods in installation order. The slice is a copy; the
// Mod values share the underlying metadata maps, which callers must treat
// as read-only.
func (s *Set) Mods() []Mod {
	out := make([]Mod, len(s.list))
	copy(out, s.list)
	return out
}

// Names returns the installed spellings in installation order.
func (s *Set) Names() []string {
	out := make([]string, len(s.list))
	for i, m := range s.list {
		out[i] = m.Name
	}
	return out
}

// SortByFoldedName orders a mod slice by caseless name, spelling as the
// tiebreaker. Used for deterministic listings outside installation order.
func SortByFoldedName(list []Mod) {
	sort.SliceStable(list, func(i, j int) bool {
		ki, kj := Key(list[i].Name), Key(list[j].Name)
		if ki != kj {
			return ki < kj
		}
		return list[i].Name < list[j].Name
	})
}
