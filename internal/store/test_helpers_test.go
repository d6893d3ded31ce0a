package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// createTestStore creates a file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestMod creates a mod with the given name and optional metadata
// key/value pairs.
func createTestMod(name string, kv ...string) mods.Mod {
	m := mods.Mod{Name: name, Source: "test"}
	if len(kv) > 0 {
		m.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m.Metadata[kv[i]] = kv[i+1]
		}
	}
	return m
}

// createTestRule builds a validated rule, failing the test on a bad record.
func createTestRule(t *testing.T, rec rules.RawRecord) rules.Rule {
	t.Helper()
	r, err := rules.New(rec)
	if err != nil {
		t.Fatalf("rules.New(%+v) failed: %v", rec, err)
	}
	return r
}
