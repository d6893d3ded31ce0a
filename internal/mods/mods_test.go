package mods

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCaseInsensitive(t *testing.T) {
	assert.Equal(t, Key("Foundation"), Key("FOUNDATION"))
	assert.Equal(t, Key("foundation"), Key(" Foundation "))
}

func TestKeyUnicodeFolding(t *testing.T) {
	// German sharp s folds to "ss".
	assert.Equal(t, Key("Straße"), Key("STRASSE"))
}

func TestKeyNormalizesNFC(t *testing.T) {
	// Composed vs decomposed accent.
	assert.Equal(t, Key("café"), Key("café"))
}

func TestSetCaselessLookup(t *testing.T) {
	s := NewSet(Mod{Name: "Foundation"}, Mod{Name: "Addon"})

	assert.True(t, s.Has("foundation"))
	assert.True(t, s.Has("ADDON"))
	assert.False(t, s.Has("Patch"))

	m, ok := s.Get("FOUNDATION")
	require.True(t, ok)
	assert.Equal(t, "Foundation", m.Name, "truename spelling preserved")
}

func TestSetFirstSpellingWins(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Add(Mod{Name: "Foundation"}))
	assert.False(t, s.Add(Mod{Name: "FOUNDATION"}))

	require.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"Foundation"}, s.Names())
}

func TestSetInstallationOrder(t *testing.T) {
	s := NewSet(Mod{Name: "Zebra"}, Mod{Name: "Alpha"}, Mod{Name: "Mid"})

	assert.Equal(t, []string{"Zebra", "Alpha", "Mid"}, s.Names())

	i, ok := s.IndexOf("alpha")
	require.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = s.IndexOf("missing")
	assert.False(t, ok)
}

func TestSetIgnoresBlankNames(t *testing.T) {
	s := NewSet(Mod{Name: "  "}, Mod{Name: ""})
	assert.Equal(t, 0, s.Len())
}

func TestSetModsReturnsCopy(t *testing.T) {
	s := NewSet(Mod{Name: "A"}, Mod{Name: "B"})
	list := s.Mods()
	list[0].Name = "mutated"

	m, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, "A", m.Name)
}

func TestMeta(t *testing.T) {
	m := Mod{Name: "A", Metadata: map[string]string{MetaSize: "2048"}}

	v, ok := m.Meta(MetaSize)
	require.True(t, ok)
	assert.Equal(t, "2048", v)

	_, ok = m.Meta(MetaVersion)
	assert.False(t, ok)

	_, ok = Mod{Name: "bare"}.Meta(MetaDescription)
	assert.False(t, ok)
}

func TestSortByFoldedName(t *testing.T) {
	list := []Mod{{Name: "beta"}, {Name: "Alpha"}, {Name: "ALPHA2"}}
	SortByFoldedName(list)

	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "ALPHA2", list[1].Name)
	assert.Equal(t, "beta", list[2].Name)
}
