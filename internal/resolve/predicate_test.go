package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/loadstone/internal/mods"
)

func modWithMeta(meta map[string]string) mods.Mod {
	return mods.Mod{Name: "Subject", Metadata: meta}
}

// TestDescContains_Substring tests case-insensitive substring matching.
func TestDescContains_Substring(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaDescription: "Adds Better Heads for NPCs"})

	assert.True(t, DescContains("better heads", m))
	assert.True(t, DescContains("NPC", m))
	assert.False(t, DescContains("bodies", m))
}

// TestDescContains_MissingMetadata tests that a missing description field
// evaluates false, never errors.
func TestDescContains_MissingMetadata(t *testing.T) {
	assert.False(t, DescContains("anything", modWithMeta(nil)))
	assert.False(t, DescContains("anything", modWithMeta(map[string]string{mods.MetaSize: "10"})))
}

// TestDescExact_Match tests strict equality matching.
func TestDescExact_Match(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaDescription: "Version 1.2 Final"})

	assert.True(t, DescExact("Version 1.2 Final", m))
	assert.False(t, DescExact("version 1.2 final", m), "exact match is case-sensitive")
	assert.False(t, DescExact("Version 1.2", m), "exact match is not substring")
}

// TestSizeCompare_Operators tests every comparison operator on file size.
func TestSizeCompare_Operators(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaSize: "1024"})

	assert.True(t, SizeCompare("=1024", m))
	assert.True(t, SizeCompare("1024", m), "bare number means equality")
	assert.True(t, SizeCompare("<2048", m))
	assert.True(t, SizeCompare(">512", m))
	assert.True(t, SizeCompare("<=1024", m))
	assert.True(t, SizeCompare(">=1024", m))

	assert.False(t, SizeCompare("=1025", m))
	assert.False(t, SizeCompare("<1024", m))
	assert.False(t, SizeCompare(">1024", m))
}

// TestSizeCompare_WhitespaceTolerant tests that spaces around the operand
// do not break parsing.
func TestSizeCompare_WhitespaceTolerant(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaSize: "500"})

	assert.True(t, SizeCompare("> 100", m))
	assert.True(t, SizeCompare(" =500 ", m))
}

// TestSizeCompare_MissingMetadata tests that a mod without size metadata
// evaluates false.
func TestSizeCompare_MissingMetadata(t *testing.T) {
	assert.False(t, SizeCompare(">0", modWithMeta(nil)))
}

// TestSizeCompare_Unparseable tests that garbage on either side evaluates
// false instead of failing.
func TestSizeCompare_Unparseable(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaSize: "not-a-number"})
	assert.False(t, SizeCompare(">0", m))

	m = modWithMeta(map[string]string{mods.MetaSize: "100"})
	assert.False(t, SizeCompare(">ten", m))
	assert.False(t, SizeCompare("", m))
}

// TestVersionCompare_Equality tests dotted numeric equality with zero-fill.
func TestVersionCompare_Equality(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "1.2"})

	assert.True(t, VersionCompare("=1.2", m))
	assert.True(t, VersionCompare("1.2", m), "bare version means equality")
	assert.True(t, VersionCompare("=1.2.0", m), "missing segments are zero")
	assert.True(t, VersionCompare("=1.2.0.0", m))
	assert.False(t, VersionCompare("=1.2.1", m))
}

// TestVersionCompare_Ordering tests segment-by-segment comparison.
func TestVersionCompare_Ordering(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "1.10.3"})

	assert.True(t, VersionCompare(">1.9", m), "segments compare numerically, not textually")
	assert.True(t, VersionCompare(">=1.10.3", m))
	assert.True(t, VersionCompare("<1.11", m))
	assert.True(t, VersionCompare("<=2", m))
	assert.False(t, VersionCompare("<1.10", m))
	assert.False(t, VersionCompare(">2.0", m))
}

// TestVersionCompare_VPrefix tests that a leading "v" is ignored on both
// sides.
func TestVersionCompare_VPrefix(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "v2.0.1"})

	assert.True(t, VersionCompare("=2.0.1", m))
	assert.True(t, VersionCompare(">=v2", m))
}

// TestVersionCompare_MissingMetadata tests that a mod without version
// metadata evaluates false.
func TestVersionCompare_MissingMetadata(t *testing.T) {
	assert.False(t, VersionCompare(">=0", modWithMeta(nil)))
}

// TestVersionCompare_Unparseable tests that non-numeric versions evaluate
// false instead of failing.
func TestVersionCompare_Unparseable(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "1.2-beta"})
	assert.False(t, VersionCompare(">=1.0", m))

	m = modWithMeta(map[string]string{mods.MetaVersion: "1.2"})
	assert.False(t, VersionCompare(">=one", m))
	assert.False(t, VersionCompare("", m))
}

// TestVersionConstraint_Range tests semver constraint expressions.
func TestVersionConstraint_Range(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "1.4.2"})

	assert.True(t, VersionConstraint(">=1.2.0, <2.0.0", m))
	assert.True(t, VersionConstraint("~1.4", m))
	assert.True(t, VersionConstraint("^1.0", m))
	assert.False(t, VersionConstraint(">=2.0.0", m))
}

// TestVersionConstraint_PartialVersionSemantics tests the semver wildcard
// behavior that distinguishes VersionConstraint from VersionCompare:
// ">1.2" means above the whole 1.2 line.
func TestVersionConstraint_PartialVersionSemantics(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "1.2.5"})

	assert.False(t, VersionConstraint(">1.2", m), "semver excludes the 1.2.x line")
	assert.True(t, VersionCompare(">1.2", m), "tuple comparison includes it")
}

// TestVersionConstraint_InvalidInputs tests that bad constraints or bad
// versions evaluate false.
func TestVersionConstraint_InvalidInputs(t *testing.T) {
	m := modWithMeta(map[string]string{mods.MetaVersion: "not-semver"})
	assert.False(t, VersionConstraint(">=1.0.0", m))

	m = modWithMeta(map[string]string{mods.MetaVersion: "1.0.0"})
	assert.False(t, VersionConstraint(">>>", m))
	assert.False(t, VersionConstraint(">=1.0.0", modWithMeta(nil)))
}

// TestSplitComparator tests operator extraction from predicate values.
func TestSplitComparator(t *testing.T) {
	cases := []struct {
		value   string
		op      string
		operand string
	}{
		{"=5", "=", "5"},
		{"<5", "<", "5"},
		{">5", ">", "5"},
		{"<=5", "<=", "5"},
		{">=5", ">=", "5"},
		{"5", "=", "5"},
		{" >= 1.2 ", ">=", "1.2"},
		{"", "=", ""},
	}
	for _, tc := range cases {
		op, operand := splitComparator(tc.value)
		assert.Equal(t, tc.op, op, "value %q", tc.value)
		assert.Equal(t, tc.operand, operand, "value %q", tc.value)
	}
}
