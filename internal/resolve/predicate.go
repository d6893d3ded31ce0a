package resolve

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// Comparator evaluates one predicate value against a mod's metadata.
// It reports whether the predicate holds; missing metadata means false,
// never an error.
type Comparator func(value string, m mods.Mod) bool

// defaultComparators maps predicate types to their built-in evaluators.
// Callers can override or extend the set with WithComparator.
func defaultComparators() map[rules.PredicateType]Comparator {
	return map[rules.PredicateType]Comparator{
		rules.PredDesc: DescContains,
		rules.PredSize: SizeCompare,
		rules.PredVer:  VersionCompare,
	}
}

// DescContains reports whether the mod's description metadata contains the
// predicate value as a case-insensitive substring. Missing description
// metadata evaluates to false.
func DescContains(value string, m mods.Mod) bool {
	desc, ok := m.Meta(mods.MetaDescription)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(desc), strings.ToLower(value))
}

// DescExact reports whether the mod's description metadata equals the
// predicate value exactly. Available as an alternative comparator for
// callers that need strict matching.
func DescExact(value string, m mods.Mod) bool {
	desc, ok := m.Meta(mods.MetaDescription)
	if !ok {
		return false
	}
	return desc == value
}

// SizeCompare evaluates a size predicate of the form "<op><bytes>",
// for example "=153600", "<1000000", ">=4096". A bare number means
// equality. Missing or unparseable size metadata evaluates to false,
// as does an unparseable predicate value.
func SizeCompare(value string, m mods.Mod) bool {
	raw, ok := m.Meta(mods.MetaSize)
	if !ok {
		return false
	}
	actual, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return false
	}

	op, operand := splitComparator(value)
	want, err := strconv.ParseInt(operand, 10, 64)
	if err != nil {
		return false
	}

	switch op {
	case "=":
		return actual == want
	case "<":
		return actual < want
	case ">":
		return actual > want
	case "<=":
		return actual <= want
	case ">=":
		return actual >= want
	}
	return false
}

// VersionCompare evaluates a version predicate of the form "<op><version>",
// for example ">=1.2", "<2.0.1", "=1.4". A bare version means equality.
// Versions are compared as dotted numeric tuples with missing segments
// treated as zero, so "1.2" equals "1.2.0". A leading "v" on either side
// is ignored. Missing or unparseable version metadata evaluates to false.
func VersionCompare(value string, m mods.Mod) bool {
	raw, ok := m.Meta(mods.MetaVersion)
	if !ok {
		return false
	}
	actual, err := parseVersionTuple(raw)
	if err != nil {
		return false
	}

	op, operand := splitComparator(value)
	want, err := parseVersionTuple(operand)
	if err != nil {
		return false
	}

	cmp := compareVersionTuples(actual, want)
	switch op {
	case "=":
		return cmp == 0
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// VersionConstraint evaluates the predicate value as a semver constraint
// expression against the mod's version metadata, for example ">=1.2.0,
// <2.0.0" or "~1.4". Available as an alternative comparator for callers
// whose mods carry strict semantic versions. Note that semver constraint
// semantics differ from VersionCompare for partial versions: ">1.2" means
// greater than the 1.2 line, excluding 1.2.x entirely.
func VersionConstraint(value string, m mods.Mod) bool {
	raw, ok := m.Meta(mods.MetaVersion)
	if !ok {
		return false
	}
	c, err := semver.NewConstraint(value)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return c.Check(v)
}

// splitComparator splits a predicate value into its comparison operator
// and operand. Recognized operators are =, <, >, <=, >=. A value with no
// leading operator gets "=".
func splitComparator(value string) (op, operand string) {
	v := strings.TrimSpace(value)
	switch {
	case strings.HasPrefix(v, "<="):
		return "<=", strings.TrimSpace(v[2:])
	case strings.HasPrefix(v, ">="):
		return ">=", strings.TrimSpace(v[2:])
	case strings.HasPrefix(v, "="):
		return "=", strings.TrimSpace(v[1:])
	case strings.HasPrefix(v, "<"):
		return "<", strings.TrimSpace(v[1:])
	case strings.HasPrefix(v, ">"):
		return ">", strings.TrimSpace(v[1:])
	}
	return "=", v
}

// parseVersionTuple parses a dotted numeric version like "1.2.3" into its
// integer segments. A leading "v" is stripped. Empty or non-numeric
// segments fail the parse.
func parseVersionTuple(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return nil, strconv.ErrSyntax
	}
	parts := strings.Split(s, ".")
	tuple := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		tuple = append(tuple, n)
	}
	return tuple, nil
}

// compareVersionTuples compares two version tuples segment by segment,
// zero-filling the shorter one. Returns -1, 0, or 1.
func compareVersionTuples(a, b []int64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// active reports whether a rule's predicates all hold against the subject
// mod. Rules without predicates are unconditionally active. A predicate
// whose type has no registered comparator deactivates the rule.
func (r *Resolver) active(rule rules.Rule, subject mods.Mod) bool {
	for _, p := range rule.Predicates {
		cmp, ok := r.comparators[p.Type]
		if !ok {
			return false
		}
		if !cmp(p.Value, subject) {
			return false
		}
	}
	return true
}
