package store

import (
	"fmt"
	"strings"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// Filter represents an abstract listing filter.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the SQL compiler.
//
// Filter types:
//   - KindIs: rule kind equality (rules only)
//   - SubjectIs: caseless subject equality (rules only)
//   - SectionIs: section label equality (rules only)
//   - NameIs: caseless mod name equality (mods only)
//   - AllOf: conjunction, all filters must hold
//
// Filters compile to parameterized SQL. Values are never interpolated into
// the query text, and every listing carries a deterministic ORDER BY
// regardless of the filter.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// KindIs filters rules by kind.
//
// Example:
//
//	KindIs{Kind: rules.KindConflict}
//
// Translates to SQL:
//
//	kind = ?
type KindIs struct {
	Kind rules.Kind
}

func (KindIs) filterNode() {}

// SubjectIs filters rules by subject mod. Comparison is caseless: the
// filter value is folded the same way mod identity is, so any spelling of
// the name matches.
type SubjectIs struct {
	Name string
}

func (SubjectIs) filterNode() {}

// SectionIs filters rules by their free-text section label. Sections are
// source labels, not identities, so comparison is exact.
type SectionIs struct {
	Section string
}

func (SectionIs) filterNode() {}

// NameIs filters mods by name, compared caselessly.
type NameIs struct {
	Name string
}

func (NameIs) filterNode() {}

// AllOf is a conjunction of filters (all must hold).
// An empty AllOf matches everything, same as a nil filter.
type AllOf struct {
	Filters []Filter
}

func (AllOf) filterNode() {}

// compileRuleFilter compiles a filter to a SQL WHERE fragment for the
// rules table. Returns (sql, params, error).
// CRITICAL: Values are NEVER interpolated - always use ? placeholders.
func compileRuleFilter(f Filter) (string, []any, error) {
	if f == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch flt := f.(type) {
	case KindIs:
		return "kind = ?", []any{string(flt.Kind)}, nil
	case *KindIs:
		return "kind = ?", []any{string(flt.Kind)}, nil
	case SubjectIs:
		return "subject_folded = ?", []any{mods.Key(flt.Name)}, nil
	case *SubjectIs:
		return "subject_folded = ?", []any{mods.Key(flt.Name)}, nil
	case SectionIs:
		return "section = ?", []any{flt.Section}, nil
	case *SectionIs:
		return "section = ?", []any{flt.Section}, nil
	case AllOf:
		return compileAllOf(flt, compileRuleFilter)
	case *AllOf:
		return compileAllOf(*flt, compileRuleFilter)
	case NameIs, *NameIs:
		return "", nil, fmt.Errorf("mod name filter does not apply to rule listings")
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

// compileModFilter compiles a filter to a SQL WHERE fragment for the mods
// table. Returns (sql, params, error).
// CRITICAL: Values are NEVER interpolated - always use ? placeholders.
func compileModFilter(f Filter) (string, []any, error) {
	if f == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch flt := f.(type) {
	case NameIs:
		return "folded = ?", []any{mods.Key(flt.Name)}, nil
	case *NameIs:
		return "folded = ?", []any{mods.Key(flt.Name)}, nil
	case AllOf:
		return compileAllOf(flt, compileModFilter)
	case *AllOf:
		return compileAllOf(*flt, compileModFilter)
	case KindIs, *KindIs, SubjectIs, *SubjectIs, SectionIs, *SectionIs:
		return "", nil, fmt.Errorf("rule filter %T does not apply to mod listings", f)
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

// compileAllOf compiles a conjunction with the given leaf compiler.
func compileAllOf(all AllOf, compile func(Filter) (string, []any, error)) (string, []any, error) {
	if len(all.Filters) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var sqlParts []string
	var allParams []any

	for _, sub := range all.Filters {
		sql, params, err := compile(sub)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}
