package resolve

import (
	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// DefaultNearWeight is the soft placement magnitude applied per NEARSTART
// or NEAREND rule kind.
const DefaultNearWeight = 1

// Resolver computes deterministic load orders from rule sets.
//
// A Resolver is immutable after New and safe for concurrent use: every
// Resolve call builds its own arena over the caller's snapshot and shares
// no mutable state with other passes.
type Resolver struct {
	nearWeight  int
	comparators map[rules.PredicateType]Comparator
	tokens      TokenGenerator
}

// ResolverOption allows configuration of resolver parameters.
type ResolverOption func(*Resolver)

// WithNearWeight sets the soft placement magnitude applied by NEARSTART
// (toward the front) and NEAREND (toward the back) rules.
//
// Default: 1 (DefaultNearWeight). Magnitudes below 1 are ignored.
func WithNearWeight(magnitude int) ResolverOption {
	return func(r *Resolver) {
		if magnitude >= 1 {
			r.nearWeight = magnitude
		}
	}
}

// WithComparator registers or replaces the comparator for one predicate
// type. Registering a type outside the built-in three makes rules
// carrying it evaluable; without a comparator such rules stay inactive.
func WithComparator(t rules.PredicateType, cmp Comparator) ResolverOption {
	return func(r *Resolver) {
		r.comparators[t] = cmp
	}
}

// WithTokenGenerator replaces the pass token source. Tests use
// NewFixedGenerator for stable report fixtures.
func WithTokenGenerator(gen TokenGenerator) ResolverOption {
	return func(r *Resolver) {
		r.tokens = gen
	}
}

// New creates a Resolver with built-in comparators (DESC substring, SIZE
// numeric, VER dotted numeric) and UUIDv7 pass tokens.
func New(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		nearWeight:  DefaultNearWeight,
		comparators: defaultComparators(),
		tokens:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs one resolution pass over validated rules and the installed
// set. It always returns a report; a cyclic rule set yields a FAILED
// report rather than an error, and Report.Err converts that to a
// *ResolveError for callers that want one.
//
// The pass reads its inputs and writes nothing: no I/O, no logging, no
// shared state.
func (r *Resolver) Resolve(ruleSet []rules.Rule, set *mods.Set) *Report {
	return r.resolve(ruleSet, set, nil)
}

// ResolveRecords validates raw records per Build semantics, then resolves
// the rules that survived. Malformed records each yield one entry in
// Report.Syntax and never reach the graph; they do not halt the batch.
func (r *Resolver) ResolveRecords(records []rules.RawRecord, set *mods.Set) *Report {
	built, syntax := rules.Build(records)
	return r.resolve(built, set, syntax)
}

func (r *Resolver) resolve(ruleSet []rules.Rule, set *mods.Set, syntax []rules.SyntaxError) *Report {
	if set == nil {
		set = mods.NewSet()
	}

	report := &Report{
		PassToken: r.tokens.Generate(),
		Phase:     PhasePending,
		Syntax:    syntax,
	}
	// Rule canonical form contains only strings and small ints, so the
	// digest cannot fail for rules that passed construction.
	if digest, err := rules.RulesetDigest(ruleSet); err == nil {
		report.RulesetDigest = digest
	}

	g := r.buildGraph(ruleSet, set)
	report.Phase = PhaseGraphBuilt
	report.Conflicts = g.survivingConflicts()
	report.Missing = g.missingRefs()
	report.Notes = g.notes

	cycles := g.detectCycles()
	if len(cycles) > 0 {
		report.Phase = PhaseCyclic
		report.Cycles = cycles
		report.OK = false
		report.Order = []string{}
		report.Phase = PhaseFailed
		return report
	}

	report.Phase = PhaseAcyclic
	report.Order = g.topoOrder()
	report.OK = true
	report.Phase = PhaseOrdered
	return report
}
