package resolve

import (
	"sort"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

// kindMask records which rule kinds contributed a directed edge between a
// node pair. Conflict suppression honors ORDER and PATCH edges only;
// a REQUIRES edge between a conflicting pair is not treated as an
// intentional resolution of the conflict.
type kindMask uint8

const (
	maskOrder kindMask = 1 << iota
	maskRequires
	maskPatch
)

// edgeKey identifies a directed must-load-before edge by node index.
type edgeKey struct {
	from, to int
}

// pairKey identifies an unordered mod pair by folded names, lower first.
type pairKey struct {
	a, b string
}

func makePairKey(x, y string) pairKey {
	if x <= y {
		return pairKey{a: x, b: y}
	}
	return pairKey{a: y, b: x}
}

// noteKey deduplicates NOTE output.
type noteKey struct {
	mod      string
	text     string
	priority int
}

// conflictRec accumulates CONFLICT rules for one unordered pair. The first
// rule fixes the reported orientation; later duplicates can only escalate
// the severity.
type conflictRec struct {
	subject  string
	object   string
	severity rules.Severity
}

func severityRank(s rules.Severity) int {
	switch s {
	case rules.SeverityLow:
		return 1
	case rules.SeverityMedium:
		return 2
	case rules.SeverityHigh:
		return 3
	}
	return 0
}

// graph is the constraint arena for one resolution pass. Node indices are
// installed-set indices; every installed mod is a node so the final order
// covers the whole set. The arena is built fresh per pass and never
// mutated after finalize.
type graph struct {
	set      *mods.Set
	edges    map[edgeKey]kindMask
	adj      [][]int
	indegree []int
	weights  []int

	conflicts map[pairKey]*conflictRec
	missing   map[string]MissingRef
	notes     []Note
}

// buildGraph derives the constraint arena from the rule set. Inactive
// rules (failed or unevaluable predicates) contribute nothing. Active
// rules that reference uninstalled mods contribute only missing-mod
// reports. Everything else derives edges, conflicts, weights, or notes
// according to kind.
func (r *Resolver) buildGraph(ruleSet []rules.Rule, set *mods.Set) *graph {
	g := &graph{
		set:       set,
		edges:     make(map[edgeKey]kindMask),
		weights:   make([]int, set.Len()),
		conflicts: make(map[pairKey]*conflictRec),
		missing:   make(map[string]MissingRef),
	}
	nearStart := make([]bool, set.Len())
	nearEnd := make([]bool, set.Len())
	noteSeen := make(map[noteKey]struct{})

	for _, rule := range ruleSet {
		subjIdx, subjOK := set.IndexOf(rule.Subject)

		// Predicates evaluate against the subject's metadata. An
		// uninstalled subject has no metadata, so every predicate is
		// false and the rule is inactive.
		if len(rule.Predicates) > 0 {
			if !subjOK {
				continue
			}
			subject, _ := set.Get(rule.Subject)
			if !r.active(rule, subject) {
				continue
			}
		}

		// The rule is active. If it references any uninstalled mod it
		// is reported and sidelined; a fabricated node would distort
		// the order of mods that do exist.
		sidelined := false
		if !subjOK {
			g.addMissing(rule.Subject, rule)
			sidelined = true
		}
		var objIdx int
		if rule.Kind.NeedsObject() {
			var objOK bool
			objIdx, objOK = set.IndexOf(rule.Object)
			if !objOK {
				g.addMissing(rule.Object, rule)
				sidelined = true
			}
		}
		if sidelined {
			continue
		}

		switch rule.Kind {
		case rules.KindOrder:
			g.addEdge(subjIdx, objIdx, maskOrder)
		case rules.KindRequires:
			g.addEdge(objIdx, subjIdx, maskRequires)
		case rules.KindPatch:
			g.addEdge(objIdx, subjIdx, maskPatch)
		case rules.KindConflict:
			g.addConflict(rule)
		case rules.KindNearStart:
			nearStart[subjIdx] = true
		case rules.KindNearEnd:
			nearEnd[subjIdx] = true
		case rules.KindNote:
			g.addNote(rule, noteSeen)
		}
	}

	// Soft placement weights are idempotent per kind and additive
	// across kinds; a mod pulled both ways nets zero.
	for i := range g.weights {
		w := 0
		if nearStart[i] {
			w -= r.nearWeight
		}
		if nearEnd[i] {
			w += r.nearWeight
		}
		g.weights[i] = w
	}

	g.finalize()
	return g
}

// addEdge collapses duplicate edges between the same ordered pair into a
// single adjacency entry, accumulating the contributing kinds. A pair of
// opposing edges is not collapsed; it survives as a 2-cycle for the cycle
// detector.
func (g *graph) addEdge(from, to int, mask kindMask) {
	g.edges[edgeKey{from: from, to: to}] |= mask
}

// addMissing records a reference to an uninstalled mod, keyed by folded
// name so differently-cased references collapse. The first referencing
// rule is kept for the report.
func (g *graph) addMissing(name string, rule rules.Rule) {
	key := mods.Key(name)
	if _, ok := g.missing[key]; ok {
		return
	}
	g.missing[key] = MissingRef{Name: name, Rule: rule.String()}
}

// addConflict records a candidate conflict pair. Both mods are installed
// at this point; the installed spelling is reported. Duplicate rules for
// the same unordered pair keep the first orientation and the highest
// severity seen.
func (g *graph) addConflict(rule rules.Rule) {
	subject, _ := g.set.Get(rule.Subject)
	object, _ := g.set.Get(rule.Object)
	key := makePairKey(mods.Key(subject.Name), mods.Key(object.Name))
	if rec, ok := g.conflicts[key]; ok {
		if severityRank(rule.Severity) > severityRank(rec.severity) {
			rec.severity = rule.Severity
		}
		return
	}
	g.conflicts[key] = &conflictRec{
		subject:  subject.Name,
		object:   object.Name,
		severity: rule.Severity,
	}
}

// addNote records an annotation for an installed mod, deduplicated on
// (folded mod, text, priority). Notes keep rule order.
func (g *graph) addNote(rule rules.Rule, seen map[noteKey]struct{}) {
	subject, _ := g.set.Get(rule.Subject)
	key := noteKey{mod: mods.Key(subject.Name), text: rule.Reference, priority: rule.Priority}
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}
	g.notes = append(g.notes, Note{Mod: subject.Name, Text: rule.Reference, Priority: rule.Priority})
}

// finalize freezes the edge map into sorted adjacency lists and indegree
// counts. Sorting removes any dependence on map iteration order.
func (g *graph) finalize() {
	n := g.set.Len()
	g.adj = make([][]int, n)
	g.indegree = make([]int, n)
	for key := range g.edges {
		g.adj[key.from] = append(g.adj[key.from], key.to)
		g.indegree[key.to]++
	}
	for _, targets := range g.adj {
		sort.Ints(targets)
	}
}

// hasOrderingEdge reports whether an ORDER or PATCH edge connects the two
// nodes in either direction. An explicit ordering between conflicting
// mods is treated as an intentional resolution.
func (g *graph) hasOrderingEdge(a, b int) bool {
	const suppressing = maskOrder | maskPatch
	if g.edges[edgeKey{from: a, to: b}]&suppressing != 0 {
		return true
	}
	return g.edges[edgeKey{from: b, to: a}]&suppressing != 0
}

// survivingConflicts filters recorded conflict pairs against ordering
// edges and returns the survivors sorted by folded subject then folded
// object.
func (g *graph) survivingConflicts() []Conflict {
	out := make([]Conflict, 0, len(g.conflicts))
	for _, rec := range g.conflicts {
		ai, _ := g.set.IndexOf(rec.subject)
		bi, _ := g.set.IndexOf(rec.object)
		if g.hasOrderingEdge(ai, bi) {
			continue
		}
		out = append(out, Conflict{Subject: rec.subject, Object: rec.object, Severity: rec.severity})
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := mods.Key(out[i].Subject), mods.Key(out[j].Subject)
		if si != sj {
			return si < sj
		}
		return mods.Key(out[i].Object) < mods.Key(out[j].Object)
	})
	return out
}

// missingRefs returns recorded missing-mod references sorted by folded
// name.
func (g *graph) missingRefs() []MissingRef {
	keys := make([]string, 0, len(g.missing))
	for k := range g.missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]MissingRef, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.missing[k])
	}
	return out
}
