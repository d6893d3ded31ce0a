package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rules"
)

func installed(names ...string) *mods.Set {
	set := mods.NewSet()
	for _, n := range names {
		set.Add(mods.Mod{Name: n})
	}
	return set
}

// TestBuildGraph_OrderEdge tests that ORDER(A, B) derives the edge A→B.
func TestBuildGraph_OrderEdge(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "A", Object: "B"},
	}, set)

	assert.True(t, g.hasEdge(0, 1), "A must load before B")
	assert.False(t, g.hasEdge(1, 0))
	assert.Equal(t, []int{1}, g.adj[0])
	assert.Equal(t, 1, g.indegree[1])
}

// TestBuildGraph_RequiresEdge tests that REQUIRES(A, B) derives the edge
// B→A: the required mod loads first.
func TestBuildGraph_RequiresEdge(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindRequires, Subject: "A", Object: "B"},
	}, set)

	assert.True(t, g.hasEdge(1, 0), "B must load before A")
	assert.False(t, g.hasEdge(0, 1))
}

// TestBuildGraph_PatchEdge tests that PATCH(Patch, Base) derives the edge
// Base→Patch: the patch loads after the mod it patches.
func TestBuildGraph_PatchEdge(t *testing.T) {
	set := installed("Patch", "Base")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindPatch, Subject: "Patch", Object: "Base"},
	}, set)

	assert.True(t, g.hasEdge(1, 0), "Base must load before Patch")
	assert.False(t, g.hasEdge(0, 1))
}

// TestBuildGraph_DuplicateEdgesCollapse tests that multiple rules between
// the same ordered pair produce a single adjacency entry.
func TestBuildGraph_DuplicateEdgesCollapse(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "A", Object: "B"},
		{Kind: rules.KindOrder, Subject: "A", Object: "B"},
		{Kind: rules.KindRequires, Subject: "B", Object: "A"},
	}, set)

	assert.Equal(t, []int{1}, g.adj[0], "duplicates collapse to one edge")
	assert.Equal(t, 1, g.indegree[1])
	assert.Equal(t, maskOrder|maskRequires, g.edges[edgeKey{from: 0, to: 1}])
}

// TestBuildGraph_OpposingEdgesSurvive tests that ORDER(A,B) + ORDER(B,A)
// is not collapsed; the 2-cycle is left for the detector.
func TestBuildGraph_OpposingEdgesSurvive(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "A", Object: "B"},
		{Kind: rules.KindOrder, Subject: "B", Object: "A"},
	}, set)

	assert.True(t, g.hasEdge(0, 1))
	assert.True(t, g.hasEdge(1, 0))
}

// TestBuildGraph_CaseInsensitiveReferences tests that rule references
// resolve to installed mods regardless of spelling.
func TestBuildGraph_CaseInsensitiveReferences(t *testing.T) {
	set := installed("Better Heads", "Base Pack")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "BETTER HEADS", Object: "base pack"},
	}, set)

	assert.True(t, g.hasEdge(0, 1))
	assert.Empty(t, g.missing)
}

// TestBuildGraph_FoldedSelfReference tests that a rule relating a mod to
// its own differently-cased name becomes a self-loop, not a new node.
func TestBuildGraph_FoldedSelfReference(t *testing.T) {
	set := installed("Morrowind Patch")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "Morrowind Patch", Object: "MORROWIND PATCH"},
	}, set)

	assert.True(t, g.hasEdge(0, 0), "self-loop recorded for the cycle detector")
}

// TestBuildGraph_MissingObject tests that a rule whose object is not
// installed reports the reference and derives no edge.
func TestBuildGraph_MissingObject(t *testing.T) {
	set := installed("A")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindRequires, Subject: "A", Object: "Ghost"},
	}, set)

	assert.Empty(t, g.edges, "no edge to a mod that does not exist")
	refs := g.missingRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "Ghost", refs[0].Name)
	assert.Equal(t, "REQUIRES(A, Ghost)", refs[0].Rule)
}

// TestBuildGraph_MissingSubject tests that an uninstalled subject is
// reported for edge-deriving kinds.
func TestBuildGraph_MissingSubject(t *testing.T) {
	set := installed("B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "Ghost", Object: "B"},
	}, set)

	assert.Empty(t, g.edges)
	refs := g.missingRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "Ghost", refs[0].Name)
}

// TestBuildGraph_MissingDeduplicated tests that repeated references to the
// same uninstalled mod collapse to one report keyed by folded name.
func TestBuildGraph_MissingDeduplicated(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "A", Object: "Ghost"},
		{Kind: rules.KindRequires, Subject: "B", Object: "GHOST"},
		{Kind: rules.KindNote, Subject: "ghost", Reference: "abandoned"},
	}, set)

	refs := g.missingRefs()
	require.Len(t, refs, 1)
	assert.Equal(t, "Ghost", refs[0].Name, "first spelling wins")
	assert.Equal(t, "ORDER(A, Ghost)", refs[0].Rule, "first referencing rule wins")
}

// TestBuildGraph_MissingBothSides tests that one rule can report two
// uninstalled mods.
func TestBuildGraph_MissingBothSides(t *testing.T) {
	set := installed("Unrelated")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "GhostA", Object: "GhostB"},
	}, set)

	refs := g.missingRefs()
	require.Len(t, refs, 2)
	assert.Equal(t, "GhostA", refs[0].Name)
	assert.Equal(t, "GhostB", refs[1].Name)
}

// TestBuildGraph_InactivePredicateDerivesNothing tests that a rule with an
// unsatisfied predicate contributes no edge, conflict, or missing report.
func TestBuildGraph_InactivePredicateDerivesNothing(t *testing.T) {
	set := mods.NewSet()
	set.Add(mods.Mod{Name: "A", Metadata: map[string]string{mods.MetaSize: "100"}})
	set.Add(mods.Mod{Name: "B"})

	g := New().buildGraph([]rules.Rule{
		{
			Kind: rules.KindOrder, Subject: "A", Object: "Ghost",
			Predicates: []rules.Predicate{{Type: rules.PredSize, Value: ">1000"}},
		},
		{
			Kind: rules.KindConflict, Subject: "A", Object: "B",
			Predicates: []rules.Predicate{{Type: rules.PredDesc, Value: "anything"}},
		},
	}, set)

	assert.Empty(t, g.edges)
	assert.Empty(t, g.conflicts)
	assert.Empty(t, g.missing, "inactive rules do not report their references")
}

// TestBuildGraph_UninstalledSubjectWithPredicates tests that predicates
// cannot be evaluated without the subject's metadata, so the rule is
// silently inactive rather than reported.
func TestBuildGraph_UninstalledSubjectWithPredicates(t *testing.T) {
	set := installed("B")
	g := New().buildGraph([]rules.Rule{
		{
			Kind: rules.KindOrder, Subject: "Ghost", Object: "B",
			Predicates: []rules.Predicate{{Type: rules.PredDesc, Value: "x"}},
		},
	}, set)

	assert.Empty(t, g.edges)
	assert.Empty(t, g.missing)
}

// TestBuildGraph_UnknownPredicateTypeInactive tests that a predicate type
// without a registered comparator deactivates the rule.
func TestBuildGraph_UnknownPredicateTypeInactive(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{
			Kind: rules.KindOrder, Subject: "A", Object: "B",
			Predicates: []rules.Predicate{{Type: "CHECKSUM", Value: "abc"}},
		},
	}, set)

	assert.Empty(t, g.edges)
}

// TestBuildGraph_RegisteredComparatorActivates tests that WithComparator
// makes rules with custom predicate types evaluable.
func TestBuildGraph_RegisteredComparatorActivates(t *testing.T) {
	set := installed("A", "B")
	r := New(WithComparator("CHECKSUM", func(value string, m mods.Mod) bool {
		return value == "abc"
	}))

	g := r.buildGraph([]rules.Rule{
		{
			Kind: rules.KindOrder, Subject: "A", Object: "B",
			Predicates: []rules.Predicate{{Type: "CHECKSUM", Value: "abc"}},
		},
	}, set)

	assert.True(t, g.hasEdge(0, 1))
}

// TestBuildGraph_ConflictRecordedNotEdge tests that CONFLICT derives no
// edge.
func TestBuildGraph_ConflictRecordedNotEdge(t *testing.T) {
	set := installed("X", "Y")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "X", Object: "Y", Severity: rules.SeverityHigh},
	}, set)

	assert.Empty(t, g.edges)
	conflicts := g.survivingConflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "X", conflicts[0].Subject)
	assert.Equal(t, "Y", conflicts[0].Object)
	assert.Equal(t, rules.SeverityHigh, conflicts[0].Severity)
}

// TestBuildGraph_ConflictDeduplicatedBySeverity tests that duplicate
// conflict pairs keep the first orientation and the highest severity.
func TestBuildGraph_ConflictDeduplicatedBySeverity(t *testing.T) {
	set := installed("X", "Y")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "X", Object: "Y", Severity: rules.SeverityLow},
		{Kind: rules.KindConflict, Subject: "Y", Object: "X", Severity: rules.SeverityHigh},
		{Kind: rules.KindConflict, Subject: "X", Object: "Y"},
	}, set)

	conflicts := g.survivingConflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "X", conflicts[0].Subject, "first orientation wins")
	assert.Equal(t, rules.SeverityHigh, conflicts[0].Severity, "highest severity wins")
}

// TestSurvivingConflicts_SuppressedByOrder tests that an ORDER edge in
// either direction suppresses the conflict report.
func TestSurvivingConflicts_SuppressedByOrder(t *testing.T) {
	set := installed("X", "Y")

	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "X", Object: "Y", Severity: rules.SeverityHigh},
		{Kind: rules.KindOrder, Subject: "X", Object: "Y"},
	}, set)
	assert.Empty(t, g.survivingConflicts(), "forward ORDER suppresses")

	g = New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "X", Object: "Y", Severity: rules.SeverityHigh},
		{Kind: rules.KindOrder, Subject: "Y", Object: "X"},
	}, set)
	assert.Empty(t, g.survivingConflicts(), "reverse ORDER suppresses")
}

// TestSurvivingConflicts_SuppressedByPatch tests that a PATCH edge also
// counts as an intentional resolution.
func TestSurvivingConflicts_SuppressedByPatch(t *testing.T) {
	set := installed("X", "Y")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "X", Object: "Y"},
		{Kind: rules.KindPatch, Subject: "X", Object: "Y"},
	}, set)

	assert.Empty(t, g.survivingConflicts())
}

// TestSurvivingConflicts_NotSuppressedByRequires tests that a REQUIRES
// edge between conflicting mods leaves the conflict visible.
func TestSurvivingConflicts_NotSuppressedByRequires(t *testing.T) {
	set := installed("X", "Y")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "X", Object: "Y", Severity: rules.SeverityMedium},
		{Kind: rules.KindRequires, Subject: "X", Object: "Y"},
	}, set)

	conflicts := g.survivingConflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, rules.SeverityMedium, conflicts[0].Severity)
}

// TestSurvivingConflicts_Sorted tests deterministic conflict ordering by
// folded subject then folded object.
func TestSurvivingConflicts_Sorted(t *testing.T) {
	set := installed("zeta", "Alpha", "Mid")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindConflict, Subject: "zeta", Object: "Mid"},
		{Kind: rules.KindConflict, Subject: "Alpha", Object: "zeta"},
		{Kind: rules.KindConflict, Subject: "Alpha", Object: "Mid"},
	}, set)

	conflicts := g.survivingConflicts()
	require.Len(t, conflicts, 3)
	assert.Equal(t, "Alpha", conflicts[0].Subject)
	assert.Equal(t, "Mid", conflicts[0].Object)
	assert.Equal(t, "Alpha", conflicts[1].Subject)
	assert.Equal(t, "zeta", conflicts[1].Object)
	assert.Equal(t, "zeta", conflicts[2].Subject)
}

// TestBuildGraph_NearWeights tests soft placement weight derivation.
func TestBuildGraph_NearWeights(t *testing.T) {
	set := installed("Front", "Back", "Both", "Plain")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindNearStart, Subject: "Front"},
		{Kind: rules.KindNearStart, Subject: "Front"},
		{Kind: rules.KindNearEnd, Subject: "Back"},
		{Kind: rules.KindNearStart, Subject: "Both"},
		{Kind: rules.KindNearEnd, Subject: "Both"},
	}, set)

	assert.Equal(t, -1, g.weights[0], "NEARSTART pulls front, idempotent per kind")
	assert.Equal(t, 1, g.weights[1], "NEAREND pushes back")
	assert.Equal(t, 0, g.weights[2], "opposing pulls cancel")
	assert.Equal(t, 0, g.weights[3])
}

// TestBuildGraph_ConfigurableNearWeight tests the WithNearWeight option.
func TestBuildGraph_ConfigurableNearWeight(t *testing.T) {
	set := installed("Front")
	g := New(WithNearWeight(5)).buildGraph([]rules.Rule{
		{Kind: rules.KindNearStart, Subject: "Front"},
	}, set)

	assert.Equal(t, -5, g.weights[0])
}

// TestBuildGraph_Notes tests note collection in rule order with
// deduplication.
func TestBuildGraph_Notes(t *testing.T) {
	set := installed("A", "B")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindNote, Subject: "B", Reference: "load order matters", Priority: 2},
		{Kind: rules.KindNote, Subject: "A", Reference: "deprecated"},
		{Kind: rules.KindNote, Subject: "b", Reference: "load order matters", Priority: 2},
	}, set)

	require.Len(t, g.notes, 2)
	assert.Equal(t, Note{Mod: "B", Text: "load order matters", Priority: 2}, g.notes[0])
	assert.Equal(t, Note{Mod: "A", Text: "deprecated"}, g.notes[1])
}

// TestBuildGraph_EveryInstalledModIsANode tests that mods untouched by any
// rule still occupy arena slots so the final order covers the whole set.
func TestBuildGraph_EveryInstalledModIsANode(t *testing.T) {
	set := installed("A", "B", "Untouched")
	g := New().buildGraph([]rules.Rule{
		{Kind: rules.KindOrder, Subject: "A", Object: "B"},
	}, set)

	assert.Len(t, g.adj, 3)
	assert.Len(t, g.weights, 3)
	assert.Equal(t, 0, g.indegree[2])
}
