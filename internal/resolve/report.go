package resolve

import (
	"github.com/roach88/loadstone/internal/rules"
)

// Phase tracks a resolution pass through its state machine:
//
//	PENDING -> GRAPH_BUILT -> (CYCLIC | ACYCLIC) -> ORDERED | FAILED
//
// A returned Report always carries a terminal phase, ORDERED or FAILED.
type Phase string

const (
	PhasePending    Phase = "PENDING"
	PhaseGraphBuilt Phase = "GRAPH_BUILT"
	PhaseCyclic     Phase = "CYCLIC"
	PhaseAcyclic    Phase = "ACYCLIC"
	PhaseOrdered    Phase = "ORDERED"
	PhaseFailed     Phase = "FAILED"
)

// Conflict is a recorded incompatibility between two installed mods.
// Conflicts are advisory: they never affect edge derivation or ordering.
type Conflict struct {
	Subject  string         `json:"subject" yaml:"subject"`
	Object   string         `json:"object" yaml:"object"`
	Severity rules.Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// MissingRef reports a rule that references a mod absent from the
// installed set. The rule contributes nothing to the graph; the
// reference is surfaced so the user can install the mod or prune
// the rule.
type MissingRef struct {
	Name string `json:"name" yaml:"name"`
	Rule string `json:"rule" yaml:"rule"`
}

// Note is an informational annotation attached to an installed mod by an
// active NOTE rule.
type Note struct {
	Mod      string `json:"mod" yaml:"mod"`
	Text     string `json:"text" yaml:"text"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Cycle is one strongly connected component rendered as a closed walk,
// for example ["A", "B", "A"]. A self-loop renders as ["A", "A"].
type Cycle struct {
	Path []string `json:"path" yaml:"path"`
}

// Report is the complete outcome of one resolution pass. Reports are
// plain values: callers inspect fields or use Err to convert a failed
// pass into an error.
type Report struct {
	// PassToken identifies this pass. Excluded from Digest.
	PassToken string `json:"pass_token" yaml:"pass_token"`

	// Phase is the terminal state of the pass, ORDERED or FAILED.
	Phase Phase `json:"phase" yaml:"phase"`

	// OK is true unless the graph was cyclic. Conflicts, missing
	// references, and notes are warnings and do not clear it.
	OK bool `json:"ok" yaml:"ok"`

	// Order is the resolved load order using each mod's installed
	// spelling. Empty when the pass failed.
	Order []string `json:"order" yaml:"order"`

	// Conflicts holds surviving CONFLICT records, deduplicated per
	// unordered pair and sorted by folded subject then folded object.
	Conflicts []Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`

	// Missing holds references to uninstalled mods, deduplicated by
	// folded name and sorted by folded name.
	Missing []MissingRef `json:"missing,omitempty" yaml:"missing,omitempty"`

	// Notes holds annotations from active NOTE rules in rule order,
	// deduplicated.
	Notes []Note `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Cycles holds every strongly connected component that failed the
	// pass, shortest path first.
	Cycles []Cycle `json:"cycles,omitempty" yaml:"cycles,omitempty"`

	// Syntax holds construction errors from ResolveRecords. Rules that
	// failed construction never reach the graph.
	Syntax []rules.SyntaxError `json:"syntax_errors,omitempty" yaml:"syntax_errors,omitempty"`

	// RulesetDigest is the canonical digest of the input rule set.
	RulesetDigest string `json:"ruleset_digest" yaml:"ruleset_digest"`
}

// Err converts a failed pass into a *ResolveError. Passes that completed
// with warnings return nil; only a cyclic graph is an error.
func (r *Report) Err() error {
	if r.Phase != PhaseFailed {
		return nil
	}
	return NewCircularError(r.Cycles)
}

// Digest computes the canonical SHA-256 digest of the report, excluding
// the pass token so repeated passes over identical inputs produce
// identical digests.
func (r *Report) Digest() (string, error) {
	return rules.CanonicalDigest(rules.DomainReport, r.canonicalMap())
}

// MarshalCanonical renders the report as canonical JSON, pass token
// included. With a fixed token source the bytes come out identical across
// passes over the same inputs, which is what golden report fixtures and
// machine-readable CLI output compare against.
func (r *Report) MarshalCanonical() ([]byte, error) {
	m := r.canonicalMap()
	m["pass_token"] = r.PassToken
	return rules.MarshalCanonical(m)
}

func (r *Report) canonicalMap() map[string]any {
	m := map[string]any{
		"phase":          string(r.Phase),
		"ok":             r.OK,
		"order":          stringSliceToAny(r.Order),
		"ruleset_digest": r.RulesetDigest,
	}
	if len(r.Conflicts) > 0 {
		arr := make([]any, 0, len(r.Conflicts))
		for _, c := range r.Conflicts {
			cm := map[string]any{
				"subject": c.Subject,
				"object":  c.Object,
			}
			if c.Severity != "" {
				cm["severity"] = string(c.Severity)
			}
			arr = append(arr, cm)
		}
		m["conflicts"] = arr
	}
	if len(r.Missing) > 0 {
		arr := make([]any, 0, len(r.Missing))
		for _, ref := range r.Missing {
			arr = append(arr, map[string]any{
				"name": ref.Name,
				"rule": ref.Rule,
			})
		}
		m["missing"] = arr
	}
	if len(r.Notes) > 0 {
		arr := make([]any, 0, len(r.Notes))
		for _, n := range r.Notes {
			nm := map[string]any{
				"mod":  n.Mod,
				"text": n.Text,
			}
			if n.Priority != 0 {
				nm["priority"] = n.Priority
			}
			arr = append(arr, nm)
		}
		m["notes"] = arr
	}
	if len(r.Cycles) > 0 {
		arr := make([]any, 0, len(r.Cycles))
		for _, c := range r.Cycles {
			arr = append(arr, map[string]any{
				"path": stringSliceToAny(c.Path),
			})
		}
		m["cycles"] = arr
	}
	if len(r.Syntax) > 0 {
		arr := make([]any, 0, len(r.Syntax))
		for _, se := range r.Syntax {
			arr = append(arr, map[string]any{
				"code":    string(se.Code),
				"field":   se.Field,
				"message": se.Message,
			})
		}
		m["syntax_errors"] = arr
	}
	return m
}

func stringSliceToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
