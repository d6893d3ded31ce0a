package rules

import (
	"fmt"
	"strings"
)

// Kind identifies what a rule constrains.
//
// The set is closed: construction rejects anything else, and downstream
// switches over Kind may assume exhaustiveness.
type Kind string

const (
	// KindOrder declares that the subject loads before the object.
	KindOrder Kind = "ORDER"

	// KindRequires declares that the object must be installed and load
	// before the subject.
	KindRequires Kind = "REQUIRES"

	// KindConflict declares the subject and object incompatible unless an
	// explicit ORDER or PATCH connects them.
	KindConflict Kind = "CONFLICT"

	// KindNearStart pulls the subject toward the front of the final order.
	KindNearStart Kind = "NEARSTART"

	// KindNearEnd pulls the subject toward the back of the final order.
	KindNearEnd Kind = "NEAREND"

	// KindPatch declares the subject a compatibility patch that loads
	// after the object it patches.
	KindPatch Kind = "PATCH"

	// KindNote attaches an annotation to the subject without constraining
	// the order.
	KindNote Kind = "NOTE"
)

// Kinds lists all rule kinds in canonical order.
var Kinds = []Kind{KindOrder, KindRequires, KindConflict, KindNearStart, KindNearEnd, KindPatch, KindNote}

// ParseKind normalizes a raw kind string. Matching is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// NeedsObject reports whether the kind relates two mods.
func (k Kind) NeedsObject() bool {
	switch k {
	case KindOrder, KindRequires, KindConflict, KindPatch:
		return true
	default:
		return false
	}
}

// TakesSeverity reports whether the kind carries a conflict severity.
func (k Kind) TakesSeverity() bool {
	return k == KindConflict
}

// TakesPriority reports whether the kind carries a message emphasis level.
func (k Kind) TakesPriority() bool {
	return k == KindNote
}

// Severity grades how serious a conflict is. Severity never changes how
// resolution proceeds; conflicts are warnings regardless of tier.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// ParseSeverity normalizes a raw severity string. Matching is
// case-insensitive. An empty string is valid and means "unspecified".
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case "", SeverityLow, SeverityMedium, SeverityHigh:
		return sev, true
	default:
		return "", false
	}
}

// PredicateType names the metadata field a predicate inspects.
//
// The set is open: rule sources may carry types beyond the built-in three,
// and the resolver decides how (or whether) to evaluate them. Only the
// built-ins have default comparators.
type PredicateType string

const (
	// PredDesc matches against the subject's description metadata.
	PredDesc PredicateType = "DESC"

	// PredSize compares the subject's file size, with the comparator
	// embedded in the predicate value (e.g. ">1024").
	PredSize PredicateType = "SIZE"

	// PredVer compares the subject's version string, dotted segments
	// left to right, missing segments zero (e.g. ">=1.2").
	PredVer PredicateType = "VER"
)

// Predicate is a conditional guard on a rule. A rule with predicates is
// active only when every predicate holds for the subject's metadata.
type Predicate struct {
	Type  PredicateType `json:"type"`
	Value string        `json:"value"`
}

// MaxPriority bounds the message emphasis level on NOTE rules.
const MaxPriority = 3

// Rule is a single validated ordering constraint.
//
// Rules are immutable: construct them through New or Build and treat the
// Predicates slice as read-only.
type Rule struct {
	// Kind determines which of the remaining fields are meaningful.
	Kind Kind `json:"kind"`

	// Subject is the mod the rule is anchored to. Spelling is preserved;
	// comparison downstream is case-insensitive.
	Subject string `json:"subject"`

	// Object is the second mod for ORDER, REQUIRES, CONFLICT and PATCH.
	// Empty for all other kinds.
	Object string `json:"object,omitempty"`

	// Severity grades CONFLICT rules. Empty otherwise.
	Severity Severity `json:"severity,omitempty"`

	// Priority is the 1..3 message emphasis on NOTE rules, 0 when unset.
	// It never influences graph weights.
	Priority int `json:"priority,omitempty"`

	// Section is a free-text grouping label from the rule source.
	Section string `json:"section,omitempty"`

	// Predicates gate whether the rule is active for a given mod set.
	Predicates []Predicate `json:"predicates,omitempty"`

	// Reference is a free-text provenance note from the rule source.
	Reference string `json:"reference,omitempty"`
}

// String renders the rule in constraint notation for diagnostics,
// e.g. "ORDER(Foundation, Addon)" or "NEARSTART(Splash)".
func (r Rule) String() string {
	if r.Object != "" {
		return fmt.Sprintf("%s(%s, %s)", r.Kind, r.Subject, r.Object)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Subject)
}

// RawPredicate is an unvalidated predicate record from a rule source.
type RawPredicate struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// RawRecord is an unvalidated rule record from a rule source.
//
// File, Line and Index carry provenance for diagnostics; they do not
// become part of the constructed Rule.
type RawRecord struct {
	Kind       string         `json:"kind" yaml:"kind"`
	Subject    string         `json:"subject" yaml:"subject"`
	Object     string         `json:"object,omitempty" yaml:"object,omitempty"`
	Severity   string         `json:"severity,omitempty" yaml:"severity,omitempty"`
	Priority   int            `json:"priority,omitempty" yaml:"priority,omitempty"`
	Section    string         `json:"section,omitempty" yaml:"section,omitempty"`
	Predicates []RawPredicate `json:"predicates,omitempty" yaml:"predicates,omitempty"`
	Reference  string         `json:"reference,omitempty" yaml:"reference,omitempty"`

	// Provenance, set by the loader when known.
	File  string `json:"-" yaml:"-"`
	Line  int    `json:"-" yaml:"-"`
	Index int    `json:"-" yaml:"-"`
}

// New validates a raw record and returns a well-formed Rule.
//
// Validation is pure data checking with no side effects. The returned
// error is always a *SyntaxError carrying the record's provenance.
func New(rec RawRecord) (Rule, error) {
	fail := func(code, field, format string, args ...any) (Rule, error) {
		return Rule{}, &SyntaxError{
			Code:    code,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			File:    rec.File,
			Line:    rec.Line,
			Record:  rec.Index,
		}
	}

	kind, ok := ParseKind(rec.Kind)
	if !ok {
		return fail(ErrKindUnknown, "kind", "unknown rule kind %q", rec.Kind)
	}

	subject := strings.TrimSpace(rec.Subject)
	if subject == "" {
		return fail(ErrSubjectMissing, "subject", "%s requires a subject mod", kind)
	}

	object := strings.TrimSpace(rec.Object)
	if kind.NeedsObject() {
		if object == "" {
			return fail(ErrObjectMissing, "object", "%s requires an object mod", kind)
		}
	} else if object != "" {
		return fail(ErrObjectForbidden, "object", "%s does not take an object mod (got %q)", kind, rec.Object)
	}

	severity, ok := ParseSeverity(rec.Severity)
	if !ok {
		return fail(ErrSeverityInvalid, "severity", "unknown severity %q", rec.Severity)
	}
	if severity != "" && !kind.TakesSeverity() {
		return fail(ErrSeverityForbidden, "severity", "%s does not take a severity", kind)
	}

	if rec.Priority != 0 {
		if !kind.TakesPriority() {
			return fail(ErrPriorityForbidden, "priority", "%s does not take a priority level", kind)
		}
		if rec.Priority < 1 || rec.Priority > MaxPriority {
			return fail(ErrPriorityInvalid, "priority", "priority %d out of range 1..%d", rec.Priority, MaxPriority)
		}
	}

	var preds []Predicate
	for i, rp := range rec.Predicates {
		ptype := PredicateType(strings.ToUpper(strings.TrimSpace(rp.Type)))
		if ptype == "" {
			return fail(ErrPredicateInvalid, fmt.Sprintf("predicates[%d].type", i), "predicate type is required")
		}
		if strings.TrimSpace(rp.Value) == "" {
			return fail(ErrPredicateInvalid, fmt.Sprintf("predicates[%d].value", i), "predicate value is required for %s", ptype)
		}
		preds = append(preds, Predicate{Type: ptype, Value: rp.Value})
	}

	return Rule{
		Kind:       kind,
		Subject:    subject,
		Object:     object,
		Severity:   severity,
		Priority:   rec.Priority,
		Section:    strings.TrimSpace(rec.Section),
		Predicates: preds,
		Reference:  strings.TrimSpace(rec.Reference),
	}, nil
}

// Build constructs every record in a batch, collecting one SyntaxError per
// malformed record instead of failing the whole batch. The returned rules
// preserve the input sequence minus the rejected records.
func Build(records []RawRecord) ([]Rule, []SyntaxError) {
	var (
		built []Rule
		errs  []SyntaxError
	)
	for i, rec := range records {
		if rec.Index == 0 {
			rec.Index = i
		}
		rule, err := New(rec)
		if err != nil {
			var synErr *SyntaxError
			if asSyntaxError(err, &synErr) {
				errs = append(errs, *synErr)
			} else {
				errs = append(errs, SyntaxError{Code: ErrKindUnknown, Field: "record", Message: err.Error(), Record: rec.Index})
			}
			continue
		}
		built = append(built, rule)
	}
	return built, errs
}
