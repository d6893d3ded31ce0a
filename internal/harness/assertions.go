package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/resolve"
)

// AssertionError is returned when an assertion fails.
// It includes the resolved order so failures read without re-running.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Order    []string // Resolved order for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)

	if len(e.Order) > 0 {
		fmt.Fprintf(&buf, "\nresolved order:\n")
		for i, name := range e.Order {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, name)
		}
	}

	return buf.String()
}

// assertPhase checks the report's terminal phase.
func assertPhase(report *resolve.Report, assertion Assertion) error {
	if string(report.Phase) == assertion.Phase {
		return nil
	}
	return &AssertionError{
		Type:     AssertPhase,
		Expected: fmt.Sprintf("phase %s", assertion.Phase),
		Actual:   fmt.Sprintf("phase %s", report.Phase),
		Order:    report.Order,
	}
}

// assertOrderExact checks the resolved order matches position by position.
// Names compare caselessly; the report keeps installed spellings.
func assertOrderExact(report *resolve.Report, assertion Assertion) error {
	match := len(report.Order) == len(assertion.Order)
	if match {
		for i, want := range assertion.Order {
			if mods.Key(report.Order[i]) != mods.Key(want) {
				match = false
				break
			}
		}
	}
	if match {
		return nil
	}
	return &AssertionError{
		Type:     AssertOrderExact,
		Expected: fmt.Sprintf("order %v", assertion.Order),
		Actual:   fmt.Sprintf("order %v", report.Order),
		Order:    report.Order,
	}
}

// assertOrderRelative checks the mods appear in the given relative order.
// Other mods may sit between them.
func assertOrderRelative(report *resolve.Report, assertion Assertion) error {
	// The order holds each mod at most once, so position lookup is
	// unambiguous. Zero means absent (positions are 1-indexed).
	positions := make(map[string]int, len(report.Order))
	for i, name := range report.Order {
		positions[mods.Key(name)] = i + 1
	}

	for _, name := range assertion.Mods {
		if positions[mods.Key(name)] == 0 {
			return &AssertionError{
				Type:     AssertOrderRelative,
				Expected: fmt.Sprintf("all mods present: %v", assertion.Mods),
				Actual:   fmt.Sprintf("missing mod: %s", name),
				Order:    report.Order,
			}
		}
	}

	for i := 1; i < len(assertion.Mods); i++ {
		prev, curr := assertion.Mods[i-1], assertion.Mods[i]
		if positions[mods.Key(prev)] >= positions[mods.Key(curr)] {
			return &AssertionError{
				Type:     AssertOrderRelative,
				Expected: fmt.Sprintf("mods in order: %v", assertion.Mods),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[mods.Key(prev)], curr, positions[mods.Key(curr)]),
				Order: report.Order,
			}
		}
	}

	return nil
}

// assertConflict checks a conflict pair was reported. Orientation is
// ignored; severity narrows the match when given.
func assertConflict(report *resolve.Report, assertion Assertion) error {
	wantS, wantO := mods.Key(assertion.Subject), mods.Key(assertion.Object)
	for _, c := range report.Conflicts {
		gotS, gotO := mods.Key(c.Subject), mods.Key(c.Object)
		if (gotS != wantS || gotO != wantO) && (gotS != wantO || gotO != wantS) {
			continue
		}
		if assertion.Severity != "" && !strings.EqualFold(assertion.Severity, string(c.Severity)) {
			continue
		}
		return nil
	}

	expected := fmt.Sprintf("conflict between %s and %s", assertion.Subject, assertion.Object)
	if assertion.Severity != "" {
		expected += fmt.Sprintf(" with severity %s", strings.ToUpper(assertion.Severity))
	}
	return &AssertionError{
		Type:     AssertConflict,
		Expected: expected,
		Actual:   fmt.Sprintf("conflicts reported: %s", formatConflicts(report.Conflicts)),
		Order:    report.Order,
	}
}

// assertConflictCount checks the exact number of reported conflicts.
func assertConflictCount(report *resolve.Report, assertion Assertion) error {
	if len(report.Conflicts) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertConflictCount,
		Expected: fmt.Sprintf("%d conflicts", assertion.Count),
		Actual:   fmt.Sprintf("%d conflicts: %s", len(report.Conflicts), formatConflicts(report.Conflicts)),
		Order:    report.Order,
	}
}

// assertMissing checks a reference to an uninstalled mod was reported.
func assertMissing(report *resolve.Report, assertion Assertion) error {
	want := mods.Key(assertion.Name)
	for _, ref := range report.Missing {
		if mods.Key(ref.Name) == want {
			return nil
		}
	}

	names := make([]string, len(report.Missing))
	for i, ref := range report.Missing {
		names[i] = ref.Name
	}
	return &AssertionError{
		Type:     AssertMissing,
		Expected: fmt.Sprintf("missing reference to %s", assertion.Name),
		Actual:   fmt.Sprintf("missing references: %v", names),
		Order:    report.Order,
	}
}

// assertNote checks an annotation was attached to a mod. Contains narrows
// the match to note texts containing the substring.
func assertNote(report *resolve.Report, assertion Assertion) error {
	want := mods.Key(assertion.Mod)
	for _, n := range report.Notes {
		if mods.Key(n.Mod) != want {
			continue
		}
		if assertion.Contains != "" && !strings.Contains(n.Text, assertion.Contains) {
			continue
		}
		return nil
	}

	expected := fmt.Sprintf("note on %s", assertion.Mod)
	if assertion.Contains != "" {
		expected += fmt.Sprintf(" containing %q", assertion.Contains)
	}
	return &AssertionError{
		Type:     AssertNote,
		Expected: expected,
		Actual:   fmt.Sprintf("%d notes reported", len(report.Notes)),
		Order:    report.Order,
	}
}

// assertCycle checks some reported cycle passes through every given mod.
func assertCycle(report *resolve.Report, assertion Assertion) error {
	for _, cycle := range report.Cycles {
		members := make(map[string]bool, len(cycle.Path))
		for _, name := range cycle.Path {
			members[mods.Key(name)] = true
		}
		all := true
		for _, name := range assertion.Mods {
			if !members[mods.Key(name)] {
				all = false
				break
			}
		}
		if all {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertCycle,
		Expected: fmt.Sprintf("a cycle through %v", assertion.Mods),
		Actual:   fmt.Sprintf("cycles reported: %s", formatCycles(report.Cycles)),
		Order:    report.Order,
	}
}

// assertSyntax checks how many diagnostics carry the given code.
func assertSyntax(report *resolve.Report, assertion Assertion) error {
	count := 0
	for _, se := range report.Syntax {
		if se.Code == assertion.Code {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSyntax,
		Expected: fmt.Sprintf("%d diagnostics with code %s", assertion.Count, assertion.Code),
		Actual:   fmt.Sprintf("%d diagnostics", count),
		Order:    report.Order,
	}
}

func formatConflicts(conflicts []resolve.Conflict) string {
	if len(conflicts) == 0 {
		return "(none)"
	}
	parts := make([]string, len(conflicts))
	for i, c := range conflicts {
		parts[i] = fmt.Sprintf("%s/%s", c.Subject, c.Object)
	}
	return strings.Join(parts, ", ")
}

func formatCycles(cycles []resolve.Cycle) string {
	if len(cycles) == 0 {
		return "(none)"
	}
	parts := make([]string, len(cycles))
	for i, c := range cycles {
		parts[i] = strings.Join(c.Path, " -> ")
	}
	return strings.Join(parts, "; ")
}

// EvaluateAssertions evaluates all assertions against a report.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(report *resolve.Report, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertPhase:
			err = assertPhase(report, assertion)
		case AssertOrderExact:
			err = assertOrderExact(report, assertion)
		case AssertOrderRelative:
			err = assertOrderRelative(report, assertion)
		case AssertConflict:
			err = assertConflict(report, assertion)
		case AssertConflictCount:
			err = assertConflictCount(report, assertion)
		case AssertMissing:
			err = assertMissing(report, assertion)
		case AssertNote:
			err = assertNote(report, assertion)
		case AssertCycle:
			err = assertCycle(report, assertion)
		case AssertSyntax:
			err = assertSyntax(report, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
