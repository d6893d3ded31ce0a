package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/resolve"
	"github.com/roach88/loadstone/internal/rules"
)

// Scenario defines a conformance test scenario.
// Scenarios validate resolution behavior by running one pass over a
// declared installed set and rule list, then asserting on the report.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Mods lists the installed mods in installation order. A caseless
	// duplicate name keeps the first spelling, matching mods.Set.
	Mods []mods.Mod `yaml:"mods,omitempty"`

	// Rules contains the raw rule records fed to the pass. Records are
	// validated during the run, not the load; malformed ones surface in
	// the report's syntax diagnostics, which scenarios may assert on.
	Rules []rules.RawRecord `yaml:"rules,omitempty"`

	// Assertions validate the resulting report.
	// Supported types: phase, order_exact, order_relative, conflict,
	// conflict_count, missing, note, cycle, syntax.
	Assertions []Assertion `yaml:"assertions"`

	// NearWeight overrides the soft placement magnitude applied by
	// NEARSTART and NEAREND rules. Zero keeps the resolver default.
	NearWeight int `yaml:"near_weight,omitempty"`

	// PassToken is an optional fixed pass token for deterministic tests.
	// If empty, runs use a stable default so golden file comparison
	// works out of the box. Scenarios with golden files should set an
	// explicit token for traceability.
	PassToken string `yaml:"pass_token,omitempty"`
}

// Assertion validates one aspect of a resolution report.
type Assertion struct {
	// Type specifies the assertion type:
	// - "phase": check the terminal phase
	// - "order_exact": check the full resolved order
	// - "order_relative": check mods appear in relative order
	// - "conflict": check a conflict pair was reported
	// - "conflict_count": check the number of reported conflicts
	// - "missing": check a missing reference was reported
	// - "note": check an annotation was attached to a mod
	// - "cycle": check a reported cycle covers the given mods
	// - "syntax": check occurrences of a syntax error code
	Type string `yaml:"type"`

	// Phase is the expected terminal phase (used by phase).
	Phase string `yaml:"phase,omitempty"`

	// Order is the full expected load order (used by order_exact).
	Order []string `yaml:"order,omitempty"`

	// Mods lists mod names for order_relative (relative order, other
	// mods may sit between them) and cycle (all must sit on a single
	// reported cycle).
	Mods []string `yaml:"mods,omitempty"`

	// Subject and Object identify a conflict pair (used by conflict).
	// Orientation is ignored.
	Subject string `yaml:"subject,omitempty"`
	Object  string `yaml:"object,omitempty"`

	// Severity optionally narrows a conflict assertion.
	Severity string `yaml:"severity,omitempty"`

	// Name is the uninstalled mod name (used by missing).
	Name string `yaml:"name,omitempty"`

	// Mod is the annotated mod (used by note).
	Mod string `yaml:"mod,omitempty"`

	// Contains optionally narrows a note assertion to texts containing
	// this substring.
	Contains string `yaml:"contains,omitempty"`

	// Code is the diagnostic code, e.g. "E201" (used by syntax).
	Code string `yaml:"code,omitempty"`

	// Count is the exact number of expected occurrences (used by
	// conflict_count and syntax). Omitted means zero occurrences.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertPhase         = "phase"
	AssertOrderExact    = "order_exact"
	AssertOrderRelative = "order_relative"
	AssertConflict      = "conflict"
	AssertConflictCount = "conflict_count"
	AssertMissing       = "missing"
	AssertNote          = "note"
	AssertCycle         = "cycle"
	AssertSyntax        = "syntax"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
//
// Rule records are deliberately not validated here: malformed rules are
// legitimate scenario material and flow into the report's syntax
// diagnostics during the run.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.NearWeight < 0 {
		return fmt.Errorf("near_weight must be non-negative")
	}

	for i, m := range s.Mods {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("mods[%d]: name is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertPhase:
		if a.Phase != string(resolve.PhaseOrdered) && a.Phase != string(resolve.PhaseFailed) {
			return fmt.Errorf("assertions[%d]: phase must be %s or %s, got %q",
				index, resolve.PhaseOrdered, resolve.PhaseFailed, a.Phase)
		}
	case AssertOrderExact:
		if len(a.Order) == 0 {
			return fmt.Errorf("assertions[%d]: order list is required for order_exact", index)
		}
	case AssertOrderRelative:
		if len(a.Mods) < 2 {
			return fmt.Errorf("assertions[%d]: order_relative needs at least two mods", index)
		}
	case AssertConflict:
		if a.Subject == "" || a.Object == "" {
			return fmt.Errorf("assertions[%d]: subject and object are required for conflict", index)
		}
	case AssertConflictCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for conflict_count", index)
		}
	case AssertMissing:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for missing", index)
		}
	case AssertNote:
		if a.Mod == "" {
			return fmt.Errorf("assertions[%d]: mod is required for note", index)
		}
	case AssertCycle:
		if len(a.Mods) == 0 {
			return fmt.Errorf("assertions[%d]: mods list is required for cycle", index)
		}
	case AssertSyntax:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for syntax", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for syntax", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
