package harness

import (
	"fmt"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/resolve"
	"github.com/roach88/loadstone/internal/rules"
)

// DefaultPassToken stamps scenario reports when no explicit pass token is
// configured. A fixed default keeps golden files stable across runs.
const DefaultPassToken = "test-pass-default"

// Run executes a scenario and returns the result.
//
// Each run builds a fresh installed set and resolver, so scenarios are
// isolated and repeatable.
//
// Execution flow:
//  1. Validate the scenario (required fields, assertion shapes)
//  2. Build the installed set in declaration order
//  3. Resolve the raw rule records against it
//  4. Evaluate assertions against the report
func Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is nil")
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	set := mods.NewSet(scenario.Mods...)

	token := scenario.PassToken
	if token == "" {
		token = DefaultPassToken
	}
	opts := []resolve.ResolverOption{
		resolve.WithTokenGenerator(resolve.NewFixedGenerator(token)),
	}
	if scenario.NearWeight > 0 {
		opts = append(opts, resolve.WithNearWeight(scenario.NearWeight))
	}

	// Stamp record indices so syntax diagnostics point back into the
	// scenario's rules list.
	records := make([]rules.RawRecord, len(scenario.Rules))
	for i, rec := range scenario.Rules {
		rec.Index = i
		records[i] = rec
	}

	report := resolve.New(opts...).ResolveRecords(records, set)

	result := NewResult()
	result.Report = report
	for _, msg := range EvaluateAssertions(report, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}
