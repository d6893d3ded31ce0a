// Package harness provides conformance testing for the resolution engine.
//
// The harness loads YAML scenario files, runs a resolution pass over the
// mods and rules each one declares, and validates the resulting report.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	mods:
//	  - name: Base.esp
//	  - name: Addon.esp
//	    metadata: { version: "1.2" }
//	rules:
//	  - kind: ORDER
//	    subject: Base.esp
//	    object: Addon.esp
//	assertions:
//	  - type: phase
//	    phase: ORDERED
//	  - type: order_exact
//	    order: [Base.esp, Addon.esp]
//	pass_token: test-pass-0001
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - phase: verifies the terminal phase (ORDERED or FAILED)
//   - order_exact: verifies the full resolved order, position by position
//   - order_relative: verifies mods appear in relative order
//   - conflict: verifies a conflict pair was reported
//   - conflict_count: verifies how many conflicts were reported
//   - missing: verifies a reference to an uninstalled mod was reported
//   - note: verifies an annotation was attached to a mod
//   - cycle: verifies a reported cycle passes through the given mods
//   - syntax: verifies how many diagnostics carry a given error code
//
// Mod names in assertions compare caselessly, the same way the engine
// treats them.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed pass token (scenario.pass_token, or a
// stable default) and reports render through canonical JSON, so repeated
// runs produce byte-identical output for golden file comparison.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/patch_chain.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
