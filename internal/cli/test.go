package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loadstone/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string
}

// ScenarioResult is one row of a scenario suite run.
type ScenarioResult struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
}

// TestResult is the payload for the test command.
type TestResult struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-dir>",
		Short: "Run scenario files against the resolver",
		Long: `Run every YAML scenario in a directory and check its assertions
against the resolution report. A scenario declares an installed set,
a rule list, and expectations over the outcome (phase, order,
conflicts, missing references, notes, cycles, syntax diagnostics).

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (directory unreadable, no scenarios, bad filter)

Examples:
  loadstone test ./scenarios
  loadstone test ./scenarios --filter 'conflict_*'
  loadstone test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenarios whose file name matches this glob")

	return cmd
}

func runTest(opts *TestOptions, dir string, cmd *cobra.Command) error {
	files, err := harness.FindScenarioFiles(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read scenario directory", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenario files found in %s", dir))
	}

	files, err = filterScenarioFiles(files, opts.Filter)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenarios match filter %q", opts.Filter))
	}

	result := TestResult{}
	for _, path := range files {
		row := runScenarioFile(path)
		result.Total++
		if row.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, row)
	}

	if opts.Format == "json" {
		status := "ok"
		if result.Failed > 0 {
			status = "error"
		}
		if err := encodeResponse(cmd.OutOrStdout(), CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		outputTestText(cmd.OutOrStdout(), &result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// runScenarioFile loads and runs one scenario, folding load and execution
// failures into the result row so one broken file never aborts the suite.
func runScenarioFile(path string) ScenarioResult {
	row := ScenarioResult{Scenario: scenarioName(path), Path: path}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		row.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return row
	}
	row.Scenario = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		row.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return row
	}

	row.Pass = result.Pass
	row.Errors = result.Errors
	return row
}

// filterScenarioFiles keeps the files whose extension-trimmed base name
// matches the glob pattern. An empty pattern keeps everything.
func filterScenarioFiles(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}

	var kept []string
	for _, path := range files {
		matched, err := filepath.Match(pattern, scenarioName(path))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid filter pattern %q", pattern), err)
		}
		if matched {
			kept = append(kept, path)
		}
	}
	return kept, nil
}

// scenarioName derives a scenario's display name from its file path.
func scenarioName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func outputTestText(w io.Writer, result *TestResult) {
	for _, row := range result.Scenarios {
		if row.Pass {
			fmt.Fprintf(w, "✓ %s\n", row.Scenario)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", row.Scenario)
		for _, msg := range row.Errors {
			for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d/%d passed\n", result.Passed, result.Total)
}
