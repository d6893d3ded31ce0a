package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/resolve"
	"github.com/roach88/loadstone/internal/rules"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	inputOptions
	Semver bool
	Weight int
	Out    string

	// TokenGenerator allows overriding the pass token source (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator resolve.TokenGenerator
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <rules-path>",
		Short: "Compute a load order",
		Long: `Run one resolution pass over a rule set and an installed mod set.

Rules load from a .cue file or from every .cue file under a directory.
The installed set comes from a catalog database (--db) or a plugin
directory scan (--mods-dir). Conflicts, missing references, and notes
are warnings; only a rule cycle fails the pass.

Exit codes:
  0 - Pass ordered (warnings allowed)
  1 - Pass failed (rule cycle)
  2 - Command error (invalid paths, database not found, etc.)

Examples:
  loadstone resolve ./rules --mods-dir ./plugins
  loadstone resolve ./rules --db ./catalog.db --format json
  loadstone resolve ./rules --mods-dir ./plugins --mtime --out report.json
  loadstone resolve ./rules --db ./catalog.db --semver --weight 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	addInputFlags(cmd, &opts.inputOptions)
	cmd.Flags().BoolVar(&opts.Semver, "semver", false, "evaluate VER predicates as semver constraints")
	cmd.Flags().IntVar(&opts.Weight, "weight", 0, "soft placement magnitude for NEARSTART/NEAREND (default 1)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the canonical JSON report to this file")

	return cmd
}

func runResolve(opts *ResolveOptions, rulesPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Debug("loading rules", "path", rulesPath)
	records, loadDiags, err := loadRuleRecords(rulesPath)
	if err != nil {
		return err
	}
	for _, diag := range loadDiags {
		slog.Warn("skipped malformed rule record", "error", diag)
	}
	slog.Debug("rules loaded", "records", len(records), "skipped", len(loadDiags))

	installed, err := loadInstalledSet(&opts.inputOptions)
	if err != nil {
		return err
	}
	slog.Debug("installed set ready", "mods", len(installed))

	resolver := newResolver(opts.Weight, opts.Semver, opts.TokenGenerator)
	report := resolver.ResolveRecords(records, mods.NewSet(installed...))
	slog.Debug("pass finished", "phase", report.Phase, "ok", report.OK)

	if opts.Out != "" {
		if err := writeReportFile(report, opts.Out); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
	}

	if opts.Format == "json" {
		if err := outputReportJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		outputReportText(cmd.OutOrStdout(), report, opts.Out)
	}

	if report.Phase == resolve.PhaseFailed {
		return NewExitError(ExitFailure, "resolution failed: rule cycle")
	}
	return nil
}

// newResolver builds the resolver a command's flags describe.
func newResolver(weight int, semver bool, gen resolve.TokenGenerator) *resolve.Resolver {
	var resolverOpts []resolve.ResolverOption
	if weight > 0 {
		resolverOpts = append(resolverOpts, resolve.WithNearWeight(weight))
	}
	if semver {
		resolverOpts = append(resolverOpts, resolve.WithComparator(rules.PredVer, resolve.VersionConstraint))
	}
	if gen != nil {
		resolverOpts = append(resolverOpts, resolve.WithTokenGenerator(gen))
	}
	return resolve.New(resolverOpts...)
}

// writeReportFile writes the canonical JSON report to a file. Canonical
// bytes on disk mean the file's digest is reproducible.
func writeReportFile(report *resolve.Report, path string) error {
	data, err := report.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// outputReportJSON emits the canonical report inside the standard CLI
// envelope. The report bytes pass through as-is so their key order stays
// canonical.
func outputReportJSON(w io.Writer, report *resolve.Report) error {
	data, err := report.MarshalCanonical()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal report", err)
	}

	response := CLIResponse{
		Status:    "ok",
		Data:      json.RawMessage(data),
		PassToken: report.PassToken,
	}
	if !report.OK {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_CYCLE",
			Message: "rule set contains a cycle",
		}
	}

	return encodeResponse(w, response)
}

// outputReportText renders the report for humans.
func outputReportText(w io.Writer, report *resolve.Report, outFile string) {
	if report.OK {
		fmt.Fprintf(w, "✓ Resolved %d mod(s)\n", len(report.Order))
	} else {
		fmt.Fprintln(w, "✗ Resolution failed: rule cycle")
	}
	fmt.Fprintln(w)

	if report.OK {
		fmt.Fprintln(w, "=== Load Order ===")
		if len(report.Order) == 0 {
			fmt.Fprintln(w, "  (no mods installed)")
		}
		for i, name := range report.Order {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, name)
		}
		fmt.Fprintln(w)
	}

	if len(report.Cycles) > 0 {
		fmt.Fprintln(w, "=== Cycles ===")
		for _, c := range report.Cycles {
			fmt.Fprintf(w, "  %s\n", joinCyclePath(c))
		}
		fmt.Fprintln(w)
	}

	if len(report.Conflicts) > 0 {
		fmt.Fprintln(w, "=== Conflicts ===")
		for _, c := range report.Conflicts {
			if c.Severity != "" {
				fmt.Fprintf(w, "  [%s] %s / %s\n", c.Severity, c.Subject, c.Object)
			} else {
				fmt.Fprintf(w, "  %s / %s\n", c.Subject, c.Object)
			}
		}
		fmt.Fprintln(w)
	}

	if len(report.Missing) > 0 {
		fmt.Fprintln(w, "=== Missing References ===")
		for _, ref := range report.Missing {
			fmt.Fprintf(w, "  %s (from %s)\n", ref.Name, ref.Rule)
		}
		fmt.Fprintln(w)
	}

	if len(report.Notes) > 0 {
		fmt.Fprintln(w, "=== Notes ===")
		for _, n := range report.Notes {
			if n.Priority > 0 {
				fmt.Fprintf(w, "  [%d] %s: %s\n", n.Priority, n.Mod, n.Text)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", n.Mod, n.Text)
			}
		}
		fmt.Fprintln(w)
	}

	if len(report.Syntax) > 0 {
		fmt.Fprintln(w, "=== Syntax Diagnostics ===")
		for _, se := range report.Syntax {
			fmt.Fprintf(w, "  %s\n", se.Error())
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Ruleset digest: %s\n", report.RulesetDigest)
	fmt.Fprintf(w, "Pass token:     %s\n", report.PassToken)
	if outFile != "" {
		fmt.Fprintf(w, "Wrote canonical report to %s\n", outFile)
	}
}

// joinCyclePath renders a cycle's closed walk.
func joinCyclePath(c resolve.Cycle) string {
	out := ""
	for i, name := range c.Path {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}
