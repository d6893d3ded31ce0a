package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/resolve"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	inputOptions
	Semver bool
	Weight int
	Output string

	// TokenGenerator allows overriding the pass token source (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator resolve.TokenGenerator
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <rules-path>",
		Short: "Export a computed order as YAML",
		Long: `Run one resolution pass and emit the full report as YAML, for other
tools to consume. Without --output the document goes to stdout.

A failed pass still exports its report (cycles, conflicts, missing
references) and exits 1, so pipelines can archive the evidence.

Examples:
  loadstone export ./rules --mods-dir ./plugins
  loadstone export ./rules --db ./catalog.db --output order.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	addInputFlags(cmd, &opts.inputOptions)
	cmd.Flags().BoolVar(&opts.Semver, "semver", false, "evaluate VER predicates as semver constraints")
	cmd.Flags().IntVar(&opts.Weight, "weight", 0, "soft placement magnitude for NEARSTART/NEAREND (default 1)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "write the YAML document to this file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, rulesPath string, cmd *cobra.Command) error {
	records, loadDiags, err := loadRuleRecords(rulesPath)
	if err != nil {
		return err
	}
	for _, diag := range loadDiags {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped malformed rule record: %v\n", diag)
	}

	installed, err := loadInstalledSet(&opts.inputOptions)
	if err != nil {
		return err
	}

	resolver := newResolver(opts.Weight, opts.Semver, opts.TokenGenerator)
	report := resolver.ResolveRecords(records, mods.NewSet(installed...))

	data, err := yaml.Marshal(report)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal report", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export file", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported report to %s\n", opts.Output)
	} else {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
	}

	if report.Phase == resolve.PhaseFailed {
		return NewExitError(ExitFailure, "resolution failed: rule cycle")
	}
	return nil
}
