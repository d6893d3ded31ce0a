package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loadstone/internal/rules"
	"github.com/roach88/loadstone/internal/store"
)

// RuleImportSummary is the payload for rules import.
type RuleImportSummary struct {
	Database   string       `json:"database"`
	Imported   int          `json:"imported"`
	Duplicates int          `json:"duplicates"`
	Skipped    int          `json:"skipped"`
	Problems   []Diagnostic `json:"problems,omitempty"`
}

// RuleListing is the payload for rules list.
type RuleListing struct {
	Source string       `json:"source"`
	Count  int          `json:"count"`
	Rules  []rules.Rule `json:"rules"`
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Import and inspect stored rules",
	}

	cmd.AddCommand(NewRulesImportCommand(rootOpts))
	cmd.AddCommand(NewRulesListCommand(rootOpts))

	return cmd
}

// RulesImportOptions holds flags for the rules import command.
type RulesImportOptions struct {
	*RootOptions
	Database string
}

// NewRulesImportCommand creates the rules import command.
func NewRulesImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <rules-path>",
		Short: "Import rule files into the catalog",
		Long: `Load rules from a .cue file or directory and write them into the
catalog database. Rules are keyed by content digest, so re-importing the
same file is a no-op and duplicates count as zero.

Malformed records are skipped with a diagnostic each; the valid rules
still import. The command exits 1 when anything was skipped so scripted
imports notice partial results.

Examples:
  loadstone rules import ./rules --db ./catalog.db
  loadstone rules import ./rules/base.cue --db ./catalog.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "catalog database to import into (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runRulesImport(opts *RulesImportOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	records, loadDiags, err := loadRuleRecords(path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded %d record(s) from %s", len(records), path)

	summary := RuleImportSummary{Database: opts.Database}
	for _, diag := range loadDiags {
		summary.Problems = append(summary.Problems, diagnosticFromError(diag))
	}

	ruleSet, syntaxErrs := rules.Build(records)
	for _, se := range syntaxErrs {
		summary.Problems = append(summary.Problems, Diagnostic{
			Code:    se.Code,
			File:    se.File,
			Line:    se.Line,
			Field:   se.Field,
			Message: se.Message,
		})
	}
	summary.Skipped = len(summary.Problems)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	inserted, err := st.PutRules(context.Background(), ruleSet)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to import rules", err)
	}
	summary.Imported = inserted
	summary.Duplicates = len(ruleSet) - inserted

	if opts.Format == "json" {
		status := "ok"
		if summary.Skipped > 0 {
			status = "error"
		}
		if err := encodeResponse(cmd.OutOrStdout(), CLIResponse{Status: status, Data: summary}); err != nil {
			return err
		}
	} else {
		outputRuleImportText(cmd.OutOrStdout(), &summary)
	}

	if summary.Skipped > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("skipped %d malformed record(s)", summary.Skipped))
	}
	return nil
}

func outputRuleImportText(w io.Writer, summary *RuleImportSummary) {
	fmt.Fprintf(w, "✓ Imported %d rule(s) into %s", summary.Imported, summary.Database)
	if summary.Duplicates > 0 {
		fmt.Fprintf(w, " (%d duplicate(s))", summary.Duplicates)
	}
	fmt.Fprintln(w)

	if summary.Skipped == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, d := range summary.Problems {
		if d.File != "" && d.Line > 0 {
			fmt.Fprintf(w, "  [%s] %s:%d: %s\n", d.Code, d.File, d.Line, d.Message)
		} else {
			fmt.Fprintf(w, "  [%s] %s\n", d.Code, d.Message)
		}
	}
	fmt.Fprintf(w, "✗ Skipped %d malformed record(s)\n", summary.Skipped)
}

// RulesListOptions holds flags for the rules list command.
type RulesListOptions struct {
	*RootOptions
	Database string
	Kind     string
	Subject  string
	Section  string
}

// NewRulesListCommand creates the rules list command.
func NewRulesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored rules",
		Long: `List the rules in a catalog database in kind, subject, object order.
Filters conjoin: every flag given must match.

Examples:
  loadstone rules list --db ./catalog.db
  loadstone rules list --db ./catalog.db --kind CONFLICT
  loadstone rules list --db ./catalog.db --subject "base pack.esm" --section community`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "catalog database to list (required)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "list only rules of this kind (ORDER, REQUIRES, CONFLICT, ...)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "list only rules about this subject mod (caseless)")
	cmd.Flags().StringVar(&opts.Section, "section", "", "list only rules from this section label")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runRulesList(opts *RulesListOptions, cmd *cobra.Command) error {
	filter, err := buildRuleFilter(opts)
	if err != nil {
		return err
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	list, err := st.ListRules(context.Background(), filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list rules", err)
	}

	listing := RuleListing{Source: opts.Database, Count: len(list), Rules: list}
	if opts.Format == "json" {
		return encodeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: listing})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) in %s\n", listing.Count, opts.Database)
	for i, r := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s\n", i+1, r)
	}
	return nil
}

// buildRuleFilter conjoins the listing flags into a store filter. Returns
// nil when no flag was given.
func buildRuleFilter(opts *RulesListOptions) (store.Filter, error) {
	var parts []store.Filter
	if opts.Kind != "" {
		kind, ok := rules.ParseKind(opts.Kind)
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown rule kind: %q", opts.Kind))
		}
		parts = append(parts, store.KindIs{Kind: kind})
	}
	if opts.Subject != "" {
		parts = append(parts, store.SubjectIs{Name: opts.Subject})
	}
	if opts.Section != "" {
		parts = append(parts, store.SectionIs{Section: opts.Section})
	}

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	default:
		return store.AllOf{Filters: parts}, nil
	}
}
