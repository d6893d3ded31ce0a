package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loadstone/internal/rulefile"
	"github.com/roach88/loadstone/internal/rules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// Diagnostic is one validation finding: a load error (E0xx) or a rule
// construction error (E2xx).
type Diagnostic struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult aggregates findings across a rule path.
type ValidationResult struct {
	Valid       bool         `json:"valid"`
	Files       []string     `json:"files"`
	Records     int          `json:"records"`
	Rules       int          `json:"rules"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <rules-path>",
		Short: "Validate rule files without resolving",
		Long: `Check a rule file or directory for schema and construction problems.

Every record is checked even after the first failure, so one run
surfaces the whole repair list. Diagnostics carry file and line
positions where the source provides them.

Exit codes:
  0 - All rules valid
  1 - One or more diagnostics
  2 - Command error (path not found, unreadable file)

Examples:
  loadstone validate ./rules
  loadstone validate ./rules/base.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, loadErrs := rulefile.Load(path, rulefile.LoadModeCollectAll)
	if result == nil {
		return outputValidateHardError(formatter, loadErrs)
	}

	formatter.VerboseLog("Found %d rule file(s) in %s", len(result.Files), path)

	vr := ValidationResult{
		Files:   result.Files,
		Records: len(result.Records) + len(loadErrs),
	}
	for _, err := range loadErrs {
		vr.Diagnostics = append(vr.Diagnostics, diagnosticFromError(err))
	}

	formatter.VerboseLog("Checking %d record(s)", vr.Records)
	ruleSet, syntaxErrs := rules.Build(result.Records)
	vr.Rules = len(ruleSet)
	for _, se := range syntaxErrs {
		vr.Diagnostics = append(vr.Diagnostics, Diagnostic{
			Code:    se.Code,
			File:    se.File,
			Line:    se.Line,
			Field:   se.Field,
			Message: se.Message,
		})
	}
	vr.Valid = len(vr.Diagnostics) == 0

	if vr.Valid {
		return outputValidateSuccess(formatter, &vr)
	}
	return outputValidationDiagnostics(formatter, &vr)
}

// diagnosticFromError converts a soft load error into a diagnostic row.
func diagnosticFromError(err error) Diagnostic {
	var loadErr *rulefile.LoadError
	if errors.As(err, &loadErr) {
		d := Diagnostic{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			d.File = loadErr.Pos.Filename()
			d.Line = loadErr.Pos.Line()
		}
		return d
	}
	return Diagnostic{Code: rulefile.ErrCodeGeneric, Message: err.Error()}
}

// outputValidateHardError reports a load failure that produced no records
// at all (path missing, unreadable file). These are command errors, not
// validation results.
func outputValidateHardError(formatter *OutputFormatter, loadErrs []error) error {
	code, message := rulefile.ErrCodeGeneric, "failed to load rules"
	var loadErr *rulefile.LoadError
	if len(loadErrs) > 0 && errors.As(loadErrs[0], &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	} else if len(loadErrs) > 0 {
		message = loadErrs[0].Error()
	}

	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidateSuccess reports a clean validation.
func outputValidateSuccess(formatter *OutputFormatter, vr *ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(vr)
	}

	fmt.Fprintf(formatter.Writer, "✓ All rules valid (%d rule(s) in %d file(s))\n", vr.Rules, len(vr.Files))
	return nil
}

// outputValidationDiagnostics reports findings and exits 1.
func outputValidationDiagnostics(formatter *OutputFormatter, vr *ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   vr,
			Error: &CLIError{
				Code:    vr.Diagnostics[0].Code,
				Message: vr.Diagnostics[0].Message,
			},
		}
		if err := encodeResponse(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(vr.Diagnostics)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, d := range vr.Diagnostics {
		switch {
		case d.File != "" && d.Line > 0 && d.Field != "":
			fmt.Fprintf(formatter.Writer, "  [%s] %s:%d: %s: %s\n", d.Code, d.File, d.Line, d.Field, d.Message)
		case d.File != "" && d.Line > 0:
			fmt.Fprintf(formatter.Writer, "  [%s] %s:%d: %s\n", d.Code, d.File, d.Line, d.Message)
		default:
			fmt.Fprintf(formatter.Writer, "  [%s] %s\n", d.Code, d.Message)
		}
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "%d rule(s) built, %d problem(s)\n", vr.Rules, len(vr.Diagnostics))

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(vr.Diagnostics)))
}
