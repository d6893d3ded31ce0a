package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/scan"
	"github.com/roach88/loadstone/internal/store"
)

// ModListing is the payload for mods scan and mods list.
type ModListing struct {
	Source string     `json:"source"`
	Count  int        `json:"count"`
	Mods   []mods.Mod `json:"mods"`
}

// ModImportSummary is the payload for mods import.
type ModImportSummary struct {
	Database string `json:"database"`
	Imported int    `json:"imported"`
}

// NewModsCommand creates the mods command group.
func NewModsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mods",
		Short: "Inspect and maintain the mod catalog",
	}

	cmd.AddCommand(NewModsScanCommand(rootOpts))
	cmd.AddCommand(NewModsImportCommand(rootOpts))
	cmd.AddCommand(NewModsListCommand(rootOpts))

	return cmd
}

// ModsScanOptions holds flags for the mods scan command.
type ModsScanOptions struct {
	*RootOptions
	Database string
	Hash     bool
	MTime    bool
}

// NewModsScanCommand creates the mods scan command.
func NewModsScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModsScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Discover plugins in a directory",
		Long: `Walk a directory for plugin files and print what a resolution pass
would treat as the installed set. A sidecar <plugin>.yaml next to a
plugin contributes description and version metadata. With --db the discovered set is also imported into the
catalog, same as mods import.

Examples:
  loadstone mods scan ./plugins
  loadstone mods scan ./plugins --hash --mtime --format json
  loadstone mods scan ./plugins --db ./catalog.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModsScan(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "also import the discovered plugins into this catalog database")
	cmd.Flags().BoolVar(&opts.Hash, "hash", false, "compute a content hash per plugin")
	cmd.Flags().BoolVar(&opts.MTime, "mtime", false, "order plugins by modification time instead of name")

	return cmd
}

func runModsScan(opts *ModsScanOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Scanning %s", dir)
	list, err := scanPlugins(dir, opts.Hash, opts.MTime)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Found %d plugin(s)", len(list))

	if opts.Database != "" {
		if err := importMods(opts.Database, list); err != nil {
			return err
		}
	}

	listing := ModListing{Source: dir, Count: len(list), Mods: list}
	if opts.Format == "json" {
		return encodeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: listing})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Found %d plugin(s) in %s\n", listing.Count, dir)
	outputModRows(cmd.OutOrStdout(), list, opts.Hash)
	if opts.Database != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d mod(s) into %s\n", len(list), opts.Database)
	}
	return nil
}

// ModsImportOptions holds flags for the mods import command.
type ModsImportOptions struct {
	*RootOptions
	Database string
	Hash     bool
	MTime    bool
}

// NewModsImportCommand creates the mods import command.
func NewModsImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModsImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <directory>",
		Short: "Scan a directory into the catalog",
		Long: `Scan a plugin directory and upsert every discovered mod into the
catalog database. Mod identity is the case-folded name, so re-importing
updates rows in place and the latest spelling and metadata win.

Examples:
  loadstone mods import ./plugins --db ./catalog.db
  loadstone mods import ./plugins --db ./catalog.db --hash`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModsImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "catalog database to import into (required)")
	cmd.Flags().BoolVar(&opts.Hash, "hash", false, "compute and store a content hash per plugin")
	cmd.Flags().BoolVar(&opts.MTime, "mtime", false, "order plugins by modification time instead of name")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runModsImport(opts *ModsImportOptions, dir string, cmd *cobra.Command) error {
	list, err := scanPlugins(dir, opts.Hash, opts.MTime)
	if err != nil {
		return err
	}

	if err := importMods(opts.Database, list); err != nil {
		return err
	}

	summary := ModImportSummary{Database: opts.Database, Imported: len(list)}
	if opts.Format == "json" {
		return encodeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: summary})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d mod(s) into %s\n", summary.Imported, opts.Database)
	return nil
}

// ModsListOptions holds flags for the mods list command.
type ModsListOptions struct {
	*RootOptions
	Database string
	Name     string
}

// NewModsListCommand creates the mods list command.
func NewModsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ModsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the catalog contents",
		Long: `List the mods in a catalog database in folded-name order, which is
also the installation order a --db resolution uses.

Examples:
  loadstone mods list --db ./catalog.db
  loadstone mods list --db ./catalog.db --name "base pack.esm"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModsList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "catalog database to list (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "list only the mod with this name (caseless)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runModsList(opts *ModsListOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var filter store.Filter
	if opts.Name != "" {
		filter = store.NameIs{Name: opts.Name}
	}

	list, err := st.ListMods(context.Background(), filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list mods", err)
	}

	listing := ModListing{Source: opts.Database, Count: len(list), Mods: list}
	if opts.Format == "json" {
		return encodeResponse(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: listing})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d mod(s) in %s\n", listing.Count, opts.Database)
	outputModRows(cmd.OutOrStdout(), list, true)
	return nil
}

// importMods upserts a scanned set into the catalog.
func importMods(database string, list []mods.Mod) error {
	st, err := store.Open(database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.PutMods(context.Background(), list); err != nil {
		return WrapExitError(ExitCommandError, "failed to import mods", err)
	}
	return nil
}

// scanPlugins runs a directory scan with the flags shared by scan and
// import.
func scanPlugins(dir string, hash, mtime bool) ([]mods.Mod, error) {
	var scanOpts []scan.ScannerOption
	if hash {
		scanOpts = append(scanOpts, scan.WithContentHash())
	}
	if mtime {
		scanOpts = append(scanOpts, scan.WithModTimeOrder())
	}

	list, err := scan.New(scanOpts...).Scan(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to scan directory", err)
	}
	return list, nil
}

// outputModRows prints one line per mod.
func outputModRows(w io.Writer, list []mods.Mod, showHash bool) {
	for i, m := range list {
		line := fmt.Sprintf("  [%d] %s", i+1, m.Name)
		if v, ok := m.Meta(mods.MetaVersion); ok {
			line += fmt.Sprintf(" (v%s)", v)
		}
		if showHash && m.ContentHash != "" {
			line += "  " + m.ContentHash
		}
		fmt.Fprintln(w, line)
	}
}

