package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/loadstone/internal/mods"
	"github.com/roach88/loadstone/internal/rulefile"
	"github.com/roach88/loadstone/internal/rules"
	"github.com/roach88/loadstone/internal/scan"
	"github.com/roach88/loadstone/internal/store"
)

// inputOptions selects where a resolution pass reads its installed set
// from. Exactly one of Database or ModsDir must be set.
type inputOptions struct {
	Database string
	ModsDir  string
	MTime    bool
}

// addInputFlags registers the installed-set source flags shared by the
// resolve and export commands.
func addInputFlags(cmd *cobra.Command, opts *inputOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "read the installed set from this catalog database")
	cmd.Flags().StringVar(&opts.ModsDir, "mods-dir", "", "scan this plugin directory for the installed set")
	cmd.Flags().BoolVar(&opts.MTime, "mtime", false, "order scanned plugins by modification time (requires --mods-dir)")
}

// loadInstalledSet reads the installed mods from the configured source.
//
// A catalog listing comes back in folded-name order and a directory scan
// in its configured scan order; either way the sequence is deterministic
// and becomes the pass's installation order.
func loadInstalledSet(opts *inputOptions) ([]mods.Mod, error) {
	switch {
	case opts.Database != "" && opts.ModsDir != "":
		return nil, NewExitError(ExitCommandError, "choose one installed-set source: --db or --mods-dir")
	case opts.Database == "" && opts.ModsDir == "":
		return nil, NewExitError(ExitCommandError, "an installed set is required: pass --db or --mods-dir")
	}

	if opts.Database != "" {
		if opts.MTime {
			return nil, NewExitError(ExitCommandError, "--mtime applies to directory scans, not catalog listings")
		}
		return listCatalogMods(opts.Database)
	}

	var scanOpts []scan.ScannerOption
	if opts.MTime {
		scanOpts = append(scanOpts, scan.WithModTimeOrder())
	}
	list, err := scan.New(scanOpts...).Scan(opts.ModsDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to scan mods directory", err)
	}
	return list, nil
}

// listCatalogMods opens the catalog just long enough to list it.
func listCatalogMods(path string) ([]mods.Mod, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	list, err := st.ListMods(context.Background(), nil)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list mods", err)
	}
	return list, nil
}

// loadRuleRecords loads rule records from a .cue file or directory,
// collecting every diagnostic. A hard failure (path missing, no rule
// files, unparseable file) returns an ExitError; per-record diagnostics
// come back as warnings beside the records that survived.
func loadRuleRecords(path string) ([]rules.RawRecord, []error, error) {
	result, loadErrs := rulefile.Load(path, rulefile.LoadModeCollectAll)
	if result == nil {
		if len(loadErrs) > 0 {
			var loadErr *rulefile.LoadError
			if errors.As(loadErrs[0], &loadErr) {
				return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
			}
			return nil, nil, WrapExitError(ExitCommandError, "failed to load rules", loadErrs[0])
		}
		return nil, nil, NewExitError(ExitCommandError, "failed to load rules")
	}
	return result.Records, loadErrs, nil
}
