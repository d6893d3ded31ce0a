// Package rulefile loads declarative ordering rules from CUE files.
//
// A rule file is a CUE document with a top-level rules list:
//
//	rules: [
//		{kind: "ORDER", subject: "Base Pack", object: "Better Heads"},
//		{kind: "NOTE", subject: "Old Mod", reference: "superseded", priority: 2},
//	]
//
// The loader extracts raw records with file/line provenance; semantic
// validation happens downstream at rule construction. Multiple files
// concatenate in lexical path order, so rule precedence is stable across
// runs.
package rulefile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/loadstone/internal/rules"
)

//go:embed schema.cue
var schemaSource []byte

// Error code constants for rule file loading.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No rule files found
	ErrCodeParseFailed = "E004" // CUE parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBadRecord   = "E006" // Record failed schema validation
	ErrCodeNoRules     = "E007" // File has no rules list
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the records extracted from one load call.
type LoadResult struct {
	// Records in file order, each carrying file/line/index provenance.
	Records []rules.RawRecord

	// Files lists every rule file read, in lexical order.
	Files []string
}

// LoadError represents an error that occurred during rule loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads rule records from a .cue file or from every .cue file under
// a directory. Bad records are skipped with one error each; in
// LoadModeFailFast the first error returns immediately, in
// LoadModeCollectAll all errors come back alongside the records that
// survived.
func Load(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rule path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rule path: %v", err)}}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindRuleFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no rule files found in %s", path)}}
		}
	}

	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{}
	var errs []error
	for _, file := range files {
		data, readErr := os.ReadFile(file)
		if readErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("reading %s: %v", file, readErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Files = append(result.Files, file)

		fileErrs := extractFile(ctx, schema, data, file, mode, result)
		errs = append(errs, fileErrs...)
		if mode == LoadModeFailFast && len(errs) > 0 {
			return result, errs
		}
	}

	for i := range result.Records {
		result.Records[i].Index = i
	}
	return result, errs
}

// LoadBytes reads rule records from in-memory CUE source. The filename is
// used for provenance only.
func LoadBytes(data []byte, filename string, mode LoadMode) (*LoadResult, []error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{Files: []string{filename}}
	errs := extractFile(ctx, schema, data, filename, mode, result)
	for i := range result.Records {
		result.Records[i].Index = i
	}
	return result, errs
}

// FindRuleFiles returns every .cue file path under dir. filepath.Walk
// visits in lexical order, which fixes rule precedence.
func FindRuleFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	schemaVal := ctx.CompileBytes(schemaSource)
	if schemaVal.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compiling rule schema: %w", schemaVal.Err())
	}
	ruleDef := schemaVal.LookupPath(cue.ParsePath("#Rule"))
	if ruleDef.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: rule schema definition not found: %w", ruleDef.Err())
	}
	return ruleDef, nil
}

// extractFile appends the file's records to result, validating each list
// element against the #Rule schema so a malformed record yields one
// positioned error without sinking the rest of the file.
func extractFile(ctx *cue.Context, schema cue.Value, data []byte, filename string, mode LoadMode, result *LoadResult) []error {
	var errs []error

	fileVal := ctx.CompileBytes(data, cue.Filename(filename))
	if fileVal.Err() != nil {
		return []error{positionedError(ErrCodeParseFailed, fileVal.Err())}
	}

	rulesVal := fileVal.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return []error{&LoadError{
			Code:    ErrCodeNoRules,
			Message: fmt.Sprintf("%s has no rules list", filename),
			Pos:     fileVal.Pos(),
		}}
	}

	iter, err := rulesVal.List()
	if err != nil {
		return []error{positionedError(ErrCodeParseFailed, err)}
	}

	for iter.Next() {
		elem := iter.Value()

		if err := schema.Unify(elem).Validate(cue.Concrete(true)); err != nil {
			errs = append(errs, positionedError(ErrCodeBadRecord, err))
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}

		rec, err := parseRecord(elem)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return errs
			}
			continue
		}
		result.Records = append(result.Records, rec)
	}

	return errs
}

// parseRecord extracts one raw record from a validated list element. The
// element's source position becomes the record's provenance.
func parseRecord(v cue.Value) (rules.RawRecord, error) {
	pos := v.Pos()
	rec := rules.RawRecord{
		File: pos.Filename(),
		Line: pos.Line(),
	}

	var err error
	if rec.Kind, err = stringField(v, "kind"); err != nil {
		return rec, err
	}
	if rec.Subject, err = stringField(v, "subject"); err != nil {
		return rec, err
	}
	if rec.Object, err = stringField(v, "object"); err != nil {
		return rec, err
	}
	if rec.Severity, err = stringField(v, "severity"); err != nil {
		return rec, err
	}
	if rec.Priority, err = intField(v, "priority"); err != nil {
		return rec, err
	}
	if rec.Section, err = stringField(v, "section"); err != nil {
		return rec, err
	}
	if rec.Reference, err = stringField(v, "reference"); err != nil {
		return rec, err
	}

	predsVal := v.LookupPath(cue.ParsePath("predicates"))
	if predsVal.Exists() {
		predIter, err := predsVal.List()
		if err != nil {
			return rec, positionedError(ErrCodeBadRecord, err)
		}
		for predIter.Next() {
			pv := predIter.Value()
			ptype, err := stringField(pv, "type")
			if err != nil {
				return rec, err
			}
			pvalue, err := stringField(pv, "value")
			if err != nil {
				return rec, err
			}
			rec.Predicates = append(rec.Predicates, rules.RawPredicate{Type: ptype, Value: pvalue})
		}
	}

	return rec, nil
}

func stringField(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", positionedError(ErrCodeBadRecord, err)
	}
	return s, nil
}

func intField(v cue.Value, name string) (int, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, positionedError(ErrCodeBadRecord, err)
	}
	return int(n), nil
}

// positionedError wraps a CUE error into a LoadError carrying the first
// available source position.
func positionedError(code string, err error) *LoadError {
	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) > 0 {
		first := cueErrs[0]
		positions := cueerrors.Positions(first)
		if len(positions) > 0 {
			return &LoadError{Code: code, Message: first.Error(), Pos: positions[0]}
		}
		return &LoadError{Code: code, Message: first.Error()}
	}
	return &LoadError{Code: code, Message: err.Error()}
}
