package store

import (
	"testing"

	"github.com/roach88/loadstone/internal/rules"
)

func TestCompileRuleFilter_Nil(t *testing.T) {
	sql, params, err := compileRuleFilter(nil)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "1 = 1" {
		t.Errorf("sql = %q, want vacuous truth", sql)
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want none", params)
	}
}

func TestCompileRuleFilter_Kind(t *testing.T) {
	sql, params, err := compileRuleFilter(KindIs{Kind: rules.KindOrder})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "kind = ?" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 1 || params[0] != "ORDER" {
		t.Errorf("params = %v, want [ORDER]", params)
	}
}

func TestCompileRuleFilter_SubjectFoldsValue(t *testing.T) {
	sql, params, err := compileRuleFilter(SubjectIs{Name: "Better Heads.ESP"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "subject_folded = ?" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 1 || params[0] != "better heads.esp" {
		t.Errorf("params = %v, want folded name", params)
	}
}

func TestCompileRuleFilter_Pointer(t *testing.T) {
	sql, params, err := compileRuleFilter(&SectionIs{Section: "graphics"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "section = ?" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 1 || params[0] != "graphics" {
		t.Errorf("params = %v", params)
	}
}

func TestCompileRuleFilter_AllOf(t *testing.T) {
	sql, params, err := compileRuleFilter(AllOf{Filters: []Filter{
		KindIs{Kind: rules.KindConflict},
		SectionIs{Section: "audio"},
	}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "kind = ? AND section = ?" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 2 || params[0] != "CONFLICT" || params[1] != "audio" {
		t.Errorf("params = %v", params)
	}
}

func TestCompileRuleFilter_EmptyAllOf(t *testing.T) {
	sql, params, err := compileRuleFilter(AllOf{})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "1 = 1" {
		t.Errorf("sql = %q, want vacuous truth", sql)
	}
	if len(params) != 0 {
		t.Errorf("params = %v, want none", params)
	}
}

func TestCompileRuleFilter_NestedAllOf(t *testing.T) {
	sql, params, err := compileRuleFilter(AllOf{Filters: []Filter{
		KindIs{Kind: rules.KindOrder},
		AllOf{Filters: []Filter{
			SubjectIs{Name: "A"},
			SectionIs{Section: "core"},
		}},
	}})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "kind = ? AND subject_folded = ? AND section = ?" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 3 {
		t.Errorf("params = %v, want 3", params)
	}
}

func TestCompileRuleFilter_RejectsNameIs(t *testing.T) {
	_, _, err := compileRuleFilter(NameIs{Name: "A.esp"})
	if err == nil {
		t.Error("expected error for NameIs on rules, got nil")
	}
}

func TestCompileModFilter_Name(t *testing.T) {
	sql, params, err := compileModFilter(NameIs{Name: "Morrowind.ESM"})
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if sql != "folded = ?" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 1 || params[0] != "morrowind.esm" {
		t.Errorf("params = %v, want folded name", params)
	}
}

func TestCompileModFilter_RejectsRuleFilters(t *testing.T) {
	for _, f := range []Filter{
		KindIs{Kind: rules.KindOrder},
		SubjectIs{Name: "A"},
		SectionIs{Section: "x"},
	} {
		if _, _, err := compileModFilter(f); err == nil {
			t.Errorf("expected error for %T on mods, got nil", f)
		}
	}
}

func TestCompileModFilter_AllOfRejectsNestedRuleFilter(t *testing.T) {
	_, _, err := compileModFilter(AllOf{Filters: []Filter{
		NameIs{Name: "A.esp"},
		KindIs{Kind: rules.KindOrder},
	}})
	if err == nil {
		t.Error("expected nested rule filter to be rejected, got nil")
	}
}
