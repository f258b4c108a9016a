package main

import "testing"

func TestLoadFormulaDefault(t *testing.T) {
	f, err := loadFormula("formulas/default.yaml")
	if err != nil {
		t.Fatalf("loadFormula: %v", err)
	}
	fs := f.Spec()
	if fs.Name != "default" || fs.BuyThreshold != 60 || fs.SellThreshold != 35 {
		t.Fatalf("spec %+v", fs)
	}
	if len(f.Clauses()) == 0 {
		t.Fatalf("default formula has no clauses")
	}

	if _, err := loadFormula("formulas/missing.yaml"); err == nil {
		t.Fatalf("expected an error for a missing formula")
	}
}
