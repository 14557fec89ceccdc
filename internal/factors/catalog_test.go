package factors

import (
	"encoding/json"
	"errors"
	"testing"

	"carbonledger/internal/core"
)

func TestLookup(t *testing.T) {
	c := Default()

	f, ok := c.Lookup("Electricity", "India Grid")
	if !ok {
		t.Fatal("expected hit")
	}
	if f.Factor != 0.82 || f.Unit != "kWh" {
		t.Fatalf("unexpected factor: %+v", f)
	}

	if _, ok := c.Lookup("Electricity", "Mars Grid"); ok {
		t.Fatal("expected miss")
	}
	if _, ok := c.Lookup("Nope", "India Grid"); ok {
		t.Fatal("expected miss for unknown category")
	}
}

func TestCalculate(t *testing.T) {
	c := Default()

	got, err := c.Calculate("Electricity", "India Grid", 1500)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got != 1230.0 {
		t.Fatalf("expected 1230.0, got %v", got)
	}

	_, err = c.Calculate("Electricity", "Mars Grid", 100)
	var ufe *UnknownFactorError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnknownFactorError, got %v", err)
	}
	if ufe.Category != "Electricity" || ufe.Activity != "Mars Grid" {
		t.Fatalf("error missing detail: %+v", ufe)
	}
}

func TestSearchDiesel(t *testing.T) {
	c := Default()

	// Substring match over activity names hits the two plain "Diesel"
	// entries and "Car (Diesel)" under Employee Commuting, in catalog order.
	results := c.Search("diesel")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	if results[0].Category != "Stationary Combustion" || results[0].Factor != 2.68787 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Category != "Mobile Combustion" || results[1].Factor != 2.70553 {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
	if results[2].Category != "Employee Commuting" || results[2].Activity != "Car (Diesel)" || results[2].Factor != 0.16844 {
		t.Fatalf("unexpected third result: %+v", results[2])
	}

	// Deterministic across calls.
	again := c.Search("DIESEL")
	if len(again) != 3 || again[0] != results[0] || again[1] != results[1] || again[2] != results[2] {
		t.Fatalf("search not deterministic: %+v vs %+v", results, again)
	}

	if got := c.Search("electricity"); len(got) != 0 {
		t.Fatalf("category names must not match, got %+v", got)
	}
}

func TestActivitiesAndCategories(t *testing.T) {
	c := Default()

	acts := c.ActivitiesFor("Electricity")
	want := []string{"India Grid", "Indonesia Grid", "Japan Grid", "Solar Power", "Wind Power"}
	if len(acts) != len(want) {
		t.Fatalf("expected %d activities, got %v", len(want), acts)
	}
	for i := range want {
		if acts[i] != want[i] {
			t.Fatalf("order mismatch at %d: %v", i, acts)
		}
	}
	if got := c.ActivitiesFor("Nope"); len(got) != 0 {
		t.Fatalf("unknown category should be empty, got %v", got)
	}

	cats := c.CategoriesFor(core.Scope2)
	if len(cats) != 3 || cats[0] != "Electricity" || cats[1] != "Steam" || cats[2] != "District Cooling" {
		t.Fatalf("unexpected scope 2 categories: %v", cats)
	}
	if got := c.CategoriesFor("Scope 9"); len(got) != 0 {
		t.Fatalf("unknown scope should be empty, got %v", got)
	}
}

func TestUpsert(t *testing.T) {
	c := Default()

	// New entry with explicit unit.
	if err := c.Upsert("Electricity", "Pakistan Grid", 0.79, "kWh"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	f, ok := c.Lookup("Electricity", "Pakistan Grid")
	if !ok || f.Factor != 0.79 || f.Unit != "kWh" {
		t.Fatalf("unexpected: %+v ok=%v", f, ok)
	}

	// Overwrite with empty unit keeps the prior unit.
	if err := c.Upsert("Electricity", "India Grid", 0.80, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	f, _ = c.Lookup("Electricity", "India Grid")
	if f.Factor != 0.80 || f.Unit != "kWh" {
		t.Fatalf("unit not retained: %+v", f)
	}

	// New entry with empty unit gets the placeholder.
	if err := c.Upsert("Offsets", "Tree Planting", 1.0, ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	f, _ = c.Lookup("Offsets", "Tree Planting")
	if f.Unit != "unit" {
		t.Fatalf("expected placeholder unit, got %q", f.Unit)
	}

	// Invalid inputs.
	if err := c.Upsert("Electricity", "X", 0, "kWh"); !errors.Is(err, core.ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor, got %v", err)
	}
	if err := c.Upsert("", "X", 1, ""); !errors.Is(err, core.ErrMissingCategory) {
		t.Fatalf("expected ErrMissingCategory, got %v", err)
	}
}

func TestAggregateByScope(t *testing.T) {
	c := Default()

	total, skipped := c.AggregateByScope(core.Scope2, map[string]map[string]float64{
		"Electricity": {"India Grid": 1000},
		"Steam":       {"Purchased Steam": 300},
	})
	if total != 877.0 {
		t.Fatalf("expected 877.0, got %v", total)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skips, got %v", skipped)
	}

	// One bad row must not blank out the scope's total.
	total, skipped = c.AggregateByScope(core.Scope2, map[string]map[string]float64{
		"Electricity": {"India Grid": 1000, "Atlantis Grid": 50},
	})
	if total != 820.0 {
		t.Fatalf("expected 820.0, got %v", total)
	}
	if len(skipped) != 1 || skipped[0].Activity != "Atlantis Grid" {
		t.Fatalf("expected Atlantis Grid skipped, got %v", skipped)
	}
}

func TestVerify(t *testing.T) {
	c := Default()
	if problems := c.Verify(); len(problems) != 0 {
		t.Fatalf("default catalog should be consistent, got %v", problems)
	}

	// A category upserted outside the taxonomy is flagged.
	if err := c.Upsert("Fugitive Emissions", "SF6", 23500, "kg"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	problems := c.Verify()
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %v", problems)
	}
}

func TestExportJSON(t *testing.T) {
	c := Default()
	b, err := c.ExportJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var table map[string]map[string]Factor
	if err := json.Unmarshal(b, &table); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if table["Electricity"]["India Grid"].Factor != 0.82 {
		t.Fatalf("export missing data: %+v", table["Electricity"])
	}
}
