package ledger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"carbonledger/internal/core"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"date,scope,category,activity,quantity,unit,emission_factor,notes",
		"2025-01-10,Scope 2,Electricity,India Grid,1500,kWh,0.82,monthly bill",
		"2025-01-12,Scope 1,Stationary Combustion,Diesel,40,liters,2.68787,",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].EmissionsKg != 1230.0 {
		t.Fatalf("derived emissions mismatch: %v", rows[0].EmissionsKg)
	}
	if rows[0].Notes != "monthly bill" {
		t.Fatalf("notes mismatch: %q", rows[0].Notes)
	}
	if rows[1].EmissionsKg != 107.5148 {
		t.Fatalf("expected 107.5148, got %v", rows[1].EmissionsKg)
	}
}

func TestParseCSVMissingColumns(t *testing.T) {
	input := "date,scope,category,activity,quantity\n2025-01-10,Scope 2,Electricity,India Grid,1500\n"

	_, err := ParseCSV(strings.NewReader(input))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	want := []string{"unit", "emission_factor"}
	if len(schemaErr.Missing) != len(want) {
		t.Fatalf("missing columns: %v", schemaErr.Missing)
	}
	for i, name := range want {
		if schemaErr.Missing[i] != name {
			t.Fatalf("missing columns: got %v, want %v", schemaErr.Missing, want)
		}
	}
	if !strings.Contains(err.Error(), "unit") || !strings.Contains(err.Error(), "emission_factor") {
		t.Fatalf("error must name the missing columns: %v", err)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError for empty input, got %v", err)
	}
}

func TestParseCSVBadRowFailsWhole(t *testing.T) {
	input := strings.Join([]string{
		"date,scope,category,activity,quantity,unit,emission_factor",
		"2025-01-10,Scope 2,Electricity,India Grid,1500,kWh,0.82",
		"not-a-date,Scope 2,Electricity,India Grid,100,kWh,0.82",
	}, "\n")

	_, err := ParseCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error must name the failing line: %v", err)
	}
}

func TestParseCSVCommaDecimal(t *testing.T) {
	input := strings.Join([]string{
		"date,scope,category,activity,quantity,unit,emission_factor",
		`2025-01-10,Scope 2,Electricity,India Grid,"1500,5",kWh,0.82`,
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0].Quantity != 1500.5 {
		t.Fatalf("expected 1500.5, got %v", rows[0].Quantity)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	records := []core.EmissionRecord{
		{
			Date:           core.NewDate(2025, 1, 10),
			Scope:          core.Scope2,
			Category:       "Electricity",
			Activity:       "India Grid",
			Quantity:       1500,
			Unit:           "kWh",
			EmissionFactor: 0.82,
			EmissionsKg:    1230,
			Notes:          "monthly bill",
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "date,scope,category,activity,quantity,unit,emission_factor,emissions_kgCO2e,notes") {
		t.Fatalf("unexpected header: %q", out)
	}

	parsed, err := ParseCSV(strings.NewReader(out))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(parsed) != 1 || parsed[0].Activity != "India Grid" || parsed[0].EmissionsKg != 1230 {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}
