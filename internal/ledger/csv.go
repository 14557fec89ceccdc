package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"carbonledger/internal/core"
)

// RequiredColumns are the CSV header columns an import must carry.
// notes is optional and defaults to empty; emissions_kgCO2e is derived on
// import and ignored as input, but always written on export.
var RequiredColumns = []string{
	"date", "scope", "category", "activity", "quantity", "unit", "emission_factor",
}

// SchemaError reports the required columns a CSV import is missing. The
// whole batch is rejected; nothing is appended.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// ParseCSV reads an import file into records. Header validation happens
// before any row is parsed, and any malformed row fails the whole import,
// so the result is all-or-nothing.
func ParseCSV(r io.Reader) ([]core.EmissionRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &SchemaError{Missing: RequiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []core.EmissionRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := core.ParseDate(field(row, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		quantity, err := core.ParseQuantity(field(row, "quantity"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		factor, err := core.ParseFactor(field(row, "emission_factor"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := core.EmissionRecord{
			Date:           date,
			Scope:          field(row, "scope"),
			Category:       field(row, "category"),
			Activity:       field(row, "activity"),
			Quantity:       quantity,
			Unit:           field(row, "unit"),
			EmissionFactor: factor,
			Notes:          field(row, "notes"),
		}
		rec.Recompute()
		out = append(out, rec)
	}
	return out, nil
}

// WriteCSV exports records with the full column set, including the
// derived emissions column, preserving record order.
func WriteCSV(w io.Writer, records []core.EmissionRecord) error {
	writer := csv.NewWriter(w)
	header := append(append([]string(nil), RequiredColumns...), "emissions_kgCO2e", "notes")
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Date.String(),
			r.Scope,
			r.Category,
			r.Activity,
			strconv.FormatFloat(r.Quantity, 'f', -1, 64),
			r.Unit,
			strconv.FormatFloat(r.EmissionFactor, 'f', -1, 64),
			strconv.FormatFloat(r.EmissionsKg, 'f', -1, 64),
			r.Notes,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
