// Package summary rolls per-entry emission records up into the aggregate
// views used by the dashboard, the PDF report, and the advisory prompts.
package summary

import (
	"sort"

	"carbonledger/internal/core"
)

type (
	// Summary is a transient aggregate over a set of records. It is
	// recomputed on demand and never persisted.
	Summary struct {
		Total      float64                       `json:"total_emissions"`
		ByScope    map[string]float64            `json:"scope_breakdown"`
		ByCategory map[string]float64            `json:"category_breakdown"`
		// Monthly is a sparse month-by-scope matrix keyed by YYYY-MM;
		// absent (month, scope) pairs mean zero.
		Monthly map[string]map[string]float64 `json:"time_series"`
	}

	// Report is the flat payload consumed by the report renderer.
	Report struct {
		Total      float64            `json:"total_emissions"`
		ByScope    map[string]float64 `json:"scope_breakdown"`
		ByCategory map[string]float64 `json:"category_breakdown"`
	}
)

// Summarize aggregates records into totals, scope and category breakdowns,
// and a monthly time series. An empty input yields a zero total and empty
// (non-nil) breakdowns, not an error. Records grouped by whatever literal
// scope or category string they carry; nothing is dropped or normalized.
//
// Sums are plain float64 additions: rounding only happens at the point of
// per-row emission calculation, never at summary level.
func Summarize(records []core.EmissionRecord) Summary {
	s := Summary{
		ByScope:    make(map[string]float64),
		ByCategory: make(map[string]float64),
		Monthly:    make(map[string]map[string]float64),
	}
	for _, r := range records {
		s.Total += r.EmissionsKg
		s.ByScope[r.Scope] += r.EmissionsKg
		s.ByCategory[r.Category] += r.EmissionsKg

		month := r.Date.MonthKey()
		if s.Monthly[month] == nil {
			s.Monthly[month] = make(map[string]float64)
		}
		s.Monthly[month][r.Scope] += r.EmissionsKg
	}
	return s
}

// BuildReport produces the report payload. It is a pure function of its
// input: identical record sets yield identical output.
func BuildReport(records []core.EmissionRecord) Report {
	s := Summarize(records)
	return Report{Total: s.Total, ByScope: s.ByScope, ByCategory: s.ByCategory}
}

// Months returns the time-series keys in chronological order. YYYY-MM
// sorts lexicographically, so a string sort is enough.
func (s Summary) Months() []string {
	months := make([]string, 0, len(s.Monthly))
	for m := range s.Monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// ScopeShare returns scope totals as a fraction of the overall total,
// guarding the zero-total case.
func (r Report) ScopeShare() map[string]float64 {
	shares := make(map[string]float64, len(r.ByScope))
	if r.Total == 0 {
		return shares
	}
	for scope, v := range r.ByScope {
		shares[scope] = v / r.Total
	}
	return shares
}

// TopCategories returns up to n categories sorted by descending emissions;
// ties break alphabetically so the output is deterministic.
func (r Report) TopCategories(n int) []string {
	cats := make([]string, 0, len(r.ByCategory))
	for c := range r.ByCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		vi, vj := r.ByCategory[cats[i]], r.ByCategory[cats[j]]
		if vi != vj {
			return vi > vj
		}
		return cats[i] < cats[j]
	})
	if n < len(cats) {
		cats = cats[:n]
	}
	return cats
}
