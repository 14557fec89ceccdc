package factors

import "carbonledger/internal/core"

type seedEntry struct {
	activity string
	factor   float64
	unit     string
}

// Default emission factors in kgCO2e per unit. Values follow the common
// published factors for the covered regions; Upsert overrides them when a
// local dataset is available.
var defaultTable = []struct {
	category string
	entries  []seedEntry
}{
	// Scope 1 - direct emissions
	{"Stationary Combustion", []seedEntry{
		{"Natural Gas", 0.18316, "kWh"},
		{"Diesel", 2.68787, "liter"},
		{"LPG", 1.55537, "kg"},
		{"Coal", 2.42287, "kg"},
	}},
	{"Mobile Combustion", []seedEntry{
		{"Petrol/Gasoline", 2.31495, "liter"},
		{"Diesel", 2.70553, "liter"},
		{"LPG", 1.55537, "liter"},
		{"CNG", 2.53721, "kg"},
	}},
	{"Refrigerants", []seedEntry{
		{"R-410A", 2088.0, "kg"},
		{"R-134a", 1430.0, "kg"},
		{"R-404A", 3922.0, "kg"},
		{"R-407C", 1774.0, "kg"},
	}},

	// Scope 2 - purchased energy
	{"Electricity", []seedEntry{
		{"India Grid", 0.82, "kWh"},
		{"Indonesia Grid", 0.87, "kWh"},
		{"Japan Grid", 0.47, "kWh"},
		{"Solar Power", 0.041, "kWh"},
		{"Wind Power", 0.011, "kWh"},
	}},
	{"Steam", []seedEntry{
		{"Purchased Steam", 0.19, "kg"},
	}},
	{"District Cooling", []seedEntry{
		{"District Cooling", 0.12, "kWh"},
	}},

	// Scope 3 - value chain
	{"Business Travel", []seedEntry{
		{"Short-haul Flight", 0.15298, "passenger-km"},
		{"Long-haul Flight", 0.19085, "passenger-km"},
		{"Train", 0.03694, "passenger-km"},
		{"Bus", 0.10471, "passenger-km"},
		{"Taxi", 0.14549, "km"},
	}},
	{"Employee Commuting", []seedEntry{
		{"Car (Petrol/Gasoline)", 0.17336, "km"},
		{"Car (Diesel)", 0.16844, "km"},
		{"Motorcycle", 0.11501, "km"},
		{"Bus", 0.10471, "passenger-km"},
		{"Train/Metro", 0.03694, "passenger-km"},
	}},
	{"Waste", []seedEntry{
		{"Landfill", 0.45727, "kg"},
		{"Recycling", 0.01042, "kg"},
		{"Composting", 0.01042, "kg"},
		{"Incineration", 0.01613, "kg"},
	}},
	{"Water", []seedEntry{
		{"Water Supply", 0.344, "cubic meter"},
		{"Water Treatment", 0.708, "cubic meter"},
	}},
	{"Purchased Goods & Services", []seedEntry{
		{"Paper", 0.919, "kg"},
		{"Plastic", 3.14, "kg"},
		{"Glass", 0.85, "kg"},
		{"Metal", 1.37, "kg"},
		{"Food", 3.59, "kg"},
	}},
}

var defaultTaxonomy = map[string][]string{
	core.Scope1: {"Stationary Combustion", "Mobile Combustion", "Refrigerants"},
	core.Scope2: {"Electricity", "Steam", "District Cooling"},
	core.Scope3: {"Business Travel", "Employee Commuting", "Waste", "Water", "Purchased Goods & Services"},
}

// Default builds a catalog seeded with the built-in factor table and the
// standard three-scope taxonomy.
func Default() *Catalog {
	c := New([]string{core.Scope1, core.Scope2, core.Scope3}, defaultTaxonomy)
	for _, cat := range defaultTable {
		for _, e := range cat.entries {
			// Seeding cannot fail: all built-in factors are positive.
			_ = c.Upsert(cat.category, e.activity, e.factor, e.unit)
		}
	}
	return c
}
