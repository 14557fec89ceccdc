// Package factors holds the emission-factor catalog: the reference table
// that converts activity quantities into kgCO2e.
package factors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"carbonledger/internal/core"
)

// Factor is one immutable catalog value: the multiplier and the physical
// unit the multiplier applies to. The unit is a label for the caller; it
// is not cross-checked against a record's declared unit.
type Factor struct {
	Factor float64 `json:"factor"`
	Unit   string  `json:"unit"`
}

// SearchResult is one hit from a keyword search over activity names.
type SearchResult struct {
	Category string  `json:"category"`
	Activity string  `json:"activity"`
	Factor   float64 `json:"factor"`
	Unit     string  `json:"unit"`
}

// SkippedPair identifies a (category, activity) pair that a batch
// aggregation dropped because no factor resolved for it.
type SkippedPair struct {
	Category string `json:"category"`
	Activity string `json:"activity"`
}

// UnknownFactorError reports a lookup miss with enough detail for the
// caller to correct the input.
type UnknownFactorError struct {
	Category string
	Activity string
}

func (e *UnknownFactorError) Error() string {
	return fmt.Sprintf("unknown emission factor: %s -> %s", e.Category, e.Activity)
}

type categoryEntry struct {
	order   []string
	factors map[string]Factor
}

// Catalog is a mutable emission-factor table with a fixed scope taxonomy.
// Construct one at startup (Default or New) and inject it into whatever
// needs lookups; there is no package-level instance.
type Catalog struct {
	mu         sync.RWMutex
	catOrder   []string
	categories map[string]*categoryEntry
	scopeOrder []string
	scopes     map[string][]string
}

// New creates an empty catalog with the given scope taxonomy. The taxonomy
// map is copied; iteration order of scopes follows scopeOrder.
func New(scopeOrder []string, scopes map[string][]string) *Catalog {
	c := &Catalog{
		categories: make(map[string]*categoryEntry),
		scopes:     make(map[string][]string, len(scopes)),
		scopeOrder: append([]string(nil), scopeOrder...),
	}
	for s, cats := range scopes {
		c.scopes[s] = append([]string(nil), cats...)
	}
	return c
}

// Lookup returns the factor for an exact (category, activity) pair.
// A miss is a normal outcome, reported via ok=false.
func (c *Catalog) Lookup(category, activity string) (Factor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.categories[category]
	if !ok {
		return Factor{}, false
	}
	f, ok := entry.factors[activity]
	return f, ok
}

// ActivitiesFor returns the activity names of a category in insertion
// order. Unknown categories yield an empty slice.
func (c *Catalog) ActivitiesFor(category string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.categories[category]
	if !ok {
		return nil
	}
	return append([]string(nil), entry.order...)
}

// CategoriesFor returns the category names of a scope in taxonomy order.
// Unknown scopes yield an empty slice.
func (c *Catalog) CategoriesFor(scope string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.scopes[scope]...)
}

// Scopes returns the scope names in taxonomy order.
func (c *Catalog) Scopes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.scopeOrder...)
}

// Search returns every activity whose name contains the keyword,
// case-insensitively. Category names are not searched. Results follow
// catalog insertion order, so the output is deterministic for a given
// catalog state.
func (c *Catalog) Search(keyword string) []SearchResult {
	keyword = strings.ToLower(keyword)
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []SearchResult
	for _, cat := range c.catOrder {
		entry := c.categories[cat]
		for _, act := range entry.order {
			if strings.Contains(strings.ToLower(act), keyword) {
				f := entry.factors[act]
				out = append(out, SearchResult{Category: cat, Activity: act, Factor: f.Factor, Unit: f.Unit})
			}
		}
	}
	return out
}

// Calculate converts an activity amount to kgCO2e, rounded to 4 decimal
// places. A lookup miss surfaces as *UnknownFactorError.
func (c *Catalog) Calculate(category, activity string, amount float64) (float64, error) {
	f, ok := c.Lookup(category, activity)
	if !ok {
		return 0, &UnknownFactorError{Category: category, Activity: activity}
	}
	return core.Round4(f.Factor * amount), nil
}

// Upsert inserts or overwrites a factor. An empty unit keeps the existing
// entry's unit, or falls back to the generic placeholder for new entries.
// This is how region-specific values (say, a local grid factor) are added
// at runtime.
func (c *Catalog) Upsert(category, activity string, factor float64, unit string) error {
	if factor <= 0 {
		return core.ErrInvalidFactor
	}
	category = strings.TrimSpace(category)
	activity = strings.TrimSpace(activity)
	if category == "" {
		return core.ErrMissingCategory
	}
	if activity == "" {
		return core.ErrMissingActivity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.categories[category]
	if !ok {
		entry = &categoryEntry{factors: make(map[string]Factor)}
		c.categories[category] = entry
		c.catOrder = append(c.catOrder, category)
	}
	prev, exists := entry.factors[activity]
	if unit == "" {
		if exists {
			unit = prev.Unit
		} else {
			unit = "unit"
		}
	}
	if !exists {
		entry.order = append(entry.order, activity)
	}
	entry.factors[activity] = Factor{Factor: factor, Unit: unit}
	return nil
}

// AggregateByScope sums Calculate over every (category, activity, amount)
// in the usage map for one scope. Pairs with no catalog entry are skipped
// rather than aborting the whole aggregation; the skipped pairs come back
// as diagnostics so the partial result is never silent. The total is
// rounded to 4 decimals.
func (c *Catalog) AggregateByScope(scope string, usage map[string]map[string]float64) (float64, []SkippedPair) {
	total := 0.0
	var skipped []SkippedPair

	// Iterate deterministically so diagnostics are stable.
	cats := make([]string, 0, len(usage))
	for cat := range usage {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		acts := make([]string, 0, len(usage[cat]))
		for act := range usage[cat] {
			acts = append(acts, act)
		}
		sort.Strings(acts)
		for _, act := range acts {
			v, err := c.Calculate(cat, act, usage[cat][act])
			if err != nil {
				skipped = append(skipped, SkippedPair{Category: cat, Activity: act})
				continue
			}
			total += v
		}
	}
	return core.Round4(total), skipped
}

// Verify reports taxonomy inconsistencies: catalog categories that appear
// under no scope, or under more than one. It is a diagnostic, not an
// enforcement hook.
func (c *Catalog) Verify() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owner := make(map[string][]string)
	for _, scope := range c.scopeOrder {
		for _, cat := range c.scopes[scope] {
			owner[cat] = append(owner[cat], scope)
		}
	}

	var problems []string
	for _, cat := range c.catOrder {
		switch scopes := owner[cat]; len(scopes) {
		case 0:
			problems = append(problems, fmt.Sprintf("category %q belongs to no scope", cat))
		case 1:
			// consistent
		default:
			problems = append(problems, fmt.Sprintf("category %q belongs to multiple scopes: %s", cat, strings.Join(scopes, ", ")))
		}
	}
	return problems
}

// ExportJSON writes the whole factor table as nested JSON, in the shape
// category -> activity -> {factor, unit}.
func (c *Catalog) ExportJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table := make(map[string]map[string]Factor, len(c.catOrder))
	for _, cat := range c.catOrder {
		entry := c.categories[cat]
		acts := make(map[string]Factor, len(entry.order))
		for _, act := range entry.order {
			acts[act] = entry.factors[act]
		}
		table[cat] = acts
	}
	return json.MarshalIndent(table, "", "  ")
}

// Categories returns all category names in insertion order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.catOrder...)
}
