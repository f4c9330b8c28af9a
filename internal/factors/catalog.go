// Package factors serves the UK GHG conversion-factor dataset: lookup by id,
// filtered search, pagination and quick lookups for common activities.
package factors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
)

const (
	DefaultPerPage = 50
	MaxPerPage     = 1000

	quickLookupPerKind = 10
	quickLookupLimit   = 20
)

var (
	ErrNotFound    = errors.New("conversion factor not found")
	ErrInvalidPage = errors.New("invalid page")
)

type Category struct {
	Level1 string `json:"level1,omitempty"`
	Level2 string `json:"level2,omitempty"`
	Level3 string `json:"level3,omitempty"`
	Level4 string `json:"level4,omitempty"`
}

func (c Category) values() []string {
	return []string{c.Level1, c.Level2, c.Level3, c.Level4}
}

type Units struct {
	ActivityUnit string `json:"activity_unit,omitempty"`
	EmissionUnit string `json:"emission_unit,omitempty"`
}

// Factor is one conversion factor row.
type Factor struct {
	ID               string   `json:"id"`
	Scope            string   `json:"scope,omitempty"`
	Category         Category `json:"category"`
	Units            Units    `json:"units"`
	ConversionFactor float64  `json:"conversion_factor"`
	ColumnText       string   `json:"column_text,omitempty"`
	Year             int      `json:"year"`
	Tags             []string `json:"tags"`
}

type Metadata struct {
	Source       string         `json:"source,omitempty"`
	SourceURL    string         `json:"source_url,omitempty"`
	Year         int            `json:"year,omitempty"`
	ParsedAt     string         `json:"parsed_at,omitempty"`
	TotalFactors int            `json:"total_factors"`
	Categories   map[string]int `json:"categories,omitempty"`
	Scopes       map[string]int `json:"scopes,omitempty"`
}

type dataset struct {
	Metadata Metadata `json:"metadata"`
	Factors  []Factor `json:"conversion_factors"`
}

// Catalog is an immutable, loaded dataset. It is safe for concurrent use.
type Catalog struct {
	metadata Metadata
	factors  []Factor
	byID     map[string]int
}

// Load reads a dataset file produced by the conversion-factor parser.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open conversion factors: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

func Parse(r io.Reader) (*Catalog, error) {
	var ds dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode conversion factors: %w", err)
	}

	c := &Catalog{
		metadata: ds.Metadata,
		factors:  make([]Factor, 0, len(ds.Factors)),
		byID:     make(map[string]int, len(ds.Factors)),
	}
	for i, f := range ds.Factors {
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" {
			return nil, fmt.Errorf("conversion factor %d has no id", i)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate conversion factor id %q", f.ID)
		}
		c.byID[f.ID] = len(c.factors)
		c.factors = append(c.factors, f)
	}
	if c.metadata.TotalFactors == 0 {
		c.metadata.TotalFactors = len(c.factors)
	}
	if c.metadata.Categories == nil || c.metadata.Scopes == nil {
		categories, scopes := countFactors(c.factors)
		if c.metadata.Categories == nil {
			c.metadata.Categories = categories
		}
		if c.metadata.Scopes == nil {
			c.metadata.Scopes = scopes
		}
	}
	return c, nil
}

func countFactors(factors []Factor) (map[string]int, map[string]int) {
	categories := map[string]int{}
	scopes := map[string]int{}
	for _, f := range factors {
		if f.Category.Level1 != "" {
			categories[f.Category.Level1]++
		}
		if f.Scope != "" {
			scopes[f.Scope]++
		}
	}
	return categories, scopes
}

func (c *Catalog) Metadata() Metadata { return c.metadata }

func (c *Catalog) Len() int { return len(c.factors) }

func (c *Catalog) Get(id string) (Factor, error) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Factor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneFactor(c.factors[i]), nil
}

// Count is a named factor count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories returns level-1 category and scope counts, largest first.
func (c *Catalog) Categories() (categories []Count, scopes []Count) {
	return c.metadata.Ranked()
}

// Ranked returns the level-1 category and scope counts, largest first.
func (m Metadata) Ranked() (categories []Count, scopes []Count) {
	return sortedCounts(m.Categories), sortedCounts(m.Scopes)
}

func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SearchRequest filters factors. String filters are case-insensitive
// substring matches; a factor with an empty field never matches a filter on
// that field. Factor bounds are inclusive.
type SearchRequest struct {
	Scope          string   `json:"scope,omitempty"`
	CategoryLevel1 string   `json:"category_level1,omitempty"`
	CategoryLevel2 string   `json:"category_level2,omitempty"`
	CategoryLevel3 string   `json:"category_level3,omitempty"`
	ActivityUnit   string   `json:"activity_unit,omitempty"`
	EmissionUnit   string   `json:"emission_unit,omitempty"`
	SearchTerm     string   `json:"search_term,omitempty"`
	MinFactor      *float64 `json:"min_factor,omitempty"`
	MaxFactor      *float64 `json:"max_factor,omitempty"`
}

// Search returns matching factors in dataset order.
func (c *Catalog) Search(req SearchRequest) []Factor {
	out := make([]Factor, 0)
	for _, f := range c.factors {
		if req.matches(f) {
			out = append(out, cloneFactor(f))
		}
	}
	return out
}

func (req SearchRequest) matches(f Factor) bool {
	if !fieldMatches(f.Scope, req.Scope) ||
		!fieldMatches(f.Category.Level1, req.CategoryLevel1) ||
		!fieldMatches(f.Category.Level2, req.CategoryLevel2) ||
		!fieldMatches(f.Category.Level3, req.CategoryLevel3) ||
		!fieldMatches(f.Units.ActivityUnit, req.ActivityUnit) ||
		!fieldMatches(f.Units.EmissionUnit, req.EmissionUnit) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(req.SearchTerm)); term != "" {
		if !anyContains(f.Tags, term) && !anyContains(f.Category.values(), term) {
			return false
		}
	}
	if req.MinFactor != nil && f.ConversionFactor < *req.MinFactor {
		return false
	}
	if req.MaxFactor != nil && f.ConversionFactor > *req.MaxFactor {
		return false
	}
	return true
}

func fieldMatches(value, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	if value == "" {
		return false
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
}

// anyContains reports whether any value contains the lower-cased term.
func anyContains(values []string, term string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// PageResult is one page of a filtered factor list.
type PageResult struct {
	Factors []Factor `json:"factors"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

// Page slices factors. page starts at 1; perPage of 0 means DefaultPerPage.
// A page past the end is empty, not an error.
func Page(factors []Factor, page, perPage int) (PageResult, error) {
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		return PageResult{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidPage)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return PageResult{}, fmt.Errorf("%w: per_page must be between 1 and %d", ErrInvalidPage, MaxPerPage)
	}

	res := PageResult{Factors: []Factor{}, Total: len(factors), Page: page, PerPage: perPage}
	pages := (len(factors) + perPage - 1) / perPage
	if page-1 >= pages {
		return res, nil
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(factors))
	res.Factors = factors[start:end]
	return res, nil
}

type QuickLookupRequest struct {
	FuelType      string
	Electricity   bool
	TransportMode string
}

type QuickLookupResult struct {
	Results []Factor `json:"results"`
	Total   int      `json:"total"`
}

var (
	electricityTags      = []string{"electricity", "uk", "grid"}
	electricityScopes    = []string{"Scope 1", "Scope 2"}
	transportCategoryHit = []string{"travel", "vehicle", "freight"}
)

// QuickLookup gathers common factors: up to ten each for UK electricity, a
// fuel type and a transport mode. Results are de-duplicated by id and capped
// at twenty; Total counts the de-duplicated matches before the cap.
func (c *Catalog) QuickLookup(req QuickLookupRequest) QuickLookupResult {
	var picked []Factor

	if req.Electricity {
		picked = append(picked, c.firstN(quickLookupPerKind, func(f Factor) bool {
			return slices.Contains(electricityScopes, f.Scope) &&
				slices.ContainsFunc(f.Tags, func(tag string) bool { return slices.Contains(electricityTags, tag) })
		})...)
	}
	if fuel := strings.ToLower(strings.TrimSpace(req.FuelType)); fuel != "" {
		picked = append(picked, c.firstN(quickLookupPerKind, func(f Factor) bool {
			return f.Category.Level1 == "Fuels" && anyContains(f.Tags, fuel)
		})...)
	}
	if mode := strings.ToLower(strings.TrimSpace(req.TransportMode)); mode != "" {
		picked = append(picked, c.firstN(quickLookupPerKind, func(f Factor) bool {
			level1 := strings.ToLower(f.Category.Level1)
			return anyContains(f.Tags, mode) && slices.ContainsFunc(transportCategoryHit, func(s string) bool {
				return strings.Contains(level1, s)
			})
		})...)
	}

	seen := make(map[string]struct{}, len(picked))
	unique := make([]Factor, 0, len(picked))
	for _, f := range picked {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		unique = append(unique, f)
	}

	res := QuickLookupResult{Results: unique, Total: len(unique)}
	if len(res.Results) > quickLookupLimit {
		res.Results = res.Results[:quickLookupLimit]
	}
	return res
}

func (c *Catalog) firstN(n int, match func(Factor) bool) []Factor {
	var out []Factor
	for _, f := range c.factors {
		if len(out) == n {
			break
		}
		if match(f) {
			out = append(out, cloneFactor(f))
		}
	}
	return out
}

func cloneFactor(f Factor) Factor {
	f.Tags = slices.Clone(f.Tags)
	return f
}
