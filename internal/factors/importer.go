package factors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultSheet     = "Factors by Category"
	DefaultSource    = "UK Government GHG Conversion Factors 2025"
	DefaultSourceURL = "https://www.gov.uk/government/publications/greenhouse-gas-reporting-conversion-factors-2025"
	DefaultYear      = 2025

	// The flat file has four title rows and a header row before the data.
	defaultHeaderRows = 5
)

// Flat-file columns, in sheet order.
const (
	colID = iota
	colScope
	colLevel1
	colLevel2
	colLevel3
	colLevel4
	colColumnText
	colActivityUnit
	colEmissionUnit
	colFactor
)

var ErrSheetNotFound = errors.New("worksheet not found")

type ImportOptions struct {
	Sheet      string
	HeaderRows int
	Year       int
	Source     string
	SourceURL  string
	Now        func() time.Time
}

func (o ImportOptions) withDefaults() ImportOptions {
	if strings.TrimSpace(o.Sheet) == "" {
		o.Sheet = DefaultSheet
	}
	if o.HeaderRows <= 0 {
		o.HeaderRows = defaultHeaderRows
	}
	if o.Year == 0 {
		o.Year = DefaultYear
	}
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.SourceURL == "" {
		o.SourceURL = DefaultSourceURL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// ImportResult is a parsed flat file, ready to be written as a dataset.
// Skipped counts data rows without an id or a numeric factor.
type ImportResult struct {
	Metadata Metadata
	Factors  []Factor
	Skipped  int
}

// Import reads the government flat-file workbook and builds the dataset
// Load consumes: one Factor per data row with generated search tags, plus
// scope and level-1 category counts.
func Import(r io.Reader, opts ImportOptions) (ImportResult, error) {
	opts = opts.withDefaults()

	book, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	if idx, err := book.GetSheetIndex(opts.Sheet); err != nil || idx < 0 {
		return ImportResult{}, fmt.Errorf("%w: %q", ErrSheetNotFound, opts.Sheet)
	}
	rows, err := book.GetRows(opts.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return ImportResult{}, fmt.Errorf("read %q: %w", opts.Sheet, err)
	}

	res := ImportResult{Factors: []Factor{}}
	seen := map[string]struct{}{}
	for i, row := range rows {
		if i < opts.HeaderRows {
			continue
		}
		f, ok := factorFromRow(row, opts.Year)
		if !ok {
			if !blankRow(row) {
				res.Skipped++
			}
			continue
		}
		if _, dup := seen[f.ID]; dup {
			res.Skipped++
			continue
		}
		seen[f.ID] = struct{}{}
		res.Factors = append(res.Factors, f)
	}

	categories, scopes := countFactors(res.Factors)
	res.Metadata = Metadata{
		Source:       opts.Source,
		SourceURL:    opts.SourceURL,
		Year:         opts.Year,
		ParsedAt:     opts.Now().UTC().Format(time.RFC3339),
		TotalFactors: len(res.Factors),
		Categories:   categories,
		Scopes:       scopes,
	}
	return res, nil
}

func factorFromRow(row []string, year int) (Factor, bool) {
	id := cell(row, colID)
	raw := cell(row, colFactor)
	if id == "" || raw == "" {
		return Factor{}, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Factor{}, false
	}
	f := Factor{
		ID:    id,
		Scope: cell(row, colScope),
		Category: Category{
			Level1: cell(row, colLevel1),
			Level2: cell(row, colLevel2),
			Level3: cell(row, colLevel3),
			Level4: cell(row, colLevel4),
		},
		Units: Units{
			ActivityUnit: cell(row, colActivityUnit),
			EmissionUnit: cell(row, colEmissionUnit),
		},
		ConversionFactor: value,
		ColumnText:       cell(row, colColumnText),
		Year:             year,
	}
	f.Tags = factorTags(f)
	return f, true
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[col])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var tagSeparators = strings.NewReplacer("(", " ", ")", " ", "-", " ")

// factorTags derives search tags: the scope as scope_n, every word of each
// category level, and the activity unit. Single characters are dropped and
// the first occurrence of each tag is kept.
func factorTags(f Factor) []string {
	var candidates []string
	if f.Scope != "" {
		candidates = append(candidates, strings.ReplaceAll(strings.ToLower(f.Scope), " ", "_"))
	}
	for _, level := range f.Category.values() {
		if level == "" {
			continue
		}
		candidates = append(candidates, strings.Fields(tagSeparators.Replace(strings.ToLower(level)))...)
	}
	if f.Units.ActivityUnit != "" {
		candidates = append(candidates, strings.ToLower(f.Units.ActivityUnit))
	}

	tags := []string{}
	seen := map[string]struct{}{}
	for _, t := range candidates {
		t = strings.TrimSpace(t)
		if len(t) < 2 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

// WriteJSON writes the dataset in the format Load reads.
func (res ImportResult) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(dataset{Metadata: res.Metadata, Factors: res.Factors})
}
