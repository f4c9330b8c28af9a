package factors

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

var importedAt = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

// flatFile builds a workbook shaped like the published flat file: four title
// rows, a header row, then data rows.
func flatFile(t *testing.T, sheet string, rows map[int][]any) *bytes.Reader {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	if _, err := book.NewSheet(sheet); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	title := []any{"Greenhouse gas reporting: conversion factors 2025"}
	if err := book.SetSheetRow(sheet, "A1", &title); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	header := []any{"ID", "Scope", "Level 1", "Level 2", "Level 3", "Level 4", "Column Text", "UOM", "GHG/Unit", "GHG Conversion Factor 2025"}
	if err := book.SetSheetRow(sheet, "A5", &header); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	for n, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			t.Fatalf("CoordinatesToCellName() error = %v", err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func sampleFlatFile(t *testing.T) *bytes.Reader {
	return flatFile(t, DefaultSheet, map[int][]any{
		6:  {"cf_1", "Scope 1", "Fuels", "Gaseous fuels", "Natural gas", "", "kg CO2e", "kWh (Gross CV)", "kg CO2e", 0.18296},
		7:  {"cf_2", "Scope 2", "UK electricity", "Electricity generated", "Electricity: UK", "", "kg CO2e", "kWh", "kg CO2e", 0.177},
		8:  {"cf_3", "Scope 3", "Fuels", "Liquid fuels", "Diesel", "", "kg CO2e", "litres", "kg CO2e"},
		10: {"cf_4", "Scope 3", "Business travel- land", "Cars (by size)", "Medium car", "Diesel", "kg CO2e", "km", "kg CO2e", 0.16},
		11: {"cf_1", "Scope 1", "Fuels", "Gaseous fuels", "Natural gas", "", "kg CO2e", "kWh (Gross CV)", "kg CO2e", 0.2},
	})
}

func TestImport(t *testing.T) {
	t.Parallel()

	res, err := Import(sampleFlatFile(t), ImportOptions{Now: func() time.Time { return importedAt }})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got := ids(res.Factors); !slices.Equal(got, []string{"cf_1", "cf_2", "cf_4"}) {
		t.Fatalf("factors = %v", got)
	}
	if res.Skipped != 2 {
		t.Fatalf("Skipped = %d, want 2 (missing factor and duplicate id)", res.Skipped)
	}

	car := res.Factors[2]
	if car.Scope != "Scope 3" || car.Category.Level4 != "Diesel" || car.Units.ActivityUnit != "km" || car.ConversionFactor != 0.16 || car.Year != DefaultYear {
		t.Fatalf("cf_4 = %+v", car)
	}
	wantTags := []string{"scope_3", "business", "travel", "land", "cars", "by", "size", "medium", "car", "diesel", "km"}
	if !slices.Equal(car.Tags, wantTags) {
		t.Fatalf("cf_4 tags = %v, want %v", car.Tags, wantTags)
	}
	if gas := res.Factors[0]; !slices.Equal(gas.Tags, []string{"scope_1", "fuels", "gaseous", "natural", "gas", "kwh (gross cv)"}) {
		t.Fatalf("cf_1 tags = %v", gas.Tags)
	}

	meta := res.Metadata
	if meta.TotalFactors != 3 || meta.Year != DefaultYear || meta.Source != DefaultSource || meta.SourceURL != DefaultSourceURL {
		t.Fatalf("metadata = %+v", meta)
	}
	if meta.ParsedAt != "2025-06-10T09:30:00Z" {
		t.Fatalf("ParsedAt = %q", meta.ParsedAt)
	}
	if meta.Scopes["Scope 3"] != 1 || meta.Categories["Fuels"] != 1 || len(meta.Categories) != 3 {
		t.Fatalf("counts = %v %v", meta.Categories, meta.Scopes)
	}
}

func TestImport_WrittenDatasetLoads(t *testing.T) {
	t.Parallel()

	res, err := Import(sampleFlatFile(t), ImportOptions{Year: 2024, Now: func() time.Time { return importedAt }})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	var buf bytes.Buffer
	if err := res.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	c, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Len() != 3 || c.Metadata().Year != 2024 {
		t.Fatalf("catalog len=%d metadata=%+v", c.Len(), c.Metadata())
	}
	hits := c.Search(SearchRequest{SearchTerm: "medium"})
	if got := ids(hits); !slices.Equal(got, []string{"cf_4"}) {
		t.Fatalf("search = %v", got)
	}
	elec := c.QuickLookup(QuickLookupRequest{Electricity: true})
	if got := ids(elec.Results); !slices.Contains(got, "cf_2") {
		t.Fatalf("electricity lookup = %v", got)
	}
}

func TestImport_Errors(t *testing.T) {
	t.Parallel()

	other := flatFile(t, "Outline", map[int][]any{6: {"cf_1", "Scope 1", "Fuels", "", "", "", "", "kWh", "kg CO2e", 1.0}})
	if _, err := Import(other, ImportOptions{}); !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("Import() error = %v, want ErrSheetNotFound", err)
	}
	if _, err := Import(strings.NewReader("ID,Scope\n"), ImportOptions{}); err == nil {
		t.Fatal("expected error for a non-workbook input")
	}
}

func TestFactorTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		factor Factor
		want   []string
	}{
		{
			name:   "drops single characters",
			factor: Factor{Scope: "Outside of scopes", Category: Category{Level1: "Bioenergy", Level2: "A - biofuel"}, Units: Units{ActivityUnit: "litres"}},
			want:   []string{"outside_of_scopes", "bioenergy", "biofuel", "litres"},
		},
		{
			name:   "no fields",
			factor: Factor{},
			want:   []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := factorTags(tc.factor); !slices.Equal(got, tc.want) {
				t.Fatalf("factorTags() = %v, want %v", got, tc.want)
			}
		})
	}
}
