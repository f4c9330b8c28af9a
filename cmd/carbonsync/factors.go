package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/streetvisit/carbon-recycling-platform/internal/factors"
)

var errNoFactors = errors.New("no conversion factors found")

var factorsImportOpts struct {
	output string
	sheet  string
	year   int
}

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "Work with the conversion-factor dataset.",
}

var factorsImportCmd = &cobra.Command{
	Use:   "import <flat-file.xlsx>",
	Short: "Convert the government conversion-factor flat file into the dataset served by FACTORS_FILE.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFactorsImport(args[0], factorsImportOpts.output, factors.ImportOptions{
			Sheet: factorsImportOpts.sheet,
			Year:  factorsImportOpts.year,
		}, cmd.OutOrStdout())
	},
}

func init() {
	flags := factorsImportCmd.Flags()
	flags.StringVarP(&factorsImportOpts.output, "output", "o", "conversion_factors.json", "dataset file to write")
	flags.StringVar(&factorsImportOpts.sheet, "sheet", factors.DefaultSheet, "worksheet holding the factors")
	flags.IntVar(&factorsImportOpts.year, "year", factors.DefaultYear, "reporting year of the flat file")
	factorsCmd.AddCommand(factorsImportCmd)
}

func runFactorsImport(input, output string, opts factors.ImportOptions, out io.Writer) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	res, err := factors.Import(in, opts)
	if err != nil {
		return err
	}
	if len(res.Factors) == 0 {
		return fmt.Errorf("%s: %w", input, errNoFactors)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := res.WriteJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	writeImportSummary(out, res, output)
	return nil
}

func writeImportSummary(out io.Writer, res factors.ImportResult, output string) {
	fmt.Fprintf(out, "%s: %d factors written to %s", res.Metadata.Source, res.Metadata.TotalFactors, output)
	if res.Skipped > 0 {
		fmt.Fprintf(out, " (%d rows skipped)", res.Skipped)
	}
	fmt.Fprintln(out)

	categories, scopes := res.Metadata.Ranked()
	fmt.Fprintln(out, "Top categories:")
	for _, c := range categories[:min(10, len(categories))] {
		fmt.Fprintf(out, "  %s: %d\n", c.Name, c.Count)
	}
	fmt.Fprintln(out, "Scopes:")
	for _, s := range scopes {
		fmt.Fprintf(out, "  %s: %d\n", s.Name, s.Count)
	}
}
