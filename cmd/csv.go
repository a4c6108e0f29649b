/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/adaptran/internal"
)

var (
	csvInputFile  string
	csvOutputFile string
	csvSourceLang string
	csvTargetLang string
	csvColumns    []int

	csvServices      []string
	csvPreference    string
	csvForceOptimize bool
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Translate columns of a CSV file",
	Long: `Translate one or more columns in a CSV file. Every cell goes through the
adaptive pipeline and shares the configured cache, so repeated cells are
translated once.

By default all columns are translated. Use -l to select specific columns
(0-indexed). The flag may be repeated to select multiple columns.

Example:
  adaptran translate csv -i data.csv -o out.csv -t uk -l 1 -l 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if csvInputFile == csvOutputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		pref, err := internal.ParseUserPreference(csvPreference)
		if err != nil {
			return err
		}

		f, err := os.Open(csvInputFile)
		if err != nil {
			return fmt.Errorf("failed to open input CSV: %w", err)
		}
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV: %w", err)
		}
		if len(records) == 0 {
			return fmt.Errorf("CSV file is empty")
		}

		srcLang := csvSourceLang
		if srcLang == "auto" && len(records) > 1 && len(records[1]) > 0 {
			srcLang = detectSource(records[1][0])
		}

		if cmd.Flags().Changed("services") {
			cfg.Services.Names = csvServices
		}

		ctrl, closeCache, err := buildController(cfg, logger)
		if err != nil {
			return err
		}
		defer closeCache()

		colSet := make(map[int]bool, len(csvColumns))
		for _, c := range csvColumns {
			colSet[c] = true
		}
		translateAll := len(csvColumns) == 0

		ctx := context.Background()
		failed := 0

		out := make([][]string, len(records))
		for rowIdx, row := range records {
			out[rowIdx] = make([]string, len(row))
			copy(out[rowIdx], row)

			for colIdx, cell := range row {
				if !translateAll && !colSet[colIdx] {
					continue
				}
				if cell == "" {
					continue
				}

				result, err := ctrl.Translate(ctx, internal.TranslationRequest{
					Text:              cell,
					SourceLang:        srcLang,
					TargetLang:        csvTargetLang,
					UserPreference:    pref,
					ForceOptimization: csvForceOptimize,
				})
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "Row %d col %d: %v, keeping original\n", rowIdx, colIdx, err)
					continue
				}
				out[rowIdx][colIdx] = result.Translation
			}
		}

		outFile, err := os.Create(csvOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output CSV: %w", err)
		}
		defer outFile.Close()

		writer := csv.NewWriter(outFile)
		if err := writer.WriteAll(out); err != nil {
			return fmt.Errorf("failed to write output CSV: %w", err)
		}

		stats := ctrl.PerformanceStats(ctx)
		fmt.Printf("CSV translated successfully: %s\n", csvOutputFile)
		fmt.Printf("Cells: %d, cache hits: %d, optimized: %d/%d, failed: %d\n",
			stats.TotalRequests, stats.CacheHits,
			stats.OptimizationsApplied, stats.OptimizationsAttempted, failed)
		return nil
	},
}

func init() {
	translateCmd.AddCommand(csvCmd)

	csvCmd.Flags().StringVarP(&csvInputFile, "input", "i", "", "Input CSV file (required)")
	csvCmd.Flags().StringVarP(&csvOutputFile, "output", "o", "", "Output CSV file (required)")
	csvCmd.Flags().StringVarP(&csvSourceLang, "source", "s", "auto", "Source language code")
	csvCmd.Flags().StringVarP(&csvTargetLang, "target", "t", "", "Target language code (required)")
	csvCmd.Flags().IntSliceVarP(&csvColumns, "column", "l", nil, "Column index to translate (0-indexed, repeatable; default: all columns)")

	csvCmd.Flags().StringSliceVar(&csvServices, "services", []string{"google"}, "Translation services to use (comma-separated)")
	csvCmd.Flags().StringVar(&csvPreference, "preference", "balanced", "Speed/quality trade-off: fast, balanced or quality")
	csvCmd.Flags().BoolVar(&csvForceOptimize, "force-optimize", false, "Run the chunk-size search for every cell")

	csvCmd.MarkFlagRequired("input")
	csvCmd.MarkFlagRequired("output")
	csvCmd.MarkFlagRequired("target")
}
