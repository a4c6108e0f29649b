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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/adaptran/internal"
	"github.com/valpere/adaptran/internal/config"
	"github.com/valpere/adaptran/internal/detector"
)

var (
	inputFile   string
	outputFile  string
	sourceLang  string
	targetLang  string
	credentials string
	projectID   string

	services   []string
	maxRetries int

	preference    string
	forceOptimize bool
	maxOptTime    time.Duration
	progressive   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a text file adaptively",
	Long: `Translate a text file in two stages. The semantic pass chunks the text
by structure and translates it; its quality is then scored, and when the
score misses the threshold for the chosen preference the chunk size is
searched and the text re-translated.

Preferences:
  - fast       never optimize
  - balanced   optimize below controller.quality_threshold (default)
  - quality    optimize below controller.quality_preference_threshold

Available services:
  - google      Google Translate (requires credentials)
  - systran     Systran Translate (requires API key)
  - mymemory    MyMemory (free, 5000 chars/day)
  - ollama      Ollama LLM (self-hosted)
  - openrouter  OpenRouter LLM (requires API key)

Use --progressive to print each pipeline update to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		pref, err := internal.ParseUserPreference(preference)
		if err != nil {
			return err
		}

		strInp, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(strInp)

		if sourceLang == "auto" {
			sourceLang = detectSource(text)
		}

		applyServiceFlags(cmd, cfg)

		ctrl, closeCache, err := buildController(cfg, logger)
		if err != nil {
			return err
		}
		defer closeCache()

		req := internal.TranslationRequest{
			Text:                text,
			SourceLang:          sourceLang,
			TargetLang:          targetLang,
			UserPreference:      pref,
			ForceOptimization:   forceOptimize,
			MaxOptimizationTime: maxOptTime,
		}

		ctx := context.Background()

		var result *internal.TranslationResult
		if progressive {
			result, err = ctrl.ProgressiveTranslate(ctx, req, printUpdate)
		} else {
			result, err = ctrl.Translate(ctx, req)
		}
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(outputFile, []byte(result.Translation), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}

		fmt.Printf("Successfully translated %s to %s\n", sourceLang, targetLang)
		fmt.Printf("Quality: %.3f (%s)\n", result.QualityMetrics.OverallScore, result.QualityMetrics.Grade)
		fmt.Printf("Cache hit: %v, optimization applied: %v\n", result.CacheHit, result.OptimizationApplied)
		if size, ok := result.Metadata["optimal_chunk_size"]; ok {
			fmt.Printf("Optimal chunk size: %v\n", size)
		}
		fmt.Printf("Processing time: %s\n", result.ProcessingTime.Round(time.Millisecond))
		return nil
	},
}

// detectSource returns the lowercased ISO code of text, or "auto" when the
// language cannot be determined.
func detectSource(text string) string {
	det := detector.New()
	if detected, ok := det.DetectISO(text); ok {
		detected = strings.ToLower(detected)
		fmt.Fprintf(os.Stderr, "Detected source language: %s\n", detected)
		return detected
	}
	return "auto"
}

// applyServiceFlags lets explicitly set service flags win over the config.
func applyServiceFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("services") {
		c.Services.Names = services
	}
	if flags.Changed("credentials") {
		c.Services.Credentials = credentials
	}
	if flags.Changed("project") {
		c.Services.ProjectID = projectID
	}
	if flags.Changed("max-retries") {
		c.Services.MaxAttempts = max(maxRetries, 1)
	}
}

func printUpdate(u internal.TranslationUpdate) error {
	line := fmt.Sprintf("[%3.0f%%] %-10s %s", u.Progress*100, u.Stage, u.StatusMessage)
	if u.QualityMetrics != nil {
		line += fmt.Sprintf(" (quality %.3f)", u.QualityMetrics.OverallScore)
	}
	_, err := fmt.Fprintln(os.Stderr, line)
	return err
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for translation (required)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVarP(&projectID, "project", "p", "", "Google Cloud Project ID")

	translateCmd.Flags().StringSliceVar(&services, "services", []string{"google"}, "Translation services to use (comma-separated)")
	translateCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Total attempts per service including the first (1 = no retries)")

	translateCmd.Flags().StringVar(&preference, "preference", "balanced", "Speed/quality trade-off: fast, balanced or quality")
	translateCmd.Flags().BoolVar(&forceOptimize, "force-optimize", false, "Run the chunk-size search regardless of quality")
	translateCmd.Flags().DurationVar(&maxOptTime, "max-opt-time", internal.DefaultMaxOptimizationTime, "Soft time budget for the chunk-size search")
	translateCmd.Flags().BoolVar(&progressive, "progressive", false, "Print pipeline updates to stderr")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}
