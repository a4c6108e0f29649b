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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/adaptran/internal/store"
)

var cacheDBPath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the SQLite translation cache",
	Long: `List, inspect, and clear the SQLite translation cache.

The database defaults to cache.sqlite_path from the config.`,
}

func openStore() (*store.Store, error) {
	path := cacheDBPath
	if path == "" {
		path = cfg.Cache.SQLitePath
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cached translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries in the translation cache.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINGERPRINT\tSOURCE\tTARGET\tLEVEL\tSCORE\tHITS\tLAST USED\tTEXT")
		for _, e := range entries {
			snippet := []rune(e.SourceText)
			text := string(snippet)
			if len(snippet) > 40 {
				text = string(snippet[:37]) + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\t%d\t%s\t%s\n",
				e.Fingerprint[:12], e.SourceLang, e.TargetLang, e.OptimizationLevel,
				e.OverallScore, e.HitCount, e.LastUsed.Format("2006-01-02 15:04"), text)
		}
		return w.Flush()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total entries:     %d\n", stats.TotalEntries)
		fmt.Printf("Semantic entries:  %d\n", stats.SemanticEntries)
		fmt.Printf("Optimized entries: %d\n", stats.OptimizedEntries)
		fmt.Printf("Total hits:        %d\n", stats.TotalHits)
		fmt.Printf("Average score:     %.3f\n", stats.AverageScore)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <fingerprint>",
	Short: "Delete a cached translation by fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteByFingerprint(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Printf("Deleted entry: %s\n", args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from the translation cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.Clear(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d entries from the translation cache.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDBPath, "db", "", "Database path (default: cache.sqlite_path)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
