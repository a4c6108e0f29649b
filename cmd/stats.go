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

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the configured pipeline and cache state",
	Long: `Build the pipeline from the current config and print its thresholds and
the state of the configured cache backend (memory, redis, sqlite or none).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, closeCache, err := buildController(cfg, logger)
		if err != nil {
			return err
		}
		defer closeCache()

		stats := ctrl.PerformanceStats(context.Background())

		fmt.Printf("Quality threshold:            %.2f\n", stats.QualityThreshold)
		fmt.Printf("Quality preference threshold: %.2f\n", cfg.Controller.QualityPreferenceThreshold)
		fmt.Printf("Chunk sizes:                  %d-%d\n", cfg.Chunker.MinChunkSize, cfg.Chunker.MaxChunkSize)
		if stats.CacheStats == nil {
			fmt.Println("Cache:                        disabled")
			return nil
		}
		fmt.Printf("Cache backend:                %s\n", stats.CacheStats.Backend)
		if stats.CacheStats.Entries < 0 {
			fmt.Println("Cache entries:                unavailable")
		} else {
			fmt.Printf("Cache entries:                %d\n", stats.CacheStats.Entries)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
