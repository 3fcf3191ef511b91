// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-engine/internal/research"
	"github.com/pdiddy/manuscript-engine/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Look up supporting literature for a query",
	Long: `Research runs one literature lookup against the configured scholarly
backends (OpenAlex always, Semantic Scholar when a key is present) and
prints the merged, ranked results. This is the same lookup a generation
run performs before drafting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg types.PipelineConfig
		cfg.Defaults()
		cfg.Research.Enabled = true
		cfg.Research.APIKey = secretDefault("research-api-key", "")
		cfg.Research.Email = secretDefault("openalex-email", "")
		if max, _ := cmd.Flags().GetInt("max-results"); max > 0 {
			cfg.Research.MaxResults = max
		}

		client := research.NewClient(cfg.Research, nil)
		results, err := client.Lookup(cmd.Context(), strings.Join(args, " "), os.Stderr)
		if err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		for _, r := range results {
			fmt.Printf("%.2f  %s\n", r.Relevance, r.Title)
			fmt.Printf("      %s (%s)\n", r.SourceID, r.Provider)
		}
		fmt.Printf("%d results\n", len(results))
		return nil
	},
}

func init() {
	researchCmd.Flags().Int("max-results", 10, "maximum number of results")
	researchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(researchCmd)
}
