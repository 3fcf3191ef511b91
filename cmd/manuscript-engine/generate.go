// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/manuscript-engine/internal/figures"
	"github.com/pdiddy/manuscript-engine/internal/model"
	"github.com/pdiddy/manuscript-engine/internal/pipeline"
	"github.com/pdiddy/manuscript-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate a compiled document from a request and input files",
	Long: `Generate runs the full pipeline: classify the given files (or scan the
staging directory when none are given), look up supporting literature,
draft the document, generate missing figures, verify citations against
source evidence, and compile to PDF.

Progress streams to stderr; the final result summary goes to stdout.
Interrupt (Ctrl-C) stops the run between steps and leaves partial output
in the run directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		if strings.TrimSpace(query) == "" {
			fmt.Fprint(os.Stderr, "What should I write? ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading query: %w", err)
			}
			query = strings.TrimSpace(line)
		}
		if query == "" {
			return fmt.Errorf("a query is required (--query or interactive prompt)")
		}

		cfg := pipelineConfig(cmd)
		if cfg.Model.APIKey == "" {
			return fmt.Errorf("model API key required (.secrets/model-api-key or --model-api-key)")
		}

		provider := model.NewMessagesBackend(cfg.Model)
		var figSvc figures.Service
		if cfg.Figures.APIKey != "" {
			figSvc = &figures.HTTPService{APIKey: cfg.Figures.APIKey}
		}

		outputDir, _ := cmd.Flags().GetString("output-dir")
		trackTokens, _ := cmd.Flags().GetBool("track-tokens")
		jsonOut, _ := cmd.Flags().GetBool("json")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		p := pipeline.New(cfg, provider, figSvc)
		var result *types.RunResult
		for ev := range p.Run(ctx, types.Request{
			Query:           query,
			Files:           args,
			OutputDir:       outputDir,
			TrackTokenUsage: trackTokens,
		}) {
			switch ev.Type {
			case types.EventProgress:
				fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Stage, ev.Message)
			case types.EventResult:
				result = ev.Result
			}
		}
		if result == nil {
			return fmt.Errorf("run canceled")
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			printResult(result)
		}

		if result.Status == "failed" {
			return fmt.Errorf("generation failed: %s", strings.Join(result.Errors, "; "))
		}
		return nil
	},
}

func printResult(r *types.RunResult) {
	fmt.Printf("Status:  %s\n", r.Status)
	fmt.Printf("Run dir: %s\n", r.RunDir)
	if r.Files.CompiledOutput != "" {
		fmt.Printf("Output:  %s (%d pages)\n", r.Files.CompiledOutput, r.PageCount)
	} else if r.Files.DraftSource != "" {
		fmt.Printf("Draft:   %s\n", r.Files.DraftSource)
	}
	if len(r.Citations) > 0 {
		verified := 0
		for _, c := range r.Citations {
			if c.Status == types.CitationVerified {
				verified++
			}
		}
		fmt.Printf("Citations: %d (%d verified)\n", len(r.Citations), verified)
	}
	for _, o := range r.Omissions {
		fmt.Printf("omitted: %s\n", o)
	}
	for _, e := range r.Errors {
		fmt.Printf("error:   %s\n", e)
	}
	if r.TokenUsage != nil {
		fmt.Printf("Tokens:  %d in / %d out\n", r.TokenUsage.InputTokens, r.TokenUsage.OutputTokens)
	}
}

// pipelineConfig assembles the run configuration from flags and secrets.
// Unset fields get working defaults inside the pipeline.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	var cfg types.PipelineConfig

	cfg.OutputDir, _ = cmd.Flags().GetString("output-dir")
	cfg.StagingDir, _ = cmd.Flags().GetString("staging-dir")

	cfg.Model.Model, _ = cmd.Flags().GetString("model")
	modelKey, _ := cmd.Flags().GetString("model-api-key")
	cfg.Model.APIKey = secretDefault("model-api-key", modelKey)

	research, _ := cmd.Flags().GetBool("research")
	cfg.Research.APIKey = secretDefault("research-api-key", "")
	cfg.Research.Email = secretDefault("openalex-email", "")
	// No key means lookups are skipped and the run degrades.
	cfg.Research.Enabled = research && cfg.Research.APIKey != ""

	cfg.Figures.APIKey = secretDefault("figure-api-key", "")

	cfg.Compile.Engine, _ = cmd.Flags().GetString("engine")

	// Tuning knobs come from the config file or environment only.
	if v := viper.GetFloat64("verify.threshold"); v > 0 {
		cfg.Verify.Threshold = v
	}
	if v := viper.GetInt("verify.max_remediations"); v > 0 {
		cfg.Verify.MaxRemediations = v
	}
	if v := viper.GetInt("convert.concurrency"); v > 0 {
		cfg.Convert.Concurrency = v
	}
	cfg.Retries.Outline = viper.GetInt("retries.outline")
	cfg.Retries.Draft = viper.GetInt("retries.draft")
	cfg.Retries.Figures = viper.GetInt("retries.figures")
	cfg.Retries.Verify = viper.GetInt("retries.verify")
	cfg.Retries.Compile = viper.GetInt("retries.compile")

	return cfg
}

func init() {
	generateCmd.Flags().String("query", "", "free-text generation request")
	generateCmd.Flags().String("model", "claude-sonnet-4-5", "model identifier for drafting")
	generateCmd.Flags().String("model-api-key", "", "model API key (default: .secrets/model-api-key)")
	generateCmd.Flags().Bool("research", true, "look up supporting literature")
	generateCmd.Flags().String("output-dir", "writing_outputs", "base directory for run outputs")
	generateCmd.Flags().String("staging-dir", "inbox", "directory scanned when no files are given")
	generateCmd.Flags().String("engine", "pdflatex", "LaTeX engine binary")
	generateCmd.Flags().Bool("track-tokens", false, "include model token totals in the result")
	generateCmd.Flags().Bool("json", false, "print the result as JSON")

	rootCmd.AddCommand(generateCmd)
}
