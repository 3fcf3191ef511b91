// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-engine/internal/convert"
	"github.com/pdiddy/manuscript-engine/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <files...>",
	Short: "Convert documents to Markdown",
	Long: `Convert extracts Markdown from docx, odt, pdf, html, md, and txt files,
the same normalization the pipeline applies before drafting. Each input
produces <stem>.md in the output directory; embedded images land in the
figures subdirectory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("output-dir")
		figuresDir := filepath.Join(outDir, "figures")
		if err := os.MkdirAll(figuresDir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", figuresDir, err)
		}

		artifacts := make([]types.Artifact, len(args))
		for i, path := range args {
			artifacts[i] = types.Artifact{Path: path, Category: types.CategoryDocument}
		}

		var cfg types.PipelineConfig
		cfg.Defaults()
		conv := convert.New(cfg.Convert)

		failures := 0
		for _, o := range conv.ConvertBatch(cmd.Context(), artifacts, figuresDir, os.Stderr) {
			if o.Err != nil {
				failures++
				continue
			}
			base := filepath.Base(o.Artifact.Path)
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			out := filepath.Join(outDir, stem+".md")
			if err := os.WriteFile(out, []byte(o.Doc.Markdown), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Println(out)
		}

		if failures > 0 {
			return fmt.Errorf("%d of %d conversions failed", failures, len(args))
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("output-dir", "converted", "directory for Markdown output")

	rootCmd.AddCommand(convertCmd)
}
