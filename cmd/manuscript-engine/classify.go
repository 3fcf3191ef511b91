// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/manuscript-engine/internal/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [files...]",
	Short: "Classify input files into workspace categories",
	Long: `Classify reports which workspace area each input file would land in:
figures, data, documents, manuscripts, or unsupported. With no arguments
the staging directory is scanned. Nothing is copied or modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p classify.Partition
		if len(args) > 0 {
			p = classify.Classify(args)
		} else {
			dir, _ := cmd.Flags().GetString("staging-dir")
			var err error
			p, err = classify.ScanDir(dir)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", dir, err)
			}
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}

		for _, a := range p.All() {
			fmt.Printf("%-12s %s\n", a.Category, filepath.Base(a.Path))
		}
		fmt.Printf("%d files classified\n", p.Count())
		return nil
	},
}

func init() {
	classifyCmd.Flags().String("staging-dir", "inbox", "directory scanned when no files are given")
	classifyCmd.Flags().Bool("json", false, "output the partition as JSON")

	rootCmd.AddCommand(classifyCmd)
}
