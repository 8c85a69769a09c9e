// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/account-research/internal/research"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Extract ground-truth text from a document",
	Long: `Extract prints the text a report run would take from a ground-truth
document. PDFs are converted with the markitdown container when docker or
podman has the image, otherwise with pdftotext. HTML is reduced to its
visible text; .txt and .md files are read as-is.

Use --limit to see exactly the prefix passed to generation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		text, err := newExtractor(ctx, args[0]).ExtractText(ctx, args[0])
		if err != nil {
			return err
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			text = research.TruncateContext(text, limit)
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	extractCmd.Flags().Int("limit", 0, "truncate output to this many characters (0 = full text)")

	rootCmd.AddCommand(extractCmd)
}
