// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/account-research/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse finished report runs (list, show, search, export)",
	Long: `Archive manages the local SQLite archive of finished runs. Each run
keeps its target, mode, timestamps, per-section content, collected URLs,
and the rendered document. Section text is indexed with FTS5.`,
}

// --- list subcommand ---

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeIndentedJSON(w, runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No archived runs.")
			return nil
		}

		fmt.Fprintf(w, "%-8s  %-30s  %-10s  %-16s  %8s  %4s  %s\n",
			"ID", "Target", "Mode", "Started", "Duration", "URLs", "Document")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for _, r := range runs {
			fmt.Fprintf(w, "%-8s  %-30s  %-10s  %-16s  %8s  %4d  %d bytes\n",
				shortID(r.ID), truncate(r.Target, 30), r.Mode,
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				r.URLs, r.DocumentBytes)
		}
		fmt.Fprintf(w, "\n%d runs\n", len(runs))
		return nil
	},
}

// --- show subcommand ---

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived run (id or unique prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		if docPath, _ := cmd.Flags().GetString("document"); docPath != "" {
			doc, _, err := store.Document(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(docPath, doc, 0o644); err != nil {
				return fmt.Errorf("writing document: %w", err)
			}
			fmt.Fprintf(w, "wrote %s (%d bytes)\n", docPath, len(doc))
			return nil
		}

		run, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeIndentedJSON(w, run)
		}
		if md, _ := cmd.Flags().GetBool("markdown"); md {
			fmt.Fprintln(w, run.Markdown)
			return nil
		}

		fmt.Fprintf(w, "Run:      %s\n", run.ID)
		fmt.Fprintf(w, "Target:   %s\n", run.Target)
		fmt.Fprintf(w, "Mode:     %s\n", run.Mode)
		fmt.Fprintf(w, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC1123))
		fmt.Fprintf(w, "Finished: %s\n", run.FinishedAt.Local().Format(time.RFC1123))
		fmt.Fprintf(w, "Document: %d bytes\n\n", run.DocumentBytes)
		for i, s := range run.Sections {
			var flags []string
			if s.SearchFailed {
				flags = append(flags, "search failed")
			}
			if s.GenerationFailed {
				flags = append(flags, "generation failed")
			}
			if s.Audited {
				flags = append(flags, "audited")
			}
			note := ""
			if len(flags) > 0 {
				note = " (" + strings.Join(flags, ", ") + ")"
			}
			fmt.Fprintf(w, "%d. %s [%s]%s: %d sources\n", i+1, s.Title, s.Section, note, len(s.URLs))
		}
		fmt.Fprintf(w, "\n%d unique URLs", len(run.URLs))
		if len(run.Unsourced) > 0 {
			fmt.Fprintf(w, ", %d unsourced citations", len(run.Unsourced))
		}
		fmt.Fprintln(w)
		return nil
	},
}

// --- search subcommand ---

var archiveSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across archived section content",
	Long: `Search runs an FTS5 query over every archived section's title and
content. FTS5 syntax is accepted: phrases in quotes, AND/OR/NOT, prefix*.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		hits, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeIndentedJSON(w, hits)
		}
		if len(hits) == 0 {
			fmt.Fprintln(w, "No results found.")
			return nil
		}
		for i, h := range hits {
			fmt.Fprintf(w, "%d. %s / %s [%s]\n   %s\n",
				i+1, h.Target, h.Title, shortID(h.RunID), strings.ReplaceAll(h.Snippet, "\n", " "))
		}
		fmt.Fprintf(w, "\n%d results\n", len(hits))
		return nil
	},
}

// --- export subcommand ---

var archiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the archive to YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		store, err := openArchive()
		if err != nil {
			return err
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		var f *os.File
		if output != "" && output != "-" {
			f, err = os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "yaml", "":
			err = store.ExportYAML(cmd.Context(), w)
		case "json":
			err = store.ExportJSON(cmd.Context(), w)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		if f != nil {
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
		}
		return nil
	},
}

// --- shared helpers ---

func openArchive() (*archive.Store, error) {
	dir := viper.GetString("archive_dir")
	if dir == "" {
		dir = "archive"
	}
	return archive.Open(dir)
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	archiveCmd.PersistentFlags().String("archive-dir", "", "archive directory (default from config: archive)")
	viper.BindPFlag("archive_dir", archiveCmd.PersistentFlags().Lookup("archive-dir"))

	archiveListCmd.Flags().Int("limit", 20, "maximum runs to list")
	archiveListCmd.Flags().Bool("json", false, "output as JSON")

	archiveShowCmd.Flags().Bool("json", false, "output the full run as JSON")
	archiveShowCmd.Flags().Bool("markdown", false, "print the report markdown")
	archiveShowCmd.Flags().String("document", "", "write the archived .docx to this path")

	archiveSearchCmd.Flags().Int("limit", 20, "maximum results")
	archiveSearchCmd.Flags().Bool("json", false, "output as JSON")

	archiveExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	archiveExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveSearchCmd)
	archiveCmd.AddCommand(archiveExportCmd)

	rootCmd.AddCommand(archiveCmd)
}
