// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/archive"
	"github.com/pdiddy/account-research/internal/convert"
	"github.com/pdiddy/account-research/internal/docx"
	"github.com/pdiddy/account-research/internal/export"
	"github.com/pdiddy/account-research/internal/fetch"
	"github.com/pdiddy/account-research/internal/pipeline"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/internal/server"
	"github.com/pdiddy/account-research/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report <target company>",
	Short: "Research a target company and render the strategic analysis",
	Long: `Report runs the research pipeline for one target company. Every section
in the section set is researched with a web search and an LLM synthesis,
optionally audited to strip unsupported claims, and assembled into a single
document written to <output-dir>/<target>_Report.docx.

A ground-truth document (PDF, text, Markdown, or HTML) supplied with
--document or --document-url is extracted once and shared by every section.
Finished runs are stored in the archive unless --no-archive is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := strings.TrimSpace(strings.Join(args, " "))
	if target == "" {
		return fmt.Errorf("target company is required")
	}

	cfg, err := reportConfig(viper.GetViper())
	if err != nil {
		return err
	}
	set, err := sectionSet(cmd, cfg)
	if err != nil {
		return err
	}

	groundTruth, err := reportGroundTruth(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	runner, err := newRunner(ctx, cfg, creds, set, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "researching %s: %d sections, %s mode\n", target, set.Len(), cfg.Mode)
	out, err := runner.Run(ctx, server.RunRequest{Target: target, GroundTruth: groundTruth}, logEvent)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	paths, err := writeReport(cmd, cfg, out)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
	}

	if len(out.Unsourced) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %d citation(s) point outside the search results\n", len(out.Unsourced))
	}

	noArchive, _ := cmd.Flags().GetBool("no-archive")
	if !noArchive {
		store, err := archive.Open(cfg.ArchiveDir)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, out); err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived run %s\n", out.RunID)
	}
	return nil
}

// sectionSet loads the configured section set and narrows it to --sections.
func sectionSet(cmd *cobra.Command, cfg types.ReportConfig) (*sections.Set, error) {
	set, err := sections.LoadOrDefault(cfg.SectionsFile)
	if err != nil {
		return nil, err
	}
	ids, _ := cmd.Flags().GetStringSlice("sections")
	if len(ids) == 0 {
		return set, nil
	}
	keys := make([]types.SectionID, len(ids))
	for i, id := range ids {
		keys[i] = types.SectionID(strings.TrimSpace(id))
	}
	return set.Subset(keys)
}

// reportGroundTruth extracts the optional ground-truth document. A document
// that is named but cannot be read or yields no text is fatal.
func reportGroundTruth(ctx context.Context, cmd *cobra.Command, cfg types.ReportConfig) (string, error) {
	path, _ := cmd.Flags().GetString("document")
	docURL, _ := cmd.Flags().GetString("document-url")
	if path != "" && docURL != "" {
		return "", fmt.Errorf("use either --document or --document-url, not both")
	}

	if docURL != "" {
		dir, err := os.MkdirTemp("", "account-research-doc-*")
		if err != nil {
			return "", fmt.Errorf("creating download directory: %w", err)
		}
		defer os.RemoveAll(dir)

		client := &http.Client{Timeout: cfg.Search.Timeout}
		path, err = fetch.Download(ctx, client, docURL, dir)
		if err != nil {
			return "", fmt.Errorf("downloading ground-truth document: %w", err)
		}
	}
	if path == "" {
		return "", nil
	}

	text, err := newExtractor(ctx, path).ExtractText(ctx, path)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ground truth: %s (%d characters", filepath.Base(path), len([]rune(text)))
	if n := cfg.ClampedContextLimit(); len([]rune(text)) > n {
		fmt.Fprintf(cmd.OutOrStdout(), ", first %d used", n)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ")")
	return text, nil
}

// newExtractor returns an extractor; the PDF backend is only probed when
// the document is a PDF.
func newExtractor(ctx context.Context, path string) *convert.Extractor {
	e := &convert.Extractor{Logger: logger}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		e.PDF = convert.NewPDFConverter(ctx, logger)
	}
	return e
}

// writeReport writes the docx and any extra formats, returning the paths
// written.
func writeReport(cmd *cobra.Command, cfg types.ReportConfig, out *pipeline.Outcome) ([]string, error) {
	dir, _ := cmd.Flags().GetString("output-dir")
	if dir == "" {
		dir = cfg.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	docPath := filepath.Join(dir, docx.FileName(out.Target, ".docx"))
	if err := os.WriteFile(docPath, out.Document, 0o644); err != nil {
		return nil, fmt.Errorf("writing document: %w", err)
	}
	paths := []string{docPath}

	formats, _ := cmd.Flags().GetStringSlice("format")
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "", "docx":
		case "html":
			page, err := export.StyledHTML(out.Markdown, pipeline.TitlePrefix+out.Target, cfg.Style)
			if err != nil {
				return paths, err
			}
			p := filepath.Join(dir, docx.FileName(out.Target, ".html"))
			if err := os.WriteFile(p, []byte(page), 0o644); err != nil {
				return paths, fmt.Errorf("writing HTML: %w", err)
			}
			paths = append(paths, p)
		default:
			return paths, fmt.Errorf("unsupported format %q: use docx or html", f)
		}
	}

	if md, _ := cmd.Flags().GetBool("markdown"); md {
		p := filepath.Join(dir, docx.FileName(out.Target, ".md"))
		if err := os.WriteFile(p, []byte(out.Markdown), 0o644); err != nil {
			return paths, fmt.Errorf("writing markdown: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// logEvent records progress events in the debug log.
func logEvent(ev types.ProgressEvent) {
	logger.Debug("progress", zap.String("stage", string(ev.Stage)), zap.Any("payload", ev.Payload))
}

func init() {
	reportCmd.Flags().String("mode", string(types.ModeSequential), "scheduling mode: sequential or parallel")
	reportCmd.Flags().Bool("audit", false, "run the audit pass on each section")
	reportCmd.Flags().String("audit-failure", string(types.AuditKeep), "on audit failure: keep (pre-audit content) or fail (abort)")
	reportCmd.Flags().StringSlice("sections", nil, "research only these section ids (comma-separated)")
	reportCmd.Flags().String("sections-file", "", "YAML file replacing the canonical section set")
	reportCmd.Flags().String("document", "", "ground-truth document: .pdf, .txt, .md, or .html")
	reportCmd.Flags().String("document-url", "", "download the ground-truth document from this URL")
	reportCmd.Flags().StringSlice("format", nil, "extra output formats besides docx: html")
	reportCmd.Flags().Bool("markdown", false, "also write the raw report markdown")
	reportCmd.Flags().Bool("no-archive", false, "do not store the run in the archive")
	reportCmd.Flags().String("output-dir", "", "directory for rendered reports (default from config: output/reports)")
	reportCmd.Flags().String("provider", "", "generation backend: claude or gemini")
	reportCmd.Flags().String("model", "", "AI model identifier")
	reportCmd.Flags().Int("context-limit", 0, "ground-truth prefix length in characters (4000-15000)")

	viper.BindPFlag("mode", reportCmd.Flags().Lookup("mode"))
	viper.BindPFlag("audit", reportCmd.Flags().Lookup("audit"))
	viper.BindPFlag("audit_failure", reportCmd.Flags().Lookup("audit-failure"))
	viper.BindPFlag("sections_file", reportCmd.Flags().Lookup("sections-file"))
	viper.BindPFlag("ai.provider", reportCmd.Flags().Lookup("provider"))
	viper.BindPFlag("ai.model", reportCmd.Flags().Lookup("model"))
	viper.BindPFlag("context_limit", reportCmd.Flags().Lookup("context-limit"))

	rootCmd.AddCommand(reportCmd)
}
