// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/account-research/internal/archive"
	"github.com/pdiddy/account-research/internal/convert"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve report runs over HTTP",
	Long: `Serve starts the HTTP surface:

  POST /v1/runs                 start a run (multipart: target, document, mode, audit)
                                and stream progress as server-sent events
  GET  /v1/runs                 list archived runs
  GET  /v1/runs/{id}/document   download a run's .docx
  GET  /health                  liveness check

Runs use the same configuration as report. Finished runs are archived
unless --no-archive is given, in which case listing and downloads are
disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := reportConfig(viper.GetViper())
		if err != nil {
			return err
		}
		set, err := sections.LoadOrDefault(cfg.SectionsFile)
		if err != nil {
			return err
		}
		runner, err := newRunner(ctx, cfg, creds, set, logger, nil)
		if err != nil {
			return err
		}

		var store server.Archive
		if noArchive, _ := cmd.Flags().GetBool("no-archive"); !noArchive {
			s, err := archive.Open(cfg.ArchiveDir)
			if err != nil {
				return err
			}
			defer s.Close()
			store = s
		}

		extractor := &convert.Extractor{PDF: convert.NewPDFConverter(ctx, logger), Logger: logger}
		srvCfg := serverConfig(viper.GetViper())
		fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", srvCfg.Addr)
		return server.New(runner, extractor, store, srvCfg, logger).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().Bool("no-archive", false, "do not archive finished runs")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
