// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/account-research/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a ground-truth document",
	Long: `Fetch downloads a document (an annual report PDF, an investor page) into
a local directory so it can be passed to report --document. The file is
written atomically and named from the server's Content-Disposition or the
URL path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		fetch.UserAgent = viper.GetString("search.user_agent")

		client := &http.Client{Timeout: viper.GetDuration("search.timeout")}
		path, err := fetch.Download(cmd.Context(), client, args[0], dir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("dir", "documents", "directory to download into")

	rootCmd.AddCommand(fetchCmd)
}
