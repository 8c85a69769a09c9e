// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the account-research CLI.
// The report subcommand researches a target company section by section and
// renders a strategic analysis document; serve exposes the same run over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/account-research/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// creds holds API keys resolved from .secrets/, .env, and the environment.
	creds secrets.Credentials

	// logger is built in PersistentPreRunE; it is a no-op until then.
	logger = zap.NewNop()
)

// rootCmd is the base command for the account-research CLI.
var rootCmd = &cobra.Command{
	Use:   "account-research",
	Short: "Generate strategic account research reports",
	Long: `account-research builds a multi-section strategic analysis of a target
company. Each section combines web search results, an optional ground-truth
document, and an LLM synthesis bound to a strict citation style. The sections
are assembled into a single .docx with working hyperlinks, headings, tables,
and bold runs.

Subcommands: report runs the pipeline, sections shows the section set,
extract and fetch prepare ground-truth documents, archive browses finished
runs, and serve exposes runs over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		envFile, _ := cmd.Flags().GetString("env-file")
		c, err := secrets.Resolve(secretsDir, envFile, logger)
		if err != nil {
			return err
		}
		creds = c
		logger.Debug("credentials resolved",
			zap.Bool("tavily", c.Tavily != ""),
			zap.Bool("anthropic", c.Anthropic != ""),
			zap.Bool("gemini", c.Gemini != ""))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./account-research.yaml or ~/.config/account-research/account-research.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory holding one file per API key")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")

	setConfigDefaults()
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("account-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "account-research"))
		}
	}

	viper.SetEnvPrefix("ACCOUNT_RESEARCH")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
