// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/account-research/pkg/types"
)

// envKeyReplacer maps nested keys to env names, e.g. ai.provider to
// ACCOUNT_RESEARCH_AI_PROVIDER.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setConfigDefaults() {
	style := types.DefaultStyle()

	viper.SetDefault("search.timeout", 30*time.Second)
	viper.SetDefault("search.user_agent", "account-research/"+version)
	viper.SetDefault("search.max_results", 3)
	viper.SetDefault("search.depth", "basic")

	viper.SetDefault("ai.provider", string(types.ProviderClaude))
	viper.SetDefault("ai.model", "")
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.max_retries", 2)
	viper.SetDefault("ai.timeout", 120*time.Second)

	viper.SetDefault("context_limit", types.DefaultContextLimit)
	viper.SetDefault("mode", string(types.ModeSequential))
	viper.SetDefault("audit", false)
	viper.SetDefault("audit_failure", string(types.AuditKeep))
	viper.SetDefault("sections_file", "")
	viper.SetDefault("output_dir", "output/reports")
	viper.SetDefault("archive_dir", "archive")

	viper.SetDefault("style.brand_color", style.BrandColor)
	viper.SetDefault("style.link_color", style.LinkColor)
	viper.SetDefault("style.title_size", style.TitleSize)
	viper.SetDefault("style.heading_size", style.HeadingSize)
	viper.SetDefault("style.body_size", style.BodySize)

	viper.SetDefault("server.addr", "127.0.0.1:8080")
	viper.SetDefault("server.max_upload_bytes", 32<<20)
}

// reportConfig decodes the merged flag, env, and file configuration and
// rejects unknown enum values before any run starts.
func reportConfig(v *viper.Viper) (types.ReportConfig, error) {
	var cfg types.ReportConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}

	switch cfg.Mode {
	case types.ModeSequential, types.ModeParallel:
	case "":
		cfg.Mode = types.ModeSequential
	default:
		return cfg, fmt.Errorf("unknown mode %q: use sequential or parallel", cfg.Mode)
	}

	switch cfg.AuditFailure {
	case types.AuditKeep, types.AuditFail:
	case "":
		cfg.AuditFailure = types.AuditKeep
	default:
		return cfg, fmt.Errorf("unknown audit failure policy %q: use keep or fail", cfg.AuditFailure)
	}

	switch cfg.AI.Provider {
	case types.ProviderClaude, types.ProviderGemini:
	case "":
		cfg.AI.Provider = types.ProviderClaude
	default:
		return cfg, fmt.Errorf("unknown AI provider %q: use claude or gemini", cfg.AI.Provider)
	}

	cfg.ContextLimit = cfg.ClampedContextLimit()
	return cfg, nil
}

// serverConfig reads the server block.
func serverConfig(v *viper.Viper) types.ServerConfig {
	return types.ServerConfig{
		Addr:           v.GetString("server.addr"),
		MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
	}
}
