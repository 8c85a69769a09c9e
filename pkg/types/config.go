package types

import "time"

// HTTPConfig holds shared HTTP settings used by collaborators that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "account-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the web search collaborator.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the search API URL. Empty uses the Tavily default.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// MaxResults is the number of results requested per section (default 3).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Depth selects the search depth: "basic" or "advanced".
	Depth string `json:"depth,omitempty" yaml:"depth,omitempty" mapstructure:"depth"`
}

// AIProvider names a generation backend.
type AIProvider string

const (
	ProviderClaude AIProvider = "claude"
	ProviderGemini AIProvider = "gemini"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend: claude or gemini.
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier (e.g. "claude-3-5-sonnet-latest").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps the response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// MaxRetries is the number of retry attempts for failed API calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single API call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ScheduleMode selects how the pipeline dispatches section research.
type ScheduleMode string

const (
	ModeSequential ScheduleMode = "sequential"
	ModeParallel   ScheduleMode = "parallel"
)

// AuditFailurePolicy decides what happens when the audit LLM call fails.
type AuditFailurePolicy string

const (
	// AuditKeep retains the pre-audit content and continues the run.
	AuditKeep AuditFailurePolicy = "keep"
	// AuditFail aborts the run.
	AuditFail AuditFailurePolicy = "fail"
)

// Ground-truth prefix bounds, in characters.
const (
	MinContextLimit     = 4000
	MaxContextLimit     = 15000
	DefaultContextLimit = 8000
)

// ReportConfig groups everything a single report run needs.
type ReportConfig struct {
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	AI     AIConfig     `json:"ai" yaml:"ai" mapstructure:"ai"`

	// ContextLimit bounds the ground-truth prefix passed to generation.
	ContextLimit int `json:"context_limit" yaml:"context_limit" mapstructure:"context_limit"`

	// Mode is sequential or parallel.
	Mode ScheduleMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Audit enables the reflection pass after each section.
	Audit bool `json:"audit" yaml:"audit" mapstructure:"audit"`

	// AuditFailure is keep (default) or fail.
	AuditFailure AuditFailurePolicy `json:"audit_failure" yaml:"audit_failure" mapstructure:"audit_failure"`

	// SectionsFile optionally replaces the canonical section set.
	SectionsFile string `json:"sections_file,omitempty" yaml:"sections_file,omitempty" mapstructure:"sections_file"`

	// OutputDir receives rendered documents (default "output/reports").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// ArchiveDir holds the run archive database (default "archive").
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir" mapstructure:"archive_dir"`

	// Style controls document colors and sizes.
	Style StyleConfig `json:"style" yaml:"style" mapstructure:"style"`
}

// ClampedContextLimit returns ContextLimit bounded to [MinContextLimit, MaxContextLimit].
// Zero selects DefaultContextLimit.
func (c ReportConfig) ClampedContextLimit() int {
	switch {
	case c.ContextLimit == 0:
		return DefaultContextLimit
	case c.ContextLimit < MinContextLimit:
		return MinContextLimit
	case c.ContextLimit > MaxContextLimit:
		return MaxContextLimit
	default:
		return c.ContextLimit
	}
}

// StyleConfig holds the document styling knobs. Colors are RRGGBB hex.
type StyleConfig struct {
	BrandColor string `json:"brand_color" yaml:"brand_color" mapstructure:"brand_color"`
	LinkColor  string `json:"link_color" yaml:"link_color" mapstructure:"link_color"`

	// Sizes are in points.
	TitleSize   int `json:"title_size" yaml:"title_size" mapstructure:"title_size"`
	HeadingSize int `json:"heading_size" yaml:"heading_size" mapstructure:"heading_size"`
	BodySize    int `json:"body_size" yaml:"body_size" mapstructure:"body_size"`
}

// DefaultStyle returns the house style.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		BrandColor:  "1F3864",
		LinkColor:   "0563C1",
		TitleSize:   20,
		HeadingSize: 14,
		BodySize:    10,
	}
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default "127.0.0.1:8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps multipart document uploads (default 32 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}
