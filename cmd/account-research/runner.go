// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/docx"
	"github.com/pdiddy/account-research/internal/llm"
	"github.com/pdiddy/account-research/internal/pipeline"
	"github.com/pdiddy/account-research/internal/research"
	"github.com/pdiddy/account-research/internal/search"
	"github.com/pdiddy/account-research/internal/secrets"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/internal/server"
	"github.com/pdiddy/account-research/pkg/types"
)

const defaultSearchTimeout = 30 * time.Second

// reportRunner wires the collaborators once and builds a controller per run.
// It implements server.Runner so the CLI and the HTTP surface share it.
type reportRunner struct {
	cfg    types.ReportConfig
	set    *sections.Set
	search search.Backend
	gen    llm.Generator
	logger *zap.Logger
	out    io.Writer
}

func newRunner(ctx context.Context, cfg types.ReportConfig, c secrets.Credentials, set *sections.Set, logger *zap.Logger, out io.Writer) (*reportRunner, error) {
	if c.Tavily == "" {
		return nil, fmt.Errorf("tavily search: %w", secrets.ErrMissingKey)
	}
	gen, err := llm.New(ctx, cfg.AI, c, logger)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Search.Timeout
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	if out == nil {
		out = io.Discard
	}

	return &reportRunner{
		cfg: cfg,
		set: set,
		search: &search.TavilyBackend{
			Client: &http.Client{Timeout: timeout},
			APIKey: c.Tavily,
			Config: cfg.Search,
		},
		gen:    gen,
		logger: logger,
		out:    out,
	}, nil
}

// controller builds the pipeline for one request, applying per-request
// overrides of mode and audit.
func (r *reportRunner) controller(req server.RunRequest, sink pipeline.Sink) *pipeline.Controller {
	mode := r.cfg.Mode
	if req.Mode != "" {
		mode = req.Mode
	}
	audit := r.cfg.Audit
	if req.Audit != nil {
		audit = *req.Audit
	}

	c := &pipeline.Controller{
		Sections: r.set,
		Researcher: &research.Researcher{
			Search:       r.search,
			Gen:          r.gen,
			ContextLimit: r.cfg.ClampedContextLimit(),
			MaxResults:   r.cfg.Search.MaxResults,
			Logger:       r.logger,
		},
		AuditFailure: r.cfg.AuditFailure,
		Mode:         mode,
		Renderer:     docx.New(r.cfg.Style),
		Sink:         sink,
		Logger:       r.logger,
		Out:          r.out,
	}
	if audit {
		c.Auditor = &research.Auditor{Gen: r.gen, Logger: r.logger}
	}
	return c
}

// Run implements server.Runner.
func (r *reportRunner) Run(ctx context.Context, req server.RunRequest, sink pipeline.Sink) (*pipeline.Outcome, error) {
	return r.controller(req, sink).Run(ctx, req.Target, req.GroundTruth)
}
