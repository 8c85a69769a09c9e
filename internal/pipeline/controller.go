// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences section research across a section set,
// optionally audits each result, and assembles the final document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/account-research/internal/references"
	"github.com/pdiddy/account-research/internal/sections"
	"github.com/pdiddy/account-research/pkg/types"
)

var (
	// ErrUnknownSection reports a section key outside the configured set.
	ErrUnknownSection = sections.ErrUnknownSection

	// ErrAuditFailed wraps an audit failure under the fail policy.
	ErrAuditFailed = errors.New("audit failed")
)

// Researcher produces one section result. It must not retain or share
// state between calls.
type Researcher interface {
	Research(ctx context.Context, spec types.SectionSpec, target, groundTruth string) (types.SectionResult, []string, error)
}

// Auditor revises one section result.
type Auditor interface {
	Audit(ctx context.Context, result types.SectionResult) (types.SectionResult, error)
}

// Renderer turns the assembled markdown and deduplicated URLs into a binary document.
type Renderer interface {
	Render(markdown string, urls []string) ([]byte, error)
}

// Sink receives progress events. It is called from the controller
// goroutine only, one event at a time.
type Sink func(types.ProgressEvent)

// Controller owns the pipeline state machine.
type Controller struct {
	Sections   *sections.Set
	Researcher Researcher

	// Auditor is nil when the audit stage is disabled.
	Auditor      Auditor
	AuditFailure types.AuditFailurePolicy

	Mode types.ScheduleMode

	// Renderer is optional; without it Outcome.Document is nil.
	Renderer Renderer

	Sink   Sink
	Logger *zap.Logger

	// Out receives one human-readable progress line per section.
	Out io.Writer
}

// Outcome is what a finished run hands to the caller.
type Outcome struct {
	RunID      string
	Target     string
	Mode       types.ScheduleMode
	StartedAt  time.Time
	FinishedAt time.Time

	// Results are in section declaration order.
	Results []types.SectionResult

	// URLs are deduplicated, first occurrence first.
	URLs []string

	// Unsourced lists cited URLs that were not among the search results.
	Unsourced []string

	Markdown string
	Document []byte

	ResearchTransitions int
}

// Validate checks the controller configuration before a run.
func (c *Controller) Validate() error {
	if c.Sections == nil || c.Sections.Len() == 0 {
		return fmt.Errorf("no sections configured")
	}
	if c.Researcher == nil {
		return fmt.Errorf("no researcher configured")
	}
	switch c.Mode {
	case "", types.ModeSequential, types.ModeParallel:
	default:
		return fmt.Errorf("unknown schedule mode %q", c.Mode)
	}
	switch c.AuditFailure {
	case "", types.AuditKeep, types.AuditFail:
	default:
		return fmt.Errorf("unknown audit failure policy %q", c.AuditFailure)
	}
	return nil
}

// Run executes one report run for target. Cancelling ctx aborts
// outstanding calls and discards the partial state.
func (c *Controller) Run(ctx context.Context, target, groundTruth string) (*Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("target company is required")
	}

	mode := c.Mode
	if mode == "" {
		mode = types.ModeSequential
	}

	rs := NewRunState(c.Sections, target, groundTruth)
	logger := c.logger().With(zap.String("run_id", rs.ID), zap.String("target", target))
	logger.Info("run started", zap.String("mode", string(mode)), zap.Int("sections", len(rs.Pending)))

	c.emit(types.StageRunStarted, types.RunStartedPayload{
		RunID:  rs.ID,
		Target: target,
		Total:  len(rs.Pending),
		Mode:   string(mode),
	})

	out, err := c.run(ctx, rs, mode, logger)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		c.emit(types.StageRunFailed, types.RunFailedPayload{RunID: rs.ID, Error: err.Error()})
		return nil, err
	}

	logger.Info("run finished",
		zap.Int("sections", len(out.Results)),
		zap.Int("urls", len(out.URLs)),
		zap.Int("unsourced", len(out.Unsourced)))
	c.emit(types.StageRunFinished, types.RunFinishedPayload{
		RunID:         rs.ID,
		Sections:      len(out.Results),
		URLs:          len(out.URLs),
		Unsourced:     len(out.Unsourced),
		DocumentBytes: len(out.Document),
	})
	return out, nil
}

func (c *Controller) run(ctx context.Context, rs *RunState, mode types.ScheduleMode, logger *zap.Logger) (*Outcome, error) {
	var err error
	if rs.State, err = Transition(rs.State, EventInitialized); err != nil {
		return nil, err
	}

	if mode == types.ModeParallel {
		err = c.fanOut(ctx, rs, logger)
	} else {
		err = c.sequential(ctx, rs, logger)
	}
	if err != nil {
		return nil, err
	}

	if rs.State, err = Transition(rs.State, Route(len(rs.Pending))); err != nil {
		return nil, err
	}
	if rs.State != StateAssemble {
		return nil, fmt.Errorf("%d sections still pending after dispatch", len(rs.Pending))
	}
	return c.assemble(ctx, rs, mode, logger)
}

// sequential processes one section at a time in declaration order.
func (c *Controller) sequential(ctx context.Context, rs *RunState, logger *zap.Logger) error {
	total := c.Sections.Len()
	for Route(len(rs.Pending)) == EventSectionPending {
		var err error
		if rs.State, err = Transition(rs.State, EventSectionPending); err != nil {
			return err
		}
		rs.ResearchTransitions++
		spec := rs.Pending[0]

		res, urls, err := c.Researcher.Research(ctx, spec, rs.Target, rs.GroundTruth)
		if err != nil {
			return err
		}
		if err := c.foldResearched(rs, res, urls, total); err != nil {
			return err
		}

		if c.Auditor == nil {
			if rs.State, err = Transition(rs.State, EventResearched); err != nil {
				return err
			}
			continue
		}

		if rs.State, err = Transition(rs.State, EventAuditRequested); err != nil {
			return err
		}
		audited, auditErr := c.Auditor.Audit(ctx, res)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err := c.foldAudited(rs, res.Section, audited, auditErr, total, logger); err != nil {
			return err
		}
		if rs.State, err = Transition(rs.State, EventAudited); err != nil {
			return err
		}
	}
	return nil
}

type taskKind int

const (
	taskResearched taskKind = iota
	taskAudited
)

type taskMsg struct {
	kind     taskKind
	result   types.SectionResult
	urls     []string
	auditErr error
}

// fanOut dispatches every pending section concurrently. Tasks receive
// only their spec and the run inputs by value; their outputs are folded
// into rs on this goroutine in completion order.
func (c *Controller) fanOut(ctx context.Context, rs *RunState, logger *zap.Logger) error {
	total := c.Sections.Len()
	specs := append([]types.SectionSpec(nil), rs.Pending...)
	target, groundTruth := rs.Target, rs.GroundTruth

	// Buffered for every message a task can send so no task blocks on a
	// controller that has stopped reading.
	msgs := make(chan taskMsg, 2*len(specs))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		g.Go(func() error {
			res, urls, err := c.Researcher.Research(gctx, spec, target, groundTruth)
			if err != nil {
				return err
			}
			msgs <- taskMsg{kind: taskResearched, result: res, urls: urls}
			if c.Auditor == nil {
				return nil
			}
			audited, auditErr := c.Auditor.Audit(gctx, res)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			msgs <- taskMsg{kind: taskAudited, result: audited, auditErr: auditErr}
			if auditErr != nil && c.AuditFailure == types.AuditFail {
				return fmt.Errorf("%w: %w", ErrAuditFailed, auditErr)
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(msgs)
	}()

	// Each section follows its own DISPATCH -> RESEARCH -> [AUDIT] -> DISPATCH path.
	states := make(map[types.SectionID]State, len(specs))
	var foldErr error
	for m := range msgs {
		if foldErr != nil {
			cancel()
			continue
		}
		id := m.result.Section
		switch m.kind {
		case taskResearched:
			st, err := Transition(StateDispatch, EventSectionPending)
			if err != nil {
				foldErr = err
				continue
			}
			rs.ResearchTransitions++
			if err := c.foldResearched(rs, m.result, m.urls, total); err != nil {
				foldErr = err
				continue
			}
			next := EventResearched
			if c.Auditor != nil {
				next = EventAuditRequested
			}
			states[id], foldErr = Transition(st, next)
		case taskAudited:
			if err := c.foldAudited(rs, id, m.result, m.auditErr, total, logger); err != nil {
				if !errors.Is(err, ErrAuditFailed) {
					foldErr = err
				}
				continue
			}
			states[id], foldErr = Transition(states[id], EventAudited)
		}
	}

	err := <-waitErr
	if foldErr != nil {
		return foldErr
	}
	return err
}

func (c *Controller) foldResearched(rs *RunState, res types.SectionResult, urls []string, total int) error {
	if err := rs.complete(res, urls); err != nil {
		return err
	}
	index := rs.Results.Len()
	if c.Out != nil {
		fmt.Fprintf(c.Out, "completed %d/%d: %s\n", index, total, res.Title)
	}
	c.emit(types.StageSectionCompleted, types.SectionPayload{
		Index:            index,
		Total:            total,
		SectionID:        res.Section,
		Title:            res.Title,
		SearchFailed:     res.SearchFailed,
		GenerationFailed: res.GenerationFailed,
	})
	return nil
}

// foldAudited applies the audit outcome for id according to the failure policy.
func (c *Controller) foldAudited(rs *RunState, id types.SectionID, audited types.SectionResult, auditErr error, total int, logger *zap.Logger) error {
	current, _ := rs.Results.Get(id)
	payload := types.SectionPayload{
		Index:            rs.Results.Len(),
		Total:            total,
		SectionID:        id,
		Title:            current.Title,
		SearchFailed:     current.SearchFailed,
		GenerationFailed: current.GenerationFailed,
	}

	if auditErr != nil {
		payload.AuditError = auditErr.Error()
		c.emit(types.StageSectionAudited, payload)
		if c.AuditFailure == types.AuditFail {
			return fmt.Errorf("%w: %w", ErrAuditFailed, auditErr)
		}
		logger.Warn("audit failed, keeping pre-audit content",
			zap.String("section", string(id)), zap.Error(auditErr))
		return nil
	}

	if err := rs.Results.ReplaceContent(id, audited.Content); err != nil {
		return err
	}
	c.emit(types.StageSectionAudited, payload)
	return nil
}

func (c *Controller) assemble(ctx context.Context, rs *RunState, mode types.ScheduleMode, logger *zap.Logger) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := rs.Results.Sorted(c.Sections)
	urls := references.Dedup(rs.URLs)
	rs.Document = Assemble(rs.Target, results, urls)

	var bodies strings.Builder
	for _, r := range results {
		bodies.WriteString(r.Content)
		bodies.WriteString("\n")
	}
	unsourced := references.Unsourced(bodies.String(), urls)
	for _, u := range unsourced {
		logger.Warn("citation not among search results", zap.String("url", u))
	}

	var doc []byte
	if c.Renderer != nil {
		var err error
		if doc, err = c.Renderer.Render(rs.Document, urls); err != nil {
			return nil, fmt.Errorf("rendering document: %w", err)
		}
	}

	var err error
	if rs.State, err = Transition(rs.State, EventAssembled); err != nil {
		return nil, err
	}

	return &Outcome{
		RunID:               rs.ID,
		Target:              rs.Target,
		Mode:                mode,
		StartedAt:           rs.StartedAt,
		FinishedAt:          time.Now().UTC(),
		Results:             results,
		URLs:                urls,
		Unsourced:           unsourced,
		Markdown:            rs.Document,
		Document:            doc,
		ResearchTransitions: rs.ResearchTransitions,
	}, nil
}

func (c *Controller) emit(stage types.Stage, payload any) {
	if c.Sink != nil {
		c.Sink(types.ProgressEvent{Stage: stage, Payload: payload})
	}
}

func (c *Controller) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
