// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pdiddy/account-research/pkg/types"
)

const defaultLimit = 20

// Hit is one full-text search match.
type Hit struct {
	RunID     string          `json:"run_id" yaml:"run_id"`
	Target    string          `json:"target" yaml:"target"`
	SectionID types.SectionID `json:"section_id" yaml:"section_id"`
	Title     string          `json:"title" yaml:"title"`
	Snippet   string          `json:"snippet" yaml:"snippet"`
}

// List returns archived runs, newest first. A limit of zero or less
// uses the default (20).
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.target, r.mode, r.started_at, r.finished_at, r.urls,
			COALESCE(length(r.document), 0),
			(SELECT count(*) FROM sections s WHERE s.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum      Summary
			mode     string
			started  string
			finished string
			urlsJSON sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Target, &mode, &started, &finished, &urlsJSON,
			&sum.DocumentBytes, &sum.Sections); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sum.Mode = types.ScheduleMode(mode)
		sum.StartedAt = parseTime(started)
		sum.FinishedAt = parseTime(finished)
		sum.URLs = len(unmarshalList(urlsJSON))
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get returns the archived run with the given id or unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		run       Run
		mode      string
		started   string
		finished  string
		urlsJSON  sql.NullString
		unsrcJSON sql.NullString
		markdown  sql.NullString
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, target, mode, started_at, finished_at, urls, unsourced, markdown,
			COALESCE(length(document), 0)
		FROM runs WHERE id = ?`, full,
	).Scan(&run.ID, &run.Target, &mode, &started, &finished, &urlsJSON, &unsrcJSON, &markdown,
		&run.DocumentBytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("looking up run: %w", err)
	}
	run.Mode = types.ScheduleMode(mode)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.URLs = unmarshalList(urlsJSON)
	run.Unsourced = unmarshalList(unsrcJSON)
	run.Markdown = markdown.String

	run.Sections, err = s.sections(ctx, full)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) sections(ctx context.Context, runID string) ([]types.SectionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT section_id, title, content, urls, search_failed, generation_failed, audited
		FROM sections WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	defer rows.Close()

	var out []types.SectionResult
	for rows.Next() {
		var (
			r        types.SectionResult
			id       string
			urlsJSON sql.NullString
		)
		if err := rows.Scan(&id, &r.Title, &r.Content, &urlsJSON,
			&r.SearchFailed, &r.GenerationFailed, &r.Audited); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Section = types.SectionID(id)
		r.URLs = unmarshalList(urlsJSON)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Document returns the rendered document bytes and the run's target.
func (s *Store) Document(ctx context.Context, id string) ([]byte, string, error) {
	full, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	var (
		doc    []byte
		target string
	)
	if err := s.db.QueryRowContext(ctx,
		`SELECT document, target FROM runs WHERE id = ?`, full,
	).Scan(&doc, &target); err != nil {
		return nil, "", fmt.Errorf("reading document: %w", err)
	}
	if len(doc) == 0 {
		return nil, "", fmt.Errorf("%w: run %s has no document", ErrNotFound, full)
	}
	return doc, target, nil
}

// Search runs an FTS5 query over section titles and content, ranked by
// relevance. A limit of zero or less uses the default (20).
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sec.run_id, r.target, sec.section_id, sec.title,
			snippet(sections_fts, 1, '**', '**', '...', 16)
		FROM sections_fts
		JOIN sections sec ON sec.rowid = sections_fts.rowid
		JOIN runs r ON r.id = sec.run_id
		WHERE sections_fts MATCH ?
		ORDER BY sections_fts.rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h  Hit
			id string
		)
		if err := rows.Scan(&h.RunID, &h.Target, &id, &h.Title, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		h.SectionID = types.SectionID(id)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
