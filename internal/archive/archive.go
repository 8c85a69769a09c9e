// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists finished report runs in SQLite: the run record,
// each section's content and sources, and the rendered document. Section
// text is indexed with FTS5 for search across past reports.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/account-research/internal/pipeline"
	"github.com/pdiddy/account-research/pkg/types"
)

const dbFile = "runs.db"

// ErrNotFound reports that no archived run matches an id.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous reports that an id prefix matches more than one run.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// Store manages the run archive database.
type Store struct {
	db   *sql.DB
	path string
}

// Run is an archived report run.
type Run struct {
	ID         string             `json:"id" yaml:"id"`
	Target     string             `json:"target" yaml:"target"`
	Mode       types.ScheduleMode `json:"mode" yaml:"mode"`
	StartedAt  time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time          `json:"finished_at" yaml:"finished_at"`

	Sections  []types.SectionResult `json:"sections" yaml:"sections"`
	URLs      []string              `json:"urls" yaml:"urls"`
	Unsourced []string              `json:"unsourced,omitempty" yaml:"unsourced,omitempty"`

	Markdown      string `json:"markdown" yaml:"markdown"`
	DocumentBytes int    `json:"document_bytes" yaml:"document_bytes"`
}

// Summary is one row of List.
type Summary struct {
	ID            string             `json:"id" yaml:"id"`
	Target        string             `json:"target" yaml:"target"`
	Mode          types.ScheduleMode `json:"mode" yaml:"mode"`
	StartedAt     time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time          `json:"finished_at" yaml:"finished_at"`
	Sections      int                `json:"sections" yaml:"sections"`
	URLs          int                `json:"urls" yaml:"urls"`
	DocumentBytes int                `json:"document_bytes" yaml:"document_bytes"`
}

// Open opens or creates the archive database at dir/runs.db and creates
// the schema if it does not exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			urls TEXT,
			unsourced TEXT,
			markdown TEXT,
			document BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			section_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			urls TEXT,
			search_failed INTEGER NOT NULL DEFAULT 0,
			generation_failed INTEGER NOT NULL DEFAULT 0,
			audited INTEGER NOT NULL DEFAULT 0,
			UNIQUE(run_id, section_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_run_id ON sections(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='sections_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE sections_fts USING fts5(title, content, content=sections, content_rowid=rowid)`,
			`CREATE TRIGGER sections_ai AFTER INSERT ON sections BEGIN
				INSERT INTO sections_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
			`CREATE TRIGGER sections_ad AFTER DELETE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
			END`,
			`CREATE TRIGGER sections_au AFTER UPDATE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, title, content) VALUES('delete', old.rowid, old.title, old.content);
				INSERT INTO sections_fts(rowid, title, content) VALUES (new.rowid, new.title, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Save stores a finished run. Saving a run id that already exists
// replaces the earlier record.
func (s *Store) Save(ctx context.Context, out *pipeline.Outcome) error {
	if out == nil || out.RunID == "" {
		return errors.New("saving run: missing run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE run_id = ?`, out.RunID); err != nil {
		return fmt.Errorf("deleting old sections: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, target, mode, started_at, finished_at, urls, unsourced, markdown, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			target=excluded.target, mode=excluded.mode, started_at=excluded.started_at,
			finished_at=excluded.finished_at, urls=excluded.urls, unsourced=excluded.unsourced,
			markdown=excluded.markdown, document=excluded.document`,
		out.RunID, out.Target, string(out.Mode),
		formatTime(out.StartedAt), formatTime(out.FinishedAt),
		marshalList(out.URLs), marshalList(out.Unsourced),
		out.Markdown, out.Document,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sections (run_id, position, section_id, title, content, urls, search_failed, generation_failed, audited)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range out.Results {
		_, err := stmt.ExecContext(ctx,
			out.RunID, i, string(r.Section), r.Title, r.Content, marshalList(r.URLs),
			r.SearchFailed, r.GenerationFailed, r.Audited,
		)
		if err != nil {
			return fmt.Errorf("inserting section %s: %w", r.Section, err)
		}
	}

	return tx.Commit()
}

// Delete removes a run and its sections.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// resolveID expands an exact id or a unique prefix into a full run id.
func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, len(id), id, id)
	if err != nil {
		return "", fmt.Errorf("looking up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var found string
		if err := rows.Scan(&found); err != nil {
			return "", fmt.Errorf("scanning row: %w", err)
		}
		ids = append(ids, found)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(ids) == 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	case ids[0] == id || len(ids) == 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func marshalList(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func unmarshalList(s sql.NullString) []string {
	var v []string
	if s.Valid && s.String != "" {
		json.Unmarshal([]byte(s.String), &v)
	}
	if len(v) == 0 {
		return nil
	}
	return v
}
