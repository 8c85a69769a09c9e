// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/account-research/internal/pipeline"
	"github.com/pdiddy/account-research/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testOutcome(id, target string, started time.Time) *pipeline.Outcome {
	return &pipeline.Outcome{
		RunID:      id,
		Target:     target,
		Mode:       types.ModeSequential,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Results: []types.SectionResult{
			{
				Section: "financials",
				Title:   "Financial Health",
				Content: "- Revenue grew on cloud demand [ref](https://acme.com/ir)",
				URLs:    []string{"https://acme.com/ir"},
			},
			{
				Section:      "tech_stack",
				Title:        "Technology Stack",
				Content:      "- Runs a hybrid Kubernetes estate",
				SearchFailed: true,
				Audited:      true,
			},
		},
		URLs:      []string{"https://acme.com/ir"},
		Unsourced: []string{"https://elsewhere.example"},
		Markdown:  "# STRATEGIC ANALYSIS: " + target,
		Document:  []byte("PK\x03\x04docx"),
	}
}

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// --- tests ---

func TestOpenIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		s, err := Open(dir)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	out := testOutcome("11111111-aaaa", "Acme Corp", base)

	if err := s.Save(ctx, out); err != nil {
		t.Fatal(err)
	}

	run, err := s.Get(ctx, out.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Target != "Acme Corp" || run.Mode != types.ModeSequential {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(out.StartedAt) || !run.FinishedAt.Equal(out.FinishedAt) {
		t.Errorf("times = %v..%v, want %v..%v", run.StartedAt, run.FinishedAt, out.StartedAt, out.FinishedAt)
	}
	if diff := cmp.Diff(out.Results, run.Sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(out.URLs, run.URLs); diff != "" {
		t.Errorf("urls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(out.Unsourced, run.Unsourced); diff != "" {
		t.Errorf("unsourced mismatch (-want +got):\n%s", diff)
	}
	if run.Markdown != out.Markdown {
		t.Errorf("markdown = %q", run.Markdown)
	}
	if run.DocumentBytes != len(out.Document) {
		t.Errorf("document bytes = %d, want %d", run.DocumentBytes, len(out.Document))
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	out := testOutcome("run-1", "Acme Corp", base)
	if err := s.Save(ctx, out); err != nil {
		t.Fatal(err)
	}

	out.Results = out.Results[:1]
	out.Results[0].Content = "- Replaced content"
	if err := s.Save(ctx, out); err != nil {
		t.Fatal(err)
	}

	run, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Sections) != 1 || run.Sections[0].Content != "- Replaced content" {
		t.Errorf("sections = %+v", run.Sections)
	}

	hits, err := s.Search(ctx, "kubernetes", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale FTS rows remain: %+v", hits)
	}
}

func TestSaveRequiresID(t *testing.T) {
	s := testStore(t)
	if err := s.Save(context.Background(), &pipeline.Outcome{}); err == nil {
		t.Fatal("expected error for missing run id")
	}
	if err := s.Save(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil outcome")
	}
}

func TestGetByPrefix(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, id := range []string{"abc123-one", "abc456-two"} {
		if err := s.Save(ctx, testOutcome(id, "Acme", base)); err != nil {
			t.Fatal(err)
		}
	}

	run, err := s.Get(ctx, "abc1")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != "abc123-one" {
		t.Errorf("ID = %q", run.ID)
	}

	if _, err := s.Get(ctx, "abc"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("err = %v, want ErrAmbiguous", err)
	}
	if _, err := s.Get(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i, target := range []string{"Oldest", "Middle", "Newest"} {
		out := testOutcome(target+"-id", target, base.Add(time.Duration(i)*time.Hour))
		if err := s.Save(ctx, out); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	var targets []string
	for _, sum := range list {
		targets = append(targets, sum.Target)
	}
	if diff := cmp.Diff([]string{"Newest", "Middle", "Oldest"}, targets); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if list[0].Sections != 2 || list[0].URLs != 1 || list[0].DocumentBytes != len("PK\x03\x04docx") {
		t.Errorf("summary = %+v", list[0])
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("len = %d, want 2", len(limited))
	}
}

func TestDocument(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	out := testOutcome("doc-run", "Acme Corp", base)
	if err := s.Save(ctx, out); err != nil {
		t.Fatal(err)
	}

	doc, target, err := s.Document(ctx, "doc-run")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(doc, out.Document) || target != "Acme Corp" {
		t.Errorf("document = %q, target = %q", doc, target)
	}

	empty := testOutcome("no-doc", "Acme Corp", base)
	empty.Document = nil
	if err := s.Save(ctx, empty); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Document(ctx, "no-doc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, testOutcome("gone", "Acme", base)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	hits, err := s.Search(ctx, "revenue", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("sections not cascaded: %+v", hits)
	}
}

func TestSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, testOutcome("r1", "Acme Corp", base)); err != nil {
		t.Fatal(err)
	}
	other := testOutcome("r2", "Globex", base.Add(time.Hour))
	other.Results[0].Content = "- Margins compressed after the merger"
	if err := s.Save(ctx, other); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search(ctx, "revenue", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	h := hits[0]
	if h.RunID != "r1" || h.Target != "Acme Corp" || h.SectionID != "financials" {
		t.Errorf("hit = %+v", h)
	}
	if !strings.Contains(h.Snippet, "**Revenue**") {
		t.Errorf("snippet = %q, want highlighted term", h.Snippet)
	}

	hits, err = s.Search(ctx, "kubernetes", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("kubernetes hits = %d, want 2", len(hits))
	}

	if _, err := s.Search(ctx, "", 0); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, testOutcome("r1", "Acme Corp", base)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, testOutcome("r2", "Globex", base.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	var jsonBuf bytes.Buffer
	if err := s.ExportJSON(ctx, &jsonBuf); err != nil {
		t.Fatal(err)
	}
	var fromJSON []Run
	if err := json.Unmarshal(jsonBuf.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if len(fromJSON) != 2 || fromJSON[0].ID != "r2" || len(fromJSON[1].Sections) != 2 {
		t.Errorf("json export = %+v", fromJSON)
	}

	var yamlBuf bytes.Buffer
	if err := s.ExportYAML(ctx, &yamlBuf); err != nil {
		t.Fatal(err)
	}
	var fromYAML []Run
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if len(fromYAML) != 2 || fromYAML[1].Target != "Acme Corp" {
		t.Errorf("yaml export = %+v", fromYAML)
	}
	if !strings.Contains(yamlBuf.String(), "section: financials") {
		t.Errorf("yaml export missing section ids:\n%s", yamlBuf.String())
	}
}

func TestExportEmpty(t *testing.T) {
	s := testStore(t)
	var buf bytes.Buffer
	if err := s.ExportJSON(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty export = %q", buf.String())
	}
}
