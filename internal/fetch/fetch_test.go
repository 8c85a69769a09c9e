// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 annual report"))
	}))
	defer ts.Close()

	dir := filepath.Join(t.TempDir(), "docs")
	path, err := Download(context.Background(), ts.Client(), ts.URL+"/reports/annual-2024.pdf", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "annual-2024.pdf"), path)
	assert.Equal(t, UserAgent, gotUA)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 annual report", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestDownloadHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	dir := t.TempDir()
	_, err := Download(context.Background(), ts.Client(), ts.URL+"/missing.pdf", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDownloadTooLarge(t *testing.T) {
	orig := MaxBytes
	MaxBytes = 8
	t.Cleanup(func() { MaxBytes = orig })

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789abcdef"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	_, err := Download(context.Background(), ts.Client(), ts.URL+"/big.txt", dir)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDownloadInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com/a.pdf", "not a url", "https://"} {
		_, err := Download(context.Background(), nil, raw, t.TempDir())
		assert.Error(t, err, raw)
	}
}

func TestDownloadCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Download(ctx, ts.Client(), ts.URL+"/a.pdf", t.TempDir())
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header http.Header
		want   string
	}{
		{"path base", "https://acme.com/ir/10-K.pdf", http.Header{}, "10-K.pdf"},
		{"content disposition wins", "https://acme.com/download?id=7",
			http.Header{"Content-Disposition": {`attachment; filename="Acme Annual.pdf"`}}, "Acme_Annual.pdf"},
		{"extension from content type", "https://acme.com/about",
			http.Header{"Content-Type": {"text/html; charset=utf-8"}}, "about.html"},
		{"host when path empty", "https://acme.com/",
			http.Header{"Content-Type": {"text/plain"}}, "acme.com"},
		{"unsafe characters", "https://acme.com/a%20b%3Bc.md", http.Header{}, "a_b_c.md"},
		{"traversal in disposition", "https://acme.com/x",
			http.Header{"Content-Disposition": {`attachment; filename="../../etc/passwd"`}}, "passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FileName(u, tt.header))
		})
	}
}
