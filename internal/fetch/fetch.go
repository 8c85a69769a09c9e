// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads a ground-truth document from a URL into a
// local directory so it can be handed to text extraction.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/account-research/internal/httputil"
)

// UserAgent is sent with every download request.
var UserAgent = "account-research/0.1"

// MaxBytes caps the size of a downloaded document.
var MaxBytes int64 = 64 << 20

// ErrTooLarge reports a response body over MaxBytes.
var ErrTooLarge = errors.New("document exceeds size limit")

// extByType maps accepted content types to file extensions used when the
// URL path carries none.
var extByType = map[string]string{
	"application/pdf":          ".pdf",
	"text/html":                ".html",
	"application/xhtml+xml":    ".html",
	"text/plain":               ".txt",
	"text/markdown":            ".md",
	"application/octet-stream": "",
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Download fetches rawURL into dir and returns the path of the written
// file. The file is written to a temporary name and renamed on success,
// so a failed download never leaves a partial document behind.
func Download(ctx context.Context, client *http.Client, rawURL, dir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid document URL %q", rawURL)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/pdf, text/html;q=0.9, text/plain;q=0.8, */*;q=0.5")

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	destPath := filepath.Join(dir, FileName(u, resp.Header))

	tmpFile, err := os.CreateTemp(dir, ".fetch-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, io.LimitReader(resp.Body, MaxBytes+1))
	closeErr := tmpFile.Close()
	switch {
	case copyErr != nil:
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing download: %w", copyErr)
	case closeErr != nil:
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	case n > MaxBytes:
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, rawURL, MaxBytes)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return destPath, nil
}

// FileName picks a safe local file name for a download. A
// Content-Disposition filename wins over the URL path; when neither has an
// extension one is derived from Content-Type.
func FileName(u *url.URL, h http.Header) string {
	name := ""
	if _, params, err := mime.ParseMediaType(h.Get("Content-Disposition")); err == nil {
		name = path.Base(params["filename"])
	}
	if name == "" || name == "." || name == "/" {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		name = u.Hostname()
	}

	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "document"
	}

	if filepath.Ext(name) == "" {
		mediaType, _, _ := mime.ParseMediaType(h.Get("Content-Type"))
		name += extByType[mediaType]
	}
	return name
}
