// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts ground-truth text from an uploaded document.
// PDFs go through a pluggable Converter backend; HTML is reduced to its
// visible text; plain text and Markdown are read as-is.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrExtraction reports that a present document yielded no usable text.
var ErrExtraction = errors.New("text extraction failed")

// Converter transforms a PDF file into text. Different backends
// (markitdown, pdftotext) implement this interface.
type Converter interface {
	// Name identifies the backend in logs.
	Name() string

	// Convert reads a PDF at pdfPath and returns its text.
	Convert(ctx context.Context, pdfPath string) (string, error)
}

// Extractor dispatches a document to the right extraction method by extension.
type Extractor struct {
	// PDF handles .pdf files. Nil makes PDFs an extraction error.
	PDF    Converter
	Logger *zap.Logger
}

// ExtractText returns the text of the document at path. An empty path
// means no document and returns "". A missing file, an unsupported
// extension, or a document that yields no text is an error; the latter
// two wrap ErrExtraction.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	var text string
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		if e.PDF == nil {
			return "", fmt.Errorf("%w: no PDF converter available for %s", ErrExtraction, path)
		}
		text, err = e.PDF.Convert(ctx, path)
	case ".txt", ".md", ".markdown":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	case ".html", ".htm":
		text, err = htmlFile(path)
	default:
		return "", fmt.Errorf("%w: unsupported document type %q", ErrExtraction, ext)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, filepath.Base(path), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s contains no text", ErrExtraction, filepath.Base(path))
	}

	if e.Logger != nil {
		e.Logger.Info("document extracted",
			zap.String("path", path),
			zap.String("type", ext),
			zap.Int("chars", len(text)))
	}
	return text, nil
}

func htmlFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HTMLText(f)
}
