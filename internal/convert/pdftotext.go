// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/container"
)

const binPdftotext = "pdftotext"

// runCommand executes a command and returns its stdout. Package-level var
// for test substitution.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// lookPath is exec.LookPath, replaceable in tests.
var lookPath = exec.LookPath

// PdftotextConverter converts PDFs with the poppler pdftotext binary.
type PdftotextConverter struct {
	// Bin is the binary path; empty uses "pdftotext" from PATH.
	Bin string
}

// Name returns the backend identifier.
func (p *PdftotextConverter) Name() string { return binPdftotext }

// Convert runs pdftotext in layout mode and returns stdout.
func (p *PdftotextConverter) Convert(ctx context.Context, pdfPath string) (string, error) {
	bin := p.Bin
	if bin == "" {
		bin = binPdftotext
	}
	out, err := runCommand(ctx, bin, "-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return "", fmt.Errorf("converting %s with pdftotext: %w", pdfPath, err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return "", fmt.Errorf("pdftotext produced empty output for %s", pdfPath)
	}
	return string(out), nil
}

// NewPDFConverter picks a PDF backend: markitdown when a container runtime
// with the image is available, otherwise pdftotext from PATH. It returns
// nil without error when neither exists; PDFs then fail at extraction.
func NewPDFConverter(ctx context.Context, logger *zap.Logger) Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rt, err := container.DetectRuntime(ctx); err == nil {
		m, err := NewMarkitdownConverter(ctx, rt)
		if err == nil {
			logger.Debug("pdf converter selected", zap.String("backend", m.Name()), zap.String("runtime", rt.Name()))
			return m
		}
		logger.Debug("markitdown unavailable", zap.Error(err))
	}
	if path, err := lookPath(binPdftotext); err == nil {
		logger.Debug("pdf converter selected", zap.String("backend", binPdftotext))
		return &PdftotextConverter{Bin: path}
	}
	logger.Warn("no PDF converter available; install docker/podman with markitdown or pdftotext")
	return nil
}
