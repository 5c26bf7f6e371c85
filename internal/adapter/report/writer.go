// Package report writes run output to local files.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/natefinch/atomic"
)

// Writer persists the summary JSON and executive text next to each other
// under a shared path prefix.
// It implements pipeline.Sink.
type Writer struct {
	prefix string
}

// NewWriter creates a Writer for prefix, e.g. "out/ticket_analysis_report".
func NewWriter(prefix string) *Writer {
	return &Writer{prefix: prefix}
}

func (w *Writer) Name() string { return "report" }

// SummaryPath is the JSON bundle location.
func (w *Writer) SummaryPath() string { return w.prefix + "_summary.json" }

// ExecutivePath is the plain-text summary location.
func (w *Writer) ExecutivePath() string { return w.prefix + "_executive.txt" }

// Deliver writes both files. Each write replaces its file atomically so a
// reader never sees a partial report.
func (w *Writer) Deliver(ctx context.Context, r domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(w.prefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(r.Bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := atomic.WriteFile(w.SummaryPath(), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := atomic.WriteFile(w.ExecutivePath(), strings.NewReader(r.Executive)); err != nil {
		return fmt.Errorf("write executive summary: %w", err)
	}
	return nil
}

// Remove deletes previously written reports. Missing files are not an error.
func (w *Writer) Remove() error {
	for _, p := range []string{w.SummaryPath(), w.ExecutivePath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
