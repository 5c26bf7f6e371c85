// Package csvfile reads ticket rows from a CSV file with a header line.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
)

// ErrInputNotFound is returned when the CSV file does not exist. It also
// matches fs.ErrNotExist.
var ErrInputNotFound = errors.New("input file not found")

// Source loads raw records from one CSV file.
// It implements pipeline.Source.
type Source struct {
	path string
}

// NewSource creates a Source for path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Name returns the file path, used to label reports.
func (s *Source) Name() string { return s.path }

// LoadRows reads every data row keyed by trimmed header name. Short rows
// leave trailing columns unset; extra cells are ignored. Stray quotes inside
// unquoted cells are kept as text. Rows of empty cells are returned so the
// validator can report them; only lines with no cells at all are skipped.
func (s *Source) LoadRows(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputNotFound, s.path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	return readRows(ctx, f)
}

func readRows(ctx context.Context, r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []domain.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	rows := []domain.RawRecord{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make(domain.RawRecord, len(header))
		for j, h := range header {
			if j < len(rec) {
				row[h] = rec[j]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
