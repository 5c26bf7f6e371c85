// Command validate checks a support-ticket CSV without computing metrics. It
// reports header coverage, per-row schema errors, duplicate ticket IDs and
// date ordering.
//
// Exit status is 0 when every phase passes, 1 when any phase fails and 2 when
// the file cannot be read.
//
// Usage:
//
//	go run ./cmd/validate -csv tickets.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/ticket-metrics/internal/adapter/csvfile"
	"github.com/couchcryptid/ticket-metrics/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	path := flag.String("csv", "tickets.csv", "path to tickets CSV")
	flag.Parse()

	os.Exit(run(context.Background(), *path, os.Stdout, os.Stderr))
}

func run(ctx context.Context, path string, stdout, stderr io.Writer) int {
	rows, err := csvfile.NewSource(path).LoadRows(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "=== Ticket CSV Validation: %s ===\n\n", path)

	tickets, invalid := domain.ValidateRows(rows)
	phases := []*phase{
		validateHeader(rows),
		validateSchema(invalid),
		validateUniqueIDs(tickets),
		validateDateOrder(tickets),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(stdout, "  %-36s %s\n", p.name, status)
	}

	fmt.Fprintf(stdout, "\nRows: %d total, %d valid, %d invalid\n", len(rows), len(tickets), len(invalid))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(stdout, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(stdout, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(stdout, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(stdout, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Header ──

func validateHeader(rows []domain.RawRecord) *phase {
	p := &phase{name: "Phase 1: Header columns"}
	if len(rows) == 0 {
		return p
	}
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	for _, f := range domain.RequiredFields {
		if !seen[f] {
			p.errorf("missing column %q", f)
		}
	}
	return p
}

// ── Phase 2: Row schema ──

func validateSchema(invalid []domain.ValidationError) *phase {
	p := &phase{name: "Phase 2: Row schema"}
	for _, ve := range invalid {
		id := ve.TicketID
		if id == "" {
			id = "-"
		}
		p.errorf("row %d (%s): %s", ve.Row, id, strings.Join(ve.Errors, "; "))
	}
	return p
}

// ── Phase 3: Unique IDs ──

func validateUniqueIDs(tickets []domain.Ticket) *phase {
	p := &phase{name: "Phase 3: Unique ticket IDs"}
	counts := map[string]int{}
	var order []string
	for _, t := range tickets {
		if counts[t.ID] == 0 {
			order = append(order, t.ID)
		}
		counts[t.ID]++
	}
	for _, id := range order {
		if counts[id] > 1 {
			p.errorf("ticket %s appears %d times", id, counts[id])
		}
	}
	return p
}

// ── Phase 4: Date order ──

func validateDateOrder(tickets []domain.Ticket) *phase {
	p := &phase{name: "Phase 4: Resolved after created"}
	for _, t := range tickets {
		if t.ResolvedDate != nil && t.ResolvedDate.Before(t.CreatedDate) {
			p.errorf("ticket %s resolved %s before created %s", t.ID,
				t.ResolvedDate.Format(domain.DateLayout), t.CreatedDate.Format(domain.DateLayout))
		}
	}
	return p
}
