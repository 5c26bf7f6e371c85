// Command gensample writes a deterministic synthetic ticket CSV for demos and
// tests. The same seed always yields the same file.
//
// Usage:
//
//	go run ./cmd/gensample -out tickets_sample.csv -n 200 -invalid 5
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/natefinch/atomic"
)

var (
	agents    = []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	subjects  = []string{"Login failure", "Billing refund request", "Slow dashboard loading", "Export to CSV broken", "Password reset email", "API rate limit", "Webhook not firing", "Data sync error", "Invoice missing", "Two factor setup"}
	details   = []string{"after the latest update", "on the mobile app", "for the second time this week", "since the plan change", "for several team members"}
	customers = 40
)

// header is written in the column order of the sample export.
var header = []string{
	domain.FieldTicketID, domain.FieldCustomerID, domain.FieldSubject, domain.FieldDescription,
	domain.FieldPriority, domain.FieldStatus, domain.FieldCreatedDate, domain.FieldResolvedDate,
	domain.FieldAssignedTo,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "tickets_sample.csv", "output CSV path")
	n := flag.Int("n", 100, "number of rows")
	seed := flag.Uint64("seed", 42, "random seed")
	invalid := flag.Int("invalid", 3, "number of deliberately invalid rows")
	flag.Parse()

	if *n < 1 || *invalid < 0 || *invalid > *n {
		flag.Usage()
		return fmt.Errorf("need -n >= 1 and 0 <= -invalid <= -n")
	}

	// Fixed "today" for reproducible dates.
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC))

	data, err := generate(*n, *invalid, *seed, clock)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(*out, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %d rows (%d invalid) to %s", *n, *invalid, *out)
	return nil
}

// generate builds the CSV. Invalid rows are spread evenly through the file.
func generate(n, invalid int, seed uint64, clock clockwork.Clock) ([]byte, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	today := clock.Now().UTC()

	badRows := map[int]int{}
	if invalid > 0 {
		step := n / invalid
		for k := 0; k < invalid; k++ {
			badRows[k*step+step/2] = k
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		rec := ticketRow(rng, i, today)
		if kind, ok := badRows[i]; ok {
			corrupt(rec, kind)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func ticketRow(rng *rand.Rand, i int, today time.Time) []string {
	created := today.AddDate(0, 0, -rng.IntN(120))
	priority := domain.Priorities[rng.IntN(len(domain.Priorities))]
	status := domain.Statuses[rng.IntN(len(domain.Statuses))]
	subject := subjects[rng.IntN(len(subjects))]

	resolved := ""
	if status.Done() {
		days := 1 + rng.IntN(14)
		r := created.AddDate(0, 0, days)
		if r.After(today) {
			r = today
		}
		resolved = r.Format(domain.DateLayout)
	}

	return []string{
		fmt.Sprintf("T%04d", i+1),
		fmt.Sprintf("C%03d", 1+rng.IntN(customers)),
		subject,
		subject + " " + details[rng.IntN(len(details))],
		string(priority),
		string(status),
		created.Format(domain.DateLayout),
		resolved,
		agents[rng.IntN(len(agents))],
	}
}

// corrupt breaks one field of rec, cycling through the kinds of error the
// validator reports.
func corrupt(rec []string, kind int) {
	switch kind % 4 {
	case 0:
		rec[4] = "Urgent"
	case 1:
		rec[6] = "2024-13-01"
	case 2:
		rec[2] = ""
	case 3:
		rec[5] = "Pending"
	}
}
