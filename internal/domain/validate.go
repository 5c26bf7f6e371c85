package domain

import (
	"fmt"
	"strings"
	"time"
)

// firstDataRow is the file line number of the first record after the header.
const firstDataRow = 2

// ValidateRows classifies every row as either a Ticket or a ValidationError,
// preserving input order in both outputs. Row-level problems never fail the call.
func ValidateRows(rows []RawRecord) ([]Ticket, []ValidationError) {
	tickets := make([]Ticket, 0, len(rows))
	var invalid []ValidationError

	for i, rec := range rows {
		t, errs := validateRecord(rec)
		if len(errs) > 0 {
			invalid = append(invalid, ValidationError{
				Row:      i + firstDataRow,
				TicketID: strings.TrimSpace(rec[FieldTicketID]),
				Errors:   errs,
			})
			continue
		}
		tickets = append(tickets, t)
	}
	if invalid == nil {
		invalid = []ValidationError{}
	}
	return tickets, invalid
}

// validateRecord returns the parsed ticket and the ordered list of problems.
// The ticket is only meaningful when the list is empty.
func validateRecord(rec RawRecord) (Ticket, []string) {
	get := func(field string) string { return strings.TrimSpace(rec[field]) }

	var errs []string
	for _, f := range RequiredFields {
		if get(f) == "" {
			errs = append(errs, "missing field: "+f)
		}
	}

	priority := Priority(get(FieldPriority))
	if !priority.Valid() {
		errs = append(errs, fmt.Sprintf("invalid priority: %s", priority))
	}
	status := Status(get(FieldStatus))
	if !status.Valid() {
		errs = append(errs, fmt.Sprintf("invalid status: %s", status))
	}

	created, createdOK := parseDate(get(FieldCreatedDate))
	if raw := get(FieldCreatedDate); raw != "" && !createdOK {
		errs = append(errs, "invalid created_date: "+raw)
	}
	resolved, resolvedOK := parseDate(get(FieldResolvedDate))
	if raw := get(FieldResolvedDate); raw != "" && !resolvedOK {
		errs = append(errs, "invalid resolved_date: "+raw)
	}

	if len(errs) > 0 {
		return Ticket{}, errs
	}

	t := Ticket{
		ID:          get(FieldTicketID),
		CustomerID:  get(FieldCustomerID),
		Subject:     get(FieldSubject),
		Description: get(FieldDescription),
		Priority:    priority,
		Status:      status,
		CreatedDate: created,
		AssignedTo:  get(FieldAssignedTo),
	}
	if resolvedOK {
		t.ResolvedDate = &resolved
	}
	return t, nil
}

// parseDate accepts only YYYY-MM-DD. Empty input is not an error but yields false.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
