package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow(id string) RawRecord {
	return RawRecord{
		FieldTicketID:     id,
		FieldCustomerID:   "C1",
		FieldSubject:      "Login issue",
		FieldDescription:  "Cannot log in after password reset",
		FieldPriority:     "High",
		FieldStatus:       "Open",
		FieldCreatedDate:  "2024-01-10",
		FieldResolvedDate: "",
		FieldAssignedTo:   "alice",
	}
}

func withField(r RawRecord, field, value string) RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	out[field] = value
	return out
}

func TestValidateRows_FiveRowExample(t *testing.T) {
	rows := []RawRecord{
		validRow("T1"),
		validRow("T2"),
		validRow("T3"),
		validRow("T4"),
		withField(validRow("T5"), FieldCreatedDate, "2024-13-01"),
	}

	tickets, invalid := ValidateRows(rows)

	assert.Len(t, tickets, 4)
	require.Len(t, invalid, 1)
	assert.Equal(t, 6, invalid[0].Row)
	assert.Equal(t, "T5", invalid[0].TicketID)
	assert.Equal(t, []string{"invalid created_date: 2024-13-01"}, invalid[0].Errors)
}

func TestValidateRows_MissingFields(t *testing.T) {
	for _, field := range RequiredFields {
		t.Run(field, func(t *testing.T) {
			_, invalid := ValidateRows([]RawRecord{withField(validRow("T1"), field, "  ")})

			require.Len(t, invalid, 1)
			assert.Contains(t, invalid[0].Errors, "missing field: "+field)
			assert.Equal(t, "missing field: "+field, invalid[0].Errors[0])
		})
	}
}

func TestValidateRows_ResolvedDateOptional(t *testing.T) {
	row := validRow("T1")
	delete(row, FieldResolvedDate)

	tickets, invalid := ValidateRows([]RawRecord{row})

	require.Len(t, tickets, 1)
	assert.Empty(t, invalid)
	assert.Nil(t, tickets[0].ResolvedDate)
}

func TestValidateRows_InvalidEnumsCoOccur(t *testing.T) {
	row := withField(withField(validRow("T1"), FieldPriority, "Urgent"), FieldStatus, "Pending")

	_, invalid := ValidateRows([]RawRecord{row})

	require.Len(t, invalid, 1)
	assert.Equal(t, []string{"invalid priority: Urgent", "invalid status: Pending"}, invalid[0].Errors)
}

func TestValidateRows_ErrorOrder(t *testing.T) {
	row := RawRecord{
		FieldTicketID:     "T9",
		FieldPriority:     "Huge",
		FieldStatus:       "Open",
		FieldCreatedDate:  "10/01/2024",
		FieldResolvedDate: "soon",
	}

	_, invalid := ValidateRows([]RawRecord{row})

	require.Len(t, invalid, 1)
	assert.Equal(t, []string{
		"missing field: customer_id",
		"missing field: subject",
		"missing field: description",
		"missing field: assigned_to",
		"invalid priority: Huge",
		"invalid created_date: 10/01/2024",
		"invalid resolved_date: soon",
	}, invalid[0].Errors)
}

func TestValidateRows_EmptyDateIsOnlyMissing(t *testing.T) {
	_, invalid := ValidateRows([]RawRecord{withField(validRow("T1"), FieldCreatedDate, "")})

	require.Len(t, invalid, 1)
	assert.Equal(t, []string{"missing field: created_date"}, invalid[0].Errors)
}

func TestValidateRows_DateFormats(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2024-1-05", false},
		{"2024-01-05T10:00:00Z", false},
		{"05-01-2024", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			tickets, invalid := ValidateRows([]RawRecord{withField(validRow("T1"), FieldCreatedDate, tt.value)})
			if tt.valid {
				assert.Len(t, tickets, 1)
				assert.Empty(t, invalid)
				return
			}
			require.Len(t, invalid, 1)
			assert.Equal(t, []string{"invalid created_date: " + tt.value}, invalid[0].Errors)
		})
	}
}

func TestValidateRows_TrimsAndParses(t *testing.T) {
	row := RawRecord{
		FieldTicketID:     " T1 ",
		FieldCustomerID:   "C1\t",
		FieldSubject:      " VPN down ",
		FieldDescription:  " VPN drops every ten minutes ",
		FieldPriority:     " Critical",
		FieldStatus:       "In Progress ",
		FieldCreatedDate:  " 2024-03-01",
		FieldResolvedDate: "2024-03-04 ",
		FieldAssignedTo:   " bob ",
	}

	tickets, invalid := ValidateRows([]RawRecord{row})

	require.Empty(t, invalid)
	require.Len(t, tickets, 1)
	got := tickets[0]
	assert.Equal(t, "T1", got.ID)
	assert.Equal(t, "VPN down", got.Subject)
	assert.Equal(t, PriorityCritical, got.Priority)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got.CreatedDate)
	require.NotNil(t, got.ResolvedDate)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), *got.ResolvedDate)
	assert.Equal(t, "bob", got.AssignedTo)
}

func TestValidateRows_EveryRowClassifiedOnce(t *testing.T) {
	rows := []RawRecord{
		validRow("T1"),
		{},
		withField(validRow("T3"), FieldStatus, "Done"),
		validRow("T1"),
		withField(validRow("T5"), FieldResolvedDate, "2024-02-30"),
		withField(validRow("T6"), FieldAssignedTo, ""),
		validRow("T7"),
	}

	tickets, invalid := ValidateRows(rows)

	assert.Equal(t, len(rows), len(tickets)+len(invalid))
	assert.Len(t, tickets, 3)
	rowNums := make([]int, 0, len(invalid))
	for _, e := range invalid {
		rowNums = append(rowNums, e.Row)
	}
	assert.Equal(t, []int{3, 4, 6, 7}, rowNums)
}

func TestValidateRows_Empty(t *testing.T) {
	tickets, invalid := ValidateRows(nil)

	assert.Empty(t, tickets)
	assert.NotNil(t, invalid)
	assert.Empty(t, invalid)
}

func TestValidationError_OmitsEmptyTicketID(t *testing.T) {
	_, invalid := ValidateRows([]RawRecord{withField(validRow(""), FieldPriority, "High")})
	require.Len(t, invalid, 1)

	data, err := json.Marshal(invalid[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":2,"errors":["missing field: ticket_id"]}`, string(data))
}
