package domain

import "time"

// DateLayout is the only accepted calendar date format in ticket CSVs.
const DateLayout = "2006-01-02"

// CSV column names.
const (
	FieldTicketID     = "ticket_id"
	FieldCustomerID   = "customer_id"
	FieldSubject      = "subject"
	FieldDescription  = "description"
	FieldPriority     = "priority"
	FieldStatus       = "status"
	FieldCreatedDate  = "created_date"
	FieldResolvedDate = "resolved_date"
	FieldAssignedTo   = "assigned_to"
)

// RequiredFields lists the columns every row must populate, in the order
// missing-field errors are reported.
var RequiredFields = []string{
	FieldTicketID,
	FieldCustomerID,
	FieldSubject,
	FieldDescription,
	FieldPriority,
	FieldStatus,
	FieldCreatedDate,
	FieldAssignedTo,
}

// Priority is the urgency assigned to a ticket.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority in ascending rank.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Rank orders priorities for escalation tracking. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool { return p.Rank() > 0 }

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Active is true for tickets an agent is still working.
func (s Status) Active() bool { return s == StatusOpen || s == StatusInProgress }

// Done is true once a ticket is Resolved or Closed.
func (s Status) Done() bool { return s == StatusResolved || s == StatusClosed }

// RawRecord is one CSV data row keyed by header name.
type RawRecord map[string]string

// Ticket is a validated support request. Dates are UTC midnight.
type Ticket struct {
	ID           string     `json:"ticket_id"`
	CustomerID   string     `json:"customer_id"`
	Subject      string     `json:"subject"`
	Description  string     `json:"description"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	CreatedDate  time.Time  `json:"created_date"`
	ResolvedDate *time.Time `json:"resolved_date,omitempty"`
	AssignedTo   string     `json:"assigned_to"`
}

// ValidationError collects every problem found on one input row.
type ValidationError struct {
	Row      int      `json:"row"`
	TicketID string   `json:"ticket_id,omitempty"`
	Errors   []string `json:"errors"`
}

// Report is what a run hands to its sinks: the bundle plus the rendered
// executive text.
type Report struct {
	Bundle    MetricsBundle
	Executive string
}
