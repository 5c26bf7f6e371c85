// Package domain models support tickets and the metrics derived from them.
//
// # Input
//
// Tickets arrive as CSV rows keyed by header name ([RawRecord]). Required
// columns are ticket_id, customer_id, subject, description, priority, status,
// created_date and assigned_to; resolved_date is optional. Dates must be
// YYYY-MM-DD. [ValidateRows] turns every row into either a [Ticket] or a
// [ValidationError]; row numbers start at 2 so they match file line numbers.
//
// Enumerations:
//
//	priority: Low | Medium | High | Critical   (rank 1..4)
//	status:   Open | In Progress | Resolved | Closed
//
// A ticket is "active" while Open or In Progress and "done" once Resolved or
// Closed.
//
// # Aggregation
//
// Every aggregator is a pure function over []Ticket and returns an empty or
// zero result for an empty slice. Functions that depend on the current date
// take it as an argument; [Analyzer] reads it from an injected clock so runs
// are reproducible in tests.
//
// Text heuristics (subject words, n-grams) lowercase the subject, split on
// runs of letters, digits and underscore, and drop a small stop-word list:
//
//	the and is in to a of for on with
//
// Rankings order by count descending and break ties by first occurrence.
//
// Delay reasons, evaluated in this order:
//
//	Missing assignee    assigned_to is empty
//	Short description   description shorter than 10 characters
//	Weekend created     created on Saturday or Sunday
//	Backlog             not done and older than the backlog threshold
//
// # Output
//
// [Assemble] composes aggregator output, row errors and an optional
// [WeatherSnapshot] into a [MetricsBundle]; [RenderExecutive] formats it as
// the plain-text executive summary.
package domain
