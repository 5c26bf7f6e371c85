package domain

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Delay reasons, in the order they are evaluated.
const (
	ReasonMissingAssignee  = "Missing assignee"
	ReasonShortDescription = "Short description"
	ReasonWeekendCreated   = "Weekend created"
	ReasonBacklog          = "Backlog"
)

// shortDescriptionLen is the rune count below which a description is flagged.
const shortDescriptionLen = 10

// topNGrams is how many n-grams repeatIssues reports.
const topNGrams = 10

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "is": {}, "in": {}, "to": {},
	"a": {}, "of": {}, "for": {}, "on": {}, "with": {},
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Count is one entry of a count-ranked list.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// NGramCount is one entry of the n-gram ranking.
type NGramCount struct {
	Words []string `json:"words"`
	Count int      `json:"count"`
}

// AgentWorkload splits agents by how many active tickets they hold.
type AgentWorkload struct {
	ActivePerAgent   map[string]int `json:"active_per_agent"`
	IdleAgents       []string       `json:"idle_agents"`
	OverloadedAgents []string       `json:"overloaded_agents"`
}

// RepeatIssues holds recurring subjects and frequent subject phrases.
type RepeatIssues struct {
	RepeatedSubjects map[string]int `json:"repeated_subjects"`
	CommonNGrams     []NGramCount   `json:"common_ngrams"`
}

// Escalation records a ticket whose priority exceeded every earlier ticket
// from the same customer.
type Escalation struct {
	CustomerID string   `json:"customer_id"`
	TicketID   string   `json:"ticket_id"`
	Priority   Priority `json:"priority"`
}

// ResolutionDays returns whole days between creation and resolution.
// ok is false when either date is missing.
func ResolutionDays(t Ticket) (days int, ok bool) {
	if t.CreatedDate.IsZero() || t.ResolvedDate == nil {
		return 0, false
	}
	return daysBetween(t.CreatedDate, *t.ResolvedDate), true
}

// AvgResolutionByPriority averages resolution days per priority. Priorities
// without a resolved ticket are absent.
func AvgResolutionByPriority(tickets []Ticket) map[Priority]float64 {
	return averageBy(tickets, func(t Ticket) Priority { return t.Priority })
}

// AvgResolutionPerAgent averages resolution days per assignee.
func AvgResolutionPerAgent(tickets []Ticket) map[string]float64 {
	return averageBy(tickets, func(t Ticket) string { return t.AssignedTo })
}

func averageBy[K comparable](tickets []Ticket, key func(Ticket) K) map[K]float64 {
	sums := make(map[K]int)
	counts := make(map[K]int)
	for _, t := range tickets {
		d, ok := ResolutionDays(t)
		if !ok {
			continue
		}
		k := key(t)
		sums[k] += d
		counts[k]++
	}
	out := make(map[K]float64, len(sums))
	for k, s := range sums {
		out[k] = float64(s) / float64(counts[k])
	}
	return out
}

// OpenLongerThan returns tickets not yet Resolved/Closed that were created
// more than days before today.
func OpenLongerThan(tickets []Ticket, days int, today time.Time) []Ticket {
	out := []Ticket{}
	for _, t := range tickets {
		if isStale(t, days, today) {
			out = append(out, t)
		}
	}
	return out
}

func isStale(t Ticket, days int, today time.Time) bool {
	return !t.Status.Done() && !t.CreatedDate.IsZero() && daysBetween(t.CreatedDate, today) > days
}

// OpenTickets counts tickets that are not Resolved/Closed.
func OpenTickets(tickets []Ticket) int {
	n := 0
	for _, t := range tickets {
		if !t.Status.Done() {
			n++
		}
	}
	return n
}

// CountsByStatusAndPriority cross-tabulates tickets. Every status/priority
// pair is present, including zeros.
func CountsByStatusAndPriority(tickets []Ticket) map[Status]map[Priority]int {
	grid := make(map[Status]map[Priority]int, len(Statuses))
	for _, s := range Statuses {
		row := make(map[Priority]int, len(Priorities))
		for _, p := range Priorities {
			row[p] = 0
		}
		grid[s] = row
	}
	for _, t := range tickets {
		if row, ok := grid[t.Status]; ok {
			if _, ok := row[t.Priority]; ok {
				row[t.Priority]++
			}
		}
	}
	return grid
}

// ResolvedByAgent counts Resolved/Closed tickets per assignee.
func ResolvedByAgent(tickets []Ticket) map[string]int {
	out := make(map[string]int)
	for _, t := range tickets {
		if t.Status.Done() {
			out[t.AssignedTo]++
		}
	}
	return out
}

// TopAgents ranks agents by resolved tickets, ties in first-seen order.
func TopAgents(tickets []Ticket, n int) []Count {
	var keys []string
	for _, t := range tickets {
		if t.Status.Done() {
			keys = append(keys, t.AssignedTo)
		}
	}
	return rankCounts(keys, n)
}

// ComputeAgentWorkload counts active tickets per agent and classifies each
// as idle (active <= idle) or overloaded (active >= overload). Agents with no
// active ticket are not listed.
func ComputeAgentWorkload(tickets []Ticket, idle, overload int) AgentWorkload {
	w := AgentWorkload{
		ActivePerAgent:   make(map[string]int),
		IdleAgents:       []string{},
		OverloadedAgents: []string{},
	}
	var order []string
	for _, t := range tickets {
		if !t.Status.Active() {
			continue
		}
		if _, seen := w.ActivePerAgent[t.AssignedTo]; !seen {
			order = append(order, t.AssignedTo)
		}
		w.ActivePerAgent[t.AssignedTo]++
	}
	for _, a := range order {
		c := w.ActivePerAgent[a]
		if c <= idle {
			w.IdleAgents = append(w.IdleAgents, a)
		}
		if c >= overload {
			w.OverloadedAgents = append(w.OverloadedAgents, a)
		}
	}
	return w
}

// ComputeRepeatIssues finds subjects seen more than once (case-folded) and the
// most frequent n-word phrases across all subjects.
func ComputeRepeatIssues(tickets []Ticket, n int) RepeatIssues {
	counts := make(map[string]int)
	var words []string
	for _, t := range tickets {
		if t.Subject == "" {
			continue
		}
		s := strings.ToLower(t.Subject)
		counts[s]++
		words = append(words, subjectWords(s)...)
	}

	repeated := make(map[string]int)
	for s, c := range counts {
		if c > 1 {
			repeated[s] = c
		}
	}

	return RepeatIssues{
		RepeatedSubjects: repeated,
		CommonNGrams:     rankNGrams(words, n, topNGrams),
	}
}

func rankNGrams(words []string, n, limit int) []NGramCount {
	out := []NGramCount{}
	if n <= 0 || len(words) < n {
		return out
	}
	grams := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		grams = append(grams, strings.Join(words[i:i+n], " "))
	}
	for _, c := range rankCounts(grams, limit) {
		out = append(out, NGramCount{Words: strings.Split(c.Key, " "), Count: c.Count})
	}
	return out
}

// DelayReasons lists, per ticket id, every heuristic that explains slow
// handling. Tickets with no reasons are omitted. Later duplicates of a
// ticket id replace earlier ones.
func DelayReasons(tickets []Ticket, backlogDays int, today time.Time) map[string][]string {
	out := make(map[string][]string)
	for _, t := range tickets {
		var reasons []string
		if t.AssignedTo == "" {
			reasons = append(reasons, ReasonMissingAssignee)
		}
		if len([]rune(t.Description)) < shortDescriptionLen {
			reasons = append(reasons, ReasonShortDescription)
		}
		if !t.CreatedDate.IsZero() {
			if wd := t.CreatedDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
				reasons = append(reasons, ReasonWeekendCreated)
			}
		}
		if isStale(t, backlogDays, today) {
			reasons = append(reasons, ReasonBacklog)
		}
		if len(reasons) > 0 {
			out[t.ID] = reasons
		}
	}
	return out
}

// VolumeByWeekday counts tickets per English weekday name of creation.
func VolumeByWeekday(tickets []Ticket) map[string]int {
	out := make(map[string]int)
	for _, t := range tickets {
		if !t.CreatedDate.IsZero() {
			out[t.CreatedDate.Weekday().String()]++
		}
	}
	return out
}

// MonthlyTrends counts tickets per YYYY-MM of creation.
func MonthlyTrends(tickets []Ticket) map[string]int {
	out := make(map[string]int)
	for _, t := range tickets {
		if !t.CreatedDate.IsZero() {
			out[t.CreatedDate.Format("2006-01")]++
		}
	}
	return out
}

// CustomersByTicketCount ranks every customer by ticket volume.
func CustomersByTicketCount(tickets []Ticket) []Count {
	keys := make([]string, 0, len(tickets))
	for _, t := range tickets {
		keys = append(keys, t.CustomerID)
	}
	return rankCounts(keys, 0)
}

// PriorityEscalation walks each customer's tickets in creation order and
// records every ticket whose priority rank exceeds the customer's running
// maximum.
func PriorityEscalation(tickets []Ticket) []Escalation {
	sorted := make([]Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CustomerID != sorted[j].CustomerID {
			return sorted[i].CustomerID < sorted[j].CustomerID
		}
		return sorted[i].CreatedDate.Before(sorted[j].CreatedDate)
	})

	out := []Escalation{}
	highest := make(map[string]int)
	for _, t := range sorted {
		rank := t.Priority.Rank()
		if rank > highest[t.CustomerID] {
			out = append(out, Escalation{CustomerID: t.CustomerID, TicketID: t.ID, Priority: t.Priority})
			highest[t.CustomerID] = rank
		}
	}
	return out
}

// MostCommonSubjectWords ranks case-folded subject words, stop words removed.
func MostCommonSubjectWords(tickets []Ticket, topN int) []Count {
	var words []string
	for _, t := range tickets {
		words = append(words, subjectWords(strings.ToLower(t.Subject))...)
	}
	if topN <= 0 {
		return []Count{}
	}
	return rankCounts(words, topN)
}

// subjectWords splits an already case-folded subject into non-stop words.
func subjectWords(s string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(s, -1) {
		if _, stop := stopWords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

// rankCounts tallies keys and orders them by count descending, ties in
// first-seen order. limit <= 0 returns every key.
func rankCounts(keys []string, limit int) []Count {
	index := make(map[string]int)
	out := []Count{}
	for _, k := range keys {
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, Count{Key: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
