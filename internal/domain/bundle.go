package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Options holds aggregation thresholds and ranking sizes.
type Options struct {
	IdleThreshold     int
	OverloadThreshold int
	OpenDays          int
	BacklogDays       int
	NGramSize         int
	TopSubjectWords   int
	TopAgents         int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		IdleThreshold:     2,
		OverloadThreshold: 6,
		OpenDays:          7,
		BacklogDays:       7,
		NGramSize:         2,
		TopSubjectWords:   10,
		TopAgents:         3,
	}
}

// WeatherSnapshot is the weather attached to a report.
type WeatherSnapshot struct {
	FetchedAt          time.Time `json:"fetched_at"`
	Location           string    `json:"location"`
	Description        string    `json:"description"`
	TemperatureCelsius float64   `json:"temperature_celsius"`
}

// Stats is the output of every aggregator over one ticket set.
type Stats struct {
	TotalTickets              int                        `json:"total_tickets"`
	OpenTickets               int                        `json:"open_tickets"`
	OpenThresholdDays         int                        `json:"open_threshold_days"`
	TicketsOpenLongerThan     int                        `json:"tickets_open_gt_threshold"`
	LongOpenTicketIDs         []string                   `json:"long_open_ticket_ids"`
	AvgResolutionByPriority   map[Priority]float64       `json:"avg_resolution_by_priority"`
	OverallAvgResolution      float64                    `json:"overall_avg_resolution_days"`
	CountsByStatusAndPriority map[Status]map[Priority]int `json:"counts_by_status_and_priority"`
	ResolvedPerAgent          map[string]int             `json:"resolved_per_agent"`
	TopAgents                 []Count                    `json:"top_agents"`
	AvgResolutionPerAgent     map[string]float64         `json:"avg_resolution_per_agent"`
	MonthlyTrends             map[string]int             `json:"monthly_trends"`
	CommonSubjectWords        []Count                    `json:"common_subject_words"`
	CustomersByTicketCount    []Count                    `json:"customers_with_many_tickets"`
	AgentWorkload             AgentWorkload              `json:"agent_workload"`
	RepeatIssues              RepeatIssues               `json:"repeat_issues"`
	DelayReasons              map[string][]string        `json:"delay_reasons"`
	VolumeByWeekday           map[string]int             `json:"volume_by_weekday"`
	PriorityEscalation        []Escalation               `json:"priority_escalation"`
}

// BundleMeta identifies one run.
type BundleMeta struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
}

// MetricsBundle is the report-ready result of a run.
type MetricsBundle struct {
	BundleMeta
	Stats
	InvalidRows      int               `json:"invalid_rows"`
	ValidationErrors []ValidationError `json:"validation_errors"`
	Weather          *WeatherSnapshot  `json:"weather"`
}

// Analyzer runs the aggregators with a fixed set of options. "Today" is read
// from the injected clock.
type Analyzer struct {
	opts  Options
	clock clockwork.Clock
}

// NewAnalyzer creates an Analyzer. A nil clock uses real time.
func NewAnalyzer(opts Options, clock clockwork.Clock) *Analyzer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Analyzer{opts: opts, clock: clock}
}

// Options returns the thresholds the analyzer was built with.
func (a *Analyzer) Options() Options { return a.opts }

// Compute runs every aggregator over tickets. It is total over any validated
// ticket slice, including an empty one.
func (a *Analyzer) Compute(tickets []Ticket) Stats {
	now := today(a.clock)
	byPriority := AvgResolutionByPriority(tickets)

	longOpen := OpenLongerThan(tickets, a.opts.OpenDays, now)
	ids := make([]string, 0, len(longOpen))
	for _, t := range longOpen {
		ids = append(ids, t.ID)
	}

	return Stats{
		TotalTickets:              len(tickets),
		OpenTickets:               OpenTickets(tickets),
		OpenThresholdDays:         a.opts.OpenDays,
		TicketsOpenLongerThan:     len(longOpen),
		LongOpenTicketIDs:         ids,
		AvgResolutionByPriority:   byPriority,
		OverallAvgResolution:      meanOf(byPriority),
		CountsByStatusAndPriority: CountsByStatusAndPriority(tickets),
		ResolvedPerAgent:          ResolvedByAgent(tickets),
		TopAgents:                 TopAgents(tickets, a.opts.TopAgents),
		AvgResolutionPerAgent:     AvgResolutionPerAgent(tickets),
		MonthlyTrends:             MonthlyTrends(tickets),
		CommonSubjectWords:        MostCommonSubjectWords(tickets, a.opts.TopSubjectWords),
		CustomersByTicketCount:    CustomersByTicketCount(tickets),
		AgentWorkload:             ComputeAgentWorkload(tickets, a.opts.IdleThreshold, a.opts.OverloadThreshold),
		RepeatIssues:              ComputeRepeatIssues(tickets, a.opts.NGramSize),
		DelayReasons:              DelayReasons(tickets, a.opts.BacklogDays, now),
		VolumeByWeekday:           VolumeByWeekday(tickets),
		PriorityEscalation:        PriorityEscalation(tickets),
	}
}

// Assemble composes aggregator output, row errors and optional weather into
// one bundle.
func Assemble(meta BundleMeta, stats Stats, invalid []ValidationError, weather *WeatherSnapshot) MetricsBundle {
	if invalid == nil {
		invalid = []ValidationError{}
	}
	return MetricsBundle{
		BundleMeta:       meta,
		Stats:            stats,
		InvalidRows:      len(invalid),
		ValidationErrors: invalid,
		Weather:          weather,
	}
}

// Bundle computes stats and assembles them in one call.
func (a *Analyzer) Bundle(meta BundleMeta, tickets []Ticket, invalid []ValidationError, weather *WeatherSnapshot) MetricsBundle {
	return Assemble(meta, a.Compute(tickets), invalid, weather)
}

func meanOf[K comparable](m map[K]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum / float64(len(m))
}
