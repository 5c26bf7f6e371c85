package domain

import (
	"fmt"
	"strconv"
	"strings"
)

var recommendations = []string{
	"Reassign tickets from overloaded agents to idle agents.",
	"Review long-open tickets to prevent SLA breaches.",
	"Monitor repeat customer issues for proactive escalation.",
}

// RenderExecutive formats the human-readable summary of a bundle.
func RenderExecutive(b MetricsBundle) string {
	var sb strings.Builder

	sb.WriteString("Support Ticket Executive Summary\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", b.GeneratedAt.UTC().Format(DateLayout))

	sb.WriteString("=== Summary Statistics ===\n")
	fmt.Fprintf(&sb, "Total Tickets: %d\n", b.TotalTickets)
	fmt.Fprintf(&sb, "Open Tickets: %d\n", b.OpenTickets)
	fmt.Fprintf(&sb, "Tickets Open > %d Days: %d\n", b.OpenThresholdDays, b.TicketsOpenLongerThan)
	if b.InvalidRows > 0 {
		fmt.Fprintf(&sb, "Invalid Rows: %d\n", b.InvalidRows)
	}
	sb.WriteString("\n")

	sb.WriteString("=== Agent Workload ===\n")
	fmt.Fprintf(&sb, "Idle Agents: %s\n", agentList(b.AgentWorkload.IdleAgents))
	fmt.Fprintf(&sb, "Overloaded Agents: %s\n", agentList(b.AgentWorkload.OverloadedAgents))

	sb.WriteString("=== Performance Highlights ===\n")
	if len(b.TopAgents) > 0 {
		top := b.TopAgents[0]
		fmt.Fprintf(&sb, "Top Performer: %s (%d tickets resolved)\n", top.Key, top.Count)
	}
	fmt.Fprintf(&sb, "Average Resolution Time: %.2f days\n\n", b.OverallAvgResolution)

	sb.WriteString("=== Observations & Recommendations ===\n")
	for _, r := range recommendations {
		sb.WriteString("- " + r + "\n")
	}

	if w := b.Weather; w != nil {
		fmt.Fprintf(&sb, "\nWeather at %s: %s, %s°C\n",
			w.Location, w.Description, strconv.FormatFloat(w.TemperatureCelsius, 'f', -1, 64))
	}

	return sb.String()
}

func agentList(agents []string) string {
	return "[" + strings.Join(agents, ", ") + "]"
}
