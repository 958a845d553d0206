package report

import (
	"sort"
	"time"

	"github.com/maruel/natural"
)

// Aggregation over loaded records. Every share carries its base population
// explicitly - percentages in the report must never leave the reader guessing
// what they are a share of.

// Share is one bucket of a distribution: count and percentage over Base.
type Share struct {
	Label string
	Count int
	Pct   float64
	Base  int
}

func shares(counts map[string]int, base int) []Share {
	out := make([]Share, 0, len(counts))
	for label, count := range counts {
		s := Share{Label: label, Count: count, Base: base}
		if base > 0 {
			s.Pct = float64(count) / float64(base) * 100
		}
		out = append(out, s)
	}
	// count descending, natural label order for equal counts
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return natural.Less(out[i].Label, out[j].Label)
	})
	return out
}

// StatusDistribution counts tickets per normalized status.
func StatusDistribution(tickets []Ticket) []Share {
	counts := make(map[string]int)
	for i := range tickets {
		counts[tickets[i].Status]++
	}
	return shares(counts, len(tickets))
}

// CategoryDistribution counts tickets per normalized category.
func CategoryDistribution(tickets []Ticket) []Share {
	counts := make(map[string]int)
	for i := range tickets {
		counts[tickets[i].Category]++
	}
	return shares(counts, len(tickets))
}

// IssueStatusDistribution counts issues per raw status.
func IssueStatusDistribution(issues []Issue) []Share {
	counts := make(map[string]int)
	for i := range issues {
		counts[issues[i].Status]++
	}
	return shares(counts, len(issues))
}

// PriorityDistribution counts issues per priority.
func PriorityDistribution(issues []Issue) []Share {
	counts := make(map[string]int)
	for i := range issues {
		counts[issues[i].Priority]++
	}
	return shares(counts, len(issues))
}

func daysOpen(created, now time.Time) int {
	return int(now.Sub(created).Hours() / 24)
}

// StaleTicket is a ticket open longer than the staleness threshold.
type StaleTicket struct {
	Ticket
	DaysOpen int
}

// StaleTickets returns tickets in the given status open for more than minDays
// as of now, sorted by days open descending.
func StaleTickets(tickets []Ticket, status string, minDays int, now time.Time) []StaleTicket {
	var out []StaleTicket
	for i := range tickets {
		if tickets[i].Status != status {
			continue
		}
		if d := daysOpen(tickets[i].Created, now); d > minDays {
			out = append(out, StaleTicket{Ticket: tickets[i], DaysOpen: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysOpen != out[j].DaysOpen {
			return out[i].DaysOpen > out[j].DaysOpen
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AgedIssue is an issue annotated with its current age in days.
type AgedIssue struct {
	Issue
	DaysOpen int
}

// HighestAvgDaysOpen returns the priority with the highest mean age and that
// mean truncated to whole days. ok is false on an empty input.
func HighestAvgDaysOpen(issues []Issue, now time.Time) (priority string, avgDays int, ok bool) {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for i := range issues {
		sums[issues[i].Priority] += daysOpen(issues[i].Created, now)
		counts[issues[i].Priority]++
	}
	best := -1.0
	for p, sum := range sums {
		avg := float64(sum) / float64(counts[p])
		if avg > best || (avg == best && natural.Less(p, priority)) {
			best, priority = avg, p
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return priority, int(best), true
}

// IssuesWithPriority returns up to limit issues with the given priority,
// oldest first, annotated with age.
func IssuesWithPriority(issues []Issue, priority string, limit int, now time.Time) []AgedIssue {
	var out []AgedIssue
	for i := range issues {
		if issues[i].Priority != priority {
			continue
		}
		out = append(out, AgedIssue{Issue: issues[i], DaysOpen: daysOpen(issues[i].Created, now)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysOpen != out[j].DaysOpen {
			return out[i].DaysOpen > out[j].DaysOpen
		}
		return natural.Less(out[i].Key, out[j].Key)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// IssueSummary aggregates one scaled-tickets section.
type IssueSummary struct {
	Total      int
	Statuses   []Share
	Priorities []Share
	// priority with the highest mean age and that mean, for the narrative line
	AgedPriority string
	AgedAvgDays  int
	Top          []AgedIssue
}

// SummarizeIssues aggregates issues for a report section. topPriority selects
// the priority for the Top slice; empty selects the priority with the highest
// mean age.
func SummarizeIssues(issues []Issue, topPriority string, limit int, now time.Time) IssueSummary {
	s := IssueSummary{
		Total:      len(issues),
		Statuses:   IssueStatusDistribution(issues),
		Priorities: PriorityDistribution(issues),
	}
	s.AgedPriority, s.AgedAvgDays, _ = HighestAvgDaysOpen(issues, now)
	if topPriority == "" {
		topPriority = s.AgedPriority
	}
	s.Top = IssuesWithPriority(issues, topPriority, limit, now)
	return s
}

// Summary is everything the report batch needs, produced by external
// aggregation before any document is touched.
type Summary struct {
	TotalTickets int
	Statuses     []Share
	Categories   []Share
	Stale        []StaleTicket
	USA          IssueSummary
	Global       IssueSummary
}

// Summarize runs the whole aggregation pass.
func Summarize(tickets []Ticket, issues []Issue, usaLabel string, staleAfterDays, topLimit int, now time.Time) *Summary {
	usa := FilterByLabel(issues, usaLabel)
	return &Summary{
		TotalTickets: len(tickets),
		Statuses:     StatusDistribution(tickets),
		Categories:   CategoryDistribution(tickets),
		Stale:        StaleTickets(tickets, "In Progress", staleAfterDays, now),
		USA:          SummarizeIssues(usa, "", topLimit, now),
		Global:       SummarizeIssues(issues, "Highest", topLimit, now),
	}
}
