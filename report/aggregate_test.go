package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var aggNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func ticketAt(id int, status, category string, daysAgo int) Ticket {
	return Ticket{
		ID:       id,
		Company:  "Acme",
		Reporter: "Jo Doe",
		Status:   status,
		Category: category,
		Created:  aggNow.AddDate(0, 0, -daysAgo),
	}
}

func issueAt(key, status, priority, labels string, daysAgo int) Issue {
	return Issue{
		Key:      key,
		Summary:  "summary " + key,
		Status:   status,
		Priority: priority,
		Labels:   labels,
		Created:  aggNow.AddDate(0, 0, -daysAgo),
	}
}

func TestStatusDistribution(t *testing.T) {
	tickets := []Ticket{
		ticketAt(1, "Done", "Software", 1),
		ticketAt(2, "Done", "Software", 2),
		ticketAt(3, "Done", "Hardware", 3),
		ticketAt(4, "Qa", "Hardware", 4),
		ticketAt(5, "Qa", "Network", 5),
	}

	got := StatusDistribution(tickets)
	want := []Share{
		{Label: "Done", Count: 3, Pct: 60, Base: 5},
		{Label: "Qa", Count: 2, Pct: 40, Base: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("distribution mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusDistribution_TieBreak(t *testing.T) {
	tickets := []Ticket{
		ticketAt(1, "Qa", "Software", 1),
		ticketAt(2, "Done", "Software", 1),
	}

	got := StatusDistribution(tickets)
	// equal counts fall back to natural label order
	if got[0].Label != "Done" || got[1].Label != "Qa" {
		t.Fatalf("tie-break order = %q, %q; want Done, Qa", got[0].Label, got[1].Label)
	}
}

func TestStatusDistribution_Empty(t *testing.T) {
	if got := StatusDistribution(nil); len(got) != 0 {
		t.Fatalf("distribution over no tickets = %v, want empty", got)
	}
}

func TestStaleTickets(t *testing.T) {
	tickets := []Ticket{
		ticketAt(100, "In Progress", "Software", 12),
		ticketAt(101, "In Progress", "Software", 25),
		ticketAt(102, "In Progress", "Software", 10), // exactly at threshold, not stale
		ticketAt(103, "Done", "Software", 40),        // wrong status
	}

	got := StaleTickets(tickets, "In Progress", 10, aggNow)
	if len(got) != 2 {
		t.Fatalf("stale = %d, want 2", len(got))
	}
	// oldest first
	if got[0].ID != 101 || got[0].DaysOpen != 25 {
		t.Fatalf("first stale = #%d (%d days), want #101 (25 days)", got[0].ID, got[0].DaysOpen)
	}
	if got[1].ID != 100 || got[1].DaysOpen != 12 {
		t.Fatalf("second stale = #%d (%d days), want #100 (12 days)", got[1].ID, got[1].DaysOpen)
	}
}

func TestHighestAvgDaysOpen(t *testing.T) {
	issues := []Issue{
		issueAt("SUP-1", "Open", "High", "", 30),
		issueAt("SUP-2", "Open", "High", "", 10),
		issueAt("SUP-3", "Open", "Low", "", 15),
	}

	priority, avg, ok := HighestAvgDaysOpen(issues, aggNow)
	if !ok {
		t.Fatal("HighestAvgDaysOpen() ok = false, want true")
	}
	if priority != "High" || avg != 20 {
		t.Fatalf("HighestAvgDaysOpen() = %q/%d, want High/20", priority, avg)
	}
}

func TestHighestAvgDaysOpen_Empty(t *testing.T) {
	if _, _, ok := HighestAvgDaysOpen(nil, aggNow); ok {
		t.Fatal("HighestAvgDaysOpen() over no issues must report ok = false")
	}
}

func TestIssuesWithPriority(t *testing.T) {
	issues := []Issue{
		issueAt("SUP-1", "Open", "Highest", "", 5),
		issueAt("SUP-2", "Open", "Highest", "", 20),
		issueAt("SUP-3", "Open", "Low", "", 50),
		issueAt("SUP-4", "Open", "Highest", "", 1),
	}

	got := IssuesWithPriority(issues, "Highest", 2, aggNow)
	if len(got) != 2 {
		t.Fatalf("top = %d issues, want 2 (limit applied)", len(got))
	}
	if got[0].Key != "SUP-2" || got[1].Key != "SUP-1" {
		t.Fatalf("top order = %q, %q; want SUP-2, SUP-1", got[0].Key, got[1].Key)
	}
}

func TestSummarize(t *testing.T) {
	tickets := []Ticket{
		ticketAt(1, "Done", "Software", 1),
		ticketAt(2, "In Progress", "Hardware", 15),
		ticketAt(3, "In Progress", "Hardware", 3),
	}
	issues := []Issue{
		issueAt("SUP-1", "Open", "Highest", "COLSupport", 5),
		issueAt("SUP-2", "Open", "High", "COLSupport", 8),
		issueAt("SUP-3", "Open", "Highest", "", 12),
	}

	sum := Summarize(tickets, issues, "COLSupport", 10, 10, aggNow)

	if sum.TotalTickets != 3 {
		t.Fatalf("TotalTickets = %d, want 3", sum.TotalTickets)
	}
	if len(sum.Stale) != 1 || sum.Stale[0].ID != 2 {
		t.Fatalf("Stale = %+v, want single #2", sum.Stale)
	}
	if sum.USA.Total != 2 {
		t.Fatalf("USA.Total = %d, want 2 (label filtered)", sum.USA.Total)
	}
	if sum.Global.Total != 3 {
		t.Fatalf("Global.Total = %d, want 3", sum.Global.Total)
	}
	// global top always tracks Highest priority
	for _, is := range sum.Global.Top {
		if is.Priority != "Highest" {
			t.Fatalf("Global.Top contains %q priority issue", is.Priority)
		}
	}
	if len(sum.Global.Top) != 2 {
		t.Fatalf("Global.Top = %d issues, want 2", len(sum.Global.Top))
	}
}
