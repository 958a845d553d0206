// Package report builds the weekly support/ticket report: it aggregates
// ticket and issue exports, constructs the anchor-based mutation batch over a
// flow document template and drives persistence with a degraded retry.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// Ticket is one support ticket record from the helpdesk export.
type Ticket struct {
	ID          int
	Company     string
	Reporter    string
	Description string
	Status      string // normalized
	Category    string // normalized
	Created     time.Time
}

// Issue is one tracker issue record from the issue export.
type Issue struct {
	Key      string
	Summary  string
	Status   string
	Priority string
	Labels   string
	Created  time.Time
}

var (
	titler = cases.Title(language.English)
	// categories often carry a parenthesized qualifier nobody wants in the report
	categoryQualifier = regexp.MustCompile(`\s*\(.*\)`)
)

// NormalizeStatus trims and title-cases a raw status value so that "done",
// "DONE " and "Done" count as one bucket.
func NormalizeStatus(s string) string {
	return titler.String(strings.TrimSpace(s))
}

// NormalizeCategory drops parenthesized qualifiers and title-cases the rest.
func NormalizeCategory(s string) string {
	return titler.String(strings.TrimSpace(categoryQualifier.ReplaceAllString(s, "")))
}

// exports come from several tools, each with its own idea of a timestamp
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/Jan/06 3:04 PM",
	"2006-01-02",
}

func parseCreated(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

type headerIndex map[string]int

func indexHeader(record []string) headerIndex {
	idx := make(headerIndex, len(record))
	for i, name := range record {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

func (h headerIndex) get(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newCSVReader(r io.Reader, enc encoding.Encoding) *csv.Reader {
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ReadTickets parses a helpdesk CSV export. enc may be nil for UTF-8 input.
// Rows with unparseable fields are skipped with a warning, a single bad line
// must not lose the weekly report.
func ReadTickets(r io.Reader, enc encoding.Encoding, log *zap.Logger) ([]Ticket, error) {
	cr := newCSVReader(r, enc)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read ticket export header: %w", err)
	}
	idx := indexHeader(header)

	var out []Ticket
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read ticket export line %d: %w", line, err)
		}

		id, err := strconv.Atoi(idx.get(record, "IDTicket"))
		if err != nil {
			log.Warn("Skipping ticket with bad ID", zap.Int("line", line), zap.Error(err))
			continue
		}
		created, err := parseCreated(idx.get(record, "createdAt"))
		if err != nil {
			log.Warn("Skipping ticket with bad creation time", zap.Int("line", line), zap.Error(err))
			continue
		}

		out = append(out, Ticket{
			ID:          id,
			Company:     idx.get(record, "Companyname"),
			Reporter:    idx.get(record, "Reporter"),
			Description: idx.get(record, "Description"),
			Status:      NormalizeStatus(idx.get(record, "Status")),
			Category:    NormalizeCategory(idx.get(record, "Category")),
			Created:     created,
		})
	}
	log.Debug("Ticket export loaded", zap.Int("tickets", len(out)))
	return out, nil
}

// ReadIssues parses a tracker CSV export. enc may be nil for UTF-8 input.
func ReadIssues(r io.Reader, enc encoding.Encoding, log *zap.Logger) ([]Issue, error) {
	cr := newCSVReader(r, enc)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read issue export header: %w", err)
	}
	idx := indexHeader(header)

	var out []Issue
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read issue export line %d: %w", line, err)
		}

		created, err := parseCreated(idx.get(record, "Created"))
		if err != nil {
			log.Warn("Skipping issue with bad creation time", zap.Int("line", line), zap.Error(err))
			continue
		}

		out = append(out, Issue{
			Key:      idx.get(record, "Issue key"),
			Summary:  idx.get(record, "Summary"),
			Status:   idx.get(record, "Status"),
			Priority: idx.get(record, "Priority"),
			Labels:   idx.get(record, "Labels"),
			Created:  created,
		})
	}
	log.Debug("Issue export loaded", zap.Int("issues", len(out)))
	return out, nil
}

// FilterByLabel returns issues whose label list contains label.
func FilterByLabel(issues []Issue, label string) []Issue {
	var out []Issue
	for i := range issues {
		if strings.Contains(issues[i].Labels, label) {
			out = append(out, issues[i])
		}
	}
	return out
}
