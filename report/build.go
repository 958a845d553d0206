package report

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"wrg/flow"
)

// Anchor phrases of the report template. The batch never addresses blocks by
// position, only through these.
const (
	labelReportTitle   = "Support & Tickets Report"
	labelTotalTickets  = "Total Tickets:"
	labelStatus        = "Status"
	labelCategoryChart = "Distribution by Category:"
	labelStaleTickets  = "Tickets with more than 10 days open"
	labelUSASection    = "USA Scaled Tickets"
	labelUSATotal      = "Total tickets:"
	labelPriority      = "Priority"
	labelHighestAvg    = "Highest average days opened"
	labelUSATop        = "USA Tickets with Top Priority"
	labelGlobalSection = "Global Scaled Tickets"
	labelGlobalTop     = "Global Tickets with Highest Priority"
	usaChartCaption    = "Figure: USA Scaled Tickets Status Distribution"
)

// Charts are opaque pre-rendered images supplied by the external render
// driver. A nil chart simply leaves the section without a figure.
type Charts struct {
	Category  *flow.ImageRef
	USAStatus *flow.ImageRef
}

// Skeleton builds the report document from scratch: every anchor phrase and
// both base tables in template order. Used in fresh-build mode and as the
// fallback when a stored template lost its required anchors.
func Skeleton() *flow.Document {
	d := flow.NewDocument()
	para := func(text string) {
		_ = d.Append(flow.ParagraphBlock(flow.NewParagraph(text)))
	}
	table := func(header ...string) {
		t := flow.NewTable(1, len(header))
		_ = t.SetRowText(0, header...)
		_ = d.Append(flow.TableBlock(t))
	}

	para(labelReportTitle)
	para(labelTotalTickets)
	para(labelStatus)
	table("Status", "%", "#Tickets")
	para(labelCategoryChart)
	para(labelStaleTickets)
	table("ID", "Company", "Reporter", "Description", "Days Open")
	para(labelUSASection)
	para(labelUSATotal)
	para(labelPriority)
	para(labelHighestAvg)
	para(labelUSATop)
	para(labelGlobalSection)
	para(labelTotalTickets)
	para(labelStatus)
	para(labelPriority)
	para(labelGlobalTop)
	return d
}

// upsertTable regenerates the table immediately following the anchor block,
// inserting it first when the template does not have one yet. Reusing an
// existing table keeps the whole pipeline idempotent - rerunning against a
// previously generated document must not stack duplicate tables.
type upsertTable struct {
	anchor flow.Anchor
	header []string
	rows   [][]string
	style  *flow.TableStyle
	pol    flow.Policy
}

func (op upsertTable) Apply(doc *flow.Document, log *zap.Logger) error {
	i, ok := op.anchor.Resolve(doc)
	if !ok {
		return &flow.AnchorError{Anchor: op.anchor.String()}
	}

	var t *flow.Table
	if next, err := doc.BlockAt(i + 1); err == nil && next.Kind == flow.BlockKindTable && next.Table.Cols() == len(op.header) {
		t = next.Table
	} else {
		t = flow.NewTable(1, len(op.header))
		if err := doc.InsertAt(i+1, flow.TableBlock(t)); err != nil {
			return err
		}
	}

	if err := t.SetRowText(0, op.header...); err != nil {
		return err
	}
	if err := flow.Regenerate(t, op.rows, func(r []string) []string { return r }); err != nil {
		return err
	}
	if op.style != nil {
		flow.ApplyTableStyle(t, *op.style)
	}
	log.Debug("Table upserted", zap.String("anchor", op.anchor.String()), zap.Int("rows", len(op.rows)))
	return nil
}

func (op upsertTable) Describe() string {
	return fmt.Sprintf("upsert %d-column table after %s", len(op.header), op.anchor)
}

func (op upsertTable) Policy() flow.Policy { return op.pol }

// BuildOperations assembles the full mutation batch for one report run.
// Operations follow template order, anchors are re-resolved between them so
// earlier inserts never invalidate later positions.
func BuildOperations(sum *Summary, charts Charts, style *flow.TableStyle) []flow.Operation {
	var ops []flow.Operation

	// support section: total, status table, category figure
	ops = append(ops, flow.ReplaceText{
		Anchor: flow.NextBlockAfter(flow.TextContains(labelReportTitle), flow.TextPrefix(labelTotalTickets)),
		Text:   fmt.Sprintf("%s %d", labelTotalTickets, sum.TotalTickets),
	})
	ops = append(ops, flow.RegenerateTable[Share]{
		Table:   flow.TableAt(0),
		Dataset: sum.Statuses,
		Render: func(s Share) []string {
			return []string{s.Label, flow.FormatPercent(s.Pct), flow.FormatCount(s.Count)}
		},
		Style: style,
	})
	if charts.Category != nil {
		ops = append(ops, flow.InsertImageAfter{
			Anchor: flow.At(flow.TextEquals(labelCategoryChart)),
			Image:  charts.Category,
			Pol:    flow.BestEffort,
		})
	}

	// stale tickets: table plus the regenerated narrative ID list
	ops = append(ops, flow.RegenerateTable[StaleTicket]{
		Table:   flow.TableAt(1),
		Dataset: sum.Stale,
		Render: func(s StaleTicket) []string {
			return []string{
				flow.FormatCount(s.ID),
				s.Company,
				s.Reporter,
				s.Description,
				flow.FormatCount(s.DaysOpen),
			}
		},
		Style: style,
	})
	if len(sum.Stale) > 0 {
		ops = append(ops, flow.DeleteRange{
			Start: flow.TextPrefix(fmt.Sprintf("%d:", sum.Stale[0].ID)),
			End:   flow.TextContains(labelUSASection),
			Pol:   flow.BestEffort,
		})
		// the narrative ID list sits between the stale table and the USA
		// section heading
		texts := make([]string, 0, len(sum.Stale))
		for _, s := range sum.Stale {
			texts = append(texts, fmt.Sprintf("%d:", s.ID))
		}
		ops = append(ops, flow.InsertParagraphsBefore{
			Anchor: flow.At(flow.TextContains(labelUSASection)),
			Texts:  texts,
			Pol:    flow.BestEffort,
		})
	}

	// USA scaled section
	ops = append(ops, flow.ReplaceText{
		Anchor: flow.NextBlockAfter(flow.TextContains(labelUSASection), flow.TextPrefix(labelUSATotal)),
		Text:   fmt.Sprintf("%s %d", labelUSATotal, sum.USA.Total),
	})
	if charts.USAStatus != nil {
		ops = append(ops, flow.InsertImageAfter{
			Anchor:  flow.NextBlockAfter(flow.TextContains(labelUSASection), flow.TextPrefix(labelUSATotal)),
			Image:   charts.USAStatus,
			Caption: usaChartCaption,
			Pol:     flow.BestEffort,
		})
	}
	ops = append(ops, upsertTable{
		anchor: flow.FirstMatchAfter(flow.TextContains(labelUSASection), flow.TextPrefix(labelPriority)),
		header: []string{"Priority", "# Tickets"},
		rows:   shareRows(sum.USA.Priorities),
		style:  style,
	})
	ops = append(ops, flow.ReplaceText{
		Anchor: flow.At(flow.TextPrefix(labelHighestAvg)),
		Text:   fmt.Sprintf("%s = %d days", labelHighestAvg, sum.USA.AgedAvgDays),
		Pol:    flow.BestEffort,
	})
	ops = append(ops, upsertTable{
		anchor: flow.At(flow.TextPrefix(labelUSATop)),
		header: []string{"Issue key", "Summary", "Days Open"},
		rows:   agedRows(sum.USA.Top),
		style:  style,
		pol:    flow.BestEffort,
	})

	// global scaled section
	ops = append(ops, flow.ReplaceText{
		Anchor: flow.NextBlockAfter(flow.TextContains(labelGlobalSection), flow.TextPrefix(labelTotalTickets)),
		Text:   fmt.Sprintf("%s %d", labelTotalTickets, sum.Global.Total),
	})
	ops = append(ops, upsertTable{
		anchor: flow.FirstMatchAfter(flow.TextContains(labelGlobalSection), flow.TextPrefix(labelStatus)),
		header: []string{"Status", "Count of Status"},
		rows:   shareCountRows(sum.Global.Statuses),
		style:  style,
	})
	ops = append(ops, upsertTable{
		anchor: flow.FirstMatchAfter(flow.TextContains(labelGlobalSection), flow.TextPrefix(labelPriority)),
		header: []string{"Priority", "Count of Priority"},
		rows:   shareCountRows(sum.Global.Priorities),
		style:  style,
	})
	ops = append(ops, upsertTable{
		anchor: flow.At(flow.TextPrefix(labelGlobalTop)),
		header: []string{"Issue key", "Summary", "Days Open"},
		rows:   agedRows(sum.Global.Top),
		style:  style,
		pol:    flow.BestEffort,
	})

	return ops
}

func shareRows(shares []Share) [][]string {
	out := make([][]string, 0, len(shares))
	for _, s := range shares {
		out = append(out, []string{s.Label, flow.FormatCount(s.Count)})
	}
	return out
}

func shareCountRows(shares []Share) [][]string {
	return shareRows(shares)
}

func agedRows(issues []AgedIssue) [][]string {
	out := make([][]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, []string{is.Key, is.Summary, flow.FormatCount(is.DaysOpen)})
	}
	return out
}

// Generate applies the batch to the template (or to a fresh skeleton), then
// finalizes and persists the result. The template document itself is never
// touched: the batch runs on a clone which replaces it only on full success.
// When the template is missing required anchors the run falls back to a
// rebuilt skeleton; when the sink fails the run retries once with a degraded
// copy stripped of embedded images.
func Generate(template *flow.Document, sum *Summary, charts Charts, style *flow.TableStyle, sink flow.Sink, log *zap.Logger) (*flow.Document, error) {
	if template == nil {
		template = Skeleton()
	}
	ops := BuildOperations(sum, charts, style)

	doc := template.Clone()
	err := flow.Apply(doc, ops, log)
	if errors.Is(err, flow.ErrAnchorNotFound) {
		log.Warn("Template is missing required anchors, rebuilding from scratch", zap.Error(err))
		doc = Skeleton()
		err = flow.Apply(doc, ops, log)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to build report: %w", err)
	}
	doc.Finalize()

	if err := sink.Persist(doc); err != nil {
		log.Warn("Persist failed, retrying with degraded document", zap.Error(err))
		degraded := doc.Clone()
		degraded.StripImages()
		degraded.Finalize()
		if er := sink.Persist(degraded); er != nil {
			return nil, multierr.Append(
				fmt.Errorf("unable to persist report: %w", err),
				fmt.Errorf("unable to persist degraded report: %w", er))
		}
		return degraded, nil
	}
	return doc, nil
}
