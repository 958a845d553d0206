package flow

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Specification of operation failure policy.
// ENUM(required, bestEffort)
type Policy int

const (
	// Required aborts the remaining batch when the operation's anchor cannot
	// be resolved.
	Required Policy = iota
	// BestEffort degrades an unresolved anchor to a logged no-op.
	BestEffort
)

func (p Policy) String() string {
	if p == BestEffort {
		return "best-effort"
	}
	return "required"
}

// Operation is a single declarative structural edit. Operations are executed
// strictly in batch order, each one resolving its anchors against the
// cumulative result of all previous ones.
type Operation interface {
	// Apply performs the edit. An ErrAnchorNotFound failure is subject to the
	// operation policy, everything else is fatal to the batch.
	Apply(doc *Document, log *zap.Logger) error
	// Describe names the operation for error context and logs.
	Describe() string
	// Policy reports how anchor resolution failures are treated.
	Policy() Policy
}

// Apply executes the batch against doc. There is no rollback: a failed
// operation aborts the remaining batch leaving the document in its partially
// mutated state. Callers needing atomicity apply the batch to doc.Clone()
// and swap the clone in on success.
func Apply(doc *Document, ops []Operation, log *zap.Logger) error {
	skipped := 0
	for i, op := range ops {
		err := op.Apply(doc, log)
		if err == nil {
			continue
		}
		if op.Policy() == BestEffort && errors.Is(err, ErrAnchorNotFound) {
			log.Warn("Skipping best-effort operation",
				zap.Int("operation", i),
				zap.String("describe", op.Describe()),
				zap.Error(err))
			skipped++
			continue
		}
		return fmt.Errorf("operation %d (%s): %w", i, op.Describe(), err)
	}
	log.Debug("Batch applied", zap.Int("operations", len(ops)), zap.Int("skipped", skipped))
	return nil
}

// ReplaceText resolves Anchor and replaces the target paragraph text.
type ReplaceText struct {
	Anchor Anchor
	Text   string
	Pol    Policy
}

func (op ReplaceText) Apply(doc *Document, _ *zap.Logger) error {
	i, ok := op.Anchor.Resolve(doc)
	if !ok {
		return anchorErr(op.Anchor)
	}
	return doc.SetText(i, op.Text)
}

func (op ReplaceText) Describe() string {
	return fmt.Sprintf("replace text at %s", op.Anchor)
}

func (op ReplaceText) Policy() Policy { return op.Pol }

// InsertParagraphAfter resolves Anchor to index i and inserts a new paragraph
// at i+1. Empty Text inserts an empty paragraph.
type InsertParagraphAfter struct {
	Anchor Anchor
	Text   string
	Pol    Policy
}

func (op InsertParagraphAfter) Apply(doc *Document, _ *zap.Logger) error {
	i, ok := op.Anchor.Resolve(doc)
	if !ok {
		return anchorErr(op.Anchor)
	}
	return doc.InsertAt(i+1, ParagraphBlock(NewParagraph(op.Text)))
}

func (op InsertParagraphAfter) Describe() string {
	return fmt.Sprintf("insert paragraph after %s", op.Anchor)
}

func (op InsertParagraphAfter) Policy() Policy { return op.Pol }

// InsertParagraphsAfter inserts several paragraphs after the anchor keeping
// the given order. Used for regenerated narrative sections.
type InsertParagraphsAfter struct {
	Anchor Anchor
	Texts  []string
	Pol    Policy
}

func (op InsertParagraphsAfter) Apply(doc *Document, _ *zap.Logger) error {
	i, ok := op.Anchor.Resolve(doc)
	if !ok {
		return anchorErr(op.Anchor)
	}
	for n, text := range op.Texts {
		if err := doc.InsertAt(i+1+n, ParagraphBlock(NewParagraph(text))); err != nil {
			return err
		}
	}
	return nil
}

func (op InsertParagraphsAfter) Describe() string {
	return fmt.Sprintf("insert %d paragraphs after %s", len(op.Texts), op.Anchor)
}

func (op InsertParagraphsAfter) Policy() Policy { return op.Pol }

// InsertParagraphsBefore inserts several paragraphs directly before the
// anchored block keeping the given order. The anchored block ends up right
// after the last inserted paragraph.
type InsertParagraphsBefore struct {
	Anchor Anchor
	Texts  []string
	Pol    Policy
}

func (op InsertParagraphsBefore) Apply(doc *Document, _ *zap.Logger) error {
	i, ok := op.Anchor.Resolve(doc)
	if !ok {
		return anchorErr(op.Anchor)
	}
	for n, text := range op.Texts {
		if err := doc.InsertAt(i+n, ParagraphBlock(NewParagraph(text))); err != nil {
			return err
		}
	}
	return nil
}

func (op InsertParagraphsBefore) Describe() string {
	return fmt.Sprintf("insert %d paragraphs before %s", len(op.Texts), op.Anchor)
}

func (op InsertParagraphsBefore) Policy() Policy { return op.Pol }

// InsertImageAfter places a paragraph holding an inline image at anchor+1
// and, when Caption is not empty, a caption paragraph right after it. When
// the block at anchor+1 already holds an image the blob is replaced in place,
// so rerunning the pipeline never stacks duplicate figures.
type InsertImageAfter struct {
	Anchor  Anchor
	Image   *ImageRef
	Caption string
	Pol     Policy
}

func (op InsertImageAfter) Apply(doc *Document, _ *zap.Logger) error {
	i, ok := op.Anchor.Resolve(doc)
	if !ok {
		return anchorErr(op.Anchor)
	}

	if next, err := doc.BlockAt(i + 1); err == nil &&
		next.Kind == BlockKindParagraph && next.Paragraph.HasImage() {
		next.Paragraph.Runs = []Run{{Image: op.Image}}
		return nil
	}

	para := &Paragraph{Runs: []Run{{Image: op.Image}}}
	if err := doc.InsertAt(i+1, ParagraphBlock(para)); err != nil {
		return err
	}
	if op.Caption == "" {
		return nil
	}
	return doc.InsertAt(i+2, ParagraphBlock(NewParagraph(op.Caption)))
}

func (op InsertImageAfter) Describe() string {
	return fmt.Sprintf("insert image after %s", op.Anchor)
}

func (op InsertImageAfter) Policy() Policy { return op.Pol }

// InsertTableAfter constructs a Rows x Cols table of empty cells, inserts it
// at anchor+1 and hands the live table to Then for immediate population.
// Follow-up writes go through table identity, not index, so later anchor
// resolutions invalidate nothing.
type InsertTableAfter struct {
	Anchor Anchor
	Rows   int
	Cols   int
	Then   func(*Table) error
	Pol    Policy
}

func (op InsertTableAfter) Apply(doc *Document, _ *zap.Logger) error {
	i, ok := op.Anchor.Resolve(doc)
	if !ok {
		return anchorErr(op.Anchor)
	}
	t := NewTable(op.Rows, op.Cols)
	if err := doc.InsertAt(i+1, TableBlock(t)); err != nil {
		return err
	}
	if op.Then != nil {
		if err := op.Then(t); err != nil {
			return fmt.Errorf("populating inserted table: %w", err)
		}
	}
	return nil
}

func (op InsertTableAfter) Describe() string {
	return fmt.Sprintf("insert %dx%d table after %s", op.Rows, op.Cols, op.Anchor)
}

func (op InsertTableAfter) Policy() Policy { return op.Pol }

// DeleteRange resolves Start and End and removes every block with index in
// [start, end), highest index first to avoid index drift mid-removal. An
// empty range (start >= end) is an explicit "nothing to delete" no-op -
// a prior run may have already cleared the section. Unresolved anchors
// follow the operation policy.
type DeleteRange struct {
	Start Predicate
	End   Predicate
	Pol   Policy
}

func (op DeleteRange) Apply(doc *Document, log *zap.Logger) error {
	s, e, ok := doc.FindRange(op.Start, op.End)
	if !ok {
		return anchorErr(op)
	}
	if s >= e {
		log.Debug("Nothing to delete", zap.String("range", op.Describe()))
		return nil
	}
	for i := e - 1; i >= s; i-- {
		if err := doc.RemoveAt(i); err != nil {
			return err
		}
	}
	return nil
}

func (op DeleteRange) Describe() string {
	return fmt.Sprintf("delete [%s, %s)", op.Start, op.End)
}

func (op DeleteRange) String() string { return op.Describe() }

func (op DeleteRange) Policy() Policy { return op.Pol }

// TableRef locates a table at apply time.
type TableRef func(*Document) (*Table, error)

// TableAt references the n-th table of the document in block order.
func TableAt(n int) TableRef {
	return func(doc *Document) (*Table, error) {
		tables := doc.Tables()
		if n < 0 || n >= len(tables) {
			return nil, &IndexError{Op: "TableAt", Index: n, Len: len(tables)}
		}
		return tables[n], nil
	}
}

// TableAfter references the first table following the block matched by the
// anchor.
func TableAfter(a Anchor) TableRef {
	return func(doc *Document) (*Table, error) {
		i, ok := a.Resolve(doc)
		if !ok {
			return nil, anchorErr(a)
		}
		for ; i < doc.Len(); i++ {
			b, err := doc.BlockAt(i)
			if err != nil {
				return nil, err
			}
			if b.Kind == BlockKindTable {
				return b.Table, nil
			}
		}
		return nil, anchorErr(a)
	}
}

// RegenerateTable clears the data rows of the referenced table and appends
// one row per dataset record. See Regenerate for the contract.
type RegenerateTable[T any] struct {
	Table   TableRef
	Dataset []T
	Render  RowRenderer[T]
	Style   *TableStyle
	Pol     Policy
}

func (op RegenerateTable[T]) Apply(doc *Document, log *zap.Logger) error {
	t, err := op.Table(doc)
	if err != nil {
		return err
	}
	if err := Regenerate(t, op.Dataset, op.Render); err != nil {
		return err
	}
	if op.Style != nil {
		ApplyTableStyle(t, *op.Style)
	}
	log.Debug("Table regenerated", zap.Int("rows", len(op.Dataset)))
	return nil
}

func (op RegenerateTable[T]) Describe() string {
	return fmt.Sprintf("regenerate table with %d rows", len(op.Dataset))
}

func (op RegenerateTable[T]) Policy() Policy { return op.Pol }
