// Package flow implements an ordered block-level document model with
// anchor-based structural mutations. A document is a flat sequence of
// paragraphs and tables; positions inside it are always located by textual
// anchors resolved against the current state, never by cached indices.
package flow

import (
	"fmt"
	"strings"
)

// Specification of block variants making up document content.
// ENUM(paragraph, table)
type BlockKind int

const (
	BlockKindParagraph BlockKind = iota
	BlockKindTable
)

func (k BlockKind) String() string {
	switch k {
	case BlockKindParagraph:
		return "paragraph"
	case BlockKindTable:
		return "table"
	default:
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
}

// Run is a contiguous span of paragraph content sharing formatting. A run
// holds either text or an inline image reference, not both.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Image  *ImageRef
}

// ImageRef is an opaque image blob to be embedded inline. The model never
// interprets the data beyond what embedding requires.
type ImageRef struct {
	MimeType string
	Data     []byte
	// Width is the desired embedding width in pixels. Zero means natural size.
	Width int
}

// Paragraph is an ordered sequence of runs.
type Paragraph struct {
	Runs []Run
}

// Text returns the derived paragraph text - concatenation of all run texts.
// Image runs contribute nothing.
func (p *Paragraph) Text() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for i := range p.Runs {
		b.WriteString(p.Runs[i].Text)
	}
	return b.String()
}

// SetText replaces paragraph content with a single run holding text.
// Formatting of the first existing run is kept, matching the behavior
// document templates expect from in-place text replacement.
func (p *Paragraph) SetText(text string) {
	run := Run{Text: text}
	if len(p.Runs) > 0 {
		run.Bold = p.Runs[0].Bold
		run.Italic = p.Runs[0].Italic
	}
	p.Runs = []Run{run}
}

// NewParagraph creates a paragraph with a single text run. Empty text yields
// an empty paragraph.
func NewParagraph(text string) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.Runs = []Run{{Text: text}}
	}
	return p
}

// Cell holds exactly one paragraph. The format allows nested blocks in
// general, we restrict cells to a single paragraph.
type Cell struct {
	Para    Paragraph
	Shading string // background fill, empty means none
	Align   CellAlignment
}

// Row is an ordered sequence of cells.
type Row struct {
	Cells []Cell
}

// Table is an ordered sequence of rows. Row 0 is the header by convention and
// is never removed by regeneration.
type Table struct {
	Rows    []Row
	Borders bool
}

// NewTable creates a table with rows x cols empty cells.
func NewTable(rows, cols int) *Table {
	t := &Table{Rows: make([]Row, rows)}
	for i := range t.Rows {
		t.Rows[i].Cells = make([]Cell, cols)
	}
	return t
}

// Cols returns the number of cells in the header row.
func (t *Table) Cols() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Cells)
}

// SetRowText fills row cells from texts, left to right. Extra texts are
// ignored, missing ones leave cells untouched.
func (t *Table) SetRowText(row int, texts ...string) error {
	if row < 0 || row >= len(t.Rows) {
		return &IndexError{Op: "SetRowText", Index: row, Len: len(t.Rows)}
	}
	cells := t.Rows[row].Cells
	for i, text := range texts {
		if i >= len(cells) {
			break
		}
		cells[i].Para.SetText(text)
	}
	return nil
}

// AppendRow adds a data row populated from texts and returns its index.
func (t *Table) AppendRow(texts ...string) int {
	row := Row{Cells: make([]Cell, len(texts))}
	for i, text := range texts {
		row.Cells[i].Para.SetText(text)
	}
	t.Rows = append(t.Rows, row)
	return len(t.Rows) - 1
}

// ClearDataRows removes every row except the header (row 0). A table without
// a header cannot be regenerated and is reported as malformed.
func (t *Table) ClearDataRows() error {
	if len(t.Rows) == 0 {
		return ErrMalformedTable
	}
	t.Rows = t.Rows[:1]
	return nil
}

// Text returns the derived table text - all cell paragraphs joined with
// single spaces in row-major order. Anchors rarely target tables but the
// resolver treats every block uniformly.
func (t *Table) Text() string {
	var parts []string
	for i := range t.Rows {
		for j := range t.Rows[i].Cells {
			if s := t.Rows[i].Cells[j].Para.Text(); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// Block is a kind-discriminated union of document content variants.
type Block struct {
	Kind      BlockKind
	Paragraph *Paragraph
	Table     *Table
}

// Text returns the derived text of the block used for anchor matching.
func (b *Block) Text() string {
	switch b.Kind {
	case BlockKindParagraph:
		return b.Paragraph.Text()
	case BlockKindTable:
		return b.Table.Text()
	default:
		return ""
	}
}

// ParagraphBlock wraps a paragraph into a block.
func ParagraphBlock(p *Paragraph) Block {
	return Block{Kind: BlockKindParagraph, Paragraph: p}
}

// TableBlock wraps a table into a block.
func TableBlock(t *Table) Block {
	return Block{Kind: BlockKindTable, Table: t}
}

// Document is an exclusively owned ordered sequence of blocks. It is not safe
// for concurrent mutation - the whole pipeline is a single sequential pass.
type Document struct {
	blocks    []Block
	finalized bool
}

// NewDocument creates an empty document for fresh-build mode.
func NewDocument() *Document {
	return &Document{}
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// Blocks returns a shallow copy of the block sequence. Mutating the returned
// slice does not change document structure.
func (d *Document) Blocks() []Block {
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// BlockAt returns the block at index i.
func (d *Document) BlockAt(i int) (*Block, error) {
	if i < 0 || i >= len(d.blocks) {
		return nil, &IndexError{Op: "BlockAt", Index: i, Len: len(d.blocks)}
	}
	return &d.blocks[i], nil
}

// InsertAt inserts a block at index i shifting every subsequent block by one.
// i == Len() appends. Callers must not cache indices across this call.
func (d *Document) InsertAt(i int, b Block) error {
	if d.finalized {
		return ErrFinalized
	}
	if i < 0 || i > len(d.blocks) {
		return &IndexError{Op: "InsertAt", Index: i, Len: len(d.blocks)}
	}
	d.blocks = append(d.blocks, Block{})
	copy(d.blocks[i+1:], d.blocks[i:])
	d.blocks[i] = b
	return nil
}

// Append adds a block at the end of the document.
func (d *Document) Append(b Block) error {
	return d.InsertAt(len(d.blocks), b)
}

// RemoveAt removes the block at index i shifting every subsequent block by
// one. The block is excised completely, there is no tombstone state.
func (d *Document) RemoveAt(i int) error {
	if d.finalized {
		return ErrFinalized
	}
	if i < 0 || i >= len(d.blocks) {
		return &IndexError{Op: "RemoveAt", Index: i, Len: len(d.blocks)}
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	return nil
}

// SetText replaces the text of the paragraph block at index i.
func (d *Document) SetText(i int, text string) error {
	if d.finalized {
		return ErrFinalized
	}
	if i < 0 || i >= len(d.blocks) {
		return &IndexError{Op: "SetText", Index: i, Len: len(d.blocks)}
	}
	if d.blocks[i].Kind != BlockKindParagraph {
		return fmt.Errorf("SetText: block %d is a %s: %w", i, d.blocks[i].Kind, ErrNotParagraph)
	}
	d.blocks[i].Paragraph.SetText(text)
	return nil
}

// Tables returns all table blocks in document order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for i := range d.blocks {
		if d.blocks[i].Kind == BlockKindTable {
			out = append(out, d.blocks[i].Table)
		}
	}
	return out
}

// Finalize closes the document for mutation. Applying any structural
// operation afterwards fails.
func (d *Document) Finalize() {
	d.finalized = true
}

// Finalized reports whether the document was closed for mutation.
func (d *Document) Finalized() bool {
	return d.finalized
}

// Clone returns a deep copy of the document. The copy is open for mutation
// regardless of the state of the original - this is the building block for
// the atomic-swap pattern and for degraded persistence retries.
func (d *Document) Clone() *Document {
	out := &Document{blocks: make([]Block, len(d.blocks))}
	for i := range d.blocks {
		out.blocks[i] = cloneBlock(d.blocks[i])
	}
	return out
}

func cloneBlock(b Block) Block {
	switch b.Kind {
	case BlockKindParagraph:
		return ParagraphBlock(cloneParagraph(b.Paragraph))
	case BlockKindTable:
		return TableBlock(cloneTable(b.Table))
	default:
		return b
	}
}

func cloneParagraph(p *Paragraph) *Paragraph {
	out := &Paragraph{Runs: make([]Run, len(p.Runs))}
	copy(out.Runs, p.Runs)
	for i := range out.Runs {
		if img := out.Runs[i].Image; img != nil {
			c := *img
			c.Data = append([]byte(nil), img.Data...)
			out.Runs[i].Image = &c
		}
	}
	return out
}

func cloneTable(t *Table) *Table {
	out := &Table{Rows: make([]Row, len(t.Rows)), Borders: t.Borders}
	for i := range t.Rows {
		out.Rows[i].Cells = make([]Cell, len(t.Rows[i].Cells))
		for j := range t.Rows[i].Cells {
			src := &t.Rows[i].Cells[j]
			out.Rows[i].Cells[j] = Cell{Para: *cloneParagraph(&src.Para), Shading: src.Shading, Align: src.Align}
		}
	}
	return out
}
