package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrAnchorNotFound is reported when an anchor predicate matches nothing.
	// Required operations abort the batch on it, best-effort operations
	// degrade to a logged no-op.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrMalformedTable is reported when regeneration meets a table without a
	// header row. Always fatal - header preservation is a hard invariant.
	ErrMalformedTable = errors.New("table has no header row")

	// ErrNotParagraph is reported when a text operation targets a non-paragraph block.
	ErrNotParagraph = errors.New("block is not a paragraph")

	// ErrFinalized is reported when a mutation is attempted on a finalized document.
	ErrFinalized = errors.New("document is finalized")
)

// IndexError is reported when a structural operation references a block or
// row index outside current bounds. It indicates an engine bug or a stale
// cached index and is always fatal to the batch.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range [0, %d)", e.Op, e.Index, e.Len)
}

// AnchorError wraps ErrAnchorNotFound with the predicate description needed
// to reproduce the failure.
type AnchorError struct {
	Anchor string
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor not found: %s", e.Anchor)
}

func (e *AnchorError) Unwrap() error {
	return ErrAnchorNotFound
}

func anchorErr(a fmt.Stringer) error {
	return &AnchorError{Anchor: a.String()}
}
