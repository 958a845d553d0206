package flow

import (
	"fmt"
	"strings"
)

// Anchors locate blocks by their derived text. Predicate evaluation is pure,
// resolution always runs against the current document state - text replaced
// earlier in the same pass is matched with its new value.

// Specification of predicate matching mode.
// ENUM(equals, prefix, contains)
type MatchKind int

const (
	MatchEquals MatchKind = iota
	MatchPrefix
	MatchContains
)

// Predicate matches the whitespace-trimmed derived text of a block.
type Predicate struct {
	Kind MatchKind
	Text string
}

// TextEquals matches blocks whose trimmed text equals s.
func TextEquals(s string) Predicate {
	return Predicate{Kind: MatchEquals, Text: s}
}

// TextPrefix matches blocks whose trimmed text starts with s.
func TextPrefix(s string) Predicate {
	return Predicate{Kind: MatchPrefix, Text: s}
}

// TextContains matches blocks whose text contains s.
func TextContains(s string) Predicate {
	return Predicate{Kind: MatchContains, Text: s}
}

// Match reports whether the block text satisfies the predicate.
func (p Predicate) Match(text string) bool {
	text = strings.TrimSpace(text)
	switch p.Kind {
	case MatchEquals:
		return text == p.Text
	case MatchPrefix:
		return strings.HasPrefix(text, p.Text)
	case MatchContains:
		return strings.Contains(text, p.Text)
	default:
		return false
	}
}

func (p Predicate) String() string {
	switch p.Kind {
	case MatchEquals:
		return fmt.Sprintf("equals %q", p.Text)
	case MatchPrefix:
		return fmt.Sprintf("starts with %q", p.Text)
	case MatchContains:
		return fmt.Sprintf("contains %q", p.Text)
	default:
		return fmt.Sprintf("unknown predicate %q", p.Text)
	}
}

// Find scans blocks in order starting at from and returns the index of the
// first block whose derived text satisfies the predicate.
func (d *Document) Find(p Predicate, from int) (int, bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(d.blocks); i++ {
		if p.Match(d.blocks[i].Text()) {
			return i, true
		}
	}
	return 0, false
}

// FindRange locates the first block matching start, then the first block at
// or after it matching end. If either predicate matches nothing the whole
// range resolution fails.
func (d *Document) FindRange(start, end Predicate) (int, int, bool) {
	s, ok := d.Find(start, 0)
	if !ok {
		return 0, 0, false
	}
	e, ok := d.Find(end, s)
	if !ok {
		return 0, 0, false
	}
	return s, e, true
}

type anchorMode int

const (
	anchorDirect anchorMode = iota
	anchorNextBlock
	anchorFirstMatchAfter
)

// Anchor is a query locating a block index: a predicate plus an optional
// positional offset relative to a context predicate. Anchors are resolved
// fresh before every operation, stale indices are never carried across
// mutations.
type Anchor struct {
	mode    anchorMode
	context Predicate
	match   Predicate
}

// At anchors directly at the first block satisfying p.
func At(p Predicate) Anchor {
	return Anchor{mode: anchorDirect, match: p}
}

// NextBlockAfter anchors at the block immediately following the first block
// satisfying context, provided that block satisfies match. This is the
// "header line directly above the value line" template pattern.
func NextBlockAfter(context, match Predicate) Anchor {
	return Anchor{mode: anchorNextBlock, context: context, match: match}
}

// FirstMatchAfter anchors at the first block satisfying match at any position
// after the first block satisfying context.
func FirstMatchAfter(context, match Predicate) Anchor {
	return Anchor{mode: anchorFirstMatchAfter, context: context, match: match}
}

// Resolve returns the current index of the anchored block.
func (a Anchor) Resolve(d *Document) (int, bool) {
	switch a.mode {
	case anchorDirect:
		return d.Find(a.match, 0)
	case anchorNextBlock:
		i, ok := d.Find(a.context, 0)
		if !ok || i+1 >= d.Len() {
			return 0, false
		}
		if !a.match.Match(d.blocks[i+1].Text()) {
			return 0, false
		}
		return i + 1, true
	case anchorFirstMatchAfter:
		i, ok := d.Find(a.context, 0)
		if !ok {
			return 0, false
		}
		return d.Find(a.match, i+1)
	default:
		return 0, false
	}
}

func (a Anchor) String() string {
	switch a.mode {
	case anchorNextBlock:
		return fmt.Sprintf("block after %s matching %s", a.context, a.match)
	case anchorFirstMatchAfter:
		return fmt.Sprintf("first %s after %s", a.match, a.context)
	default:
		return a.match.String()
	}
}
