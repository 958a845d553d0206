package flow

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Documents are persisted as a small XML flow vocabulary. This is the storage
// for report templates and finished reports, not an interchange format - the
// element set mirrors the block model one to one.

// ReadDocument parses a persisted document or template. Reads are permissive,
// templates edited by hand often carry legacy encodings and sloppy entities.
func ReadDocument(r io.Reader) (*Document, error) {
	xdoc := etree.NewDocument()
	xdoc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		ValidateInput: false,
		Permissive:    true,
	}
	if _, err := xdoc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	root := xdoc.Root()
	if root == nil || root.Tag != "flow" {
		return nil, fmt.Errorf("unable to read document: missing flow root element")
	}

	doc := NewDocument()
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "p":
			doc.blocks = append(doc.blocks, ParagraphBlock(paragraphFromXML(el)))
		case "table":
			t, err := tableFromXML(el)
			if err != nil {
				return nil, err
			}
			doc.blocks = append(doc.blocks, TableBlock(t))
		default:
			return nil, fmt.Errorf("unable to read document: unexpected element <%s>", el.Tag)
		}
	}
	return doc, nil
}

func paragraphFromXML(el *etree.Element) *Paragraph {
	p := &Paragraph{}
	for _, rel := range el.SelectElements("r") {
		run := Run{
			Bold:   rel.SelectAttrValue("b", "") == "1",
			Italic: rel.SelectAttrValue("i", "") == "1",
		}
		if img := rel.SelectElement("img"); img != nil {
			data, err := base64.StdEncoding.DecodeString(img.Text())
			if err == nil {
				width, _ := strconv.Atoi(img.SelectAttrValue("width", "0"))
				run.Image = &ImageRef{
					MimeType: img.SelectAttrValue("type", "application/octet-stream"),
					Data:     data,
					Width:    width,
				}
			}
		} else {
			run.Text = rel.Text()
		}
		p.Runs = append(p.Runs, run)
	}
	return p
}

func tableFromXML(el *etree.Element) (*Table, error) {
	t := &Table{Borders: el.SelectAttrValue("borders", "") == "1"}
	for _, rel := range el.SelectElements("row") {
		var row Row
		for _, cel := range rel.SelectElements("cell") {
			cell := Cell{
				Shading: cel.SelectAttrValue("shading", ""),
				Align:   ParseCellAlignment(cel.SelectAttrValue("align", "")),
			}
			if pel := cel.SelectElement("p"); pel != nil {
				cell.Para = *paragraphFromXML(pel)
			}
			row.Cells = append(row.Cells, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("unable to read document: %w", ErrMalformedTable)
	}
	return t, nil
}

// WriteTo serializes the document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	xdoc := etree.NewDocument()
	xdoc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	xdoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := xdoc.CreateElement("flow")
	for i := range d.blocks {
		switch d.blocks[i].Kind {
		case BlockKindParagraph:
			paragraphToXML(root, d.blocks[i].Paragraph)
		case BlockKindTable:
			tableToXML(root, d.blocks[i].Table)
		}
	}
	xdoc.Indent(2)
	return xdoc.WriteTo(w)
}

func paragraphToXML(parent *etree.Element, p *Paragraph) {
	pel := parent.CreateElement("p")
	for i := range p.Runs {
		run := &p.Runs[i]
		rel := pel.CreateElement("r")
		if run.Bold {
			rel.CreateAttr("b", "1")
		}
		if run.Italic {
			rel.CreateAttr("i", "1")
		}
		if run.Image != nil {
			img := rel.CreateElement("img")
			img.CreateAttr("type", run.Image.MimeType)
			if run.Image.Width > 0 {
				img.CreateAttr("width", strconv.Itoa(run.Image.Width))
			}
			img.SetText(base64.StdEncoding.EncodeToString(run.Image.Data))
			continue
		}
		rel.SetText(run.Text)
	}
}

func tableToXML(parent *etree.Element, t *Table) {
	tel := parent.CreateElement("table")
	if t.Borders {
		tel.CreateAttr("borders", "1")
	}
	for i := range t.Rows {
		rel := tel.CreateElement("row")
		for j := range t.Rows[i].Cells {
			cell := &t.Rows[i].Cells[j]
			cel := rel.CreateElement("cell")
			if cell.Shading != "" {
				cel.CreateAttr("shading", cell.Shading)
			}
			if cell.Align != AlignLeft {
				cel.CreateAttr("align", cell.Align.String())
			}
			paragraphToXML(cel, &cell.Para)
		}
	}
}
