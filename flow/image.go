package flow

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Chart images and other embedded blobs arrive from external collaborators as
// opaque bytes. Before embedding we sniff the media type and, when a width
// hint is declared and the source is wider, downscale so documents do not
// carry megabytes of chart pixels.

// NewImageRef wraps blob data into an embeddable image reference. widthHint
// is the desired embedding width in pixels, zero keeps natural size.
func NewImageRef(data []byte, widthHint int) (*ImageRef, error) {
	kind, err := filetype.Image(data)
	if err != nil {
		return nil, fmt.Errorf("unsupported image data: %w", err)
	}

	ref := &ImageRef{
		MimeType: kind.MIME.Value,
		Data:     data,
		Width:    widthHint,
	}
	if widthHint <= 0 {
		return ref, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// embedding still works, the sink decides what to do with natural size
		return ref, nil
	}
	if cfg.Width <= widthHint {
		return ref, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ref, nil
	}
	resized := imaging.Resize(img, widthHint, 0, imaging.Lanczos)
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("unable to encode resized image: %w", err)
	}
	ref.Data = buf.Bytes()
	ref.MimeType = "image/png"
	return ref, nil
}

// HasImage reports whether the paragraph contains at least one image run.
func (p *Paragraph) HasImage() bool {
	for i := range p.Runs {
		if p.Runs[i].Image != nil {
			return true
		}
	}
	return false
}

// StripImages removes image paragraphs from the document. Used to produce a
// degraded copy for the persistence retry path - generated text and tables
// survive even when embedded blobs are the reason the sink fails.
func (d *Document) StripImages() {
	for i := d.Len() - 1; i >= 0; i-- {
		if d.blocks[i].Kind == BlockKindParagraph && d.blocks[i].Paragraph.HasImage() {
			d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
		}
	}
}
