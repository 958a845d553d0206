package flow

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngBlob(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, 0, color.RGBA{R: 0x11, G: 0x66, B: 0x93, A: 0xff})
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func decodedWidth(t *testing.T, data []byte) int {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	return cfg.Width
}

func TestNewImageRef(t *testing.T) {
	t.Run("sniffs_media_type", func(t *testing.T) {
		ref, err := NewImageRef(pngBlob(t, 100, 50), 0)
		if err != nil {
			t.Fatalf("NewImageRef() error = %v", err)
		}
		if ref.MimeType != "image/png" {
			t.Fatalf("MimeType = %q, want image/png", ref.MimeType)
		}
		if ref.Width != 0 {
			t.Fatalf("Width = %d, want 0 (natural size)", ref.Width)
		}
	})

	t.Run("downscales_to_width_hint", func(t *testing.T) {
		ref, err := NewImageRef(pngBlob(t, 1200, 400), 600)
		if err != nil {
			t.Fatalf("NewImageRef() error = %v", err)
		}
		if got := decodedWidth(t, ref.Data); got != 600 {
			t.Fatalf("stored width = %d, want 600", got)
		}
	})

	t.Run("never_upscales", func(t *testing.T) {
		data := pngBlob(t, 300, 100)
		ref, err := NewImageRef(data, 600)
		if err != nil {
			t.Fatalf("NewImageRef() error = %v", err)
		}
		if !bytes.Equal(ref.Data, data) {
			t.Fatal("narrow image was re-encoded")
		}
	})

	t.Run("rejects_non_image_data", func(t *testing.T) {
		if _, err := NewImageRef([]byte("definitely not pixels"), 600); err == nil {
			t.Fatal("NewImageRef() accepted junk")
		}
	})
}

func TestStripImages(t *testing.T) {
	d := testDoc("heading")
	img := &ImageRef{MimeType: "image/png", Data: []byte{1}}
	_ = d.Append(ParagraphBlock(&Paragraph{Runs: []Run{{Image: img}}}))
	_ = d.Append(ParagraphBlock(NewParagraph("caption")))
	table := NewTable(1, 1)
	_ = d.Append(TableBlock(table))

	d.StripImages()

	got := blockTexts(t, d)
	if len(got) != 3 || got[0] != "heading" || got[1] != "caption" {
		t.Fatalf("after strip = %v", got)
	}
	if len(d.Tables()) != 1 {
		t.Fatal("table was stripped")
	}
}
