// Package testutil generates small PDF and image payloads for tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Size is a page box in points.
type Size struct {
	W, H float64
}

var (
	A4Portrait  = Size{W: 595.28, H: 841.89}
	A4Landscape = Size{W: 841.89, H: 595.28}
	Letter      = Size{W: 612, H: 792}
)

// PDF renders a document with one page per size. Each page carries a filled
// rectangle and its page number.
func PDF(t testing.TB, sizes ...Size) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 14)
	for i, s := range sizes {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: s.W, Ht: s.H})
		pdf.SetFillColor(40, 90, 200)
		pdf.Rect(20, 20, s.W/2, s.H/3, "F")
		pdf.Text(30, s.H-40, fmt.Sprintf("page %d", i+1))
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("render fixture pdf: %v", err)
	}
	return buf.Bytes()
}

// PDFPages renders n A4 portrait pages.
func PDFPages(t testing.TB, n int) []byte {
	t.Helper()
	sizes := make([]Size, n)
	for i := range sizes {
		sizes[i] = A4Portrait
	}
	return PDF(t, sizes...)
}

// Rotated sets /Rotate on every page of a fixture document. The media box is
// left untouched.
func Rotated(t testing.TB, data []byte, degrees int) []byte {
	t.Helper()
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	var buf bytes.Buffer
	if err := api.Rotate(bytes.NewReader(data), &buf, degrees, nil, conf); err != nil {
		t.Fatalf("rotate fixture pdf: %v", err)
	}
	return buf.Bytes()
}

// Image returns a solid w×h image with a darker top-left quadrant.
func Image(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 && y < h/2 {
				img.Set(x, y, color.Black)
				continue
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes a w×h fixture image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(w, h, color.RGBA{R: 220, G: 120, B: 30, A: 255})); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w×h fixture image.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Image(w, h, color.RGBA{R: 30, G: 160, B: 90, A: 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture jpeg: %v", err)
	}
	return buf.Bytes()
}
