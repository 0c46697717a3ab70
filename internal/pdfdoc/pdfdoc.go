// Package pdfdoc wraps the pdfcpu operations used across the module.
//
// pdfcpu can panic on malformed input, so every entry point converts a panic
// into an error.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNoPages is returned for documents without a single page.
var ErrNoPages = errors.New("document has no pages")

func init() {
	// Function runtimes have a read-only home directory.
	api.DisableConfigDir()
}

// Config returns a relaxed-validation configuration.
func Config() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// PageCount returns the number of pages in a PDF payload.
func PageCount(data []byte) (n int, err error) {
	defer recoverInto(&err)
	n, err = api.PageCount(bytes.NewReader(data), Config())
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	if n <= 0 {
		return 0, ErrNoPages
	}
	return n, nil
}

// PageDims returns the width and height in points of every page.
func PageDims(data []byte) (dims []types.Dim, err error) {
	defer recoverInto(&err)
	dims, err = api.PageDims(bytes.NewReader(data), Config())
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, ErrNoPages
	}
	return dims, nil
}

// Normalize rewrites a PDF with classic cross-reference tables and no object
// streams, the form the page importer understands.
func Normalize(data []byte) (out []byte, err error) {
	defer recoverInto(&err)
	cfg := Config()
	cfg.WriteObjectStream = false
	cfg.WriteXRefStream = false
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to normalize PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Optimize dedupes resources of a finished document.
func Optimize(data []byte) (out []byte, err error) {
	defer recoverInto(&err)
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, Config()); err != nil {
		return nil, fmt.Errorf("failed to optimize PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// LargestImage decodes the embedded raster image with the most pixels on the
// given zero-based page. It returns nil without error when the page carries
// no image Go can decode.
func LargestImage(data []byte, pageIndex int) (img image.Image, err error) {
	defer recoverInto(&err)
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), []string{fmt.Sprint(pageIndex + 1)}, Config())
	if err != nil {
		return nil, fmt.Errorf("failed to extract images of page %d: %w", pageIndex+1, err)
	}
	var best image.Image
	bestArea := 0
	for _, images := range pages {
		for _, pi := range images {
			if pi.Reader == nil {
				continue
			}
			decoded, _, derr := image.Decode(pi.Reader)
			if derr != nil {
				continue
			}
			b := decoded.Bounds()
			if area := b.Dx() * b.Dy(); area > bestArea {
				best, bestArea = decoded, area
			}
		}
	}
	return best, nil
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf processing panicked: %v", r)
	}
}
