// Package composer renders a curated page list into a single PDF.
package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pdfdoc"
	"github.com/jung-kurt/gofpdf"
)

// AllPages disables the page cap of Compose.
const AllPages = -1

var (
	ErrNoPages          = errors.New("no pages to compose")
	ErrUnreadableSource = errors.New("unreadable source")
	ErrEncode           = errors.New("failed to encode output")
)

// Options configures a Composer.
type Options struct {
	// Optimize runs a pdfcpu optimisation pass over the output. A failed pass
	// keeps the unoptimised bytes.
	Optimize bool
	Logger   *slog.Logger
	// Now stamps the document creation date. Defaults to time.Now.
	Now func() time.Time
}

// Composer builds output documents. It keeps no state between calls and is
// safe for concurrent use.
type Composer struct {
	optimize bool
	log      *slog.Logger
	now      func() time.Time
}

// New returns a Composer.
func New(opts Options) *Composer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Composer{optimize: opts.Optimize, log: opts.Logger, now: opts.Now}
}

// Compose renders one output page per page record, in order. Records whose
// source file is not in files are skipped. maxPages caps the number of records
// considered; pass AllPages to compose everything. Any unreadable source
// aborts the whole call and no bytes are returned.
func (c *Composer) Compose(ctx context.Context, files []*models.SourceFile, pages []models.PageRecord, settings models.ExportSettings, maxPages int) ([]byte, error) {
	byID := make(map[string]*models.SourceFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	if maxPages >= 0 && maxPages < len(pages) {
		pages = pages[:maxPages]
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCreator("pdf-merger", true)
	pdf.SetProducer("pdf-merger", true)
	pdf.SetTitle(models.SanitizeFileName(settings.FileName), true)
	pdf.SetCreationDate(c.now())

	sources := newSourceSet(pdf, settings.Quality)
	rendered := 0
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, ok := byID[p.SourceFileID]
		if !ok {
			continue
		}
		src, err := sources.resolve(f, p.SourcePageIndex)
		if err != nil {
			return nil, err
		}
		drawPage(pdf, src, Plan(src.size, p.Rotation, settings))
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrEncode, rendered+1, err)
		}
		rendered++
	}
	if rendered == 0 {
		return nil, ErrNoPages
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	out := buf.Bytes()

	if c.optimize {
		optimized, err := pdfdoc.Optimize(out)
		if err != nil {
			c.log.Warn("Output optimisation failed, keeping raw output.", "error", err)
		} else {
			out = optimized
		}
	}
	c.log.Debug("Composed document.", "pageCount", rendered, "bytes", len(out))
	return out, nil
}

// drawPage adds a page of layout.Page and draws src into it. Placement works
// in PDF space; gofpdf wants top-left coordinates.
func drawPage(pdf *gofpdf.Fpdf, src content, layout Layout) {
	page, pl := layout.Page, layout.Placement
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: page.W, Ht: page.H})
	if pl.Rotation != 0 {
		pdf.TransformBegin()
		pdf.TransformRotate(float64(pl.Rotation), pl.X, page.H-pl.Y)
	}
	src.draw(pl.X, page.H-pl.Y-pl.H, pl.W, pl.H)
	if pl.Rotation != 0 {
		pdf.TransformEnd()
	}
}
