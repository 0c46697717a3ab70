package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/ahmedjamion/pdf-merger/internal/imaging"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pdfdoc"
	"golang.org/x/image/draw"
)

// ThumbnailQuality is the JPEG quality of rendered previews.
const ThumbnailQuality = 86

// Renderer produces encoded preview images.
type Renderer interface {
	// RenderSource renders one page of an accepted file. Out-of-range page
	// indices render the first page.
	RenderSource(ctx context.Context, f *models.SourceFile, pageIndex int, scale float64) ([]byte, error)
	// RenderPDF renders count pages of pdf starting at start. start is
	// clamped into range and a negative count means every remaining page.
	RenderPDF(ctx context.Context, pdf []byte, start, count int, scale float64) ([][]byte, error)
}

// Rasterizer approximates page rendering in pure Go: a white page of the
// scaled page size with the page's largest embedded image fitted onto it.
// Vector content is not drawn.
type Rasterizer struct {
	docs *documents
}

// NewRasterizer returns a Rasterizer with its own document state.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{docs: newDocuments()}
}

func (r *Rasterizer) RenderSource(ctx context.Context, f *models.SourceFile, pageIndex int, scale float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !f.Kind.IsDocument() {
		img, err := imaging.Decode(f.Bytes())
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		w, h := imaging.ScaledSize(b.Dx(), b.Dy(), scale)
		return imaging.EncodeJPEG(imaging.Flatten(img, w, h), ThumbnailQuality)
	}

	doc, err := r.docs.get(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	return renderPage(doc, doc.clamp(pageIndex), scale)
}

func (r *Rasterizer) RenderPDF(ctx context.Context, pdf []byte, start, count int, scale float64) ([][]byte, error) {
	dims, err := pdfdoc.PageDims(pdf)
	if err != nil {
		return nil, err
	}
	doc := &document{data: pdf, dims: dims}
	first := min(max(start, 0), doc.pageCount()-1)
	remaining := doc.pageCount() - first
	if count < 0 || count > remaining {
		count = remaining
	}

	out := make([][]byte, 0, count)
	for i := first; i < first+count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := renderPage(doc, i, scale)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out = append(out, page)
	}
	return out, nil
}

// Forget drops the decode state of a file.
func (r *Rasterizer) Forget(fileID string) { r.docs.close(fileID) }

func renderPage(doc *document, index int, scale float64) ([]byte, error) {
	dim := doc.dims[index]
	w, h := imaging.ScaledSize(int(dim.Width), int(dim.Height), scale)
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	content, err := pdfdoc.LargestImage(doc.data, index)
	if err == nil && content != nil {
		cb := content.Bounds()
		s := min(float64(w)/float64(cb.Dx()), float64(h)/float64(cb.Dy()))
		fw, fh := imaging.ScaledSize(cb.Dx(), cb.Dy(), s)
		x, y := (w-fw)/2, (h-fh)/2
		draw.CatmullRom.Scale(canvas, image.Rect(x, y, x+fw, y+fh), content, cb, draw.Over, nil)
	}
	return imaging.EncodeJPEG(canvas, ThumbnailQuality)
}
