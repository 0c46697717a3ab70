package composer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ahmedjamion/pdf-merger/internal/imaging"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pdfdoc"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const mediaBox = "/MediaBox"

// content is one drawable source page. draw takes a gofpdf rectangle with a
// top-left origin.
type content struct {
	size Size
	draw func(x, y, w, h float64)
}

// sourceDoc is a document parsed once for the duration of a compose call.
// dims are the displayed page boxes, so a page carrying /Rotate 90 or 270
// reports its media box with width and height swapped, matching the template
// gofpdi imports for it.
type sourceDoc struct {
	rs        io.ReadSeeker
	dims      []types.Dim
	templates map[int]int
}

// sourceSet resolves source pages into content for one output document.
type sourceSet struct {
	pdf     *gofpdf.Fpdf
	quality models.Quality
	imp     *gofpdi.Importer
	docs    map[string]*sourceDoc
	images  map[string]content
}

func newSourceSet(pdf *gofpdf.Fpdf, quality models.Quality) *sourceSet {
	return &sourceSet{
		pdf:     pdf,
		quality: quality,
		imp:     gofpdi.NewImporter(),
		docs:    make(map[string]*sourceDoc),
		images:  make(map[string]content),
	}
}

func (s *sourceSet) resolve(f *models.SourceFile, pageIndex int) (content, error) {
	if f.Kind.IsDocument() {
		return s.documentPage(f, pageIndex)
	}
	return s.image(f)
}

func (s *sourceSet) documentPage(f *models.SourceFile, pageIndex int) (c content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s page %d: %v", ErrUnreadableSource, f.Name, pageIndex+1, r)
		}
	}()

	doc, err := s.open(f)
	if err != nil {
		return content{}, err
	}
	if pageIndex < 0 || pageIndex >= len(doc.dims) {
		return content{}, fmt.Errorf("%w: %s has no page %d", ErrUnreadableSource, f.Name, pageIndex+1)
	}

	pageNo := pageIndex + 1
	tpl, ok := doc.templates[pageNo]
	if !ok {
		tpl = s.imp.ImportPageFromStream(s.pdf, &doc.rs, pageNo, mediaBox)
		if err := s.pdf.Error(); err != nil {
			return content{}, fmt.Errorf("%w: %s page %d: %v", ErrUnreadableSource, f.Name, pageNo, err)
		}
		doc.templates[pageNo] = tpl
	}

	dim := doc.dims[pageIndex]
	size := Size{W: dim.Width, H: dim.Height}
	if size.W <= 0 || size.H <= 0 {
		return content{}, fmt.Errorf("%w: %s page %d has no media box", ErrUnreadableSource, f.Name, pageNo)
	}
	return content{
		size: size,
		draw: func(x, y, w, h float64) {
			s.imp.UseImportedTemplate(s.pdf, tpl, x, y, w, h)
		},
	}, nil
}

func (s *sourceSet) open(f *models.SourceFile) (*sourceDoc, error) {
	if doc, ok := s.docs[f.ID]; ok {
		return doc, nil
	}
	normalized, err := pdfdoc.Normalize(f.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, f.Name, err)
	}
	dims, err := pdfdoc.PageDims(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, f.Name, err)
	}
	doc := &sourceDoc{
		rs:        bytes.NewReader(normalized),
		dims:      dims,
		templates: make(map[int]int),
	}
	s.docs[f.ID] = doc
	return doc, nil
}

func (s *sourceSet) image(f *models.SourceFile) (content, error) {
	if c, ok := s.images[f.ID]; ok {
		return c, nil
	}
	enc, err := imaging.Prepare(f.Bytes(), s.quality)
	if err != nil {
		return content{}, fmt.Errorf("%w: %s: %v", ErrUnreadableSource, f.Name, err)
	}

	name := "img-" + f.ID
	opts := gofpdf.ImageOptions{ImageType: "JPG", AllowNegativePosition: true}
	s.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(enc.Data))
	if err := s.pdf.Error(); err != nil {
		return content{}, fmt.Errorf("%w: %s: %v", ErrEncode, f.Name, err)
	}

	c := content{
		size: Size{W: float64(enc.Width), H: float64(enc.Height)},
		draw: func(x, y, w, h float64) {
			s.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
		},
	}
	s.images[f.ID] = c
	return c, nil
}
