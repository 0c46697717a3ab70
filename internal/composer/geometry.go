package composer

import (
	"math"

	"github.com/ahmedjamion/pdf-merger/internal/models"
)

// Size is a width and height in points.
type Size struct {
	W, H float64
}

// Landscape reports whether the size is wider than tall.
func (s Size) Landscape() bool { return s.W > s.H }

// Box is a rectangle in PDF space, origin at the bottom-left.
type Box struct {
	X, Y, W, H float64
}

// Placement is where unrotated content is drawn so that rotating it by
// Rotation degrees counter-clockwise about (X, Y) lands it in the fitted box.
type Placement struct {
	X, Y, W, H float64
	Rotation   int
}

var standardSizes = map[models.PageSize]Size{
	models.PageSizeA3:        {W: 841.89, H: 1190.55},
	models.PageSizeA4:        {W: 595.28, H: 841.89},
	models.PageSizeA5:        {W: 419.53, H: 595.28},
	models.PageSizeLetter:    {W: 612, H: 792},
	models.PageSizeLegal:     {W: 612, H: 1008},
	models.PageSizeFolio:     {W: 612, H: 936},
	models.PageSizeTabloid:   {W: 792, H: 1224},
	models.PageSizeExecutive: {W: 522, H: 756},
	models.PageSizeB5:        {W: 498.9, H: 708.66},
}

// StandardSize returns the portrait box of a named page size.
func StandardSize(ps models.PageSize) (Size, bool) {
	s, ok := standardSizes[ps]
	return s, ok
}

// NormalizeRotation maps any angle onto 0, 90, 180 or 270. Angles that are
// not a multiple of 90 fall back to 0.
func NormalizeRotation(deg int) int {
	switch n := ((deg % 360) + 360) % 360; n {
	case 90, 180, 270:
		return n
	}
	return 0
}

// ResolvePageBox picks the output page box for content of the given
// unrotated size.
func ResolvePageBox(content Size, pageSize models.PageSize, orientation models.Orientation) Size {
	base, ok := StandardSize(pageSize)
	if !ok {
		return content
	}
	landscape := orientation == models.OrientationLandscape
	if orientation != models.OrientationPortrait && orientation != models.OrientationLandscape {
		landscape = content.Landscape()
	}
	long, short := math.Max(base.W, base.H), math.Min(base.W, base.H)
	if landscape {
		return Size{W: long, H: short}
	}
	return Size{W: short, H: long}
}

// RotatedSize is the bounding box of content after rotation.
func RotatedSize(s Size, rotation int) Size {
	if rotation == 90 || rotation == 270 {
		return Size{W: s.H, H: s.W}
	}
	return s
}

// FitWithin scales content uniformly to fit page and centers it.
func FitWithin(content, page Size) Box {
	scale := math.Min(page.W/content.W, page.H/content.H)
	w, h := content.W*scale, content.H*scale
	return Box{X: (page.W - w) / 2, Y: (page.H - h) / 2, W: w, H: h}
}

// ResolvePlacement anchors the draw origin at the corner of box that the
// rotation pivots around.
func ResolvePlacement(box Box, rotation int) Placement {
	switch rotation {
	case 90:
		return Placement{X: box.X + box.W, Y: box.Y, W: box.H, H: box.W, Rotation: 90}
	case 180:
		return Placement{X: box.X + box.W, Y: box.Y + box.H, W: box.W, H: box.H, Rotation: 180}
	case 270:
		return Placement{X: box.X, Y: box.Y + box.H, W: box.H, H: box.W, Rotation: 270}
	}
	return Placement{X: box.X, Y: box.Y, W: box.W, H: box.H}
}

// Layout is the full geometry of one output page.
type Layout struct {
	Page      Size
	Fit       Box
	Placement Placement
}

// Plan computes the output page and content placement for content of the
// given unrotated size.
func Plan(content Size, rotation int, settings models.ExportSettings) Layout {
	rot := NormalizeRotation(rotation)
	page := ResolvePageBox(content, settings.PageSize, settings.Orientation)
	fit := FitWithin(RotatedSize(content, rot), page)
	return Layout{Page: page, Fit: fit, Placement: ResolvePlacement(fit, rot)}
}
