package composer

import (
	"math"
	"testing"

	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/stretchr/testify/assert"
)

const eps = 0.01

// rotatedExtent applies the placement's rotation about its origin and returns
// the resulting bounding box.
func rotatedExtent(p Placement) Box {
	rad := float64(p.Rotation) * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {p.W, 0}, {0, p.H}, {p.W, p.H}} {
		x := p.X + c[0]*cos - c[1]*sin
		y := p.Y + c[0]*sin + c[1]*cos
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func TestResolvePlacement_LandsInFittedBox(t *testing.T) {
	box := Box{X: 10, Y: 20, W: 300, H: 200}
	for _, rot := range []int{0, 90, 180, 270} {
		content := RotatedSize(Size{W: box.W, H: box.H}, rot)
		p := ResolvePlacement(box, rot)
		assert.InDelta(t, content.W, p.W, eps, "rotation %d", rot)
		assert.InDelta(t, content.H, p.H, eps, "rotation %d", rot)

		got := rotatedExtent(p)
		assert.InDelta(t, box.X, got.X, eps, "rotation %d", rot)
		assert.InDelta(t, box.Y, got.Y, eps, "rotation %d", rot)
		assert.InDelta(t, box.W, got.W, eps, "rotation %d", rot)
		assert.InDelta(t, box.H, got.H, eps, "rotation %d", rot)
	}
}

func TestResolvePageBox(t *testing.T) {
	portrait := Size{W: 400, H: 600}
	landscape := Size{W: 600, H: 400}

	assert.Equal(t, portrait, ResolvePageBox(portrait, models.PageSizeOriginal, models.OrientationLandscape))
	assert.Equal(t, Size{W: 595.28, H: 841.89}, ResolvePageBox(portrait, models.PageSizeA4, models.OrientationAuto))
	assert.Equal(t, Size{W: 841.89, H: 595.28}, ResolvePageBox(landscape, models.PageSizeA4, models.OrientationAuto))
	assert.Equal(t, Size{W: 612, H: 792}, ResolvePageBox(landscape, models.PageSizeLetter, models.OrientationPortrait))
	assert.Equal(t, Size{W: 1224, H: 792}, ResolvePageBox(portrait, models.PageSizeTabloid, models.OrientationLandscape))
}

func TestFitWithin_Centers(t *testing.T) {
	fit := FitWithin(Size{W: 100, H: 50}, Size{W: 400, H: 400})
	assert.InDelta(t, 400, fit.W, eps)
	assert.InDelta(t, 200, fit.H, eps)
	assert.InDelta(t, 0, fit.X, eps)
	assert.InDelta(t, 100, fit.Y, eps)
}

func TestNormalizeRotation(t *testing.T) {
	assert.Equal(t, 270, NormalizeRotation(-90))
	assert.Equal(t, 90, NormalizeRotation(450))
	assert.Equal(t, 0, NormalizeRotation(360))
	assert.Equal(t, 0, NormalizeRotation(45))
}

func TestPlan_RotatedLandscapeIntoA4Landscape(t *testing.T) {
	settings := models.ExportSettings{PageSize: models.PageSizeA4, Orientation: models.OrientationLandscape}
	l := Plan(Size{W: 841.89, H: 595.28}, 90, settings)

	assert.InDelta(t, 841.89, l.Page.W, eps)
	assert.InDelta(t, 595.28, l.Page.H, eps)

	// Rotated content is portrait, so height limits the fit.
	assert.InDelta(t, 595.28, l.Fit.H, eps)
	assert.InDelta(t, 595.28*595.28/841.89, l.Fit.W, eps)
	assert.InDelta(t, (l.Page.W-l.Fit.W)/2, l.Fit.X, eps)

	got := rotatedExtent(l.Placement)
	assert.GreaterOrEqual(t, got.X, -eps)
	assert.GreaterOrEqual(t, got.Y, -eps)
	assert.LessOrEqual(t, got.X+got.W, l.Page.W+eps)
	assert.LessOrEqual(t, got.Y+got.H, l.Page.H+eps)
}
