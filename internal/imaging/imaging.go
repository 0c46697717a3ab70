// Package imaging decodes, scales and re-encodes raster images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/ahmedjamion/pdf-merger/internal/models"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrEmptyImage is returned for images with a zero-sized bounds.
var ErrEmptyImage = errors.New("image has no pixels")

// Profile is the re-encoding setting of a quality tier.
type Profile struct {
	JPEGQuality int
	Scale       float64
}

// ProfileFor maps a quality tier to its JPEG quality and pre-scale factor.
func ProfileFor(q models.Quality) Profile {
	switch q {
	case models.QualityMedium:
		return Profile{JPEGQuality: 75, Scale: 0.85}
	case models.QualityLow:
		return Profile{JPEGQuality: 60, Scale: 0.7}
	default:
		return Profile{JPEGQuality: 90, Scale: 1}
	}
}

// Decode reads a JPEG, PNG or WebP payload.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// ScaledSize multiplies a size by scale, rounding and keeping at least 1px.
func ScaledSize(w, h int, scale float64) (int, int) {
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	return max(sw, 1), max(sh, 1)
}

// Flatten draws img scaled to w×h over a white background.
func Flatten(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Encoded is a re-encoded JPEG with its pixel size.
type Encoded struct {
	Data   []byte
	Width  int
	Height int
}

// Prepare decodes data, pre-scales it and re-encodes it as JPEG using the
// profile of the quality tier.
func Prepare(data []byte, q models.Quality) (Encoded, error) {
	img, err := Decode(data)
	if err != nil {
		return Encoded{}, err
	}
	p := ProfileFor(q)
	b := img.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), p.Scale)
	out, err := EncodeJPEG(Flatten(img, w, h), p.JPEGQuality)
	if err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: out, Width: w, Height: h}, nil
}
