package intake

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ahmedjamion/pdf-merger/internal/models"
)

const megabyte = 1024 * 1024

// Limits are the per-file and aggregate caps enforced on import.
type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
	MaxPages     int
}

// DefaultLimits returns 10MB per file, 120MB and 400 pages in total.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:  10 * megabyte,
		MaxTotalSize: 120 * megabyte,
		MaxPages:     400,
	}
}

// Rejection reasons shown to the user.
const (
	ReasonUnsupportedType = "Unsupported file type. Use PDF, JPG, PNG, or WEBP."
	ReasonDuplicate       = "Duplicate files are not allowed."
	ReasonUnreadable      = "Unable to read this file."
)

func (l Limits) fileTooLarge() string {
	return fmt.Sprintf("File size exceeds the %s limit.", formatMB(l.MaxFileSize))
}

func (l Limits) totalTooLarge() string {
	return fmt.Sprintf("Total upload size exceeds %s.", formatMB(l.MaxTotalSize))
}

func (l Limits) tooManyPages() string {
	return fmt.Sprintf("Total page count exceeds %d pages.", l.MaxPages)
}

func formatMB(n int64) string {
	if n%megabyte == 0 {
		return fmt.Sprintf("%dMB", n/megabyte)
	}
	return fmt.Sprintf("%.1fMB", float64(n)/megabyte)
}

var extensionKinds = map[string]models.MediaKind{
	"pdf":  models.KindDocument,
	"jpg":  models.KindJPEG,
	"jpeg": models.KindJPEG,
	"png":  models.KindPNG,
	"webp": models.KindWebP,
}

// NormalizeKind resolves the media kind from the declared type, falling back
// to the file name extension.
func NormalizeKind(declaredType, name string) (models.MediaKind, bool) {
	switch strings.ToLower(strings.TrimSpace(declaredType)) {
	case "application/pdf":
		return models.KindDocument, true
	case "image/jpeg", "image/jpg":
		return models.KindJPEG, true
	case "image/png":
		return models.KindPNG, true
	case "image/webp":
		return models.KindWebP, true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	kind, ok := extensionKinds[ext]
	return kind, ok
}
