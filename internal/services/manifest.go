package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ahmedjamion/pdf-merger/internal/models"
)

// ErrInvalidManifest marks manifests that cannot describe a compose job.
var ErrInvalidManifest = errors.New("invalid manifest")

// ParseManifest decodes and checks a compose manifest and returns it with its
// resolved export settings. Unknown fields are rejected so typos in settings
// do not silently fall back to defaults.
func ParseManifest(data []byte) (*models.ComposeManifest, models.ExportSettings, error) {
	m, err := decodeManifest(data)
	if err != nil {
		return nil, models.ExportSettings{}, err
	}
	settings, err := ExportSettings(m.Settings)
	if err != nil {
		return nil, models.ExportSettings{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return m, settings, nil
}

func decodeManifest(data []byte) (*models.ComposeManifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var m models.ComposeManifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if len(m.Sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrInvalidManifest)
	}
	for i, s := range m.Sources {
		if strings.TrimSpace(s.Object) == "" {
			return nil, fmt.Errorf("%w: source %d has no object", ErrInvalidManifest, i)
		}
	}
	for i, p := range m.Pages {
		if p.Source < 0 || p.Source >= len(m.Sources) {
			return nil, fmt.Errorf("%w: page %d references source %d of %d", ErrInvalidManifest, i, p.Source, len(m.Sources))
		}
		if p.Page < 0 {
			return nil, fmt.Errorf("%w: page %d has negative index", ErrInvalidManifest, i)
		}
		if p.Rotation%90 != 0 {
			return nil, fmt.Errorf("%w: page %d rotation %d is not a multiple of 90", ErrInvalidManifest, i, p.Rotation)
		}
	}
	return &m, nil
}

// ExportSettings converts string settings into validated export settings.
// Empty fields keep their defaults.
func ExportSettings(s models.ManifestSettings) (models.ExportSettings, error) {
	out := models.DefaultExportSettings()
	var err error
	if out.PageSize, err = models.ParsePageSize(s.PageSize); err != nil {
		return out, err
	}
	if out.Orientation, err = models.ParseOrientation(s.Orientation); err != nil {
		return out, err
	}
	if out.Quality, err = models.ParseQuality(s.Quality); err != nil {
		return out, err
	}
	out.FileName = models.SanitizeFileName(s.FileName)
	return out, nil
}

// sourceName is the display name of a manifest source.
func sourceName(s models.ManifestSource) string {
	return path.Base(s.Object)
}
