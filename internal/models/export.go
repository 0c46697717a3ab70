package models

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultFileName is used when a requested export name sanitizes to nothing.
const DefaultFileName = "merged-document"

// PageSize selects the output page box.
type PageSize string

const (
	PageSizeOriginal  PageSize = "original"
	PageSizeA3        PageSize = "a3"
	PageSizeA4        PageSize = "a4"
	PageSizeA5        PageSize = "a5"
	PageSizeLetter    PageSize = "letter"
	PageSizeLegal     PageSize = "legal"
	PageSizeFolio     PageSize = "folio"
	PageSizeTabloid   PageSize = "tabloid"
	PageSizeExecutive PageSize = "executive"
	PageSizeB5        PageSize = "b5"
)

// PageSizes lists every accepted page size, original first.
var PageSizes = []PageSize{
	PageSizeOriginal, PageSizeA3, PageSizeA4, PageSizeA5, PageSizeLetter,
	PageSizeLegal, PageSizeFolio, PageSizeTabloid, PageSizeExecutive, PageSizeB5,
}

// Orientation forces portrait or landscape output, or follows the source.
type Orientation string

const (
	OrientationAuto      Orientation = "auto"
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Quality is the image re-encoding tier.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// ExportSettings controls composition of the output document.
type ExportSettings struct {
	FileName    string      `json:"fileName"`
	PageSize    PageSize    `json:"pageSize"`
	Orientation Orientation `json:"orientation"`
	Quality     Quality     `json:"quality"`
}

// DefaultExportSettings returns the settings a new session starts with.
func DefaultExportSettings() ExportSettings {
	return ExportSettings{
		FileName:    DefaultFileName,
		PageSize:    PageSizeOriginal,
		Orientation: OrientationAuto,
		Quality:     QualityHigh,
	}
}

// OutputName returns the download name of the composed document.
func (s ExportSettings) OutputName() string {
	return SanitizeFileName(s.FileName) + ".pdf"
}

var (
	pdfSuffix        = regexp.MustCompile(`(?i)\.pdf$`)
	invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	trailingDots     = regexp.MustCompile(`[. ]+$`)
)

// SanitizeFileName turns user input into a safe, extension-free file name.
func SanitizeFileName(name string) string {
	cleaned := pdfSuffix.ReplaceAllString(strings.TrimSpace(name), "")
	cleaned = invalidNameChars.ReplaceAllString(cleaned, "")
	cleaned = trailingDots.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return DefaultFileName
	}
	return cleaned
}

// ParsePageSize validates a page size name. Empty input means original.
func ParsePageSize(s string) (PageSize, error) {
	v := PageSize(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return PageSizeOriginal, nil
	}
	for _, p := range PageSizes {
		if p == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown page size %q", s)
}

// ParseOrientation validates an orientation name. Empty input means auto.
func ParseOrientation(s string) (Orientation, error) {
	switch v := Orientation(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return OrientationAuto, nil
	case OrientationAuto, OrientationPortrait, OrientationLandscape:
		return v, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

// ParseQuality validates a quality tier. Empty input means high.
func ParseQuality(s string) (Quality, error) {
	switch v := Quality(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return QualityHigh, nil
	case QualityHigh, QualityMedium, QualityLow:
		return v, nil
	}
	return "", fmt.Errorf("unknown quality %q", s)
}
