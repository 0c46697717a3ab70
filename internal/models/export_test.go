package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		` report<>:"/\|?*.pdf   `: "report",
		"   ":                     DefaultFileName,
		"":                        DefaultFileName,
		"Quarterly.PDF":           "Quarterly",
		"notes...":                "notes",
		"a\x01b\x1fc":             "abc",
		"plan. v2 . ":             "plan. v2",
		".pdf":                    DefaultFileName,
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFileName(in), "input %q", in)
	}
}

func TestExportSettings_OutputName(t *testing.T) {
	s := DefaultExportSettings()
	assert.Equal(t, "merged-document.pdf", s.OutputName())

	s.FileName = "scan.pdf"
	assert.Equal(t, "scan.pdf", s.OutputName())
}

func TestParseEnumerations(t *testing.T) {
	size, err := ParsePageSize(" A4 ")
	require.NoError(t, err)
	assert.Equal(t, PageSizeA4, size)

	size, err = ParsePageSize("")
	require.NoError(t, err)
	assert.Equal(t, PageSizeOriginal, size)

	_, err = ParsePageSize("a0")
	assert.Error(t, err)

	o, err := ParseOrientation("Landscape")
	require.NoError(t, err)
	assert.Equal(t, OrientationLandscape, o)
	_, err = ParseOrientation("diagonal")
	assert.Error(t, err)

	q, err := ParseQuality("")
	require.NoError(t, err)
	assert.Equal(t, QualityHigh, q)
	_, err = ParseQuality("ultra")
	assert.Error(t, err)
}

func TestMetadataKeyAndOriginKey(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "a.pdf:10:1700000000123", MetadataKey("a.pdf", 10, ts))
	assert.Equal(t, "f1:3", OriginKey("f1", 3))

	p := NewPayload("a.png", "image/png", ts, []byte{1, 2, 3})
	assert.Equal(t, int64(3), p.Size)
}
