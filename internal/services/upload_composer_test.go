package services

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/intake"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(FormFiles, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newUploadComposer(t *testing.T) *UploadComposerFunction {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return NewUploadComposer(cfg)
}

func TestUploadComposer_ReturnsDocument(t *testing.T) {
	req := multipartRequest(t, []upload{
		{"scan.pdf", testutil.PDFPages(t, 2)},
		{"photo.jpg", testutil.JPEG(t, 40, 30)},
		{"readme.md", []byte("# hi")},
	}, map[string]string{FormFileName: "Monthly report", FormPageSize: "letter"})
	rec := httptest.NewRecorder()

	newUploadComposer(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Monthly report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get(HeaderRejectedFiles))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestUploadComposer_NothingAccepted(t *testing.T) {
	req := multipartRequest(t, []upload{{"readme.md", []byte("# hi")}}, nil)
	rec := httptest.NewRecorder()

	newUploadComposer(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp models.UploadRejectedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, "readme.md", resp.Rejected[0].Name)
	assert.Equal(t, []string{intake.ReasonUnsupportedType}, resp.Rejected[0].Reasons)
}

func TestUploadComposer_BadRequests(t *testing.T) {
	h := newUploadComposer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, nil, map[string]string{FormQuality: "high"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, []upload{{"a.pdf", testutil.PDFPages(t, 1)}}, map[string]string{FormQuality: "ultra"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
