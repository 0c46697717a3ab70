package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/composer"
	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/editor"
	"github.com/ahmedjamion/pdf-merger/internal/models"
)

// Multipart form field names accepted by the upload composer.
const (
	FormFiles        = "files[]"
	FormLastModified = "lastModified[]"
	FormFileName     = "fileName"
	FormPageSize     = "pageSize"
	FormOrientation  = "orientation"
	FormQuality      = "quality"

	HeaderRejectedFiles = "X-Rejected-Files"

	formOverhead = 1 << 20
)

// UploadComposerFunction composes the files of a multipart upload and
// streams the document back.
type UploadComposerFunction struct {
	config *config.Config
}

// NewUploadComposer returns the HTTP compose logic. It needs no cloud
// clients.
func NewUploadComposer(cfg *config.Config) *UploadComposerFunction {
	return &UploadComposerFunction{config: cfg}
}

func (f *UploadComposerFunction) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	logCtx := slog.With("remoteAddr", r.RemoteAddr)

	limits := f.config.Limits.Intake()
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxTotalSize+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		logCtx.Warn("Could not parse multipart form", "error", err)
		http.Error(w, "Bad Request: could not parse multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	settings, err := ExportSettings(models.ManifestSettings{
		FileName:    r.FormValue(FormFileName),
		PageSize:    r.FormValue(FormPageSize),
		Orientation: r.FormValue(FormOrientation),
		Quality:     r.FormValue(FormQuality),
	})
	if err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File[FormFiles]
	if len(headers) == 0 {
		http.Error(w, "Bad Request: no files uploaded", http.StatusBadRequest)
		return
	}
	payloads, err := readPayloads(headers, r.MultipartForm.Value[FormLastModified])
	if err != nil {
		logCtx.Error("Failed to read uploaded files", "error", err)
		http.Error(w, "Bad Request: could not read uploaded files", http.StatusBadRequest)
		return
	}

	opts := editor.OptionsFromConfig(f.config)
	opts.Logger = logCtx
	result, err := Assemble(r.Context(), opts, payloads, settings, nil)
	switch {
	case errors.Is(err, ErrNothingAccepted), errors.Is(err, composer.ErrUnreadableSource), errors.Is(err, composer.ErrNoPages):
		writeRejected(w, err, result)
		return
	case err != nil:
		logCtx.Error("Compose failed", "error", err)
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set(HeaderRejectedFiles, strconv.Itoa(len(result.Rejected)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		logCtx.Error("Failed to write response", "error", err)
	}
	logCtx.Info("Upload composed.", "pageCount", result.PageCount, "rejectedCount", len(result.Rejected))
}

// readPayloads turns multipart files into payloads. lastModified holds
// optional Unix millisecond timestamps in the same order as the files.
func readPayloads(headers []*multipart.FileHeader, lastModified []string) ([]models.Payload, error) {
	payloads := make([]models.Payload, 0, len(headers))
	for i, fh := range headers {
		var stamp time.Time
		if i < len(lastModified) {
			if ms, err := strconv.ParseInt(lastModified[i], 10, 64); err == nil {
				stamp = time.UnixMilli(ms)
			}
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", fh.Filename, err)
		}
		payloads = append(payloads, models.NewPayload(fh.Filename, fh.Header.Get("Content-Type"), stamp, data))
	}
	return payloads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func writeRejected(w http.ResponseWriter, cause error, result *Assembly) {
	resp := models.UploadRejectedResponse{Error: cause.Error(), Rejected: []models.RejectedFile{}}
	if result != nil && result.Rejected != nil {
		resp.Rejected = result.Rejected
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
