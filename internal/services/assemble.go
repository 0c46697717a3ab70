package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmedjamion/pdf-merger/internal/editor"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pages"
)

// Assembly is the outcome of composing one batch of payloads.
type Assembly struct {
	FileName  string
	Data      []byte
	PageCount int
	Accepted  []*models.SourceFile
	Rejected  []models.RejectedFile
}

// ErrNothingAccepted is returned when every payload was rejected.
var ErrNothingAccepted = errors.New("no file could be accepted")

// Assemble validates payloads in order, applies the optional page selection
// and composes the output. Page entries whose source was rejected are
// skipped. Rejections are reported on the result even when an error is
// returned.
func Assemble(ctx context.Context, opts editor.Options, payloads []models.Payload, settings models.ExportSettings, selection []models.ManifestPage) (*Assembly, error) {
	ed := editor.New(opts)
	defer ed.Close()
	logCtx := opts.Logger
	if logCtx == nil {
		logCtx = slog.Default()
	}

	res := &Assembly{}
	bySource := make([]*models.SourceFile, len(payloads))
	for i, p := range payloads {
		batch := ed.AddFiles(ctx, []models.Payload{p})
		if len(batch.Accepted) == 1 {
			bySource[i] = batch.Accepted[0]
		}
		res.Accepted = append(res.Accepted, batch.Accepted...)
		res.Rejected = append(res.Rejected, batch.Rejected...)
	}
	if len(res.Accepted) == 0 {
		return res, ErrNothingAccepted
	}

	if len(selection) > 0 {
		selections := make([]pages.Selection, 0, len(selection))
		for i, p := range selection {
			f := bySource[p.Source]
			if f == nil {
				logCtx.Warn("Skipping page of rejected source.", "pageEntry", i, "source", p.Source)
				continue
			}
			selections = append(selections, pages.Selection{FileID: f.ID, PageIndex: p.Page, Rotation: p.Rotation})
		}
		if err := ed.ArrangePages(selections); err != nil {
			return res, fmt.Errorf("failed to arrange pages: %w", err)
		}
	}

	ed.SetFileName(settings.FileName)
	if err := applySettings(ed, settings); err != nil {
		return res, err
	}

	name, data, err := ed.Export(ctx)
	if err != nil {
		return res, err
	}
	res.FileName = name
	res.Data = data
	res.PageCount = len(ed.Pages())
	return res, nil
}

func applySettings(ed *editor.Editor, s models.ExportSettings) error {
	if err := ed.SetPageSize(string(s.PageSize)); err != nil {
		return err
	}
	if err := ed.SetOrientation(string(s.Orientation)); err != nil {
		return err
	}
	return ed.SetQuality(string(s.Quality))
}
