package editor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/composer"
	"github.com/ahmedjamion/pdf-merger/internal/handles"
	"github.com/ahmedjamion/pdf-merger/internal/hasher"
	"github.com/ahmedjamion/pdf-merger/internal/preview"
)

// PreviewMode selects how much of the output an export preview renders.
type PreviewMode int

const (
	// QuickPreview renders the first page only.
	QuickPreview PreviewMode = iota
	// FullPreview renders a capped prefix of the output.
	FullPreview
)

func (m PreviewMode) String() string {
	if m == FullPreview {
		return "full"
	}
	return "quick"
}

// ExportPreview renders composed-output previews as the session changes.
// Requests are debounced and generation-stamped; only the newest result is
// kept and every superseded handle is released.
type ExportPreview struct {
	editor    *Editor
	refresher *preview.Refresher
	quick     PreviewPass
	full      PreviewPass

	mu      sync.Mutex
	lastKey string
	latest  preview.Result
}

func newExportPreview(e *Editor, debounce time.Duration, quick, full PreviewPass) *ExportPreview {
	p := &ExportPreview{editor: e, quick: quick, full: full}
	p.refresher = preview.NewRefresher(debounce, p.deliver, e.log)
	return p
}

// Refresh schedules a preview of the current session in the given mode. It
// is skipped when the last request would render exactly the same output; the
// returned flag reports whether a refresh was scheduled.
func (p *ExportPreview) Refresh(mode PreviewMode) (uint64, bool) {
	s := p.editor.snapshot()
	key := previewKey(s, mode)

	p.mu.Lock()
	if key == p.lastKey {
		p.mu.Unlock()
		return p.refresher.Generation(), false
	}
	p.lastKey = key
	p.mu.Unlock()

	pass := p.quick
	if mode == FullPreview {
		pass = p.full
	}
	return p.refresher.Request(p.job(s, pass)), true
}

func (p *ExportPreview) job(s snapshot, pass PreviewPass) preview.Job {
	e := p.editor
	return func(ctx context.Context) ([]*handles.Handle, error) {
		if len(s.pages) == 0 {
			return nil, nil
		}
		limit := pass.MaxPages
		if limit <= 0 {
			limit = composer.AllPages
		}
		pdf, err := e.composer.Compose(ctx, s.files, s.pages, s.settings, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to compose preview: %w", err)
		}
		return e.cache.ComposedPreview(ctx, pdf, preview.ComposedOptions{
			Scale:    pass.Scale,
			MaxPages: pass.MaxPages,
		}), nil
	}
}

// deliver runs under the refresher's lock.
func (p *ExportPreview) deliver(r preview.Result) {
	p.mu.Lock()
	p.latest = r
	p.mu.Unlock()
	p.editor.emit(Event{Kind: PreviewReady, Generation: r.Generation})
}

// Latest returns the newest delivered preview. Its handles stay owned by the
// preview and are released once a newer result arrives.
func (p *ExportPreview) Latest() preview.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.latest
	r.Handles = append([]*handles.Handle(nil), r.Handles...)
	return r
}

// Close stops pending work and releases the current preview.
func (p *ExportPreview) Close() {
	p.refresher.Close()
	p.mu.Lock()
	p.latest = preview.Result{}
	p.mu.Unlock()
}

// previewKey fingerprints everything that changes the rendered preview.
func previewKey(s snapshot, mode PreviewMode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%s\n", mode, s.settings.FileName, s.settings.PageSize, s.settings.Orientation, s.settings.Quality)
	for _, f := range s.files {
		fmt.Fprintf(&b, "f:%s\n", f.ID)
	}
	for _, pg := range s.pages {
		fmt.Fprintf(&b, "p:%s:%d:%d\n", pg.SourceFileID, pg.SourcePageIndex, pg.Rotation)
	}
	return hasher.Sum([]byte(b.String()))
}
