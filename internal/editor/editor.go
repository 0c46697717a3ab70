// Package editor is the single-session document assembler. It owns the file
// validator, the page model, the thumbnail cache and the export settings, and
// keeps them consistent with each other.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/composer"
	"github.com/ahmedjamion/pdf-merger/internal/config"
	"github.com/ahmedjamion/pdf-merger/internal/handles"
	"github.com/ahmedjamion/pdf-merger/internal/intake"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pages"
	"github.com/ahmedjamion/pdf-merger/internal/preview"
)

// PreviewPass configures one export preview mode. A MaxPages of zero renders
// every page, as ComposedOptions does.
type PreviewPass struct {
	Scale    float64
	MaxPages int
}

// NoDebounce makes export preview refreshes start without a quiet period.
const NoDebounce time.Duration = -1

// Options configures an Editor. Zero values fall back to defaults.
type Options struct {
	Limits            intake.Limits
	MaxPreviewEntries int
	ThumbnailScale    float64
	// Debounce is the quiet period of the export preview. Zero selects
	// preview.DefaultDebounce; NoDebounce disables it.
	Debounce time.Duration
	Quick    PreviewPass
	Full     PreviewPass
	Optimize bool

	Hasher   intake.Hasher
	Pages    intake.PageCounter
	Renderer preview.Renderer
	Logger   *slog.Logger
}

// OptionsFromConfig maps loaded configuration onto editor options. A
// configured debounce of zero means no debounce.
func OptionsFromConfig(cfg *config.Config) Options {
	debounce := cfg.Preview.Debounce
	if debounce == 0 {
		debounce = NoDebounce
	}
	return Options{
		Limits:            cfg.Limits.Intake(),
		MaxPreviewEntries: cfg.Limits.MaxPreviewEntries,
		ThumbnailScale:    cfg.Preview.ThumbnailScale,
		Debounce:          debounce,
		Quick:             PreviewPass{Scale: cfg.Preview.QuickScale, MaxPages: 1},
		Full:              PreviewPass{Scale: cfg.Preview.FullScale, MaxPages: cfg.Preview.FullMaxPages},
		Optimize:          cfg.Compose.OptimizeOutput,
	}
}

// Editor coordinates one assembly session. All methods are safe for
// concurrent use; the editor must not be used after Close.
type Editor struct {
	log            *slog.Logger
	registry       *handles.Registry
	intake         *intake.Intake
	pages          *pages.Model
	cache          *preview.Cache
	composer       *composer.Composer
	thumbnailScale float64
	preview        *ExportPreview

	// mu serializes operations that touch both the file list and the page list.
	mu sync.Mutex

	settingsMu sync.RWMutex
	settings   models.ExportSettings

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	closeOnce sync.Once
}

// New creates an empty session.
func New(opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ThumbnailScale <= 0 {
		opts.ThumbnailScale = preview.DefaultThumbnailScale
	}
	if opts.Quick.Scale <= 0 {
		opts.Quick = PreviewPass{Scale: 0.9, MaxPages: 1}
	}
	if opts.Full.Scale <= 0 {
		opts.Full = PreviewPass{Scale: 0.68, MaxPages: 24}
	}
	switch {
	case opts.Debounce == 0:
		opts.Debounce = preview.DefaultDebounce
	case opts.Debounce < 0:
		opts.Debounce = 0
	}
	registry := handles.NewRegistry(opts.Logger)

	e := &Editor{
		log:      opts.Logger,
		registry: registry,
		intake: intake.New(intake.Options{
			Limits:   opts.Limits,
			Hasher:   opts.Hasher,
			Pages:    opts.Pages,
			Registry: registry,
			Logger:   opts.Logger,
		}),
		pages: pages.NewModel(opts.Logger),
		cache: preview.NewCache(preview.Options{
			MaxEntries: opts.MaxPreviewEntries,
			Renderer:   opts.Renderer,
			Registry:   registry,
			Logger:     opts.Logger,
		}),
		composer:       composer.New(composer.Options{Optimize: opts.Optimize, Logger: opts.Logger}),
		thumbnailScale: opts.ThumbnailScale,
		settings:       models.DefaultExportSettings(),
		subs:           make(map[int]func(Event)),
	}
	e.preview = newExportPreview(e, opts.Debounce, opts.Quick, opts.Full)
	return e
}

// Registry returns the registry every preview handle of the session is
// minted from.
func (e *Editor) Registry() *handles.Registry { return e.registry }

// Limits returns the import caps.
func (e *Editor) Limits() intake.Limits { return e.intake.Limits() }

// AddFiles validates and imports a batch of payloads.
func (e *Editor) AddFiles(ctx context.Context, payloads []models.Payload) intake.BatchResult {
	e.mu.Lock()
	result := e.intake.AddBatch(ctx, payloads)
	if len(result.Accepted) > 0 {
		e.pages.OnFilesAdded(e.intake.Files(), result.Accepted)
	}
	e.mu.Unlock()

	if len(result.Accepted) > 0 {
		e.emit(Event{Kind: FilesChanged})
		e.emit(Event{Kind: PagesChanged})
	}
	if len(result.Rejected) > 0 {
		e.emit(Event{Kind: RejectedChanged})
	}
	return result
}

// Files returns the accepted files in order.
func (e *Editor) Files() []*models.SourceFile { return e.intake.Files() }

// File looks up an accepted file.
func (e *Editor) File(id string) (*models.SourceFile, bool) { return e.intake.File(id) }

// RejectedFiles returns every rejection since the last ClearRejected.
func (e *Editor) RejectedFiles() []models.RejectedFile { return e.intake.Rejected() }

// ClearRejected dismisses all rejections.
func (e *Editor) ClearRejected() {
	e.intake.ClearRejected()
	e.emit(Event{Kind: RejectedChanged})
}

// Totals returns the running sums of the accepted files.
func (e *Editor) Totals() intake.Totals { return e.intake.Totals() }

// RemoveFile drops a file, its pages (in either page-model state) and all of
// its thumbnails.
func (e *Editor) RemoveFile(id string) bool {
	e.mu.Lock()
	_, ok := e.intake.Remove(id)
	if ok {
		e.pages.OnFileRemoved(e.intake.Files(), id)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.cache.ClearFile(id)
	e.emit(Event{Kind: FilesChanged})
	e.emit(Event{Kind: PagesChanged})
	return true
}

// ClearFiles removes every file and discards manual page edits.
func (e *Editor) ClearFiles() {
	e.mu.Lock()
	ids := e.intake.Clear()
	e.pages.Clear()
	e.mu.Unlock()

	e.cache.ClearAll(ids)
	e.emit(Event{Kind: FilesChanged})
	e.emit(Event{Kind: PagesChanged})
}

// MoveFile moves the file at index from to index to. Out-of-range indices
// are ignored.
func (e *Editor) MoveFile(from, to int) bool {
	e.mu.Lock()
	ok := e.intake.Move(from, to)
	if ok {
		e.pages.OnFilesReordered(e.intake.Files())
	}
	e.mu.Unlock()
	if ok {
		e.emit(Event{Kind: FilesChanged})
		e.emit(Event{Kind: PagesChanged})
	}
	return ok
}

// ReorderFiles puts the files in the given id order.
func (e *Editor) ReorderFiles(ids []string) {
	e.mu.Lock()
	e.intake.Reorder(ids)
	e.pages.OnFilesReordered(e.intake.Files())
	e.mu.Unlock()
	e.emit(Event{Kind: FilesChanged})
	e.emit(Event{Kind: PagesChanged})
}

// Pages returns the curated page list.
func (e *Editor) Pages() []models.PageRecord { return e.pages.Pages() }

// HasManualEdits reports whether the page list is user-owned.
func (e *Editor) HasManualEdits() bool { return e.pages.Manual() }

// MovePage moves the page at index from to index to.
func (e *Editor) MovePage(from, to int) bool {
	e.mu.Lock()
	ok := e.pages.MovePage(from, to)
	e.mu.Unlock()
	e.emit(Event{Kind: PagesChanged})
	return ok
}

// RotatePage adds delta degrees, a multiple of 90, to a page.
func (e *Editor) RotatePage(id string, delta int) error {
	e.mu.Lock()
	err := e.pages.RotatePage(id, delta)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.emit(Event{Kind: PagesChanged})
	return nil
}

// RemovePage drops one page from the output.
func (e *Editor) RemovePage(id string) error {
	e.mu.Lock()
	err := e.pages.RemovePage(id)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.emit(Event{Kind: PagesChanged})
	return nil
}

// ResetPages discards manual edits and rebuilds the pages in file order.
func (e *Editor) ResetPages() {
	e.mu.Lock()
	e.pages.Reset(e.intake.Files())
	e.mu.Unlock()
	e.emit(Event{Kind: PagesChanged})
}

// ArrangePages replaces the page list with an explicit selection.
func (e *Editor) ArrangePages(selections []pages.Selection) error {
	e.mu.Lock()
	err := e.pages.Arrange(e.intake.Files(), selections)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.emit(Event{Kind: PagesChanged})
	return nil
}

// Settings returns the current export settings.
func (e *Editor) Settings() models.ExportSettings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return e.settings
}

func (e *Editor) updateSettings(fn func(*models.ExportSettings)) {
	e.settingsMu.Lock()
	fn(&e.settings)
	e.settingsMu.Unlock()
	e.emit(Event{Kind: SettingsChanged})
}

// SetFileName stores the sanitized output name.
func (e *Editor) SetFileName(name string) {
	clean := models.SanitizeFileName(name)
	e.updateSettings(func(s *models.ExportSettings) { s.FileName = clean })
}

// SetPageSize selects the output page box by name.
func (e *Editor) SetPageSize(name string) error {
	size, err := models.ParsePageSize(name)
	if err != nil {
		return err
	}
	e.updateSettings(func(s *models.ExportSettings) { s.PageSize = size })
	return nil
}

// SetOrientation selects the output orientation by name.
func (e *Editor) SetOrientation(name string) error {
	o, err := models.ParseOrientation(name)
	if err != nil {
		return err
	}
	e.updateSettings(func(s *models.ExportSettings) { s.Orientation = o })
	return nil
}

// SetQuality selects the image quality tier by name.
func (e *Editor) SetQuality(name string) error {
	q, err := models.ParseQuality(name)
	if err != nil {
		return err
	}
	e.updateSettings(func(s *models.ExportSettings) { s.Quality = q })
	return nil
}

// snapshot captures everything a composition needs.
type snapshot struct {
	files    []*models.SourceFile
	pages    []models.PageRecord
	settings models.ExportSettings
}

func (e *Editor) snapshot() snapshot {
	e.mu.Lock()
	s := snapshot{files: e.intake.Files(), pages: e.pages.Pages()}
	e.mu.Unlock()
	s.settings = e.Settings()
	return s
}

// Compose renders the current page list. maxPages caps the pages rendered;
// composer.AllPages renders everything.
func (e *Editor) Compose(ctx context.Context, maxPages int) ([]byte, error) {
	s := e.snapshot()
	return e.composer.Compose(ctx, s.files, s.pages, s.settings, maxPages)
}

// Export composes every page and returns the output file name with the
// document bytes. Session state is left untouched on failure.
func (e *Editor) Export(ctx context.Context) (string, []byte, error) {
	s := e.snapshot()
	logCtx := e.log.With("fileName", s.settings.OutputName(), "pageCount", len(s.pages))
	data, err := e.composer.Compose(ctx, s.files, s.pages, s.settings, composer.AllPages)
	if err != nil {
		logCtx.Error("Export failed.", "error", err)
		return "", nil, fmt.Errorf("failed to export document: %w", err)
	}
	logCtx.Info("Export completed.", "bytes", len(data))
	return s.settings.OutputName(), data, nil
}

// PagePreview returns the cached thumbnail of one source page, or nil when
// the file is unknown or the render failed. A scale of zero selects the
// configured thumbnail scale. The cache keeps ownership of the handle.
func (e *Editor) PagePreview(ctx context.Context, fileID string, pageIndex int, scale float64) *handles.Handle {
	f, ok := e.intake.File(fileID)
	if !ok {
		return nil
	}
	if scale <= 0 {
		scale = e.thumbnailScale
	}
	return e.cache.PagePreview(ctx, f, pageIndex, scale)
}

// ComposedPreview renders pages of composed output. The caller owns the
// returned handles.
func (e *Editor) ComposedPreview(ctx context.Context, pdf []byte, opts preview.ComposedOptions) []*handles.Handle {
	return e.cache.ComposedPreview(ctx, pdf, opts)
}

// ExportPreview returns the session's debounced export preview.
func (e *Editor) ExportPreview() *ExportPreview { return e.preview }

// Close stops preview work and releases every handle of the session.
func (e *Editor) Close() {
	e.closeOnce.Do(func() {
		e.preview.Close()
		e.mu.Lock()
		ids := e.intake.Clear()
		e.pages.Clear()
		e.mu.Unlock()
		e.cache.ClearAll(ids)
		e.cache.Wait()

		e.subsMu.Lock()
		e.subs = make(map[int]func(Event))
		e.subsMu.Unlock()
		e.log.Debug("Editor closed.", "liveHandles", e.registry.Live())
	})
}
