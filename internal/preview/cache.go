// Package preview renders page thumbnails and composed-output previews.
//
// The page cache owns every handle it mints. Handles are released exactly
// once: on eviction, on file removal, on a full clear, or straight after
// rendering when their entry was dropped while the render was in flight.
package preview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
	"github.com/ahmedjamion/pdf-merger/internal/models"
)

const (
	DefaultMaxEntries     = 300
	DefaultThumbnailScale = 0.35
	DefaultComposedScale  = 0.75

	composedOwner = "composed"
	jpegType      = "image/jpeg"
)

// Key identifies one page thumbnail.
type Key struct {
	FileID    string
	PageIndex int
	Scale     float64
}

type entry struct {
	key        Key
	done       chan struct{}
	handle     *handles.Handle
	lastAccess uint64
	settled    bool
	dropped    bool
}

// forgetter is implemented by renderers that keep per-file decode state.
type forgetter interface {
	Forget(fileID string)
}

// Options configures a Cache.
type Options struct {
	MaxEntries int
	Renderer   Renderer
	Registry   *handles.Registry
	Logger     *slog.Logger
}

// Cache is the page-thumbnail cache.
type Cache struct {
	max      int
	renderer Renderer
	registry *handles.Registry
	log      *slog.Logger

	mu      sync.Mutex
	entries map[Key]*entry
	tracked map[string]map[*handles.Handle]struct{}
	cleared map[string]struct{}
	clock   uint64
	wg      sync.WaitGroup
}

// NewCache returns an empty cache.
func NewCache(opts Options) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = handles.NewRegistry(opts.Logger)
	}
	if opts.Renderer == nil {
		opts.Renderer = NewRasterizer()
	}
	return &Cache{
		max:      opts.MaxEntries,
		renderer: opts.Renderer,
		registry: opts.Registry,
		log:      opts.Logger,
		entries:  make(map[Key]*entry),
		tracked:  make(map[string]map[*handles.Handle]struct{}),
		cleared:  make(map[string]struct{}),
	}
}

// PagePreview returns the thumbnail of one page of f, rendering it on first
// request. Concurrent requests for the same key share one render. The handle
// stays owned by the cache; it is nil when rendering failed or ctx ended
// before the render settled. A cancelled ctx never cancels the render itself.
// Files that were already cleared get no thumbnail.
func (c *Cache) PagePreview(ctx context.Context, f *models.SourceFile, pageIndex int, scale float64) *handles.Handle {
	if scale <= 0 {
		scale = DefaultThumbnailScale
	}
	pageIndex = clampIndex(pageIndex, f.PageCount)
	if !f.Kind.IsDocument() {
		pageIndex = 0
	}
	key := Key{FileID: f.ID, PageIndex: pageIndex, Scale: scale}

	c.mu.Lock()
	if _, gone := c.cleared[f.ID]; gone {
		c.mu.Unlock()
		return nil
	}
	c.clock++
	e, ok := c.entries[key]
	if ok {
		e.lastAccess = c.clock
	} else {
		e = &entry{key: key, done: make(chan struct{}), lastAccess: c.clock}
		c.entries[key] = e
		c.evictLocked()
		c.wg.Add(1)
		go c.render(context.WithoutCancel(ctx), e, f)
	}
	c.mu.Unlock()

	select {
	case <-e.done:
	case <-ctx.Done():
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.handle
}

func (c *Cache) render(ctx context.Context, e *entry, f *models.SourceFile) {
	defer c.wg.Done()
	data, err := c.renderer.RenderSource(ctx, f, e.key.PageIndex, e.key.Scale)
	var h *handles.Handle
	if err != nil {
		c.log.Warn("Page preview failed.", "fileId", f.ID, "pageIndex", e.key.PageIndex, "error", err)
	} else {
		h = c.registry.Mint(f.ID, jpegType, data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e.settled = true
	if e.dropped {
		_ = h.Release()
	} else if h != nil {
		e.handle = h
		c.trackLocked(f.ID, h)
	}
	close(e.done)
}

// evictLocked drops least-recently accessed entries until the cache fits.
func (c *Cache) evictLocked() {
	for len(c.entries) > c.max {
		var oldest *entry
		for _, e := range c.entries {
			if oldest == nil || e.lastAccess < oldest.lastAccess {
				oldest = e
			}
		}
		c.dropLocked(oldest)
	}
}

func (c *Cache) dropLocked(e *entry) {
	delete(c.entries, e.key)
	e.dropped = true
	if e.settled && e.handle != nil {
		c.untrackLocked(e.key.FileID, e.handle)
		_ = e.handle.Release()
		e.handle = nil
	}
}

func (c *Cache) trackLocked(fileID string, h *handles.Handle) {
	set, ok := c.tracked[fileID]
	if !ok {
		set = make(map[*handles.Handle]struct{})
		c.tracked[fileID] = set
	}
	set[h] = struct{}{}
}

func (c *Cache) untrackLocked(fileID string, h *handles.Handle) {
	set := c.tracked[fileID]
	delete(set, h)
	if len(set) == 0 {
		delete(c.tracked, fileID)
	}
}

// ClearFile releases every thumbnail of a file and drops its decode state.
// Later requests for the file are refused, so a lookup that raced the removal
// cannot bring a thumbnail back.
func (c *Cache) ClearFile(fileID string) {
	c.mu.Lock()
	c.cleared[fileID] = struct{}{}
	for _, e := range c.entries {
		if e.key.FileID == fileID {
			c.dropLocked(e)
		}
	}
	for h := range c.tracked[fileID] {
		_ = h.Release()
	}
	delete(c.tracked, fileID)
	c.mu.Unlock()

	if fr, ok := c.renderer.(forgetter); ok {
		fr.Forget(fileID)
	}
}

// ClearAll clears every file in ids plus anything else still cached.
func (c *Cache) ClearAll(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	c.mu.Lock()
	for k := range c.entries {
		seen[k.FileID] = struct{}{}
	}
	for id := range c.tracked {
		seen[id] = struct{}{}
	}
	c.mu.Unlock()
	for id := range seen {
		c.ClearFile(id)
	}
}

// Len returns the number of cache entries, pending ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until every in-flight render has settled.
func (c *Cache) Wait() { c.wg.Wait() }

// ComposedOptions selects which composed pages to preview.
type ComposedOptions struct {
	Scale float64
	// MaxPages caps the number of pages; zero or negative means all.
	MaxPages   int
	StartIndex int
}

// ComposedPreview renders pages of a composed document. The caller owns the
// returned handles and must release them. Failures yield no handles.
func (c *Cache) ComposedPreview(ctx context.Context, pdf []byte, opts ComposedOptions) []*handles.Handle {
	if opts.Scale <= 0 {
		opts.Scale = DefaultComposedScale
	}
	count := -1
	if opts.MaxPages > 0 {
		count = opts.MaxPages
	}
	pages, err := c.renderer.RenderPDF(ctx, pdf, opts.StartIndex, count, opts.Scale)
	if err != nil {
		c.log.Warn("Composed preview failed.", "error", err)
		return nil
	}
	out := make([]*handles.Handle, 0, len(pages))
	for _, p := range pages {
		out = append(out, c.registry.Mint(composedOwner, jpegType, p))
	}
	return out
}
