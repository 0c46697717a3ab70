// Package handles provides releasable references to rendered preview bytes.
//
// A Handle has exactly one owner at a time. Whoever holds it last must call
// Release; the Registry counts live handles so that leaks and double releases
// show up in logs and tests.
package handles

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrAlreadyReleased is returned when a handle is released a second time.
var ErrAlreadyReleased = errors.New("handle already released")

// Handle is an opaque displayable reference to encoded image bytes.
type Handle struct {
	id       string
	owner    string
	mimeType string
	data     []byte
	released atomic.Bool
	registry *Registry
}

// ID returns the unique handle id.
func (h *Handle) ID() string { return h.id }

// Owner returns the id of the file (or pseudo-owner) the handle was minted for.
func (h *Handle) Owner() string { return h.owner }

// MIMEType returns the media type of the referenced bytes.
func (h *Handle) MIMEType() string { return h.mimeType }

// Bytes returns the referenced bytes, or nil once the handle is released.
func (h *Handle) Bytes() []byte {
	if h == nil || h.released.Load() {
		return nil
	}
	return h.data
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool { return h == nil || h.released.Load() }

// Release frees the handle. Only the first call succeeds.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	if !h.released.CompareAndSwap(false, true) {
		if h.registry != nil {
			h.registry.doubleRelease(h)
		}
		return ErrAlreadyReleased
	}
	if h.registry != nil {
		h.registry.forget(h)
	}
	return nil
}

// Stats is a point-in-time view of registry counters.
type Stats struct {
	Minted         int
	Released       int
	Live           int
	DoubleReleases int
}

// Registry mints handles and tracks which of them are still live.
type Registry struct {
	mu             sync.Mutex
	live           map[string]*Handle
	minted         int
	released       int
	doubleReleases int
	log            *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger means slog.Default().
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		live: make(map[string]*Handle),
		log:  log,
	}
}

// Mint creates a live handle owning data.
func (r *Registry) Mint(owner, mimeType string, data []byte) *Handle {
	h := &Handle{
		id:       uuid.NewString(),
		owner:    owner,
		mimeType: mimeType,
		data:     data,
		registry: r,
	}
	r.mu.Lock()
	r.live[h.id] = h
	r.minted++
	r.mu.Unlock()
	return h
}

// Live returns the number of handles not yet released.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// LiveFor returns the number of live handles minted for owner.
func (r *Registry) LiveFor(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.live {
		if h.owner == owner {
			n++
		}
	}
	return n
}

// Stats returns the registry counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Minted:         r.minted,
		Released:       r.released,
		Live:           len(r.live),
		DoubleReleases: r.doubleReleases,
	}
}

func (r *Registry) forget(h *Handle) {
	r.mu.Lock()
	delete(r.live, h.id)
	r.released++
	r.mu.Unlock()
}

func (r *Registry) doubleRelease(h *Handle) {
	r.mu.Lock()
	r.doubleReleases++
	r.mu.Unlock()
	r.log.Warn("Preview handle released twice.", "handleId", h.id, "owner", h.owner)
}
