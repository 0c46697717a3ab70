package preview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
)

// DefaultDebounce is the quiet period before a requested refresh starts.
const DefaultDebounce = 220 * time.Millisecond

// Job produces preview handles. The refresher takes ownership of them.
type Job func(ctx context.Context) ([]*handles.Handle, error)

// Result is a delivered refresh. Handles stay owned by the refresher and are
// released when a newer result replaces them or the refresher closes.
type Result struct {
	Generation uint64
	Handles    []*handles.Handle
	Err        error
}

// Refresher debounces preview requests and stamps each with a generation.
// Results of a superseded generation are released and never delivered.
type Refresher struct {
	delay   time.Duration
	deliver func(Result)
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	current []*handles.Handle
	closed  bool
	wg      sync.WaitGroup
}

// NewRefresher creates a refresher calling deliver with every fresh result.
// deliver runs with the refresher locked and must not call back into it.
func NewRefresher(delay time.Duration, deliver func(Result), log *slog.Logger) *Refresher {
	if delay < 0 {
		delay = DefaultDebounce
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{delay: delay, deliver: deliver, log: log, ctx: ctx, cancel: cancel}
}

// Request schedules job after the debounce delay, superseding any earlier
// request. It returns the generation assigned to job.
func (r *Refresher) Request(job Job) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.gen
	}
	r.gen++
	gen := r.gen
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}
	r.wg.Add(1)
	r.timer = time.AfterFunc(r.delay, func() {
		defer r.wg.Done()
		r.run(gen, job)
	})
	return gen
}

// Generation returns the latest requested generation.
func (r *Refresher) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

func (r *Refresher) run(gen uint64, job Job) {
	if !r.isCurrent(gen) {
		return
	}
	hs, err := job(r.ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.gen {
		r.log.Debug("Discarding stale preview.", "generation", gen, "latest", r.gen)
		releaseAll(hs)
		return
	}
	if err != nil {
		r.log.Warn("Preview refresh failed.", "generation", gen, "error", err)
		releaseAll(hs)
		hs = nil
	}
	releaseAll(r.current)
	r.current = hs
	if r.deliver != nil {
		r.deliver(Result{Generation: gen, Handles: hs, Err: err})
	}
}

func (r *Refresher) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && gen == r.gen
}

// Current returns the handles of the last delivered result.
func (r *Refresher) Current() []*handles.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*handles.Handle(nil), r.current...)
}

// Close stops pending work, waits for running jobs and releases the current
// handles.
func (r *Refresher) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil && r.timer.Stop() {
		r.wg.Done()
	}
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	releaseAll(r.current)
	r.current = nil
	r.mu.Unlock()
}

func releaseAll(hs []*handles.Handle) {
	for _, h := range hs {
		_ = h.Release()
	}
}
