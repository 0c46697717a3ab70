package preview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) deliver(r Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func mintJob(reg *handles.Registry, label string, gate <-chan struct{}) Job {
	return func(context.Context) ([]*handles.Handle, error) {
		if gate != nil {
			<-gate
		}
		return []*handles.Handle{reg.Mint(label, jpegType, []byte(label))}, nil
	}
}

func TestRefresher_DebouncesBursts(t *testing.T) {
	reg := handles.NewRegistry(nil)
	col := &collector{}
	r := NewRefresher(20*time.Millisecond, col.deliver, nil)
	defer r.Close()

	for i := 0; i < 5; i++ {
		r.Request(mintJob(reg, "burst", nil))
	}
	require.Eventually(t, func() bool { return len(col.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	got := col.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(5), got[0].Generation)
	assert.Equal(t, 1, reg.Stats().Minted)
}

func TestRefresher_DiscardsStaleResult(t *testing.T) {
	reg := handles.NewRegistry(nil)
	col := &collector{}
	r := NewRefresher(0, col.deliver, nil)

	slow := make(chan struct{})
	started := make(chan struct{})
	r.Request(func(ctx context.Context) ([]*handles.Handle, error) {
		close(started)
		return mintJob(reg, "slow", slow)(ctx)
	})
	<-started
	r.Request(mintJob(reg, "fast", nil))
	require.Eventually(t, func() bool { return len(col.snapshot()) == 1 }, time.Second, time.Millisecond)

	close(slow)
	r.Close()

	got := col.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].Generation)
	stats := reg.Stats()
	assert.Equal(t, 2, stats.Minted)
	assert.Zero(t, stats.Live)
	assert.Zero(t, stats.DoubleReleases)
}

func TestRefresher_ReplacesAndReleasesPrevious(t *testing.T) {
	reg := handles.NewRegistry(nil)
	col := &collector{}
	r := NewRefresher(0, col.deliver, nil)

	r.Request(mintJob(reg, "one", nil))
	require.Eventually(t, func() bool { return len(col.snapshot()) == 1 }, time.Second, time.Millisecond)
	first := r.Current()
	require.Len(t, first, 1)

	r.Request(mintJob(reg, "two", nil))
	require.Eventually(t, func() bool { return len(col.snapshot()) == 2 }, time.Second, time.Millisecond)
	assert.True(t, first[0].Released())
	assert.Equal(t, 1, reg.Live())

	r.Request(func(context.Context) ([]*handles.Handle, error) { return nil, errors.New("boom") })
	require.Eventually(t, func() bool { return len(col.snapshot()) == 3 }, time.Second, time.Millisecond)
	assert.Error(t, col.snapshot()[2].Err)
	assert.Empty(t, r.Current())
	assert.Zero(t, reg.Live())

	r.Close()
	r.Close()
	assert.Equal(t, uint64(3), r.Request(mintJob(reg, "late", nil)))
}
