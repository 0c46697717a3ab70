package preview

import (
	"fmt"
	"sync"

	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pdfdoc"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/singleflight"
)

// document is the decode state kept per open source file.
type document struct {
	data []byte
	dims []types.Dim
}

func (d *document) pageCount() int { return len(d.dims) }

func (d *document) clamp(index int) int { return clampIndex(index, len(d.dims)) }

// clampIndex pulls index into [0, n). An empty range yields 0.
func clampIndex(index, n int) int {
	return max(0, min(index, n-1))
}

// documents opens each source file at most once. Concurrent opens of the same
// file share one parse. Closing a file bumps its epoch so a parse that
// finishes afterwards is not kept.
type documents struct {
	mu     sync.Mutex
	open   map[string]*document
	epochs map[string]uint64
	group  singleflight.Group
}

func newDocuments() *documents {
	return &documents{
		open:   make(map[string]*document),
		epochs: make(map[string]uint64),
	}
}

func (d *documents) get(f *models.SourceFile) (*document, error) {
	d.mu.Lock()
	if doc, ok := d.open[f.ID]; ok {
		d.mu.Unlock()
		return doc, nil
	}
	epoch := d.epochs[f.ID]
	d.mu.Unlock()

	v, err, _ := d.group.Do(fmt.Sprintf("%s#%d", f.ID, epoch), func() (interface{}, error) {
		dims, err := pdfdoc.PageDims(f.Bytes())
		if err != nil {
			return nil, err
		}
		return &document{data: f.Bytes(), dims: dims}, nil
	})
	if err != nil {
		return nil, err
	}
	doc := v.(*document)

	d.mu.Lock()
	if d.epochs[f.ID] == epoch {
		d.open[f.ID] = doc
	}
	d.mu.Unlock()
	return doc, nil
}

func (d *documents) close(fileID string) {
	d.mu.Lock()
	delete(d.open, fileID)
	d.epochs[fileID]++
	d.mu.Unlock()
}

func (d *documents) isOpen(fileID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.open[fileID]
	return ok
}
