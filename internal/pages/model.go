// Package pages keeps the curated page list in step with the accepted files
// until the user edits it directly.
package pages

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/google/uuid"
)

var (
	ErrPageNotFound    = errors.New("page not found")
	ErrInvalidRotation = errors.New("rotation must be a multiple of 90 degrees")
	ErrIndexOutOfRange = errors.New("page index out of range")
)

// State tells whether the page list still mirrors the files.
type State int

const (
	Synced State = iota
	Manual
)

func (s State) String() string {
	if s == Manual {
		return "manual"
	}
	return "synced"
}

// Derive flattens files into pages: one record per structural page for
// documents and a single record carrying the file preview for images.
func Derive(files []*models.SourceFile) []models.PageRecord {
	var out []models.PageRecord
	for _, f := range files {
		out = append(out, deriveFile(f)...)
	}
	return out
}

func deriveFile(f *models.SourceFile) []models.PageRecord {
	if !f.Kind.IsDocument() {
		rec := newRecord(f, 0)
		rec.Preview = f.Preview
		return []models.PageRecord{rec}
	}
	out := make([]models.PageRecord, 0, f.PageCount)
	for i := 0; i < f.PageCount; i++ {
		out = append(out, newRecord(f, i))
	}
	return out
}

func newRecord(f *models.SourceFile, index int) models.PageRecord {
	return models.PageRecord{
		ID:              uuid.NewString(),
		SourceFileID:    f.ID,
		SourceFileName:  f.Name,
		SourceKind:      f.Kind,
		SourcePageIndex: index,
		OriginKey:       models.OriginKey(f.ID, index),
	}
}

// NormalizeRotation folds any multiple of 90 into 0, 90, 180 or 270.
func NormalizeRotation(deg int) int {
	return ((deg % 360) + 360) % 360
}

// Model is the Synced/Manual page list state machine.
type Model struct {
	mu    sync.RWMutex
	pages []models.PageRecord
	state State
	log   *slog.Logger
}

// NewModel returns an empty, synced model.
func NewModel(log *slog.Logger) *Model {
	if log == nil {
		log = slog.Default()
	}
	return &Model{log: log}
}

// Pages returns a snapshot of the page list.
func (m *Model) Pages() []models.PageRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.PageRecord(nil), m.pages...)
}

// Page looks up one page by id.
func (m *Model) Page(id string) (models.PageRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.pages[i], true
	}
	return models.PageRecord{}, false
}

// State returns the current state.
func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Manual reports whether the list carries direct edits.
func (m *Model) Manual() bool { return m.State() == Manual }

// OnFilesAdded rebuilds from files when synced. In manual mode only the pages
// of added are appended.
func (m *Model) OnFilesAdded(files, added []*models.SourceFile) {
	if len(added) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Manual {
		m.pages = append(m.pages, Derive(added)...)
		return
	}
	m.pages = Derive(files)
}

// OnFileRemoved rebuilds from the remaining files when synced. In manual mode
// the removed file's pages are stripped and everything else is kept.
func (m *Model) OnFileRemoved(files []*models.SourceFile, removedID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Manual {
		kept := m.pages[:0:0]
		for _, p := range m.pages {
			if p.SourceFileID != removedID {
				kept = append(kept, p)
			}
		}
		m.pages = kept
		return
	}
	m.pages = Derive(files)
}

// OnFilesReordered rebuilds when synced and is a no-op in manual mode.
func (m *Model) OnFilesReordered(files []*models.SourceFile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Manual {
		return
	}
	m.pages = Derive(files)
}

// Clear empties the list and returns to synced.
func (m *Model) Clear() {
	m.mu.Lock()
	m.pages = nil
	m.state = Synced
	m.mu.Unlock()
}

// Reset discards manual edits and rebuilds from files.
func (m *Model) Reset(files []*models.SourceFile) {
	m.mu.Lock()
	discarded := m.state == Manual
	m.pages = Derive(files)
	m.state = Synced
	n := len(m.pages)
	m.mu.Unlock()
	if discarded {
		m.log.Info("Manual page edits discarded.", "pageCount", n)
	}
}

// MovePage moves the page at index from to index to. Out-of-range indices
// leave the list unchanged but still mark it as manually edited.
func (m *Model) MovePage(from, to int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Manual
	n := len(m.pages)
	if from < 0 || to < 0 || from >= n || to >= n {
		return false
	}
	p := m.pages[from]
	next := append(m.pages[:from:from], m.pages[from+1:]...)
	m.pages = append(next[:to:to], append([]models.PageRecord{p}, next[to:]...)...)
	return true
}

// RotatePage adds delta degrees to a page's rotation.
func (m *Model) RotatePage(id string, delta int) error {
	if delta%90 != 0 {
		return fmt.Errorf("rotate by %d: %w", delta, ErrInvalidRotation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("rotate %s: %w", id, ErrPageNotFound)
	}
	m.pages[i].Rotation = NormalizeRotation(m.pages[i].Rotation + delta)
	m.state = Manual
	return nil
}

// RemovePage drops a page from the list.
func (m *Model) RemovePage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrPageNotFound)
	}
	m.pages = append(m.pages[:i:i], m.pages[i+1:]...)
	m.state = Manual
	return nil
}

// Selection picks one source page for Arrange.
type Selection struct {
	FileID    string
	PageIndex int
	Rotation  int
}

// Arrange replaces the list with an explicit curated order. It counts as a
// direct edit.
func (m *Model) Arrange(files []*models.SourceFile, selections []Selection) error {
	byID := make(map[string]*models.SourceFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}
	next := make([]models.PageRecord, 0, len(selections))
	for _, s := range selections {
		f, ok := byID[s.FileID]
		if !ok {
			return fmt.Errorf("arrange: file %s: %w", s.FileID, ErrPageNotFound)
		}
		if s.PageIndex < 0 || s.PageIndex >= f.PageCount {
			return fmt.Errorf("arrange: %s page %d of %d: %w", f.Name, s.PageIndex, f.PageCount, ErrIndexOutOfRange)
		}
		if s.Rotation%90 != 0 {
			return fmt.Errorf("arrange: %s page %d: %w", f.Name, s.PageIndex, ErrInvalidRotation)
		}
		rec := newRecord(f, s.PageIndex)
		if !f.Kind.IsDocument() {
			rec.Preview = f.Preview
		}
		rec.Rotation = NormalizeRotation(s.Rotation)
		next = append(next, rec)
	}

	m.mu.Lock()
	m.pages = next
	m.state = Manual
	m.mu.Unlock()
	return nil
}

func (m *Model) indexOf(id string) int {
	for i, p := range m.pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}
