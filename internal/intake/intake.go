// Package intake validates incoming files and keeps the accepted and rejected
// lists together with their running totals.
package intake

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
	"github.com/ahmedjamion/pdf-merger/internal/hasher"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/pdfdoc"
	"github.com/google/uuid"
)

// Hasher computes a content digest. An error means the digest is unavailable.
type Hasher interface {
	Digest(ctx context.Context, data []byte) (string, error)
}

// PageCounter reads the structural page count of a document payload.
type PageCounter interface {
	PageCount(ctx context.Context, data []byte) (int, error)
}

// PDFPageCounter counts pages with pdfcpu.
type PDFPageCounter struct{}

func (PDFPageCounter) PageCount(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return pdfdoc.PageCount(data)
}

// Options configures an Intake. Zero values fall back to defaults.
type Options struct {
	Limits   Limits
	Hasher   Hasher
	Pages    PageCounter
	Registry *handles.Registry
	Logger   *slog.Logger
}

// Totals are the running size and page sums of the accepted files.
type Totals struct {
	Files int
	Size  int64
	Pages int
}

// BatchResult lists what one AddBatch call accepted and rejected.
type BatchResult struct {
	Accepted []*models.SourceFile
	Rejected []models.RejectedFile
}

// Intake is the file validator. Batches are serialized: every file of a batch
// sees the outcome of all files before it.
type Intake struct {
	limits   Limits
	hasher   Hasher
	pages    PageCounter
	registry *handles.Registry
	log      *slog.Logger

	batchMu sync.Mutex

	mu       sync.RWMutex
	files    []*models.SourceFile
	rejected []models.RejectedFile
}

// New creates an empty Intake.
func New(opts Options) *Intake {
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	if opts.Hasher == nil {
		opts.Hasher = hasher.Blake3{}
	}
	if opts.Pages == nil {
		opts.Pages = PDFPageCounter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = handles.NewRegistry(opts.Logger)
	}
	return &Intake{
		limits:   opts.Limits,
		hasher:   opts.Hasher,
		pages:    opts.Pages,
		registry: opts.Registry,
		log:      opts.Logger,
	}
}

// Limits returns the caps the intake enforces.
func (in *Intake) Limits() Limits { return in.limits }

// Registry returns the handle registry previews are minted from.
func (in *Intake) Registry() *handles.Registry { return in.registry }

// seenEntry is one accepted file a later payload may duplicate.
type seenEntry struct {
	file   *models.SourceFile
	digest string
	tried  bool
}

// batch holds the per-call view: existing files plus everything accepted so
// far in the same call. seen groups files by byte size: identical content
// always has identical size, and a metadata-key collision implies one too.
type batch struct {
	seen  map[int64][]*seenEntry
	size  int64
	pages int
}

// AddBatch validates payloads in order and commits the outcome in one step.
// Validation failures never surface as errors; they become RejectedFile
// reasons. A cancelled ctx rejects the remaining payloads as unreadable.
func (in *Intake) AddBatch(ctx context.Context, payloads []models.Payload) BatchResult {
	in.batchMu.Lock()
	defer in.batchMu.Unlock()

	b := in.snapshotBatch()
	var result BatchResult

	for _, p := range payloads {
		logCtx := in.log.With("fileName", p.Name, "size", p.Size)
		file, reasons := in.validate(ctx, b, p)
		if len(reasons) > 0 {
			logCtx.Info("File rejected.", "reasons", reasons)
			result.Rejected = append(result.Rejected, models.RejectedFile{
				ID:      uuid.NewString(),
				Name:    p.Name,
				Reasons: reasons,
			})
			continue
		}
		logCtx.Info("File accepted.", "fileId", file.ID, "kind", file.Kind, "pageCount", file.PageCount)
		result.Accepted = append(result.Accepted, file)
	}

	in.mu.Lock()
	in.files = append(in.files, result.Accepted...)
	in.rejected = append(in.rejected, result.Rejected...)
	in.mu.Unlock()
	return result
}

func (in *Intake) snapshotBatch() *batch {
	in.mu.RLock()
	defer in.mu.RUnlock()
	b := &batch{seen: make(map[int64][]*seenEntry, len(in.files))}
	for _, f := range in.files {
		b.seen[f.Size] = append(b.seen[f.Size], &seenEntry{file: f, digest: f.Digest, tried: f.Digest != ""})
		b.size += f.Size
		b.pages += f.PageCount
	}
	return b
}

func (in *Intake) validate(ctx context.Context, b *batch, p models.Payload) (*models.SourceFile, []string) {
	var reasons []string

	kind, ok := NormalizeKind(p.DeclaredType, p.Name)
	if !ok {
		reasons = append(reasons, ReasonUnsupportedType)
	}
	if p.Size > in.limits.MaxFileSize {
		reasons = append(reasons, in.limits.fileTooLarge())
	}

	var digest string
	if candidates := b.seen[p.Size]; len(candidates) > 0 {
		digest = in.digest(ctx, p.Data)
		if match := in.findDuplicate(ctx, digest, candidates); match != nil {
			in.log.Info("Duplicate content.", "fileName", p.Name, "existingFile", match.Name,
				"sameMetadata", match.Key() == models.MetadataKey(p.Name, p.Size, p.LastModified))
			reasons = append(reasons, ReasonDuplicate)
		}
	}

	if b.size+p.Size > in.limits.MaxTotalSize {
		reasons = append(reasons, in.limits.totalTooLarge())
	}

	pageCount := 0
	if len(reasons) == 0 {
		n, err := in.pageCount(ctx, kind, p.Data)
		if err != nil {
			in.log.Info("Unable to read file.", "fileName", p.Name, "error", err)
			reasons = append(reasons, ReasonUnreadable)
		}
		pageCount = n
	}
	if len(reasons) == 0 && b.pages+pageCount > in.limits.MaxPages {
		reasons = append(reasons, in.limits.tooManyPages())
	}
	if len(reasons) > 0 {
		return nil, reasons
	}

	if digest == "" {
		digest = in.digest(ctx, p.Data)
	}
	file := models.NewSourceFile(uuid.NewString(), p, kind, pageCount, p.Data)
	file.Digest = digest
	file.Preview = in.registry.Mint(file.ID, string(kind), p.Data)

	b.seen[file.Size] = append(b.seen[file.Size], &seenEntry{file: file, digest: digest, tried: true})
	b.size += file.Size
	b.pages += pageCount
	return file, nil
}

// findDuplicate compares the incoming digest against every candidate of the
// same size and returns the first match. A digest that cannot be computed on
// either side never counts as a match.
func (in *Intake) findDuplicate(ctx context.Context, digest string, candidates []*seenEntry) *models.SourceFile {
	if digest == "" {
		return nil
	}
	for _, c := range candidates {
		if !c.tried {
			c.digest = in.digest(ctx, c.file.Bytes())
			c.tried = true
			if c.digest != "" {
				in.setDigest(c.file, c.digest)
			}
		}
		if c.digest != "" && c.digest == digest {
			return c.file
		}
	}
	return nil
}

func (in *Intake) digest(ctx context.Context, data []byte) string {
	d, err := in.hasher.Digest(ctx, data)
	if err != nil {
		in.log.Warn("Content digest unavailable.", "error", err)
		return ""
	}
	return d
}

func (in *Intake) setDigest(f *models.SourceFile, digest string) {
	in.mu.Lock()
	f.Digest = digest
	in.mu.Unlock()
}

func (in *Intake) pageCount(ctx context.Context, kind models.MediaKind, data []byte) (int, error) {
	if !kind.IsDocument() {
		return 1, nil
	}
	return in.pages.PageCount(ctx, data)
}

// Files returns a snapshot of the accepted files in order.
func (in *Intake) Files() []*models.SourceFile {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]*models.SourceFile(nil), in.files...)
}

// File looks up an accepted file by id.
func (in *Intake) File(id string) (*models.SourceFile, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	for _, f := range in.files {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Rejected returns a snapshot of the rejected files.
func (in *Intake) Rejected() []models.RejectedFile {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]models.RejectedFile(nil), in.rejected...)
}

// Totals sums the accepted files.
func (in *Intake) Totals() Totals {
	in.mu.RLock()
	defer in.mu.RUnlock()
	t := Totals{Files: len(in.files)}
	for _, f := range in.files {
		t.Size += f.Size
		t.Pages += f.PageCount
	}
	return t
}

// Remove drops a file and releases its preview handle.
func (in *Intake) Remove(id string) (*models.SourceFile, bool) {
	in.mu.Lock()
	var removed *models.SourceFile
	for i, f := range in.files {
		if f.ID == id {
			removed = f
			in.files = append(in.files[:i:i], in.files[i+1:]...)
			break
		}
	}
	in.mu.Unlock()
	if removed == nil {
		return nil, false
	}
	_ = removed.Preview.Release()
	return removed, true
}

// Move relocates the file at index from to index to. Out-of-range indices are
// ignored and reported as false.
func (in *Intake) Move(from, to int) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	n := len(in.files)
	if from < 0 || to < 0 || from >= n || to >= n {
		return false
	}
	if from == to {
		return true
	}
	f := in.files[from]
	next := append(in.files[:from:from], in.files[from+1:]...)
	next = append(next[:to:to], append([]*models.SourceFile{f}, next[to:]...)...)
	in.files = next
	return true
}

// Reorder puts the files in the given id order. Unknown ids are skipped and
// files not mentioned keep their relative order at the end.
func (in *Intake) Reorder(ids []string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	byID := make(map[string]*models.SourceFile, len(in.files))
	for _, f := range in.files {
		byID[f.ID] = f
	}
	next := make([]*models.SourceFile, 0, len(in.files))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			next = append(next, f)
			delete(byID, id)
		}
	}
	for _, f := range in.files {
		if _, ok := byID[f.ID]; ok {
			next = append(next, f)
		}
	}
	in.files = next
}

// ClearRejected empties the rejected list.
func (in *Intake) ClearRejected() {
	in.mu.Lock()
	in.rejected = nil
	in.mu.Unlock()
}

// Clear removes every accepted file, releasing their preview handles, and
// returns the removed ids.
func (in *Intake) Clear() []string {
	in.mu.Lock()
	files := in.files
	in.files = nil
	in.mu.Unlock()

	ids := make([]string, 0, len(files))
	for _, f := range files {
		_ = f.Preview.Release()
		ids = append(ids, f.ID)
	}
	return ids
}
