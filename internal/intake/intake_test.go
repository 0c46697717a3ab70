package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/handles"
	"github.com/ahmedjamion/pdf-merger/internal/hasher"
	"github.com/ahmedjamion/pdf-merger/internal/models"
	"github.com/ahmedjamion/pdf-merger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.UnixMilli(1718000000000)

type fixedPages int

func (n fixedPages) PageCount(context.Context, []byte) (int, error) { return int(n), nil }

type failingPages struct{}

func (failingPages) PageCount(context.Context, []byte) (int, error) {
	return 0, errors.New("corrupt xref")
}

type brokenHasher struct{}

func (brokenHasher) Digest(context.Context, []byte) (string, error) {
	return "", errors.New("hashing unavailable")
}

func payload(name, typ string, data []byte) models.Payload {
	return models.NewPayload(name, typ, stamp, data)
}

func TestAddBatch_DocumentAndImage(t *testing.T) {
	in := New(Options{})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("two.pdf", "application/pdf", testutil.PDFPages(t, 2)),
		payload("photo.png", "", testutil.PNG(t, 40, 30)),
	})

	require.Len(t, res.Accepted, 2)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, models.KindDocument, res.Accepted[0].Kind)
	assert.Equal(t, 2, res.Accepted[0].PageCount)
	assert.Equal(t, models.KindPNG, res.Accepted[1].Kind)
	assert.Equal(t, 1, res.Accepted[1].PageCount)
	assert.Equal(t, 3, in.Totals().Pages)
	assert.Equal(t, 2, in.Registry().Live())
}

func TestAddBatch_SameMetadataDifferentContent(t *testing.T) {
	in := New(Options{Pages: fixedPages(1)})
	first := []byte("%PDF-aaaa")
	second := []byte("%PDF-bbbb")
	require.Equal(t, len(first), len(second))

	res := in.AddBatch(context.Background(), []models.Payload{
		payload("scan.pdf", "application/pdf", first),
		payload("scan.pdf", "application/pdf", second),
	})
	require.Len(t, res.Accepted, 2)

	res = in.AddBatch(context.Background(), []models.Payload{
		payload("scan.pdf", "application/pdf", append([]byte(nil), first...)),
	})
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, []string{ReasonDuplicate}, res.Rejected[0].Reasons)
	assert.Len(t, in.Files(), 2)
}

func TestAddBatch_DuplicateWithinBatch(t *testing.T) {
	in := New(Options{Pages: fixedPages(1)})
	data := []byte("%PDF-same")
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("a.pdf", "application/pdf", data),
		payload("a.pdf", "application/pdf", data),
	})
	assert.Len(t, res.Accepted, 1)
	require.Len(t, res.Rejected, 1)
	assert.Contains(t, res.Rejected[0].Reasons, ReasonDuplicate)
}

func TestAddBatch_SameContentDifferentMetadata(t *testing.T) {
	in := New(Options{Pages: fixedPages(1)})
	data := []byte("%PDF-same")
	in.AddBatch(context.Background(), []models.Payload{payload("a.pdf", "application/pdf", data)})

	res := in.AddBatch(context.Background(), []models.Payload{
		models.NewPayload("renamed.pdf", "application/pdf", stamp.Add(time.Hour), append([]byte(nil), data...)),
	})
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, []string{ReasonDuplicate}, res.Rejected[0].Reasons)
}

func TestAddBatch_DigestUnavailableIsNotDuplicate(t *testing.T) {
	in := New(Options{Pages: fixedPages(1), Hasher: brokenHasher{}})
	data := []byte("%PDF-same")
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("a.pdf", "application/pdf", data),
		payload("a.pdf", "application/pdf", data),
	})
	assert.Len(t, res.Accepted, 2)
	assert.Empty(t, res.Rejected)
}

func TestAddBatch_ReasonsAccumulate(t *testing.T) {
	in := New(Options{
		Limits: Limits{MaxFileSize: 4, MaxTotalSize: 6, MaxPages: 10},
		Pages:  fixedPages(1),
	})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("notes.txt", "text/plain", []byte("1234567")),
	})
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, []string{
		ReasonUnsupportedType,
		"File size exceeds the 0.0MB limit.",
		"Total upload size exceeds 0.0MB.",
	}, res.Rejected[0].Reasons)
}

func TestAddBatch_RunningTotalsIncludeEarlierFiles(t *testing.T) {
	in := New(Options{
		Limits: Limits{MaxFileSize: 100, MaxTotalSize: 10, MaxPages: 5},
		Pages:  fixedPages(3),
	})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("a.pdf", "application/pdf", []byte("aaaa")),
		payload("b.pdf", "application/pdf", []byte("bbbb")),
		payload("c.jpg", "image/jpg", []byte("cccc")),
		payload("d.png", "image/png", []byte("dddd")),
	})

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "a.pdf", res.Accepted[0].Name)
	assert.Equal(t, "c.jpg", res.Accepted[1].Name)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, []string{"Total page count exceeds 5 pages."}, res.Rejected[0].Reasons)
	assert.Equal(t, []string{"Total upload size exceeds 0.0MB."}, res.Rejected[1].Reasons)

	totals := in.Totals()
	assert.LessOrEqual(t, totals.Size, int64(10))
	assert.LessOrEqual(t, totals.Pages, 5)
}

func TestAddBatch_Unreadable(t *testing.T) {
	in := New(Options{Pages: failingPages{}})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("broken.pdf", "application/pdf", []byte("garbage")),
		payload("fine.webp", "", []byte("RIFF")),
	})
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, []string{ReasonUnreadable}, res.Rejected[0].Reasons)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, models.KindWebP, res.Accepted[0].Kind)
}

func TestAddBatch_RealUnreadablePDF(t *testing.T) {
	in := New(Options{})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("broken.pdf", "application/pdf", []byte("not a pdf at all")),
	})
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, []string{ReasonUnreadable}, res.Rejected[0].Reasons)
}

func TestRemoveReleasesPreview(t *testing.T) {
	reg := handles.NewRegistry(nil)
	in := New(Options{Pages: fixedPages(1), Registry: reg})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("a.png", "image/png", []byte("a")),
		payload("b.png", "image/png", []byte("b")),
	})
	require.Len(t, res.Accepted, 2)

	removed, ok := in.Remove(res.Accepted[0].ID)
	require.True(t, ok)
	assert.True(t, removed.Preview.Released())
	assert.Equal(t, 1, reg.Live())

	_, ok = in.Remove("missing")
	assert.False(t, ok)

	ids := in.Clear()
	assert.Equal(t, []string{res.Accepted[1].ID}, ids)
	assert.Equal(t, 0, reg.Live())
	assert.Zero(t, reg.Stats().DoubleReleases)
}

func TestMoveAndReorder(t *testing.T) {
	in := New(Options{Pages: fixedPages(1)})
	res := in.AddBatch(context.Background(), []models.Payload{
		payload("a.png", "image/png", []byte("a")),
		payload("b.png", "image/png", []byte("b")),
		payload("c.png", "image/png", []byte("c")),
	})
	require.Len(t, res.Accepted, 3)
	names := func() []string {
		var out []string
		for _, f := range in.Files() {
			out = append(out, f.Name)
		}
		return out
	}

	assert.True(t, in.Move(0, 2))
	assert.Equal(t, []string{"b.png", "c.png", "a.png"}, names())
	assert.False(t, in.Move(-1, 1))
	assert.False(t, in.Move(0, 3))
	assert.Equal(t, []string{"b.png", "c.png", "a.png"}, names())

	in.Reorder([]string{res.Accepted[2].ID, "unknown", res.Accepted[0].ID})
	assert.Equal(t, []string{"c.png", "a.png", "b.png"}, names())
}

func TestClearRejected(t *testing.T) {
	in := New(Options{})
	in.AddBatch(context.Background(), []models.Payload{payload("x.gif", "image/gif", []byte("x"))})
	require.Len(t, in.Rejected(), 1)
	in.ClearRejected()
	assert.Empty(t, in.Rejected())
}

func TestNormalizeKind(t *testing.T) {
	cases := []struct {
		typ, name string
		want      models.MediaKind
		ok        bool
	}{
		{"application/pdf", "x", models.KindDocument, true},
		{" IMAGE/JPG ", "x", models.KindJPEG, true},
		{"", "photo.JPEG", models.KindJPEG, true},
		{"application/octet-stream", "scan.webp", models.KindWebP, true},
		{"", "archive.zip", "", false},
		{"", "noext", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeKind(c.typ, c.name)
		assert.Equal(t, c.ok, ok, "%q %q", c.typ, c.name)
		assert.Equal(t, c.want, got, "%q %q", c.typ, c.name)
	}
}

func TestDigestStoredOnAccept(t *testing.T) {
	in := New(Options{Pages: fixedPages(1)})
	res := in.AddBatch(context.Background(), []models.Payload{payload("a.png", "image/png", []byte("abc"))})
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, hasher.Sum([]byte("abc")), res.Accepted[0].Digest)
}
