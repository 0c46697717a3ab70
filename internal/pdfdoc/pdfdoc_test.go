package pdfdoc

import (
	"testing"

	"github.com/ahmedjamion/pdf-merger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCountAndDims(t *testing.T) {
	data := testutil.PDF(t, testutil.A4Portrait, testutil.Letter)

	n, err := PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dims, err := PageDims(data)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	assert.InDelta(t, 612, dims[1].Width, 0.5)
	assert.InDelta(t, 792, dims[1].Height, 0.5)
}

func TestGarbageIsAnError(t *testing.T) {
	_, err := PageCount([]byte("%PDF-1.4 not really"))
	assert.Error(t, err)

	_, err = PageDims(nil)
	assert.Error(t, err)

	_, err = Normalize([]byte("garbage"))
	assert.Error(t, err)
}

func TestNormalizeKeepsPages(t *testing.T) {
	out, err := Normalize(testutil.PDFPages(t, 3))
	require.NoError(t, err)

	n, err := PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	optimized, err := Optimize(out)
	require.NoError(t, err)
	n, err = PageCount(optimized)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLargestImage_NoImages(t *testing.T) {
	img, err := LargestImage(testutil.PDFPages(t, 1), 0)
	require.NoError(t, err)
	assert.Nil(t, img)
}
