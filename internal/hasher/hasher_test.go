package hasher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_StableAndContentSensitive(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	c := Sum([]byte("hellp"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestBlake3_Digest(t *testing.T) {
	d, err := Blake3{}.Digest(context.Background(), []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, Sum([]byte("payload")), d)
}

func TestBlake3_DigestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Blake3{}.Digest(ctx, []byte("payload"))
	assert.ErrorIs(t, err, context.Canceled)
}
