package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	a := NewKey("request", 7, "Floor Plan.PDF")
	b := NewKey("request", 7, "Floor Plan.PDF")
	assert.True(t, strings.HasPrefix(a, "request/7/"))
	assert.True(t, strings.HasSuffix(a, ".pdf"))
	assert.NotEqual(t, a, b)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a.pdf", ""))
	assert.Equal(t, "image/png", ContentType("a.PNG", "application/octet-stream"))
	assert.Equal(t, "text/markdown", ContentType("a.md", "text/markdown"))
	assert.Equal(t, "application/octet-stream", ContentType("a.bin", ""))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "k1", strings.NewReader("hello"), 5, "text/plain"))
	data, ok := m.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	u, err := m.URL(ctx, "k1", "hello.txt", time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "k1")
	assert.Contains(t, u, "hello.txt")

	require.NoError(t, m.Remove(ctx, "k1"))
	assert.ErrorIs(t, m.Remove(ctx, "k1"), ErrNotFound)
	_, err = m.URL(ctx, "k1", "", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, m.Len())
}
