package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

type countingRecognizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingRecognizer) Name() string { return "fake" }

func (c *countingRecognizer) Recognize(_ context.Context, image []byte, _ string) (*driven.RecognitionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &driven.RecognitionResult{Text: string(image)}, nil
}

func TestRecognizer_CachesByContent(t *testing.T) {
	next := &countingRecognizer{}
	r, err := New(next, 8)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := r.Recognize(ctx, []byte("page one"), "image/png")
	require.NoError(t, err)
	second, err := r.Recognize(ctx, []byte("page one"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, next.calls)

	_, err = r.Recognize(ctx, []byte("page one"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "fake", r.Name())
}

func TestRecognizer_ErrorsNotCached(t *testing.T) {
	next := &countingRecognizer{err: domain.ErrServiceUnavailable}
	r, err := New(next, 8)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := r.Recognize(context.Background(), []byte("x"), "image/png")
		assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	}
	assert.Equal(t, 2, next.calls)
	assert.Zero(t, r.Len())
}

func TestRecognizer_Evicts(t *testing.T) {
	next := &countingRecognizer{}
	r, err := New(next, 1)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = r.Recognize(ctx, []byte("a"), "image/png")
	_, _ = r.Recognize(ctx, []byte("b"), "image/png")
	_, _ = r.Recognize(ctx, []byte("a"), "image/png")
	assert.Equal(t, 3, next.calls)
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(&countingRecognizer{}, 0)
	assert.Error(t, err)
}
