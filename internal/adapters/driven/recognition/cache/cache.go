// Package cache memoises text-recognition results by image content.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Recognizer implements the interface.
var _ driven.TextRecognitionService = (*Recognizer)(nil)

// Recognizer wraps a TextRecognitionService with an LRU cache keyed by
// the SHA-256 of the image and its MIME type. Only successes are cached.
type Recognizer struct {
	next  driven.TextRecognitionService
	cache *lru.Cache[string, driven.RecognitionResult]
}

// New wraps next with a cache of size entries.
func New(next driven.TextRecognitionService, size int) (*Recognizer, error) {
	c, err := lru.New[string, driven.RecognitionResult](size)
	if err != nil {
		return nil, err
	}
	return &Recognizer{next: next, cache: c}, nil
}

// Name returns the wrapped service's name.
func (r *Recognizer) Name() string {
	return r.next.Name()
}

// Recognize returns a cached result or calls the wrapped service.
func (r *Recognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*driven.RecognitionResult, error) {
	key := cacheKey(image, mimeType)
	if res, ok := r.cache.Get(key); ok {
		return &res, nil
	}

	res, err := r.next.Recognize(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, *res)
	return res, nil
}

// Len returns the number of cached results.
func (r *Recognizer) Len() int {
	return r.cache.Len()
}

func cacheKey(image []byte, mimeType string) string {
	h := sha256.New()
	h.Write([]byte(mimeType))
	h.Write([]byte{0})
	h.Write(image)
	return hex.EncodeToString(h.Sum(nil))
}
