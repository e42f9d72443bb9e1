package embeddings

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoises another provider's vectors by exact text.
type Cached struct {
	inner Provider
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU cache holding up to size vectors.
func NewCached(inner Provider, size int) (*Cached, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrInvalidConfig)
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// EmbedDocuments serves cached vectors and embeds only the misses.
func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	queued := make(map[string]bool)
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			results[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		if !queued[text] {
			queued[text] = true
			missTexts = append(missTexts, text)
		}
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := c.inner.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(missTexts))
	}
	fresh := make(map[string][]float32, len(missTexts))
	for i, text := range missTexts {
		fresh[text] = vectors[i]
		c.cache.Add(text, vectors[i])
	}
	for _, i := range missIdx {
		results[i] = fresh[texts[i]]
	}
	return results, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Dimension delegates to the wrapped provider.
func (c *Cached) Dimension() int {
	return c.inner.Dimension()
}

// Close purges the cache and closes the wrapped provider.
func (c *Cached) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
