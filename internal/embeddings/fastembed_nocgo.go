//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned by the fastembed provider in builds
// without cgo. Use the tei provider there.
var ErrFastEmbedNotAvailable = errors.New("fastembed requires a cgo build; use the tei embedding provider")

// FastEmbedConfig mirrors the cgo build so callers compile either way.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// FastEmbedProvider never loads in this build.
type FastEmbedProvider struct{}

// NewFastEmbedProvider always fails with ErrFastEmbedNotAvailable.
func NewFastEmbedProvider(FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (*FastEmbedProvider) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (*FastEmbedProvider) Dimension() int { return 0 }

func (*FastEmbedProvider) Close() error { return nil }
