//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

const (
	defaultFastEmbedModel = "BAAI/bge-small-en-v1.5"
	defaultMaxLength      = 512
	// Candidate lists are short; one chunk covers a typical meeting.
	fastEmbedChunk = 64
)

// FastEmbedConfig configures the local ONNX provider.
type FastEmbedConfig struct {
	// Model is a key of fastEmbedModels. Empty selects bge-small-en-v1.5.
	Model string
	// CacheDir receives downloaded model files. Empty selects
	// $XDG_CACHE_HOME/actionitems/fastembed (or the OS equivalent).
	CacheDir string
	// MaxLength truncates inputs, in tokens. Zero selects 512.
	MaxLength int
}

// FastEmbedProvider embeds task descriptions with a local model. The model
// handle is not safe for concurrent inference, so calls are serialised.
type FastEmbedProvider struct {
	mu        sync.Mutex
	model     *fastembed.FlagEmbedding
	dimension int
}

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"fast-bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"fast-bge-small-en":                      fastembed.BGESmallEN,
	"fast-bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"fast-bge-base-en":                       fastembed.BGEBaseEN,
	"fast-bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"fast-all-MiniLM-L6-v2":                  fastembed.AllMiniLML6V2,
}

// NewFastEmbedProvider loads the model, downloading it on first use.
func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	name := cfg.Model
	if name == "" {
		name = defaultFastEmbedModel
	}
	model, ok := fastEmbedModels[name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported fastembed model %q", ErrInvalidConfig, name)
	}

	dir := cfg.CacheDir
	if dir == "" {
		dir = defaultCacheDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating model cache: %w", err)
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}

	quiet := false
	fe, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             dir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("loading fastembed model %s: %w", name, err)
	}
	return &FastEmbedProvider{model: fe, dimension: detectDimensionFromModel(name)}, nil
}

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "actionitems", "fastembed")
	}
	return filepath.Join(os.TempDir(), "actionitems-fastembed")
}

// EmbedDocuments embeds texts in chunks, checking ctx between chunks.
func (p *FastEmbedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil, fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += fastEmbedChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+fastEmbedChunk, len(texts))
		vectors, err := p.model.PassageEmbed(texts[start:end], fastEmbedChunk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Dimension returns the model's vector size.
func (p *FastEmbedProvider) Dimension() int {
	return p.dimension
}

// Close frees the ONNX session. Later calls fail.
func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model == nil {
		return nil
	}
	err := p.model.Destroy()
	p.model = nil
	return err
}
