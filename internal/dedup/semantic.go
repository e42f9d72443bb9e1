package dedup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/actionitems/internal/embeddings"
	"github.com/fyrsmithlabs/actionitems/internal/task"
)

// DefaultSemanticThreshold is the cosine similarity at or above which two
// descriptions are duplicates.
const DefaultSemanticThreshold = 0.8

var errNoEmbedding = errors.New("vectors are computed ahead of indexing")

// Semantic clusters candidates by embedding similarity using an in-memory
// chromem-go index. Any embedding problem falls back to the lexical strategy.
type Semantic struct {
	provider  embeddings.Provider
	threshold float64
	fallback  *Lexical
	logger    *zap.Logger
}

// NewSemantic creates a semantic deduplicator. provider may be nil or
// disabled, in which case every call runs the fallback.
func NewSemantic(provider embeddings.Provider, threshold float64, fallback *Lexical, logger *zap.Logger) *Semantic {
	if threshold <= 0 {
		threshold = DefaultSemanticThreshold
	}
	if fallback == nil {
		fallback = NewLexical(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Semantic{provider: provider, threshold: threshold, fallback: fallback, logger: logger}
}

// Deduplicate implements Deduplicator.
func (s *Semantic) Deduplicate(ctx context.Context, cands []*task.Candidate) Outcome {
	if len(cands) < 2 {
		return collapse(cands, cluster(len(cands), nil), StrategySemantic)
	}
	if embeddings.IsDisabled(s.provider) {
		s.logger.Debug("no embedding provider, using lexical deduplication")
		return s.fallback.Deduplicate(ctx, cands)
	}

	clusters, err := s.clusters(ctx, cands)
	if err != nil {
		s.logger.Warn("semantic deduplication unavailable, using lexical",
			zap.Int("candidates", len(cands)),
			zap.Error(err),
		)
		return s.fallback.Deduplicate(ctx, cands)
	}
	return collapse(cands, clusters, StrategySemantic)
}

func (s *Semantic) clusters(ctx context.Context, cands []*task.Candidate) ([][]int, error) {
	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.Description
	}
	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding descriptions: %w", err)
	}
	if err := checkVectors(vectors, len(texts)); err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("candidates", nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbedding
	})
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	docs := make([]chromem.Document, len(cands))
	for i := range cands {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   texts[i],
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("indexing descriptions: %w", err)
	}

	// similarity rows are filled lazily, one query per cluster leader
	neighbours := make(map[int]map[int]bool, len(cands))
	var queryErr error
	clusters := cluster(len(cands), func(i, j int) bool {
		if queryErr != nil {
			return false
		}
		row, ok := neighbours[i]
		if !ok {
			row, queryErr = s.similarTo(ctx, collection, vectors[i])
			if queryErr != nil {
				return false
			}
			neighbours[i] = row
		}
		return row[j]
	})
	if queryErr != nil {
		return nil, queryErr
	}
	return clusters, nil
}

func (s *Semantic) similarTo(ctx context.Context, collection *chromem.Collection, vector []float32) (map[int]bool, error) {
	results, err := collection.QueryEmbedding(ctx, vector, collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	row := make(map[int]bool, len(results))
	for _, r := range results {
		if float64(r.Similarity) < s.threshold {
			continue
		}
		idx, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q", r.ID)
		}
		row[idx] = true
	}
	return row, nil
}

// checkVectors rejects responses the index cannot compare: wrong count,
// mixed dimensions or zero vectors.
func checkVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("got %d vectors for %d descriptions", len(vectors), want)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return fmt.Errorf("vector %d cannot be normalised", i)
		}
	}
	return nil
}

// New returns the deduplicator for strategy.
func New(strategy string, threshold float64, provider embeddings.Provider, logger *zap.Logger) (Deduplicator, error) {
	switch strategy {
	case StrategyLexical, "":
		return NewLexical(threshold), nil
	case StrategySemantic:
		return NewSemantic(provider, threshold, NewLexical(0), logger), nil
	default:
		return nil, fmt.Errorf("unknown dedup strategy %q", strategy)
	}
}
