package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// teiServer answers /embed with a two-dimensional vector per input whose
// first component is the input length.
func teiServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Path != "/embed" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Inputs   []string `json:"inputs"`
			Truncate bool     `json:"truncate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Truncate {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		out := make([][]float32, len(req.Inputs))
		for i, in := range req.Inputs {
			out[i] = []float32{float32(len(in)), 1}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr error
	}{
		{name: "empty is disabled", cfg: ProviderConfig{}},
		{name: "disabled", cfg: ProviderConfig{Provider: ProviderDisabled}},
		{name: "tei", cfg: ProviderConfig{Provider: ProviderTEI, BaseURL: "http://localhost:8080"}},
		{name: "tei with cache", cfg: ProviderConfig{Provider: ProviderTEI, BaseURL: "http://localhost:8080", CacheSize: 10}},
		{name: "tei without base URL", cfg: ProviderConfig{Provider: ProviderTEI}, wantErr: ErrInvalidConfig},
		{name: "unknown provider", cfg: ProviderConfig{Provider: "word2vec"}, wantErr: ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, zap.NewNop())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.NoError(t, p.Close())
		})
	}
}

func TestDisabled(t *testing.T) {
	p, err := NewProvider(ProviderConfig{}, nil)
	require.NoError(t, err)
	assert.True(t, IsDisabled(p))
	assert.True(t, IsDisabled(nil))

	_, err = p.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, 0, p.Dimension())
}

func TestDetectDimensionFromModel(t *testing.T) {
	assert.Equal(t, 384, detectDimensionFromModel("BAAI/bge-small-en-v1.5"))
	assert.Equal(t, 768, detectDimensionFromModel("BAAI/bge-base-en-v1.5"))
	assert.Equal(t, 512, detectDimensionFromModel("fast-bge-small-zh-v1.5"))
	assert.Equal(t, 1024, detectDimensionFromModel("intfloat/e5-large-v2"))
	assert.Equal(t, 384, detectDimensionFromModel("something-else"))
}

func TestService_EmbedDocuments(t *testing.T) {
	srv := teiServer(t, nil)
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL, Model: "test"}, nil)
	require.NoError(t, err)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"abc", "de"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 1}, {2, 1}}, vectors)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		svc, err := NewService(Config{BaseURL: srv.URL}, nil)
		require.NoError(t, err)
		_, err = svc.EmbedDocuments(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("count mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[[1,2]]`))
		}))
		defer srv.Close()

		svc, err := NewService(Config{BaseURL: srv.URL}, nil)
		require.NoError(t, err)
		_, err = svc.EmbedDocuments(context.Background(), []string{"a", "b"})
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer srv.Close()

		svc, err := NewService(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil)
		require.NoError(t, err)
		_, err = svc.EmbedDocuments(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
	})

	t.Run("api key header", func(t *testing.T) {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`[[1]]`))
		}))
		defer srv.Close()

		svc, err := NewService(Config{BaseURL: srv.URL, APIKey: "k"}, nil)
		require.NoError(t, err)
		_, err = svc.EmbedDocuments(context.Background(), []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer k", got)
	})
}

type countingProvider struct {
	batches [][]string
	err     error
}

func (c *countingProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, s := range texts {
		out[i] = []float32{float32(len(s))}
	}
	return out, nil
}

func (c *countingProvider) Dimension() int { return 1 }
func (c *countingProvider) Close() error   { return nil }

func TestCached(t *testing.T) {
	inner := &countingProvider{}
	c, err := NewCached(inner, 8)
	require.NoError(t, err)
	ctx := context.Background()

	got, err := c.EmbedDocuments(ctx, []string{"aa", "bbb", "aa"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {2}}, got)
	assert.Equal(t, [][]string{{"aa", "bbb"}}, inner.batches, "duplicates embedded once")

	got, err = c.EmbedDocuments(ctx, []string{"bbb", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3}, {1}}, got)
	assert.Equal(t, []string{"c"}, inner.batches[1], "only misses reach the provider")
	assert.Equal(t, 3, c.Len())

	_, err = c.EmbedDocuments(ctx, []string{"bbb"})
	require.NoError(t, err)
	assert.Len(t, inner.batches, 2, "full hit skips the provider")

	assert.Equal(t, 1, c.Dimension())
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}

func TestCached_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c, err := NewCached(&countingProvider{err: boom}, 4)
	require.NoError(t, err)

	_, err = c.EmbedDocuments(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	_, err = c.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = NewCached(nil, 4)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCached_OverTEI(t *testing.T) {
	var calls atomic.Int32
	srv := teiServer(t, &calls)
	defer srv.Close()

	p, err := NewProvider(ProviderConfig{Provider: ProviderTEI, BaseURL: srv.URL, CacheSize: 16}, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := p.EmbedDocuments(context.Background(), []string{"same text"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestInstrumented(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	prevMP, prevTP := otel.GetMeterProvider(), otel.GetTracerProvider()
	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMP)
		otel.SetTracerProvider(prevTP)
	})

	ctx := context.Background()
	ok := Instrument(&countingProvider{}, ProviderTEI, "BAAI/bge-small-en-v1.5", nil)
	_, err := ok.EmbedDocuments(ctx, []string{"send the invoice", "fix the login bug"})
	require.NoError(t, err)
	_, err = ok.EmbedDocuments(ctx, []string{"review the audit"})
	require.NoError(t, err)

	bad := Instrument(&countingProvider{err: ErrEmbeddingFailed}, ProviderFastEmbed, "BAAI/bge-small-en-v1.5", nil)
	_, err = bad.EmbedDocuments(ctx, []string{"x"})
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	found := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = md.Data
		}
	}

	dur, isHist := found["actionitems.embeddings.duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, isHist)
	var calls uint64
	for _, dp := range dur.DataPoints {
		calls += dp.Count
	}
	assert.Equal(t, uint64(3), calls)
	assert.Len(t, dur.DataPoints, 2, "one point per backend")

	size, isHist := found["actionitems.embeddings.batch_size"].(metricdata.Histogram[int64])
	require.True(t, isHist)
	var texts int64
	for _, dp := range size.DataPoints {
		texts += dp.Sum
	}
	assert.Equal(t, int64(4), texts)

	failures, isSum := found["actionitems.embeddings.errors_total"].(metricdata.Sum[int64])
	require.True(t, isSum)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)

	ended := spans.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "embeddings.embed", ended[0].Name())
	assert.Equal(t, codes.Error, ended[2].Status().Code)

	assert.IsType(t, &countingProvider{}, ok.Unwrap())
}

func TestNewProvider_Instruments(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: ProviderTEI, BaseURL: "http://localhost:8080"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Instrumented{}, p)

	p, err = NewProvider(ProviderConfig{Provider: ProviderTEI, BaseURL: "http://localhost:8080", CacheSize: 8}, nil)
	require.NoError(t, err)
	cached, isCached := p.(*Cached)
	require.True(t, isCached)
	assert.IsType(t, &Instrumented{}, cached.inner)
}
