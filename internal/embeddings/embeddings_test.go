package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder returns a vector derived from text length and records inputs.
type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (c *countingEmbedder) Name() string    { return "counting" }
func (c *countingEmbedder) Dimensions() int { return 2 }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 0)
	ctx := context.Background()

	_, err := c.Embed(ctx, []string{"a", "bb"})
	require.NoError(t, err)

	vecs, err := c.Embed(ctx, []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 1}, {3, 1}, {1, 1}}, vecs)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"ccc"}, inner.calls[1])

	_, err = c.Embed(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2)
}

func TestCachedEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("model offline")}
	c := NewCachedEmbedder(inner, 0)

	_, err := c.Embed(context.Background(), []string{"q"})
	require.Error(t, err)

	inner.err = nil
	v, err := EmbedOne(context.Background(), c, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, v)
}

func TestOllamaEmbedderBatchesInputs(t *testing.T) {
	var got ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := ollamaEmbedResponse{}
		for range got.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.1, 0.2, 0.3})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("", 3, srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, DefaultOllamaModel, got.Model)
	assert.Equal(t, []string{"one", "two"}, got.Input)
	assert.Equal(t, "ollama/nomic-embed-text", e.Name())
}

func TestOllamaEmbedderRejectsWrongDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 768, srv.URL)
	_, err := e.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestOllamaEmbedderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("missing", 768, srv.URL)
	_, err := e.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOpenAIEmbedderRequestsDimensionsAndOrdersByIndex(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("sk-test", ModelTextEmbedding3Small, 2, srv.URL)
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
	assert.EqualValues(t, 2, body["dimensions"])
	assert.Equal(t, "text-embedding-3-small", body["model"])
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewOllamaEmbedder("", 768, "http://127.0.0.1:0")
	vecs, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
