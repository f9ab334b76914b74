// Package retrieval finds knowledge-base passages for a question with a
// kNN search over embedded chunks.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mehraj-vivasoft/pihr-autoquery/pkg/logger"
)

// Embedder turns text into a vector in the same space as the indexed chunks.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder. An empty model selects
// text-embedding-ada-002.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	m := openai.AdaEmbeddingV2
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &OpenAIEmbedder{client: openai.NewClient(apiKey), model: m}, nil
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}

// Config names the index and fields the chunks live in.
type Config struct {
	Index       string
	TextField   string
	VectorField string
}

// Retriever implements top-k chunk lookup.
type Retriever struct {
	searcher Searcher
	embedder Embedder
	cfg      Config
	logger   *logger.Logger
}

// New creates a retriever.
func New(searcher Searcher, embedder Embedder, cfg Config, log *logger.Logger) *Retriever {
	if cfg.TextField == "" {
		cfg.TextField = "text"
	}
	if cfg.VectorField == "" {
		cfg.VectorField = "embedding"
	}
	return &Retriever{
		searcher: searcher,
		embedder: embedder,
		cfg:      cfg,
		logger:   log,
	}
}

// TopKChunks returns the text of the k chunks closest to query. With a
// positive maxDistance, chunks further than that cosine distance are
// dropped.
func (r *Retriever) TopKChunks(ctx context.Context, query string, k int, maxDistance float64) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(r.knnQuery(vector, k, maxDistance))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	raw, err := r.searcher.Search(ctx, r.cfg.Index, body)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", r.cfg.Index, err)
	}

	var resp struct {
		Hits struct {
			Hits []struct {
				Score  float64                `json:"_score"`
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	chunks := make([]string, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		text, ok := hit.Source[r.cfg.TextField].(string)
		if !ok || text == "" {
			continue
		}
		chunks = append(chunks, text)
	}

	r.logger.Debug("retrieved chunks",
		zap.String("index", r.cfg.Index),
		zap.Int("requested", k),
		zap.Int("returned", len(chunks)),
	)
	return chunks, nil
}

func (r *Retriever) knnQuery(vector []float32, k int, maxDistance float64) map[string]interface{} {
	candidates := k * 10
	if candidates < 100 {
		candidates = 100
	}

	knn := map[string]interface{}{
		"field":          r.cfg.VectorField,
		"query_vector":   vector,
		"k":              k,
		"num_candidates": candidates,
	}
	if maxDistance > 0 {
		knn["similarity"] = 1 - maxDistance
	}

	return map[string]interface{}{
		"size":    k,
		"knn":     knn,
		"_source": []string{r.cfg.TextField},
	}
}
