package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
)

// Searcher runs a raw search request against an index and returns the
// response body.
type Searcher interface {
	Search(ctx context.Context, index string, body []byte) ([]byte, error)
}

// ElasticConfig holds Elasticsearch connection settings.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
}

type elasticSearcher struct {
	client *elasticsearch.Client
}

// NewElasticSearcher creates a Searcher backed by Elasticsearch.
func NewElasticSearcher(cfg ElasticConfig) (Searcher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &elasticSearcher{client: client}, nil
}

func (s *elasticSearcher) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return io.ReadAll(res.Body)
}
