package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"astrogeo/internal/common/config"
)

// ElasticStore serves nearest-neighbor queries from an Elasticsearch
// index with a dense_vector field. Used instead of the sqlite index
// when the passage corpus is shared across instances.
type ElasticStore struct {
	client *elasticsearch.Client
	index  string
}

// OpenElasticStore connects to the cluster and verifies the index exists.
func OpenElasticStore(cfg config.ElasticsearchConfig) (*ElasticStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Indices.Exists([]string{cfg.Index})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch unreachable: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("elasticsearch index %q not found (status %d)", cfg.Index, res.StatusCode)
	}

	return &ElasticStore{client: client, index: cfg.Index}, nil
}

type knnHit struct {
	Score  float64 `json:"_score"`
	Source struct {
		DocID   string `json:"doc_id"`
		Content string `json:"content"`
	} `json:"_source"`
}

type knnResponse struct {
	Hits struct {
		Hits []knnHit `json:"hits"`
	} `json:"hits"`
}

// Query runs a knn search. Elasticsearch reports cosine similarity
// normalized to (0, 1]; it is converted back to a distance so all
// stores speak the same unit.
func (s *ElasticStore) Query(ctx context.Context, queryEmbedding []float32, k int) ([]Fragment, error) {
	body := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   queryEmbedding,
			"k":              k,
			"num_candidates": k * 10,
		},
		"_source": []string{"doc_id", "content"},
		"size":    k,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode knn query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("knn search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("knn search returned status %d: %s", res.StatusCode, string(raw))
	}

	var parsed knnResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode knn response: %w", err)
	}

	fragments := make([]Fragment, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		fragments = append(fragments, Fragment{
			DocID:    hit.Source.DocID,
			Content:  hit.Source.Content,
			Distance: 1.0 - hit.Score,
		})
	}
	return fragments, nil
}

// Close is a no-op; the elasticsearch client holds no persistent
// connections that need releasing.
func (s *ElasticStore) Close() error {
	return nil
}
