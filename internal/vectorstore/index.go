package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studyowl/studyowl/config"
	"github.com/studyowl/studyowl/models"
)

// Index is a minimal REST client to a remote vector index. Vectors are
// upserted by chunk id with text/document/owner metadata attached; queries
// apply an optional equality filter on the owner tag, and deletion is by
// metadata filter. The similarity score returned by the index is used as-is.
type Index struct {
	url       string
	apiKey    string
	namespace string
	client    *http.Client
}

// NewIndex builds a client from configuration.
func NewIndex(cfg config.VectorIndexConfig) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:       strings.TrimSuffix(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: timeout},
	}
}

type indexVector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata"`
}

// Upsert stores the records in the index, keyed by chunk id.
func (x *Index) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]indexVector, len(records))
	for i, rec := range records {
		vectors[i] = indexVector{
			ID:     rec.ID,
			Values: rec.Embedding,
			Metadata: map[string]string{
				"text":          rec.Text,
				"document_id":   rec.DocumentID,
				"document_name": rec.DocumentName,
				"owner_id":      rec.OwnerID,
			},
		}
	}
	body := map[string]any{"namespace": x.namespace, "vectors": vectors}
	return x.postJSON(ctx, "/vectors/upsert", body, nil)
}

// Search queries the index by vector. A non-empty ownerID becomes an
// equality filter on the owner metadata tag.
func (x *Index) Search(ctx context.Context, vector []float32, topK int, ownerID string) ([]models.VectorSearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"namespace":       x.namespace,
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if ownerID != "" {
		req["filter"] = map[string]any{"owner_id": map[string]any{"$eq": ownerID}}
	}
	var resp struct {
		Matches []struct {
			ID       string            `json:"id"`
			Score    float64           `json:"score"`
			Metadata map[string]string `json:"metadata"`
		} `json:"matches"`
	}
	if err := x.postJSON(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}
	results := make([]models.VectorSearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		results = append(results, models.VectorSearchResult{
			ChunkID:      m.ID,
			Content:      m.Metadata["text"],
			Score:        m.Score,
			DocumentID:   m.Metadata["document_id"],
			DocumentName: m.Metadata["document_name"],
		})
	}
	return results, nil
}

// DeleteByDocument removes every vector tagged with the document id.
func (x *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"namespace": x.namespace,
		"filter":    map[string]any{"document_id": map[string]any{"$eq": documentID}},
	}
	return x.postJSON(ctx, "/vectors/delete", body, nil)
}

// DeleteByOwner removes every vector tagged with the owner id. Only the
// remote variant supports this; the relational variant relies on the user
// cascade instead.
func (x *Index) DeleteByOwner(ctx context.Context, ownerID string) error {
	body := map[string]any{
		"namespace": x.namespace,
		"filter":    map[string]any{"owner_id": map[string]any{"$eq": ownerID}},
	}
	return x.postJSON(ctx, "/vectors/delete", body, nil)
}

// Ping checks the index is reachable at startup.
func (x *Index) Ping(ctx context.Context) error {
	return x.postJSON(ctx, "/describe_index_stats", map[string]any{}, nil)
}

func (x *Index) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.url+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("Api-Key", x.apiKey)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vector index POST %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
