package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ClusterHealth is the subset of /_cluster/health the tool reads.
type ClusterHealth struct {
	ClusterName   string `json:"cluster_name"`
	Status        string `json:"status"`
	NumberOfNodes int    `json:"number_of_nodes"`
}

// Health fetches cluster health. A red cluster is reported as an error.
func (c *Client) Health(ctx context.Context) (*ClusterHealth, error) {
	var h ClusterHealth
	if err := c.getJSON(ctx, "/_cluster/health", &h); err != nil {
		return nil, err
	}
	if h.Status == "red" {
		return &h, fmt.Errorf("cluster %s is red", h.ClusterName)
	}
	return &h, nil
}

// Get returns the stored source of a document. found is false on 404.
func (c *Client) Get(ctx context.Context, index, id string) (map[string]any, bool, error) {
	resp, err := c.do(ctx, http.MethodGet, indexPath(index, "_doc", url.PathEscape(id)), "", nil)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, statusError(resp)
	}

	var doc struct {
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}
	return doc.Source, doc.Found, nil
}

// Refresh makes recent writes visible to search.
func (c *Client) Refresh(ctx context.Context, index string) error {
	resp, err := c.do(ctx, http.MethodPost, indexPath(index, "_refresh"), "", nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Count returns the number of documents in index.
func (c *Client) Count(ctx context.Context, index string) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.getJSON(ctx, indexPath(index, "_count"), &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// IndexExists reports whether index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, indexPath(index), "", nil)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("index exists check: status %d", resp.StatusCode)
	}
}

// EnsureIndex creates index with body if it does not exist. With recreate
// set an existing index is deleted first.
func (c *Client) EnsureIndex(ctx context.Context, index string, body map[string]any, recreate bool) (bool, error) {
	exists, err := c.IndexExists(ctx, index)
	if err != nil {
		return false, err
	}

	if exists && !recreate {
		return false, nil
	}
	if exists {
		if err := c.DeleteIndex(ctx, index); err != nil {
			return false, err
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("marshal mapping: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, indexPath(index), "application/json", bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return false, statusError(resp)
	}
	return true, nil
}

// DeleteIndex removes index. A missing index is not an error.
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	resp, err := c.do(ctx, http.MethodDelete, indexPath(index), "", nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return statusError(resp)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIndexNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
}

// ItemMapping returns index settings and mappings for item documents with
// k-NN vectors of the given dimension. veg is left to dynamic mapping since
// full documents carry a boolean and patch documents carry 0/1.
func ItemMapping(dimension int) map[string]any {
	vector := map[string]any{
		"type":      "knn_vector",
		"dimension": dimension,
		"method": map[string]any{
			"name":       "hnsw",
			"space_type": "cosinesimil",
			"engine":     "lucene",
		},
	}

	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{
				"knn":                true,
				"number_of_shards":   1,
				"number_of_replicas": 0,
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":                    map[string]any{"type": "long"},
				"name":                  textWithKeyword(),
				"description":           map[string]any{"type": "text"},
				"price":                 map[string]any{"type": "float"},
				"status":                map[string]any{"type": "integer"},
				"avg_rating":            map[string]any{"type": "float"},
				"rating_count":          map[string]any{"type": "integer"},
				"image":                 map[string]any{"type": "keyword", "index": false},
				"available_time_starts": map[string]any{"type": "keyword"},
				"available_time_ends":   map[string]any{"type": "keyword"},
				"module_id":             map[string]any{"type": "integer"},
				"created_at":            map[string]any{"type": "keyword"},
				"updated_at":            map[string]any{"type": "keyword"},
				"store_id":              map[string]any{"type": "long"},
				"store_name":            textWithKeyword(),
				"delivery_time":         map[string]any{"type": "keyword"},
				"zone_id":               map[string]any{"type": "integer"},
				"category_id":           map[string]any{"type": "long"},
				"category_name":         textWithKeyword(),
				"store_location":        map[string]any{"type": "geo_point"},
				"store_latitude":        map[string]any{"type": "float"},
				"store_longitude":       map[string]any{"type": "float"},
				"name_vector":           vector,
				"description_vector":    vector,
				"combined_vector":       vector,
			},
		},
	}
}

func textWithKeyword() map[string]any {
	return map[string]any{"type": "text", "fields": map[string]any{"keyword": map[string]any{"type": "keyword"}}}
}

func catalogSettings() map[string]any {
	return map[string]any{
		"index": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
	}
}

// StoreMapping returns index settings and mappings for store documents.
func StoreMapping() map[string]any {
	return map[string]any{
		"settings": catalogSettings(),
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":            map[string]any{"type": "long"},
				"name":          textWithKeyword(),
				"slug":          map[string]any{"type": "keyword"},
				"phone":         map[string]any{"type": "keyword"},
				"email":         map[string]any{"type": "keyword"},
				"logo":          map[string]any{"type": "keyword", "index": false},
				"cover_photo":   map[string]any{"type": "keyword", "index": false},
				"image":         map[string]any{"type": "keyword", "index": false},
				"address":       map[string]any{"type": "text"},
				"latitude":      map[string]any{"type": "float"},
				"longitude":     map[string]any{"type": "float"},
				"status":        map[string]any{"type": "integer"},
				"active":        map[string]any{"type": "integer"},
				"veg":           map[string]any{"type": "integer"},
				"non_veg":       map[string]any{"type": "integer"},
				"delivery":      map[string]any{"type": "integer"},
				"take_away":     map[string]any{"type": "integer"},
				"delivery_time": map[string]any{"type": "keyword"},
				"zone_id":       map[string]any{"type": "long"},
				"module_id":     map[string]any{"type": "long"},
				"order_count":   map[string]any{"type": "integer"},
				"total_order":   map[string]any{"type": "integer"},
				"featured":      map[string]any{"type": "integer"},
				"avg_rating":    map[string]any{"type": "float"},
				"rating_count":  map[string]any{"type": "integer"},
				"created_at":    map[string]any{"type": "keyword"},
				"updated_at":    map[string]any{"type": "keyword"},
			},
		},
	}
}

// CategoryMapping returns index settings and mappings for category documents.
func CategoryMapping() map[string]any {
	return map[string]any{
		"settings": catalogSettings(),
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":         map[string]any{"type": "long"},
				"name":       textWithKeyword(),
				"slug":       map[string]any{"type": "keyword"},
				"image":      map[string]any{"type": "keyword", "index": false},
				"parent_id":  map[string]any{"type": "long"},
				"position":   map[string]any{"type": "integer"},
				"status":     map[string]any{"type": "integer"},
				"featured":   map[string]any{"type": "integer"},
				"module_id":  map[string]any{"type": "long"},
				"created_at": map[string]any{"type": "keyword"},
				"updated_at": map[string]any{"type": "keyword"},
			},
		},
	}
}
