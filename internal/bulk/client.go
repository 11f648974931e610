package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dshills/searchsync/pkg/types"
)

// Errors
var (
	ErrTransport     = errors.New("bulk transport failed")
	ErrIndexNotFound = errors.New("index not found")
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 60 * time.Second

// Config holds search engine connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the search engine's REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Item is one document to write.
type Item struct {
	ID  string
	Doc any
}

// ItemError describes a document the engine rejected.
type ItemError struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason"`
}

func (e ItemError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("document %s: %s: %s (status %d)", e.ID, e.Type, e.Reason, e.Status)
	}
	return fmt.Sprintf("document %s: %s (status %d)", e.ID, e.Reason, e.Status)
}

// Result counts the outcome of a bulk call. Succeeded + Failed always equals
// the number of items passed in.
type Result struct {
	Succeeded int
	Failed    int
	Errors    []ItemError
}

type actionMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Took   int                         `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

type bulkItemResult struct {
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error"`
}

// Bulk writes items to index in one request.
func (c *Client) Bulk(ctx context.Context, index string, mode types.WriteMode, items []Item) (Result, error) {
	var res Result
	if len(items) == 0 {
		return res, nil
	}

	action := "index"
	if mode == types.WritePatch {
		action = "update"
	}

	var (
		body bytes.Buffer
		sent []string
	)
	for _, it := range items {
		line, err := encodeAction(action, index, it)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{ID: it.ID, Reason: err.Error()})
			continue
		}
		body.Write(line)
		sent = append(sent, it.ID)
	}
	if len(sent) == 0 {
		return res, nil
	}

	failAll := func(reason string) {
		res.Failed += len(sent)
		for _, id := range sent {
			res.Errors = append(res.Errors, ItemError{ID: id, Reason: reason})
		}
	}

	resp, err := c.do(ctx, http.MethodPost, "/_bulk", "application/x-ndjson", &body)
	if err != nil {
		failAll(err.Error())
		return res, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		reason := fmt.Sprintf("bulk status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		failAll(reason)
		return res, fmt.Errorf("%w: %s", ErrTransport, reason)
	}

	var br bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		failAll("undecodable bulk response")
		return res, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}

	for i, id := range sent {
		if i >= len(br.Items) {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{ID: id, Reason: "missing from bulk response"})
			continue
		}

		r, ok := firstResult(br.Items[i])
		if !ok {
			res.Failed++
			res.Errors = append(res.Errors, ItemError{ID: id, Reason: "empty bulk response item"})
			continue
		}
		if ie, failed := itemFailure(id, r); failed {
			res.Failed++
			res.Errors = append(res.Errors, ie)
			continue
		}
		res.Succeeded++
	}

	return res, nil
}

func encodeAction(action, index string, it Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if err := enc.Encode(map[string]actionMeta{action: {Index: index, ID: it.ID}}); err != nil {
		return nil, err
	}

	var doc any = it.Doc
	if action == "update" {
		doc = map[string]any{"doc": it.Doc}
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// firstResult unwraps the single action-keyed object of a response item.
func firstResult(m map[string]bulkItemResult) (bulkItemResult, bool) {
	for _, r := range m {
		return r, true
	}
	return bulkItemResult{}, false
}

func itemFailure(id string, r bulkItemResult) (ItemError, bool) {
	hasError := len(r.Error) > 0 && string(r.Error) != "null"
	if !hasError && r.Status < 300 {
		return ItemError{}, false
	}

	ie := ItemError{ID: id, Status: r.Status}
	if hasError {
		var detail struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(r.Error, &detail); err == nil && (detail.Type != "" || detail.Reason != "") {
			ie.Type = detail.Type
			ie.Reason = detail.Reason
		} else {
			ie.Reason = string(r.Error)
		}
	} else {
		ie.Reason = http.StatusText(r.Status)
	}
	return ie, true
}

// do performs one request against the engine.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return c.httpClient.Do(req)
}

func indexPath(index string, rest ...string) string {
	parts := append([]string{url.PathEscape(index)}, rest...)
	return "/" + strings.Join(parts, "/")
}
