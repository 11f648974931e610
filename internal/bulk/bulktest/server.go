// Package bulktest provides an in-memory stand-in for the search engine's
// REST API, enough to exercise bulk writes and read them back.
package bulktest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Server is a fake search engine. Documents are stored per index as decoded
// JSON objects. Update actions merge top-level fields like the real engine.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	indices  map[string]map[string]map[string]any
	requests int

	// RejectIDs makes the listed document ids fail with a mapping error.
	RejectIDs map[string]bool
	// Status, when non-zero, is returned for every bulk request.
	Status int
	// Truncate drops this many items from the end of bulk responses.
	Truncate int
	// HealthStatus is reported by /_cluster/health, "green" by default.
	HealthStatus string
}

// New starts a fake engine and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		indices:   make(map[string]map[string]map[string]any),
		RejectIDs: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Doc returns a stored document.
func (s *Server) Doc(index, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.indices[index][id]
	return doc, ok
}

// Len returns the number of documents in index.
func (s *Server) Len(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.indices[index])
}

// BulkRequests returns how many bulk requests arrived.
func (s *Server) BulkRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/_bulk":
		s.bulk(w, r)
	case r.URL.Path == "/_cluster/health":
		status := s.HealthStatus
		if status == "" {
			status = "green"
		}
		writeJSON(w, http.StatusOK, map[string]any{"cluster_name": "fake", "status": status, "number_of_nodes": 1})
	case len(parts) == 1:
		s.index(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "_count":
		s.mu.Lock()
		n := len(s.indices[parts[0]])
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"count": n})
	case len(parts) == 2 && parts[1] == "_refresh":
		writeJSON(w, http.StatusOK, map[string]any{"_shards": map[string]any{"failed": 0}})
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodGet:
		doc, ok := s.Doc(parts[0], parts[2])
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"found": true, "_id": parts[2], "_source": doc})
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.indices[name]
	switch r.Method {
	case http.MethodHead:
		if exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		if exists {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "resource_already_exists_exception"}})
			return
		}
		s.indices[name] = make(map[string]map[string]any)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": name})
	case http.MethodDelete:
		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}})
			return
		}
		delete(s.indices, name)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) bulk(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if s.Status != 0 {
		http.Error(w, `{"error":"injected"}`, s.Status)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		http.Error(w, "bad content type "+ct, http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var (
		items     []map[string]any
		hasErrors bool
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for sc.Scan() {
		var action map[string]map[string]string
		if err := json.Unmarshal(sc.Bytes(), &action); err != nil {
			http.Error(w, "bad action line: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !sc.Scan() {
			http.Error(w, "missing source line", http.StatusBadRequest)
			return
		}
		var source map[string]any
		if err := json.Unmarshal(sc.Bytes(), &source); err != nil {
			http.Error(w, "bad source line: "+err.Error(), http.StatusBadRequest)
			return
		}

		for name, meta := range action {
			result := s.apply(name, meta["_index"], meta["_id"], source)
			if _, failed := result["error"]; failed {
				hasErrors = true
			}
			items = append(items, map[string]any{name: result})
		}
	}

	if s.Truncate > 0 && s.Truncate <= len(items) {
		items = items[:len(items)-s.Truncate]
	}
	writeJSON(w, http.StatusOK, map[string]any{"took": 1, "errors": hasErrors, "items": items})
}

func (s *Server) apply(action, index, id string, source map[string]any) map[string]any {
	if s.RejectIDs[id] {
		return map[string]any{
			"_index": index, "_id": id, "status": http.StatusBadRequest,
			"error": map[string]any{"type": "mapper_parsing_exception", "reason": "failed to parse field"},
		}
	}

	docs, ok := s.indices[index]
	if !ok {
		docs = make(map[string]map[string]any)
		s.indices[index] = docs
	}

	switch action {
	case "index":
		docs[id] = source
		return map[string]any{"_index": index, "_id": id, "status": http.StatusCreated, "result": "created"}
	case "update":
		existing, ok := docs[id]
		if !ok {
			return map[string]any{
				"_index": index, "_id": id, "status": http.StatusNotFound,
				"error": map[string]any{"type": "document_missing_exception", "reason": fmt.Sprintf("[%s]: document missing", id)},
			}
		}
		patch, _ := source["doc"].(map[string]any)
		for k, v := range patch {
			existing[k] = v
		}
		return map[string]any{"_index": index, "_id": id, "status": http.StatusOK, "result": "updated"}
	default:
		return map[string]any{"_index": index, "_id": id, "status": http.StatusBadRequest,
			"error": map[string]any{"type": "illegal_argument_exception", "reason": "unsupported action " + action}}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
