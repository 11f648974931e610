package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/searchsync/internal/app"
	"github.com/dshills/searchsync/internal/preflight"
	"github.com/dshills/searchsync/internal/syncer"
	"github.com/dshills/searchsync/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeUnknownJob     = -32001 // Job is not configured
	ErrorCodeSyncInProgress = -32002 // Another run targets the same index
	ErrorCodeLedgerDisabled = -32003 // No run ledger configured
	ErrorCodeUnreachable    = -32004 // Source, search engine or embedder is down
	maxStatusLimit          = 100
	defaultStatusLimit      = 10
)

// handleResolveZone handles the resolve_zone tool invocation
func (s *Server) handleResolveZone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	lat, err := requireNumber(args, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := requireNumber(args, "lon")
	if err != nil {
		return nil, err
	}

	id, found, err := s.svc.ResolveZone(ctx, lat, lon)
	if errors.Is(err, types.ErrInvalidLatitude) || errors.Is(err, types.ErrInvalidLongitude) || errors.Is(err, types.ErrNotANumber) {
		return nil, newMCPError(ErrorCodeInvalidParams, "coordinate out of range", map[string]interface{}{
			"lat":    lat,
			"lon":    lon,
			"reason": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "zone lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"found": found,
		"lat":   lat,
		"lon":   lon,
	}
	if found {
		response["zone_id"] = id
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSyncIndex handles the sync_index tool invocation
func (s *Server) handleSyncIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	job, ok := args["job"].(string)
	if !ok || job == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "job parameter is required", map[string]interface{}{
			"param":   "job",
			"reason":  "missing or empty",
			"allowed": s.svc.Jobs(),
		})
	}

	mode := getStringDefault(args, "mode", "")
	if mode != "" {
		if _, err := types.ParseWriteMode(mode); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
				"param":   "mode",
				"value":   mode,
				"allowed": []string{string(types.WriteFull), string(types.WritePatch)},
			})
		}
	}

	req := app.SyncRequest{
		Job:    job,
		Mode:   mode,
		Embed:  getBoolDefault(args, "embed", false),
		Resume: getBoolDefault(args, "resume", false),
	}

	sum, err := s.svc.Sync(ctx, req)
	if sum == nil && err != nil {
		return nil, syncError(err)
	}

	response := summaryResponse(sum)
	if err != nil {
		response["error"] = err.Error()
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		// get_status has no required arguments
		args = map[string]interface{}{}
	}

	job := getStringDefault(args, "job", "")
	limit := getIntDefault(args, "limit", defaultStatusLimit)
	if limit < 1 || limit > maxStatusLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	runs, err := s.svc.Runs(ctx, job, limit)
	if errors.Is(err, app.ErrLedgerDisabled) {
		return nil, newMCPError(ErrorCodeLedgerDisabled, "run ledger is disabled", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(runs))
	for _, r := range runs {
		item := map[string]interface{}{
			"run_id":     r.ID,
			"job":        r.Job,
			"index":      r.Index,
			"mode":       r.Mode,
			"strategy":   r.Strategy,
			"status":     string(r.Status),
			"processed":  r.Processed,
			"succeeded":  r.Succeeded,
			"failed":     r.Failed,
			"batches":    r.Batches,
			"started_at": r.StartedAt.UTC().Format(time.RFC3339),
		}
		if r.Token != "" {
			item["token"] = r.Token
		}
		if r.Error != "" {
			item["error"] = r.Error
		}
		if r.FinishedAt != nil {
			item["finished_at"] = r.FinishedAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}

	response := map[string]interface{}{
		"jobs": s.svc.Jobs(),
		"runs": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func summaryResponse(sum *syncer.Summary) map[string]interface{} {
	response := map[string]interface{}{
		"run_id":          sum.RunID,
		"job":             sum.Job,
		"index":           sum.Index,
		"mode":            string(sum.Mode),
		"processed":       sum.Stats.Processed,
		"succeeded":       sum.Stats.Succeeded,
		"failed":          sum.Stats.Failed,
		"batches":         sum.Batches,
		"elapsed_ms":      sum.Elapsed.Milliseconds(),
		"docs_per_second": math.Round(sum.DocsPerSecond*10) / 10,
		"truncated":       sum.Truncated,
	}
	if sum.Token != "" {
		response["token"] = sum.Token
	}
	return response
}

// syncError maps a run that never started to an MCP error.
func syncError(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, app.ErrUnknownJob):
		return newMCPError(ErrorCodeUnknownJob, "unknown job", data)
	case errors.Is(err, syncer.ErrRunInProgress):
		return newMCPError(ErrorCodeSyncInProgress, "a sync is already running for this index", data)
	case errors.Is(err, app.ErrLedgerDisabled):
		return newMCPError(ErrorCodeLedgerDisabled, "resume needs the run ledger", data)
	case errors.Is(err, preflight.ErrUnreachable):
		return newMCPError(ErrorCodeUnreachable, "dependency unreachable", data)
	case errors.Is(err, types.ErrInvalidWriteMode), errors.Is(err, syncer.ErrInvalidJob),
		errors.Is(err, app.ErrStrategyMismatch):
		return newMCPError(ErrorCodeInvalidParams, "invalid sync request", data)
	default:
		return newMCPError(ErrorCodeInternalError, "sync failed", data)
	}
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requireNumber extracts a required numeric parameter
func requireNumber(args map[string]interface{}, key string) (float64, error) {
	switch v := args[key].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	}
	return 0, newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
		"param":  key,
		"reason": "missing or not a number",
	})
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
