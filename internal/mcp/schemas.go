package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// resolveZoneTool returns the tool definition for resolve_zone
func resolveZoneTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_zone",
		Description: "Find the active delivery zone that contains a coordinate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lat": map[string]interface{}{
					"type":        "number",
					"description": "Latitude in degrees",
					"minimum":     -90,
					"maximum":     90,
				},
				"lon": map[string]interface{}{
					"type":        "number",
					"description": "Longitude in degrees",
					"minimum":     -180,
					"maximum":     180,
				},
			},
			Required: []string{"lat", "lon"},
		},
	}
}

// syncIndexTool returns the tool definition for sync_index
func syncIndexTool(jobs []string) mcp.Tool {
	return mcp.Tool{
		Name:        "sync_index",
		Description: "Sync catalog items of a configured module group into its search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job": map[string]interface{}{
					"type":        "string",
					"description": "Configured job (module group) to sync",
					"enum":        jobs,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "full replaces documents, patch merges fields into existing documents and keeps their vectors",
					"enum":        []string{"full", "patch"},
				},
				"embed": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, attach name, description and combined embeddings",
					"default":     false,
				},
				"resume": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, continue from where the last unfinished run stopped",
					"default":     false,
				},
			},
			Required: []string{"job"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "List recent sync runs with their counters and outcome",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job": map[string]interface{}{
					"type":        "string",
					"description": "Only list runs of this job",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of runs to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}
