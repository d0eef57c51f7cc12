// Package mcptools provides MCP tool handlers over the trend query engine.
//
// Each tool follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"example.com/tessera/internal/trends"
)

// Querier is the subset of the trend engine the tools need.
type Querier interface {
	QueryAggregated(ctx context.Context, userID string, entities []string, start, end *time.Time, bucket trends.Bucket, limit int) (*trends.AggregatedResult, error)
}

// DataOverTimeTool handles the data_over_time MCP tool.
type DataOverTimeTool struct {
	engine Querier
	userID string
}

// NewDataOverTimeTool creates a DataOverTimeTool scoped to one user. The MCP
// server runs over stdio for a single operator, so the user is fixed at
// startup rather than carried per call.
func NewDataOverTimeTool(engine Querier, userID string) *DataOverTimeTool {
	return &DataOverTimeTool{engine: engine, userID: userID}
}

// Definition returns the MCP tool definition for data_over_time.
func (t *DataOverTimeTool) Definition() mcp.Tool {
	return mcp.NewTool("data_over_time",
		mcp.WithDescription(
			"Query health metrics over a date range, aggregated into daily, weekly, or monthly buckets. "+
				"Supports up to 5 metrics per call so related series (e.g. weight and calories_kcal) can be compared. "+
				"Use list_entities to discover valid metric names.",
		),
		mcp.WithString("entities",
			mcp.Required(),
			mcp.Description("Comma-separated metric names, max 5 (e.g. \"weight,calories_kcal\")"),
		),
		mcp.WithString("startDate",
			mcp.Description("Inclusive start date, YYYY-MM-DD"),
		),
		mcp.WithString("endDate",
			mcp.Description("Inclusive end date, YYYY-MM-DD"),
		),
		mcp.WithString("aggregation",
			mcp.Description("Bucket size: daily (default), weekly, or monthly"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max raw rows fetched per metric before aggregation (default: 100, max: 1000)"),
		),
	)
}

// Handle processes the data_over_time tool call.
func (t *DataOverTimeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawEntities := req.GetString("entities", "")
	if rawEntities == "" {
		return mcp.NewToolResultError("'entities' is required"), nil
	}
	entities := splitEntities(rawEntities)

	bucket, err := trends.ParseBucket(req.GetString("aggregation", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	start, err := dateArg(req, "startDate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := dateArg(req, "endDate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := intArg(req, "limit", 0)

	result, err := t.engine.QueryAggregated(ctx, t.userID, entities, start, end, bucket, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// ListEntitiesTool handles the list_entities MCP tool.
type ListEntitiesTool struct{}

// NewListEntitiesTool creates a ListEntitiesTool.
func NewListEntitiesTool() *ListEntitiesTool {
	return &ListEntitiesTool{}
}

// Definition returns the MCP tool definition for list_entities.
func (t *ListEntitiesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_entities",
		mcp.WithDescription("List every metric name accepted by data_over_time."),
	)
}

// Handle processes the list_entities tool call.
func (t *ListEntitiesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	entities := trends.Entities()
	fmt.Fprintf(&b, "%d entities available:\n\n", len(entities))
	for _, entity := range entities {
		fmt.Fprintf(&b, "- %s\n", entity)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func splitEntities(raw string) []string {
	parts := strings.Split(raw, ",")
	entities := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			entities = append(entities, trimmed)
		}
	}
	return entities
}

func dateArg(req mcp.CallToolRequest, key string) (*time.Time, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", key, raw)
	}
	return &parsed, nil
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
