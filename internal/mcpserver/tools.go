package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/services"
)

// listLimit caps list_memories.
const listLimit = 100

// MemoryTools implements the memory tools exposed over MCP.
type MemoryTools struct {
	mems  *services.MemoryService
	users *services.UserService
	log   zerolog.Logger
}

func NewMemoryTools(mems *services.MemoryService, users *services.UserService, log zerolog.Logger) *MemoryTools {
	return &MemoryTools{mems: mems, users: users, log: log}
}

// RegisterTools registers the memory tools on s.
func (t *MemoryTools) RegisterTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("add_memories",
		mcp.WithDescription("Add a new memory. Call this whenever the user shares something about themselves, their preferences, or asks you to remember something."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to remember")),
		mcp.WithObject("metadata", mcp.Description("Optional JSON object stored with the memory")),
	), t.AddMemories)

	s.AddTool(mcp.NewTool("search_memory",
		mcp.WithDescription("Search through stored memories. Call this for every user query to find relevant context."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query text")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (1-100, default 10)")),
	), t.SearchMemory)

	s.AddTool(mcp.NewTool("search_memories",
		mcp.WithDescription("Search stored memories by similarity, keeping only those whose metadata matches every given key."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query text")),
		mcp.WithObject("metadata_filters", mcp.Description("Exact-match metadata constraints, e.g. {\"source\": \"chat\"}")),
		mcp.WithNumber("limit", mcp.Description("Number of results to return (1-100, default 10)")),
	), t.SearchMemories)

	s.AddTool(mcp.NewTool("list_memories",
		mcp.WithDescription("List the user's memories, newest first."),
	), t.ListMemories)

	s.AddTool(mcp.NewTool("delete_all_memories",
		mcp.WithDescription("Delete all of the user's memories."),
	), t.DeleteAllMemories)
}

func (t *MemoryTools) AddMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := t.identify(ctx)
	if errRes != nil {
		return errRes, nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, err := objectArg(req, "metadata")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := t.mems.CreateMemory(ctx, services.CreateMemoryInput{UserID: id.UserID, App: id.ClientName, Text: text, Metadata: meta})
	if err != nil {
		return t.failed(id, "add memory", err), nil
	}
	return jsonResult(m)
}

func (t *MemoryTools) SearchMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.search(ctx, req, false)
}

// SearchMemories is SearchMemory restricted by metadata_filters.
func (t *MemoryTools) SearchMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.search(ctx, req, true)
}

func (t *MemoryTools) search(ctx context.Context, req mcp.CallToolRequest, withFilters bool) (*mcp.CallToolResult, error) {
	id, errRes := t.identify(ctx)
	if errRes != nil {
		return errRes, nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sr := filter.SearchRequest{Query: query, UserID: id.UserID}
	if v, ok := req.GetArguments()["limit"].(float64); ok && v >= 1 && v <= filter.MaxSearchLimit {
		n := int(v)
		sr.Limit = &n
	}
	meta := map[string]interface{}{"query": query}
	if withFilters {
		if sr.MetadataFilters, err = objectArg(req, "metadata_filters"); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if sr.MetadataFilters != nil {
			meta["metadata_filters"] = sr.MetadataFilters
		}
	}
	q, err := filter.ResolveSearch(sr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found, err := t.mems.Search(ctx, q)
	if err != nil {
		return t.failed(id, "search", err), nil
	}
	t.recordAccess(ctx, id, found, "search", meta)
	return jsonResult(found)
}

func (t *MemoryTools) ListMemories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := t.identify(ctx)
	if errRes != nil {
		return errRes, nil
	}
	size := listLimit
	q, err := filter.Resolve(filter.Request{UserID: id.UserID, Size: &size}, listLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := t.mems.Query(ctx, q)
	if err != nil {
		return t.failed(id, "list", err), nil
	}
	t.recordAccess(ctx, id, page.Items, "list", nil)
	return jsonResult(page.Items)
}

func (t *MemoryTools) DeleteAllMemories(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := t.identify(ctx)
	if errRes != nil {
		return errRes, nil
	}
	res, err := t.mems.DeleteAllMemories(ctx, id.UserID)
	if err != nil {
		return t.failed(id, "delete all", err), nil
	}
	return jsonResult(res)
}

// identify resolves the caller. Users are created on first contact so a fresh
// MCP client can start adding memories immediately.
func (t *MemoryTools) identify(ctx context.Context) (Identity, *mcp.CallToolResult) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return id, mcp.NewToolResultError("user_id and client_name are required; connect via /mcp/{client_name}/{user_id}")
	}
	if _, err := t.users.GetUser(ctx, id.UserID); err != nil {
		if !model.IsNotFoundError(err) {
			return id, t.failed(id, "resolve user", err)
		}
		if _, err := t.users.CreateUser(ctx, &model.User{UserID: id.UserID}); err != nil && !model.IsConflictError(err) {
			return id, t.failed(id, "create user", err)
		}
	}
	return id, nil
}

func (t *MemoryTools) recordAccess(ctx context.Context, id Identity, ms []*model.Memory, accessType string, meta map[string]interface{}) {
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	if err := t.mems.RecordAccess(ctx, id.UserID, id.ClientName, ids, accessType, meta); err != nil {
		t.log.Warn().Err(err).Str("user_id", id.UserID).Str("client", id.ClientName).Msg("recording access failed")
	}
}

func (t *MemoryTools) failed(id Identity, op string, err error) *mcp.CallToolResult {
	t.log.Error().Stack().Err(err).Str("user_id", id.UserID).Str("client", id.ClientName).Msg(op + " failed")
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}

// objectArg returns the JSON object argument name, or nil when it is absent.
func objectArg(req mcp.CallToolRequest, name string) (map[string]interface{}, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a JSON object", name)
	}
	return obj, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
