package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goibibo/mem0/internal/api/respond"
	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/services"
	"github.com/goibibo/mem0/internal/store/sqlite"
	"github.com/goibibo/mem0/internal/vectorstore"
)

// topicEmbedder maps text onto a few fixed topic dimensions.
type topicEmbedder struct{}

func (topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	text = strings.ToLower(text)
	vec := []float32{0, 0, 0, 0}
	for i, k := range []string{"coffee", "dog", "music"} {
		if strings.Contains(text, k) {
			vec[i] = 1
		}
	}
	if vec[0]+vec[1]+vec[2] == 0 {
		vec[3] = 1
	}
	return vec, nil
}

type staticHealth struct{ ok bool }

func (s staticHealth) IsHealthy() bool { return s.ok }
func (s staticHealth) Components() map[string]bool {
	return map[string]bool{"store": s.ok, "vectorstore": false}
}

type server struct {
	t       *testing.T
	handler http.Handler
}

func newServer(t *testing.T, semantic bool) *server {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var idx vectorstore.Index
	if semantic {
		ch, err := vectorstore.NewChromem("")
		require.NoError(t, err)
		idx = ch
	}
	users, err := services.NewUserService(st, 100, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(users.Close)

	router := NewRouter(Services{
		Users:      users,
		Apps:       services.NewAppService(st, users),
		Categories: services.NewCategoryService(st, users),
		Memories:   services.NewMemoryService(st, users, idx, topicEmbedder{}, nil, zerolog.Nop()),
	}, Options{MaxPageSize: 50, SearchThreshold: 0.3, Health: staticHealth{ok: true}, Log: zerolog.Nop()})
	return &server{t: t, handler: router}
}

func (s *server) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *server) decode(rr *httptest.ResponseRecorder, dst interface{}) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func (s *server) createUser(userID string) {
	s.t.Helper()
	rr := s.do("POST", "/api/v1/users/", map[string]string{"user_id": userID})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *server) createMemory(userID, app, text string) *model.Memory {
	s.t.Helper()
	rr := s.do("POST", "/api/v1/memories/", map[string]string{"user_id": userID, "app": app, "text": text})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())
	var m model.Memory
	s.decode(rr, &m)
	return &m
}

func (s *server) errorDetail(rr *httptest.ResponseRecorder) string {
	s.t.Helper()
	var body respond.ErrorResponse
	s.decode(rr, &body)
	return body.Detail
}

func TestUsersEndpoints(t *testing.T) {
	s := newServer(t, false)
	s.createUser("alice")

	rr := s.do("POST", "/api/v1/users", map[string]string{"user_id": "alice"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do("POST", "/api/v1/users/", map[string]string{"user_id": "bob", "email": "nope"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("GET", "/api/v1/users/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var u model.User
	s.decode(rr, &u)
	assert.Equal(t, "alice", u.UserID)

	rr = s.do("GET", "/api/v1/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do("GET", "/api/v1/users/?page=1&page_size=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var page filter.Page[model.UserWithCount]
	s.decode(rr, &page)
	assert.Equal(t, 1, page.Total)

	rr = s.do("GET", "/api/v1/users/?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateMemoryEndpoint(t *testing.T) {
	s := newServer(t, true)
	s.createUser("alice")

	m := s.createMemory("alice", "", "coffee at noon")
	assert.Equal(t, "openmemory", m.AppName)
	assert.Equal(t, model.StateActive, m.State)

	rr := s.do("POST", "/api/v1/memories/", map[string]string{"user_id": "ghost", "text": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do("POST", "/api/v1/memories/", map[string]string{"user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("POST", "/api/v1/memories/", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("PUT", "/api/v1/apps/"+m.AppID+"?is_active=false", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do("POST", "/api/v1/memories/", map[string]string{"user_id": "alice", "text": "more coffee"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, s.errorDetail(rr), "paused")
}

func TestFilterEndpoint(t *testing.T) {
	s := newServer(t, true)
	s.createUser("alice")
	s.createMemory("alice", "claude", "coffee beans")
	s.createMemory("alice", "cursor", "a dog named rex")
	s.createMemory("alice", "claude", "music on repeat")

	rr := s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "size": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "true", rr.Header().Get(respond.PaginationStableHeader))
	var page filter.Page[model.Memory]
	s.decode(rr, &page)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "music on repeat", page.Items[0].Content)

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "app_names": []string{"claude"}, "search_query": "BEAN"})
	require.Equal(t, http.StatusOK, rr.Code)
	s.decode(rr, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "coffee beans", page.Items[0].Content)

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "search_query": "coffee", "semantic": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "false", rr.Header().Get(respond.PaginationStableHeader))
	s.decode(rr, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Pages)
	assert.Contains(t, page.Items[0].Metadata, "relevance_score")

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "ghost"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "size": 51})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "metadata_filters": map[string]interface{}{"bad key!": "x"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListMemoriesQueryString(t *testing.T) {
	s := newServer(t, false)
	s.createUser("alice")
	first := s.createMemory("alice", "claude", "first")
	s.createMemory("alice", "cursor", "second")

	rr := s.do("GET", "/api/v1/memories/?user_id=alice&app_id="+first.AppID, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var page filter.Page[model.Memory]
	s.decode(rr, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, first.ID, page.Items[0].ID)

	rr = s.do("GET", "/api/v1/memories?user_id=alice&sort_column=memory&sort_direction=asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s.decode(rr, &page)
	assert.Equal(t, "first", page.Items[0].Content)

	rr = s.do("POST", "/api/v1/memories/"+first.ID+"/categories", map[string]interface{}{"categories": []string{"Work"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do("GET", "/api/v1/memories/?user_id=alice&categories=work", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s.decode(rr, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, first.ID, page.Items[0].ID)

	rr = s.do("GET", "/api/v1/memories/?user_id=alice&categories=unknown", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	s.decode(rr, &page)
	assert.Zero(t, page.Total)

	rr = s.do("GET", "/api/v1/memories/?user_id=alice&page=x", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchEndpoint(t *testing.T) {
	s := newServer(t, true)
	s.createUser("alice")
	coffee := s.createMemory("alice", "", "coffee")
	s.createMemory("alice", "", "dog")

	rr := s.do("POST", "/api/v1/memories/search", map[string]interface{}{"query": "coffee", "user_id": "alice"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got []model.Memory
	s.decode(rr, &got)
	require.Len(t, got, 1)
	assert.Equal(t, coffee.ID, got[0].ID)

	rr = s.do("POST", "/api/v1/memories/search", map[string]interface{}{"query": "", "user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("POST", "/api/v1/memories/search", map[string]interface{}{"query": "coffee", "limit": 101})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	plain := newServer(t, false)
	plain.createUser("alice")
	rr = plain.do("POST", "/api/v1/memories/search", map[string]interface{}{"query": "coffee", "user_id": "alice"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGetMemoryAndAccessLog(t *testing.T) {
	s := newServer(t, false)
	s.createUser("alice")
	m := s.createMemory("alice", "claude", "note")
	reader := s.createMemory("alice", "cursor", "other")

	rr := s.do("GET", "/api/v1/memories/"+m.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest("GET", "/api/v1/memories/"+m.ID, nil)
	req.Header.Set(ClientAppHeader, reader.AppID)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rr = s.do("GET", "/api/v1/memories/"+m.ID+"/access-log?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var logs filter.Page[model.AccessLogEntry]
	s.decode(rr, &logs)
	require.Equal(t, 2, logs.Total)
	assert.Equal(t, reader.AppID, logs.Items[0].AppID)
	assert.Equal(t, "cursor", logs.Items[0].AppName)

	rr = s.do("GET", "/api/v1/memories/"+m.ID+"/access-log?page_size=101", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("GET", "/api/v1/memories/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do("GET", "/api/v1/memories/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do("GET", "/api/v1/memories/"+m.ID+"?app_id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("GET", "/api/v1/apps/"+reader.AppID+"/accessed", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var accessed filter.Page[model.AccessedMemory]
	s.decode(rr, &accessed)
	require.Len(t, accessed.Items, 1)
	assert.Equal(t, m.ID, accessed.Items[0].Memory.ID)
}

func TestStateEndpoints(t *testing.T) {
	s := newServer(t, true)
	s.createUser("alice")
	a := s.createMemory("alice", "claude", "coffee one")
	b := s.createMemory("alice", "claude", "coffee two")

	rr := s.do("POST", "/api/v1/memories/actions/pause", map[string]interface{}{"user_id": "alice", "memory_ids": []string{a.ID}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res services.StateChangeResult
	s.decode(rr, &res)
	assert.Equal(t, "Successfully paused 1 memories", res.Message)

	rr = s.do("POST", "/api/v1/memories/actions/pause", map[string]interface{}{"user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, s.errorDetail(rr), "invalid pause request parameters")

	rr = s.do("POST", "/api/v1/memories/actions/archive", map[string]interface{}{"user_id": "alice", "memory_ids": []string{b.ID}})
	require.Equal(t, http.StatusOK, rr.Code)

	// archived memories are hidden by default
	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice"})
	var page filter.Page[model.Memory]
	s.decode(rr, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, model.StatePaused, page.Items[0].State)

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "show_archived": true})
	s.decode(rr, &page)
	assert.Equal(t, 2, page.Total)

	rr = s.do("DELETE", "/api/v1/memories/", map[string]interface{}{"user_id": "alice", "memory_ids": []string{a.ID, b.ID}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	s.decode(rr, &res)
	assert.Equal(t, 2, res.Changed)

	rr = s.do("POST", "/api/v1/memories/filter", map[string]interface{}{"user_id": "alice", "show_archived": true})
	s.decode(rr, &page)
	assert.Zero(t, page.Total)

	rr = s.do("POST", "/api/v1/memories/search", map[string]interface{}{"query": "coffee", "user_id": "alice"})
	var hits []model.Memory
	s.decode(rr, &hits)
	assert.Empty(t, hits)

	rr = s.do("GET", "/api/v1/memories/"+a.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var history []model.StatusHistoryEntry
	s.decode(rr, &history)
	require.Len(t, history, 2)
	assert.Equal(t, model.StateDeleted, history[1].NewState)

	rr = s.do("DELETE", "/api/v1/memories/", map[string]interface{}{"user_id": "alice", "memory_ids": []string{"bad"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAppsAndCategoriesEndpoints(t *testing.T) {
	s := newServer(t, false)
	s.createUser("alice")
	m := s.createMemory("alice", "claude", "note")
	s.createMemory("alice", "claude", "note two")

	rr := s.do("POST", "/api/v1/memories/"+m.ID+"/categories", map[string]interface{}{"categories": []string{"Travel", "work"}})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do("GET", "/api/v1/apps/?user_id=alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var apps filter.Page[model.AppStats]
	s.decode(rr, &apps)
	require.Len(t, apps.Items, 1)
	assert.Equal(t, 2, apps.Items[0].TotalMemoriesCreated)

	rr = s.do("GET", "/api/v1/apps/"+m.AppID+"/memories?page_size=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var created filter.Page[model.Memory]
	s.decode(rr, &created)
	assert.Equal(t, 2, created.Total)
	assert.Equal(t, 2, created.Pages)

	rr = s.do("PUT", "/api/v1/apps/"+m.AppID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do("GET", "/api/v1/categories?user_id=alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cats categoriesResponse
	s.decode(rr, &cats)
	assert.Equal(t, 2, cats.Total)
	assert.Equal(t, "travel", cats.Categories[0].Name)

	rr = s.do("GET", "/api/v1/memories/categories?user_id=ghost", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, false)

	rr := s.do("GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	s.decode(rr, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.False(t, body.Components["vectorstore"])

	s.do("GET", "/api/v1/users/", nil)
	rr = s.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "openmemory_api_http_requests_total")
	assert.Contains(t, rr.Body.String(), `route="/api/v1/users/"`)
}
