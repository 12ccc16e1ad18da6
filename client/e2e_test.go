package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goibibo/mem0/client"
	"github.com/goibibo/mem0/client/dashboard"
	"github.com/goibibo/mem0/internal/api"
	"github.com/goibibo/mem0/internal/services"
	"github.com/goibibo/mem0/internal/store/sqlite"
)

// newServer runs the real router over in-memory SQLite without a vector store.
func newServer(t *testing.T) *client.Client {
	t.Helper()
	st, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	users, err := services.NewUserService(st, 0, zerolog.Nop())
	require.NoError(t, err)

	router := api.NewRouter(api.Services{
		Users:      users,
		Apps:       services.NewAppService(st, users),
		Categories: services.NewCategoryService(st, users),
		Memories:   services.NewMemoryService(st, users, nil, nil, nil, zerolog.Nop()),
	}, api.Options{Log: zerolog.Nop()})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, client.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestEndToEnd(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	_, err := c.CreateUser(ctx, client.CreateUserRequest{UserID: "alice"})
	require.NoError(t, err)
	_, err = c.CreateUser(ctx, client.CreateUserRequest{UserID: "alice"})
	require.ErrorIs(t, err, client.ErrConflict)

	var ids []string
	for _, text := range []string{"likes green tea", "walks the dog daily", "plays guitar"} {
		m, err := c.CreateMemory(ctx, client.CreateMemoryRequest{UserID: "alice", Text: text, App: "cursor"})
		require.NoError(t, err)
		assert.Equal(t, "cursor", m.AppName)
		ids = append(ids, m.ID)
		time.Sleep(2 * time.Millisecond)
	}

	p, err := c.FilterMemories(ctx, client.FilterRequest{UserID: "alice"})
	require.NoError(t, err)
	assert.True(t, p.Stable)
	assert.Equal(t, 3, p.Total)

	_, err = c.SearchMemories(ctx, client.SearchRequest{Query: "tea", UserID: "alice"})
	require.ErrorIs(t, err, client.ErrUnavailable)

	m, err := c.GetMemory(ctx, ids[0], "")
	require.NoError(t, err)
	assert.Equal(t, "likes green tea", m.Content)
	logs, err := c.AccessLog(ctx, ids[0], 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Total)

	_, err = c.GetMemory(ctx, "00000000-0000-0000-0000-000000000000", "")
	require.True(t, client.IsNotFound(err))

	res, err := c.UpdateState(ctx, "alice", []string{ids[1]}, client.StateArchived)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)

	h, err := c.History(ctx, ids[1])
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, client.StateArchived, h[0].NewState)

	apps, err := c.ListApps(ctx, client.ListAppsRequest{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, apps.Items, 1)
	app, err := c.SetAppActive(ctx, apps.Items[0].ID, false)
	require.NoError(t, err)
	assert.False(t, app.IsActive)
	_, err = c.CreateMemory(ctx, client.CreateMemoryRequest{UserID: "alice", Text: "blocked", App: "cursor"})
	require.ErrorIs(t, err, client.ErrForbidden)

	status, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "unhealthy", status.Status)
}

func TestDashboardAgainstServer(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()
	_, err := c.CreateUser(ctx, client.CreateUserRequest{UserID: "bob"})
	require.NoError(t, err)
	for _, text := range []string{"one", "two"} {
		_, err := c.CreateMemory(ctx, client.CreateMemoryRequest{UserID: "bob", Text: text})
		require.NoError(t, err)
	}

	d := dashboard.New(c, dashboard.Session{UserID: "bob"})
	require.NoError(t, d.FetchMemories(ctx))
	require.NoError(t, d.FetchApps(ctx))
	st := d.Snapshot()
	require.Len(t, st.Memories.Items, 2)
	require.Len(t, st.Apps, 1)

	d.SelectAll()
	_, err = d.UpdateState(ctx, d.SelectedIDs(), client.StateArchived)
	require.NoError(t, err)
	assert.Empty(t, d.Snapshot().Memories.Items)
	assert.Empty(t, d.SelectedIDs())

	f := d.Snapshot().Filters
	f.ShowArchived = true
	d.SetFilters(f)
	require.NoError(t, d.FetchMemories(ctx))
	assert.Len(t, d.Snapshot().Memories.Items, 2)
}
