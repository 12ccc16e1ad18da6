package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goibibo/mem0/internal/model"
)

func TestCreateMemory(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")

	m, err := e.mems.CreateMemory(e.ctx, CreateMemoryInput{
		UserID: "alice", Text: "  I drink coffee every morning ", App: "claude",
		Metadata: map[string]interface{}{"source": "chat"},
	})
	require.NoError(t, err)
	assert.Equal(t, "I drink coffee every morning", m.Content)
	assert.Equal(t, "alice", m.UserID)
	assert.Equal(t, "claude", m.AppName)
	assert.Equal(t, model.StateActive, m.State)
	assert.Equal(t, []string{"food", "routine"}, m.Categories)
	assert.Equal(t, "chat", m.Metadata["source"])

	hits, err := e.idx.Search(e.ctx, vectorQuery(e, "coffee", "alice"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, m.ID, hits[0].ID)
}

func TestCreateMemoryDefaultsApp(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	m := e.memory("alice", "", "plain note")
	assert.Equal(t, DefaultAppName, m.AppName)
	assert.Empty(t, m.Categories)
}

func TestCreateMemorySkipsCategorizationWhenInferOff(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	off := false
	m, err := e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: "alice", Text: "coffee", Infer: &off})
	require.NoError(t, err)
	assert.Empty(t, m.Categories)
}

func TestCreateMemoryErrors(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")

	_, err := e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: "alice", Text: "  "})
	assert.True(t, model.IsValidationError(err), "blank text: %v", err)

	_, err = e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: "ghost", Text: "hello"})
	assert.True(t, model.IsNotFoundError(err), "unknown user: %v", err)

	m := e.memory("alice", "cursor", "first")
	_, err = e.apps.SetActive(e.ctx, m.AppID, false)
	require.NoError(t, err)
	_, err = e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: "alice", App: "cursor", Text: "second"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrForbidden), "paused app: %v", err)
}

func TestCreateMemoryUpstreamFailureLeavesNoRow(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")

	e.emb.err = errBoom
	_, err := e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: "alice", Text: "coffee"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUpstream))
	e.emb.err = nil

	e.idx.upsertErr = errBoom
	_, err = e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: "alice", Text: "coffee"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUpstream))
	assert.True(t, errors.Is(err, errBoom))

	_, total, err := e.store.Memories().Filter(e.ctx, listAll("alice"))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateMemoryCategorizerFailureIsTolerated(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	e.mems.cat = keywordCategorizer{err: errBoom}
	m := e.memory("alice", "", "coffee")
	assert.Empty(t, m.Categories)
}

func TestCreateMemoryWithoutVectorStore(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	e.mems.idx = nil
	m := e.memory("alice", "", "coffee")
	assert.NotEmpty(t, m.ID)
	assert.Zero(t, e.emb.calls)
	assert.False(t, e.mems.SemanticEnabled())
}

func TestGetMemoryWritesAccessLog(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	m := e.memory("alice", "claude", "coffee")
	other := e.memory("alice", "cursor", "music")

	// listing never logs
	_, _, err := e.store.Memories().Filter(e.ctx, listAll("alice"))
	require.NoError(t, err)

	_, err = e.mems.GetMemory(e.ctx, m.ID, "")
	require.NoError(t, err)
	_, err = e.mems.GetMemory(e.ctx, m.ID, other.AppID)
	require.NoError(t, err)
	_, err = e.mems.GetMemory(e.ctx, m.ID, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)

	page, err := e.mems.AccessLog(e.ctx, m.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	assert.Equal(t, m.AppID, page.Items[0].AppID)
	assert.Equal(t, other.AppID, page.Items[1].AppID)
	assert.Equal(t, m.AppID, page.Items[2].AppID)

	_, err = e.mems.GetMemory(e.ctx, "00000000-0000-0000-0000-000000000000", "")
	assert.True(t, model.IsNotFoundError(err))

	_, err = e.mems.AccessLog(e.ctx, m.ID, 1, MaxAccessLogPageSize+1)
	assert.True(t, model.IsValidationError(err))
}

func TestUpdateMemory(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	e.user("bob")
	m := e.memory("alice", "", "plain note")

	updated, err := e.mems.UpdateMemory(e.ctx, m.ID, "alice", "walked the dog")
	require.NoError(t, err)
	assert.Equal(t, "walked the dog", updated.Content)
	assert.Equal(t, []string{"pets"}, updated.Categories)

	hits, err := e.idx.Search(e.ctx, vectorQuery(e, "dog", "alice"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, m.ID, hits[0].ID)

	_, err = e.mems.UpdateMemory(e.ctx, m.ID, "bob", "stolen")
	assert.True(t, model.IsNotFoundError(err), "other owner: %v", err)

	_, err = e.mems.UpdateMemory(e.ctx, m.ID, "alice", " ")
	assert.True(t, model.IsValidationError(err))

	_, err = e.mems.DeleteMemories(e.ctx, "alice", []string{m.ID})
	require.NoError(t, err)
	_, err = e.mems.UpdateMemory(e.ctx, m.ID, "alice", "too late")
	assert.True(t, model.IsNotFoundError(err), "deleted: %v", err)
}

func TestAssignCategoriesAndRelated(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")

	a := e.memory("alice", "", "a")
	b := e.memory("alice", "", "b")
	c := e.memory("alice", "", "c")
	e.memory("alice", "", "d")

	_, err := e.mems.AssignCategories(e.ctx, a.ID, []string{"Work", "travel"})
	require.NoError(t, err)
	_, err = e.mems.AssignCategories(e.ctx, b.ID, []string{"work", "travel"})
	require.NoError(t, err)
	got, err := e.mems.AssignCategories(e.ctx, c.ID, []string{" WORK "})
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, got.Categories)

	_, err = e.mems.AssignCategories(e.ctx, c.ID, []string{" "})
	assert.True(t, model.IsValidationError(err))

	related, err := e.mems.Related(e.ctx, a.ID, "alice", 1)
	require.NoError(t, err)
	require.Equal(t, 2, related.Total)
	assert.Equal(t, b.ID, related.Items[0].ID, "most shared categories first")
	assert.Equal(t, c.ID, related.Items[1].ID)
	assert.Equal(t, RelatedPageSize, related.Size)

	cats, err := e.cats.InUse(e.ctx, "alice")
	require.NoError(t, err)
	counts := map[string]int{}
	for _, c := range cats {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, map[string]int{"travel": 2, "work": 3}, counts)

	_, err = e.cats.InUse(e.ctx, "ghost")
	assert.True(t, model.IsNotFoundError(err))
}

func TestHistory(t *testing.T) {
	e := newTestEnv(t)
	e.user("alice")
	m := e.memory("alice", "", "note")

	h, err := e.mems.History(e.ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, h)
	assert.NotNil(t, h)

	_, err = e.mems.PauseMemories(e.ctx, PauseRequest{UserID: "alice", MemoryIDs: []string{m.ID}})
	require.NoError(t, err)
	_, err = e.mems.ArchiveMemories(e.ctx, "alice", []string{m.ID})
	require.NoError(t, err)

	h, err = e.mems.History(e.ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, model.StateActive, h[0].OldState)
	assert.Equal(t, model.StatePaused, h[0].NewState)
	assert.Equal(t, model.StateArchived, h[1].NewState)
	assert.Equal(t, "alice", h[1].ChangedBy)
}
