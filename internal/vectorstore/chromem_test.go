package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedChromem(t *testing.T) (*Chromem, map[string]string) {
	t.Helper()
	c, err := NewChromem("")
	require.NoError(t, err)

	ids := map[string]string{}
	add := func(name, user, app string, vec []float32) {
		id := uuid.NewString()
		ids[name] = id
		require.NoError(t, c.Upsert(context.Background(), Point{
			ID: id, Vector: vec, UserID: user, AppName: app, Content: name, CreatedAt: time.Now(),
		}))
	}
	add("sf", "u1", "A", []float32{1, 0, 0})
	add("near-sf", "u1", "B", []float32{0.9, 0.1, 0})
	add("other-user", "u2", "A", []float32{1, 0, 0})
	add("orthogonal", "u1", "A", []float32{0, 0, 1})
	return c, ids
}

func TestChromem_SearchRanksAndScopes(t *testing.T) {
	c, ids := seedChromem(t)
	ctx := context.Background()

	hits, err := c.Search(ctx, Query{Vector: []float32{1, 0, 0}, UserIDs: []string{"u1"}, Limit: 10, Threshold: 0.3})
	require.NoError(t, err)
	require.Len(t, hits, 2, "orthogonal vector is below threshold and u2 is out of scope")
	assert.Equal(t, ids["sf"], hits[0].ID)
	assert.Equal(t, ids["near-sf"], hits[1].ID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "sf", hits[0].Content)
}

func TestChromem_MultiValuedScope(t *testing.T) {
	c, ids := seedChromem(t)
	hits, err := c.Search(context.Background(), Query{
		Vector: []float32{1, 0, 0}, UserIDs: []string{"u1", "u2"}, AppNames: []string{"A"}, Limit: 10, Threshold: 0.5,
	})
	require.NoError(t, err)
	got := map[string]bool{}
	for _, h := range hits {
		got[h.ID] = true
	}
	assert.Equal(t, map[string]bool{ids["sf"]: true, ids["other-user"]: true}, got)
}

func TestChromem_LimitLargerThanCollection(t *testing.T) {
	c, _ := seedChromem(t)
	hits, err := c.Search(context.Background(), Query{Vector: []float32{1, 0, 0}, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestChromem_EmptyCollection(t *testing.T) {
	c, err := NewChromem("")
	require.NoError(t, err)
	hits, err := c.Search(context.Background(), Query{Vector: []float32{1, 0}, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromem_DeleteAndUpsertOverwrite(t *testing.T) {
	c, ids := seedChromem(t)
	ctx := context.Background()
	require.NoError(t, c.Delete(ctx, ids["sf"]))
	require.NoError(t, c.Delete(ctx, uuid.NewString()))

	require.NoError(t, c.Upsert(ctx, Point{ID: ids["orthogonal"], Vector: []float32{1, 0, 0}, UserID: "u1", AppName: "A", Content: "moved"}))

	hits, err := c.Search(ctx, Query{Vector: []float32{1, 0, 0}, UserIDs: []string{"u1"}, AppNames: []string{"A"}, Limit: 5, Threshold: 0.9})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, ids["orthogonal"], hits[0].ID)
	assert.Equal(t, "moved", hits[0].Content)
}
