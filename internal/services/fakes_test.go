package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store/sqlite"
	"github.com/goibibo/mem0/internal/store/sqlstore"
	"github.com/goibibo/mem0/internal/vectorstore"
)

// keywords fixes one embedding dimension per topic; the last dimension catches
// text that mentions none of them.
var keywords = []string{"coffee", "dog", "travel", "music"}

type keywordEmbedder struct {
	err   error
	calls int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	text = strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	hit := false
	for i, k := range keywords {
		if n := strings.Count(text, k); n > 0 {
			vec[i] = float32(n)
			hit = true
		}
	}
	if !hit {
		vec[len(keywords)] = 1
	}
	return vec, nil
}

type keywordCategorizer struct {
	err error
}

func (c keywordCategorizer) Categorize(_ context.Context, text string) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	text = strings.ToLower(text)
	var out []string
	if strings.Contains(text, "coffee") {
		out = append(out, "Food")
	}
	if strings.Contains(text, "dog") {
		out = append(out, "pets")
	}
	if strings.Contains(text, "morning") {
		out = append(out, "routine")
	}
	return out, nil
}

// failingIndex wraps an Index and fails the selected operations.
type failingIndex struct {
	vectorstore.Index
	upsertErr error
	deleteErr error
	deleted   []string
}

func (f *failingIndex) Upsert(ctx context.Context, p vectorstore.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.Index.Upsert(ctx, p)
}

func (f *failingIndex) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Index.Delete(ctx, id)
}

var errBoom = errors.New("boom")

type testEnv struct {
	store *sqlstore.Store
	idx   *failingIndex
	emb   *keywordEmbedder
	users *UserService
	apps  *AppService
	cats  *CategoryService
	mems  *MemoryService
	ctx   context.Context
	t     *testing.T
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ch, err := vectorstore.NewChromem("")
	require.NoError(t, err)
	idx := &failingIndex{Index: ch}
	emb := &keywordEmbedder{}

	users, err := NewUserService(st, 0, zerolog.Nop())
	require.NoError(t, err)
	return &testEnv{
		store: st,
		idx:   idx,
		emb:   emb,
		users: users,
		apps:  NewAppService(st, users),
		cats:  NewCategoryService(st, users),
		mems:  NewMemoryService(st, users, idx, emb, keywordCategorizer{}, zerolog.Nop()),
		ctx:   ctx,
		t:     t,
	}
}

func (e *testEnv) user(userID string) *model.User {
	e.t.Helper()
	u, err := e.users.CreateUser(e.ctx, &model.User{UserID: userID})
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) memory(userID, app, text string) *model.Memory {
	e.t.Helper()
	m, err := e.mems.CreateMemory(e.ctx, CreateMemoryInput{UserID: userID, App: app, Text: text})
	require.NoError(e.t, err)
	// distinct creation times keep ordering assertions deterministic
	time.Sleep(2 * time.Millisecond)
	return m
}

// listAll selects every non-deleted memory of one user.
func listAll(userID string) filter.Criteria {
	return filter.Criteria{
		UserIDs:         []string{userID},
		IncludeArchived: true,
		SortColumn:      filter.SortByCreatedAt,
		SortDirection:   filter.Desc,
		Page:            1,
		Size:            100,
	}
}

func vectorQuery(e *testEnv, text, userID string) vectorstore.Query {
	e.t.Helper()
	vec, err := e.emb.Embed(e.ctx, text)
	require.NoError(e.t, err)
	return vectorstore.Query{Vector: vec, UserIDs: []string{userID}, Limit: 10, Threshold: 0.5}
}
