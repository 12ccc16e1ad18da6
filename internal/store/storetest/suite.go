// Package storetest holds a compliance suite shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
)

// Run exercises the store contract against a store.Store implementation.
// makeStore must return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()
	t.Run("Users", func(t *testing.T) { testUsers(t, makeStore(t)) })
	t.Run("Apps", func(t *testing.T) { testApps(t, makeStore(t)) })
	t.Run("FilterDefaults", func(t *testing.T) { testFilterDefaults(t, makeStore(t)) })
	t.Run("FilterDimensions", func(t *testing.T) { testFilterDimensions(t, makeStore(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, makeStore(t)) })
	t.Run("Transitions", func(t *testing.T) { testTransitions(t, makeStore(t)) })
	t.Run("CategoriesAndRelated", func(t *testing.T) { testCategories(t, makeStore(t)) })
	t.Run("AccessLog", func(t *testing.T) { testAccessLog(t, makeStore(t)) })
}

func criteria(mut func(c *filter.Criteria)) filter.Criteria {
	c := filter.Criteria{Page: 1, Size: 100, SortColumn: filter.SortByCreatedAt, SortDirection: filter.Desc}
	if mut != nil {
		mut(&c)
	}
	return c
}

type fixture struct {
	s    store.Store
	user *model.User
	apps map[string]*model.App
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	uid := "u-" + uuid.NewString()[:8]
	u, err := s.Users().Create(ctx, &model.User{UserID: uid})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return &fixture{s: s, user: u, apps: map[string]*model.App{}}
}

func (f *fixture) app(t *testing.T, name string) *model.App {
	t.Helper()
	if a, ok := f.apps[name]; ok {
		return a
	}
	a, err := f.s.Apps().GetOrCreate(context.Background(), f.user.ID, name)
	if err != nil {
		t.Fatalf("GetOrCreate app %s: %v", name, err)
	}
	f.apps[name] = a
	return a
}

func (f *fixture) memory(t *testing.T, app, content string, meta map[string]interface{}) *model.Memory {
	t.Helper()
	m, err := f.s.Memories().Create(context.Background(), &model.Memory{
		OwnerID: f.user.ID, AppID: f.app(t, app).ID, Content: content, Metadata: meta,
	})
	if err != nil {
		t.Fatalf("CreateMemory %q: %v", content, err)
	}
	// distinct creation times keep ordering assertions deterministic
	time.Sleep(2 * time.Millisecond)
	return m
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	email := "a@example.test"
	u, err := s.Users().Create(ctx, &model.User{UserID: "alice", Email: &email})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.CreatedAt.IsZero() {
		t.Fatalf("CreateUser: missing id or timestamps: %+v", u)
	}
	if _, err := s.Users().Create(ctx, &model.User{UserID: "alice"}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("duplicate user_id: want conflict, got %v", err)
	}
	if _, err := s.Users().Create(ctx, &model.User{UserID: "alice2", Email: &email}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("duplicate email: want conflict, got %v", err)
	}
	got, err := s.Users().GetByUserID(ctx, "alice")
	if err != nil || got.ID != u.ID || got.Email == nil || *got.Email != email {
		t.Fatalf("GetByUserID: got=%+v err=%v", got, err)
	}
	if _, err := s.Users().GetByUserID(ctx, "nobody"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("missing user: want not found, got %v", err)
	}

	if _, err := s.Users().Create(ctx, &model.User{UserID: "bob"}); err != nil {
		t.Fatalf("CreateUser bob: %v", err)
	}
	app, err := s.Apps().GetOrCreate(ctx, u.ID, "openmemory")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := s.Memories().Create(ctx, &model.Memory{OwnerID: u.ID, AppID: app.ID, Content: "x"}); err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
	list, total, err := s.Users().List(ctx, 0, 10)
	if err != nil || total != 2 || len(list) != 2 {
		t.Fatalf("List: n=%d total=%d err=%v", len(list), total, err)
	}
	if list[0].UserID != "alice" || list[0].TotalMemories != 1 || list[1].TotalMemories != 0 {
		t.Fatalf("List ordering/counts: %+v %+v", list[0], list[1])
	}
}

func testApps(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	a1 := f.app(t, "cursor")
	again, err := s.Apps().GetOrCreate(ctx, f.user.ID, "cursor")
	if err != nil || again.ID != a1.ID {
		t.Fatalf("GetOrCreate should be idempotent: %v %v", again, err)
	}
	if !a1.IsActive {
		t.Fatalf("new apps start active")
	}
	paused, err := s.Apps().SetActive(ctx, a1.ID, false)
	if err != nil || paused.IsActive {
		t.Fatalf("SetActive: %+v %v", paused, err)
	}
	if _, err := s.Apps().SetActive(ctx, uuid.NewString(), true); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetActive missing: %v", err)
	}

	m := f.memory(t, "cursor", "hello", nil)
	f.memory(t, "claude", "other", nil)
	if _, err := s.AccessLogs().Append(ctx, &model.AccessLogEntry{MemoryID: m.ID, AppID: f.app(t, "claude").ID}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	st, err := s.Apps().Stats(ctx, a1.ID)
	if err != nil || st.TotalMemoriesCreated != 1 || st.TotalMemoriesAccessed != 0 {
		t.Fatalf("Stats cursor: %+v %v", st, err)
	}
	st, err = s.Apps().Stats(ctx, f.app(t, "claude").ID)
	if err != nil || st.TotalMemoriesAccessed != 1 || st.LastAccessed == nil {
		t.Fatalf("Stats claude: %+v %v", st, err)
	}

	active := true
	list, total, err := s.Apps().List(ctx, store.AppListOptions{OwnerID: f.user.ID, IsActive: &active, Limit: 10})
	if err != nil || total != 1 || list[0].Name != "claude" {
		t.Fatalf("List active: %+v total=%d err=%v", list, total, err)
	}
	list, total, err = s.Apps().List(ctx, store.AppListOptions{Name: "CUR", Limit: 10})
	if err != nil || total != 1 || list[0].ID != a1.ID {
		t.Fatalf("List by name: %+v total=%d err=%v", list, total, err)
	}

	byApp, total, err := s.Memories().ListByApp(ctx, a1.ID, 0, 10)
	if err != nil || total != 1 || byApp[0].ID != m.ID {
		t.Fatalf("ListByApp: %+v total=%d err=%v", byApp, total, err)
	}
	accessed, total, err := s.Memories().ListAccessedByApp(ctx, f.app(t, "claude").ID, 0, 10)
	if err != nil || total != 1 || accessed[0].Memory.ID != m.ID || accessed[0].AccessCount != 1 {
		t.Fatalf("ListAccessedByApp: %+v total=%d err=%v", accessed, total, err)
	}
}

func testFilterDefaults(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	m1 := f.memory(t, "openmemory", "Lives in SF", nil)
	m2 := f.memory(t, "openmemory", "Likes coffee", nil)
	m3 := f.memory(t, "openmemory", "Old fact", nil)
	m4 := f.memory(t, "openmemory", "Forgotten", nil)
	m5 := f.memory(t, "openmemory", "On hold", nil)

	if _, err := s.Memories().Transition(ctx, m3.ID, model.StateArchived, f.user.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := s.Memories().Transition(ctx, m4.ID, model.StateDeleted, f.user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Memories().Transition(ctx, m5.ID, model.StatePaused, f.user.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	got, total, err := s.Memories().Filter(ctx, criteria(nil))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("default filter should return active+paused: total=%d n=%d", total, len(got))
	}
	want := []string{m5.ID, m2.ID, m1.ID}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("default order is created_at desc: pos %d got %s want %s", i, got[i].Content, id)
		}
	}
	if got[2].UserID != f.user.UserID || got[2].AppName != "openmemory" {
		t.Fatalf("hydration: %+v", got[2])
	}

	withArchived, total, err := s.Memories().Filter(ctx, criteria(func(c *filter.Criteria) { c.IncludeArchived = true }))
	if err != nil || total != 4 {
		t.Fatalf("include archived: total=%d err=%v", total, err)
	}
	for _, m := range withArchived {
		if m.State == model.StateDeleted {
			t.Fatalf("deleted memory leaked into listing")
		}
		if m.ID == m3.ID && (m.ArchivedAt == nil || m.State != model.StateArchived) {
			t.Fatalf("archived memory missing timestamp: %+v", m)
		}
	}
}

func testFilterDimensions(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	other := newFixture(t, s)
	a := f.memory(t, "A", "alpha Coffee note", map[string]interface{}{"source": "chat", "turn": 3, "pinned": true})
	b := f.memory(t, "B", "beta tea note", map[string]interface{}{"source": "email"})
	other.memory(t, "A", "someone else", nil)

	cases := []struct {
		name string
		c    filter.Criteria
		want []string
	}{
		{"user", criteria(func(c *filter.Criteria) { c.UserIDs = []string{f.user.UserID} }), []string{b.ID, a.ID}},
		{"app name", criteria(func(c *filter.Criteria) {
			c.UserIDs = []string{f.user.UserID}
			c.AppNames = []string{"A"}
		}), []string{a.ID}},
		{"app id", criteria(func(c *filter.Criteria) { c.AppIDs = []string{f.app(t, "B").ID} }), []string{b.ID}},
		{"search is case-insensitive", criteria(func(c *filter.Criteria) { c.SearchQuery = "coffee" }), []string{a.ID}},
		{"search escapes wildcards", criteria(func(c *filter.Criteria) { c.SearchQuery = "%" }), nil},
		{"metadata string", criteria(func(c *filter.Criteria) { c.Metadata = filter.MetadataFilter{"source": "email"} }), []string{b.ID}},
		{"metadata number", criteria(func(c *filter.Criteria) { c.Metadata = filter.MetadataFilter{"turn": float64(3)} }), []string{a.ID}},
		{"metadata bool", criteria(func(c *filter.Criteria) { c.Metadata = filter.MetadataFilter{"pinned": true} }), []string{a.ID}},
		{"metadata miss", criteria(func(c *filter.Criteria) { c.Metadata = filter.MetadataFilter{"source": "sms"} }), nil},
		{"ids", criteria(func(c *filter.Criteria) { c.IDs = []string{a.ID, uuid.NewString()} }), []string{a.ID}},
		{"sort content asc", criteria(func(c *filter.Criteria) {
			c.UserIDs = []string{f.user.UserID}
			c.SortColumn = filter.SortByContent
			c.SortDirection = filter.Asc
		}), []string{a.ID, b.ID}},
		{"sort app desc", criteria(func(c *filter.Criteria) {
			c.UserIDs = []string{f.user.UserID}
			c.SortColumn = filter.SortByAppName
		}), []string{b.ID, a.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, total, err := s.Memories().Filter(ctx, tc.c)
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			if total != len(tc.want) || len(got) != len(tc.want) {
				t.Fatalf("want %d results, got total=%d n=%d", len(tc.want), total, len(got))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("pos %d: got %s", i, got[i].Content)
				}
			}
		})
	}

	from := a.CreatedAt.Add(time.Millisecond)
	got, _, err := s.Memories().Filter(ctx, criteria(func(c *filter.Criteria) {
		c.UserIDs = []string{f.user.UserID}
		c.From = &from
	}))
	if err != nil || len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("from filter: %v %v", got, err)
	}
}

func testPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	const n = 7
	for i := 0; i < n; i++ {
		f.memory(t, "openmemory", "m"+string(rune('a'+i)), nil)
	}
	all, total, err := s.Memories().Filter(ctx, criteria(nil))
	if err != nil || total != n {
		t.Fatalf("Filter all: total=%d err=%v", total, err)
	}
	for _, size := range []int{1, 2, 3, 7, 10} {
		seen := map[string]bool{}
		var concat []string
		pages := filter.PageCount(total, size)
		for p := 1; p <= pages; p++ {
			got, tot, err := s.Memories().Filter(ctx, criteria(func(c *filter.Criteria) { c.Page, c.Size = p, size }))
			if err != nil || tot != n {
				t.Fatalf("size=%d page=%d: total=%d err=%v", size, p, tot, err)
			}
			for _, m := range got {
				if seen[m.ID] {
					t.Fatalf("size=%d: %s appears twice", size, m.ID)
				}
				seen[m.ID] = true
				concat = append(concat, m.ID)
			}
		}
		if len(concat) != n {
			t.Fatalf("size=%d: concatenated %d records, want %d", size, len(concat), n)
		}
		for i := range all {
			if all[i].ID != concat[i] {
				t.Fatalf("size=%d: order differs at %d", size, i)
			}
		}
	}
}

func testTransitions(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	m := f.memory(t, "openmemory", "Lives in SF", nil)

	check := func(want model.MemoryState) {
		t.Helper()
		got, err := s.Memories().Get(ctx, m.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.State != want {
			t.Fatalf("state: got %s want %s", got.State, want)
		}
		if (got.ArchivedAt != nil) != (want == model.StateArchived) {
			t.Fatalf("archived_at inconsistent for %s: %v", want, got.ArchivedAt)
		}
		if (got.DeletedAt != nil) != (want == model.StateDeleted) {
			t.Fatalf("deleted_at inconsistent for %s: %v", want, got.DeletedAt)
		}
	}

	changed, err := s.Memories().Transition(ctx, m.ID, model.StatePaused, "tester")
	if err != nil || !changed {
		t.Fatalf("pause: changed=%v err=%v", changed, err)
	}
	check(model.StatePaused)
	changed, err = s.Memories().Transition(ctx, m.ID, model.StatePaused, "tester")
	if err != nil || changed {
		t.Fatalf("repeat pause should be a no-op: changed=%v err=%v", changed, err)
	}
	check(model.StatePaused)
	if _, err := s.Memories().Transition(ctx, m.ID, model.StateArchived, "tester"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	check(model.StateArchived)
	if _, err := s.Memories().Transition(ctx, m.ID, model.StateActive, "tester"); err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	check(model.StateActive)
	if _, err := s.Memories().Transition(ctx, m.ID, model.StateArchived, "tester"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := s.Memories().Transition(ctx, m.ID, model.StateDeleted, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	check(model.StateDeleted)
	changed, err = s.Memories().Transition(ctx, m.ID, model.StateActive, "tester")
	if err != nil || changed {
		t.Fatalf("deleted is terminal: changed=%v err=%v", changed, err)
	}
	check(model.StateDeleted)

	if _, err := s.Memories().Transition(ctx, uuid.NewString(), model.StatePaused, "tester"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("missing memory: want not found, got %v", err)
	}
	if _, err := s.Memories().UpdateContent(ctx, m.ID, "new"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("update of deleted memory: want not found, got %v", err)
	}

	hist, err := s.StatusHistory().ListForMemory(ctx, m.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	wantHist := []model.MemoryState{model.StatePaused, model.StateArchived, model.StateActive, model.StateArchived, model.StateDeleted}
	if len(hist) != len(wantHist) {
		t.Fatalf("history length: got %d want %d", len(hist), len(wantHist))
	}
	for i, st := range wantHist {
		if hist[i].NewState != st || hist[i].ChangedBy != "tester" {
			t.Fatalf("history[%d]: %+v", i, hist[i])
		}
	}
	if hist[0].OldState != model.StateActive {
		t.Fatalf("first transition should start at active: %+v", hist[0])
	}
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	cats, err := s.Categories().GetOrCreate(ctx, []string{" Travel ", "food", "travel", ""})
	if err != nil || len(cats) != 2 || cats[0].Name != "travel" {
		t.Fatalf("GetOrCreate: %+v %v", cats, err)
	}
	work, err := s.Categories().GetOrCreate(ctx, []string{"work"})
	if err != nil {
		t.Fatalf("GetOrCreate work: %v", err)
	}
	travel, food := cats[0], cats[1]

	base := f.memory(t, "openmemory", "Trip to Tokyo", nil)
	both := f.memory(t, "openmemory", "Sushi in Tokyo", nil)
	one := f.memory(t, "openmemory", "Flight booked", nil)
	none := f.memory(t, "openmemory", "Quarterly report", nil)
	gone := f.memory(t, "openmemory", "Deleted trip", nil)

	add := func(m *model.Memory, cs ...*model.Category) {
		var ids []string
		for _, c := range cs {
			ids = append(ids, c.ID)
		}
		if err := s.Memories().AddCategories(ctx, m.ID, ids); err != nil {
			t.Fatalf("AddCategories: %v", err)
		}
	}
	add(base, travel, food)
	add(both, travel, food)
	add(both, travel)
	add(one, travel)
	add(none, work[0])
	add(gone, travel)
	if _, err := s.Memories().Transition(ctx, gone.ID, model.StateDeleted, "t"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Memories().AddCategories(ctx, uuid.NewString(), []string{travel.ID}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("AddCategories on missing memory: %v", err)
	}

	got, err := s.Memories().Get(ctx, both.ID)
	if err != nil || len(got.Categories) != 2 || got.Categories[0] != "food" {
		t.Fatalf("categories hydration: %+v %v", got, err)
	}

	related, total, err := s.Memories().Related(ctx, base.ID, f.user.ID, 0, 5)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if total != 2 || len(related) != 2 || related[0].ID != both.ID || related[1].ID != one.ID {
		t.Fatalf("Related ordering: total=%d %+v", total, related)
	}

	byCat, total, err := s.Memories().Filter(ctx, criteria(func(c *filter.Criteria) { c.CategoryIDs = []string{food.ID, work[0].ID} }))
	if err != nil || total != 3 || len(byCat) != 3 {
		t.Fatalf("category filter: total=%d err=%v", total, err)
	}

	inUse, err := s.Categories().InUse(ctx, f.user.UserID)
	if err != nil {
		t.Fatalf("InUse: %v", err)
	}
	counts := map[string]int{}
	for _, c := range inUse {
		counts[c.Name] = c.Count
	}
	if counts["travel"] != 3 || counts["food"] != 2 || counts["work"] != 1 {
		t.Fatalf("InUse counts: %v", counts)
	}
	empty, err := s.Categories().InUse(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Fatalf("InUse for unknown user: %v %v", empty, err)
	}

	ids, err := s.Memories().Select(ctx, store.Selector{OwnerID: f.user.ID, CategoryIDs: []string{travel.ID}})
	if err != nil || len(ids) != 3 {
		t.Fatalf("Select by category excludes deleted: %v %v", ids, err)
	}
}

func testAccessLog(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := newFixture(t, s)
	m := f.memory(t, "openmemory", "read me", nil)
	app := f.app(t, "cursor")
	for i := 0; i < 3; i++ {
		if _, err := s.AccessLogs().Append(ctx, &model.AccessLogEntry{MemoryID: m.ID, AppID: app.ID, AccessType: "get"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	logs, total, err := s.AccessLogs().ListForMemory(ctx, m.ID, 0, 2)
	if err != nil || total != 3 || len(logs) != 2 {
		t.Fatalf("ListForMemory: n=%d total=%d err=%v", len(logs), total, err)
	}
	if !logs[0].AccessedAt.After(logs[1].AccessedAt) || logs[0].AppName != "cursor" {
		t.Fatalf("access log should be newest first with app name: %+v %+v", logs[0], logs[1])
	}
}
