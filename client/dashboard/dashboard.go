// Package dashboard holds the state behind a memory dashboard: the active
// filters, the current listing, the selection and the app and category
// catalogs. Fetches for one resource are ordered last-request-wins: a response
// is applied only when no newer request for the same resource was dispatched
// meanwhile. Failed fetches keep the data already shown and record the error
// until it is dismissed.
package dashboard

import (
	"context"
	"sort"
	"sync"

	"github.com/goibibo/mem0/client"
)

// API is the subset of *client.Client the store needs.
type API interface {
	FilterMemories(ctx context.Context, in client.FilterRequest) (*client.MemoryPage, error)
	ListApps(ctx context.Context, in client.ListAppsRequest) (*client.Page[client.App], error)
	ListCategories(ctx context.Context, userID string) (*client.CategoryList, error)
	UpdateState(ctx context.Context, userID string, ids []string, state string) (*client.StateChangeResult, error)
}

// Resource names an independently fetched part of the state.
type Resource int

const (
	Memories Resource = iota
	Apps
	Categories
)

func (r Resource) String() string {
	switch r {
	case Memories:
		return "memories"
	case Apps:
		return "apps"
	case Categories:
		return "categories"
	}
	return "unknown"
}

// Session identifies the signed-in user.
type Session struct {
	UserID string
}

// Filters are the user-selected listing dimensions.
type Filters struct {
	SearchQuery   string
	AppIDs        []string
	CategoryIDs   []string
	SortColumn    string
	SortDirection string
	FromDate      *int64
	ToDate        *int64
	ShowArchived  bool
	Page          int
	Size          int
}

// DefaultPageSize applies when Filters.Size is zero.
const DefaultPageSize = 10

// State is a snapshot of the dashboard.
type State struct {
	Session  Session
	Filters  Filters
	Memories client.MemoryPage
	Selected map[string]bool
	// SearchMode ranks SearchQuery by similarity instead of substring match.
	SearchMode bool
	Apps       []client.App
	Categories []client.Category
	Loading    map[Resource]bool
	LastError  error
}

// Store owns the dashboard state. Methods are safe for concurrent use.
type Store struct {
	api API

	mu     sync.Mutex
	state  State
	next   uint64
	latest map[Resource]uint64
}

// New returns a store for session with default filters and no data.
func New(api API, session Session) *Store {
	s := &Store{api: api}
	s.reset(session)
	return s
}

// Reset drops all state, e.g. on logout or user switch. Responses to requests
// dispatched before Reset are discarded.
func (s *Store) Reset(session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(session)
}

func (s *Store) reset(session Session) {
	s.state = State{
		Session:  session,
		Filters:  Filters{Page: 1, Size: DefaultPageSize},
		Memories: client.MemoryPage{Page: client.Page[client.Memory]{Items: []client.Memory{}}, Stable: true},
		Selected: map[string]bool{},
		Loading:  map[Resource]bool{},
	}
	s.latest = map[Resource]uint64{}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Selected = make(map[string]bool, len(s.state.Selected))
	for id := range s.state.Selected {
		out.Selected[id] = true
	}
	out.Loading = make(map[Resource]bool, len(s.state.Loading))
	for r, v := range s.state.Loading {
		out.Loading[r] = v
	}
	out.Memories.Items = append([]client.Memory(nil), s.state.Memories.Items...)
	out.Apps = append([]client.App(nil), s.state.Apps...)
	out.Categories = append([]client.Category(nil), s.state.Categories...)
	return out
}

// SetFilters replaces the filters. A zero page or size falls back to the defaults.
func (s *Store) SetFilters(f Filters) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 {
		f.Size = DefaultPageSize
	}
	s.mu.Lock()
	s.state.Filters = f
	s.mu.Unlock()
}

// SetSearchMode toggles similarity ranking for the search query.
func (s *Store) SetSearchMode(semantic bool) {
	s.mu.Lock()
	s.state.SearchMode = semantic
	s.mu.Unlock()
}

// DismissError clears LastError.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.state.LastError = nil
	s.mu.Unlock()
}

// begin registers a new request for r and returns its sequence number.
func (s *Store) begin(r Resource) uint64 {
	s.next++
	s.latest[r] = s.next
	s.state.Loading[r] = true
	return s.next
}

// finish applies the outcome of request seq when it is still the latest for r.
// It reports whether the outcome was applied.
func (s *Store) finish(r Resource, seq uint64, err error, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[r] != seq {
		return false
	}
	s.state.Loading[r] = false
	if err != nil {
		s.state.LastError = err
		return true
	}
	apply()
	return true
}

func (s *Store) filterRequest() client.FilterRequest {
	f := s.state.Filters
	page, size := f.Page, f.Size
	return client.FilterRequest{
		UserID:        s.state.Session.UserID,
		Page:          &page,
		Size:          &size,
		SearchQuery:   f.SearchQuery,
		AppIDs:        append([]string(nil), f.AppIDs...),
		CategoryIDs:   append([]string(nil), f.CategoryIDs...),
		SortColumn:    f.SortColumn,
		SortDirection: f.SortDirection,
		FromDate:      f.FromDate,
		ToDate:        f.ToDate,
		ShowArchived:  f.ShowArchived,
		Semantic:      s.state.SearchMode,
	}
}

// FetchMemories loads the listing for the current filters. A response
// superseded by a newer fetch is dropped and nil is returned.
func (s *Store) FetchMemories(ctx context.Context) error {
	s.mu.Lock()
	req := s.filterRequest()
	seq := s.begin(Memories)
	s.mu.Unlock()

	page, err := s.api.FilterMemories(ctx, req)
	applied := s.finish(Memories, seq, err, func() {
		if page.Items == nil {
			page.Items = []client.Memory{}
		}
		s.state.Memories = *page
		s.pruneSelection()
	})
	if !applied {
		return nil
	}
	return err
}

// FetchApps loads the user's apps.
func (s *Store) FetchApps(ctx context.Context) error {
	s.mu.Lock()
	req := client.ListAppsRequest{UserID: s.state.Session.UserID, Page: 1, PageSize: 100}
	seq := s.begin(Apps)
	s.mu.Unlock()

	page, err := s.api.ListApps(ctx, req)
	if !s.finish(Apps, seq, err, func() { s.state.Apps = page.Items }) {
		return nil
	}
	return err
}

// FetchCategories loads categories in use by the user's memories.
func (s *Store) FetchCategories(ctx context.Context) error {
	s.mu.Lock()
	userID := s.state.Session.UserID
	seq := s.begin(Categories)
	s.mu.Unlock()

	list, err := s.api.ListCategories(ctx, userID)
	if !s.finish(Categories, seq, err, func() { s.state.Categories = list.Categories }) {
		return nil
	}
	return err
}

// UpdateState moves ids to state on the server and then re-fetches the listing
// under the current filters. Items are not evicted locally; whether they stay
// visible is decided by the filters.
func (s *Store) UpdateState(ctx context.Context, ids []string, state string) (*client.StateChangeResult, error) {
	s.mu.Lock()
	userID := s.state.Session.UserID
	s.mu.Unlock()

	res, err := s.api.UpdateState(ctx, userID, ids, state)
	if err != nil {
		s.mu.Lock()
		s.state.LastError = err
		s.mu.Unlock()
		return nil, err
	}
	return res, s.FetchMemories(ctx)
}

// Select adds ids to the selection.
func (s *Store) Select(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		s.state.Selected[id] = true
	}
	s.mu.Unlock()
}

// Deselect removes ids from the selection.
func (s *Store) Deselect(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.state.Selected, id)
	}
	s.mu.Unlock()
}

// SelectAll selects every memory on the current page.
func (s *Store) SelectAll() {
	s.mu.Lock()
	for _, m := range s.state.Memories.Items {
		s.state.Selected[m.ID] = true
	}
	s.mu.Unlock()
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.state.Selected = map[string]bool{}
	s.mu.Unlock()
}

// SelectedIDs returns the selection in sorted order.
func (s *Store) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.state.Selected))
	for id := range s.state.Selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// pruneSelection drops selected ids that are no longer listed.
func (s *Store) pruneSelection() {
	listed := make(map[string]bool, len(s.state.Memories.Items))
	for _, m := range s.state.Memories.Items {
		listed[m.ID] = true
	}
	for id := range s.state.Selected {
		if !listed[id] {
			delete(s.state.Selected, id)
		}
	}
}
