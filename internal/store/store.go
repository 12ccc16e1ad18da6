package store

import (
	"context"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
// Lookups of missing rows return model.NotFoundError; unique violations return
// model.ConflictError.
type Store interface {
	Users() Users
	Apps() Apps
	Categories() Categories
	Memories() Memories
	AccessLogs() AccessLogs
	StatusHistory() StatusHistory
	Close() error
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByUserID(ctx context.Context, userID string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]*model.UserWithCount, int, error)
}

// AppListOptions narrows and orders GET /apps.
type AppListOptions struct {
	OwnerID       string
	Name          string
	IsActive      *bool
	SortColumn    string // name, memories, memories_accessed, created_at
	SortDirection filter.SortDirection
	Offset        int
	Limit         int
}

type Apps interface {
	// GetOrCreate returns the owner's app called name, creating an active one if needed.
	GetOrCreate(ctx context.Context, ownerID, name string) (*model.App, error)
	GetByID(ctx context.Context, appID string) (*model.App, error)
	Stats(ctx context.Context, appID string) (*model.AppStats, error)
	List(ctx context.Context, opts AppListOptions) ([]*model.AppStats, int, error)
	SetActive(ctx context.Context, appID string, active bool) (*model.App, error)
}

type Categories interface {
	// GetOrCreate returns categories for names, creating missing ones. Names are
	// compared after lowercasing and trimming.
	GetOrCreate(ctx context.Context, names []string) ([]*model.Category, error)
	// InUse aggregates categories attached to active or paused memories, optionally
	// restricted to one external user id. Ordered by name.
	InUse(ctx context.Context, userID string) ([]*model.CategoryCount, error)
}

// Selector picks memory ids for bulk operations. Deleted memories are never selected.
type Selector struct {
	OwnerID     string
	AppID       string
	CategoryIDs []string
	IDs         []string

	// SkipArchived leaves archived memories out as well.
	SkipArchived bool
}

type Memories interface {
	Create(ctx context.Context, m *model.Memory) (*model.Memory, error)
	// Get returns a memory in any state, hydrated with app name, user id and categories.
	Get(ctx context.Context, memoryID string) (*model.Memory, error)
	// Filter applies every criteria dimension conjunctively, then sorts and paginates.
	// The returned int is the total across all pages.
	Filter(ctx context.Context, c filter.Criteria) ([]*model.Memory, int, error)
	UpdateContent(ctx context.Context, memoryID, content string) (*model.Memory, error)
	// Transition moves one memory to state in a single transaction and appends a
	// status history row. It reports whether the state changed. Missing ids return
	// NotFoundError; disallowed transitions are skipped with changed=false.
	Transition(ctx context.Context, memoryID string, to model.MemoryState, changedBy string) (bool, error)
	AddCategories(ctx context.Context, memoryID string, categoryIDs []string) error
	Select(ctx context.Context, sel Selector) ([]string, error)
	// Related lists the owner's non-deleted memories sharing at least one category
	// with memoryID, most shared categories first, newest first on ties.
	Related(ctx context.Context, memoryID, ownerID string, offset, limit int) ([]*model.Memory, int, error)
	ListByApp(ctx context.Context, appID string, offset, limit int) ([]*model.Memory, int, error)
	ListAccessedByApp(ctx context.Context, appID string, offset, limit int) ([]model.AccessedMemory, int, error)
}

type AccessLogs interface {
	Append(ctx context.Context, e *model.AccessLogEntry) (*model.AccessLogEntry, error)
	// ListForMemory returns entries newest first.
	ListForMemory(ctx context.Context, memoryID string, offset, limit int) ([]*model.AccessLogEntry, int, error)
}

type StatusHistory interface {
	// ListForMemory returns transitions oldest first.
	ListForMemory(ctx context.Context, memoryID string) ([]*model.StatusHistoryEntry, error)
}
