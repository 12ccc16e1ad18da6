package client

import "time"

// Memory states.
const (
	StateActive   = "active"
	StatePaused   = "paused"
	StateArchived = "archived"
	StateDeleted  = "deleted"
)

type User struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Name          *string                `json:"name,omitempty"`
	Email         *string                `json:"email,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	TotalMemories int                    `json:"total_memories,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type CreateUserRequest struct {
	UserID   string                 `json:"user_id"`
	Name     *string                `json:"name,omitempty"`
	Email    *string                `json:"email,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type Memory struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	AppID      string                 `json:"app_id"`
	AppName    string                 `json:"app_name"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata_"`
	State      string                 `json:"state"`
	Categories []string               `json:"categories"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	ArchivedAt *time.Time             `json:"archived_at"`
	DeletedAt  *time.Time             `json:"deleted_at"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// MemoryPage is a filter result. Stable is false for similarity-ranked results,
// which cannot be paged through.
type MemoryPage struct {
	Page[Memory]
	Stable bool `json:"-"`
}

// FilterRequest is the body of POST /memories/filter.
type FilterRequest struct {
	UserID          string                 `json:"user_id,omitempty"`
	UserIDs         []string               `json:"user_ids,omitempty"`
	Page            *int                   `json:"page,omitempty"`
	Size            *int                   `json:"size,omitempty"`
	SearchQuery     string                 `json:"search_query,omitempty"`
	AppIDs          []string               `json:"app_ids,omitempty"`
	AppNames        []string               `json:"app_names,omitempty"`
	CategoryIDs     []string               `json:"category_ids,omitempty"`
	MetadataFilters map[string]interface{} `json:"metadata_filters,omitempty"`
	SortColumn      string                 `json:"sort_column,omitempty"`
	SortDirection   string                 `json:"sort_direction,omitempty"`
	FromDate        *int64                 `json:"from_date,omitempty"`
	ToDate          *int64                 `json:"to_date,omitempty"`
	ShowArchived    bool                   `json:"show_archived,omitempty"`
	Semantic        bool                   `json:"semantic,omitempty"`
	Threshold       *float64               `json:"threshold,omitempty"`
}

// SearchRequest is the body of POST /memories/search.
type SearchRequest struct {
	Query           string   `json:"query"`
	UserID          string   `json:"user_id,omitempty"`
	UserIDs         []string `json:"user_ids,omitempty"`
	AppIDs          []string `json:"app_ids,omitempty"`
	AppNames        []string `json:"app_names,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
	Limit           *int     `json:"limit,omitempty"`
	IncludeMetadata *bool    `json:"include_metadata,omitempty"`

	MetadataFilters map[string]interface{} `json:"metadata_filters,omitempty"`
}

type CreateMemoryRequest struct {
	UserID   string                 `json:"user_id"`
	Text     string                 `json:"text"`
	App      string                 `json:"app,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Infer    *bool                  `json:"infer,omitempty"`
}

// PauseRequest selects memories for POST /memories/actions/pause. State
// defaults to paused on the server.
type PauseRequest struct {
	UserID      string   `json:"user_id"`
	MemoryIDs   []string `json:"memory_ids,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	AppID       string   `json:"app_id,omitempty"`
	AllForApp   bool     `json:"all_for_app,omitempty"`
	GlobalPause bool     `json:"global_pause,omitempty"`
	State       string   `json:"state,omitempty"`
}

type StateChangeResult struct {
	Message string   `json:"message"`
	Matched int      `json:"matched"`
	Changed int      `json:"changed"`
	Errors  []string `json:"errors,omitempty"`
}

type AccessLogEntry struct {
	ID         string                 `json:"id"`
	MemoryID   string                 `json:"memory_id"`
	AppID      string                 `json:"app_id"`
	AppName    string                 `json:"app_name"`
	AccessType string                 `json:"access_type"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	AccessedAt time.Time              `json:"accessed_at"`
}

type StatusChange struct {
	ID        string    `json:"id"`
	MemoryID  string    `json:"memory_id"`
	ChangedBy string    `json:"changed_by"`
	OldState  string    `json:"old_state"`
	NewState  string    `json:"new_state"`
	ChangedAt time.Time `json:"changed_at"`
}

// App carries usage counters when listed or fetched by id.
type App struct {
	ID                    string     `json:"id"`
	OwnerID               string     `json:"owner_id"`
	Name                  string     `json:"name"`
	Description           *string    `json:"description,omitempty"`
	IsActive              bool       `json:"is_active"`
	TotalMemoriesCreated  int        `json:"total_memories_created"`
	TotalMemoriesAccessed int        `json:"total_memories_accessed"`
	FirstAccessed         *time.Time `json:"first_accessed,omitempty"`
	LastAccessed          *time.Time `json:"last_accessed,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type ListAppsRequest struct {
	UserID        string
	Name          string
	IsActive      *bool
	SortColumn    string
	SortDirection string
	Page          int
	PageSize      int
}

type AccessedMemory struct {
	Memory      *Memory `json:"memory"`
	AccessCount int     `json:"access_count"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Count       int       `json:"count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryList struct {
	Categories []Category `json:"categories"`
	Total      int        `json:"total"`
}

type HealthStatus struct {
	Status     string          `json:"status"`
	Timestamp  string          `json:"timestamp"`
	Components map[string]bool `json:"components,omitempty"`
}
