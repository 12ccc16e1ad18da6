package model

import "time"

// User owns memories. UserID is the external identifier and never changes after creation.
type User struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Name      *string                `json:"name,omitempty"`
	Email     *string                `json:"email,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// UserWithCount is a User annotated with its number of non-deleted memories.
type UserWithCount struct {
	User
	TotalMemories int `json:"total_memories"`
}

// App is a client or agent identity that creates and reads memories.
// Name is unique per owner.
type App struct {
	ID          string                 `json:"id"`
	OwnerID     string                 `json:"owner_id"`
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	IsActive    bool                   `json:"is_active"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// AppStats is an App with derived usage counters.
type AppStats struct {
	App
	TotalMemoriesCreated  int        `json:"total_memories_created"`
	TotalMemoriesAccessed int        `json:"total_memories_accessed"`
	FirstAccessed         *time.Time `json:"first_accessed,omitempty"`
	LastAccessed          *time.Time `json:"last_accessed,omitempty"`
}

// Category labels memories. Name is unique.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryCount is a Category with the number of visible memories using it.
type CategoryCount struct {
	Category
	Count int `json:"count"`
}

// Memory is a single stored text record. Its id doubles as the vector store point id.
type Memory struct {
	ID         string                 `json:"id"`
	OwnerID    string                 `json:"-"`
	UserID     string                 `json:"user_id"`
	AppID      string                 `json:"app_id"`
	AppName    string                 `json:"app_name"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata_"`
	State      MemoryState            `json:"state"`
	Categories []string               `json:"categories"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	ArchivedAt *time.Time             `json:"archived_at"`
	DeletedAt  *time.Time             `json:"deleted_at"`
}

// AccessedMemory is a memory together with how often one app read it.
type AccessedMemory struct {
	Memory      *Memory `json:"memory"`
	AccessCount int     `json:"access_count"`
}

// AccessLogEntry records one read of a memory by an app. Rows are never mutated.
type AccessLogEntry struct {
	ID         string                 `json:"id"`
	MemoryID   string                 `json:"memory_id"`
	AppID      string                 `json:"app_id"`
	AppName    string                 `json:"app_name"`
	AccessType string                 `json:"access_type"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	AccessedAt time.Time              `json:"accessed_at"`
}

// StatusHistoryEntry records one state transition of a memory.
type StatusHistoryEntry struct {
	ID        string      `json:"id"`
	MemoryID  string      `json:"memory_id"`
	ChangedBy string      `json:"changed_by"`
	OldState  MemoryState `json:"old_state"`
	NewState  MemoryState `json:"new_state"`
	ChangedAt time.Time   `json:"changed_at"`
}

// VectorHit is one similarity match returned by the vector store.
type VectorHit struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}
