package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/categorize"
	"github.com/goibibo/mem0/internal/embeddings"
	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
	"github.com/goibibo/mem0/internal/vectorstore"
)

const (
	// DefaultAppName is used when a create request names no app.
	DefaultAppName = "openmemory"
	// RelatedPageSize is fixed for GET /memories/{id}/related.
	RelatedPageSize = 5
	// MaxAccessLogPageSize bounds GET /memories/{id}/access-log.
	MaxAccessLogPageSize = 100
)

// MemoryService orchestrates memory use cases over the relational store, the
// vector index and the embedder. The index and embedder are optional: without
// them structured listing keeps working and semantic queries report
// model.ErrUnavailable.
type MemoryService struct {
	store store.Store
	users *UserService
	idx   vectorstore.Index
	emb   embeddings.Provider
	cat   categorize.Categorizer
	log   zerolog.Logger
}

func NewMemoryService(s store.Store, users *UserService, idx vectorstore.Index, emb embeddings.Provider, cat categorize.Categorizer, log zerolog.Logger) *MemoryService {
	if cat == nil {
		cat = categorize.Noop{}
	}
	return &MemoryService{store: s, users: users, idx: idx, emb: emb, cat: cat, log: log}
}

// SemanticEnabled reports whether semantic queries can be served.
func (s *MemoryService) SemanticEnabled() bool { return s.idx != nil && s.emb != nil }

// CreateMemoryInput is the body of POST /memories.
type CreateMemoryInput struct {
	UserID   string                 `json:"user_id"`
	Text     string                 `json:"text"`
	App      string                 `json:"app"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// Infer=false skips automatic categorization.
	Infer *bool `json:"infer,omitempty"`
}

// CreateMemory stores a memory for an existing user under the named app, creating
// the app on first use. The memory is indexed before the row is written, so an
// upstream failure leaves nothing behind.
func (s *MemoryService) CreateMemory(ctx context.Context, in CreateMemoryInput) (*model.Memory, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, model.NewValidationError("text", "is required")
	}
	appName := strings.TrimSpace(in.App)
	if appName == "" {
		appName = DefaultAppName
	}
	user, err := s.users.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	app, err := s.store.Apps().GetOrCreate(ctx, user.ID, appName)
	if err != nil {
		return nil, err
	}
	if !app.IsActive {
		return nil, model.ForbiddenError{Message: fmt.Sprintf("app %s is currently paused; cannot create new memories", app.Name)}
	}

	id := uuid.NewString()
	if err := s.index(ctx, vectorstore.Point{
		ID: id, UserID: user.UserID, AppName: app.Name, Content: text, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	m, err := s.store.Memories().Create(ctx, &model.Memory{
		ID: id, OwnerID: user.ID, AppID: app.ID, Content: text, Metadata: in.Metadata,
	})
	if err != nil {
		s.unindex(ctx, id)
		return nil, err
	}

	if in.Infer == nil || *in.Infer {
		if s.categorize(ctx, m) {
			return s.store.Memories().Get(ctx, id)
		}
	}
	return m, nil
}

// GetMemory returns one memory and records the read in the access log. The
// reading app is accessAppID when it names a known app, else the memory's own app.
func (s *MemoryService) GetMemory(ctx context.Context, memoryID, accessAppID string) (*model.Memory, error) {
	m, err := s.store.Memories().Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	appID := m.AppID
	if accessAppID != "" && accessAppID != m.AppID {
		if _, err := s.store.Apps().GetByID(ctx, accessAppID); err == nil {
			appID = accessAppID
		} else if !model.IsNotFoundError(err) {
			return nil, err
		} else {
			s.log.Warn().Str("app_id", accessAppID).Str("memory_id", memoryID).Msg("unknown accessing app; logging against owning app")
		}
	}
	if _, err := s.store.AccessLogs().Append(ctx, &model.AccessLogEntry{
		MemoryID: m.ID, AppID: appID, AccessType: "get",
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAccess logs that appName, owned by userID, read memoryIDs through
// accessType (for example "search" or "list"). The app is created on first use.
func (s *MemoryService) RecordAccess(ctx context.Context, userID, appName string, memoryIDs []string, accessType string, meta map[string]interface{}) error {
	if len(memoryIDs) == 0 {
		return nil
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	app, err := s.store.Apps().GetOrCreate(ctx, user.ID, appName)
	if err != nil {
		return err
	}
	for _, id := range memoryIDs {
		if _, err := s.store.AccessLogs().Append(ctx, &model.AccessLogEntry{
			MemoryID: id, AppID: app.ID, AccessType: accessType, Metadata: meta,
		}); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMemory replaces the content of one of the user's memories. Re-indexing and
// re-categorizing are best effort.
func (s *MemoryService) UpdateMemory(ctx context.Context, memoryID, userID, content string) (*model.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.NewValidationError("memory_content", "is required")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	m, err := s.ownedMemory(ctx, memoryID, user)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Memories().UpdateContent(ctx, m.ID, content)
	if err != nil {
		return nil, err
	}
	if err := s.index(ctx, vectorstore.Point{
		ID: updated.ID, UserID: user.UserID, AppName: updated.AppName, Content: content, CreatedAt: updated.CreatedAt,
	}); err != nil {
		s.log.Error().Stack().Err(err).Str("memory_id", updated.ID).Msg("vector store update failed")
	}
	if s.categorize(ctx, updated) {
		return s.store.Memories().Get(ctx, updated.ID)
	}
	return updated, nil
}

// AssignCategories attaches categories by name, creating missing ones.
func (s *MemoryService) AssignCategories(ctx context.Context, memoryID string, names []string) (*model.Memory, error) {
	names = categorize.Normalize(names)
	if len(names) == 0 {
		return nil, model.NewValidationError("categories", "at least one category name is required")
	}
	if _, err := s.store.Memories().Get(ctx, memoryID); err != nil {
		return nil, err
	}
	if err := s.attachCategories(ctx, memoryID, names); err != nil {
		return nil, err
	}
	return s.store.Memories().Get(ctx, memoryID)
}

// AccessLog lists reads of a memory, newest first.
func (s *MemoryService) AccessLog(ctx context.Context, memoryID string, page, pageSize int) (filter.Page[*model.AccessLogEntry], error) {
	if err := checkPage(page, pageSize, MaxAccessLogPageSize); err != nil {
		return filter.Page[*model.AccessLogEntry]{}, err
	}
	if _, err := s.store.Memories().Get(ctx, memoryID); err != nil {
		return filter.Page[*model.AccessLogEntry]{}, err
	}
	logs, total, err := s.store.AccessLogs().ListForMemory(ctx, memoryID, (page-1)*pageSize, pageSize)
	if err != nil {
		return filter.Page[*model.AccessLogEntry]{}, err
	}
	return filter.NewPage(logs, total, page, pageSize), nil
}

// Related lists the user's memories sharing categories with memoryID.
func (s *MemoryService) Related(ctx context.Context, memoryID, userID string, page int) (filter.Page[*model.Memory], error) {
	if page < 1 {
		return filter.Page[*model.Memory]{}, model.NewValidationError("page", "must be >= 1")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return filter.Page[*model.Memory]{}, err
	}
	if _, err := s.store.Memories().Get(ctx, memoryID); err != nil {
		return filter.Page[*model.Memory]{}, err
	}
	items, total, err := s.store.Memories().Related(ctx, memoryID, user.ID, (page-1)*RelatedPageSize, RelatedPageSize)
	if err != nil {
		return filter.Page[*model.Memory]{}, err
	}
	return filter.NewPage(items, total, page, RelatedPageSize), nil
}

// History lists the state transitions of a memory, oldest first.
func (s *MemoryService) History(ctx context.Context, memoryID string) ([]*model.StatusHistoryEntry, error) {
	if _, err := s.store.Memories().Get(ctx, memoryID); err != nil {
		return nil, err
	}
	h, err := s.store.StatusHistory().ListForMemory(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = []*model.StatusHistoryEntry{}
	}
	return h, nil
}

// ownedMemory loads a non-deleted memory belonging to user; anything else is not found.
func (s *MemoryService) ownedMemory(ctx context.Context, memoryID string, user *model.User) (*model.Memory, error) {
	m, err := s.store.Memories().Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != user.ID || m.State == model.StateDeleted {
		return nil, model.NewNotFoundError("memory", memoryID)
	}
	return m, nil
}

func (s *MemoryService) index(ctx context.Context, p vectorstore.Point) error {
	if !s.SemanticEnabled() {
		return nil
	}
	vec, err := s.emb.Embed(ctx, p.Content)
	if err != nil {
		return upstream("embed memory", err)
	}
	p.Vector = vec
	if err := s.idx.Upsert(ctx, p); err != nil {
		return upstream("index memory", err)
	}
	return nil
}

func (s *MemoryService) unindex(ctx context.Context, id string) {
	if s.idx == nil {
		return
	}
	if err := s.idx.Delete(ctx, id); err != nil {
		s.log.Error().Stack().Err(err).Str("memory_id", id).Msg("vector store cleanup failed")
	}
}

// categorize runs the categorizer and stores the result. Failures are logged.
// It reports whether any category was attached.
func (s *MemoryService) categorize(ctx context.Context, m *model.Memory) bool {
	names, err := s.cat.Categorize(ctx, m.Content)
	if err != nil {
		s.log.Warn().Err(err).Str("memory_id", m.ID).Msg("categorization failed")
		return false
	}
	if len(names) == 0 {
		return false
	}
	if err := s.attachCategories(ctx, m.ID, names); err != nil {
		s.log.Error().Stack().Err(err).Str("memory_id", m.ID).Msg("storing categories failed")
		return false
	}
	return true
}

func (s *MemoryService) attachCategories(ctx context.Context, memoryID string, names []string) error {
	cats, err := s.store.Categories().GetOrCreate(ctx, names)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(cats))
	for _, c := range cats {
		ids = append(ids, c.ID)
	}
	return s.store.Memories().AddCategories(ctx, memoryID, ids)
}

// upstream marks err as an embedder, vector store or LLM failure.
func upstream(op string, err error) error {
	return pkgerrors.WithStack(fmt.Errorf("%s: %w: %w", op, model.ErrUpstream, err))
}
