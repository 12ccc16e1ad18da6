package services

import (
	"context"
	"strings"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
)

// MaxAppPageSize bounds app listings and their memory sub-resources.
const MaxAppPageSize = 100

// AppListInput narrows GET /apps.
type AppListInput struct {
	UserID        string // optional external owner id
	Name          string
	IsActive      *bool
	SortColumn    string
	SortDirection string
	Page          int
	PageSize      int
}

// AppService exposes the app directory and the app-centric memory views.
type AppService struct {
	store store.Store
	users *UserService
}

func NewAppService(s store.Store, users *UserService) *AppService {
	return &AppService{store: s, users: users}
}

func (s *AppService) ListApps(ctx context.Context, in AppListInput) (filter.Page[*model.AppStats], error) {
	if err := checkPage(in.Page, in.PageSize, MaxAppPageSize); err != nil {
		return filter.Page[*model.AppStats]{}, err
	}
	opts := store.AppListOptions{
		Name:          in.Name,
		IsActive:      in.IsActive,
		SortColumn:    appSortColumn(in.SortColumn),
		SortDirection: filter.Asc,
		Offset:        (in.Page - 1) * in.PageSize,
		Limit:         in.PageSize,
	}
	if strings.EqualFold(strings.TrimSpace(in.SortDirection), "desc") {
		opts.SortDirection = filter.Desc
	}
	if in.UserID != "" {
		u, err := s.users.GetUser(ctx, in.UserID)
		if err != nil {
			return filter.Page[*model.AppStats]{}, err
		}
		opts.OwnerID = u.ID
	}
	apps, total, err := s.store.Apps().List(ctx, opts)
	if err != nil {
		return filter.Page[*model.AppStats]{}, err
	}
	return filter.NewPage(apps, total, in.Page, in.PageSize), nil
}

// appSortColumn maps client sort names onto store columns, defaulting to name.
func appSortColumn(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "memories", "total_memories_created":
		return "memories"
	case "memories_accessed", "total_memories_accessed":
		return "memories_accessed"
	case "created_at":
		return "created_at"
	default:
		return "name"
	}
}

func (s *AppService) GetApp(ctx context.Context, appID string) (*model.AppStats, error) {
	return s.store.Apps().Stats(ctx, appID)
}

// SetActive pauses or resumes an app. Paused apps cannot create memories.
func (s *AppService) SetActive(ctx context.Context, appID string, active bool) (*model.App, error) {
	return s.store.Apps().SetActive(ctx, appID, active)
}

// CreatedMemories lists non-deleted memories created by the app.
func (s *AppService) CreatedMemories(ctx context.Context, appID string, page, pageSize int) (filter.Page[*model.Memory], error) {
	if err := checkPage(page, pageSize, MaxAppPageSize); err != nil {
		return filter.Page[*model.Memory]{}, err
	}
	if _, err := s.store.Apps().GetByID(ctx, appID); err != nil {
		return filter.Page[*model.Memory]{}, err
	}
	items, total, err := s.store.Memories().ListByApp(ctx, appID, (page-1)*pageSize, pageSize)
	if err != nil {
		return filter.Page[*model.Memory]{}, err
	}
	return filter.NewPage(items, total, page, pageSize), nil
}

// AccessedMemories lists memories the app has read, most accessed first.
func (s *AppService) AccessedMemories(ctx context.Context, appID string, page, pageSize int) (filter.Page[model.AccessedMemory], error) {
	if err := checkPage(page, pageSize, MaxAppPageSize); err != nil {
		return filter.Page[model.AccessedMemory]{}, err
	}
	if _, err := s.store.Apps().GetByID(ctx, appID); err != nil {
		return filter.Page[model.AccessedMemory]{}, err
	}
	items, total, err := s.store.Memories().ListAccessedByApp(ctx, appID, (page-1)*pageSize, pageSize)
	if err != nil {
		return filter.Page[model.AccessedMemory]{}, err
	}
	return filter.NewPage(items, total, page, pageSize), nil
}
