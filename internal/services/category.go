package services

import (
	"context"

	"github.com/goibibo/mem0/internal/categorize"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
)

// CategoryService aggregates categories for filter pickers.
type CategoryService struct {
	store store.Store
	users *UserService
}

func NewCategoryService(s store.Store, users *UserService) *CategoryService {
	return &CategoryService{store: s, users: users}
}

// InUse returns categories attached to active or paused memories with usage
// counts, optionally for one user. No categories is an empty slice.
func (s *CategoryService) InUse(ctx context.Context, userID string) ([]*model.CategoryCount, error) {
	if userID != "" {
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	cats, err := s.store.Categories().InUse(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []*model.CategoryCount{}
	}
	return cats, nil
}

// IDsByName resolves category names, compared case-insensitively, to the ids of
// categories currently in use. Unknown names are dropped.
func (s *CategoryService) IDsByName(ctx context.Context, names []string) ([]string, error) {
	want := map[string]bool{}
	for _, n := range categorize.Normalize(names) {
		want[n] = true
	}
	if len(want) == 0 {
		return nil, nil
	}
	cats, err := s.store.Categories().InUse(ctx, "")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, c := range cats {
		if want[c.Name] {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}
