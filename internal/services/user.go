package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
)

// MaxUserPageSize bounds GET /users.
const MaxUserPageSize = 1000

// UserService handles user-related operations. Lookups by external user id are
// cached; user_id is immutable so entries never go stale.
type UserService struct {
	store store.Store
	cache *ristretto.Cache
	log   zerolog.Logger
}

// NewUserService builds a UserService. cacheSize <= 0 disables the lookup cache.
func NewUserService(s store.Store, cacheSize int64, log zerolog.Logger) (*UserService, error) {
	svc := &UserService{store: s, log: log}
	if cacheSize > 0 {
		c, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: cacheSize * 10,
			MaxCost:     cacheSize,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		svc.cache = c
	}
	return svc, nil
}

// CreateUser creates a user. Duplicate user_id or email yields a ConflictError.
func (s *UserService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	u.UserID = strings.TrimSpace(u.UserID)
	if u.UserID == "" {
		return nil, model.NewValidationError("user_id", "is required")
	}
	if len(u.UserID) > 255 {
		return nil, model.NewValidationError("user_id", "must be at most 255 characters")
	}
	if u.Email != nil {
		if _, err := mail.ParseAddress(*u.Email); err != nil {
			return nil, model.NewValidationError("email", "is not a valid address")
		}
	}
	created, err := s.store.Users().Create(ctx, u)
	if err != nil {
		return nil, err
	}
	s.remember(created)
	return created, nil
}

// GetUser resolves an external user id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, model.NewValidationError("user_id", "is required")
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(userID); ok {
			return v.(*model.User), nil
		}
	}
	u, err := s.store.Users().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.remember(u)
	return u, nil
}

// ListUsers returns users ordered by user_id with their memory counts.
func (s *UserService) ListUsers(ctx context.Context, page, pageSize int) (filter.Page[*model.UserWithCount], error) {
	if err := checkPage(page, pageSize, MaxUserPageSize); err != nil {
		return filter.Page[*model.UserWithCount]{}, err
	}
	users, total, err := s.store.Users().List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return filter.Page[*model.UserWithCount]{}, err
	}
	return filter.NewPage(users, total, page, pageSize), nil
}

// Close releases the cache.
func (s *UserService) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

func (s *UserService) remember(u *model.User) {
	if s.cache != nil && u != nil {
		s.cache.Set(u.UserID, u, 1)
	}
}

func checkPage(page, pageSize, limit int) error {
	if page < 1 {
		return model.NewValidationError("page", "must be >= 1")
	}
	if pageSize < 1 || pageSize > limit {
		return model.NewValidationError("page_size", fmt.Sprintf("must be within [1, %d]", limit))
	}
	return nil
}
