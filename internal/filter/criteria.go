// Package filter models the criteria used to list and search memories and
// validates them before any store or vector store is touched.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goibibo/mem0/internal/model"
)

const (
	DefaultPage      = 1
	DefaultSize      = 10
	DefaultThreshold = 0.3
	MaxSearchLimit   = 100
)

// SortColumn is one of the fixed columns a listing may be ordered by.
type SortColumn string

const (
	SortByContent   SortColumn = "content"
	SortByAppName   SortColumn = "app_name"
	SortByCreatedAt SortColumn = "created_at"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// ParseSortColumn maps client values onto a known column. Unknown values fall back
// to created_at so older or newer clients keep working.
func ParseSortColumn(v string) SortColumn {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "memory", "content":
		return SortByContent
	case "app_name", "app":
		return SortByAppName
	default:
		return SortByCreatedAt
	}
}

// ParseSortDirection returns asc only when asked for explicitly.
func ParseSortDirection(v string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(v), "asc") {
		return Asc
	}
	return Desc
}

var metadataKeyRx = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

// MetadataFilter holds exact-match constraints on memory metadata. Values are
// plain scalars: string, float64 or bool.
type MetadataFilter map[string]interface{}

// Validate rejects keys outside the allowed alphabet and non-scalar values.
func (m MetadataFilter) Validate() error {
	for k, v := range m {
		if !metadataKeyRx.MatchString(k) {
			return model.NewValidationError("metadata_filters", fmt.Sprintf("invalid key %q", k))
		}
		switch v.(type) {
		case string, float64, bool:
		case int:
			m[k] = float64(v.(int))
		case int64:
			m[k] = float64(v.(int64))
		default:
			return model.NewValidationError("metadata_filters", fmt.Sprintf("value for %q must be a string, number or boolean", k))
		}
	}
	return nil
}

// Criteria is a validated combination of filter dimensions. Empty slices and maps
// mean "no constraint on that dimension".
type Criteria struct {
	// UserIDs are external user identifiers.
	UserIDs         []string
	AppIDs          []string
	AppNames        []string
	CategoryIDs     []string
	Metadata        MetadataFilter
	IncludeArchived bool
	SearchQuery     string
	From            *time.Time
	To              *time.Time
	SortColumn      SortColumn
	SortDirection   SortDirection
	Page            int
	Size            int

	// IDs restricts the listing to the given memory ids. Set internally when
	// hydrating vector store hits; never populated from a request.
	IDs []string
}

// Offset is the number of rows skipped before the current page.
func (c Criteria) Offset() int { return (c.Page - 1) * c.Size }

// Validate checks the pagination bounds and the scalar dimensions.
func (c *Criteria) Validate(maxSize int) error {
	if c.Page < 1 {
		return model.NewValidationError("page", "must be >= 1")
	}
	if c.Size < 1 || c.Size > maxSize {
		return model.NewValidationError("size", fmt.Sprintf("must be within [1, %d]", maxSize))
	}
	for _, id := range c.AppIDs {
		if _, err := uuid.Parse(id); err != nil {
			return model.NewValidationError("app_ids", fmt.Sprintf("invalid id %q", id))
		}
	}
	for _, id := range c.CategoryIDs {
		if _, err := uuid.Parse(id); err != nil {
			return model.NewValidationError("category_ids", fmt.Sprintf("invalid id %q", id))
		}
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	if c.From != nil && c.To != nil && c.From.After(*c.To) {
		return model.NewValidationError("from_date", "must not be after to_date")
	}
	switch c.SortColumn {
	case SortByContent, SortByAppName, SortByCreatedAt:
	default:
		c.SortColumn = SortByCreatedAt
	}
	if c.SortDirection != Asc {
		c.SortDirection = Desc
	}
	return nil
}

// VisibleStates returns the states a listing with these criteria may return.
func (c Criteria) VisibleStates() []model.MemoryState {
	if c.IncludeArchived {
		return []model.MemoryState{model.StateActive, model.StatePaused, model.StateArchived}
	}
	return []model.MemoryState{model.StateActive, model.StatePaused}
}

func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
