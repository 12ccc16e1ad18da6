package filter

import (
	"strings"
	"time"

	"github.com/goibibo/mem0/internal/model"
)

// Request is the JSON body accepted by POST /api/v1/memories/filter.
type Request struct {
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
	IncludeArchived bool                   `json:"include_archived,omitempty"`
	Semantic        bool                   `json:"semantic,omitempty"`
	Threshold       *float64               `json:"threshold,omitempty"`
}

// SearchRequest is the JSON body accepted by POST /api/v1/memories/search.
type SearchRequest struct {
	Query           string   `json:"query"`
	UserID          string   `json:"user_id,omitempty"`
	UserIDs         []string `json:"user_ids,omitempty"`
	AppIDs          []string `json:"app_ids,omitempty"`
	AppNames        []string `json:"app_names,omitempty"`
	Threshold       *float64 `json:"threshold,omitempty"`
	Limit           *int     `json:"limit,omitempty"`
	IncludeMetadata *bool    `json:"include_metadata,omitempty"`
	IncludeArchived bool     `json:"include_archived,omitempty"`

	MetadataFilters map[string]interface{} `json:"metadata_filters,omitempty"`
}

// Query is either a *StructuredQuery or a *SemanticQuery. It is resolved once at
// the API boundary; downstream code switches on the concrete type.
type Query interface {
	Filter() *Criteria
	query()
}

// StructuredQuery is answered entirely by the relational store.
type StructuredQuery struct {
	Criteria Criteria
}

func (q *StructuredQuery) Filter() *Criteria { return &q.Criteria }
func (*StructuredQuery) query()              {}

// SemanticQuery is ranked by vector similarity. Criteria.Size acts as a result
// limit; there is no stable page-through.
type SemanticQuery struct {
	Criteria        Criteria
	Text            string
	Threshold       float64
	IncludeMetadata bool
}

func (q *SemanticQuery) Filter() *Criteria { return &q.Criteria }
func (*SemanticQuery) query()              {}

// Limit is the maximum number of ranked results.
func (q *SemanticQuery) Limit() int { return q.Criteria.Size }

// Resolve validates a filter request and turns it into a Query. The semantic
// variant is chosen only when the caller asks for it and supplies query text.
func Resolve(req Request, maxSize int) (Query, error) {
	c := Criteria{
		UserIDs:         cleanList(append([]string{req.UserID}, req.UserIDs...)),
		AppIDs:          cleanList(req.AppIDs),
		CategoryIDs:     cleanList(req.CategoryIDs),
		Metadata:        MetadataFilter(req.MetadataFilters),
		IncludeArchived: req.ShowArchived || req.IncludeArchived,
		SearchQuery:     strings.TrimSpace(req.SearchQuery),
		SortColumn:      ParseSortColumn(req.SortColumn),
		SortDirection:   ParseSortDirection(req.SortDirection),
		Page:            DefaultPage,
		Size:            DefaultSize,
	}
	// app_ids take precedence over app_names.
	if len(c.AppIDs) == 0 {
		c.AppNames = cleanList(req.AppNames)
	}
	if len(c.Metadata) == 0 {
		c.Metadata = nil
	}
	if req.Page != nil {
		c.Page = *req.Page
	}
	if req.Size != nil {
		c.Size = *req.Size
	}
	if req.FromDate != nil {
		t := time.Unix(*req.FromDate, 0).UTC()
		c.From = &t
	}
	if req.ToDate != nil {
		t := time.Unix(*req.ToDate, 0).UTC()
		c.To = &t
	}
	if err := c.Validate(maxSize); err != nil {
		return nil, err
	}

	if !req.Semantic || c.SearchQuery == "" {
		return &StructuredQuery{Criteria: c}, nil
	}
	threshold, err := resolveThreshold(req.Threshold)
	if err != nil {
		return nil, err
	}
	text := c.SearchQuery
	c.SearchQuery = ""
	return &SemanticQuery{Criteria: c, Text: text, Threshold: threshold, IncludeMetadata: true}, nil
}

// ResolveSearch validates a search request. Search always ranks by similarity.
func ResolveSearch(req SearchRequest) (*SemanticQuery, error) {
	text := strings.TrimSpace(req.Query)
	if text == "" {
		return nil, model.NewValidationError("query", "is required")
	}
	limit := DefaultSize
	if req.Limit != nil {
		limit = *req.Limit
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, model.NewValidationError("limit", "must be within [1, 100]")
	}
	threshold, err := resolveThreshold(req.Threshold)
	if err != nil {
		return nil, err
	}
	includeMeta := true
	if req.IncludeMetadata != nil {
		includeMeta = *req.IncludeMetadata
	}
	c := Criteria{
		UserIDs:         cleanList(append([]string{req.UserID}, req.UserIDs...)),
		AppIDs:          cleanList(req.AppIDs),
		Metadata:        MetadataFilter(req.MetadataFilters),
		IncludeArchived: req.IncludeArchived,
		SortColumn:      SortByCreatedAt,
		SortDirection:   Desc,
		Page:            1,
		Size:            limit,
	}
	if len(c.AppIDs) == 0 {
		c.AppNames = cleanList(req.AppNames)
	}
	if len(c.Metadata) == 0 {
		c.Metadata = nil
	}
	if err := c.Validate(MaxSearchLimit); err != nil {
		return nil, err
	}
	return &SemanticQuery{Criteria: c, Text: text, Threshold: threshold, IncludeMetadata: includeMeta}, nil
}

func resolveThreshold(v *float64) (float64, error) {
	if v == nil {
		return DefaultThreshold, nil
	}
	if *v < 0 || *v > 1 {
		return 0, model.NewValidationError("threshold", "must be within [0, 1]")
	}
	return *v, nil
}
