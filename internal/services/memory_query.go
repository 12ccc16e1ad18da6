package services

import (
	"context"
	"fmt"
	"sort"

	pkgerrors "github.com/pkg/errors"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/vectorstore"
)

// Query answers a resolved filter query. Structured queries page through the
// store; semantic queries return one ranked page whose size is a result limit.
func (s *MemoryService) Query(ctx context.Context, q filter.Query) (filter.Page[*model.Memory], error) {
	switch q := q.(type) {
	case *filter.StructuredQuery:
		c := q.Criteria
		items, total, err := s.store.Memories().Filter(ctx, c)
		if err != nil {
			return filter.Page[*model.Memory]{}, err
		}
		return filter.NewPage(items, total, c.Page, c.Size), nil
	case *filter.SemanticQuery:
		items, err := s.Search(ctx, q)
		if err != nil {
			return filter.Page[*model.Memory]{}, err
		}
		p := filter.NewPage(items, len(items), 1, q.Limit())
		p.Pages = filter.PageCount(len(items), len(items))
		return p, nil
	default:
		return filter.Page[*model.Memory]{}, fmt.Errorf("unsupported query type %T", q)
	}
}

// Search ranks the caller's visible memories by similarity to the query text.
// Vector hits are hydrated from the store under the remaining criteria; hits that
// no longer resolve, are deleted, or are hidden by the criteria are skipped.
func (s *MemoryService) Search(ctx context.Context, q *filter.SemanticQuery) ([]*model.Memory, error) {
	if !s.SemanticEnabled() {
		return nil, pkgerrors.WithStack(fmt.Errorf("semantic search: %w", model.ErrUnavailable))
	}
	vec, err := s.emb.Embed(ctx, q.Text)
	if err != nil {
		return nil, upstream("embed query", err)
	}

	c := q.Criteria
	limit := q.Limit()
	vq := vectorstore.Query{
		Vector:    vec,
		UserIDs:   c.UserIDs,
		Limit:     candidateLimit(c, limit),
		Threshold: q.Threshold,
	}
	if len(c.AppIDs) == 0 {
		vq.AppNames = c.AppNames
	}
	hits, err := s.idx.Search(ctx, vq)
	if err != nil {
		return nil, upstream("vector search", err)
	}
	if len(hits) == 0 {
		return []*model.Memory{}, nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	c.IDs = ids
	c.SearchQuery = ""
	c.Page, c.Size = 1, len(ids)
	rows, _, err := s.store.Memories().Filter(ctx, c)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Memory, len(rows))
	for _, m := range rows {
		byID[m.ID] = m
	}

	out := make([]*model.Memory, 0, limit)
	for _, h := range hits {
		m, ok := byID[h.ID]
		if !ok {
			continue
		}
		if q.IncludeMetadata {
			meta := make(map[string]interface{}, len(m.Metadata)+1)
			for k, v := range m.Metadata {
				meta[k] = v
			}
			meta["relevance_score"] = h.Score
			m.Metadata = meta
		} else {
			m.Metadata = nil
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// candidateLimit over-fetches from the vector store when criteria the index cannot
// evaluate will drop some hits during hydration.
func candidateLimit(c filter.Criteria, limit int) int {
	if len(c.AppIDs) == 0 && len(c.CategoryIDs) == 0 && len(c.Metadata) == 0 && c.From == nil && c.To == nil {
		return limit
	}
	n := limit * 3
	if n > 3*filter.MaxSearchLimit {
		n = 3 * filter.MaxSearchLimit
	}
	return n
}
