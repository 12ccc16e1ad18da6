// Package vectorstore holds the similarity-search adapters used by semantic queries.
// Point ids are memory ids, so a hit resolves directly to a memory row.
package vectorstore

import (
	"context"
	"time"

	"github.com/goibibo/mem0/internal/model"
)

// Point is one embedded memory.
type Point struct {
	ID        string
	Vector    []float32
	UserID    string // external user id
	AppName   string
	Content   string
	CreatedAt time.Time
}

// Query scopes a similarity search. Empty lists mean no restriction.
type Query struct {
	Vector    []float32
	UserIDs   []string
	AppNames  []string
	Limit     int
	Threshold float64 // minimum score in [0,1]
}

// Index provides vector search and index maintenance.
type Index interface {
	Upsert(ctx context.Context, p Point) error
	// Search returns hits ordered by score, best first.
	Search(ctx context.Context, q Query) ([]model.VectorHit, error)
	// Delete removes a point; deleting a missing point is not an error.
	Delete(ctx context.Context, id string) error
}

func matchesAny(v string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
