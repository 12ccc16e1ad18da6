package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/goibibo/mem0/internal/model"
)

const chromemCollection = "openmemory"

// Chromem is an embedded Index for dev and tests. An empty path keeps
// everything in memory; otherwise the database is persisted under path.
type Chromem struct {
	db  *chromem.DB
	col *chromem.Collection
}

// errNoEmbedder guards against chromem computing embeddings itself: every
// document and query arrives with a vector already.
var errNoEmbedder = errors.New("chromem: embeddings must be supplied by the caller")

func NewChromem(path string) (*Chromem, error) {
	db := chromem.NewDB()
	if path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}
	noEmbed := func(context.Context, string) ([]float32, error) { return nil, errNoEmbedder }
	col, err := db.GetOrCreateCollection(chromemCollection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Chromem{db: db, col: col}, nil
}

func (c *Chromem) Upsert(ctx context.Context, p Point) error {
	if len(p.Vector) == 0 {
		return fmt.Errorf("chromem upsert %s: empty vector", p.ID)
	}
	// chromem normalizes in place
	vec := append([]float32(nil), p.Vector...)
	return c.col.AddDocument(ctx, chromem.Document{
		ID:        p.ID,
		Content:   p.Content,
		Embedding: vec,
		Metadata: map[string]string{
			"user_id":    p.UserID,
			"app_name":   p.AppName,
			"created_at": p.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

// Search asks chromem for the nearest documents and filters them by scope.
// A where clause is only pushed down for single-valued restrictions; multi-valued
// ones are applied afterwards, so the candidate set is the whole collection.
func (c *Chromem) Search(ctx context.Context, q Query) ([]model.VectorHit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	where := map[string]string{}
	if len(q.UserIDs) == 1 {
		where["user_id"] = q.UserIDs[0]
	}
	if len(q.AppNames) == 1 {
		where["app_name"] = q.AppNames[0]
	}
	n := c.col.Count()
	if len(q.UserIDs) <= 1 && len(q.AppNames) <= 1 && limit < n {
		n = limit
	}
	if n == 0 {
		return []model.VectorHit{}, nil
	}
	if len(where) == 0 {
		where = nil
	}

	vec := append([]float32(nil), q.Vector...)
	var results []chromem.Result
	for ; n >= 1; n-- {
		var err error
		results, err = c.col.QueryEmbedding(ctx, vec, n, where, nil)
		if err == nil {
			break
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
		if n == 1 {
			return []model.VectorHit{}, nil
		}
	}

	out := make([]model.VectorHit, 0, len(results))
	for _, r := range results {
		score := float64(r.Similarity)
		if score < q.Threshold {
			continue
		}
		if !matchesAny(r.Metadata["user_id"], q.UserIDs) || !matchesAny(r.Metadata["app_name"], q.AppNames) {
			continue
		}
		out = append(out, model.VectorHit{ID: r.ID, Score: score, Content: r.Content})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Chromem) Delete(ctx context.Context, id string) error {
	return c.col.Delete(ctx, nil, nil, id)
}

// HealthPing implements health.HealthPinger. The embedded store is always reachable.
func (c *Chromem) HealthPing(context.Context) error { return nil }

func isInsufficientDocsError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "nResults") || strings.Contains(msg, "number of documents")
}
