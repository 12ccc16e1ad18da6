package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-openapi/strfmt"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/goibibo/mem0/internal/model"
)

// Weaviate is an Index backed by a single Weaviate class.
type Weaviate struct {
	client *weaviate.Client
	class  string
}

// NewWeaviate constructs an Index backed by Weaviate at baseURL.
// baseURL should be host:port (without scheme), e.g. "localhost:8080".
func NewWeaviate(baseURL, className string) (*Weaviate, error) {
	cl, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: baseURL})
	if err != nil {
		return nil, err
	}
	return &Weaviate{client: cl, class: className}, nil
}

func (w *Weaviate) Upsert(ctx context.Context, p Point) error {
	obj := &models.Object{
		Class: w.class,
		ID:    strfmt.UUID(p.ID),
		Properties: map[string]interface{}{
			"memoryId":  p.ID,
			"userId":    p.UserID,
			"appName":   p.AppName,
			"content":   p.Content,
			"createdAt": p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		},
		Vector: p.Vector,
	}
	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(obj).Do(ctx)
	if err != nil {
		return err
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate upsert %s: %s", p.ID, r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

func (w *Weaviate) Search(ctx context.Context, q Query) ([]model.VectorHit, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	nv := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(q.Vector).
		WithCertainty(float32(q.Threshold))

	req := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithNearVector(nv).
		WithLimit(limit).
		WithFields(
			gql.Field{Name: "memoryId"},
			gql.Field{Name: "content"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "certainty"}}},
		)
	if where := buildWhere(q.UserIDs, q.AppNames); where != nil {
		req = req.WithWhere(where)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}
	return parseHits(resp, w.class, q.Threshold)
}

func (w *Weaviate) Delete(ctx context.Context, id string) error {
	err := w.client.Data().Deleter().WithClassName(w.class).WithID(id).Do(ctx)
	var ce *fault.WeaviateClientError
	if errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// HealthPing implements health.HealthPinger.
func (w *Weaviate) HealthPing(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return errors.New("weaviate not ready")
	}
	return nil
}

// buildWhere ANDs an OR-of-equals per restricted property.
func buildWhere(userIDs, appNames []string) *filters.WhereBuilder {
	var clauses []*filters.WhereBuilder
	if c := anyEqual("userId", userIDs); c != nil {
		clauses = append(clauses, c)
	}
	if c := anyEqual("appName", appNames); c != nil {
		clauses = append(clauses, c)
	}
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(clauses)
	}
}

func anyEqual(path string, vals []string) *filters.WhereBuilder {
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return filters.Where().WithPath([]string{path}).WithOperator(filters.Equal).WithValueText(vals[0])
	}
	ops := make([]*filters.WhereBuilder, 0, len(vals))
	for _, v := range vals {
		ops = append(ops, filters.Where().WithPath([]string{path}).WithOperator(filters.Equal).WithValueText(v))
	}
	return filters.Where().WithOperator(filters.Or).WithOperands(ops)
}

func parseHits(resp *models.GraphQLResponse, class string, threshold float64) ([]model.VectorHit, error) {
	if resp == nil {
		return []model.VectorHit{}, nil
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate graphql: %s", formatGraphQLErrors(resp.Errors))
	}
	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []model.VectorHit{}, nil
	}
	raw, ok := getData[class].([]interface{})
	if !ok {
		return []model.VectorHit{}, nil
	}
	out := make([]model.VectorHit, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := m["memoryId"].(string)
		if id == "" {
			continue
		}
		var score float64
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			switch v := add["certainty"].(type) {
			case float64:
				score = v
			case string:
				score, _ = strconv.ParseFloat(v, 64)
			}
		}
		if score < threshold {
			continue
		}
		content, _ := m["content"].(string)
		out = append(out, model.VectorHit{ID: id, Score: score, Content: content})
	}
	return out, nil
}

// formatGraphQLErrors returns compact string with messages extracted for logging.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
