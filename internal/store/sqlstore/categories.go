package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goibibo/mem0/internal/model"
)

type categories struct{ s *Store }

const categoryColumns = `c.id, c.name, c.description, c.created_at, c.updated_at`

func scanCategory(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*model.Category, error) {
	var out model.Category
	var desc sql.NullString
	dest := []interface{}{&out.ID, &out.Name, &desc, dbTime{&out.CreatedAt}, dbTime{&out.UpdatedAt}}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	out.Description = strPtr(desc)
	return &out, nil
}

// NormalizeCategoryName lowercases and trims a category name.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *categories) byName(ctx context.Context, name string) (*model.Category, error) {
	row := c.s.db.QueryRowContext(ctx, c.s.q(`SELECT `+categoryColumns+` FROM categories c WHERE c.name = ?`), name)
	return scanCategory(row)
}

func (c *categories) GetOrCreate(ctx context.Context, names []string) ([]*model.Category, error) {
	seen := map[string]bool{}
	var out []*model.Category
	for _, raw := range names {
		name := NormalizeCategoryName(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		got, err := c.byName(ctx, name)
		if err == nil {
			out = append(out, got)
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		now := time.Now().UTC()
		cat := &model.Category{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
		_, err = c.s.db.ExecContext(ctx, c.s.q(`INSERT INTO categories (id, name, created_at, updated_at) VALUES (?,?,?,?)`),
			cat.ID, name, c.s.d.Time(now), c.s.d.Time(now))
		if err != nil {
			if !c.s.d.IsUniqueViolation(err) {
				return nil, err
			}
			if cat, err = c.byName(ctx, name); err != nil {
				return nil, err
			}
		}
		out = append(out, cat)
	}
	return out, nil
}

func (c *categories) InUse(ctx context.Context, userID string) ([]*model.CategoryCount, error) {
	q := `SELECT ` + categoryColumns + `, COUNT(DISTINCT m.id)
        FROM categories c
        JOIN memory_categories mc ON mc.category_id = c.id
        JOIN memories m ON m.id = mc.memory_id
        JOIN users u ON u.id = m.user_id
        WHERE m.state IN ('active', 'paused')`
	var args []interface{}
	if userID != "" {
		q += ` AND u.user_id = ?`
		args = append(args, userID)
	}
	q += ` GROUP BY c.id, c.name, c.description, c.created_at, c.updated_at ORDER BY c.name`

	rows, err := c.s.db.QueryContext(ctx, c.s.q(q), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []*model.CategoryCount{}
	for rows.Next() {
		var n int
		cat, err := scanCategory(rows, &n)
		if err != nil {
			return nil, err
		}
		res = append(res, &model.CategoryCount{Category: *cat, Count: n})
	}
	return res, rows.Err()
}
