package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goibibo/mem0/internal/filter"
	"github.com/goibibo/mem0/internal/model"
	"github.com/goibibo/mem0/internal/store"
)

type apps struct{ s *Store }

const appColumns = `a.id, a.owner_id, a.name, a.description, a.metadata, a.is_active, a.created_at, a.updated_at`

const appStatsColumns = appColumns + `,
    (SELECT COUNT(*) FROM memories m WHERE m.app_id = a.id AND m.state <> 'deleted') AS memories_created,
    (SELECT COUNT(DISTINCT l.memory_id) FROM access_logs l WHERE l.app_id = a.id) AS memories_accessed,
    (SELECT MIN(l.accessed_at) FROM access_logs l WHERE l.app_id = a.id) AS first_accessed,
    (SELECT MAX(l.accessed_at) FROM access_logs l WHERE l.app_id = a.id) AS last_accessed`

func scanApp(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*model.App, error) {
	var out model.App
	var desc, meta sql.NullString
	dest := []interface{}{&out.ID, &out.OwnerID, &out.Name, &desc, &meta, &out.IsActive, dbTime{&out.CreatedAt}, dbTime{&out.UpdatedAt}}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	out.Description = strPtr(desc)
	out.Metadata = decodeJSON(meta)
	return &out, nil
}

func scanAppStats(row interface{ Scan(...interface{}) error }) (*model.AppStats, error) {
	var st model.AppStats
	app, err := scanApp(row, &st.TotalMemoriesCreated, &st.TotalMemoriesAccessed, nullTime{&st.FirstAccessed}, nullTime{&st.LastAccessed})
	if err != nil {
		return nil, err
	}
	st.App = *app
	return &st, nil
}

func (a *apps) getByName(ctx context.Context, ownerID, name string) (*model.App, error) {
	row := a.s.db.QueryRowContext(ctx, a.s.q(`SELECT `+appColumns+` FROM apps a WHERE a.owner_id = ? AND a.name = ?`), ownerID, name)
	return scanApp(row)
}

func (a *apps) GetOrCreate(ctx context.Context, ownerID, name string) (*model.App, error) {
	got, err := a.getByName(ctx, ownerID, name)
	if err == nil {
		return got, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	out := &model.App{ID: uuid.NewString(), OwnerID: ownerID, Name: name, IsActive: true, Metadata: map[string]interface{}{}, CreatedAt: now, UpdatedAt: now}
	_, err = a.s.db.ExecContext(ctx, a.s.q(`
        INSERT INTO apps (id, owner_id, name, metadata, is_active, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?)
    `), out.ID, ownerID, name, "{}", true, a.s.d.Time(now), a.s.d.Time(now))
	if err != nil {
		if a.s.d.IsUniqueViolation(err) {
			// Lost a race with a concurrent create.
			return a.getByName(ctx, ownerID, name)
		}
		return nil, err
	}
	return out, nil
}

func (a *apps) GetByID(ctx context.Context, appID string) (*model.App, error) {
	row := a.s.db.QueryRowContext(ctx, a.s.q(`SELECT `+appColumns+` FROM apps a WHERE a.id = ?`), appID)
	out, err := scanApp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("app", appID)
	}
	return out, err
}

func (a *apps) Stats(ctx context.Context, appID string) (*model.AppStats, error) {
	row := a.s.db.QueryRowContext(ctx, a.s.q(`SELECT `+appStatsColumns+` FROM apps a WHERE a.id = ?`), appID)
	out, err := scanAppStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("app", appID)
	}
	return out, err
}

func (a *apps) List(ctx context.Context, opts store.AppListOptions) ([]*model.AppStats, int, error) {
	var where []string
	var args []interface{}
	if opts.OwnerID != "" {
		where = append(where, "a.owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if name := strings.TrimSpace(opts.Name); name != "" {
		where = append(where, "a.name "+a.s.d.ContainsOp()+` ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(name)+"%")
	}
	if opts.IsActive != nil {
		where = append(where, "a.is_active = ?")
		args = append(args, *opts.IsActive)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := a.s.db.QueryRowContext(ctx, a.s.q(`SELECT COUNT(*) FROM apps a`+cond), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col := "a.name"
	switch opts.SortColumn {
	case "memories":
		col = "memories_created"
	case "memories_accessed":
		col = "memories_accessed"
	case "created_at":
		col = "a.created_at"
	}
	dir := "ASC"
	if opts.SortDirection == filter.Desc {
		dir = "DESC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.s.db.QueryContext(ctx, a.s.q(`SELECT `+appStatsColumns+` FROM apps a`+cond+
		` ORDER BY `+col+` `+dir+`, a.id `+dir+` LIMIT ? OFFSET ?`), append(args, limit, opts.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.AppStats
	for rows.Next() {
		st, err := scanAppStats(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, st)
	}
	return res, total, rows.Err()
}

func (a *apps) SetActive(ctx context.Context, appID string, active bool) (*model.App, error) {
	res, err := a.s.db.ExecContext(ctx, a.s.q(`UPDATE apps SET is_active = ?, updated_at = ? WHERE id = ?`),
		active, a.s.d.Time(time.Now().UTC()), appID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.NewNotFoundError("app", appID)
	}
	return a.GetByID(ctx, appID)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
