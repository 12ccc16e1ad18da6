package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/goibibo/mem0/internal/model"
)

type users struct{ s *Store }

const userColumns = `u.id, u.user_id, u.name, u.email, u.metadata, u.created_at, u.updated_at`

func scanUser(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*model.User, error) {
	var out model.User
	var name, email, meta sql.NullString
	dest := []interface{}{&out.ID, &out.UserID, &name, &email, &meta, dbTime{&out.CreatedAt}, dbTime{&out.UpdatedAt}}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	out.Name = strPtr(name)
	out.Email = strPtr(email)
	out.Metadata = decodeJSON(meta)
	return &out, nil
}

func (u *users) Create(ctx context.Context, in *model.User) (*model.User, error) {
	now := time.Now().UTC()
	out := *in
	out.ID = uuid.NewString()
	out.CreatedAt = now
	out.UpdatedAt = now
	meta, err := encodeJSON(in.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = u.s.db.ExecContext(ctx, u.s.q(`
        INSERT INTO users (id, user_id, name, email, metadata, created_at, updated_at)
        VALUES (?,?,?,?,?,?,?)
    `), out.ID, out.UserID, nullable(in.Name), nullable(in.Email), meta, u.s.d.Time(now), u.s.d.Time(now))
	if err != nil {
		if u.s.d.IsUniqueViolation(err) {
			return nil, model.NewConflictError("user_id", "user_id or email already exists")
		}
		return nil, err
	}
	if out.Metadata == nil {
		out.Metadata = map[string]interface{}{}
	}
	return &out, nil
}

func (u *users) GetByUserID(ctx context.Context, userID string) (*model.User, error) {
	row := u.s.db.QueryRowContext(ctx, u.s.q(`SELECT `+userColumns+` FROM users u WHERE u.user_id = ?`), userID)
	out, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("user", userID)
	}
	return out, err
}

func (u *users) List(ctx context.Context, offset, limit int) ([]*model.UserWithCount, int, error) {
	var total int
	if err := u.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := u.s.db.QueryContext(ctx, u.s.q(`
        SELECT `+userColumns+`,
            (SELECT COUNT(*) FROM memories m WHERE m.user_id = u.id AND m.state <> 'deleted')
        FROM users u
        ORDER BY u.user_id
        LIMIT ? OFFSET ?
    `), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	var res []*model.UserWithCount
	for rows.Next() {
		var count int
		usr, err := scanUser(rows, &count)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, &model.UserWithCount{User: *usr, TotalMemories: count})
	}
	return res, total, rows.Err()
}
