package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/goibibo/mem0/internal/model"
)

type accessLogs struct{ s *Store }

func (l *accessLogs) Append(ctx context.Context, e *model.AccessLogEntry) (*model.AccessLogEntry, error) {
	now := time.Now().UTC()
	out := *e
	out.ID = newULID(now)
	out.AccessedAt = now
	if out.AccessType == "" {
		out.AccessType = "get"
	}
	meta, err := encodeJSON(e.Metadata)
	if err != nil {
		return nil, err
	}
	if _, err := l.s.db.ExecContext(ctx, l.s.q(`
        INSERT INTO access_logs (id, memory_id, app_id, access_type, metadata, accessed_at)
        VALUES (?,?,?,?,?,?)
    `), out.ID, out.MemoryID, out.AppID, out.AccessType, meta, l.s.d.Time(now)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (l *accessLogs) ListForMemory(ctx context.Context, memoryID string, offset, limit int) ([]*model.AccessLogEntry, int, error) {
	var total int
	if err := l.s.db.QueryRowContext(ctx, l.s.q(`SELECT COUNT(*) FROM access_logs WHERE memory_id = ?`), memoryID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := l.s.db.QueryContext(ctx, l.s.q(`
        SELECT l.id, l.memory_id, l.app_id, a.name, l.access_type, l.metadata, l.accessed_at
        FROM access_logs l JOIN apps a ON a.id = l.app_id
        WHERE l.memory_id = ?
        ORDER BY l.accessed_at DESC, l.id DESC
        LIMIT ? OFFSET ?
    `), memoryID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	res := []*model.AccessLogEntry{}
	for rows.Next() {
		var e model.AccessLogEntry
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.AppID, &e.AppName, &e.AccessType, &meta, dbTime{&e.AccessedAt}); err != nil {
			return nil, 0, err
		}
		e.Metadata = decodeJSON(meta)
		res = append(res, &e)
	}
	return res, total, rows.Err()
}

type statusHistory struct{ s *Store }

func (h *statusHistory) ListForMemory(ctx context.Context, memoryID string) ([]*model.StatusHistoryEntry, error) {
	rows, err := h.s.db.QueryContext(ctx, h.s.q(`
        SELECT id, memory_id, changed_by, old_state, new_state, changed_at
        FROM memory_status_history WHERE memory_id = ?
        ORDER BY changed_at, id
    `), memoryID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []*model.StatusHistoryEntry{}
	for rows.Next() {
		var e model.StatusHistoryEntry
		var from, to string
		if err := rows.Scan(&e.ID, &e.MemoryID, &e.ChangedBy, &from, &to, dbTime{&e.ChangedAt}); err != nil {
			return nil, err
		}
		e.OldState, e.NewState = model.MemoryState(from), model.MemoryState(to)
		res = append(res, &e)
	}
	return res, rows.Err()
}
