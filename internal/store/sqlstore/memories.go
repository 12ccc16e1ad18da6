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

type memories struct{ s *Store }

const memoryColumns = `m.id, m.user_id, u.user_id, m.app_id, a.name, m.content, m.metadata, m.state, m.created_at, m.updated_at, m.archived_at, m.deleted_at`

const memoryFrom = ` FROM memories m JOIN users u ON u.id = m.user_id JOIN apps a ON a.id = m.app_id`

func scanMemory(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*model.Memory, error) {
	var out model.Memory
	var meta sql.NullString
	var state string
	dest := []interface{}{
		&out.ID, &out.OwnerID, &out.UserID, &out.AppID, &out.AppName, &out.Content, &meta, &state,
		dbTime{&out.CreatedAt}, dbTime{&out.UpdatedAt}, nullTime{&out.ArchivedAt}, nullTime{&out.DeletedAt},
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	out.State = model.MemoryState(state)
	out.Metadata = decodeJSON(meta)
	out.Categories = []string{}
	return &out, nil
}

// collectMemories drains rows before any follow-up query runs on the same pool.
func collectMemories(rows *sql.Rows, extra func() []interface{}, each func(*model.Memory)) ([]*model.Memory, error) {
	defer func() { _ = rows.Close() }()
	var res []*model.Memory
	for rows.Next() {
		var dest []interface{}
		if extra != nil {
			dest = extra()
		}
		m, err := scanMemory(rows, dest...)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
		if each != nil {
			each(m)
		}
	}
	return res, rows.Err()
}

// attachCategories loads category names for every memory in ms.
func (r *memories) attachCategories(ctx context.Context, q queryer, ms []*model.Memory) error {
	if len(ms) == 0 {
		return nil
	}
	byID := make(map[string]*model.Memory, len(ms))
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	rows, err := q.QueryContext(ctx, r.s.q(`
        SELECT mc.memory_id, c.name
        FROM memory_categories mc JOIN categories c ON c.id = mc.category_id
        WHERE mc.memory_id IN (`+placeholders(len(ids))+`)
        ORDER BY c.name
    `), toArgs(ids)...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var memID, name string
		if err := rows.Scan(&memID, &name); err != nil {
			return err
		}
		if m := byID[memID]; m != nil {
			m.Categories = append(m.Categories, name)
		}
	}
	return rows.Err()
}

func (r *memories) Create(ctx context.Context, in *model.Memory) (*model.Memory, error) {
	now := time.Now().UTC()
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	state := in.State
	if state == "" {
		state = model.StateActive
	}
	archivedAt, deletedAt := model.StateTimestamps(state, now)
	meta, err := encodeJSON(in.Metadata)
	if err != nil {
		return nil, err
	}
	_, err = r.s.db.ExecContext(ctx, r.s.q(`
        INSERT INTO memories (id, user_id, app_id, content, metadata, state, created_at, updated_at, archived_at, deleted_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)
    `), id, in.OwnerID, in.AppID, in.Content, meta, string(state), r.s.d.Time(now), r.s.d.Time(now),
		r.timeOrNil(archivedAt), r.timeOrNil(deletedAt))
	if err != nil {
		if r.s.d.IsUniqueViolation(err) {
			return nil, model.NewConflictError("id", "memory already exists")
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *memories) timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return r.s.d.Time(*t)
}

func (r *memories) Get(ctx context.Context, memoryID string) (*model.Memory, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.q(`SELECT `+memoryColumns+memoryFrom+` WHERE m.id = ?`), memoryID)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("memory", memoryID)
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachCategories(ctx, r.s.db, []*model.Memory{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// criteriaWhere renders every non-empty criteria dimension as a conjunctive predicate.
func (r *memories) criteriaWhere(c filter.Criteria) (string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(clause string, a ...interface{}) {
		where = append(where, clause)
		args = append(args, a...)
	}

	states := c.VisibleStates()
	stateArgs := make([]interface{}, len(states))
	for i, st := range states {
		stateArgs[i] = string(st)
	}
	add("m.state IN ("+placeholders(len(states))+")", stateArgs...)

	if len(c.UserIDs) > 0 {
		add("u.user_id IN ("+placeholders(len(c.UserIDs))+")", toArgs(c.UserIDs)...)
	}
	if len(c.AppIDs) > 0 {
		add("m.app_id IN ("+placeholders(len(c.AppIDs))+")", toArgs(c.AppIDs)...)
	} else if len(c.AppNames) > 0 {
		add("a.name IN ("+placeholders(len(c.AppNames))+")", toArgs(c.AppNames)...)
	}
	if len(c.CategoryIDs) > 0 {
		add("EXISTS (SELECT 1 FROM memory_categories mc WHERE mc.memory_id = m.id AND mc.category_id IN ("+
			placeholders(len(c.CategoryIDs))+"))", toArgs(c.CategoryIDs)...)
	}
	for k, v := range c.Metadata {
		clause, a := r.s.d.MetadataEquals(k, v)
		add(clause, a...)
	}
	if c.SearchQuery != "" {
		add("m.content "+r.s.d.ContainsOp()+` ? ESCAPE '\'`, "%"+escapeLike(c.SearchQuery)+"%")
	}
	if c.From != nil {
		add("m.created_at >= ?", r.s.d.Time(*c.From))
	}
	if c.To != nil {
		add("m.created_at <= ?", r.s.d.Time(*c.To))
	}
	if len(c.IDs) > 0 {
		add("m.id IN ("+placeholders(len(c.IDs))+")", toArgs(c.IDs)...)
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func orderBy(c filter.Criteria) string {
	col := "m.created_at"
	switch c.SortColumn {
	case filter.SortByContent:
		col = "m.content"
	case filter.SortByAppName:
		col = "a.name"
	}
	dir := "DESC"
	if c.SortDirection == filter.Asc {
		dir = "ASC"
	}
	// created_at and id break ties so pages never overlap.
	if col == "m.created_at" {
		return " ORDER BY m.created_at " + dir + ", m.id " + dir
	}
	return " ORDER BY " + col + " " + dir + ", m.created_at DESC, m.id DESC"
}

func (r *memories) Filter(ctx context.Context, c filter.Criteria) ([]*model.Memory, int, error) {
	cond, args := r.criteriaWhere(c)

	var total int
	if err := r.s.db.QueryRowContext(ctx, r.s.q(`SELECT COUNT(*)`+memoryFrom+cond), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*model.Memory{}, 0, nil
	}

	limit := c.Size
	if limit <= 0 {
		limit = filter.DefaultSize
	}
	offset := c.Offset()
	if offset < 0 {
		offset = 0
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`SELECT `+memoryColumns+memoryFrom+cond+orderBy(c)+` LIMIT ? OFFSET ?`),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	res, err := collectMemories(rows, nil, nil)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCategories(ctx, r.s.db, res); err != nil {
		return nil, 0, err
	}
	if res == nil {
		res = []*model.Memory{}
	}
	return res, total, nil
}

func (r *memories) UpdateContent(ctx context.Context, memoryID, content string) (*model.Memory, error) {
	res, err := r.s.db.ExecContext(ctx, r.s.q(`UPDATE memories SET content = ?, updated_at = ? WHERE id = ? AND state <> 'deleted'`),
		content, r.s.d.Time(time.Now().UTC()), memoryID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.NewNotFoundError("memory", memoryID)
	}
	return r.Get(ctx, memoryID)
}

func (r *memories) Transition(ctx context.Context, memoryID string, to model.MemoryState, changedBy string) (bool, error) {
	if !to.Valid() {
		return false, model.NewValidationError("state", "unknown state "+string(to))
	}
	tx, err := r.s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, r.s.q(`SELECT state FROM memories WHERE id = ?`+r.s.d.ForUpdate()), memoryID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.NewNotFoundError("memory", memoryID)
	}
	if err != nil {
		return false, err
	}
	from := model.MemoryState(current)
	if from == to || !model.CanTransition(from, to) {
		return false, nil
	}

	now := time.Now().UTC()
	archivedAt, deletedAt := model.StateTimestamps(to, now)
	if _, err := tx.ExecContext(ctx, r.s.q(`
        UPDATE memories SET state = ?, archived_at = ?, deleted_at = ?, updated_at = ? WHERE id = ?
    `), string(to), r.timeOrNil(archivedAt), r.timeOrNil(deletedAt), r.s.d.Time(now), memoryID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, r.s.q(`
        INSERT INTO memory_status_history (id, memory_id, changed_by, old_state, new_state, changed_at)
        VALUES (?,?,?,?,?,?)
    `), newULID(now), memoryID, changedBy, string(from), string(to), r.s.d.Time(now)); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *memories) AddCategories(ctx context.Context, memoryID string, categoryIDs []string) error {
	tx, err := r.s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, r.s.q(`UPDATE memories SET updated_at = ? WHERE id = ?`), r.s.d.Time(time.Now().UTC()), memoryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewNotFoundError("memory", memoryID)
	}
	for _, cid := range categoryIDs {
		if _, err := tx.ExecContext(ctx, r.s.q(`
            INSERT INTO memory_categories (memory_id, category_id) VALUES (?,?) ON CONFLICT DO NOTHING
        `), memoryID, cid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *memories) Select(ctx context.Context, sel store.Selector) ([]string, error) {
	where := []string{"m.state <> 'deleted'"}
	if sel.SkipArchived {
		where = append(where, "m.state <> 'archived'")
	}
	var args []interface{}
	if sel.OwnerID != "" {
		where = append(where, "m.user_id = ?")
		args = append(args, sel.OwnerID)
	}
	if sel.AppID != "" {
		where = append(where, "m.app_id = ?")
		args = append(args, sel.AppID)
	}
	if len(sel.CategoryIDs) > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM memory_categories mc WHERE mc.memory_id = m.id AND mc.category_id IN ("+
			placeholders(len(sel.CategoryIDs))+"))")
		args = append(args, toArgs(sel.CategoryIDs)...)
	}
	if len(sel.IDs) > 0 {
		where = append(where, "m.id IN ("+placeholders(len(sel.IDs))+")")
		args = append(args, toArgs(sel.IDs)...)
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`SELECT m.id FROM memories m WHERE `+strings.Join(where, " AND ")+` ORDER BY m.created_at, m.id`), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *memories) Related(ctx context.Context, memoryID, ownerID string, offset, limit int) ([]*model.Memory, int, error) {
	const cond = `
        WHERE m.user_id = ? AND m.id <> ? AND m.state <> 'deleted'
          AND mc.category_id IN (SELECT category_id FROM memory_categories WHERE memory_id = ?)`
	args := []interface{}{ownerID, memoryID, memoryID}

	var total int
	if err := r.s.db.QueryRowContext(ctx, r.s.q(`
        SELECT COUNT(DISTINCT m.id) FROM memories m JOIN memory_categories mc ON mc.memory_id = m.id`+cond), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*model.Memory{}, 0, nil
	}

	rows, err := r.s.db.QueryContext(ctx, r.s.q(`
        SELECT `+memoryColumns+`, COUNT(mc.category_id) AS shared`+memoryFrom+`
        JOIN memory_categories mc ON mc.memory_id = m.id`+cond+`
        GROUP BY `+memoryColumns+`
        ORDER BY shared DESC, m.created_at DESC, m.id DESC
        LIMIT ? OFFSET ?`), append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	var shared int
	res, err := collectMemories(rows, func() []interface{} { return []interface{}{&shared} }, nil)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCategories(ctx, r.s.db, res); err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (r *memories) ListByApp(ctx context.Context, appID string, offset, limit int) ([]*model.Memory, int, error) {
	const cond = ` WHERE m.app_id = ? AND m.state <> 'deleted'`
	var total int
	if err := r.s.db.QueryRowContext(ctx, r.s.q(`SELECT COUNT(*) FROM memories m`+cond), appID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`SELECT `+memoryColumns+memoryFrom+cond+
		` ORDER BY m.created_at DESC, m.id DESC LIMIT ? OFFSET ?`), appID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	res, err := collectMemories(rows, nil, nil)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCategories(ctx, r.s.db, res); err != nil {
		return nil, 0, err
	}
	if res == nil {
		res = []*model.Memory{}
	}
	return res, total, nil
}

func (r *memories) ListAccessedByApp(ctx context.Context, appID string, offset, limit int) ([]model.AccessedMemory, int, error) {
	const cond = ` WHERE l.app_id = ? AND m.state <> 'deleted'`
	var total int
	if err := r.s.db.QueryRowContext(ctx, r.s.q(`
        SELECT COUNT(DISTINCT l.memory_id) FROM access_logs l JOIN memories m ON m.id = l.memory_id`+cond), appID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.s.db.QueryContext(ctx, r.s.q(`
        SELECT `+memoryColumns+`, COUNT(l.id) AS access_count
        FROM access_logs l
        JOIN memories m ON m.id = l.memory_id
        JOIN users u ON u.id = m.user_id
        JOIN apps a ON a.id = m.app_id`+cond+`
        GROUP BY `+memoryColumns+`
        ORDER BY access_count DESC, m.id
        LIMIT ? OFFSET ?`), appID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	var counts []int
	var n int
	ms, err := collectMemories(rows, func() []interface{} { return []interface{}{&n} }, func(*model.Memory) { counts = append(counts, n) })
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCategories(ctx, r.s.db, ms); err != nil {
		return nil, 0, err
	}
	out := make([]model.AccessedMemory, len(ms))
	for i, m := range ms {
		out[i] = model.AccessedMemory{Memory: m, AccessCount: counts[i]}
	}
	return out, total, nil
}
