package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/sevasetu/token-queue/internal/model"
	"github.com/sevasetu/token-queue/internal/queue"
)

// tokenColumns is the column list shared by every SELECT in this file.
const tokenColumns = `id, booking_ref, department_ref, service_ref, token_date, slot_time,
    token_number, priority_type, priority_rank, status, completed_at, created_at`

// TokenRepo is the MySQL-backed TokenStore.  Rows live in the
// service_tokens table; the unique key on (department_ref, token_date,
// slot_time, token_number) enforces token-number uniqueness per slot,
// and the status transition is a single conditional UPDATE so it is
// atomic without explicit transactions or row locks.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo constructs a TokenRepo bound to the provided database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Create inserts a token and re-reads the stored row so the caller sees
// the generated id and database-assigned created_at.  Duplicate
// composite keys surface as ErrDuplicateToken.
func (r *TokenRepo) Create(ctx context.Context, t *model.Token) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO service_tokens
		   (booking_ref, department_ref, service_ref, token_date, slot_time,
		    token_number, priority_type, priority_rank, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BookingRef, t.DepartmentRef, t.ServiceRef, t.Date, t.SlotTime,
		t.TokenNumber, string(t.PriorityType), t.PriorityRank, string(t.Status),
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return queue.ErrDuplicateToken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetByID returns the token with the given id or ErrTokenNotFound.
func (r *TokenRepo) GetByID(ctx context.Context, id uint64) (*model.Token, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM service_tokens WHERE id = ?`, id)
	return scanToken(row)
}

// FindWaiting returns the WAITING tokens for the key.  Rows come back
// in created_at order as a stable base; the engine's ranker owns the
// authoritative serve order.
func (r *TokenRepo) FindWaiting(ctx context.Context, key queue.QueueKey) ([]model.Token, error) {
	return r.findByStatus(ctx, key, model.StatusWaiting)
}

// FindServing returns the SERVING token for the key, or nil when the
// counter is idle.
func (r *TokenRepo) FindServing(ctx context.Context, key queue.QueueKey) (*model.Token, error) {
	where, args := queueWhere(key, model.StatusServing)
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM service_tokens WHERE `+where+` LIMIT 1`, args...)
	t, err := scanToken(row)
	if errors.Is(err, queue.ErrTokenNotFound) {
		return nil, nil
	}
	return t, err
}

// FindSkipped returns the SKIPPED tokens for the key.
func (r *TokenRepo) FindSkipped(ctx context.Context, key queue.QueueKey) ([]model.Token, error) {
	return r.findByStatus(ctx, key, model.StatusSkipped)
}

// queueWhere builds the per-queue predicate.  A zero DepartmentRef
// widens the match to every department; the controller always passes a
// concrete department, only the read-only view uses the wide form.
func queueWhere(key queue.QueueKey, status model.TokenStatus) (string, []interface{}) {
	where := `service_ref = ? AND token_date = ? AND status = ?`
	args := []interface{}{key.ServiceRef, key.Date, string(status)}
	if key.DepartmentRef != 0 {
		where = `department_ref = ? AND ` + where
		args = append([]interface{}{key.DepartmentRef}, args...)
	}
	return where, args
}

func (r *TokenRepo) findByStatus(ctx context.Context, key queue.QueueKey, status model.TokenStatus) ([]model.Token, error) {
	where, args := queueWhere(key, status)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tokenColumns+` FROM service_tokens WHERE `+where+` ORDER BY created_at, id`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Token
	for rows.Next() {
		t, err := scanTokenRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ServeTransition admits the token to SERVING in one conditional
// UPDATE.  The NOT EXISTS guard checks for a serving token on the same
// key inside the statement itself (the derived table lets MySQL read
// the table being updated), so the serving-check and the status flip
// are a single atomic step.  Zero affected rows means the token moved,
// vanished, or the key is occupied; a follow-up read tells them apart.
func (r *TokenRepo) ServeTransition(ctx context.Context, key queue.QueueKey, id uint64) (*model.Token, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_tokens SET status = ?
		  WHERE id = ? AND status = ?
		    AND NOT EXISTS (
		      SELECT 1 FROM (
		        SELECT id FROM service_tokens
		         WHERE department_ref = ? AND service_ref = ? AND token_date = ? AND status = ?
		      ) AS occupied
		    )`,
		string(model.StatusServing), id, string(model.StatusWaiting),
		key.DepartmentRef, key.ServiceRef, key.Date, string(model.StatusServing))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		cur, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cur.Status != model.StatusWaiting {
			return nil, queue.ErrStatusConflict
		}
		return nil, queue.ErrAlreadyServing
	}
	return r.GetByID(ctx, id)
}

// Transition is the compare-and-set mutation the whole engine rests on.
// The conditional UPDATE succeeds only while the row still holds the
// expected status; zero affected rows means either the token does not
// exist or another caller won the race, and a follow-up read tells the
// two apart.
func (r *TokenRepo) Transition(ctx context.Context, id uint64, expected, next model.TokenStatus, completedAt *time.Time) (*model.Token, error) {
	var completed interface{}
	if completedAt != nil {
		completed = completedAt.UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE service_tokens SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(next), completed, id, string(expected))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, queue.ErrStatusConflict
	}
	return r.GetByID(ctx, id)
}

// CountByStatus groups token counts by status under the filter.  Zero
// filter fields are left out of the WHERE clause entirely.
func (r *TokenRepo) CountByStatus(ctx context.Context, f queue.StatsFilter) (map[model.TokenStatus]int, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.DepartmentRef != 0 {
		conds = append(conds, "department_ref = ?")
		args = append(args, f.DepartmentRef)
	}
	if f.ServiceRef != 0 {
		conds = append(conds, "service_ref = ?")
		args = append(args, f.ServiceRef)
	}
	if f.Date != "" {
		conds = append(conds, "token_date = ?")
		args = append(args, f.Date)
	}
	q := `SELECT status, COUNT(*) FROM service_tokens`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " GROUP BY status"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[model.TokenStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.TokenStatus(status)] = n
	}
	return counts, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows for the shared scan helper.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanToken(row *sql.Row) (*model.Token, error) {
	t, err := scanTokenRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, queue.ErrTokenNotFound
		}
		return nil, err
	}
	return t, nil
}

func scanTokenRow(s scanner) (*model.Token, error) {
	var (
		t            model.Token
		priorityType string
		status       string
		completedAt  sql.NullTime
	)
	err := s.Scan(&t.ID, &t.BookingRef, &t.DepartmentRef, &t.ServiceRef, &t.Date, &t.SlotTime,
		&t.TokenNumber, &priorityType, &t.PriorityRank, &status, &completedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.PriorityType = model.PriorityType(priorityType)
	t.Status = model.TokenStatus(status)
	if completedAt.Valid {
		ts := completedAt.Time
		t.CompletedAt = &ts
	}
	return &t, nil
}
