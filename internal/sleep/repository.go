package sleep

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for sleep records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sleepColumns = `id, user_id, start_time, end_time, duration, light_minutes, deep_minutes, rem_minutes, source, created_at, updated_at`

// Get fetches a single record.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sleepColumns+` FROM sleep_records WHERE id = $1`, id)
	return scanRecord(row)
}

// List returns records matching the query inside the authorization scope.
func (r *Repository) List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Record, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	switch scope.Kind {
	case authz.FilterByOwner:
		add(`user_id = $%d`, scope.OwnerID)
	case authz.FilterByCompanyMembers:
		add(`user_id IN (SELECT id FROM users WHERE company_id = $%d)`, scope.CompanyID)
	}
	if q.UserID != 0 {
		add(`user_id = $%d`, q.UserID)
	}
	if q.Source != "" {
		add(`source = $%d`, string(q.Source))
	}
	if !q.From.IsZero() {
		add(`start_time >= $%d`, q.From)
	}
	if !q.To.IsZero() {
		add(`end_time <= $%d`, q.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sleep_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM sleep_records%s ORDER BY start_time DESC, id DESC LIMIT $%d OFFSET $%d`, sleepColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, rec)
	}
	return list, total, rows.Err()
}

// Create inserts a record and returns the stored row.
func (r *Repository) Create(ctx context.Context, rec Record) (Record, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO sleep_records (user_id, start_time, end_time, duration, light_minutes, deep_minutes, rem_minutes, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
RETURNING `+sleepColumns,
		rec.UserID, rec.StartTime, rec.EndTime, rec.Duration, rec.Light, rec.Deep, rec.Rem, string(rec.Source))
	return scanRecord(row)
}

// Update persists the mutable columns of a record.
func (r *Repository) Update(ctx context.Context, rec Record) (Record, error) {
	row := r.pool.QueryRow(ctx, `UPDATE sleep_records SET start_time=$2, end_time=$3, duration=$4, light_minutes=$5, deep_minutes=$6, rem_minutes=$7, updated_at=NOW()
WHERE id = $1
RETURNING `+sleepColumns,
		rec.ID, rec.StartTime, rec.EndTime, rec.Duration, rec.Light, rec.Deep, rec.Rem)
	return scanRecord(row)
}

// Delete removes a record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sleep_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var source string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.StartTime, &rec.EndTime, &rec.Duration, &rec.Light, &rec.Deep, &rec.Rem, &source, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	rec.Source = Source(source)
	return rec, nil
}
