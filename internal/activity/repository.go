package activity

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

// Repository provides PostgreSQL backed persistence for activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `id, user_id, type, steps, calories, distance, duration, source, date, created_at, updated_at`

// Get fetches a single activity.
func (r *Repository) Get(ctx context.Context, id int64) (Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	return scanActivity(row)
}

// List returns activities matching the query inside the authorization scope.
func (r *Repository) List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Activity, int, error) {
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
		add(`date >= $%d`, q.From)
	}
	if !q.To.IsZero() {
		add(`date <= $%d`, q.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM activities%s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`, activityColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

// Create inserts an activity and returns the stored row.
func (r *Repository) Create(ctx context.Context, a Activity) (Activity, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO activities (user_id, type, steps, calories, distance, duration, source, date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
RETURNING `+activityColumns,
		a.UserID, a.Type, a.Steps, a.Calories, a.Distance, a.Duration, string(a.Source), a.Date)
	return scanActivity(row)
}

// Update persists the mutable columns of an activity.
func (r *Repository) Update(ctx context.Context, a Activity) (Activity, error) {
	row := r.pool.QueryRow(ctx, `UPDATE activities SET type=$2, steps=$3, calories=$4, distance=$5, duration=$6, date=$7, updated_at=NOW()
WHERE id = $1
RETURNING `+activityColumns,
		a.ID, a.Type, a.Steps, a.Calories, a.Distance, a.Duration, a.Date)
	return scanActivity(row)
}

// Delete removes an activity.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	var source string
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Steps, &a.Calories, &a.Distance, &a.Duration, &source, &a.Date, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, shared.ErrNotFound
		}
		return Activity{}, err
	}
	a.Source = Source(source)
	return a, nil
}
