package progress

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

// Repository provides PostgreSQL backed persistence for challenge progress.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const progressColumns = `id, challenge_id, user_id, value, created_at, updated_at`

// Get fetches a single progress row.
func (r *Repository) Get(ctx context.Context, id int64) (Progress, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+progressColumns+` FROM challenge_progress WHERE id = $1`, id)
	return scanProgress(row)
}

// Find fetches the row for a (challenge, user) pair.
func (r *Repository) Find(ctx context.Context, challengeID, userID int64) (Progress, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+progressColumns+` FROM challenge_progress WHERE challenge_id = $1 AND user_id = $2`, challengeID, userID)
	return scanProgress(row)
}

// List returns progress rows matching the query inside the authorization
// scope.
func (r *Repository) List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Progress, int, error) {
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
	if q.ChallengeID != 0 {
		add(`challenge_id = $%d`, q.ChallengeID)
	}
	if q.UserID != 0 {
		add(`user_id = $%d`, q.UserID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM challenge_progress`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM challenge_progress%s ORDER BY value DESC, id LIMIT $%d OFFSET $%d`, progressColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Progress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// Upsert inserts or replaces the value for a (challenge, user) pair.
func (r *Repository) Upsert(ctx context.Context, p Progress) (Progress, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO challenge_progress (challenge_id, user_id, value, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (challenge_id, user_id) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
RETURNING `+progressColumns,
		p.ChallengeID, p.UserID, p.Value)
	return scanProgress(row)
}

// Delete removes a progress row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM challenge_progress WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProgress(row pgx.Row) (Progress, error) {
	var p Progress
	err := row.Scan(&p.ID, &p.ChallengeID, &p.UserID, &p.Value, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Progress{}, shared.ErrNotFound
		}
		return Progress{}, err
	}
	return p, nil
}
