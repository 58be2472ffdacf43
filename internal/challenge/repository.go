package challenge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/platform/db"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for challenges.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const challengeColumns = `id, company_id, created_by, title, COALESCE(description, ''), type, mode, status, goal, start_date, end_date, created_at, updated_at`

// Get fetches a single challenge.
func (r *Repository) Get(ctx context.Context, id int64) (Challenge, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
	return scanChallenge(row)
}

// List returns challenges matching the query inside the authorization scope.
func (r *Repository) List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Challenge, int, error) {
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
		add(`created_by = $%d`, scope.OwnerID)
	case authz.FilterByCompanyMembers:
		add(`company_id = $%d`, scope.CompanyID)
	}
	if q.Status != "" {
		add(`status = $%d`, string(q.Status))
	}
	if q.Type != "" {
		add(`type = $%d`, string(q.Type))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM challenges`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM challenges%s ORDER BY start_date DESC, id DESC LIMIT $%d OFFSET $%d`, challengeColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	return list, total, rows.Err()
}

// Create inserts a challenge and returns the stored row.
func (r *Repository) Create(ctx context.Context, c Challenge) (Challenge, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO challenges (company_id, created_by, title, description, type, mode, status, goal, start_date, end_date, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING `+challengeColumns,
		c.CompanyID, c.CreatedBy, c.Title, c.Description, string(c.Type), string(c.Mode), string(c.Status), c.Goal, c.StartDate, c.EndDate)
	return scanChallenge(row)
}

// Update persists the mutable columns of a challenge.
func (r *Repository) Update(ctx context.Context, c Challenge) (Challenge, error) {
	row := r.pool.QueryRow(ctx, `UPDATE challenges SET title=$2, description=NULLIF($3, ''), goal=$4, status=$5, start_date=$6, end_date=$7, updated_at=NOW()
WHERE id = $1
RETURNING `+challengeColumns,
		c.ID, c.Title, c.Description, c.Goal, string(c.Status), c.StartDate, c.EndDate)
	return scanChallenge(row)
}

// Delete removes a challenge together with its participants.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM challenge_participants WHERE challenge_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// AddParticipant records a user joining a challenge.
func (r *Repository) AddParticipant(ctx context.Context, challengeID, userID int64) (Participant, error) {
	var p Participant
	err := r.pool.QueryRow(ctx, `INSERT INTO challenge_participants (challenge_id, user_id, joined_at) VALUES ($1, $2, NOW())
RETURNING challenge_id, user_id, joined_at`, challengeID, userID).Scan(&p.ChallengeID, &p.UserID, &p.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Participant{}, fmt.Errorf("%w: already joined", shared.ErrDuplicate)
		}
		return Participant{}, err
	}
	return p, nil
}

// Participants lists everyone who joined a challenge.
func (r *Repository) Participants(ctx context.Context, challengeID int64) ([]Participant, error) {
	rows, err := r.pool.Query(ctx, `SELECT challenge_id, user_id, joined_at FROM challenge_participants WHERE challenge_id = $1 ORDER BY joined_at`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Participant{}
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ChallengeID, &p.UserID, &p.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Leaderboard ranks participants by accumulated progress, highest first.
func (r *Repository) Leaderboard(ctx context.Context, challengeID int64, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.user_id, u.name, p.value
FROM challenge_progress p
JOIN users u ON u.id = p.user_id
WHERE p.challenge_id = $1
ORDER BY p.value DESC, p.user_id
LIMIT $2`, challengeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Value); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RefreshStatuses recomputes every challenge status from its date window and
// returns the number of rows that changed phase.
func (r *Repository) RefreshStatuses(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE challenges SET status = CASE
WHEN start_date > $1 THEN 'upcoming'
WHEN end_date < $1 THEN 'completed'
ELSE 'ongoing' END, updated_at = NOW()
WHERE status <> CASE
WHEN start_date > $1 THEN 'upcoming'
WHEN end_date < $1 THEN 'completed'
ELSE 'ongoing' END`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanChallenge(row pgx.Row) (Challenge, error) {
	var c Challenge
	var typ, mode, status string
	err := row.Scan(&c.ID, &c.CompanyID, &c.CreatedBy, &c.Title, &c.Description, &typ, &mode, &status, &c.Goal, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, shared.ErrNotFound
		}
		return Challenge{}, err
	}
	c.Type = Type(typ)
	c.Mode = Mode(mode)
	c.Status = Status(status)
	return c, nil
}
