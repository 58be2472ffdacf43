package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lesnich/TeamMotion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for companies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const companyColumns = `id, name, COALESCE(description, ''), departments, created_by, created_at, updated_at`

// Get fetches a single company.
func (r *Repository) Get(ctx context.Context, id int64) (Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	return scanCompany(row)
}

// List returns all companies, newest first.
func (r *Repository) List(ctx context.Context, page, limit int) ([]Company, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	return list, total, rows.Err()
}

// Create inserts a company and returns the stored row.
func (r *Repository) Create(ctx context.Context, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO companies (name, description, departments, created_by, created_at, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, NOW(), NOW())
RETURNING `+companyColumns,
		c.Name, c.Description, textArray(c.Departments), c.CreatedBy)
	created, err := scanCompany(row)
	if err != nil {
		return Company{}, mapUniqueViolation(err)
	}
	return created, nil
}

// Update persists the mutable columns of a company.
func (r *Repository) Update(ctx context.Context, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `UPDATE companies SET name=$2, description=NULLIF($3, ''), departments=$4, updated_at=NOW()
WHERE id = $1
RETURNING `+companyColumns,
		c.ID, c.Name, c.Description, textArray(c.Departments))
	updated, err := scanCompany(row)
	if err != nil {
		return Company{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// Delete removes a company.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: company name already in use", shared.ErrDuplicate)
	}
	return err
}

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Departments, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, err
	}
	if c.Departments == nil {
		c.Departments = []string{}
	}
	return c, nil
}
