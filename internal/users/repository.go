package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, roles, active, COALESCE(company_id, 0), COALESCE(department, ''), approved, is_online, last_active, created_at, updated_at`

// Get fetches a single user.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by case-folded email, used for duplicate checks.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, shared.NormalizeEmail(email))
	return scanUser(row)
}

// CompanyOf resolves the company id of a user; zero when unaffiliated. Other
// modules use this to build resource ownership descriptors.
func (r *Repository) CompanyOf(ctx context.Context, userID int64) (int64, error) {
	var companyID int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(company_id, 0) FROM users WHERE id = $1`, userID).Scan(&companyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return companyID, err
}

// List returns accounts matching the query inside the authorization scope.
// Non-root viewers never see Root-tagged accounts, mirroring the privileged
// target protection on reads.
func (r *Repository) List(ctx context.Context, q ListQuery, scope authz.Filter, viewer authz.Principal) ([]User, int, error) {
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
		add(`id = $%d`, scope.OwnerID)
	case authz.FilterByCompanyMembers:
		add(`company_id = $%d`, scope.CompanyID)
	}
	if q.Role != "" {
		add(`$%d = ANY(roles)`, q.Role)
	}
	if q.Email != "" {
		add(`email ILIKE '%%' || $%d || '%%'`, q.Email)
	}
	if q.CompanyID != 0 {
		add(`company_id = $%d`, q.CompanyID)
	}
	if q.Active != nil {
		add(`active = $%d`, *q.Active)
	}
	if !viewer.IsRoot() {
		// Listings mirror single-record reads: privileged accounts stay
		// hidden from non-Root viewers, own row excepted.
		add(`(id = $%d OR NOT ('Admin' = ANY(roles) OR 'Root' = ANY(roles)))`, viewer.ID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortClause(q.SortBy, q.Order)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s LIMIT $%d OFFSET $%d`, userColumns, where, order, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	return list, total, rows.Err()
}

// Create inserts an account and returns the stored row.
func (r *Repository) Create(ctx context.Context, u User, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, roles, active, company_id, department, approved, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, ''), $8, NOW(), NOW())
RETURNING `+userColumns,
		u.Email, u.Name, passwordHash, rolesToText(u.Roles), u.Active, u.CompanyID, u.Department, u.Approved)
	created, err := scanUser(row)
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return created, nil
}

// Update persists the mutable columns of an account.
func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET email=$2, name=$3, roles=$4, active=$5, company_id=NULLIF($6, 0), department=NULLIF($7, ''), approved=$8, is_online=$9, updated_at=NOW()
WHERE id = $1
RETURNING `+userColumns,
		u.ID, u.Email, u.Name, rolesToText(u.Roles), u.Active, u.CompanyID, u.Department, u.Approved, u.IsOnline)
	updated, err := scanUser(row)
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DetachCompany clears company membership for every member of a company.
// Approval and department are cleared with it: both only exist in the
// context of a company.
func (r *Repository) DetachCompany(ctx context.Context, companyID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET company_id=NULL, department=NULL, approved=FALSE, updated_at=NOW() WHERE company_id=$1`, companyID)
	return err
}

// DetachUser removes a single user from their company, clearing department
// and approval alongside.
func (r *Repository) DetachUser(ctx context.Context, userID int64) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET company_id=NULL, department=NULL, approved=FALSE, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, userID)
	return scanUser(row)
}

// AssignCompany places a user into a company and department and marks them
// approved.
func (r *Repository) AssignCompany(ctx context.Context, userID, companyID int64, department string) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET company_id=$2, department=NULLIF($3, ''), approved=TRUE, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, userID, companyID, department)
	return scanUser(row)
}

// Approve marks a user approved within their company.
func (r *Repository) Approve(ctx context.Context, userID int64) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET approved=TRUE, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, userID)
	return scanUser(row)
}

var sortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"lastActive": "last_active",
	"isOnline":   "is_online",
	"roles":      "roles",
}

// ValidSort reports whether the sort field is in the allowlist.
func ValidSort(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

func sortClause(sortBy, order string) string {
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "is_online"
	}
	dir := "DESC"
	if strings.EqualFold(order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

func rolesToText(roles []authz.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: email already in use", shared.ErrDuplicate)
	}
	return err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var roles []string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &roles, &u.Active, &u.CompanyID, &u.Department, &u.Approved, &u.IsOnline, &u.LastActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.Roles = make([]authz.Role, len(roles))
	for i, role := range roles {
		u.Roles[i] = authz.Role(role)
	}
	return u, nil
}
