package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, q ListQuery, scope authz.Filter, viewer authz.Principal) ([]User, int, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

// Auditor records administrative mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user management business logic. Every operation receives
// the request principal and consults the authorization gate before touching
// the repository.
type Service struct {
	repo  RepositoryPort
	gate  *authz.Gate
	audit Auditor
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, gate *authz.Gate, audit Auditor) *Service {
	return &Service{repo: repo, gate: gate, audit: audit}
}

// GetCurrent returns the caller's own account.
func (s *Service) GetCurrent(ctx context.Context, p authz.Principal) (User, error) {
	return s.repo.Get(ctx, p.ID)
}

// UpdateSelf applies profile self-service changes.
func (s *Service) UpdateSelf(ctx context.Context, p authz.Principal, in SelfUpdateInput) (User, error) {
	target, err := s.repo.Get(ctx, p.ID)
	if err != nil {
		return User{}, err
	}
	decision, err := s.gate.Authorize(p, authz.ActionUpdate, authz.ResourceUser, target.Descriptor())
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, shared.Denied(decision)
	}

	if in.Email != nil {
		if err := s.checkDuplicateEmail(ctx, *in.Email, target.ID); err != nil {
			return User{}, err
		}
		target.Email = shared.NormalizeEmail(*in.Email)
	}
	if in.Name != nil {
		target.Name = *in.Name
	}
	updated, err := s.repo.Update(ctx, target)
	if err != nil {
		return User{}, err
	}
	if in.Password != nil {
		if err := s.setPassword(ctx, target.ID, *in.Password); err != nil {
			return User{}, err
		}
	}
	return updated, nil
}

// Get returns a single account after an authorization check against the
// target's descriptor.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (User, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	decision, err := s.gate.Authorize(p, authz.ActionRead, authz.ResourceUser, target.Descriptor())
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, shared.Denied(decision)
	}
	return target, nil
}

// List returns accounts within the caller's scope.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]User, shared.Pagination, error) {
	if q.SortBy != "" && !ValidSort(q.SortBy) {
		return nil, shared.Pagination{}, shared.Invalid("invalid sort field")
	}
	decision, err := s.gate.ScopeList(p, authz.ResourceUser)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if !decision.Allowed {
		return nil, shared.Pagination{}, shared.Denied(decision)
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	list, total, err := s.repo.List(ctx, q, decision.Filter, p)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(q.Page, q.Limit, total), nil
}

// Create provisions a new account.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (User, error) {
	roles := in.Roles
	if len(roles) == 0 {
		roles = []authz.Role{authz.RoleUser}
	}
	companyID := in.CompanyID
	if companyID == 0 && !p.IsRoot() {
		companyID = p.CompanyID
	}

	desc := &authz.Descriptor{CompanyID: companyID, Roles: roles}
	decision, err := s.gate.Authorize(p, authz.ActionCreate, authz.ResourceUser, desc)
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, shared.Denied(decision)
	}

	if err := s.checkDuplicateEmail(ctx, in.Email, 0); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	created, err := s.repo.Create(ctx, User{
		Email:      shared.NormalizeEmail(in.Email),
		Name:       in.Name,
		Roles:      roles,
		Active:     active,
		CompanyID:  companyID,
		Department: in.Department,
		Approved:   companyID != 0,
	}, string(hash))
	if err != nil {
		return User{}, err
	}
	s.record(ctx, p, "user.create", created.ID)
	return created, nil
}

// Update applies administrative changes to an account.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (User, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	decision, err := s.gate.Authorize(p, authz.ActionUpdate, authz.ResourceUser, target.Descriptor())
	if err != nil {
		return User{}, err
	}
	if !decision.Allowed {
		return User{}, shared.Denied(decision)
	}
	// Granting Admin or Root stays a Root-only operation even when the
	// target itself is a plain user.
	if len(in.Roles) > 0 && escalates(in.Roles) && !p.IsRoot() {
		return User{}, shared.Denied(authz.Decision{Reason: authz.ReasonPrivilegedTarget})
	}

	if in.Email != nil {
		if err := s.checkDuplicateEmail(ctx, *in.Email, target.ID); err != nil {
			return User{}, err
		}
		target.Email = shared.NormalizeEmail(*in.Email)
	}
	if in.Name != nil {
		target.Name = *in.Name
	}
	if len(in.Roles) > 0 {
		target.Roles = in.Roles
	}
	if in.Active != nil {
		target.Active = *in.Active
		if !target.Active {
			target.IsOnline = false
		}
	}
	if in.CompanyID != nil {
		target.CompanyID = *in.CompanyID
	}
	if in.Department != nil {
		target.Department = *in.Department
	}

	updated, err := s.repo.Update(ctx, target)
	if err != nil {
		return User{}, err
	}
	if in.Password != nil {
		if err := s.setPassword(ctx, target.ID, *in.Password); err != nil {
			return User{}, err
		}
	}
	s.record(ctx, p, "user.update", updated.ID)
	return updated, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	decision, err := s.gate.Authorize(p, authz.ActionDelete, authz.ResourceUser, target.Descriptor())
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return shared.Denied(decision)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, "user.delete", id)
	return nil
}

func (s *Service) checkDuplicateEmail(ctx context.Context, email string, selfID int64) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: email already in use", shared.ErrDuplicate)
	}
	return nil
}

func (s *Service) setPassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func (s *Service) record(ctx context.Context, p authz.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}

func escalates(roles []authz.Role) bool {
	for _, r := range roles {
		if r == authz.RoleAdmin || r == authz.RoleRoot {
			return true
		}
	}
	return false
}
