package company

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
	"github.com/lesnich/TeamMotion/internal/users"
)

// RepositoryPort defines data access methods for companies.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Company, error)
	List(ctx context.Context, page, limit int) ([]Company, int, error)
	Create(ctx context.Context, c Company) (Company, error)
	Update(ctx context.Context, c Company) (Company, error)
	Delete(ctx context.Context, id int64) error
}

// UserDirectory is the slice of the users repository membership management
// needs.
type UserDirectory interface {
	Get(ctx context.Context, id int64) (users.User, error)
	List(ctx context.Context, q users.ListQuery, scope authz.Filter, viewer authz.Principal) ([]users.User, int, error)
	AssignCompany(ctx context.Context, userID, companyID int64, department string) (users.User, error)
	Approve(ctx context.Context, userID int64) (users.User, error)
	DetachUser(ctx context.Context, userID int64) (users.User, error)
	DetachCompany(ctx context.Context, companyID int64) error
}

// Auditor records administrative mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles company management and membership flows.
type Service struct {
	repo    RepositoryPort
	members UserDirectory
	gate    *authz.Gate
	audit   Auditor
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, members UserDirectory, gate *authz.Gate, audit Auditor) *Service {
	return &Service{repo: repo, members: members, gate: gate, audit: audit}
}

// Create registers a company. The creating admin is placed into the new
// company as its first member.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (Company, error) {
	decision, err := s.gate.Authorize(p, authz.ActionCreate, authz.ResourceCompany, nil)
	if err != nil {
		return Company{}, err
	}
	if !decision.Allowed {
		return Company{}, shared.Denied(decision)
	}

	created, err := s.repo.Create(ctx, Company{
		Name:        in.Name,
		Description: in.Description,
		Departments: in.Departments,
		CreatedBy:   p.ID,
	})
	if err != nil {
		return Company{}, err
	}
	if !p.IsRoot() {
		if _, err := s.members.AssignCompany(ctx, p.ID, created.ID, ""); err != nil {
			return Company{}, err
		}
	}
	s.record(ctx, p, "company.create", created.ID)
	return created, nil
}

// Get returns a single company after a scope check.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (Company, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	decision, err := s.gate.Authorize(p, authz.ActionRead, authz.ResourceCompany, c.Descriptor())
	if err != nil {
		return Company{}, err
	}
	if !decision.Allowed {
		return Company{}, shared.Denied(decision)
	}
	return c, nil
}

// List returns all companies. Only unrestricted principals may enumerate
// companies.
func (s *Service) List(ctx context.Context, p authz.Principal, page, limit int) ([]Company, shared.Pagination, error) {
	decision, err := s.gate.ScopeList(p, authz.ResourceCompany)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if !decision.Allowed {
		return nil, shared.Pagination{}, shared.Denied(decision)
	}
	list, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, limit, total), nil
}

// Update edits a company's profile.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (Company, error) {
	c, err := s.authorizeManage(ctx, p, id)
	if err != nil {
		return Company{}, err
	}

	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Departments != nil {
		c.Departments = in.Departments
	}
	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, p, "company.update", updated.ID)
	return updated, nil
}

// Delete removes a company and detaches its members.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	decision, err := s.gate.Authorize(p, authz.ActionDelete, authz.ResourceCompany, c.Descriptor())
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return shared.Denied(decision)
	}
	if err := s.members.DetachCompany(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, "company.delete", id)
	return nil
}

// Members lists the users of a company.
func (s *Service) Members(ctx context.Context, p authz.Principal, id int64, page, limit int) ([]users.User, shared.Pagination, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	decision, err := s.gate.Authorize(p, authz.ActionRead, authz.ResourceCompany, c.Descriptor())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if !decision.Allowed {
		return nil, shared.Pagination{}, shared.Denied(decision)
	}

	scope := authz.Filter{Kind: authz.FilterByCompanyMembers, CompanyID: id}
	list, total, err := s.members.List(ctx, users.ListQuery{Page: page, Limit: limit}, scope, p)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, limit, total), nil
}

// AssignUser places a user into the company, optionally binding a
// department, and marks them approved.
func (s *Service) AssignUser(ctx context.Context, p authz.Principal, companyID int64, in AssignInput) (users.User, error) {
	c, err := s.authorizeManage(ctx, p, companyID)
	if err != nil {
		return users.User{}, err
	}
	target, err := s.authorizeMembershipChange(ctx, p, c, in.UserID)
	if err != nil {
		return users.User{}, err
	}
	if target.CompanyID != 0 && target.CompanyID != companyID {
		return users.User{}, shared.Invalid("user already belongs to another company")
	}
	if in.Department != "" && !contains(c.Departments, in.Department) {
		return users.User{}, shared.Invalid(fmt.Sprintf("unknown department %q", in.Department))
	}

	assigned, err := s.members.AssignCompany(ctx, target.ID, companyID, in.Department)
	if err != nil {
		return users.User{}, err
	}
	s.record(ctx, p, "company.assign_user", target.ID)
	return assigned, nil
}

// ApproveUser confirms a pending member.
func (s *Service) ApproveUser(ctx context.Context, p authz.Principal, companyID, userID int64) (users.User, error) {
	c, err := s.authorizeManage(ctx, p, companyID)
	if err != nil {
		return users.User{}, err
	}
	target, err := s.authorizeMembershipChange(ctx, p, c, userID)
	if err != nil {
		return users.User{}, err
	}
	if target.CompanyID != companyID {
		return users.User{}, shared.ErrNotFound
	}
	approved, err := s.members.Approve(ctx, target.ID)
	if err != nil {
		return users.User{}, err
	}
	s.record(ctx, p, "company.approve_user", target.ID)
	return approved, nil
}

// RemoveUser detaches a member from the company. Department and approval are
// cleared alongside the membership.
func (s *Service) RemoveUser(ctx context.Context, p authz.Principal, companyID, userID int64) (users.User, error) {
	c, err := s.authorizeManage(ctx, p, companyID)
	if err != nil {
		return users.User{}, err
	}
	target, err := s.authorizeMembershipChange(ctx, p, c, userID)
	if err != nil {
		return users.User{}, err
	}
	if target.CompanyID != companyID {
		return users.User{}, shared.ErrNotFound
	}
	removed, err := s.members.DetachUser(ctx, target.ID)
	if err != nil {
		return users.User{}, err
	}
	s.record(ctx, p, "company.remove_user", target.ID)
	return removed, nil
}

// authorizeManage loads a company and checks the caller may update it.
func (s *Service) authorizeManage(ctx context.Context, p authz.Principal, id int64) (Company, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	decision, err := s.gate.Authorize(p, authz.ActionUpdate, authz.ResourceCompany, c.Descriptor())
	if err != nil {
		return Company{}, err
	}
	if !decision.Allowed {
		return Company{}, shared.Denied(decision)
	}
	return c, nil
}

// authorizeMembershipChange loads the target user and runs the user-resource
// check with the company under management as the scope. The descriptor keeps
// the target's roles so privileged accounts stay protected from non-root
// callers.
func (s *Service) authorizeMembershipChange(ctx context.Context, p authz.Principal, c Company, userID int64) (users.User, error) {
	target, err := s.members.Get(ctx, userID)
	if err != nil {
		return users.User{}, err
	}
	desc := &authz.Descriptor{OwnerID: target.ID, CompanyID: c.ID, Roles: target.Roles}
	decision, err := s.gate.Authorize(p, authz.ActionUpdate, authz.ResourceUser, desc)
	if err != nil {
		return users.User{}, err
	}
	if !decision.Allowed {
		return users.User{}, shared.Denied(decision)
	}
	return target, nil
}

func (s *Service) record(ctx context.Context, p authz.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "company",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}

func contains(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}
