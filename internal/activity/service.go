package activity

import (
	"context"
	"errors"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// RepositoryPort defines data access methods for activities.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Activity, error)
	List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Activity, int, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	Delete(ctx context.Context, id int64) error
}

// CompanyLookup resolves a user's company for descriptor building.
type CompanyLookup interface {
	CompanyOf(ctx context.Context, userID int64) (int64, error)
}

// IdempotencyGuard deduplicates retried sync writes.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "activity"

// Service handles activity business logic.
type Service struct {
	repo      RepositoryPort
	companies CompanyLookup
	gate      *authz.Gate
	idem      IdempotencyGuard
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, companies CompanyLookup, gate *authz.Gate, idem IdempotencyGuard) *Service {
	return &Service{repo: repo, companies: companies, gate: gate, idem: idem}
}

// Create records an activity for the caller. Creating for somebody else is
// never allowed; ownership is fixed to the principal. idemKey deduplicates
// sync retries and may be empty for manual entries.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput, idemKey string) (Activity, error) {
	decision, err := s.gate.Authorize(p, authz.ActionCreate, authz.ResourceActivity, nil)
	if err != nil {
		return Activity{}, err
	}
	if !decision.Allowed {
		return Activity{}, shared.Denied(decision)
	}

	source := in.Source
	if source == "" {
		source = SourceManual
	}
	if !ValidSource(source) {
		return Activity{}, shared.Invalid("unknown activity source")
	}

	if idemKey != "" {
		if err := s.idem.CheckAndInsert(ctx, idemKey, idempotencyModule); err != nil {
			return Activity{}, err
		}
	}
	created, err := s.repo.Create(ctx, Activity{
		UserID:   p.ID,
		Type:     in.Type,
		Steps:    in.Steps,
		Calories: in.Calories,
		Distance: in.Distance,
		Duration: in.Duration,
		Source:   source,
		Date:     in.Date,
	})
	if err != nil {
		if idemKey != "" {
			_ = s.idem.Delete(ctx, idemKey)
		}
		return Activity{}, err
	}
	return created, nil
}

// Get returns a single activity after a scope check against the owner's
// company.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (Activity, error) {
	a, err := s.load(ctx, p, id, authz.ActionRead)
	return a, err
}

// List returns activities within the caller's scope.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Activity, shared.Pagination, error) {
	decision, err := s.gate.ScopeList(p, authz.ResourceActivity)
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
	list, total, err := s.repo.List(ctx, q, decision.Filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(q.Page, q.Limit, total), nil
}

// Update edits an activity.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (Activity, error) {
	a, err := s.load(ctx, p, id, authz.ActionUpdate)
	if err != nil {
		return Activity{}, err
	}
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.Steps != nil {
		a.Steps = *in.Steps
	}
	if in.Calories != nil {
		a.Calories = *in.Calories
	}
	if in.Distance != nil {
		a.Distance = *in.Distance
	}
	if in.Duration != nil {
		a.Duration = *in.Duration
	}
	if in.Date != nil {
		a.Date = *in.Date
	}
	return s.repo.Update(ctx, a)
}

// Delete removes an activity.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.load(ctx, p, id, authz.ActionDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// load fetches the record and authorizes the action against a descriptor
// with the owner's company resolved fresh.
func (s *Service) load(ctx context.Context, p authz.Principal, id int64, action authz.Action) (Activity, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	companyID, err := s.companies.CompanyOf(ctx, a.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return Activity{}, err
	}
	decision, err := s.gate.Authorize(p, action, authz.ResourceActivity, a.Descriptor(companyID))
	if err != nil {
		return Activity{}, err
	}
	if !decision.Allowed {
		return Activity{}, shared.Denied(decision)
	}
	return a, nil
}
