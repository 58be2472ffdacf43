package progress

import (
	"context"
	"errors"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/challenge"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// RepositoryPort defines data access methods for progress rows.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Progress, error)
	Find(ctx context.Context, challengeID, userID int64) (Progress, error)
	List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Progress, int, error)
	Upsert(ctx context.Context, p Progress) (Progress, error)
	Delete(ctx context.Context, id int64) error
}

// CompanyLookup resolves a user's company for descriptor building.
type CompanyLookup interface {
	CompanyOf(ctx context.Context, userID int64) (int64, error)
}

// ChallengeLookup resolves the challenge a progress row belongs to.
type ChallengeLookup interface {
	Get(ctx context.Context, id int64) (challenge.Challenge, error)
}

// Service handles challenge progress business logic.
type Service struct {
	repo       RepositoryPort
	companies  CompanyLookup
	challenges ChallengeLookup
	gate       *authz.Gate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, companies CompanyLookup, challenges ChallengeLookup, gate *authz.Gate) *Service {
	return &Service{repo: repo, companies: companies, challenges: challenges, gate: gate}
}

// Upsert reports the caller's progress toward a challenge. The row is always
// owned by the principal; reporting for somebody else is not a thing.
func (s *Service) Upsert(ctx context.Context, p authz.Principal, in UpsertInput) (Progress, error) {
	decision, err := s.gate.Authorize(p, authz.ActionCreate, authz.ResourceProgress, nil)
	if err != nil {
		return Progress{}, err
	}
	if !decision.Allowed {
		return Progress{}, shared.Denied(decision)
	}

	// The caller must be able to see the challenge they report against.
	c, err := s.challenges.Get(ctx, in.ChallengeID)
	if err != nil {
		return Progress{}, err
	}
	decision, err = s.gate.Authorize(p, authz.ActionRead, authz.ResourceChallenge, c.Descriptor())
	if err != nil {
		return Progress{}, err
	}
	if !decision.Allowed {
		return Progress{}, shared.Denied(decision)
	}

	return s.repo.Upsert(ctx, Progress{ChallengeID: in.ChallengeID, UserID: p.ID, Value: in.Value})
}

// Get returns a single progress row after a scope check.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (Progress, error) {
	return s.load(ctx, p, id, authz.ActionRead)
}

// List returns progress rows within the caller's scope, ordered by value.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Progress, shared.Pagination, error) {
	decision, err := s.gate.ScopeList(p, authz.ResourceProgress)
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

// Delete removes a progress row.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.load(ctx, p, id, authz.ActionDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) load(ctx context.Context, p authz.Principal, id int64, action authz.Action) (Progress, error) {
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return Progress{}, err
	}
	companyID, err := s.companies.CompanyOf(ctx, row.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return Progress{}, err
	}
	decision, err := s.gate.Authorize(p, action, authz.ResourceProgress, row.Descriptor(companyID))
	if err != nil {
		return Progress{}, err
	}
	if !decision.Allowed {
		return Progress{}, shared.Denied(decision)
	}
	return row, nil
}
