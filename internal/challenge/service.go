package challenge

import (
	"context"
	"strconv"
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// RepositoryPort defines data access methods for challenges.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Challenge, error)
	List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Challenge, int, error)
	Create(ctx context.Context, c Challenge) (Challenge, error)
	Update(ctx context.Context, c Challenge) (Challenge, error)
	Delete(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, challengeID, userID int64) (Participant, error)
	Participants(ctx context.Context, challengeID int64) ([]Participant, error)
	Leaderboard(ctx context.Context, challengeID int64, limit int) ([]LeaderboardEntry, error)
	RefreshStatuses(ctx context.Context, now time.Time) (int64, error)
}

// Auditor records administrative mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const defaultLeaderboardSize = 20

// Service handles challenge business logic.
type Service struct {
	repo  RepositoryPort
	gate  *authz.Gate
	cache *LeaderboardCache
	audit Auditor
	now   func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, gate *authz.Gate, cache *LeaderboardCache, audit Auditor) *Service {
	return &Service{repo: repo, gate: gate, cache: cache, audit: audit, now: time.Now}
}

// Create launches a challenge in the caller's company. Unrestricted callers
// may target any company via in.CompanyID.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (Challenge, error) {
	decision, err := s.gate.Authorize(p, authz.ActionCreate, authz.ResourceChallenge, nil)
	if err != nil {
		return Challenge{}, err
	}
	if !decision.Allowed {
		return Challenge{}, shared.Denied(decision)
	}
	if !ValidType(in.Type) {
		return Challenge{}, shared.Invalid("unknown challenge type")
	}
	if !ValidMode(in.Mode) {
		return Challenge{}, shared.Invalid("unknown challenge mode")
	}
	if !in.EndDate.After(in.StartDate) {
		return Challenge{}, shared.Invalid("endDate must be after startDate")
	}

	companyID := p.CompanyID
	if p.IsRoot() && in.CompanyID != 0 {
		companyID = in.CompanyID
	}
	if companyID == 0 {
		return Challenge{}, shared.Invalid("challenge requires a company")
	}

	c := Challenge{
		CompanyID:   companyID,
		CreatedBy:   p.ID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Mode:        in.Mode,
		Goal:        in.Goal,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
	c.Status = c.StatusFor(s.now())

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Challenge{}, err
	}
	s.record(ctx, p, "challenge.create", created.ID)
	return created, nil
}

// Get returns a single challenge after a scope check.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (Challenge, error) {
	return s.load(ctx, p, id, authz.ActionRead)
}

// List returns challenges within the caller's scope.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Challenge, shared.Pagination, error) {
	decision, err := s.gate.ScopeList(p, authz.ResourceChallenge)
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

// Update edits a challenge. Only the creating admin, or Root, passes the
// gate.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (Challenge, error) {
	c, err := s.load(ctx, p, id, authz.ActionUpdate)
	if err != nil {
		return Challenge{}, err
	}
	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Goal != nil {
		c.Goal = *in.Goal
	}
	if in.StartDate != nil {
		c.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = *in.EndDate
	}
	if !c.EndDate.After(c.StartDate) {
		return Challenge{}, shared.Invalid("endDate must be after startDate")
	}
	c.Status = c.StatusFor(s.now())

	updated, err := s.repo.Update(ctx, c)
	if err != nil {
		return Challenge{}, err
	}
	s.record(ctx, p, "challenge.update", updated.ID)
	return updated, nil
}

// Delete removes a challenge and its participant roster.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.load(ctx, p, id, authz.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, "challenge.delete", id)
	return nil
}

// Join enrols the caller into a challenge. Visibility doubles as the join
// permission: anyone who can read the challenge may participate.
func (s *Service) Join(ctx context.Context, p authz.Principal, id int64) (Participant, error) {
	c, err := s.load(ctx, p, id, authz.ActionRead)
	if err != nil {
		return Participant{}, err
	}
	if c.StatusFor(s.now()) == StatusCompleted {
		return Participant{}, shared.Invalid("challenge already completed")
	}
	return s.repo.AddParticipant(ctx, c.ID, p.ID)
}

// Participants lists everyone enrolled in a challenge.
func (s *Service) Participants(ctx context.Context, p authz.Principal, id int64) ([]Participant, error) {
	if _, err := s.load(ctx, p, id, authz.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.Participants(ctx, id)
}

// Leaderboard returns the ranked standings of a challenge, cached for a short
// TTL.
func (s *Service) Leaderboard(ctx context.Context, p authz.Principal, id int64, limit int) ([]LeaderboardEntry, error) {
	if _, err := s.load(ctx, p, id, authz.ActionRead); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = defaultLeaderboardSize
	}
	return s.cache.Fetch(ctx, id, limit, func(ctx context.Context) ([]LeaderboardEntry, error) {
		return s.repo.Leaderboard(ctx, id, limit)
	})
}

// RefreshStatuses rolls challenges through their lifecycle from the date
// windows. Invoked by the scheduler, not by request handlers.
func (s *Service) RefreshStatuses(ctx context.Context) (int64, error) {
	return s.repo.RefreshStatuses(ctx, s.now())
}

func (s *Service) load(ctx context.Context, p authz.Principal, id int64, action authz.Action) (Challenge, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Challenge{}, err
	}
	decision, err := s.gate.Authorize(p, action, authz.ResourceChallenge, c.Descriptor())
	if err != nil {
		return Challenge{}, err
	}
	if !decision.Allowed {
		return Challenge{}, shared.Denied(decision)
	}
	return c, nil
}

func (s *Service) record(ctx context.Context, p authz.Principal, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID,
		Action:   action,
		Entity:   "challenge",
		EntityID: strconv.FormatInt(entityID, 10),
	})
}
