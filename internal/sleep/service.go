package sleep

import (
	"context"
	"errors"
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// RepositoryPort defines data access methods for sleep records.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, q ListQuery, scope authz.Filter) ([]Record, int, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Delete(ctx context.Context, id int64) error
}

// CompanyLookup resolves a user's company for descriptor building.
type CompanyLookup interface {
	CompanyOf(ctx context.Context, userID int64) (int64, error)
}

// Service handles sleep tracking business logic.
type Service struct {
	repo      RepositoryPort
	companies CompanyLookup
	gate      *authz.Gate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, companies CompanyLookup, gate *authz.Gate) *Service {
	return &Service{repo: repo, companies: companies, gate: gate}
}

// Create records a night of sleep for the caller. Duration falls back to the
// start/end window when the client omits it.
func (s *Service) Create(ctx context.Context, p authz.Principal, in CreateInput) (Record, error) {
	decision, err := s.gate.Authorize(p, authz.ActionCreate, authz.ResourceSleep, nil)
	if err != nil {
		return Record{}, err
	}
	if !decision.Allowed {
		return Record{}, shared.Denied(decision)
	}
	if !in.EndTime.After(in.StartTime) {
		return Record{}, shared.Invalid("endTime must be after startTime")
	}
	source := in.Source
	if source == "" {
		source = SourceManual
	}
	if !ValidSource(source) {
		return Record{}, shared.Invalid("unknown source")
	}

	duration := in.Duration
	if duration == 0 {
		duration = int(in.EndTime.Sub(in.StartTime) / time.Minute)
	}
	return s.repo.Create(ctx, Record{
		UserID:    p.ID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Duration:  duration,
		Light:     in.Light,
		Deep:      in.Deep,
		Rem:       in.Rem,
		Source:    source,
	})
}

// Get returns a single record after a scope check.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (Record, error) {
	return s.load(ctx, p, id, authz.ActionRead)
}

// List returns records within the caller's scope.
func (s *Service) List(ctx context.Context, p authz.Principal, q ListQuery) ([]Record, shared.Pagination, error) {
	decision, err := s.gate.ScopeList(p, authz.ResourceSleep)
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

// Update edits a record, re-deriving duration when the window moves without
// an explicit duration.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, in UpdateInput) (Record, error) {
	rec, err := s.load(ctx, p, id, authz.ActionUpdate)
	if err != nil {
		return Record{}, err
	}
	windowMoved := false
	if in.StartTime != nil {
		rec.StartTime = *in.StartTime
		windowMoved = true
	}
	if in.EndTime != nil {
		rec.EndTime = *in.EndTime
		windowMoved = true
	}
	if !rec.EndTime.After(rec.StartTime) {
		return Record{}, shared.Invalid("endTime must be after startTime")
	}
	switch {
	case in.Duration != nil:
		rec.Duration = *in.Duration
	case windowMoved:
		rec.Duration = int(rec.EndTime.Sub(rec.StartTime) / time.Minute)
	}
	if in.Light != nil {
		rec.Light = *in.Light
	}
	if in.Deep != nil {
		rec.Deep = *in.Deep
	}
	if in.Rem != nil {
		rec.Rem = *in.Rem
	}
	return s.repo.Update(ctx, rec)
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if _, err := s.load(ctx, p, id, authz.ActionDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) load(ctx context.Context, p authz.Principal, id int64, action authz.Action) (Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	companyID, err := s.companies.CompanyOf(ctx, rec.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return Record{}, err
	}
	decision, err := s.gate.Authorize(p, action, authz.ResourceSleep, rec.Descriptor(companyID))
	if err != nil {
		return Record{}, err
	}
	if !decision.Allowed {
		return Record{}, shared.Denied(decision)
	}
	return rec, nil
}
