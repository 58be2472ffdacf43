package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/challenge"
	"github.com/lesnich/TeamMotion/internal/shared"
)

type memoryRepo struct {
	nextID int64
	rows   map[int64]Progress
}

func newMemoryRepo(seed ...Progress) *memoryRepo {
	r := &memoryRepo{nextID: 1, rows: map[int64]Progress{}}
	for _, p := range seed {
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
		r.rows[p.ID] = p
	}
	return r
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Progress, error) {
	p, ok := r.rows[id]
	if !ok {
		return Progress{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Find(_ context.Context, challengeID, userID int64) (Progress, error) {
	for _, p := range r.rows {
		if p.ChallengeID == challengeID && p.UserID == userID {
			return p, nil
		}
	}
	return Progress{}, shared.ErrNotFound
}

func (r *memoryRepo) List(_ context.Context, q ListQuery, scope authz.Filter) ([]Progress, int, error) {
	members := map[int64]int64{2: 10, 3: 10, 4: 20}
	var out []Progress
	for _, p := range r.rows {
		switch scope.Kind {
		case authz.FilterByOwner:
			if p.UserID != scope.OwnerID {
				continue
			}
		case authz.FilterByCompanyMembers:
			if members[p.UserID] != scope.CompanyID {
				continue
			}
		}
		if q.ChallengeID != 0 && p.ChallengeID != q.ChallengeID {
			continue
		}
		if q.UserID != 0 && p.UserID != q.UserID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Upsert(_ context.Context, p Progress) (Progress, error) {
	if existing, err := r.Find(context.Background(), p.ChallengeID, p.UserID); err == nil {
		existing.Value = p.Value
		r.rows[existing.ID] = existing
		return existing, nil
	}
	p.ID = r.nextID
	r.nextID++
	r.rows[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

type staticCompanies map[int64]int64

func (c staticCompanies) CompanyOf(_ context.Context, userID int64) (int64, error) {
	return c[userID], nil
}

type staticChallenges map[int64]challenge.Challenge

func (c staticChallenges) Get(_ context.Context, id int64) (challenge.Challenge, error) {
	ch, ok := c[id]
	if !ok {
		return challenge.Challenge{}, shared.ErrNotFound
	}
	return ch, nil
}

var (
	adminP = authz.Principal{ID: 2, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 10}
	userP  = authz.Principal{ID: 3, Roles: []authz.Role{authz.RoleUser}, CompanyID: 10}
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo(
		Progress{ID: 1, ChallengeID: 1, UserID: 3, Value: 50000},
		Progress{ID: 2, ChallengeID: 1, UserID: 2, Value: 30000},
		Progress{ID: 3, ChallengeID: 2, UserID: 4, Value: 120},
	)
	companies := staticCompanies{2: 10, 3: 10, 4: 20}
	challenges := staticChallenges{
		1: {ID: 1, CompanyID: 10, CreatedBy: 2, Title: "August Steps", StartDate: day("2026-08-01"), EndDate: day("2026-08-31")},
		2: {ID: 2, CompanyID: 20, CreatedBy: 5, Title: "Globex Ride", StartDate: day("2026-08-01"), EndDate: day("2026-08-31")},
	}
	return NewService(repo, companies, challenges, authz.NewGate()), repo
}

func TestUpsertOwnedByCaller(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	row, err := svc.Upsert(ctx, userP, UpsertInput{ChallengeID: 1, Value: 60000})
	require.NoError(t, err)
	require.Equal(t, userP.ID, row.UserID)
	require.Equal(t, 60000.0, row.Value)
	require.Equal(t, int64(1), row.ID, "existing row updated in place")

	before := len(repo.rows)
	row, err = svc.Upsert(ctx, adminP, UpsertInput{ChallengeID: 1, Value: 40000})
	require.NoError(t, err)
	require.Equal(t, 40000.0, row.Value)
	require.Len(t, repo.rows, before)
}

func TestUpsertRequiresVisibleChallenge(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Upsert(context.Background(), userP, UpsertInput{ChallengeID: 2, Value: 10})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)

	_, err = svc.Upsert(context.Background(), userP, UpsertInput{ChallengeID: 99, Value: 10})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetScoped(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	row, err := svc.Get(ctx, userP, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), row.UserID)

	_, err = svc.Get(ctx, userP, 3)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)
}

func TestListScoped(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	list, pagination, err := svc.List(ctx, userP, ListQuery{ChallengeID: 1})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, pagination.Total)

	root := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleRoot}}
	list, _, err = svc.List(ctx, root, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestDeleteOwnOnlyForUsers(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	err := svc.Delete(ctx, userP, 2)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonNotOwner, perm.Reason)

	require.NoError(t, svc.Delete(ctx, adminP, 1))
	_, err = repo.Get(ctx, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
