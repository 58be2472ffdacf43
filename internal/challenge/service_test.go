package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

type memoryRepo struct {
	nextID           int64
	challenges       map[int64]Challenge
	participants     map[int64][]Participant
	leaderboards     map[int64][]LeaderboardEntry
	leaderboardsHits int
}

func newMemoryRepo(seed ...Challenge) *memoryRepo {
	r := &memoryRepo{
		nextID:       1,
		challenges:   map[int64]Challenge{},
		participants: map[int64][]Participant{},
		leaderboards: map[int64][]LeaderboardEntry{},
	}
	for _, c := range seed {
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.challenges[c.ID] = c
	}
	return r
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return Challenge{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) List(_ context.Context, q ListQuery, scope authz.Filter) ([]Challenge, int, error) {
	var out []Challenge
	for _, c := range r.challenges {
		switch scope.Kind {
		case authz.FilterByOwner:
			if c.CreatedBy != scope.OwnerID {
				continue
			}
		case authz.FilterByCompanyMembers:
			if c.CompanyID != scope.CompanyID {
				continue
			}
		}
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if q.Type != "" && c.Type != q.Type {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(_ context.Context, c Challenge) (Challenge, error) {
	c.ID = r.nextID
	r.nextID++
	r.challenges[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Update(_ context.Context, c Challenge) (Challenge, error) {
	if _, ok := r.challenges[c.ID]; !ok {
		return Challenge{}, shared.ErrNotFound
	}
	r.challenges[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.challenges[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.challenges, id)
	delete(r.participants, id)
	return nil
}

func (r *memoryRepo) AddParticipant(_ context.Context, challengeID, userID int64) (Participant, error) {
	for _, p := range r.participants[challengeID] {
		if p.UserID == userID {
			return Participant{}, shared.ErrDuplicate
		}
	}
	p := Participant{ChallengeID: challengeID, UserID: userID, JoinedAt: time.Now()}
	r.participants[challengeID] = append(r.participants[challengeID], p)
	return p, nil
}

func (r *memoryRepo) Participants(_ context.Context, challengeID int64) ([]Participant, error) {
	return r.participants[challengeID], nil
}

func (r *memoryRepo) Leaderboard(_ context.Context, challengeID int64, limit int) ([]LeaderboardEntry, error) {
	r.leaderboardsHits++
	entries := r.leaderboards[challengeID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *memoryRepo) RefreshStatuses(_ context.Context, now time.Time) (int64, error) {
	var changed int64
	for id, c := range r.challenges {
		next := c.StatusFor(now)
		if next != c.Status {
			c.Status = next
			r.challenges[id] = c
			changed++
		}
	}
	return changed, nil
}

var (
	rootP  = authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleRoot}}
	adminP = authz.Principal{ID: 2, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 10}
	userP  = authz.Principal{ID: 3, Roles: []authz.Role{authz.RoleUser}, CompanyID: 10}
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func seedChallenges() []Challenge {
	return []Challenge{
		{ID: 1, CompanyID: 10, CreatedBy: 2, Title: "August Steps", Type: TypeSteps, Mode: ModeIndividual, Status: StatusOngoing, Goal: 200000, StartDate: day("2026-08-01"), EndDate: day("2026-08-31")},
		{ID: 2, CompanyID: 20, CreatedBy: 5, Title: "Globex Ride", Type: TypeCyclingDistance, Mode: ModeTeam, Status: StatusOngoing, Goal: 500, StartDate: day("2026-08-01"), EndDate: day("2026-08-31")},
		{ID: 3, CompanyID: 10, CreatedBy: 6, Title: "Spring Run", Type: TypeDistance, Mode: ModeIndividual, Status: StatusOngoing, Goal: 100, StartDate: day("2026-03-01"), EndDate: day("2026-03-31")},
	}
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo(seedChallenges()...)
	cache := NewLeaderboardCache(client, time.Minute)
	svc := NewService(repo, authz.NewGate(), cache, nil)
	svc.now = func() time.Time { return day("2026-08-15") }
	return svc, repo
}

func TestCreateScopedToOwnCompany(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, adminP, CreateInput{
		Title: "September Steps", Type: TypeSteps, Mode: ModeIndividual,
		Goal: 150000, StartDate: day("2026-09-01"), EndDate: day("2026-09-30"),
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), created.CompanyID)
	require.Equal(t, adminP.ID, created.CreatedBy)
	require.Equal(t, StatusUpcoming, created.Status)
}

func TestCreateDeniedForPlainUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), userP, CreateInput{
		Title: "Rogue", Type: TypeSteps, Mode: ModeIndividual,
		Goal: 1, StartDate: day("2026-09-01"), EndDate: day("2026-09-30"),
	})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonPolicyDenied, perm.Reason)
}

func TestCreateRootTargetsAnyCompany(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), rootP, CreateInput{
		Title: "Global Steps", Type: TypeSteps, Mode: ModeIndividual,
		Goal: 1000, StartDate: day("2026-09-01"), EndDate: day("2026-09-30"),
		CompanyID: 20,
	})
	require.NoError(t, err)
	require.Equal(t, int64(20), created.CompanyID)
}

func TestCreateValidatesEnums(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, adminP, CreateInput{
		Title: "Bad", Type: "swimming", Mode: ModeIndividual,
		Goal: 1, StartDate: day("2026-09-01"), EndDate: day("2026-09-30"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, adminP, CreateInput{
		Title: "Bad", Type: TypeSteps, Mode: "squad",
		Goal: 1, StartDate: day("2026-09-01"), EndDate: day("2026-09-30"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateOwnerOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	goal := 250000.0
	updated, err := svc.Update(ctx, adminP, 1, UpdateInput{Goal: &goal})
	require.NoError(t, err)
	require.Equal(t, 250000.0, updated.Goal)

	// Challenge 3 lives in the admin's company but was created by another
	// admin; mutations stay with the creator below Root.
	_, err = svc.Update(ctx, adminP, 3, UpdateInput{Goal: &goal})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonNotOwner, perm.Reason)

	updated, err = svc.Update(ctx, rootP, 3, UpdateInput{Goal: &goal})
	require.NoError(t, err)
	require.Equal(t, 250000.0, updated.Goal)
}

func TestGetAndListScoped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, userP, 2)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)

	list, pagination, err := svc.List(ctx, userP, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, pagination.Total)

	list, _, err = svc.List(ctx, rootP, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestJoin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	p, err := svc.Join(ctx, userP, 1)
	require.NoError(t, err)
	require.Equal(t, userP.ID, p.UserID)
	require.Len(t, repo.participants[1], 1)

	_, err = svc.Join(ctx, userP, 1)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	_, err = svc.Join(ctx, userP, 2)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)
}

func TestJoinCompletedRejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Join(context.Background(), userP, 3)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLeaderboardCached(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	repo.leaderboards[1] = []LeaderboardEntry{
		{Rank: 1, UserID: 3, Name: "Acme Walker", Value: 120000},
		{Rank: 2, UserID: 2, Name: "Acme Admin", Value: 90000},
	}

	first, err := svc.Leaderboard(ctx, userP, 1, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, repo.leaderboardsHits)

	second, err := svc.Leaderboard(ctx, userP, 1, 0)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.leaderboardsHits, "second read must come from cache")
}

func TestRefreshStatuses(t *testing.T) {
	svc, repo := newTestService(t)

	changed, err := svc.RefreshStatuses(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)
	require.Equal(t, StatusCompleted, repo.challenges[3].Status)
	require.Equal(t, StatusOngoing, repo.challenges[1].Status)
}
