package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// StatusRefresher rolls challenge statuses forward from their date windows.
type StatusRefresher interface {
	RefreshStatuses(ctx context.Context) (int64, error)
}

// ChallengeStatusRefreshJob advances challenges between upcoming, ongoing and
// completed as their windows open and close.
type ChallengeStatusRefreshJob struct {
	Service StatusRefresher
	Logger  *slog.Logger
}

// NewChallengeStatusRefreshJob initialises the refresh handler.
func NewChallengeStatusRefreshJob(service StatusRefresher, logger *slog.Logger) *ChallengeStatusRefreshJob {
	return &ChallengeStatusRefreshJob{Service: service, Logger: logger}
}

// Handle executes the refresh.
func (j *ChallengeStatusRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("status refresh: handler not configured")
	}
	start := time.Now()
	changed, err := j.Service.RefreshStatuses(ctx)
	if err != nil {
		j.logger().Error("challenge status refresh failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("challenge status refresh completed",
		slog.Int64("changed", changed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *ChallengeStatusRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
