package batch

import (
	"context"
	"fmt"
	"library-engine/internal/domain/circulation"
	"log/slog"
	"time"
)

type ReservationExpirer interface {
	ExpireReservations(ctx context.Context) (circulation.ExpirySweepResult, error)
}

// ReservationExpiryJob releases lapsed holds and hands freed copies to the
// next borrower in each queue.
type ReservationExpiryJob struct {
	expirer ReservationExpirer
	logger  *slog.Logger
}

func NewReservationExpiryJob(expirer ReservationExpirer, logger *slog.Logger) *ReservationExpiryJob {
	if expirer == nil || logger == nil {
		panic("ReservationExpiryJob dependencies cannot be nil")
	}
	return &ReservationExpiryJob{expirer: expirer, logger: logger.With("job", "ReservationExpiry")}
}

func (j *ReservationExpiryJob) Name() string { return "ReservationExpiry" }

func (j *ReservationExpiryJob) Run(ctx context.Context) error {
	startTime := time.Now()
	res, err := j.expirer.ExpireReservations(ctx)
	logCtx := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("expired", res.Expired),
		slog.Int("promoted", res.Promoted),
	)
	if err != nil {
		logCtx.ErrorContext(ctx, "Reservation expiry job failed.", slog.Any("error", err))
		return fmt.Errorf("reservation expiry failed: %w", err)
	}
	logCtx.InfoContext(ctx, "Reservation expiry job finished.")
	return nil
}
