// Package batch holds the scheduled circulation sweeps.
package batch

import (
	"context"
	"errors"
	"fmt"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultWorkers = 4

type PastDueLister interface {
	ListBorrowersWithPastDue(ctx context.Context, now time.Time) ([]int64, error)
}

type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, borrowerID int64) (circulation.OverdueSweepResult, error)
}

// OverdueSweepJob marks past-due loans overdue and brings their fines up to
// date, one borrower per transaction.
type OverdueSweepJob struct {
	loans   PastDueLister
	sweeper OverdueSweeper
	workers int
	clock   func() time.Time
	logger  *slog.Logger
}

func NewOverdueSweepJob(loans PastDueLister, sweeper OverdueSweeper, logger *slog.Logger) *OverdueSweepJob {
	if loans == nil || sweeper == nil || logger == nil {
		panic("OverdueSweepJob dependencies cannot be nil")
	}
	return &OverdueSweepJob{
		loans:   loans,
		sweeper: sweeper,
		workers: defaultWorkers,
		clock:   time.Now,
		logger:  logger.With("job", "OverdueSweep"),
	}
}

func (j *OverdueSweepJob) Name() string { return "OverdueSweep" }

func (j *OverdueSweepJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue sweep job.")

	borrowerIDs, err := j.loans.ListBorrowersWithPastDue(ctx, j.clock().UTC())
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list borrowers with past-due loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list past-due borrowers: %w", err)
	}
	if len(borrowerIDs) == 0 {
		j.logger.InfoContext(ctx, "No past-due loans found.")
		return nil
	}

	var (
		wg                                            sync.WaitGroup
		processed, markedOverdue, finesChanged, fails atomic.Int32
	)
	ids := make(chan int64)
	for w := 0; w < j.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for borrowerID := range ids {
				logCtx := j.logger.With(slog.Int64("borrowerID", borrowerID))
				res, err := j.sweeper.SweepOverdue(ctx, borrowerID)
				if err != nil {
					if errors.Is(err, apperrors.ErrNotFound) {
						logCtx.WarnContext(ctx, "Borrower disappeared during overdue sweep", slog.Any("error", err))
						continue
					}
					logCtx.ErrorContext(ctx, "Overdue sweep failed for borrower", slog.Any("error", err))
					fails.Add(1)
					continue
				}
				processed.Add(1)
				markedOverdue.Add(int32(res.MarkedOverdue))
				finesChanged.Add(int32(res.FinesChanged))
			}
		}()
	}

feed:
	for _, id := range borrowerIDs {
		select {
		case ids <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(ids)
	wg.Wait()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("borrowers", len(borrowerIDs)),
		slog.Int("borrowers_processed", int(processed.Load())),
		slog.Int("loans_marked_overdue", int(markedOverdue.Load())),
		slog.Int("fines_changed", int(finesChanged.Load())),
		slog.Int("errors_encountered", int(fails.Load())),
	)
	if n := fails.Load(); n > 0 {
		summaryLog.WarnContext(ctx, "Overdue sweep job finished with errors.")
		return fmt.Errorf("job completed with %d errors", n)
	}
	if err := ctx.Err(); err != nil {
		summaryLog.WarnContext(ctx, "Overdue sweep job interrupted.")
		return err
	}
	summaryLog.InfoContext(ctx, "Overdue sweep job finished successfully.")
	return nil
}
