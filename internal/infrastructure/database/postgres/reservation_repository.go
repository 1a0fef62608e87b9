package postgres

import (
	"context"
	"fmt"
	"library-engine/internal/domain/reservation"
	"library-engine/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const reservationColumns = `r.id, r.book_id, r.borrower_id, b.title, r.reserved_at, r.expires_at,
        r.status, r.notification_sent, r.notes, r.updated_at`

const reservationFrom = `
        FROM reservations r
        JOIN books b ON b.id = r.book_id`

const queuePositionQuery = `
        SELECT q.position FROM (
            SELECT borrower_id, ROW_NUMBER() OVER (ORDER BY reserved_at, id) AS position
            FROM reservations
            WHERE book_id = $1 AND status = 'pending') q
        WHERE q.borrower_id = $2`

const countHeldQuery = `
        SELECT COUNT(*) FROM reservations
        WHERE book_id = $1 AND status = 'available' AND expires_at >= $2 AND borrower_id <> $3`

type ReservationRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ reservation.Repository = (*ReservationRepository)(nil)

func NewReservationRepository(db DBPool, logger *slog.Logger) *ReservationRepository {
	return &ReservationRepository{db: db, logger: logger.With("component", "ReservationRepository")}
}

func scanReservation(row rowScanner) (*reservation.Reservation, error) {
	var (
		res    reservation.Reservation
		status string
	)
	if err := row.Scan(
		&res.ID, &res.BookID, &res.BorrowerID, &res.BookTitle, &res.ReservedAt, &res.ExpiresAt,
		&status, &res.NotificationSent, &res.Notes, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	res.Status = reservation.Status(status)
	return &res, nil
}

func (r *ReservationRepository) collect(ctx context.Context, rows pgx.Rows, queryName string) ([]*reservation.Reservation, error) {
	defer rows.Close()

	list := make([]*reservation.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan reservation row", "query", queryName, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating reservation rows", "query", queryName, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return list, nil
}

func (r *ReservationRepository) CreateInTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation) error {
	query := `
        INSERT INTO reservations (book_id, borrower_id, reserved_at, expires_at, status, notification_sent, notes, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`
	startTime := time.Now()

	err := tx.QueryRow(ctx, query,
		res.BookID, res.BorrowerID, res.ReservedAt, res.ExpiresAt, string(res.Status), res.NotificationSent, res.Notes, res.UpdatedAt,
	).Scan(&res.ID)
	observe("CreateReservation", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert reservation", "book_id", res.BookID, "borrower_id", res.BorrowerID, "error", err)
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *ReservationRepository) GetForUpdateInTx(ctx context.Context, tx pgx.Tx, reservationID int64) (*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + `
        WHERE r.id = $1
        FOR UPDATE OF r`

	res, err := scanReservation(tx.QueryRow(ctx, query, reservationID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return res, nil
}

func (r *ReservationRepository) FindOpenInTx(ctx context.Context, tx pgx.Tx, bookID, borrowerID int64) (*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + `
        WHERE r.book_id = $1 AND r.borrower_id = $2 AND r.status IN ('pending', 'available')
        FOR UPDATE OF r`

	res, err := scanReservation(tx.QueryRow(ctx, query, bookID, borrowerID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return res, nil
}

func (r *ReservationRepository) UpdateInTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation) error {
	query := `
        UPDATE reservations
        SET expires_at = $1,
            status = $2,
            notification_sent = $3,
            notes = $4,
            updated_at = $5
        WHERE id = $6`
	startTime := time.Now()

	cmdTag, err := tx.Exec(ctx, query,
		res.ExpiresAt, string(res.Status), res.NotificationSent, res.Notes, res.UpdatedAt, res.ID,
	)
	observe("UpdateReservation", startTime, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update reservation", "reservation_id", res.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation %d", apperrors.ErrNotFound, res.ID)
	}
	return nil
}

func (r *ReservationRepository) NextPendingForUpdateInTx(ctx context.Context, tx pgx.Tx, bookID int64) (*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + `
        WHERE r.book_id = $1 AND r.status = 'pending'
        ORDER BY r.reserved_at, r.id
        LIMIT 1
        FOR UPDATE OF r`

	res, err := scanReservation(tx.QueryRow(ctx, query, bookID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return res, nil
}

func (r *ReservationRepository) HasPendingInTx(ctx context.Context, tx pgx.Tx, bookID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reservations WHERE book_id = $1 AND status = 'pending')`

	var exists bool
	if err := tx.QueryRow(ctx, query, bookID).Scan(&exists); err != nil {
		return false, translateDBError(err, r.logger)
	}
	return exists, nil
}

func (r *ReservationRepository) CountHeldInTx(ctx context.Context, tx pgx.Tx, bookID, excludeBorrowerID int64, now time.Time) (int, error) {
	var held int
	if err := tx.QueryRow(ctx, countHeldQuery, bookID, now, excludeBorrowerID).Scan(&held); err != nil {
		return 0, translateDBError(err, r.logger)
	}
	return held, nil
}

func (r *ReservationRepository) CountHeld(ctx context.Context, bookID int64, now time.Time) (int, error) {
	var held int
	if err := r.db.QueryRow(ctx, countHeldQuery, bookID, now, int64(0)).Scan(&held); err != nil {
		return 0, translateDBError(err, r.logger)
	}
	return held, nil
}

func (r *ReservationRepository) QueuePositionInTx(ctx context.Context, tx pgx.Tx, bookID, borrowerID int64) (int, error) {
	var position int
	if err := tx.QueryRow(ctx, queuePositionQuery, bookID, borrowerID).Scan(&position); err != nil {
		return 0, translateDBError(err, r.logger)
	}
	return position, nil
}

func (r *ReservationRepository) QueuePosition(ctx context.Context, bookID, borrowerID int64) (int, error) {
	var position int
	if err := r.db.QueryRow(ctx, queuePositionQuery, bookID, borrowerID).Scan(&position); err != nil {
		return 0, translateDBError(err, r.logger)
	}
	return position, nil
}

func (r *ReservationRepository) ListExpirableForUpdateInTx(ctx context.Context, tx pgx.Tx, borrowerID *int64, now time.Time, includePending bool) ([]*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + `
        WHERE r.expires_at < $1
          AND (r.status = 'available' OR ($2 AND r.status = 'pending'))
          AND ($3::bigint IS NULL OR r.borrower_id = $3)
        ORDER BY r.id
        FOR UPDATE OF r`
	startTime := time.Now()

	rows, err := tx.Query(ctx, query, now, includePending, borrowerID)
	observe("ListExpirableReservations", startTime, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return r.collect(ctx, rows, "ListExpirableReservations")
}

func (r *ReservationRepository) ListPromotableBookIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
        SELECT b.id FROM books b
        WHERE EXISTS (SELECT 1 FROM reservations p WHERE p.book_id = b.id AND p.status = 'pending')
          AND b.available_copies > (
            SELECT COUNT(*) FROM reservations h
            WHERE h.book_id = b.id AND h.status = 'available' AND h.expires_at >= $1)
        ORDER BY b.id`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return ids, nil
}

func (r *ReservationRepository) ListByBorrower(ctx context.Context, borrowerID int64) ([]*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + `
        WHERE r.borrower_id = $1
        ORDER BY r.reserved_at DESC, r.id DESC`

	rows, err := r.db.Query(ctx, query, borrowerID)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return r.collect(ctx, rows, "ListReservationsByBorrower")
}

func (r *ReservationRepository) GetByID(ctx context.Context, reservationID int64) (*reservation.Reservation, error) {
	query := `SELECT ` + reservationColumns + reservationFrom + `
        WHERE r.id = $1`

	res, err := scanReservation(r.db.QueryRow(ctx, query, reservationID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return res, nil
}

func (r *ReservationRepository) MarkNotified(ctx context.Context, reservationID int64) error {
	query := `UPDATE reservations SET notification_sent = TRUE, updated_at = NOW() WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, reservationID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation %d", apperrors.ErrNotFound, reservationID)
	}
	return nil
}
