package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so the same
// availability queries serve both the advisory pre-check on the pool
// and the binding re-check inside the reservation transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// StayWindow is one occupied half-open [CheckIn, CheckOut) interval.
type StayWindow struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// AvailabilityStore answers how many units a room type has and how
// many are taken for a date range. Cancelled bookings never count.
type AvailabilityStore interface {
	CountActiveUnits(ctx context.Context, roomTypeID int64) (int, error)
	CountOverlapping(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error)
	ListOverlapping(ctx context.Context, roomTypeID int64, from, to time.Time) ([]StayWindow, error)
}

type availabilityStore struct {
	q Querier
}

func NewAvailabilityStore(q Querier) AvailabilityStore {
	return &availabilityStore{q: q}
}

func (s *availabilityStore) CountActiveUnits(ctx context.Context, roomTypeID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM room_units WHERE room_type_id=$1 AND active`

	var n int
	err := s.q.QueryRow(ctx, q, roomTypeID).Scan(&n)
	return n, err
}

func (s *availabilityStore) CountOverlapping(ctx context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	const q = `SELECT COUNT(*)
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.room_type_id = $1
		  AND b.status <> 'cancelled'
		  AND bi.check_in < $3
		  AND bi.check_out > $2`

	var n int
	err := s.q.QueryRow(ctx, q, roomTypeID, checkIn, checkOut).Scan(&n)
	return n, err
}

func (s *availabilityStore) ListOverlapping(ctx context.Context, roomTypeID int64, from, to time.Time) ([]StayWindow, error) {
	const q = `SELECT bi.check_in, bi.check_out
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.room_type_id = $1
		  AND b.status <> 'cancelled'
		  AND bi.check_in < $3
		  AND bi.check_out > $2
		ORDER BY bi.check_in`

	rows, err := s.q.Query(ctx, q, roomTypeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stays []StayWindow
	for rows.Next() {
		var w StayWindow
		if err := rows.Scan(&w.CheckIn, &w.CheckOut); err != nil {
			return nil, err
		}
		stays = append(stays, w)
	}
	return stays, rows.Err()
}
