package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patwikx/twc-platform/internal/domain"
)

// ErrShortRefTaken signals a reference collision; callers regenerate
// and retry.
var ErrShortRefTaken = errors.New("short ref already taken")

// CreateBookingParams is a fully priced reservation ready to persist.
type CreateBookingParams struct {
	ShortRef       string
	PropertyID     int64
	Guest          domain.GuestDetails
	Items          []domain.BookingItem
	Totals         domain.Totals
	TokenHash      string
	TokenExpiresAt time.Time
}

// AvailabilityConflict reports which room types lost their last unit
// between the advisory pre-check and the serializable re-check. An
// empty Rooms slice means the transaction itself was aborted by a
// concurrent writer.
type AvailabilityConflict struct {
	Rooms []string
}

type ListBookingsFilter struct {
	Status  *domain.BookingStatus
	Payment *domain.PaymentStatus
	Limit   int
	Offset  int
}

type BookingRepository interface {
	CreateAtomic(ctx context.Context, params CreateBookingParams) (*domain.Booking, *AvailabilityConflict, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByShortRef(ctx context.Context, shortRef string) (*domain.Booking, error)
	GetByShortRefAndEmail(ctx context.Context, shortRef, email string) (*domain.Booking, error)
	List(ctx context.Context, filter ListBookingsFilter) ([]domain.Booking, error)
	RegisterPayment(ctx context.Context, bookingID int64, provider, providerRef string, amount float64) (*domain.Booking, bool, error)
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)
	CheckIn(ctx context.Context, id int64) (bool, error)
	Cancel(ctx context.Context, id int64) (bool, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, short_ref, property_id, status, payment_status,
guest_first_name, guest_last_name, guest_email, guest_phone, special_requests,
subtotal, service_charge, tax, total_amount, amount_paid,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.ShortRef, &b.PropertyID, &b.Status, &b.Payment,
		&b.GuestFirstName, &b.GuestLastName, &b.GuestEmail, &b.GuestPhone, &b.SpecialRequests,
		&b.Subtotal, &b.ServiceCharge, &b.Tax, &b.TotalAmount, &b.AmountPaid,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateAtomic persists a booking, its items and its access token in
// one serializable transaction, re-checking availability for every
// item first. A conflict rolls everything back and is reported in the
// second return; only infrastructure failures surface as errors.
func (r *bookingRepository) CreateAtomic(ctx context.Context, params CreateBookingParams) (*domain.Booking, *AvailabilityConflict, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	avail := NewAvailabilityStore(tx)
	var conflicted []string
	for _, it := range params.Items {
		total, err := avail.CountActiveUnits(ctx, it.RoomTypeID)
		if err != nil {
			return r.classifyCreateErr(err)
		}
		booked, err := avail.CountOverlapping(ctx, it.RoomTypeID, it.CheckIn, it.CheckOut)
		if err != nil {
			return r.classifyCreateErr(err)
		}
		if total-booked < 1 {
			conflicted = append(conflicted, it.RoomTypeName)
		}
	}
	if len(conflicted) > 0 {
		return nil, &AvailabilityConflict{Rooms: conflicted}, nil // rollback via defer
	}

	const insertBooking = `INSERT INTO bookings (
		short_ref, property_id, status, payment_status,
		guest_first_name, guest_last_name, guest_email, guest_phone, special_requests,
		subtotal, service_charge, tax, total_amount, amount_paid
	) VALUES ($1,$2,'pending','unpaid',$3,$4,$5,$6,$7,$8,$9,$10,$11,0)
	RETURNING ` + bookingCols

	b, err := scanBooking(tx.QueryRow(ctx, insertBooking,
		params.ShortRef, params.PropertyID,
		params.Guest.FirstName, params.Guest.LastName, params.Guest.Email, params.Guest.Phone, params.Guest.SpecialRequests,
		params.Totals.Subtotal, params.Totals.ServiceCharge, params.Totals.Tax, params.Totals.TotalAmount,
	))
	if err != nil {
		return r.classifyCreateErr(err)
	}

	const insertItem = `INSERT INTO booking_items (
		booking_id, room_type_id, check_in, check_out, guests, nights, price_per_night, line_total
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	RETURNING id`

	for _, it := range params.Items {
		var itemID int64
		err := tx.QueryRow(ctx, insertItem,
			b.ID, it.RoomTypeID, it.CheckIn, it.CheckOut, it.Guests, it.Nights, it.PricePerNight, it.LineTotal,
		).Scan(&itemID)
		if err != nil {
			return r.classifyCreateErr(err)
		}
		it.ID = itemID
		it.BookingID = b.ID
		b.Items = append(b.Items, it)
	}

	const insertToken = `INSERT INTO booking_access_tokens (booking_id, token_hash, expires_at)
		VALUES ($1,$2,$3)`
	if _, err := tx.Exec(ctx, insertToken, b.ID, params.TokenHash, params.TokenExpiresAt); err != nil {
		return r.classifyCreateErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return r.classifyCreateErr(err)
	}
	return b, nil, nil
}

// classifyCreateErr folds a transaction abort into the conflict path:
// a serialization failure means a concurrent booking won the units, so
// callers treat it exactly like a failed re-check.
func (r *bookingRepository) classifyCreateErr(err error) (*domain.Booking, *AvailabilityConflict, error) {
	if isSerializationFailure(err) {
		return nil, &AvailabilityConflict{}, nil
	}
	if isUniqueViolation(err, "bookings_short_ref_key") {
		return nil, nil, ErrShortRefTaken
	}
	return nil, nil, err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, r.attachItems(ctx, b)
}

func (r *bookingRepository) GetByShortRef(ctx context.Context, shortRef string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE short_ref=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, shortRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, r.attachItems(ctx, b)
}

func (r *bookingRepository) GetByShortRefAndEmail(ctx context.Context, shortRef, email string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE short_ref=$1 AND lower(guest_email)=lower($2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	b, err := scanBooking(r.pool.QueryRow(ctx, q, shortRef, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, r.attachItems(ctx, b)
}

func (r *bookingRepository) List(ctx context.Context, filter ListBookingsFilter) ([]domain.Booking, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + bookingCols + ` FROM bookings`
	args := []any{}
	where := ""
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = ` WHERE status=$1`
	}
	if filter.Payment != nil {
		args = append(args, *filter.Payment)
		if where == "" {
			where = ` WHERE payment_status=$1`
		} else {
			where += ` AND payment_status=$2`
		}
	}
	q += where
	q += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// RegisterPayment records a provider payment and advances the payment
// status. The provider reference makes it idempotent: replays and
// payments landing on expired or cancelled bookings keep the booking
// untouched and return applied=false.
func (r *bookingRepository) RegisterPayment(ctx context.Context, bookingID int64, provider, providerRef string, amount float64) (*domain.Booking, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	const lockBooking = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1 FOR UPDATE`
	b, err := scanBooking(tx.QueryRow(ctx, lockBooking, bookingID))
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	const insertPayment = `INSERT INTO payments (booking_id, provider, provider_ref, amount)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (provider_ref) DO NOTHING`
	ct, err := tx.Exec(ctx, insertPayment, bookingID, provider, providerRef, amount)
	if err != nil {
		return nil, false, err
	}
	if ct.RowsAffected() == 0 {
		// Replayed webhook; the original delivery already settled it.
		return b, false, tx.Commit(ctx)
	}

	newPaid := domain.Round2(b.AmountPaid + amount)
	next := domain.PaymentPartiallyPaid
	if newPaid >= b.TotalAmount {
		next = domain.PaymentPaid
	}
	if !b.Payment.CanTransitionTo(next) {
		// Late or surplus payment: keep the row for reconciliation but
		// never resurrect an expired or already settled booking.
		return b, false, tx.Commit(ctx)
	}

	status := b.Status
	if next == domain.PaymentPaid && status == domain.BookingPending {
		status = domain.BookingConfirmed
	}

	const updateBooking = `UPDATE bookings
		SET amount_paid=$2, payment_status=$3, status=$4, updated_at=now()
		WHERE id=$1
		RETURNING ` + bookingCols
	b, err = scanBooking(tx.QueryRow(ctx, updateBooking, bookingID, newPaid, next, status))
	if err != nil {
		return nil, false, err
	}
	return b, true, tx.Commit(ctx)
}

// ExpireStale cancels pending, unpaid bookings created before the
// cutoff, at most limit per call. SKIP LOCKED keeps concurrent sweeps
// from fighting over the same rows.
func (r *bookingRepository) ExpireStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	const q = `UPDATE bookings SET status='cancelled', payment_status='expired', updated_at=now()
		WHERE id IN (
			SELECT id FROM bookings
			WHERE status='pending' AND payment_status='unpaid' AND created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *b)
	}
	return expired, rows.Err()
}

func (r *bookingRepository) CheckIn(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE bookings SET status='checked_in', updated_at=now()
		WHERE id=$1 AND status='confirmed'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE bookings SET status='cancelled', updated_at=now()
		WHERE id=$1 AND status IN ('pending','confirmed')`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *bookingRepository) attachItems(ctx context.Context, b *domain.Booking) error {
	const q = `SELECT bi.id, bi.booking_id, bi.room_type_id, rt.name,
		bi.check_in, bi.check_out, bi.guests, bi.nights, bi.price_per_night, bi.line_total
		FROM booking_items bi
		JOIN room_types rt ON rt.id = bi.room_type_id
		WHERE bi.booking_id=$1
		ORDER BY bi.id`

	rows, err := r.pool.Query(ctx, q, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.BookingItem
		if err := rows.Scan(
			&it.ID, &it.BookingID, &it.RoomTypeID, &it.RoomTypeName,
			&it.CheckIn, &it.CheckOut, &it.Guests, &it.Nights, &it.PricePerNight, &it.LineTotal,
		); err != nil {
			return err
		}
		b.Items = append(b.Items, it)
	}
	return rows.Err()
}
