package migrations

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patwikx/twc-platform/pkg/logger"
)

type step struct {
	name string
	ddl  string
}

// Statements are applied in order and are individually idempotent, so
// rerunning the migrator against an existing database is safe.
var steps = []step{
	{"properties", `
CREATE TABLE IF NOT EXISTS properties (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	{"room_types", `
CREATE TABLE IF NOT EXISTS room_types (
	id BIGSERIAL PRIMARY KEY,
	property_id BIGINT NOT NULL REFERENCES properties(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	capacity INT NOT NULL CHECK (capacity > 0),
	price_per_night NUMERIC(12,2) NOT NULL CHECK (price_per_night >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	{"room_units", `
CREATE TABLE IF NOT EXISTS room_units (
	id BIGSERIAL PRIMARY KEY,
	room_type_id BIGINT NOT NULL REFERENCES room_types(id),
	unit_number TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE (room_type_id, unit_number)
)`},

	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	role TEXT NOT NULL CHECK (role IN ('admin','front_desk')),
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGSERIAL PRIMARY KEY,
	short_ref TEXT NOT NULL UNIQUE,
	property_id BIGINT NOT NULL REFERENCES properties(id),
	status TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending','confirmed','checked_in','cancelled')),
	payment_status TEXT NOT NULL DEFAULT 'unpaid'
		CHECK (payment_status IN ('unpaid','partially_paid','paid','expired')),
	guest_first_name TEXT NOT NULL,
	guest_last_name TEXT NOT NULL,
	guest_email TEXT NOT NULL,
	guest_phone TEXT NOT NULL,
	special_requests TEXT NOT NULL DEFAULT '',
	subtotal NUMERIC(12,2) NOT NULL,
	service_charge NUMERIC(12,2) NOT NULL,
	tax NUMERIC(12,2) NOT NULL,
	total_amount NUMERIC(12,2) NOT NULL,
	amount_paid NUMERIC(12,2) NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	{"booking_items", `
CREATE TABLE IF NOT EXISTS booking_items (
	id BIGSERIAL PRIMARY KEY,
	booking_id BIGINT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	room_type_id BIGINT NOT NULL REFERENCES room_types(id),
	check_in DATE NOT NULL,
	check_out DATE NOT NULL,
	guests INT NOT NULL CHECK (guests > 0),
	nights INT NOT NULL CHECK (nights > 0),
	price_per_night NUMERIC(12,2) NOT NULL,
	line_total NUMERIC(12,2) NOT NULL,
	CHECK (check_out > check_in)
)`},

	{"booking_access_tokens", `
CREATE TABLE IF NOT EXISTS booking_access_tokens (
	id BIGSERIAL PRIMARY KEY,
	booking_id BIGINT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
	token_hash TEXT NOT NULL UNIQUE,
	expires_at TIMESTAMPTZ NOT NULL,
	used_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	{"payments", `
CREATE TABLE IF NOT EXISTS payments (
	id BIGSERIAL PRIMARY KEY,
	booking_id BIGINT NOT NULL REFERENCES bookings(id),
	provider TEXT NOT NULL,
	provider_ref TEXT NOT NULL UNIQUE,
	amount NUMERIC(12,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	{"audit_logs", `
CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	action TEXT NOT NULL CHECK (action IN ('CREATE','UPDATE','DELETE')),
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	old_values JSONB,
	new_values JSONB,
	user_id BIGINT REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`},

	// Overlap scans walk (room_type_id, check_in) and filter on check_out
	{"booking_items_room_stay_idx", `
CREATE INDEX IF NOT EXISTS booking_items_room_stay_idx
	ON booking_items (room_type_id, check_in, check_out)`},

	{"booking_items_booking_idx", `
CREATE INDEX IF NOT EXISTS booking_items_booking_idx
	ON booking_items (booking_id)`},

	// Partial index matching the sweeper predicate exactly
	{"bookings_sweep_idx", `
CREATE INDEX IF NOT EXISTS bookings_sweep_idx
	ON bookings (created_at)
	WHERE status = 'pending' AND payment_status = 'unpaid'`},

	{"bookings_guest_email_idx", `
CREATE INDEX IF NOT EXISTS bookings_guest_email_idx
	ON bookings (lower(guest_email))`},

	{"booking_access_tokens_expiry_idx", `
CREATE INDEX IF NOT EXISTS booking_access_tokens_expiry_idx
	ON booking_access_tokens (expires_at)`},

	{"audit_logs_entity_idx", `
CREATE INDEX IF NOT EXISTS audit_logs_entity_idx
	ON audit_logs (entity_type, entity_id, created_at DESC)`},

	{"audit_logs_user_idx", `
CREATE INDEX IF NOT EXISTS audit_logs_user_idx
	ON audit_logs (user_id, created_at DESC)`},

	{"users_email_lower_key", `
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key
	ON users (lower(email))`},
}

// Run applies the full schema, one statement at a time.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range steps {
		if _, err := pool.Exec(ctx, s.ddl); err != nil {
			return fmt.Errorf("apply %s: %w", s.name, err)
		}
		logger.DebugContext(ctx, "Applied schema step", "step", s.name)
	}
	logger.InfoContext(ctx, "Schema up to date", "steps", len(steps))
	return nil
}

// BootstrapAdmin creates the first admin account when none exists for
// the given email. Returns true when an account was created.
func BootstrapAdmin(ctx context.Context, pool *pgxpool.Pool, email, password, name string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email)=lower($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin account: %w", err)
	}
	if exists {
		return false, nil
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (role, email, password_hash, name, active)
		 VALUES ('admin', lower($1), $2, $3, TRUE)`,
		email, hash, name,
	)
	if err != nil {
		return false, fmt.Errorf("create admin account: %w", err)
	}
	return true, nil
}
