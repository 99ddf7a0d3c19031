package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patwikx/twc-platform/internal/domain"
)

type TokenRepository interface {
	Create(ctx context.Context, bookingID int64, tokenHash string, expiresAt time.Time) error
	FindByHash(ctx context.Context, tokenHash string) (*domain.BookingAccessToken, error)
	MarkUsed(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Create(ctx context.Context, bookingID int64, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO booking_access_tokens (booking_id, token_hash, expires_at)
		VALUES ($1,$2,$3)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, bookingID, tokenHash, expiresAt)
	return err
}

func (r *tokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.BookingAccessToken, error) {
	const q = `SELECT id, booking_id, token_hash, expires_at, used_at, created_at
		FROM booking_access_tokens
		WHERE token_hash=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var t domain.BookingAccessToken
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&t.ID, &t.BookingID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &t, err
}

func (r *tokenRepository) MarkUsed(ctx context.Context, id int64) error {
	const q = `UPDATE booking_access_tokens SET used_at=now() WHERE id=$1 AND used_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *tokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM booking_access_tokens WHERE expires_at < now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
