package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// BookingAccessToken lets a guest view or cancel one booking without
// an account. Only the hash is stored; the raw token is shown once in
// the confirmation response and email.
type BookingAccessToken struct {
	ID        int64      `json:"id"`
	BookingID int64      `json:"booking_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *BookingAccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// NewVerificationToken returns a raw URL-safe token and its hash.
func NewVerificationToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("verification token: entropy read failed: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashToken(token), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
