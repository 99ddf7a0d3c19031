package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/patwikx/twc-platform/internal/utils"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCancelled:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentExpired       PaymentStatus = "expired"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentPartiallyPaid, PaymentPaid, PaymentExpired:
		return PaymentStatus(s), true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether a payment status change is legal.
// Expiry is only reachable from unpaid: once money has come in the
// booking must never be auto-expired.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch p {
	case PaymentUnpaid:
		return next == PaymentPartiallyPaid || next == PaymentPaid || next == PaymentExpired
	case PaymentPartiallyPaid:
		return next == PaymentPartiallyPaid || next == PaymentPaid
	default:
		return false
	}
}

type Booking struct {
	ID         int64         `json:"id"`
	ShortRef   string        `json:"short_ref"`
	PropertyID int64         `json:"property_id"`
	Status     BookingStatus `json:"status"`
	Payment    PaymentStatus `json:"payment_status"`

	GuestFirstName  string `json:"guest_first_name"`
	GuestLastName   string `json:"guest_last_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	SpecialRequests string `json:"special_requests,omitempty"`

	Subtotal      float64 `json:"subtotal"`
	ServiceCharge float64 `json:"service_charge"`
	Tax           float64 `json:"tax"`
	TotalAmount   float64 `json:"total_amount"`
	AmountPaid    float64 `json:"amount_paid"`

	Items []BookingItem `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) AmountDue() float64 {
	return Round2(b.TotalAmount - b.AmountPaid)
}

// Expirable reports whether the stale-booking sweeper may cancel this
// booking given the cutoff instant. Partially paid bookings are immune.
func (b *Booking) Expirable(cutoff time.Time) bool {
	return b.Status == BookingPending && b.Payment == PaymentUnpaid && b.CreatedAt.Before(cutoff)
}

type BookingItem struct {
	ID            int64     `json:"id"`
	BookingID     int64     `json:"booking_id"`
	RoomTypeID    int64     `json:"room_type_id"`
	RoomTypeName  string    `json:"room_type_name,omitempty"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Guests        int       `json:"guests"`
	Nights        int       `json:"nights"`
	PricePerNight float64   `json:"price_per_night"`
	LineTotal     float64   `json:"line_total"`
}

// CartItem is one requested stay before it has been priced or persisted.
type CartItem struct {
	RoomTypeID int64     `json:"room_type_id" validate:"required"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required,gtfield=CheckIn"`
	Guests     int       `json:"guests" validate:"required,min=1"`
}

func (c CartItem) Validate() error {
	if c.RoomTypeID <= 0 {
		return fmt.Errorf("room_type_id is required")
	}
	if c.CheckIn.IsZero() || c.CheckOut.IsZero() {
		return fmt.Errorf("check_in and check_out are required")
	}
	if !c.CheckOut.After(c.CheckIn) {
		return fmt.Errorf("check_out must be after check_in")
	}
	if c.Guests <= 0 {
		return fmt.Errorf("guests must be at least 1")
	}
	return nil
}

type GuestDetails struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required,max=32"`
	SpecialRequests string `json:"special_requests,omitempty" validate:"omitempty,max=2000"`
}

func (g GuestDetails) Validate() error {
	if g.FirstName == "" || g.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if g.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !isValidEmail(g.Email) {
		return fmt.Errorf("invalid email format")
	}
	if g.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	if !utils.IsValidPhone(g.Phone) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

func (g *GuestDetails) Normalize() {
	g.FirstName = strings.TrimSpace(g.FirstName)
	g.LastName = strings.TrimSpace(g.LastName)
	g.Email = strings.ToLower(strings.TrimSpace(g.Email))
	g.Phone = utils.NormalizePhone(g.Phone)
	g.SpecialRequests = strings.TrimSpace(g.SpecialRequests)
}

// CreateBookingRequest is the full reservation payload: one guest, one
// or more stays. All items are booked atomically or not at all.
type CreateBookingRequest struct {
	Items []CartItem   `json:"items" validate:"required,min=1,dive"`
	Guest GuestDetails `json:"guest"`
}

// BookingConfirmation is returned to the guest after a successful
// reservation. The verification token grants temporary access to the
// booking without an account.
type BookingConfirmation struct {
	Success           bool      `json:"success"`
	BookingID         int64     `json:"booking_id"`
	ShortRef          string    `json:"short_ref"`
	TotalAmount       float64   `json:"total_amount"`
	VerificationToken string    `json:"verification_token"`
	TokenExpiresAt    time.Time `json:"token_expires_at"`
}

const shortRefCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewShortRef returns a guest-facing reference like "TWC-X7K2P9".
// Uniqueness is enforced by the bookings table; callers retry on
// collision.
func NewShortRef(prefix string) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("short ref: entropy read failed: %w", err)
	}
	for i, b := range buf {
		buf[i] = shortRefCharset[int(b)%len(shortRefCharset)]
	}
	return prefix + string(buf), nil
}
