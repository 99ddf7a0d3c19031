package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/patwikx/twc-platform/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	BookingExpired   = "booking.expired"
	BookingCheckedIn = "booking.checked_in"

	PaymentConfirmed = "payment.confirmed"

	NotifySend = "notify.send"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID   int64     `json:"booking_id"`
	ShortRef    string    `json:"short_ref"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	TotalAmount float64   `json:"total_amount"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	CreatedAt   time.Time `json:"created_at"`

	// VerificationToken rides along so the notifier can build the
	// guest's manage-booking link without another lookup.
	VerificationToken string    `json:"verification_token"`
	TokenExpiresAt    time.Time `json:"token_expires_at"`
}

type BookingCancelledEvent struct {
	BookingID   int64     `json:"booking_id"`
	ShortRef    string    `json:"short_ref"`
	GuestEmail  string    `json:"guest_email"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type BookingExpiredEvent struct {
	BookingID  int64     `json:"booking_id"`
	ShortRef   string    `json:"short_ref"`
	GuestEmail string    `json:"guest_email"`
	ExpiredAt  time.Time `json:"expired_at"`
}

type BookingCheckedInEvent struct {
	BookingID   int64     `json:"booking_id"`
	ShortRef    string    `json:"short_ref"`
	GuestEmail  string    `json:"guest_email"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

type PaymentConfirmedEvent struct {
	BookingID   int64     `json:"booking_id"`
	ShortRef    string    `json:"short_ref"`
	GuestEmail  string    `json:"guest_email"`
	AmountPaid  float64   `json:"amount_paid"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
}
