package notify

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/patwikx/twc-platform/internal/mailer"
	"github.com/patwikx/twc-platform/pkg/events"
	"github.com/patwikx/twc-platform/pkg/logger"
)

// queueGroup makes redundant replicas share one subscription, so a
// guest gets each email once.
const queueGroup = "notify"

// Notifier turns booking lifecycle events into guest emails. Delivery
// is best-effort: a failed send is logged and the event dropped, never
// retried into a duplicate booking flow.
type Notifier struct {
	bus     events.EventBus
	mailer  mailer.Service
	baseURL string
}

func NewNotifier(bus events.EventBus, m mailer.Service, publicBaseURL string) *Notifier {
	return &Notifier{
		bus:     bus,
		mailer:  m,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Start registers the queue subscriptions. Subscriptions live until
// the bus closes.
func (n *Notifier) Start() error {
	subs := map[string]func(msg *events.Message){
		events.BookingCreated:   n.handleBookingCreated,
		events.PaymentConfirmed: n.handlePaymentConfirmed,
		events.BookingCancelled: n.handleBookingCancelled,
		events.BookingExpired:   n.handleBookingExpired,
	}
	for subject, handler := range subs {
		if err := n.bus.QueueSubscribe(subject, queueGroup, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}
	logger.Info("Notifier subscribed", "subjects", len(subs), "queue", queueGroup)
	return nil
}

func (n *Notifier) handleBookingCreated(msg *events.Message) {
	var ev events.BookingCreatedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode booking created event", "error", err)
		return
	}

	manageURL := fmt.Sprintf("%s/bookings/manage?token=%s", n.baseURL, url.QueryEscape(ev.VerificationToken))
	if err := n.mailer.SendBookingConfirmation(ev.GuestEmail, ev.GuestName, ev.ShortRef, manageURL, ev.TotalAmount); err != nil {
		logger.Error("Failed to send booking confirmation", "error", err, "short_ref", ev.ShortRef)
	}
}

func (n *Notifier) handlePaymentConfirmed(msg *events.Message) {
	var ev events.PaymentConfirmedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode payment confirmed event", "error", err)
		return
	}

	if ev.GuestEmail == "" {
		logger.Warn("Payment confirmed event without guest email", "short_ref", ev.ShortRef)
		return
	}
	if err := n.mailer.SendPaymentReceipt(ev.GuestEmail, ev.ShortRef, ev.AmountPaid); err != nil {
		logger.Error("Failed to send payment receipt", "error", err, "short_ref", ev.ShortRef)
	}
}

func (n *Notifier) handleBookingCancelled(msg *events.Message) {
	var ev events.BookingCancelledEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode booking cancelled event", "error", err)
		return
	}

	if err := n.mailer.SendCancellation(ev.GuestEmail, ev.ShortRef); err != nil {
		logger.Error("Failed to send cancellation notice", "error", err, "short_ref", ev.ShortRef)
	}
}

func (n *Notifier) handleBookingExpired(msg *events.Message) {
	var ev events.BookingExpiredEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Failed to decode booking expired event", "error", err)
		return
	}

	if err := n.mailer.SendExpiryNotice(ev.GuestEmail, ev.ShortRef); err != nil {
		logger.Error("Failed to send expiry notice", "error", err, "short_ref", ev.ShortRef)
	}
}
