package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/response"
	"github.com/patwikx/twc-platform/pkg/logger"
)

const maxWebhookBody = 65536

// StripeWebhook ingests checkout events from Stripe. Stripe retries
// every non-2xx response, so failures a retry cannot fix (unknown
// booking, unusable event data) are acknowledged with 200 and logged;
// only infrastructure errors return 500.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "could not read webhook payload")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.config.Stripe.WebhookSecret)
	if err != nil {
		logger.WarnContext(r.Context(), "Rejected stripe webhook", "error", err)
		response.BadRequest(w, "invalid webhook signature")
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		h.applyCheckoutSession(w, r, event)
	default:
		logger.DebugContext(r.Context(), "Ignoring stripe event", "type", event.Type)
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handlers) applyCheckoutSession(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		response.BadRequest(w, "malformed checkout session")
		return
	}

	// Delayed payment methods complete the session before funds clear;
	// the async_payment_succeeded event follows once they do.
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		w.WriteHeader(http.StatusOK)
		return
	}

	ref := session.ClientReferenceID
	if ref == "" {
		ref = session.Metadata["booking_id"]
	}
	bookingID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		logger.ErrorContext(r.Context(), "Stripe session carries no usable booking reference", "session_id", session.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	providerRef := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		providerRef = session.PaymentIntent.ID
	}
	amount := float64(session.AmountTotal) / 100

	booking, err := h.bookings.ConfirmPayment(r.Context(), bookingID, "stripe", providerRef, amount)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			logger.WarnContext(r.Context(), "Stripe payment not applicable",
				"error", err, "booking_id", bookingID, "provider_ref", providerRef)
			w.WriteHeader(http.StatusOK)
			return
		}
		logger.ErrorContext(r.Context(), "Failed to apply stripe payment", "error", err, "booking_id", bookingID)
		response.InternalError(w, "failed to apply payment")
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"received":       true,
		"booking_id":     booking.ID,
		"payment_status": booking.Payment,
	})
}
