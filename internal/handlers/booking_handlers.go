package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/response"
)

// CreateBooking handles guest reservation requests. The whole cart is
// booked atomically; on success the guest gets a reference and a
// verification token for account-less management.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := validateStruct(&req); err != nil {
		response.Error(w, err)
		return
	}

	conf, err := h.bookings.CreateBooking(r.Context(), &req)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, conf)
}

// LookupBooking finds a booking by its reference plus the booking
// email, the pair printed on every confirmation.
func (h *Handlers) LookupBooking(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	email := r.URL.Query().Get("email")

	booking, err := h.bookings.GetBookingByRef(r.Context(), ref, email)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

// GetManagedBooking serves the emailed manage link: the verification
// token alone authenticates the guest.
func (h *Handlers) GetManagedBooking(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	booking, err := h.bookings.GetBookingWithToken(r.Context(), token)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

// CancelManagedBooking cancels through the verification token. The
// token is spent on success, so the final booking state is returned
// here rather than left for a follow-up fetch.
func (h *Handlers) CancelManagedBooking(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	booking, err := h.bookings.CancelWithToken(r.Context(), token)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}
