package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
	"github.com/patwikx/twc-platform/internal/response"
)

// ListBookings is the staff booking browser with status filters.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repository.ListBookingsFilter{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "invalid status parameter")
			return
		}
		filter.Status = &st
	}
	if raw := r.URL.Query().Get("payment_status"); raw != "" {
		ps, ok := domain.ParsePaymentStatus(raw)
		if !ok {
			response.BadRequest(w, "invalid payment_status parameter")
			return
		}
		filter.Payment = &ps
	}

	bookings, err := h.bookings.ListBookings(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, bookings)
}

// GetBooking returns one booking with its items for staff.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid booking ID")
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

// CheckInBooking marks a confirmed booking as arrived.
func (h *Handlers) CheckInBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid booking ID")
		return
	}

	claims := getClaims(r)
	if claims == nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	booking, err := h.bookings.CheckInBooking(r.Context(), id, claims.Sub)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

// CancelBooking cancels on behalf of the guest, attributed to the
// acting staff member in the audit trail.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid booking ID")
		return
	}

	claims := getClaims(r)
	if claims == nil {
		response.Unauthorized(w, "authentication required")
		return
	}

	booking, err := h.bookings.CancelBooking(r.Context(), id, claims.Sub)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, booking)
}

// ListAuditLogs is the general audit browser.
func (h *Handlers) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := domain.AuditFilter{
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
		Limit:      limit,
		Offset:     offset,
	}

	if raw := r.URL.Query().Get("action"); raw != "" {
		action, ok := domain.ParseAuditAction(raw)
		if !ok {
			response.BadRequest(w, "invalid action parameter")
			return
		}
		filter.Action = action
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid user_id parameter")
			return
		}
		filter.UserID = &uid
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "from must be an RFC3339 timestamp")
			return
		}
		filter.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "to must be an RFC3339 timestamp")
			return
		}
		filter.To = &to
	}

	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, entries)
}

// AuditEntityHistory returns the change trail of one entity, newest
// first.
func (h *Handlers) AuditEntityHistory(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")
	limit, _ := parsePagination(r)

	entries, err := h.audit.EntityHistory(r.Context(), entityType, entityID, limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, entries)
}

// AuditUserActivity returns a staff member's recent actions.
func (h *Handlers) AuditUserActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}
	limit, _ := parsePagination(r)

	entries, err := h.audit.RecentByUser(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, entries)
}

// RunSweep triggers one expiration pass outside the schedule, for
// operators who do not want to wait out the interval.
func (h *Handlers) RunSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.sweeper.SweepOnce(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]int{"expired": expired})
}
