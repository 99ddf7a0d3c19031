package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/patwikx/twc-platform/internal/response"
)

const dateLayout = "2006-01-02"

// ListRooms lists room types, optionally narrowed to one property.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	var propertyID int64
	if v := r.URL.Query().Get("property_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(w, "invalid property_id")
			return
		}
		propertyID = id
	}

	rooms, err := h.rooms.ListRoomTypes(r.Context(), propertyID)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, rooms)
}

// CheckAvailability reports free units for one room type across a
// stay range. The answer is advisory; booking re-checks atomically.
func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	roomTypeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid room type ID")
		return
	}

	checkIn, err := time.Parse(dateLayout, r.URL.Query().Get("check_in"))
	if err != nil {
		response.BadRequest(w, "check_in must be a YYYY-MM-DD date")
		return
	}
	checkOut, err := time.Parse(dateLayout, r.URL.Query().Get("check_out"))
	if err != nil {
		response.BadRequest(w, "check_out must be a YYYY-MM-DD date")
		return
	}

	avail, err := h.availability.Check(r.Context(), roomTypeID, checkIn, checkOut)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, avail)
}

// AvailabilityCalendar returns the per-day status grid guests browse
// before picking dates.
func (h *Handlers) AvailabilityCalendar(w http.ResponseWriter, r *http.Request) {
	roomTypeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid room type ID")
		return
	}

	from := time.Now()
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			response.BadRequest(w, "from must be a YYYY-MM-DD date")
			return
		}
		from = parsed
	}

	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "days must be a number")
			return
		}
		days = n
	}

	calendar, err := h.availability.Calendar(r.Context(), roomTypeID, from, days)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, calendar)
}
