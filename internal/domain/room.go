package domain

import "time"

type RoomType struct {
	ID            int64   `json:"id"`
	PropertyID    int64   `json:"property_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Capacity      int     `json:"capacity"`
	PricePerNight float64 `json:"price_per_night"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomUnit is one physical, sellable room of a RoomType. Only active
// units count toward availability.
type RoomUnit struct {
	ID         int64  `json:"id"`
	RoomTypeID int64  `json:"room_type_id"`
	UnitNumber string `json:"unit_number"`
	Active     bool   `json:"active"`
}

// DatesOverlap reports whether two half-open stay intervals
// [s1, e1) and [s2, e2) intersect. A stay ending on the day another
// begins does not overlap: checkout morning frees the room for that
// night's arrival.
func DatesOverlap(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// ToDate truncates an instant to its UTC calendar day.
func ToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type RoomAvailability struct {
	RoomTypeID     int64  `json:"room_type_id"`
	RoomTypeName   string `json:"room_type_name,omitempty"`
	TotalUnits     int    `json:"total_units"`
	BookedUnits    int    `json:"booked_units"`
	AvailableUnits int    `json:"available_units"`
	Available      bool   `json:"available"`
	// Limited flags the last-rooms warning band shown to guests.
	Limited bool `json:"limited_availability"`
}

type DayStatus string

const (
	DayUnavailable DayStatus = "unavailable"
	DayLimited     DayStatus = "limited"
	DayAvailable   DayStatus = "available"
)

type DayAvailability struct {
	Date           time.Time `json:"date"`
	AvailableUnits int       `json:"available_units"`
	Status         DayStatus `json:"status"`
}

// CapacityViolation records one cart item asking for more guests than
// its room type sleeps.
type CapacityViolation struct {
	RoomTypeID int64  `json:"room_type_id"`
	RoomName   string `json:"room_name"`
	Capacity   int    `json:"capacity"`
	Requested  int    `json:"requested"`
}
