package domain

import (
	"math"
	"time"
)

const (
	ServiceChargeRate = 0.10
	TaxRate           = 0.12
)

// Round2 rounds to centavos. Every derived money figure is rounded as
// it is produced so stored totals match what the guest was quoted.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Nights counts billable nights in a half-open [checkIn, checkOut)
// stay. Partial days round up, and a degenerate range still bills one
// night.
func Nights(checkIn, checkOut time.Time) int {
	n := int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
	if n < 1 {
		return 1
	}
	return n
}

type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	ServiceCharge float64 `json:"service_charge"`
	Tax           float64 `json:"tax"`
	TotalAmount   float64 `json:"total_amount"`
}

// CalculateTotals applies the 10% service charge, then 12% tax on the
// subtotal plus service charge.
func CalculateTotals(subtotal float64) Totals {
	sub := Round2(subtotal)
	svc := Round2(sub * ServiceChargeRate)
	tax := Round2((sub + svc) * TaxRate)
	return Totals{
		Subtotal:      sub,
		ServiceCharge: svc,
		Tax:           tax,
		TotalAmount:   Round2(sub + svc + tax),
	}
}

// PriceItems fills Nights and LineTotal on each item from the given
// nightly rates and returns the booking totals.
func PriceItems(items []BookingItem) Totals {
	var subtotal float64
	for i := range items {
		it := &items[i]
		it.Nights = Nights(it.CheckIn, it.CheckOut)
		it.LineTotal = Round2(it.PricePerNight * float64(it.Nights))
		subtotal += it.LineTotal
	}
	return CalculateTotals(subtotal)
}
