package domain_test

import (
	"testing"
	"time"

	"github.com/patwikx/twc-platform/internal/domain"
)

func TestCalculateTotals_StandardRates(t *testing.T) {
	got := domain.CalculateTotals(1000)

	if got.Subtotal != 1000 {
		t.Fatalf("Expected subtotal 1000, got %v", got.Subtotal)
	}
	if got.ServiceCharge != 100 {
		t.Fatalf("Expected service charge 100, got %v", got.ServiceCharge)
	}
	if got.Tax != 132 {
		t.Fatalf("Expected tax 132, got %v", got.Tax)
	}
	if got.TotalAmount != 1232 {
		t.Fatalf("Expected total 1232, got %v", got.TotalAmount)
	}
}

func TestCalculateTotals_RoundsEachStep(t *testing.T) {
	// 333.33 -> svc 33.33 (not 33.333) -> tax on 366.66 = 43.9992 -> 44.00
	got := domain.CalculateTotals(333.33)

	if got.ServiceCharge != 33.33 {
		t.Fatalf("Expected service charge 33.33, got %v", got.ServiceCharge)
	}
	if got.Tax != 44.00 {
		t.Fatalf("Expected tax 44.00, got %v", got.Tax)
	}
	if got.TotalAmount != 410.66 {
		t.Fatalf("Expected total 410.66, got %v", got.TotalAmount)
	}
}

func TestNights_WholeAndPartialDays(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     int
	}{
		{"one night", base, base.AddDate(0, 0, 1), 1},
		{"three nights", base, base.AddDate(0, 0, 3), 3},
		{"partial day rounds up", base, base.AddDate(0, 0, 2).Add(6 * time.Hour), 3},
		{"same instant bills one night", base, base, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.Nights(tt.checkIn, tt.checkOut); got != tt.want {
				t.Fatalf("Expected %d nights, got %d", tt.want, got)
			}
		})
	}
}

func TestPriceItems_FillsLineTotalsAndSumsSubtotal(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.BookingItem{
		{RoomTypeID: 1, CheckIn: base, CheckOut: base.AddDate(0, 0, 2), PricePerNight: 2500},
		{RoomTypeID: 2, CheckIn: base, CheckOut: base.AddDate(0, 0, 1), PricePerNight: 1800},
	}

	totals := domain.PriceItems(items)

	if items[0].Nights != 2 || items[0].LineTotal != 5000 {
		t.Fatalf("Expected first item 2 nights / 5000, got %d / %v", items[0].Nights, items[0].LineTotal)
	}
	if items[1].Nights != 1 || items[1].LineTotal != 1800 {
		t.Fatalf("Expected second item 1 night / 1800, got %d / %v", items[1].Nights, items[1].LineTotal)
	}
	if totals.Subtotal != 6800 {
		t.Fatalf("Expected subtotal 6800, got %v", totals.Subtotal)
	}
	if totals.TotalAmount != 8377.60 {
		t.Fatalf("Expected total 8377.60, got %v", totals.TotalAmount)
	}
}

func TestRound2_Centavos(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{132.00000000000003, 132},
		{43.9992, 44},
		{0.005, 0.01},
		{-1.005, -1},
	}
	for _, tt := range tests {
		if got := domain.Round2(tt.in); got != tt.want {
			t.Fatalf("Round2(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
