package priceresolver

import (
	"math"
	"testing"
	"time"

	"github.com/hirokada/shisan/internal/models"
)

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestInterpolate_NoAnchors(t *testing.T) {
	if got := Interpolate(nil, d("2025-01-01"), d("2025-01-10")); got != nil {
		t.Errorf("no anchors should yield nil, got %v", got)
	}
}

func TestInterpolate_SingleAnchorIsFlat(t *testing.T) {
	anchors := []KnownPrice{{Date: d("2025-01-05"), Price: 50}}
	got := Interpolate(anchors, d("2025-01-01"), d("2025-01-03"))

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, p := range got {
		if p.Price != 50 {
			t.Errorf("flat line expected, got %v at %v", p.Price, p.Date)
		}
	}
}

func TestInterpolate_LinearBetweenAnchors(t *testing.T) {
	anchors := []KnownPrice{
		{Date: d("2025-01-01"), Price: 100},
		{Date: d("2025-01-10"), Price: 110},
	}
	got := Interpolate(anchors, d("2025-01-01"), d("2025-01-10"))

	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0].Price != 100 || got[9].Price != 110 {
		t.Errorf("endpoints wrong: %v .. %v", got[0].Price, got[9].Price)
	}
	// 2025-01-05 is 4/9 of the way from 100 to 110
	want := 100 + 10*4.0/9.0
	if math.Abs(got[4].Price-want) > 1e-9 {
		t.Errorf("midpoint = %v, want %v", got[4].Price, want)
	}
}

func TestInterpolate_EdgeReplication(t *testing.T) {
	anchors := []KnownPrice{
		{Date: d("2025-01-05"), Price: 200},
		{Date: d("2025-01-07"), Price: 300},
	}
	got := Interpolate(anchors, d("2025-01-03"), d("2025-01-09"))

	if got[0].Price != 200 || got[1].Price != 200 {
		t.Error("days before the first anchor should replicate its value")
	}
	if got[len(got)-1].Price != 300 {
		t.Error("days after the last anchor should replicate its value")
	}
}

func TestInterpolate_ConstantAnchors(t *testing.T) {
	anchors := []KnownPrice{
		{Date: d("2025-01-01"), Price: 50},
		{Date: d("2025-01-03"), Price: 50},
		{Date: d("2025-01-05"), Price: 50},
	}
	got := Interpolate(anchors, d("2025-01-01"), d("2025-01-05"))
	for _, p := range got {
		if p.Price != 50 {
			t.Errorf("constant anchors should stay flat, got %v", p.Price)
		}
	}
}

func TestInterpolate_InvertedWindow(t *testing.T) {
	anchors := []KnownPrice{{Date: d("2025-01-01"), Price: 1}}
	if got := Interpolate(anchors, d("2025-01-10"), d("2025-01-01")); got != nil {
		t.Error("inverted window should yield nil")
	}
}

func TestAnchorsFromTransactions(t *testing.T) {
	txs := []*models.Transaction{
		{Date: d("2025-01-01"), Quantity: 10, AmountJPY: 1000},
		{Date: d("2025-01-05"), Quantity: 0, AmountJPY: 500}, // no quantity, skipped
		{Date: d("2025-01-10"), Quantity: 4, AmountJPY: 480},
	}

	got := anchorsFromTransactions(txs)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Price != 100 || got[1].Price != 120 {
		t.Errorf("unit prices = %v, %v; want 100, 120", got[0].Price, got[1].Price)
	}
}
