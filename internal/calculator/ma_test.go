package calculator

import (
	"math"
	"testing"

	"CryptoDash/internal/model"
)

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 3.5 {
		t.Errorf("got %v, want 3.5", v)
	}
	if _, err := CalculateSMA([]float64{1}, 2); err == nil {
		t.Error("expected error for short input")
	}
	if _, err := CalculateSMA([]float64{1}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestSMASeries(t *testing.T) {
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	got := SMASeries(prices, 7)
	for i := 0; i < 6; i++ {
		if model.Finite(got[i]) {
			t.Errorf("index %d should be absent, got %v", i, got[i])
		}
	}
	if !approx(got[6], 4) {
		t.Errorf("index 6: got %v, want 4", got[6])
	}
	if !approx(got[9], 7) {
		t.Errorf("index 9: got %v, want 7", got[9])
	}
}

func TestSMASeries_GapRestartsWindow(t *testing.T) {
	got := SMASeries([]float64{1, 2, math.NaN(), 4, 6}, 2)
	if !approx(got[1], 1.5) {
		t.Errorf("index 1: got %v", got[1])
	}
	if model.Finite(got[2]) || model.Finite(got[3]) {
		t.Errorf("expected absent around the gap, got %v %v", got[2], got[3])
	}
	if !approx(got[4], 5) {
		t.Errorf("index 4: got %v, want 5", got[4])
	}
}

func TestBollinger(t *testing.T) {
	upper, lower := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	// mean 5, population sd 2
	if !approx(upper[7], 9) || !approx(lower[7], 1) {
		t.Errorf("got upper=%v lower=%v, want 9 and 1", upper[7], lower[7])
	}
	if model.Finite(upper[6]) || model.Finite(lower[0]) {
		t.Error("expected absent bands before the first full window")
	}
}
