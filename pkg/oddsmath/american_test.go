package oddsmath_test

import (
	"math"
	"testing"

	"github.com/XavierBriggs/fortuna/services/sgp-engine/pkg/oddsmath"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"Positive odds +100", 100, 2.0},
		{"Positive odds +150", 150, 2.5},
		{"Negative odds -110", -110, 1.909090909},
		{"Negative odds -150", -150, 1.666666667},
		{"Negative odds -200", -200, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.AmericanToDecimal(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("AmericanToDecimal(%d) = %f, want %f", tt.american, got, tt.want)
			}
		})
	}
}

func TestAmericanToDecimalZero(t *testing.T) {
	if _, err := oddsmath.AmericanToDecimal(0); err == nil {
		t.Error("expected error for 0 odds")
	}
}

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"Even odds +100", 100, 0.50},
		{"Favorite -110", -110, 0.5238},
		{"Heavy favorite -200", -200, 0.6667},
		{"Underdog +150", 150, 0.40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.AmericanToImpliedProbability(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("AmericanToImpliedProbability(%d) = %f, want %f", tt.american, got, tt.want)
			}
		})
	}
}

func TestProbabilityToAmerican(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		want int
	}{
		{"Favorite 0.60", 0.60, -150},
		{"Coin flip", 0.50, -100},
		{"Underdog 0.40", 0.40, 150},
		{"Longshot 0.125", 0.125, 700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.ProbabilityToAmerican(tt.p)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ProbabilityToAmerican(%f) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}

	for _, bad := range []float64{0, 1, -0.2, math.NaN()} {
		if _, err := oddsmath.ProbabilityToAmerican(bad); err == nil {
			t.Errorf("expected error for probability %f", bad)
		}
	}
}

func TestCombineAmerican(t *testing.T) {
	// Three +100 legs: 0.5^3 = 0.125 → +700
	price, prob, err := oddsmath.CombineAmerican([]int{100, 100, 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 700 {
		t.Errorf("combined price = %d, want 700", price)
	}
	if math.Abs(prob-0.125) > 1e-9 {
		t.Errorf("combined probability = %f, want 0.125", prob)
	}

	// Three -110 legs: 0.5238^3 ≈ 0.1437 → about +596
	price, _, err = oddsmath.CombineAmerican([]int{-110, -110, -110})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price < 590 || price > 600 {
		t.Errorf("combined price = %d, want about +596", price)
	}

	if _, _, err := oddsmath.CombineAmerican(nil); err == nil {
		t.Error("expected error for empty parlay")
	}
	if _, _, err := oddsmath.CombineAmerican([]int{-110, 0}); err == nil {
		t.Error("expected error for zero price")
	}
}

func TestCalculateEV(t *testing.T) {
	// 55% at +100 → 0.55 - 0.45 = 0.10
	ev, err := oddsmath.CalculateEV(100, 0.55)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ev-0.10) > 1e-9 {
		t.Errorf("EV = %f, want 0.10", ev)
	}

	// fair coin at -110 is negative
	ev, _ = oddsmath.CalculateEV(-110, 0.5)
	if ev >= 0 {
		t.Errorf("EV = %f, want negative", ev)
	}

	dollars, _ := oddsmath.CalculateEVDollar(100, 100, 0.55)
	if math.Abs(dollars-10) > 1e-9 {
		t.Errorf("EV$ = %f, want 10", dollars)
	}

	profit, _ := oddsmath.Profit(100, 596)
	if math.Abs(profit-596) > 1e-9 {
		t.Errorf("profit = %f, want 596", profit)
	}
}
