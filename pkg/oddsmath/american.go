package oddsmath

import (
	"fmt"
	"math"
)

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}
	return 100.0/float64(-american) + 1.0, nil
}

// AmericanToImpliedProbability converts American odds to the break-even
// probability of the price
// -110 → 0.5238, +150 → 0.40
func AmericanToImpliedProbability(american int) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return 1.0 / decimal, nil
}

// ProbabilityToAmerican converts a probability to the fair American price.
// Favorites (p >= 0.5) get negative prices.
// 0.60 → -150, 0.40 → +150
func ProbabilityToAmerican(p float64) (int, error) {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("invalid probability: must be between 0 and 1")
	}
	if p >= 0.5 {
		return int(math.Round(-100.0 * p / (1.0 - p))), nil
	}
	return int(math.Round(100.0 * (1.0 - p) / p)), nil
}

// CombineAmerican prices a parlay from its legs' American odds. The
// combined implied probability is the product of the leg probabilities.
func CombineAmerican(prices []int) (american int, impliedProbability float64, err error) {
	if len(prices) == 0 {
		return 0, 0, fmt.Errorf("combine prices: no legs")
	}
	impliedProbability = 1.0
	for _, price := range prices {
		p, err := AmericanToImpliedProbability(price)
		if err != nil {
			return 0, 0, fmt.Errorf("combine prices: %w", err)
		}
		impliedProbability *= p
	}
	american, err = ProbabilityToAmerican(impliedProbability)
	if err != nil {
		return 0, 0, fmt.Errorf("combine prices: %w", err)
	}
	return american, impliedProbability, nil
}
