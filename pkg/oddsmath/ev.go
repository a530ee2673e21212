package oddsmath

// CalculateEV returns the expected value of a one unit stake
// EV = P(win) × (decimal - 1) - P(lose)
func CalculateEV(american int, probability float64) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return probability*(decimal-1.0) - (1.0 - probability), nil
}

// CalculateEVDollar calculates expected value in dollars
// EV$ = (WinProb × WinAmount) - (LoseProb × StakeAmount)
func CalculateEVDollar(stake float64, american int, probability float64) (float64, error) {
	ev, err := CalculateEV(american, probability)
	if err != nil {
		return 0, err
	}
	return ev * stake, nil
}

// Profit returns the net result of a winning stake at the given price
func Profit(stake float64, american int) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return stake * (decimal - 1.0), nil
}
