package leaderboard

// AdjustedBalance subtracts the cumulative external deposit total from the
// freshest observed balance. The result may go negative when a trader
// withdrew after depositing; that correctly signals net capital outflow
// and is never clamped.
func AdjustedBalance(currentBalance, totalDeposit float64) float64 {
	return currentBalance - totalDeposit
}

// RoiPercent returns the clean return percentage against the registration
// baseline. A zero or negative baseline makes a percentage return
// meaningless, so it is defined as 0 rather than letting NaN/Inf leak
// into the ranking.
func RoiPercent(initial, adjustedCurrent float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (adjustedCurrent - initial) / initial * 100
}

// PnlAbsolute returns the absolute profit in SOL after deposit exclusion
func PnlAbsolute(initial, adjustedCurrent float64) float64 {
	return adjustedCurrent - initial
}
