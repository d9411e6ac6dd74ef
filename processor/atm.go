package processor

import "math"

// NearestStrike maps an underlying price onto the strike grid implied by the
// interval. Prices exactly halfway between two strikes round away from zero,
// matching math.Round; 125 with interval 50 lands on 150, not 100.
func NearestStrike(price, interval float64) float64 {
	return Round2(math.Round(price/interval) * interval)
}

// BuildStrikeWindow expands an ATM strike into the symmetric window used for
// aggregation: 2*halfWidth+1 strikes spaced by the interval and centred on
// ATM, each normalised to 2 decimal places. The order is ascending.
func BuildStrikeWindow(atm, interval float64, halfWidth int) []float64 {
	window := make([]float64, 0, 2*halfWidth+1)
	for i := -halfWidth; i <= halfWidth; i++ {
		window = append(window, Round2(atm+float64(i)*interval))
	}
	return window
}

// WindowSet converts a strike window into its membership set, keyed at 2
// decimal places.
func WindowSet(window []float64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(window))
	for _, strike := range window {
		set[StrikeKey(strike)] = struct{}{}
	}
	return set
}
