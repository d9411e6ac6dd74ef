package processor

import (
	"math"
	"sort"
)

// StrikeKey collapses a strike price to an integer key at 2 decimal places,
// the native precision of NSE strike listings. Prices computed through float
// arithmetic (101.99999999) and prices parsed from the feed (102.00) map to
// the same key, so window membership can use exact comparison.
func StrikeKey(strike float64) int64 {
	return int64(math.Round(strike * 100))
}

// Round2 normalises a strike to its 2 decimal place representation.
func Round2(v float64) float64 {
	return float64(StrikeKey(v)) / 100
}

// InferStrikeInterval derives the strike spacing of a chain from its raw
// strike listing: deduplicate, sort, and take the most frequent consecutive
// difference. Frequency ties resolve to the numerically smallest difference
// so repeated runs over the same chain always agree. Fewer than two distinct
// strikes, or no positive differences, yield the fallback interval.
func InferStrikeInterval(strikes []float64, fallback float64) float64 {
	if len(strikes) < 2 {
		return fallback
	}

	seen := make(map[int64]struct{}, len(strikes))
	uniq := make([]float64, 0, len(strikes))
	for _, s := range strikes {
		key := StrikeKey(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, Round2(s))
	}
	if len(uniq) < 2 {
		return fallback
	}
	sort.Float64s(uniq)

	counts := make(map[int64]int)
	for i := 1; i < len(uniq); i++ {
		diff := StrikeKey(uniq[i]) - StrikeKey(uniq[i-1])
		if diff <= 0 {
			continue
		}
		counts[diff]++
	}
	if len(counts) == 0 {
		return fallback
	}

	var best int64
	bestCount := 0
	for diff, count := range counts {
		if count > bestCount || (count == bestCount && diff < best) {
			best = diff
			bestCount = count
		}
	}
	return float64(best) / 100
}
