package models

import (
	"sort"
	"time"
)

// AggregationResult is the outcome of one (symbol, snapshot) aggregation.
// The two ratios are nil when their denominator is zero; a nil ratio sorts
// after every non-nil value and is never treated as zero.
type AggregationResult struct {
	Symbol          string    `json:"symbol"`
	Date            time.Time `json:"date"`
	UnderlyingValue float64   `json:"underlying_value"`
	ATMStrike       float64   `json:"atm_strike"`
	StrikeInterval  float64   `json:"strike_interval"`
	Expiry          string    `json:"expiry"`
	SumCallOI       int64     `json:"sum_call_oi"`
	SumPutOI        int64     `json:"sum_put_oi"`
	SumCallOIChange int64     `json:"sum_call_oi_change"`
	SumPutOIChange  int64     `json:"sum_put_oi_change"`

	CombinedOIRatio     *float64 `json:"combined_oi_ratio"`
	CombinedChangeRatio *float64 `json:"combined_change_ratio"`
}

// ResultTable is an ordered collection of aggregation results. The orchestrator
// appends as it goes and applies a single sort once the run is complete.
type ResultTable []AggregationResult

// RankByChangeRatio orders the table by combined change ratio descending.
// Results without a ratio move to the end, keeping their relative order.
func (t ResultTable) RankByChangeRatio() {
	sort.SliceStable(t, func(i, j int) bool {
		a, b := t[i].CombinedChangeRatio, t[j].CombinedChangeRatio
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a > *b
	})
}

// SortByDate orders the table chronologically, oldest first.
func (t ResultTable) SortByDate() {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Date.Before(t[j].Date)
	})
}

// TopN returns the first n results without copying the backing array.
func (t ResultTable) TopN(n int) ResultTable {
	if n > len(t) {
		n = len(t)
	}
	return t[:n]
}

// Failure records one symbol or day the pipeline could not process. Failures
// accumulate alongside results instead of aborting the batch.
type Failure struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date,omitempty"`
	Reason string    `json:"reason"`
}
