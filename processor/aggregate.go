package processor

import (
	"errors"
	"fmt"
	"time"

	"oiflow/config"
	"oiflow/models"
)

// ErrNoExpiry signals that a snapshot carried no parseable expiry. Callers
// treat it like a retrieval failure for that symbol or day.
var ErrNoExpiry = errors.New("no expiry available after parsing")

// Aggregator runs the per-snapshot computation: expiry selection, interval
// inference, window construction, and the OI sums and ratios over the window.
// It holds only policy, so one instance is safe to reuse across symbols.
type Aggregator struct {
	fallbackInterval float64
	windowHalfWidth  int
	convention       RatioConvention
}

// NewAggregator builds an aggregator from pipeline configuration, applying
// the packaged defaults for unset values.
func NewAggregator(cfg config.PipelineConfig) (*Aggregator, error) {
	convention, err := ParseRatioConvention(cfg.RatioConvention)
	if err != nil {
		return nil, err
	}

	fallback := cfg.FallbackInterval
	if fallback <= 0 {
		fallback = config.DefaultFallbackInterval
	}
	halfWidth := cfg.WindowHalfWidth
	if halfWidth <= 0 {
		halfWidth = config.DefaultWindowHalfWidth
	}

	return &Aggregator{
		fallbackInterval: fallback,
		windowHalfWidth:  halfWidth,
		convention:       convention,
	}, nil
}

// Aggregate computes the OI skew metrics for one chain snapshot. It is a pure
// function of its inputs: running it twice on the same snapshot produces an
// identical result.
func (a *Aggregator) Aggregate(snapshot models.ChainSnapshot, referenceDate time.Time) (models.AggregationResult, error) {
	if snapshot.UnderlyingValue <= 0 {
		return models.AggregationResult{}, fmt.Errorf("non-positive underlying value %.2f for %s", snapshot.UnderlyingValue, snapshot.Symbol)
	}

	expiry, ok := SelectExpiry(snapshot.Expiries, referenceDate)
	if !ok {
		return models.AggregationResult{}, ErrNoExpiry
	}

	// Records tagged with a different expiry belong to other contracts in
	// the same day's feed; untagged records are taken as already filtered.
	inExpiry := func(rec models.StrikeRecord) bool {
		return rec.Expiry.IsZero() || SameDay(rec.Expiry, expiry.Date)
	}

	strikes := make([]float64, 0, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		if rec.Strike <= 0 || !inExpiry(rec) {
			continue
		}
		strikes = append(strikes, rec.Strike)
	}

	interval := InferStrikeInterval(strikes, a.fallbackInterval)
	atm := NearestStrike(snapshot.UnderlyingValue, interval)
	window := WindowSet(BuildStrikeWindow(atm, interval, a.windowHalfWidth))

	var sumCallOI, sumPutOI, sumCallChange, sumPutChange int64
	for _, rec := range snapshot.Records {
		if rec.Strike <= 0 || !inExpiry(rec) {
			continue
		}
		if _, ok := window[StrikeKey(rec.Strike)]; !ok {
			continue
		}
		sumCallOI += rec.CallOI
		sumCallChange += rec.CallOIChange
		sumPutOI += rec.PutOI
		sumPutChange += rec.PutOIChange
	}

	return models.AggregationResult{
		Symbol:              snapshot.Symbol,
		Date:                referenceDate,
		UnderlyingValue:     snapshot.UnderlyingValue,
		ATMStrike:           atm,
		StrikeInterval:      interval,
		Expiry:              expiry.Label,
		SumCallOI:           sumCallOI,
		SumPutOI:            sumPutOI,
		SumCallOIChange:     sumCallChange,
		SumPutOIChange:      sumPutChange,
		CombinedOIRatio:     CombinedOIRatio(sumPutOI, sumCallOI, a.convention),
		CombinedChangeRatio: CombinedChangeRatio(sumPutChange, sumCallChange, sumPutOI, sumCallOI, a.convention),
	}, nil
}

// WindowHalfWidth exposes the configured half-width for callers sizing
// progress output.
func (a *Aggregator) WindowHalfWidth() int {
	return a.windowHalfWidth
}
