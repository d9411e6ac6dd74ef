package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"oiflow/config"
	"oiflow/logger"
	"oiflow/models"
	"oiflow/processor"
)

// DayChainSource reconstructs one symbol's option chain for a single past
// trading day.
type DayChainSource interface {
	FetchDayChain(ctx context.Context, symbol string, day time.Time) (models.ChainSnapshot, error)
}

// PriceSource supplies daily closing prices keyed by "2006-01-02". The chain
// snapshot's own underlying value is used when the feed has a gap for a day.
type PriceSource interface {
	ClosePrices(ctx context.Context, symbol string, from, to time.Time) (map[string]float64, error)
}

// HistoricalRun is a day-ordered OI series for one symbol. Days with no
// retrievable data are gaps in the series, not null rows; they show up in
// Skipped instead.
type HistoricalRun struct {
	RunID    string             `json:"run_id"`
	Symbol   string             `json:"symbol"`
	From     time.Time          `json:"from"`
	To       time.Time          `json:"to"`
	Results  models.ResultTable `json:"results"`
	Skipped  []models.Failure   `json:"skipped"`
	Duration time.Duration      `json:"-"`
}

// Historical runs the date-by-date pipeline: each trading day independently
// infers its own interval, ATM strike, and nearest expiry, exactly as the
// cross-sectional pipeline does for the live chain.
type Historical struct {
	chains     DayChainSource
	prices     PriceSource
	aggregator *processor.Aggregator
	log        *logger.Log
}

func NewHistorical(cfg *config.Config, chains DayChainSource, prices PriceSource, aggregator *processor.Aggregator) *Historical {
	return &Historical{
		chains:     chains,
		prices:     prices,
		aggregator: aggregator,
		log:        logger.GetLogger(),
	}
}

// Run walks the calendar range, skipping weekends, and aggregates each
// trading day that has data. Only an invalid range or a fully empty series is
// an error.
func (h *Historical) Run(ctx context.Context, symbol string, from, to time.Time) (*HistoricalRun, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is before %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	start := time.Now()
	run := &HistoricalRun{
		RunID:  uuid.NewString(),
		Symbol: symbol,
		From:   from,
		To:     to,
	}

	log := h.log.WithComponent("historical").WithFields(logger.Fields{
		"run_id": run.RunID,
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	})
	log.Info("starting historical run")

	closes := map[string]float64{}
	if h.prices != nil {
		var err error
		closes, err = h.prices.ClosePrices(ctx, symbol, from, to)
		if err != nil {
			// The chain's own underlying value still covers most days.
			log.WithError(err).Warn("price history unavailable, relying on chain underlying values")
			closes = map[string]float64{}
		}
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled at %s: %w", day.Format("2006-01-02"), err)
		}
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		result, err := h.processDay(ctx, symbol, day, closes)
		if err != nil {
			run.Skipped = append(run.Skipped, models.Failure{Symbol: symbol, Date: day, Reason: err.Error()})
			log.WithFields(logger.Fields{"day": day.Format("2006-01-02")}).WithError(err).Debug("day skipped")
			continue
		}

		run.Results = append(run.Results, result)
	}

	if len(run.Results) == 0 {
		return nil, fmt.Errorf("no data collected for %s between %s and %s",
			symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	run.Results.SortByDate()
	run.Duration = time.Since(start)

	log.WithFields(logger.Fields{
		"days_collected": len(run.Results),
		"days_skipped":   len(run.Skipped),
	}).Info("historical run complete")
	logger.LogPerformanceEntry(log, "historical", "run", run.Duration, logger.Fields{
		"symbol": symbol,
	})

	return run, nil
}

func (h *Historical) processDay(ctx context.Context, symbol string, day time.Time, closes map[string]float64) (models.AggregationResult, error) {
	snapshot, err := h.chains.FetchDayChain(ctx, symbol, day)
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("fetch day chain: %w", err)
	}
	if len(snapshot.Records) == 0 {
		return models.AggregationResult{}, errors.New("no option records for day")
	}

	// The close from the price feed wins over the chain's underlying value;
	// the latter fills price-feed gaps.
	if close, ok := closes[day.Format("2006-01-02")]; ok && close > 0 {
		snapshot.UnderlyingValue = close
	}
	if snapshot.UnderlyingValue <= 0 {
		return models.AggregationResult{}, errors.New("cannot determine underlying price")
	}

	result, err := h.aggregator.Aggregate(snapshot, day)
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("aggregate: %w", err)
	}
	return result, nil
}
