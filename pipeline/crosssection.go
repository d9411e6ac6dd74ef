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

// ChainSource supplies one symbol's current option chain. The reference date
// is forwarded so the source can pick the governing expiry consistently with
// the aggregation that follows.
type ChainSource interface {
	FetchChain(ctx context.Context, symbol string, referenceDate time.Time) (models.ChainSnapshot, error)
}

// CrossSectionRun is the outcome of one cross-sectional batch: the ranked
// result table plus the symbols that could not be processed.
type CrossSectionRun struct {
	RunID    string             `json:"run_id"`
	Date     time.Time          `json:"date"`
	Results  models.ResultTable `json:"results"`
	Failures []models.Failure   `json:"failures"`
	Duration time.Duration      `json:"-"`
}

// CrossSection runs the daily snapshot pipeline: one aggregation per symbol
// against the live chain, ranked by combined change ratio. Symbols are
// processed sequentially; per-symbol failures accumulate and never abort the
// batch.
type CrossSection struct {
	source     ChainSource
	aggregator *processor.Aggregator
	location   *time.Location
	log        *logger.Log
}

func NewCrossSection(cfg *config.Config, source ChainSource, aggregator *processor.Aggregator) *CrossSection {
	return &CrossSection{
		source:     source,
		aggregator: aggregator,
		location:   cfg.Location(),
		log:        logger.GetLogger(),
	}
}

// Run processes the symbol universe. An empty universe is a structural error;
// so is a batch where every symbol failed. The returned table is sorted by
// combined change ratio descending with null ratios last.
func (c *CrossSection) Run(ctx context.Context, symbols []string) (*CrossSectionRun, error) {
	if len(symbols) == 0 {
		return nil, errors.New("no symbols to process")
	}

	start := time.Now()
	runDate := time.Now().In(c.location)
	run := &CrossSectionRun{
		RunID: uuid.NewString(),
		Date:  runDate,
	}

	log := c.log.WithComponent("cross_section").WithFields(logger.Fields{
		"run_id":  run.RunID,
		"symbols": len(symbols),
	})
	log.Info("starting cross-sectional run")

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled after %d symbols: %w", i, err)
		}

		result, err := c.processSymbol(ctx, symbol, runDate)
		if err != nil {
			run.Failures = append(run.Failures, models.Failure{Symbol: symbol, Date: runDate, Reason: err.Error()})
			log.WithFields(logger.Fields{"symbol": symbol, "progress": fmt.Sprintf("%d/%d", i+1, len(symbols))}).
				WithError(err).Warn("symbol failed")
			continue
		}

		run.Results = append(run.Results, result)
		log.WithFields(logger.Fields{
			"symbol":      symbol,
			"progress":    fmt.Sprintf("%d/%d", i+1, len(symbols)),
			"sum_call_oi": result.SumCallOI,
			"sum_put_oi":  result.SumPutOI,
		}).Debug("symbol aggregated")
	}

	if len(run.Results) == 0 {
		return nil, fmt.Errorf("no data collected: all %d symbols failed", len(symbols))
	}

	run.Results.RankByChangeRatio()
	run.Duration = time.Since(start)

	log.WithFields(logger.Fields{
		"successful": len(run.Results),
		"failed":     len(run.Failures),
	}).Info("cross-sectional run complete")
	c.log.LogMetric("cross_section", "symbols_processed", int64(len(run.Results)), "counter", nil)
	c.log.LogMetric("cross_section", "symbols_failed", int64(len(run.Failures)), "counter", nil)
	logger.LogPerformanceEntry(log, "cross_section", "run", run.Duration, logger.Fields{
		"symbols": len(symbols),
	})

	return run, nil
}

func (c *CrossSection) processSymbol(ctx context.Context, symbol string, runDate time.Time) (models.AggregationResult, error) {
	snapshot, err := c.source.FetchChain(ctx, symbol, runDate)
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("fetch chain: %w", err)
	}

	result, err := c.aggregator.Aggregate(snapshot, runDate)
	if err != nil {
		return models.AggregationResult{}, fmt.Errorf("aggregate: %w", err)
	}
	return result, nil
}
