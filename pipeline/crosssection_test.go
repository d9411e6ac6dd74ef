package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"oiflow/config"
	"oiflow/models"
	"oiflow/processor"
)

type stubChainSource struct {
	snapshots map[string]models.ChainSnapshot
	errs      map[string]error
}

func (s *stubChainSource) FetchChain(ctx context.Context, symbol string, referenceDate time.Time) (models.ChainSnapshot, error) {
	if err, ok := s.errs[symbol]; ok {
		return models.ChainSnapshot{}, err
	}
	return s.snapshots[symbol], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			FallbackInterval: 50,
			WindowHalfWidth:  3,
			RatioConvention:  config.RatioConventionFraction4,
			Timezone:         "UTC",
		},
	}
}

func testAggregator(t *testing.T) *processor.Aggregator {
	t.Helper()
	agg, err := processor.NewAggregator(testConfig().Pipeline)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}
	return agg
}

func snapshotFor(symbol string, underlying float64, putChange int64) models.ChainSnapshot {
	expiry := time.Now().UTC().AddDate(0, 0, 7)
	label := expiry.Format(models.ExpiryLabelLayout)
	records := []models.StrikeRecord{}
	atm := underlying
	for i := -3; i <= 3; i++ {
		records = append(records, models.StrikeRecord{
			Strike:       atm + float64(i)*50,
			Expiry:       expiry,
			CallOI:       100,
			PutOI:        100,
			CallOIChange: 10,
			PutOIChange:  putChange,
		})
	}
	return models.ChainSnapshot{
		Symbol:          symbol,
		UnderlyingValue: underlying,
		Records:         records,
		Expiries:        []models.ExpiryCandidate{{Date: expiry, Label: label}},
	}
}

func TestCrossSectionRun(t *testing.T) {
	source := &stubChainSource{
		snapshots: map[string]models.ChainSnapshot{
			"AAA": snapshotFor("AAA", 500, 20),
			"BBB": snapshotFor("BBB", 1000, 90),
		},
		errs: map[string]error{
			"CCC": errors.New("connection reset"),
		},
	}

	cs := NewCrossSection(testConfig(), source, testAggregator(t))
	run, err := cs.Run(context.Background(), []string{"AAA", "BBB", "CCC"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(run.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(run.Results))
	}
	if len(run.Failures) != 1 || run.Failures[0].Symbol != "CCC" {
		t.Fatalf("expected CCC failure, got %+v", run.Failures)
	}

	// BBB has the larger put change, so it ranks first.
	if run.Results[0].Symbol != "BBB" {
		t.Errorf("expected BBB ranked first, got %s", run.Results[0].Symbol)
	}
	if run.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestCrossSectionEmptyUniverse(t *testing.T) {
	cs := NewCrossSection(testConfig(), &stubChainSource{}, testAggregator(t))
	if _, err := cs.Run(context.Background(), nil); err == nil {
		t.Error("expected error for empty universe")
	}
}

func TestCrossSectionAllFailed(t *testing.T) {
	source := &stubChainSource{
		errs: map[string]error{
			"AAA": errors.New("timeout"),
			"BBB": errors.New("timeout"),
		},
	}

	cs := NewCrossSection(testConfig(), source, testAggregator(t))
	if _, err := cs.Run(context.Background(), []string{"AAA", "BBB"}); err == nil {
		t.Error("expected structural error when every symbol fails")
	}
}

func TestCrossSectionCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cs := NewCrossSection(testConfig(), &stubChainSource{}, testAggregator(t))
	if _, err := cs.Run(ctx, []string{"AAA"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
