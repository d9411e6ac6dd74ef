package writer

import (
	"os"
	"strings"
	"testing"
	"time"

	"oiflow/models"
)

func ratio(v float64) *float64 { return &v }

func sampleTable() models.ResultTable {
	return models.ResultTable{
		{
			Symbol:              "RELIANCE",
			Date:                time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			UnderlyingValue:     205.35,
			ATMStrike:           200,
			StrikeInterval:      50,
			Expiry:              "27-Mar-2025",
			SumCallOI:           3610,
			SumPutOI:            4205,
			SumCallOIChange:     300,
			SumPutOIChange:      300,
			CombinedOIRatio:     ratio(0.1648),
			CombinedChangeRatio: ratio(0),
		},
		{
			Symbol:          "TCS",
			Date:            time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			UnderlyingValue: 4100,
			ATMStrike:       4100,
			StrikeInterval:  100,
			Expiry:          "27-Mar-2025",
		},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()

	path, err := NewCSVWriter(dir).Write(sampleTable(), "test.csv")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	content := string(data)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "combined_oi_ratio") {
		t.Errorf("missing ratio header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "RELIANCE") || !strings.Contains(lines[1], "0.1648") {
		t.Errorf("unexpected first row: %s", lines[1])
	}

	// TCS has no OI at all; its ratio cells must be empty, not zero.
	if !strings.HasSuffix(lines[2], ",,") {
		t.Errorf("expected empty trailing ratio cells, got: %s", lines[2])
	}
}

func TestFileNames(t *testing.T) {
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	if got := DailyFileName(date); got != "stock_OI_data_2025-03-03.csv" {
		t.Errorf("DailyFileName = %s", got)
	}

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := HistoricalFileName("TCS", from, date); got != "TCS_OI_historical_2025-01-01_2025-03-03.csv" {
		t.Errorf("HistoricalFileName = %s", got)
	}
}
