package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"oiflow/logger"
	"oiflow/models"
)

// csvRow is the flat export shape. Ratio columns are strings so a missing
// ratio exports as an empty cell rather than a zero.
type csvRow struct {
	Symbol          string `csv:"symbol"`
	Date            string `csv:"date"`
	UnderlyingValue string `csv:"underlying_value"`
	ATMStrike       string `csv:"atm_strike"`
	StrikeInterval  string `csv:"strike_interval"`
	Expiry          string `csv:"expiry"`
	SumCallOI       int64  `csv:"sum_call_oi"`
	SumPutOI        int64  `csv:"sum_put_oi"`
	SumCallOIChange int64  `csv:"sum_call_oi_change"`
	SumPutOIChange  int64  `csv:"sum_put_oi_change"`
	CombinedOIRatio string `csv:"combined_oi_ratio"`
	CombinedChgRat  string `csv:"combined_change_ratio"`
}

// DailyFileName names the cross-sectional export for a run date.
func DailyFileName(date time.Time) string {
	return fmt.Sprintf("stock_OI_data_%s.csv", date.Format("2006-01-02"))
}

// HistoricalFileName names the per-symbol historical export.
func HistoricalFileName(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s_OI_historical_%s_%s.csv",
		symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// CSVWriter exports result tables to disk.
type CSVWriter struct {
	outputDir string
	log       *logger.Log
}

func NewCSVWriter(outputDir string) *CSVWriter {
	return &CSVWriter{
		outputDir: outputDir,
		log:       logger.GetLogger(),
	}
}

// Write exports the table to the named file under the output directory and
// returns the full path written.
func (w *CSVWriter) Write(table models.ResultTable, filename string) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	rows := make([]csvRow, 0, len(table))
	for _, r := range table {
		rows = append(rows, toCSVRow(r))
	}

	path := filepath.Join(w.outputDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}

	w.log.WithComponent("csv_writer").WithFields(logger.Fields{
		"path": path,
		"rows": len(rows),
	}).Info("csv export complete")

	return path, nil
}

func toCSVRow(r models.AggregationResult) csvRow {
	return csvRow{
		Symbol:          r.Symbol,
		Date:            r.Date.Format("2006-01-02"),
		UnderlyingValue: strconv.FormatFloat(r.UnderlyingValue, 'f', 2, 64),
		ATMStrike:       strconv.FormatFloat(r.ATMStrike, 'f', 2, 64),
		StrikeInterval:  strconv.FormatFloat(r.StrikeInterval, 'f', 2, 64),
		Expiry:          r.Expiry,
		SumCallOI:       r.SumCallOI,
		SumPutOI:        r.SumPutOI,
		SumCallOIChange: r.SumCallOIChange,
		SumPutOIChange:  r.SumPutOIChange,
		CombinedOIRatio: formatRatio(r.CombinedOIRatio),
		CombinedChgRat:  formatRatio(r.CombinedChangeRatio),
	}
}

// formatRatio renders a ratio cell. Nil means the ratio was undefined for the
// row and exports as empty, never as zero.
func formatRatio(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
