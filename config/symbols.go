package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadSymbolUniverse reads the FnO stock list from a CSV file. The file must
// contain a "Symbol" column (matched case-insensitively); blank cells are
// skipped. Column order and any extra columns are ignored.
func LoadSymbolUniverse(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols header: %w", err)
	}

	symbolCol := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "symbol") {
			symbolCol = i
			break
		}
	}
	if symbolCol == -1 {
		return nil, fmt.Errorf("no 'Symbol' column found in %s (columns: %s)", path, strings.Join(header, ", "))
	}

	var symbols []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read symbols row: %w", err)
		}
		if symbolCol >= len(row) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(row[symbolCol]))
		if symbol == "" {
			continue
		}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols file %s contains no symbols", path)
	}

	return symbols, nil
}
