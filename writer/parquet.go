package writer

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"oiflow/models"
)

// ParquetRecord is the archive row shape. Ratio columns are optional so an
// undefined ratio stays null in the file.
type ParquetRecord struct {
	Symbol          string   `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date            string   `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	UnderlyingValue float64  `parquet:"name=underlying_value, type=DOUBLE"`
	ATMStrike       float64  `parquet:"name=atm_strike, type=DOUBLE"`
	StrikeInterval  float64  `parquet:"name=strike_interval, type=DOUBLE"`
	Expiry          string   `parquet:"name=expiry, type=BYTE_ARRAY, convertedtype=UTF8"`
	SumCallOI       int64    `parquet:"name=sum_call_oi, type=INT64"`
	SumPutOI        int64    `parquet:"name=sum_put_oi, type=INT64"`
	SumCallOIChange int64    `parquet:"name=sum_call_oi_change, type=INT64"`
	SumPutOIChange  int64    `parquet:"name=sum_put_oi_change, type=INT64"`
	CombinedOIRatio *float64 `parquet:"name=combined_oi_ratio, type=DOUBLE, repetitiontype=OPTIONAL"`
	CombinedChgRat  *float64 `parquet:"name=combined_change_ratio, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// memoryFileWriter implements the ParquetFile interface over a buffer so the
// file is built fully in memory before upload.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// EncodeParquet serializes a result table to parquet bytes with snappy
// compression.
func EncodeParquet(table models.ResultTable) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := pqwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range table {
		record := ParquetRecord{
			Symbol:          r.Symbol,
			Date:            r.Date.Format("2006-01-02"),
			UnderlyingValue: r.UnderlyingValue,
			ATMStrike:       r.ATMStrike,
			StrikeInterval:  r.StrikeInterval,
			Expiry:          r.Expiry,
			SumCallOI:       r.SumCallOI,
			SumPutOI:        r.SumPutOI,
			SumCallOIChange: r.SumCallOIChange,
			SumPutOIChange:  r.SumPutOIChange,
			CombinedOIRatio: r.CombinedOIRatio,
			CombinedChgRat:  r.CombinedChangeRatio,
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}

	return fw.Bytes(), nil
}
