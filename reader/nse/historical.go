package nse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oiflow/models"
	"oiflow/processor"
)

const historicalPath = "/api/historicalOR/foCPV"

// historicalRow mirrors one row of the derivatives archive. The archive
// serves every numeric field as a string, so parsing happens per field and a
// bad field drops the row rather than the day.
type historicalRow struct {
	Timestamp       string `json:"FH_TIMESTAMP"`
	ExpiryDate      string `json:"FH_EXPIRY_DT"`
	OptionType      string `json:"FH_OPTION_TYPE"`
	StrikePrice     string `json:"FH_STRIKE_PRICE"`
	OpenInterest    string `json:"FH_OPEN_INT"`
	ChangeInOI      string `json:"FH_CHANGE_IN_OI"`
	UnderlyingValue string `json:"FH_UNDERLYING_VALUE"`
}

type historicalPayload struct {
	Data []historicalRow `json:"data"`
}

// FetchDayChain reconstructs the option chain for a single past trading day
// from the derivatives archive. Rows from every expiry traded that day are
// kept, each tagged with its expiry, so the aggregator can reselect the
// nearest one. Malformed rows are skipped.
func (c *Client) FetchDayChain(ctx context.Context, symbol string, day time.Time) (models.ChainSnapshot, error) {
	c.warmUp(ctx)

	dayLabel := day.Format("02-01-2006")
	params := url.Values{
		"from":           {dayLabel},
		"to":             {dayLabel},
		"instrumentType": {"OPTSTK"},
		"symbol":         {symbol},
	}

	var payload historicalPayload
	if err := c.getJSON(ctx, historicalPath, params, &payload); err != nil {
		return models.ChainSnapshot{}, fmt.Errorf("historical chain for %s on %s: %w", symbol, dayLabel, err)
	}

	wantStamp := strings.ToUpper(day.Format("02-Jan-2006"))

	type legKey struct {
		strike int64
		expiry string
	}
	merged := make(map[legKey]*models.StrikeRecord)
	order := make([]legKey, 0, len(payload.Data))
	expirySet := make(map[string]struct{})
	var underlying float64

	dropped := 0
	for _, row := range payload.Data {
		if row.Timestamp != "" && !strings.EqualFold(row.Timestamp, wantStamp) {
			continue
		}

		strike, err := strconv.ParseFloat(strings.TrimSpace(row.StrikePrice), 64)
		if err != nil || strike <= 0 {
			dropped++
			continue
		}
		expiryDate, err := time.Parse(models.ExpiryLabelLayout, strings.TrimSpace(row.ExpiryDate))
		if err != nil {
			dropped++
			continue
		}

		oi := parseArchiveInt(row.OpenInterest)
		chg := parseArchiveInt(row.ChangeInOI)

		if underlying == 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row.UnderlyingValue), 64); err == nil && v > 0 {
				underlying = v
			}
		}

		key := legKey{strike: processor.StrikeKey(strike), expiry: row.ExpiryDate}
		rec, ok := merged[key]
		if !ok {
			rec = &models.StrikeRecord{Strike: processor.Round2(strike), Expiry: expiryDate}
			merged[key] = rec
			order = append(order, key)
		}

		switch strings.ToUpper(strings.TrimSpace(row.OptionType)) {
		case "CE":
			rec.CallOI += oi
			rec.CallOIChange += chg
		case "PE":
			rec.PutOI += oi
			rec.PutOIChange += chg
		default:
			dropped++
		}
		expirySet[strings.TrimSpace(row.ExpiryDate)] = struct{}{}
	}

	if dropped > 0 {
		c.log.WithComponent("nse_reader").WithFields(map[string]interface{}{
			"symbol":  symbol,
			"day":     dayLabel,
			"dropped": dropped,
		}).Debug("dropped malformed archive rows")
	}

	records := make([]models.StrikeRecord, 0, len(order))
	for _, key := range order {
		records = append(records, *merged[key])
	}

	labels := make([]string, 0, len(expirySet))
	for label := range expirySet {
		labels = append(labels, label)
	}

	return models.ChainSnapshot{
		Symbol:          strings.ToUpper(symbol),
		UnderlyingValue: underlying,
		Records:         records,
		Expiries:        models.ParseExpiryLabels(labels),
	}, nil
}

// parseArchiveInt reads an archive numeric cell, tolerating blanks, decimal
// points, and thousands separators. Unreadable cells count as zero.
func parseArchiveInt(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(v)
	}
	return 0
}
