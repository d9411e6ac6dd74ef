package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appconfig "oiflow/config"
	"oiflow/logger"
)

// Exchange suffixes tried in order. Most Indian equities trade under the NSE
// suffix; a few are only listed on the BSE.
var suffixes = []string{".NS", ".BO"}

// Client fetches daily closing prices from the Yahoo Finance chart API.
type Client struct {
	config     appconfig.YahooSourceConfig
	httpClient *http.Client
	log        *logger.Log
}

func NewClient(cfg appconfig.YahooSourceConfig) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout.Std(),
		},
		log: logger.GetLogger(),
	}
}

type chartPayload struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ClosePrices returns daily closes keyed by "2006-01-02" for the inclusive
// date range. The NSE listing is tried first, then the BSE listing; days
// where the API reports a null close are left out of the map.
func (c *Client) ClosePrices(ctx context.Context, symbol string, from, to time.Time) (map[string]float64, error) {
	var lastErr error
	for _, suffix := range suffixes {
		ticker := strings.ToUpper(symbol) + suffix
		closes, err := c.fetchTicker(ctx, ticker, from, to)
		if err != nil {
			lastErr = err
			c.log.WithComponent("yahoo_reader").WithFields(logger.Fields{
				"ticker": ticker,
			}).WithError(err).Debug("ticker lookup failed, trying next listing")
			continue
		}
		return closes, nil
	}
	return nil, fmt.Errorf("price history for %s: %w", symbol, lastErr)
}

func (c *Client) fetchTicker(ctx context.Context, ticker string, from, to time.Time) (map[string]float64, error) {
	params := url.Values{
		"period1":  {fmt.Sprintf("%d", from.Unix())},
		"period2":  {fmt.Sprintf("%d", to.AddDate(0, 0, 1).Unix())},
		"interval": {"1d"},
		"events":   {"history"},
	}
	endpoint := c.config.BaseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, ticker)
	}

	var payload chartPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", ticker, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", ticker)
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote series for %s", ticker)
	}

	closes := make(map[string]float64, len(result.Timestamp))
	quote := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue
		}
		day := time.Unix(ts, 0).UTC().Format("2006-01-02")
		closes[day] = *quote.Close[i]
	}

	logger.LogPerformanceEntry(c.log.WithComponent("yahoo_reader"), "yahoo_reader", "close_prices", time.Since(start), logger.Fields{
		"ticker": ticker,
		"days":   len(closes),
	})
	return closes, nil
}
