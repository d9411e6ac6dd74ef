package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
	"oiflow/processor"
)

const (
	warmupPath       = "/option-chain"
	contractInfoPath = "/api/option-chain-contract-info"
	chainPath        = "/api/option-chain-v3"
)

// Client talks to the NSE option-chain endpoints. NSE gates its JSON APIs
// behind cookies issued on the public pages, so the client keeps a cookie jar
// and warms it up with one page request before the first API call. All
// requests share a politeness rate limiter.
type Client struct {
	config     appconfig.NSESourceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log

	warmupOnce sync.Once
	warmupErr  error
}

// NewClient builds an NSE client from source configuration.
func NewClient(cfg appconfig.NSESourceConfig) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout.Std(),
			Jar:       jar,
			Transport: browserTransport{agent: cfg.UserAgent},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		log:     logger.GetLogger(),
	}, nil
}

// FetchChain retrieves the current option chain for one symbol: contract info
// first for the expiry listing, then the chain itself for the governing
// expiry. The snapshot's records carry that expiry so downstream aggregation
// reselects the same contract.
func (c *Client) FetchChain(ctx context.Context, symbol string, referenceDate time.Time) (models.ChainSnapshot, error) {
	c.warmUp(ctx)

	labels, err := c.fetchExpiryLabels(ctx, symbol)
	if err != nil {
		return models.ChainSnapshot{}, err
	}

	candidates := models.ParseExpiryLabels(labels)
	if len(candidates) == 0 {
		return models.ChainSnapshot{}, fmt.Errorf("no parseable expiry dates for %s", symbol)
	}

	expiry, _ := processor.SelectExpiry(candidates, referenceDate)

	snapshot, err := c.fetchChainForExpiry(ctx, symbol, expiry)
	if err != nil {
		return models.ChainSnapshot{}, err
	}
	snapshot.Expiries = candidates
	return snapshot, nil
}

// warmUp primes the cookie jar once per client. Failures are logged and the
// API calls proceed anyway; some deployments sit behind proxies that do not
// need the cookies.
func (c *Client) warmUp(ctx context.Context) {
	c.warmupOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+warmupPath, nil)
		if err != nil {
			c.warmupErr = err
			return
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.WithComponent("nse_reader").WithError(err).Warn("warm-up request failed")
			c.warmupErr = err
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		c.log.WithComponent("nse_reader").WithFields(logger.Fields{
			"status": resp.StatusCode,
		}).Debug("warm-up request complete")
	})
}

type contractInfoPayload struct {
	ExpiryDates []string `json:"expiryDates"`
}

func (c *Client) fetchExpiryLabels(ctx context.Context, symbol string) ([]string, error) {
	params := url.Values{"symbol": {symbol}}

	var payload contractInfoPayload
	if err := c.getJSON(ctx, contractInfoPath, params, &payload); err != nil {
		return nil, fmt.Errorf("contract info for %s: %w", symbol, err)
	}
	if len(payload.ExpiryDates) == 0 {
		return nil, fmt.Errorf("no expiry dates listed for %s", symbol)
	}
	return payload.ExpiryDates, nil
}

type chainLeg struct {
	OpenInterest         float64 `json:"openInterest"`
	ChangeInOpenInterest float64 `json:"changeinOpenInterest"`
	UnderlyingValue      float64 `json:"underlyingValue"`
}

type chainRow struct {
	StrikePrice float64   `json:"strikePrice"`
	CE          *chainLeg `json:"CE"`
	PE          *chainLeg `json:"PE"`
}

// chainPayload tolerates both response shapes the v3 endpoint has served:
// rows nested under "records" and rows at the top level.
type chainPayload struct {
	Records struct {
		Data            []chainRow `json:"data"`
		UnderlyingValue float64    `json:"underlyingValue"`
	} `json:"records"`
	Data            []chainRow `json:"data"`
	UnderlyingValue float64    `json:"underlyingValue"`
}

func (c *Client) fetchChainForExpiry(ctx context.Context, symbol string, expiry models.ExpiryCandidate) (models.ChainSnapshot, error) {
	params := url.Values{
		"type":   {"Equity"},
		"symbol": {symbol},
		"expiry": {expiry.Label},
	}

	var payload chainPayload
	if err := c.getJSON(ctx, chainPath, params, &payload); err != nil {
		return models.ChainSnapshot{}, fmt.Errorf("option chain for %s: %w", symbol, err)
	}

	rows := payload.Records.Data
	underlying := payload.Records.UnderlyingValue
	if len(rows) == 0 {
		rows = payload.Data
		underlying = payload.UnderlyingValue
	}
	if len(rows) == 0 {
		return models.ChainSnapshot{}, fmt.Errorf("no option chain data for %s", symbol)
	}

	records := make([]models.StrikeRecord, 0, len(rows))
	for _, row := range rows {
		if row.StrikePrice <= 0 {
			continue
		}
		rec := models.StrikeRecord{
			Strike: processor.Round2(row.StrikePrice),
			Expiry: expiry.Date,
		}
		if row.CE != nil {
			rec.CallOI = int64(row.CE.OpenInterest)
			rec.CallOIChange = int64(row.CE.ChangeInOpenInterest)
			if underlying == 0 {
				underlying = row.CE.UnderlyingValue
			}
		}
		if row.PE != nil {
			rec.PutOI = int64(row.PE.OpenInterest)
			rec.PutOIChange = int64(row.PE.ChangeInOpenInterest)
			if underlying == 0 {
				underlying = row.PE.UnderlyingValue
			}
		}
		records = append(records, rec)
	}

	return models.ChainSnapshot{
		Symbol:          strings.ToUpper(symbol),
		UnderlyingValue: underlying,
		Records:         records,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	logger.LogPerformanceEntry(c.log.WithComponent("nse_reader"), "nse_reader", "get_json", time.Since(start), logger.Fields{
		"path":  path,
		"bytes": len(body),
	})
	return nil
}
