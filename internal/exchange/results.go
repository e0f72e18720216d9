package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/config"
)

// RunnerResult is the settled status of a single runner
type RunnerResult string

const (
	RunnerResultWinner  RunnerResult = "WINNER"
	RunnerResultPlaced  RunnerResult = "PLACED"
	RunnerResultLoser   RunnerResult = "LOSER"
	RunnerResultRemoved RunnerResult = "REMOVED"
	RunnerResultActive  RunnerResult = "ACTIVE"
)

// MarketStatus is the settled state of a market
type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "OPEN"
	MarketStatusSuspended MarketStatus = "SUSPENDED"
	MarketStatusClosed    MarketStatus = "CLOSED"
)

// MarketResult is the per-market response from the results fetcher
type MarketResult struct {
	MarketID     string                  `json:"market_id"`
	MarketStatus MarketStatus            `json:"market_status"`
	Runners      map[string]RunnerResult `json:"runners"` // keyed by selection_id
}

// IsSettled reports whether the market has closed and results are final
func (m *MarketResult) IsSettled() bool {
	return m.MarketStatus == MarketStatusClosed
}

// ResultsClient fetches settled runner statuses from the results fetcher
type ResultsClient struct {
	httpClient *RateLimitedHTTPClient
	cfg        *config.ExchangeConfig
	log        *logrus.Logger
}

// NewResultsClient creates a results client
func NewResultsClient(cfg *config.ExchangeConfig, httpClient *RateLimitedHTTPClient, log *logrus.Logger) *ResultsClient {
	return &ResultsClient{httpClient: httpClient, cfg: cfg, log: log}
}

// FetchMarketResult retrieves the settled result for one market
func (c *ResultsClient) FetchMarketResult(ctx context.Context, marketID string) (*MarketResult, error) {
	endpoint := fmt.Sprintf("%s?market_id=%s", c.cfg.ResultsURL, url.QueryEscape(marketID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build results request: %w", err)
	}
	req.Header.Set("X-Application", c.cfg.AppKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError("failed to read results body", err)
	}

	result := &MarketResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, NewPermanentError("failed to parse results response", resp.StatusCode, err)
	}
	if result.MarketID == "" {
		result.MarketID = marketID
	}

	c.log.WithFields(logrus.Fields{
		"market_id":     result.MarketID,
		"market_status": result.MarketStatus,
		"runners":       len(result.Runners),
	}).Debug("Market result fetched")

	return result, nil
}
