package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/race-picks/internal/config"
	"github.com/yourusername/race-picks/internal/models"
)

// Snapshot is the wire format produced by the external market fetcher
type Snapshot struct {
	Races []*models.RaceContext `json:"races"`
}

// SnapshotClient fetches the upcoming-races snapshot from the market fetcher
type SnapshotClient struct {
	httpClient *RateLimitedHTTPClient
	cfg        *config.ExchangeConfig
	log        *logrus.Logger
}

// NewSnapshotClient creates a snapshot client
func NewSnapshotClient(cfg *config.ExchangeConfig, httpClient *RateLimitedHTTPClient, log *logrus.Logger) *SnapshotClient {
	return &SnapshotClient{httpClient: httpClient, cfg: cfg, log: log}
}

// FetchSnapshot retrieves and validates the current market snapshot. Races
// missing required fields are dropped and logged rather than failing the
// whole snapshot.
func (c *SnapshotClient) FetchSnapshot(ctx context.Context) ([]*models.RaceContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.SnapshotURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
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
		return nil, NewTransientError("failed to read snapshot body", err)
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(body, snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w: %v", models.ErrInvalidSnapshot, err)
	}

	races := make([]*models.RaceContext, 0, len(snapshot.Races))
	for _, race := range snapshot.Races {
		if race == nil || race.MarketID == "" || race.Venue == "" || race.StartTime.IsZero() {
			c.log.WithField("market_id", marketIDOf(race)).Warn("Dropping malformed race from snapshot")
			continue
		}
		races = append(races, race)
	}

	c.log.WithFields(logrus.Fields{
		"races":   len(races),
		"dropped": len(snapshot.Races) - len(races),
	}).Debug("Snapshot fetched")

	return races, nil
}

func marketIDOf(race *models.RaceContext) string {
	if race == nil {
		return ""
	}
	return race.MarketID
}

// checkStatus maps HTTP status codes onto the exchange error taxonomy
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewAuthenticationError(fmt.Sprintf("request rejected with status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return NewPermanentError("request rejected", resp.StatusCode, nil)
	default:
		return NewTransientError(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
}
