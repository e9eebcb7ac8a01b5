package connector

import (
	"context"
	"net/http"
	"strings"
	"time"

	"pulseboard/internal/config"
	"pulseboard/internal/domain"
	"pulseboard/internal/transform"
)

const (
	coinGeckoSource  = "coingecko"
	coinGeckoBaseURL = "https://api.coingecko.com/api/v3"
)

// Built-in metric-to-coin mapping; series_id overrides when set.
var coinGeckoCoinMap = map[string]string{
	"crypto.bitcoin":  "bitcoin",
	"crypto.ethereum": "ethereum",
}

// CoinGecko pulls the current USD price for a coin and emits it as a
// single observation dated today.
type CoinGecko struct {
	baseURL string
	client  *http.Client
}

var _ MetricConnector = (*CoinGecko)(nil)

// NewCoinGecko wires an optional HTTP client.
func NewCoinGecko(client *http.Client) *CoinGecko {
	if client == nil {
		client = newHTTPClient()
	}
	return &CoinGecko{baseURL: coinGeckoBaseURL, client: client}
}

func (c *CoinGecko) Source() string { return coinGeckoSource }

type coinGeckoCoin struct {
	MarketData struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// Fetch requests coin market data, trimming the heavyweight sections.
func (c *CoinGecko) Fetch(ctx context.Context, cfg config.Metric) FetchResult {
	coinID := coinGeckoCoinMap[cfg.ID]
	if cfg.SeriesID != "" {
		coinID = cfg.SeriesID
	}
	if coinID == "" {
		// crypto.dogecoin -> dogecoin
		if i := strings.LastIndex(cfg.ID, "."); i >= 0 {
			coinID = cfg.ID[i+1:]
		} else {
			coinID = cfg.ID
		}
	}

	url := c.baseURL + "/coins/" + coinID +
		"?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false"

	var payload coinGeckoCoin
	if err := getJSON(ctx, c.client, url, nil, &payload); err != nil {
		return Fail(coinGeckoSource, "%v", err)
	}

	return Ok(coinGeckoSource, payload)
}

// Normalize emits one observation for the current USD price.
func (c *CoinGecko) Normalize(cfg config.Metric, raw any) []domain.Observation {
	coin, ok := raw.(coinGeckoCoin)
	if !ok {
		return nil
	}

	price, ok := coin.MarketData.CurrentPrice["usd"]
	if !ok {
		return nil
	}

	unit := cfg.Unit
	if unit == "" {
		unit = "$"
	}

	now := time.Now().UTC()
	return []domain.Observation{{
		MetricID:    cfg.ID,
		Date:        now.Format("2006-01-02"),
		Value:       transform.Round(price*cfg.Scale(), cfg.DecimalPlaces()),
		Unit:        unit,
		Source:      coinGeckoSource,
		RetrievedAt: now,
	}}
}
