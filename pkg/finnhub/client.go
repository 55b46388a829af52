package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const baseURL = "https://finnhub.io/api/v1"

// knownCryptos are tickers resolved through the BINANCE crypto endpoint
// instead of the stock endpoints.
var knownCryptos = map[string]bool{
	"BTC": true, "ETH": true, "SOL": true, "DOGE": true,
	"XRP": true, "SHIB": true, "ADA": true,
}

// Quote is the resolved market data for a single asset
type Quote struct {
	CompanyName string
	Price       float64
	Sector      string
}

type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type quoteResponse struct {
	Current       float64  `json:"c"`
	Change        *float64 `json:"d"`
	PreviousClose float64  `json:"pc"`
}

type profileResponse struct {
	Name     string `json:"name"`
	Industry string `json:"finnhubIndustry"`
}

// GetQuote resolves a ticker to live market data, detecting whether it
// is a stock, crypto or forex symbol and using the matching endpoint.
func (c *Client) GetQuote(ctx context.Context, ticker string) (*Quote, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if symbol == "" {
		return nil, fmt.Errorf("empty ticker")
	}

	switch {
	case strings.Contains(symbol, "/"):
		return c.forexQuote(ctx, symbol)
	case knownCryptos[symbol]:
		return c.cryptoQuote(ctx, symbol)
	default:
		return c.stockQuote(ctx, symbol)
	}
}

func (c *Client) forexQuote(ctx context.Context, symbol string) (*Quote, error) {
	// Finnhub uses symbols like OANDA:EUR_USD
	var q quoteResponse
	if err := c.get(ctx, "/quote", "OANDA:"+strings.ReplaceAll(symbol, "/", "_"), &q); err != nil {
		return nil, err
	}
	if q.Current == 0 {
		return nil, fmt.Errorf("no data for forex pair %s", symbol)
	}

	return &Quote{
		CompanyName: symbol,
		Price:       q.Current,
		Sector:      "Forex",
	}, nil
}

func (c *Client) cryptoQuote(ctx context.Context, symbol string) (*Quote, error) {
	// Finnhub uses symbols like BINANCE:BTCUSDT
	var q quoteResponse
	if err := c.get(ctx, "/quote", "BINANCE:"+symbol+"USDT", &q); err != nil {
		return nil, err
	}
	if q.Current == 0 {
		return nil, fmt.Errorf("no data for crypto %s", symbol)
	}

	return &Quote{
		CompanyName: symbol + "/USD",
		Price:       q.Current,
		Sector:      "Cryptocurrency",
	}, nil
}

func (c *Client) stockQuote(ctx context.Context, symbol string) (*Quote, error) {
	var profile profileResponse
	if err := c.get(ctx, "/stock/profile2", symbol, &profile); err != nil {
		return nil, err
	}

	var q quoteResponse
	if err := c.get(ctx, "/quote", symbol, &q); err != nil {
		return nil, err
	}

	// c=0 with a null change means Finnhub has no data for the symbol
	if profile.Name == "" || (q.Current == 0 && q.Change == nil) {
		return nil, fmt.Errorf("invalid ticker or no data available for %s", symbol)
	}

	sector := profile.Industry
	if sector == "" {
		sector = "Other"
	}

	return &Quote{
		CompanyName: profile.Name,
		Price:       q.Current,
		Sector:      sector,
	}, nil
}

func (c *Client) get(ctx context.Context, path, symbol string, out interface{}) error {
	u := fmt.Sprintf("%s%s?symbol=%s&token=%s", baseURL, path, url.QueryEscape(symbol), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}
