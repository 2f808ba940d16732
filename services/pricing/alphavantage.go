package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/markcheno/go-talib"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider fetches stock quotes and daily series from the
// Alpha Vantage REST API.
type AlphaVantageProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAlphaVantageProvider(apiKey string) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		apiKey:  apiKey,
		baseURL: alphaVantageBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

func (p *AlphaVantageProvider) Supports(assetType string) bool {
	return assetType == "stock"
}

func (p *AlphaVantageProvider) query(ctx context.Context, params url.Values) (map[string]json.RawMessage, error) {
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// The free tier signals quota exhaustion in the body with a 200
	if _, ok := payload["Note"]; ok {
		return nil, ErrRateLimited
	}
	if _, ok := payload["Information"]; ok {
		return nil, ErrRateLimited
	}
	if msg, ok := payload["Error Message"]; ok {
		var text string
		_ = json.Unmarshal(msg, &text)
		return nil, fmt.Errorf("alphavantage error: %s", text)
	}

	return payload, nil
}

func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	payload, err := p.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload["Global Quote"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	var quote map[string]string
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("failed to parse quote: %w", err)
	}
	if len(quote) == 0 || quote["05. price"] == "" {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	price, err := strconv.ParseFloat(quote["05. price"], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for %s: %w", quote["05. price"], symbol, err)
	}

	result := &Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     price,
		Source:    p.Name(),
		FetchedAt: time.Now(),
	}
	if prev, err := strconv.ParseFloat(quote["08. previous close"], 64); err == nil {
		result.PreviousClose = prev
	}
	if pct := strings.TrimSuffix(quote["10. change percent"], "%"); pct != "" {
		if change, err := strconv.ParseFloat(pct, 64); err == nil {
			result.Change24h = change
		}
	}
	return result, nil
}

// fetchDailyCloses returns closing prices in chronological order.
func (p *AlphaVantageProvider) fetchDailyCloses(ctx context.Context, symbol string) ([]float64, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	payload, err := p.query(ctx, params)
	if err != nil {
		return nil, err
	}

	raw, ok := payload["Time Series (Daily)"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("failed to parse daily series: %w", err)
	}

	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	closes := make([]float64, 0, len(dates))
	for _, date := range dates {
		c, err := strconv.ParseFloat(series[date]["4. close"], 64)
		if err != nil {
			continue
		}
		closes = append(closes, c)
	}
	return closes, nil
}

// FetchIndicator computes the current and previous value of a technical
// indicator from the daily close series. Supported: rsi, sma.
func (p *AlphaVantageProvider) FetchIndicator(ctx context.Context, symbol, indicator string, period int) (float64, float64, error) {
	closes, err := p.fetchDailyCloses(ctx, symbol)
	if err != nil {
		return 0, 0, err
	}

	var values []float64
	switch strings.ToLower(indicator) {
	case "rsi":
		if len(closes) < period+2 {
			return 0, 0, fmt.Errorf("%w for rsi(%d) on %s: %d points", ErrInsufficientData, period, symbol, len(closes))
		}
		values = talib.Rsi(closes, period)
	case "sma":
		if len(closes) < period+1 {
			return 0, 0, fmt.Errorf("%w for sma(%d) on %s: %d points", ErrInsufficientData, period, symbol, len(closes))
		}
		values = talib.Sma(closes, period)
	default:
		return 0, 0, fmt.Errorf("unsupported indicator %q", indicator)
	}

	if len(values) < 2 {
		return 0, 0, fmt.Errorf("%w: indicator output too short for %s on %s", ErrInsufficientData, indicator, symbol)
	}
	return values[len(values)-1], values[len(values)-2], nil
}
