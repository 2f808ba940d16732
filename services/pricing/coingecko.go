package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// coinGeckoIDs maps ticker symbols to CoinGecko coin identifiers.
var coinGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"XLM":   "stellar",
	"SHIB":  "shiba-inu",
	"TRX":   "tron",
	"NEAR":  "near",
	"ALGO":  "algorand",
	"FTM":   "fantom",
}

// CoinGeckoProvider fetches crypto quotes from the CoinGecko public API.
type CoinGeckoProvider struct {
	baseURL string
	client  *http.Client
}

func NewCoinGeckoProvider() *CoinGeckoProvider {
	return &CoinGeckoProvider{
		baseURL: coinGeckoBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *CoinGeckoProvider) Name() string {
	return "coingecko"
}

func (p *CoinGeckoProvider) Supports(assetType string) bool {
	return assetType == "crypto"
}

// resolveCoinID maps a ticker to a CoinGecko ID. Unknown tickers fall
// back to the lowercased symbol, which works for coins whose ID equals
// their name.
func resolveCoinID(symbol string) string {
	s := NormalizeSymbol(symbol)
	if id, ok := coinGeckoIDs[s]; ok {
		return id
	}
	return strings.ToLower(s)
}

func (p *CoinGeckoProvider) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	coinID := resolveCoinID(symbol)

	params := url.Values{}
	params.Set("ids", coinID)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/simple/price?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	data, ok := payload[coinID]
	if !ok || data["usd"] == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	return &Quote{
		Symbol:    strings.ToUpper(NormalizeSymbol(symbol)),
		Price:     data["usd"],
		Change24h: data["usd_24h_change"],
		Source:    p.Name(),
		FetchedAt: time.Now(),
	}, nil
}
