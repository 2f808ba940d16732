package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Quote is a point-in-time price observation from a provider.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close,omitempty"`
	Change24h     float64   `json:"change_24h,omitempty"`
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Provider fetches live prices for one class of asset.
type Provider interface {
	Name() string
	Supports(assetType string) bool
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
}

// IndicatorProvider computes technical indicator values from historical
// data. Only providers with access to daily series implement it.
type IndicatorProvider interface {
	FetchIndicator(ctx context.Context, symbol, indicator string, period int) (current, previous float64, err error)
}

// ErrSymbolNotFound indicates the provider answered but does not know
// the symbol. Distinct from transport or rate-limit failures so that
// the ranked lookup can fall through to the next provider.
var ErrSymbolNotFound = errors.New("symbol not found")

// ErrRateLimited indicates the provider rejected the request because of
// quota exhaustion.
var ErrRateLimited = errors.New("provider rate limited")

// ErrInsufficientData indicates the historical series is too short for
// the requested indicator period. Callers can treat it as a property of
// the request rather than a provider fault.
var ErrInsufficientData = errors.New("insufficient data")

// knownCryptoSymbols covers the symbols commonly requested without an
// explicit asset type.
var knownCryptoSymbols = map[string]bool{
	"BTC": true, "ETH": true, "BNB": true, "XRP": true, "ADA": true,
	"SOL": true, "DOGE": true, "DOT": true, "MATIC": true, "AVAX": true,
	"LINK": true, "LTC": true, "UNI": true, "ATOM": true, "XLM": true,
	"SHIB": true, "TRX": true, "NEAR": true, "ALGO": true, "FTM": true,
}

// DetectAssetType guesses the asset type of a symbol when the caller
// passed "auto". Known crypto tickers and pair suffixes map to crypto,
// everything else is treated as a stock.
func DetectAssetType(symbol string) string {
	raw := strings.TrimSpace(symbol)
	s := strings.ToUpper(raw)
	if knownCryptoSymbols[s] {
		return "crypto"
	}
	for _, suffix := range []string{"USDT", "USDC", "-USD", "/USD"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			return "crypto"
		}
	}
	// Lowercase hyphenated tokens like "shiba-inu" are CoinGecko coin
	// ids, never stock tickers.
	if strings.Contains(raw, "-") && raw == strings.ToLower(raw) {
		return "crypto"
	}
	return "stock"
}

// NormalizeSymbol strips pair suffixes so BTCUSDT and BTC-USD resolve
// to the same underlying asset.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, suffix := range []string{"USDT", "USDC", "-USD", "/USD"} {
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

// lookupError aggregates the per-provider failures of a ranked lookup.
type lookupError struct {
	symbol   string
	failures []string
}

func (e *lookupError) Error() string {
	return fmt.Sprintf("no provider returned a price for %s: %s", e.symbol, strings.Join(e.failures, "; "))
}
