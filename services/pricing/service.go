package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

const maxFetchAttempts = 3

// PriceService resolves quotes through a ranked list of providers with
// caching and per-provider rate limiting in front.
type PriceService struct {
	providers []Provider
	cache     *QuoteCache
	limiter   *RateLimiter
}

func NewPriceService(providers []Provider, cache *QuoteCache, limiter *RateLimiter) *PriceService {
	if cache == nil {
		cache = NewQuoteCache(DefaultCacheTTL)
	}
	if limiter == nil {
		limiter = NewRateLimiter()
	}
	return &PriceService{
		providers: providers,
		cache:     cache,
		limiter:   limiter,
	}
}

// DefaultPriceService wires the standard provider ranking: Alpha
// Vantage for stocks, CoinGecko for crypto.
func DefaultPriceService(alphaVantageKey string, coinGeckoEnabled bool) *PriceService {
	limiter := NewRateLimiter()
	limiter.SetMinInterval("alphavantage", 12*time.Second)
	limiter.SetMinInterval("coingecko", 1200*time.Millisecond)

	providers := []Provider{NewAlphaVantageProvider(alphaVantageKey)}
	if coinGeckoEnabled {
		providers = append(providers, NewCoinGeckoProvider())
	}
	return NewPriceService(providers, NewQuoteCache(DefaultCacheTTL), limiter)
}

// GetQuote returns a quote for the symbol, resolving asset type "auto"
// through symbol heuristics. With "auto" the heuristically preferred
// asset class is tried first and the other class serves as a fallback,
// so a memecoin that looks like a stock ticker still resolves. Within
// each class the providers are tried in ranked order; the first success
// wins and is cached. When every eligible provider fails the combined
// failure reasons are returned, collapsed to a single not-found error
// when no provider knows the symbol at all.
func (s *PriceService) GetQuote(ctx context.Context, symbol, assetType string) (*Quote, error) {
	assetTypes := []string{assetType}
	if assetType == "" || assetType == "auto" {
		preferred := DetectAssetType(symbol)
		if preferred == "crypto" {
			assetTypes = []string{"crypto", "stock"}
		} else {
			assetTypes = []string{"stock", "crypto"}
		}
	}

	var failures []string
	tried := 0
	notFoundEverywhere := true
	for _, at := range assetTypes {
		if quote, ok := s.cache.Get(symbol, at); ok {
			return quote, nil
		}

		for _, provider := range s.providers {
			if !provider.Supports(at) {
				continue
			}
			tried++

			if !s.limiter.Allow(provider.Name()) {
				notFoundEverywhere = false
				failures = append(failures, fmt.Sprintf("%s: rate limited, retry in %s",
					provider.Name(), s.limiter.NextAllowedIn(provider.Name()).Round(time.Second)))
				continue
			}

			quote, err := s.fetchWithRetry(ctx, provider, symbol)
			if err != nil {
				if errors.Is(err, ErrSymbolNotFound) {
					// A definitive answer, not a provider fault
					failures = append(failures, fmt.Sprintf("%s: symbol not found", provider.Name()))
				} else {
					notFoundEverywhere = false
					s.limiter.RecordFailure(provider.Name())
					failures = append(failures, fmt.Sprintf("%s: %v", provider.Name(), err))
				}
				log.Printf("Price fetch failed for %s via %s: %v", symbol, provider.Name(), err)
				continue
			}

			s.limiter.RecordSuccess(provider.Name())
			s.cache.Set(symbol, at, quote)
			return quote, nil
		}
	}

	if tried == 0 {
		return nil, fmt.Errorf("no provider supports asset type %q for %s", assetType, symbol)
	}
	if notFoundEverywhere {
		return nil, fmt.Errorf("%w on any provider: %s", ErrSymbolNotFound, symbol)
	}
	return nil, &lookupError{symbol: symbol, failures: failures}
}

// fetchWithRetry retries transient failures with jittered exponential
// backoff. Definitive answers (symbol not found) and quota rejections
// short-circuit; hammering a throttling provider only digs the hole
// deeper.
func (s *PriceService) fetchWithRetry(ctx context.Context, provider Provider, symbol string) (*Quote, error) {
	var lastErr error
	delay := 500 * time.Millisecond
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Int63n(int64(delay) / 2))
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		quote, err := provider.FetchQuote(ctx, symbol)
		if err == nil {
			return quote, nil
		}
		lastErr = err
		if errors.Is(err, ErrSymbolNotFound) || errors.Is(err, ErrRateLimited) {
			return nil, err
		}
	}
	return nil, lastErr
}

// GetIndicator computes a technical indicator value for a stock symbol.
// Indicator data requires daily series, which only the stock providers
// expose.
func (s *PriceService) GetIndicator(ctx context.Context, symbol, assetType, indicator string, period int) (current, previous float64, err error) {
	if assetType == "" || assetType == "auto" {
		assetType = DetectAssetType(symbol)
	}
	if assetType != "stock" {
		return 0, 0, fmt.Errorf("indicators are only supported for stocks, got asset type %q", assetType)
	}

	for _, provider := range s.providers {
		if !provider.Supports(assetType) {
			continue
		}
		ip, ok := provider.(IndicatorProvider)
		if !ok {
			continue
		}
		if !s.limiter.Allow(provider.Name()) {
			return 0, 0, fmt.Errorf("%s: rate limited, retry in %s",
				provider.Name(), s.limiter.NextAllowedIn(provider.Name()).Round(time.Second))
		}
		current, previous, err = ip.FetchIndicator(ctx, symbol, indicator, period)
		if err != nil {
			s.limiter.RecordFailure(provider.Name())
			return 0, 0, err
		}
		s.limiter.RecordSuccess(provider.Name())
		return current, previous, nil
	}
	return 0, 0, fmt.Errorf("no indicator provider available for %s", symbol)
}

// CacheStats exposes cache counters for the health endpoint.
func (s *PriceService) CacheStats() map[string]interface{} {
	hits, misses, size := s.cache.Stats()
	return map[string]interface{}{
		"hits":   hits,
		"misses": misses,
		"size":   size,
	}
}

// InvalidateCache drops cached quotes, all of them when symbol is empty.
func (s *PriceService) InvalidateCache(symbol, assetType string) {
	if assetType == "" || assetType == "auto" {
		assetType = DetectAssetType(symbol)
	}
	s.cache.Invalidate(symbol, assetType)
}
