// Package pricing resolves tickers and tokens to USD prices, combining a
// primary aggregator feed with a fallback oracle behind a short-lived
// cache.
package pricing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"omniswap/pkg/retry"
	"omniswap/pkg/types"
)

// DefaultCacheTTL bounds provider request volume; entries expire purely
// by age.
const DefaultCacheTTL = 60 * time.Second

// PrimaryFeed is the aggregator-side price lookup.
type PrimaryFeed interface {
	GetTokenPrice(ctx context.Context, chain types.Chain, tokenAddr string) (*decimal.Decimal, error)
}

// FallbackOracle is the secondary ticker-keyed price source.
type FallbackOracle interface {
	GetPrice(ctx context.Context, ticker string) (*decimal.Decimal, error)
	GetPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

type cacheEntry struct {
	price     *decimal.Decimal // nil means "no price available", cached too
	fetchedAt time.Time
}

// Aggregator is the multi-source price lookup service. Construct one per
// process and inject it; it carries no package-level state.
type Aggregator struct {
	primary  PrimaryFeed
	fallback FallbackOracle
	retryCfg retry.Config
	ttl      time.Duration
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group
}

// NewAggregator wires the two price sources. primary may be nil, in which
// case only the fallback oracle is consulted.
func NewAggregator(primary PrimaryFeed, fallback FallbackOracle, log *zap.Logger) *Aggregator {
	return &Aggregator{
		primary:  primary,
		fallback: fallback,
		retryCfg: retry.DefaultConfig(),
		ttl:      DefaultCacheTTL,
		log:      log,
		cache:    make(map[string]cacheEntry),
	}
}

// SetCacheTTL overrides the cache lifetime; used by tests.
func (a *Aggregator) SetCacheTTL(ttl time.Duration) { a.ttl = ttl }

// TokenPrice resolves a token's USD price via the primary feed, falling
// back to the oracle by symbol. A nil result with nil error means no
// source has a price; callers treat that as a valid terminal state.
func (a *Aggregator) TokenPrice(ctx context.Context, chain types.Chain, token types.Token) (*decimal.Decimal, error) {
	key := "token:" + chain.ID + ":" + strings.ToLower(token.Address) + ":" + strings.ToUpper(token.Symbol)
	if p, ok := a.cached(key); ok {
		return p, nil
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		if a.primary != nil {
			p, err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) (*decimal.Decimal, error) {
				return a.primary.GetTokenPrice(ctx, chain, token.Address)
			})
			if err == nil && p != nil {
				a.store(key, p)
				return p, nil
			}
			if err != nil {
				a.log.Debug("primary price feed failed, falling back",
					zap.String("symbol", token.Symbol), zap.Error(err))
			}
		}
		return a.fallbackPrice(ctx, key, token.Symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*decimal.Decimal), nil
}

// TickerPrice resolves a plain ticker through the fallback oracle.
// Unmapped tickers resolve to nil.
func (a *Aggregator) TickerPrice(ctx context.Context, ticker string) (*decimal.Decimal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	key := "ticker:" + ticker
	if p, ok := a.cached(key); ok {
		return p, nil
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		return a.fallbackPrice(ctx, key, ticker)
	})
	if err != nil {
		return nil, err
	}
	return v.(*decimal.Decimal), nil
}

// TickerPrices resolves many tickers with one batched oracle request.
// The result map only contains priced tickers.
func (a *Aggregator) TickerPrices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(tickers))
	missing := make([]string, 0, len(tickers))

	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if p, ok := a.cached("ticker:" + t); ok {
			if p != nil {
				out[t] = *p
			}
			continue
		}
		missing = append(missing, t)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) (map[string]decimal.Decimal, error) {
		return a.fallback.GetPrices(ctx, missing)
	})
	if err != nil {
		return nil, err
	}

	for _, t := range missing {
		if p, ok := fetched[t]; ok {
			price := p
			a.store("ticker:"+t, &price)
			out[t] = p
		} else {
			a.store("ticker:"+t, nil)
		}
	}
	return out, nil
}

func (a *Aggregator) fallbackPrice(ctx context.Context, key, ticker string) (*decimal.Decimal, error) {
	p, err := retry.Do(ctx, a.retryCfg, func(ctx context.Context) (*decimal.Decimal, error) {
		return a.fallback.GetPrice(ctx, ticker)
	})
	if err != nil {
		return nil, err
	}
	a.store(key, p)
	return p, nil
}

func (a *Aggregator) cached(key string) (*decimal.Decimal, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.cache[key]
	if !ok || time.Since(e.fetchedAt) > a.ttl {
		return nil, false
	}
	return e.price, true
}

func (a *Aggregator) store(key string, p *decimal.Decimal) {
	a.mu.Lock()
	a.cache[key] = cacheEntry{price: p, fetchedAt: time.Now()}
	a.mu.Unlock()
}
