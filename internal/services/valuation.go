package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"folioshare-api/internal/config"
	"folioshare-api/internal/models"
	"folioshare-api/pkg/finnhub"
)

// QuoteSource resolves a single ticker to live market data
type QuoteSource interface {
	GetQuote(ctx context.Context, ticker string) (*finnhub.Quote, error)
}

// ValuationService turns raw ticker+quantity pairs into valued holdings.
// Output preserves input order and cardinality; a failure on any ticker
// fails the whole batch so a portfolio is never partially enriched.
type ValuationService struct {
	source     QuoteSource
	quoteCache *Cache[string, *finnhub.Quote]
	workerPool chan struct{} // Semaphore for bounded concurrency
}

func NewValuationService(cfg *config.Config, source QuoteSource) *ValuationService {
	return &ValuationService{
		source:     source,
		quoteCache: NewCache[string, *finnhub.Quote](1 * time.Hour),
		workerPool: make(chan struct{}, cfg.MaxConcurrentFetches),
	}
}

// ResolveBatch fetches quotes for all holdings concurrently and computes
// each holding's value as quantity * price.
func (s *ValuationService) ResolveBatch(ctx context.Context, holdings []models.Holding) ([]models.ValuedHolding, error) {
	valued := make([]models.ValuedHolding, len(holdings))
	errs := make([]error, len(holdings))

	var wg sync.WaitGroup
	for i, h := range holdings {
		wg.Add(1)

		go func(i int, h models.Holding) {
			defer wg.Done()

			// Acquire worker slot (bounded concurrency)
			select {
			case s.workerPool <- struct{}{}:
				defer func() { <-s.workerPool }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			quote, err := s.getQuote(fetchCtx, h.Ticker)
			if err != nil {
				errs[i] = fmt.Errorf("failed to resolve %s: %w", h.Ticker, err)
				return
			}

			valued[i] = models.ValuedHolding{
				Ticker:      strings.ToUpper(strings.TrimSpace(h.Ticker)),
				Quantity:    h.Quantity,
				CompanyName: quote.CompanyName,
				Price:       quote.Price,
				Sector:      quote.Sector,
				Value:       h.Quantity * quote.Price,
			}
		}(i, h)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return valued, nil
}

func (s *ValuationService) getQuote(ctx context.Context, ticker string) (*finnhub.Quote, error) {
	key := strings.ToUpper(strings.TrimSpace(ticker))

	if quote, found := s.quoteCache.Get(key); found {
		return quote, nil
	}

	quote, err := s.source.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}

	s.quoteCache.Set(key, quote)
	return quote, nil
}
