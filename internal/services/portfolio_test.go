package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folioshare-api/internal/apperr"
	"folioshare-api/internal/config"
	"folioshare-api/internal/models"
	"folioshare-api/internal/store"
)

type stubQuote struct {
	name   string
	price  float64
	sector string
}

// stubValuer resolves tickers from a fixed table, failing the whole
// batch on an unknown ticker like the real enricher does.
type stubValuer struct {
	quotes map[string]stubQuote
	err    error
}

func (v *stubValuer) ResolveBatch(_ context.Context, holdings []models.Holding) ([]models.ValuedHolding, error) {
	if v.err != nil {
		return nil, v.err
	}

	valued := make([]models.ValuedHolding, len(holdings))
	for i, h := range holdings {
		q, ok := v.quotes[h.Ticker]
		if !ok {
			return nil, errors.New("unknown ticker " + h.Ticker)
		}
		valued[i] = models.ValuedHolding{
			Ticker:      h.Ticker,
			Quantity:    h.Quantity,
			CompanyName: q.name,
			Price:       q.price,
			Sector:      q.sector,
			Value:       h.Quantity * q.price,
		}
	}
	return valued, nil
}

type stubAnalyzer struct {
	degraded bool
}

func (a *stubAnalyzer) Analyze(_ context.Context, holdings []models.ValuedHolding, _ float64) (models.InsightBundle, bool) {
	return models.InsightBundle{
		Summary:                 "stub summary",
		SectorExposure:          "stub exposure",
		DiversificationAnalysis: "stub diversification",
		InvestmentThesis:        "stub thesis",
		SectorAllocations:       SectorAllocations(holdings),
	}, a.degraded
}

func defaultQuotes() map[string]stubQuote {
	return map[string]stubQuote{
		"AAPL":  {name: "Apple Inc.", price: 190.29, sector: "Technology"},
		"GOOGL": {name: "Alphabet Inc.", price: 175.51, sector: "Communication Services"},
		"MSFT":  {name: "Microsoft Corp.", price: 427.56, sector: "Technology"},
	}
}

func newTestService(t *testing.T) (*PortfolioService, *store.MemoryStore, *stubValuer, *stubAnalyzer) {
	t.Helper()

	st := store.NewMemoryStore()
	valuer := &stubValuer{quotes: defaultQuotes()}
	analyzer := &stubAnalyzer{}
	cfg := &config.Config{EnrichTimeout: 5 * time.Second}

	return NewPortfolioService(cfg, st, valuer, analyzer), st, valuer, analyzer
}

func submitSample(t *testing.T, svc *PortfolioService, ownerID string) *models.SubmitResult {
	t.Helper()

	result, err := svc.Submit(context.Background(), ownerID, []models.Holding{
		{Ticker: "AAPL", Quantity: 10},
		{Ticker: "GOOGL", Quantity: 5},
	}, 10000)
	require.NoError(t, err)
	return result
}

func TestSubmitComputesTotals(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")
	require.NotEmpty(t, result.ID)
	assert.False(t, result.AnalysisDegraded)

	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)

	// 10*190.29 + 5*175.51 + 10000
	assert.InDelta(t, 12780.45, p.TotalValue, 1e-9)
	require.Len(t, p.Holdings, 2)
	assert.Equal(t, "AAPL", p.Holdings[0].Ticker)
	assert.InDelta(t, 1902.9, p.Holdings[0].Value, 1e-9)
	assert.Equal(t, "GOOGL", p.Holdings[1].Ticker)
	assert.InDelta(t, 877.55, p.Holdings[1].Value, 1e-9)
	assert.True(t, p.IsPublic)
	assert.Equal(t, int64(0), p.Views)
	assert.Equal(t, "owner-1", p.OwnerID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NotEmpty(t, p.Insights.Summary)
}

func TestSubmitMergesIntoExisting(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first := submitSample(t, svc, "owner-1")

	before, err := svc.FetchForOwner(ctx, "owner-1", first.ID)
	require.NoError(t, err)

	// Accumulate a view so the merge has something to preserve
	_, err = svc.FetchPublic(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.Submit(ctx, "owner-1", []models.Holding{
		{Ticker: "MSFT", Quantity: 2},
	}, 500)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "second submit must merge into the existing record")

	p, err := svc.FetchForOwner(ctx, "owner-1", first.ID)
	require.NoError(t, err)

	require.Len(t, p.Holdings, 1)
	assert.Equal(t, "MSFT", p.Holdings[0].Ticker)
	assert.InDelta(t, 2*427.56+500, p.TotalValue, 1e-9)
	assert.Equal(t, before.OwnerID, p.OwnerID)
	assert.Equal(t, before.CreatedAt, p.CreatedAt)
	assert.Equal(t, before.IsPublic, p.IsPublic)
	assert.Equal(t, int64(1), p.Views, "views accumulated before the merge survive it")
}

func TestSubmitRejectsWhenNoValidHoldings(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	cases := [][]models.Holding{
		{},
		{{Ticker: "", Quantity: 10}},
		{{Ticker: "AAPL", Quantity: 0}},
		{{Ticker: "  ", Quantity: -1}, {Ticker: "", Quantity: 5}},
	}
	for _, holdings := range cases {
		_, err := svc.Submit(ctx, "owner-1", holdings, 100)
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	}

	portfolios, err := svc.ListForOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, portfolios, "invalid submissions must not persist anything")
}

func TestSubmitRejectsNegativeCash(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), "owner-1", []models.Holding{{Ticker: "AAPL", Quantity: 1}}, -1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestSubmitFiltersInvalidEntries(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Submit(ctx, "owner-1", []models.Holding{
		{Ticker: "", Quantity: 3},
		{Ticker: "AAPL", Quantity: 1},
		{Ticker: "GOOGL", Quantity: 0},
	}, 0)
	require.NoError(t, err)

	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, "AAPL", p.Holdings[0].Ticker)
}

func TestSubmitEnrichmentFailureAborts(t *testing.T) {
	svc, _, valuer, _ := newTestService(t)
	ctx := context.Background()

	valuer.err = errors.New("quote provider down")

	_, err := svc.Submit(ctx, "owner-1", []models.Holding{{Ticker: "AAPL", Quantity: 1}}, 100)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))

	portfolios, err := svc.ListForOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, portfolios, "holdings must never be persisted unvalued")
}

func TestSubmitSucceedsWhenAnalysisDegrades(t *testing.T) {
	svc, _, _, analyzer := newTestService(t)
	ctx := context.Background()

	analyzer.degraded = true

	result, err := svc.Submit(ctx, "owner-1", []models.Holding{{Ticker: "AAPL", Quantity: 1}}, 0)
	require.NoError(t, err)
	assert.True(t, result.AnalysisDegraded)

	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Insights.Summary, "degraded analysis still yields a complete bundle")
}

func TestFetchForOwnerRejectsNonOwner(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	// Forbidden regardless of visibility
	for _, public := range []bool{true, false} {
		if !public {
			require.NoError(t, svc.Revoke(ctx, "owner-1", result.ID))
		}

		_, err := svc.FetchForOwner(ctx, "owner-2", result.ID)
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		_, err = svc.FetchForOwner(ctx, "", result.ID)
		require.Error(t, err)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	}
}

func TestFetchForOwnerDoesNotTouchViews(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	for i := 0; i < 5; i++ {
		_, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
		require.NoError(t, err)
	}

	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Views)
}

func TestFetchPublicIncrementsViews(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	p, err := svc.FetchPublic(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Views, "first public read returns views=1")

	// The increment is persisted, not just reflected in the response
	again, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Views)
}

func TestFetchPublicConcurrentReadsLoseNoIncrements(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	const readers = 50
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FetchPublic(ctx, result.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(readers), p.Views)
}

func TestRevokeBlocksPublicReads(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")
	require.NoError(t, svc.Revoke(ctx, "owner-1", result.ID))

	_, err := svc.FetchPublic(ctx, result.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindRevoked, apperr.KindOf(err), "revoked must be distinct from not found")

	// The owner still reads the full record
	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	assert.False(t, p.IsPublic)

	// Revoking again is a no-op success
	require.NoError(t, svc.Revoke(ctx, "owner-1", result.ID))
}

func TestPublishRestoresPublicReads(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	// Accumulate views, then revoke and republish
	_, err := svc.FetchPublic(ctx, result.ID)
	require.NoError(t, err)

	before, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "owner-1", result.ID))
	require.NoError(t, svc.Publish(ctx, "owner-1", result.ID))

	p, err := svc.FetchPublic(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Holdings, p.Holdings)
	assert.Equal(t, before.Cash, p.Cash)
	assert.Equal(t, before.CreatedAt, p.CreatedAt)
	assert.Equal(t, before.Views+1, p.Views, "accumulated views survive the revoke/publish cycle")
}

func TestVisibilityOpsRequireOwnership(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	err := svc.Revoke(ctx, "owner-2", result.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	err = svc.Publish(ctx, "owner-2", result.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUnknownIDIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.FetchForOwner(ctx, "owner-1", "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.FetchPublic(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Revoke(ctx, "owner-1", "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListForOwnerNewestFirst(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()

	// The create-or-merge policy normally keeps one record per owner,
	// but the interface must order multiples if they exist.
	older := &models.Portfolio{
		ID: "p-old", OwnerID: "owner-1", IsPublic: true,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.Portfolio{
		ID: "p-new", OwnerID: "owner-1", IsPublic: true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.Create(ctx, older))
	require.NoError(t, st.Create(ctx, newer))

	portfolios, err := svc.ListForOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, portfolios, 2)
	assert.Equal(t, "p-new", portfolios[0].ID)
	assert.Equal(t, "p-old", portfolios[1].ID)

	empty, err := svc.ListForOwner(ctx, "owner-2")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdateReplacesContents(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	before, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)

	cash := 250.0
	updated, degraded, err := svc.Update(ctx, "owner-1", result.ID, models.UpdateRequest{
		Holdings: []models.Holding{{Ticker: "MSFT", Quantity: 4}},
		Cash:     &cash,
	})
	require.NoError(t, err)
	assert.False(t, degraded)

	require.Len(t, updated.Holdings, 1)
	assert.Equal(t, "MSFT", updated.Holdings[0].Ticker)
	assert.InDelta(t, 4*427.56+250, updated.TotalValue, 1e-9)
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)
	assert.Equal(t, before.Views, updated.Views)
}

func TestUpdateCashOnlyReenrichesExistingHoldings(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	cash := 0.0
	updated, _, err := svc.Update(ctx, "owner-1", result.ID, models.UpdateRequest{Cash: &cash})
	require.NoError(t, err)

	require.Len(t, updated.Holdings, 2)
	assert.InDelta(t, 2780.45, updated.TotalValue, 1e-9)
}

func TestUpdateVisibilityFlipMatchesRevoke(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	// Flipping isPublic through the generic update path is the same
	// transition as an explicit revoke.
	public := false
	_, _, err := svc.Update(ctx, "owner-1", result.ID, models.UpdateRequest{IsPublic: &public})
	require.NoError(t, err)

	_, err = svc.FetchPublic(ctx, result.ID)
	assert.Equal(t, apperr.KindRevoked, apperr.KindOf(err))

	public = true
	_, _, err = svc.Update(ctx, "owner-1", result.ID, models.UpdateRequest{IsPublic: &public})
	require.NoError(t, err)

	_, err = svc.FetchPublic(ctx, result.ID)
	assert.NoError(t, err)
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	public := false
	_, _, err := svc.Update(ctx, "owner-2", result.ID, models.UpdateRequest{IsPublic: &public})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

// Concurrent submits by the same owner are last-write-wins: the final
// record holds one submission's complete contents, never a field merge.
func TestConcurrentSubmitsLastWriteWins(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	result := submitSample(t, svc, "owner-1")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Submit(ctx, "owner-1", []models.Holding{{Ticker: "AAPL", Quantity: 1}}, 111)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Submit(ctx, "owner-1", []models.Holding{{Ticker: "MSFT", Quantity: 1}}, 222)
		assert.NoError(t, err)
	}()
	wg.Wait()

	p, err := svc.FetchForOwner(ctx, "owner-1", result.ID)
	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)

	switch p.Holdings[0].Ticker {
	case "AAPL":
		assert.Equal(t, 111.0, p.Cash)
		assert.InDelta(t, 190.29+111, p.TotalValue, 1e-9)
	case "MSFT":
		assert.Equal(t, 222.0, p.Cash)
		assert.InDelta(t, 427.56+222, p.TotalValue, 1e-9)
	default:
		t.Fatalf("unexpected ticker %s", p.Holdings[0].Ticker)
	}
}

func TestDecideAccess(t *testing.T) {
	public := &models.Portfolio{OwnerID: "owner-1", IsPublic: true}
	private := &models.Portfolio{OwnerID: "owner-1", IsPublic: false}

	assert.Equal(t, AccessOwner, DecideAccess(public, "owner-1"))
	assert.Equal(t, AccessOwner, DecideAccess(private, "owner-1"))
	assert.Equal(t, AccessPublicReader, DecideAccess(public, "owner-2"))
	assert.Equal(t, AccessPublicReader, DecideAccess(public, ""))
	assert.Equal(t, AccessRevoked, DecideAccess(private, "owner-2"))
	assert.Equal(t, AccessRevoked, DecideAccess(private, ""))
}
