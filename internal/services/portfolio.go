package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"folioshare-api/internal/apperr"
	"folioshare-api/internal/config"
	"folioshare-api/internal/models"
	"folioshare-api/internal/store"
)

// Valuer is the enrichment contract the record manager consumes
type Valuer interface {
	ResolveBatch(ctx context.Context, holdings []models.Holding) ([]models.ValuedHolding, error)
}

// Analyzer is the insight contract the record manager consumes. It never
// fails: a true second return value means the bundle is a degraded
// placeholder.
type Analyzer interface {
	Analyze(ctx context.Context, holdings []models.ValuedHolding, cash float64) (models.InsightBundle, bool)
}

// Access is the authorization decision for a portfolio read
type Access int

const (
	AccessOwner Access = iota
	AccessPublicReader
	AccessRevoked
)

// DecideAccess is the single authorization decision both read paths
// consume: owner match wins, otherwise visibility decides between a
// public reader and a revoked rejection.
func DecideAccess(p *models.Portfolio, requesterID string) Access {
	if requesterID != "" && p.OwnerID == requesterID {
		return AccessOwner
	}
	if p.IsPublic {
		return AccessPublicReader
	}
	return AccessRevoked
}

// PortfolioService is the sole authority over the portfolio document's
// lifecycle: create-or-merge writes, ownership checks, visibility
// transitions and view-count accounting. It holds no record state in
// process; every operation re-reads from the store.
type PortfolioService struct {
	store         store.PortfolioStore
	valuer        Valuer
	analyzer      Analyzer
	enrichTimeout time.Duration
}

func NewPortfolioService(cfg *config.Config, st store.PortfolioStore, valuer Valuer, analyzer Analyzer) *PortfolioService {
	return &PortfolioService{
		store:         st,
		valuer:        valuer,
		analyzer:      analyzer,
		enrichTimeout: cfg.EnrichTimeout,
	}
}

// Submit enriches and analyzes the given holdings and writes the result
// as the owner's portfolio. A second submission by the same owner
// replaces holdings, cash, totals and insights in place; identity,
// createdAt, visibility and views are preserved.
func (s *PortfolioService) Submit(ctx context.Context, ownerID string, holdings []models.Holding, cash float64) (*models.SubmitResult, error) {
	raw, err := validHoldings(holdings, cash)
	if err != nil {
		return nil, err
	}

	contents, degraded, err := s.buildContents(ctx, raw, cash)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Unavailable("failed to look up portfolio", err)
	}

	if len(existing) > 0 {
		id := existing[0].ID
		if err := s.store.ReplaceContents(ctx, id, *contents); err != nil {
			return nil, apperr.Unavailable("failed to update portfolio", err)
		}
		return &models.SubmitResult{ID: id, AnalysisDegraded: degraded}, nil
	}

	p := &models.Portfolio{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Holdings:   contents.Holdings,
		Cash:       contents.Cash,
		TotalValue: contents.TotalValue,
		Insights:   contents.Insights,
		CreatedAt:  time.Now().UTC(),
		IsPublic:   true,
		Views:      0,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, apperr.Unavailable("failed to create portfolio", err)
	}

	return &models.SubmitResult{ID: p.ID, AnalysisDegraded: degraded}, nil
}

// FetchForOwner returns the full record without touching the view
// counter. Non-owners are rejected regardless of visibility.
func (s *PortfolioService) FetchForOwner(ctx context.Context, requesterID, id string) (*models.Portfolio, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if DecideAccess(p, requesterID) != AccessOwner {
		return nil, apperr.Forbidden("permission denied")
	}

	return p, nil
}

// FetchPublic returns the record for an anonymous or non-owner reader,
// incrementing the view counter atomically. A revoked portfolio is
// rejected distinctly from a missing one.
func (s *PortfolioService) FetchPublic(ctx context.Context, id string) (*models.Portfolio, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if DecideAccess(p, "") == AccessRevoked {
		return nil, apperr.Revoked("the owner has revoked access to this portfolio")
	}

	// A revoke committing between the visibility check and the increment
	// may still count this view; acceptable at single-document
	// granularity. Lost increments are not: the store increment is
	// atomic.
	updated, err := s.store.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("portfolio not found")
		}
		return nil, apperr.Unavailable("failed to record view", err)
	}

	return updated, nil
}

// ListForOwner returns the owner's portfolios, newest first. The
// create-or-merge policy means this is normally zero or one element, but
// multiples are returned in order if they exist.
func (s *PortfolioService) ListForOwner(ctx context.Context, ownerID string) ([]*models.Portfolio, error) {
	portfolios, err := s.store.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Unavailable("failed to list portfolios", err)
	}
	if portfolios == nil {
		portfolios = []*models.Portfolio{}
	}
	return portfolios, nil
}

// Revoke withdraws public readability. Idempotent: revoking an already
// private portfolio is a no-op success.
func (s *PortfolioService) Revoke(ctx context.Context, ownerID, id string) error {
	return s.setVisibility(ctx, ownerID, id, false)
}

// Publish restores public readability. Symmetric to Revoke.
func (s *PortfolioService) Publish(ctx context.Context, ownerID, id string) error {
	return s.setVisibility(ctx, ownerID, id, true)
}

// Update applies a partial owner edit. New holdings or cash trigger full
// re-enrichment and re-analysis through the same typed replace path as
// Submit; an isPublic flip routes through the same transition as
// Revoke/Publish. Returns the record after the edit.
func (s *PortfolioService) Update(ctx context.Context, ownerID, id string, req models.UpdateRequest) (*models.Portfolio, bool, error) {
	p, err := s.FetchForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, false, err
	}

	degraded := false
	if req.Holdings != nil || req.Cash != nil {
		raw := req.Holdings
		if raw == nil {
			raw = rawHoldings(p.Holdings)
		}
		cash := p.Cash
		if req.Cash != nil {
			cash = *req.Cash
		}

		raw, err = validHoldings(raw, cash)
		if err != nil {
			return nil, false, err
		}

		var contents *models.PortfolioContents
		contents, degraded, err = s.buildContents(ctx, raw, cash)
		if err != nil {
			return nil, false, err
		}
		if err := s.store.ReplaceContents(ctx, id, *contents); err != nil {
			return nil, false, apperr.Unavailable("failed to update portfolio", err)
		}
	}

	if req.IsPublic != nil {
		if err := s.setVisibility(ctx, ownerID, id, *req.IsPublic); err != nil {
			return nil, false, err
		}
	}

	updated, err := s.get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return updated, degraded, nil
}

func (s *PortfolioService) setVisibility(ctx context.Context, ownerID, id string, public bool) error {
	if _, err := s.FetchForOwner(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.store.SetVisibility(ctx, id, public); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("portfolio not found")
		}
		return apperr.Unavailable("failed to change portfolio visibility", err)
	}
	return nil
}

// buildContents runs enrichment and analysis and assembles the typed
// content replacement. Enrichment failure aborts; analysis never does.
func (s *PortfolioService) buildContents(ctx context.Context, raw []models.Holding, cash float64) (*models.PortfolioContents, bool, error) {
	enrichCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	valued, err := s.valuer.ResolveBatch(enrichCtx, raw)
	if err != nil {
		return nil, false, apperr.Unavailable("failed to enrich holdings", err)
	}

	insights, degraded := s.analyzer.Analyze(ctx, valued, cash)

	totalValue := cash
	for _, h := range valued {
		totalValue += h.Value
	}

	return &models.PortfolioContents{
		Holdings:   valued,
		Cash:       cash,
		TotalValue: totalValue,
		Insights:   insights,
	}, degraded, nil
}

func (s *PortfolioService) get(ctx context.Context, id string) (*models.Portfolio, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("portfolio not found")
		}
		return nil, apperr.Unavailable("failed to fetch portfolio", err)
	}
	return p, nil
}

// validHoldings filters out entries with a blank ticker or non-positive
// quantity and rejects the submission when nothing valid remains.
func validHoldings(holdings []models.Holding, cash float64) ([]models.Holding, error) {
	if cash < 0 {
		return nil, apperr.InvalidInput("cash must not be negative")
	}

	valid := make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if strings.TrimSpace(h.Ticker) == "" || h.Quantity <= 0 {
			continue
		}
		valid = append(valid, h)
	}

	if len(valid) == 0 {
		return nil, apperr.InvalidInput("at least one holding with a ticker and a positive quantity is required")
	}

	return valid, nil
}

func rawHoldings(valued []models.ValuedHolding) []models.Holding {
	raw := make([]models.Holding, len(valued))
	for i, h := range valued {
		raw[i] = models.Holding{Ticker: h.Ticker, Quantity: h.Quantity}
	}
	return raw
}
