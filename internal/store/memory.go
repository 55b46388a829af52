package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"folioshare-api/internal/models"
)

// MemoryStore is a mutex-guarded in-memory implementation of
// PortfolioStore and UserStore. It backs the test suite and serves as
// the fallback when Firestore is not configured.
type MemoryStore struct {
	mu         sync.Mutex
	portfolios map[string]*models.Portfolio
	users      map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios: make(map[string]*models.Portfolio),
		users:      make(map[string]*models.User),
	}
}

func clonePortfolio(p *models.Portfolio) *models.Portfolio {
	c := *p
	c.Holdings = append([]models.ValuedHolding(nil), p.Holdings...)
	c.Insights.SectorAllocations = append([]models.SectorAllocation(nil), p.Insights.SectorAllocations...)
	return &c
}

func (s *MemoryStore) Create(_ context.Context, p *models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.portfolios[p.ID]; exists {
		return ErrExists
	}
	s.portfolios[p.ID] = clonePortfolio(p)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePortfolio(p), nil
}

func (s *MemoryStore) ByOwner(_ context.Context, ownerID string) ([]*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var portfolios []*models.Portfolio
	for _, p := range s.portfolios {
		if p.OwnerID == ownerID {
			portfolios = append(portfolios, clonePortfolio(p))
		}
	}

	sort.Slice(portfolios, func(i, j int) bool {
		return portfolios[i].CreatedAt.After(portfolios[j].CreatedAt)
	})
	return portfolios, nil
}

func (s *MemoryStore) ReplaceContents(_ context.Context, id string, c models.PortfolioContents) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return ErrNotFound
	}
	p.Holdings = append([]models.ValuedHolding(nil), c.Holdings...)
	p.Cash = c.Cash
	p.TotalValue = c.TotalValue
	p.Insights = c.Insights
	return nil
}

func (s *MemoryStore) SetVisibility(_ context.Context, id string, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return ErrNotFound
	}
	p.IsPublic = public
	return nil
}

func (s *MemoryStore) IncrementViews(_ context.Context, id string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Views++
	return clonePortfolio(p), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, exists := s.users[key]; exists {
		return ErrExists
	}
	c := *u
	s.users[key] = &c
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}
