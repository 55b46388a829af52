package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folioshare-api/internal/models"
)

func seedPortfolio(t *testing.T, s *MemoryStore, id, owner string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &models.Portfolio{
		ID:        id,
		OwnerID:   owner,
		Holdings:  []models.ValuedHolding{{Ticker: "AAPL", Quantity: 1, Price: 190.29, Value: 190.29}},
		Cash:      100,
		IsPublic:  true,
		CreatedAt: createdAt,
	}))
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seedPortfolio(t, s, "p1", "o1", time.Now())

	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "o1", p.OwnerID)

	err = s.Create(ctx, &models.Portfolio{ID: "p1"})
	assert.ErrorIs(t, err, ErrExists)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seedPortfolio(t, s, "p1", "o1", time.Now())

	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	p.Holdings[0].Ticker = "HACKED"
	p.Views = 999

	fresh, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", fresh.Holdings[0].Ticker)
	assert.Equal(t, int64(0), fresh.Views)
}

func TestMemoryStoreByOwnerNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	seedPortfolio(t, s, "old", "o1", now.Add(-time.Hour))
	seedPortfolio(t, s, "new", "o1", now)
	seedPortfolio(t, s, "other", "o2", now)

	portfolios, err := s.ByOwner(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, portfolios, 2)
	assert.Equal(t, "new", portfolios[0].ID)
	assert.Equal(t, "old", portfolios[1].ID)
}

func TestMemoryStoreReplaceContentsLeavesIdentityAlone(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created := time.Now().Add(-time.Minute)
	seedPortfolio(t, s, "p1", "o1", created)
	_, err := s.IncrementViews(ctx, "p1")
	require.NoError(t, err)

	err = s.ReplaceContents(ctx, "p1", models.PortfolioContents{
		Holdings:   []models.ValuedHolding{{Ticker: "MSFT", Quantity: 2, Price: 427.56, Value: 855.12}},
		Cash:       50,
		TotalValue: 905.12,
	})
	require.NoError(t, err)

	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", p.Holdings[0].Ticker)
	assert.Equal(t, 50.0, p.Cash)
	assert.Equal(t, "o1", p.OwnerID)
	assert.Equal(t, created, p.CreatedAt)
	assert.True(t, p.IsPublic)
	assert.Equal(t, int64(1), p.Views)

	err = s.ReplaceContents(ctx, "missing", models.PortfolioContents{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIncrementViewsIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seedPortfolio(t, s, "p1", "o1", time.Now())

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementViews(ctx, "p1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(n), p.Views)
}

func TestMemoryStoreUsers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &models.User{ID: "u1", Email: "User@Example.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))

	// Lookup is case-insensitive on email
	got, err := s.UserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	err = s.CreateUser(ctx, &models.User{ID: "u2", Email: "user@example.com"})
	assert.ErrorIs(t, err, ErrExists)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
