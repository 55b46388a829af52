package store

import (
	"context"
	"errors"

	"folioshare-api/internal/models"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrExists   = errors.New("store: record already exists")
)

// PortfolioStore is the persistence port for portfolio documents. The
// record manager holds no in-process state; every operation re-reads
// through this interface.
type PortfolioStore interface {
	Create(ctx context.Context, p *models.Portfolio) error
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	// ByOwner returns all portfolios for an owner, newest createdAt first.
	ByOwner(ctx context.Context, ownerID string) ([]*models.Portfolio, error)
	// ReplaceContents overwrites exactly the content fields named by
	// PortfolioContents, leaving identity, createdAt, visibility and
	// views untouched.
	ReplaceContents(ctx context.Context, id string, c models.PortfolioContents) error
	SetVisibility(ctx context.Context, id string, public bool) error
	// IncrementViews atomically adds one to the view counter and returns
	// the document as of the increment. Concurrent calls must not lose
	// updates.
	IncrementViews(ctx context.Context, id string) (*models.Portfolio, error)
}

// UserStore is the persistence port for accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}
