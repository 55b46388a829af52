package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"folioshare-api/internal/models"
)

const (
	portfolioCollection = "portfolios"
	userCollection      = "users"
)

// FirestoreStore implements PortfolioStore and UserStore on Firestore
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) Create(ctx context.Context, p *models.Portfolio) error {
	_, err := s.client.Collection(portfolioCollection).Doc(p.ID).Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return ErrExists
	}
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	doc, err := s.client.Collection(portfolioCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var p models.Portfolio
	if err := doc.DataTo(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FirestoreStore) ByOwner(ctx context.Context, ownerID string) ([]*models.Portfolio, error) {
	iter := s.client.Collection(portfolioCollection).
		Where("ownerId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var portfolios []*models.Portfolio
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var p models.Portfolio
		if err := doc.DataTo(&p); err != nil {
			return nil, err
		}
		portfolios = append(portfolios, &p)
	}

	return portfolios, nil
}

func (s *FirestoreStore) ReplaceContents(ctx context.Context, id string, c models.PortfolioContents) error {
	// Explicit field list: a content write can never touch ownerId,
	// createdAt, isPublic or views.
	_, err := s.client.Collection(portfolioCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "holdings", Value: c.Holdings},
		{Path: "cash", Value: c.Cash},
		{Path: "totalValue", Value: c.TotalValue},
		{Path: "insights", Value: c.Insights},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) SetVisibility(ctx context.Context, id string, public bool) error {
	_, err := s.client.Collection(portfolioCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isPublic", Value: public},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) IncrementViews(ctx context.Context, id string) (*models.Portfolio, error) {
	ref := s.client.Collection(portfolioCollection).Doc(id)

	var p models.Portfolio
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&p); err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "views", Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Views++
	return &p, nil
}

func (s *FirestoreStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.client.Collection(userCollection).Doc(u.ID).Create(ctx, u)
	if status.Code(err) == codes.AlreadyExists {
		return ErrExists
	}
	return err
}

func (s *FirestoreStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := s.client.Collection(userCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var u models.User
	if err := doc.DataTo(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
