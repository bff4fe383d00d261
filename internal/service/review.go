package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/savora-food/api/internal/database"
)

// Errors returned by the review service.
var (
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrReviewNotFound = errors.New("review not found")
)

// ReviewStore defines the DB methods needed for menu item reviews.
// Satisfied by *database.Queries (and its WithTx variant).
type ReviewStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	UpsertReview(ctx context.Context, arg database.UpsertReviewParams) (database.MenuItemReview, error)
	DeleteReview(ctx context.Context, arg database.DeleteReviewParams) (int64, error)
	UpdateMenuItemRating(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
}

// NewReviewStore creates a ReviewStore from a DBTX (pool or tx).
type NewReviewStore func(db database.DBTX) ReviewStore

// ReviewService keeps a menu item's rating and review count in step with
// its reviews.
type ReviewService struct {
	pool     TxBeginner
	newStore NewReviewStore
}

func NewReviewService(pool TxBeginner, newStore NewReviewStore) *ReviewService {
	return &ReviewService{pool: pool, newStore: newStore}
}

// ReviewInput is one customer's review of a menu item.
type ReviewInput struct {
	MenuItemID   uuid.UUID
	CustomerID   uuid.UUID
	CustomerName string
	Rating       int32
	Comment      string
}

// Upsert adds the customer's review, or replaces their earlier one, and
// recomputes the item's aggregate rating in the same transaction.
func (s *ReviewService) Upsert(ctx context.Context, in ReviewInput) (database.MenuItemReview, database.MenuItem, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return database.MenuItemReview{}, database.MenuItem{}, ErrInvalidRating
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.MenuItemReview{}, database.MenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetMenuItem(ctx, in.MenuItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.MenuItemReview{}, database.MenuItem{}, ErrMenuItemNotFound
		}
		return database.MenuItemReview{}, database.MenuItem{}, fmt.Errorf("get menu item: %w", err)
	}

	review, err := store.UpsertReview(ctx, database.UpsertReviewParams{
		MenuItemID:   in.MenuItemID,
		CustomerID:   in.CustomerID,
		CustomerName: in.CustomerName,
		Rating:       in.Rating,
		Comment:      strings.TrimSpace(in.Comment),
	})
	if err != nil {
		return database.MenuItemReview{}, database.MenuItem{}, fmt.Errorf("upsert review: %w", err)
	}

	item, err := store.UpdateMenuItemRating(ctx, in.MenuItemID)
	if err != nil {
		return database.MenuItemReview{}, database.MenuItem{}, fmt.Errorf("update rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuItemReview{}, database.MenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	return review, item, nil
}

// Remove deletes the customer's review and recomputes the aggregate rating.
func (s *ReviewService) Remove(ctx context.Context, menuItemID, customerID uuid.UUID) (database.MenuItem, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	n, err := store.DeleteReview(ctx, database.DeleteReviewParams{MenuItemID: menuItemID, CustomerID: customerID})
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("delete review: %w", err)
	}
	if n == 0 {
		return database.MenuItem{}, ErrReviewNotFound
	}

	item, err := store.UpdateMenuItemRating(ctx, menuItemID)
	if err != nil {
		return database.MenuItem{}, fmt.Errorf("update rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.MenuItem{}, fmt.Errorf("commit tx: %w", err)
	}
	return item, nil
}
