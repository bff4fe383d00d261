package database

import (
	"context"

	"github.com/google/uuid"
)

const upsertReview = `-- name: UpsertReview :one
INSERT INTO menu_item_reviews (menu_item_id, customer_id, customer_name, rating, comment)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (menu_item_id, customer_id)
DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment,
              customer_name = EXCLUDED.customer_name, updated_at = now()
RETURNING id, menu_item_id, customer_id, customer_name, rating, comment, created_at, updated_at`

type UpsertReviewParams struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int32     `json:"rating"`
	Comment      string    `json:"comment"`
}

func (q *Queries) UpsertReview(ctx context.Context, arg UpsertReviewParams) (MenuItemReview, error) {
	row := q.db.QueryRow(ctx, upsertReview,
		arg.MenuItemID,
		arg.CustomerID,
		arg.CustomerName,
		arg.Rating,
		arg.Comment,
	)
	var i MenuItemReview
	err := row.Scan(
		&i.ID,
		&i.MenuItemID,
		&i.CustomerID,
		&i.CustomerName,
		&i.Rating,
		&i.Comment,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteReview = `-- name: DeleteReview :execrows
DELETE FROM menu_item_reviews WHERE menu_item_id = $1 AND customer_id = $2`

type DeleteReviewParams struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

func (q *Queries) DeleteReview(ctx context.Context, arg DeleteReviewParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteReview, arg.MenuItemID, arg.CustomerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listReviewsByMenuItem = `-- name: ListReviewsByMenuItem :many
SELECT id, menu_item_id, customer_id, customer_name, rating, comment, created_at, updated_at
FROM menu_item_reviews
WHERE menu_item_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListReviewsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]MenuItemReview, error) {
	rows, err := q.db.Query(ctx, listReviewsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItemReview{}
	for rows.Next() {
		var i MenuItemReview
		if err := rows.Scan(
			&i.ID,
			&i.MenuItemID,
			&i.CustomerID,
			&i.CustomerName,
			&i.Rating,
			&i.Comment,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
