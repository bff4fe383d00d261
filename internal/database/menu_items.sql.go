package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, name, description, price, category, image_url, is_available,
    rating, num_reviews, created_by, created_at, updated_at`

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var i MenuItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.ImageUrl,
		&i.IsAvailable,
		&i.Rating,
		&i.NumReviews,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMenuItem = `-- name: CreateMenuItem :one
INSERT INTO menu_items (name, description, price, category, image_url, is_available, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns

type CreateMenuItemParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	IsAvailable bool           `json:"is_available"`
	CreatedBy   uuid.UUID      `json:"created_by"`
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.ImageUrl,
		arg.IsAvailable,
		arg.CreatedBy,
	)
	return scanMenuItem(row)
}

const getMenuItem = `-- name: GetMenuItem :one
SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, id))
}

const updateMenuItem = `-- name: UpdateMenuItem :one
UPDATE menu_items
SET name = $2, description = $3, price = $4, category = $5, image_url = $6,
    is_available = $7, updated_at = now()
WHERE id = $1
RETURNING ` + menuItemColumns

type UpdateMenuItemParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.ImageUrl,
		arg.IsAvailable,
	)
	return scanMenuItem(row)
}

const deleteMenuItem = `-- name: DeleteMenuItem :execrows
DELETE FROM menu_items WHERE id = $1`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMenuItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listMenuItems = `-- name: ListMenuItems :many
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE ($1::uuid IS NULL OR created_by = $1)
  AND ($2::text IS NULL OR category = $2)
  AND ($3::text IS NULL OR name ILIKE '%' || $3 || '%')
ORDER BY created_at DESC`

type ListMenuItemsParams struct {
	CreatedBy pgtype.UUID `json:"created_by"`
	Category  pgtype.Text `json:"category"`
	Search    pgtype.Text `json:"search"`
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, arg.CreatedBy, arg.Category, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MenuItem{}
	for rows.Next() {
		i, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateMenuItemRating = `-- name: UpdateMenuItemRating :one
UPDATE menu_items m
SET rating      = COALESCE((SELECT ROUND(AVG(r.rating)::numeric, 2) FROM menu_item_reviews r WHERE r.menu_item_id = m.id), 0),
    num_reviews = (SELECT COUNT(*) FROM menu_item_reviews r WHERE r.menu_item_id = m.id),
    updated_at  = now()
WHERE m.id = $1
RETURNING ` + menuItemColumns

// UpdateMenuItemRating recomputes rating and num_reviews from the review rows.
func (q *Queries) UpdateMenuItemRating(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItemRating, id))
}
