package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const chefColumns = `id, name, specialty, bio, image_url, created_by, created_at, updated_at`

func scanChef(row pgx.Row) (Chef, error) {
	var i Chef
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Specialty,
		&i.Bio,
		&i.ImageUrl,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createChef = `-- name: CreateChef :one
INSERT INTO chefs (name, specialty, bio, image_url, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + chefColumns

type CreateChefParams struct {
	Name      string      `json:"name"`
	Specialty string      `json:"specialty"`
	Bio       string      `json:"bio"`
	ImageUrl  pgtype.Text `json:"image_url"`
	CreatedBy uuid.UUID   `json:"created_by"`
}

func (q *Queries) CreateChef(ctx context.Context, arg CreateChefParams) (Chef, error) {
	return scanChef(q.db.QueryRow(ctx, createChef,
		arg.Name, arg.Specialty, arg.Bio, arg.ImageUrl, arg.CreatedBy))
}

const getChef = `-- name: GetChef :one
SELECT ` + chefColumns + ` FROM chefs WHERE id = $1`

func (q *Queries) GetChef(ctx context.Context, id uuid.UUID) (Chef, error) {
	return scanChef(q.db.QueryRow(ctx, getChef, id))
}

const updateChef = `-- name: UpdateChef :one
UPDATE chefs
SET name = $2, specialty = $3, bio = $4, image_url = $5, updated_at = now()
WHERE id = $1
RETURNING ` + chefColumns

type UpdateChefParams struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Specialty string      `json:"specialty"`
	Bio       string      `json:"bio"`
	ImageUrl  pgtype.Text `json:"image_url"`
}

func (q *Queries) UpdateChef(ctx context.Context, arg UpdateChefParams) (Chef, error) {
	return scanChef(q.db.QueryRow(ctx, updateChef,
		arg.ID, arg.Name, arg.Specialty, arg.Bio, arg.ImageUrl))
}

const deleteChef = `-- name: DeleteChef :execrows
DELETE FROM chefs WHERE id = $1`

func (q *Queries) DeleteChef(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteChef, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listChefs = `-- name: ListChefs :many
SELECT ` + chefColumns + `
FROM chefs
WHERE ($1::uuid IS NULL OR created_by = $1)
ORDER BY name`

func (q *Queries) ListChefs(ctx context.Context, createdBy pgtype.UUID) ([]Chef, error) {
	rows, err := q.db.Query(ctx, listChefs, createdBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Chef{}
	for rows.Next() {
		i, err := scanChef(rows)
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
