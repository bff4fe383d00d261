package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const adminColumns = `id, name, email, hashed_password, role, status, restaurant_name, created_at, updated_at`

func scanAdmin(row pgx.Row) (Admin, error) {
	var i Admin
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.Status,
		&i.RestaurantName,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAdmin = `-- name: CreateAdmin :one
INSERT INTO admins (name, email, hashed_password, role, status, restaurant_name)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + adminColumns

type CreateAdminParams struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	RestaurantName string `json:"restaurant_name"`
}

func (q *Queries) CreateAdmin(ctx context.Context, arg CreateAdminParams) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, createAdmin,
		arg.Name,
		arg.Email,
		arg.HashedPassword,
		arg.Role,
		arg.Status,
		arg.RestaurantName,
	))
}

const getAdminByEmail = `-- name: GetAdminByEmail :one
SELECT ` + adminColumns + ` FROM admins WHERE lower(email) = lower($1)`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByEmail, email))
}

const getAdminByID = `-- name: GetAdminByID :one
SELECT ` + adminColumns + ` FROM admins WHERE id = $1`

func (q *Queries) GetAdminByID(ctx context.Context, id uuid.UUID) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, getAdminByID, id))
}

const listAdmins = `-- name: ListAdmins :many
SELECT ` + adminColumns + ` FROM admins ORDER BY created_at DESC`

func (q *Queries) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := q.db.Query(ctx, listAdmins)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Admin{}
	for rows.Next() {
		i, err := scanAdmin(rows)
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

const updateAdminStatus = `-- name: UpdateAdminStatus :one
UPDATE admins SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + adminColumns

type UpdateAdminStatusParams struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

func (q *Queries) UpdateAdminStatus(ctx context.Context, arg UpdateAdminStatusParams) (Admin, error) {
	return scanAdmin(q.db.QueryRow(ctx, updateAdminStatus, arg.ID, arg.Status))
}

const deleteAdmin = `-- name: DeleteAdmin :execrows
DELETE FROM admins WHERE id = $1 AND role <> 'super-admin'`

func (q *Queries) DeleteAdmin(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAdmin, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
