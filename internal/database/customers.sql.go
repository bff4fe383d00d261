package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const customerColumns = `id, name, email, hashed_password, role, phone, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.Phone,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCustomer = `-- name: CreateCustomer :one
INSERT INTO customers (name, email, hashed_password, phone)
VALUES ($1, $2, $3, $4)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Phone          pgtype.Text `json:"phone"`
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, createCustomer,
		arg.Name, arg.Email, arg.HashedPassword, arg.Phone))
}

const getCustomerByEmail = `-- name: GetCustomerByEmail :one
SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1)`

func (q *Queries) GetCustomerByEmail(ctx context.Context, email string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByEmail, email))
}

const getCustomerByID = `-- name: GetCustomerByID :one
SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

func (q *Queries) GetCustomerByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByID, id))
}
