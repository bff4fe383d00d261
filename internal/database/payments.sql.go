package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, user_id, payment_method, amount, currency, status,
    gateway_payment_intent_id, gateway_customer_id, card_last4, card_brand,
    card_exp_month, card_exp_year, card_holder_name, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.UserID,
		&i.PaymentMethod,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.GatewayPaymentIntentID,
		&i.GatewayCustomerID,
		&i.CardLast4,
		&i.CardBrand,
		&i.CardExpMonth,
		&i.CardExpYear,
		&i.CardHolderName,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectPayments(rows pgx.Rows, err error) ([]Payment, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		i, err := scanPayment(rows)
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

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (
    order_id, user_id, payment_method, amount, currency, status,
    gateway_payment_intent_id, gateway_customer_id, card_last4, card_brand,
    card_exp_month, card_exp_year, card_holder_name
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID                uuid.UUID      `json:"order_id"`
	UserID                 uuid.UUID      `json:"user_id"`
	PaymentMethod          string         `json:"payment_method"`
	Amount                 pgtype.Numeric `json:"amount"`
	Currency               string         `json:"currency"`
	Status                 string         `json:"status"`
	GatewayPaymentIntentID pgtype.Text    `json:"gateway_payment_intent_id"`
	GatewayCustomerID      pgtype.Text    `json:"gateway_customer_id"`
	CardLast4              pgtype.Text    `json:"card_last4"`
	CardBrand              pgtype.Text    `json:"card_brand"`
	CardExpMonth           pgtype.Int4    `json:"card_exp_month"`
	CardExpYear            pgtype.Int4    `json:"card_exp_year"`
	CardHolderName         pgtype.Text    `json:"card_holder_name"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.UserID,
		arg.PaymentMethod,
		arg.Amount,
		arg.Currency,
		arg.Status,
		arg.GatewayPaymentIntentID,
		arg.GatewayCustomerID,
		arg.CardLast4,
		arg.CardBrand,
		arg.CardExpMonth,
		arg.CardExpYear,
		arg.CardHolderName,
	)
	return scanPayment(row)
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

func (q *Queries) GetPayment(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, id))
}

const getPaymentForUpdate = `-- name: GetPaymentForUpdate :one
SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

func (q *Queries) GetPaymentForUpdate(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentForUpdate, id))
}

const getPendingGatewayPayment = `-- name: GetPendingGatewayPayment :one
SELECT ` + paymentColumns + `
FROM payments
WHERE order_id = $1 AND status = 'pending' AND payment_method = 'Stripe'`

func (q *Queries) GetPendingGatewayPayment(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPendingGatewayPayment, orderID))
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE payments
SET status           = $2,
    card_last4       = COALESCE($3, card_last4),
    card_brand       = COALESCE($4, card_brand),
    card_exp_month   = COALESCE($5, card_exp_month),
    card_exp_year    = COALESCE($6, card_exp_year),
    card_holder_name = COALESCE($7, card_holder_name),
    updated_at       = now()
WHERE id = $1
RETURNING ` + paymentColumns

type UpdatePaymentStatusParams struct {
	ID             uuid.UUID   `json:"id"`
	Status         string      `json:"status"`
	CardLast4      pgtype.Text `json:"card_last4"`
	CardBrand      pgtype.Text `json:"card_brand"`
	CardExpMonth   pgtype.Int4 `json:"card_exp_month"`
	CardExpYear    pgtype.Int4 `json:"card_exp_year"`
	CardHolderName pgtype.Text `json:"card_holder_name"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	row := q.db.QueryRow(ctx, updatePaymentStatus,
		arg.ID,
		arg.Status,
		arg.CardLast4,
		arg.CardBrand,
		arg.CardExpMonth,
		arg.CardExpYear,
		arg.CardHolderName,
	)
	return scanPayment(row)
}

const listPaymentsByOrder = `-- name: ListPaymentsByOrder :many
SELECT ` + paymentColumns + `
FROM payments
WHERE order_id = $1
ORDER BY created_at`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	return collectPayments(q.db.Query(ctx, listPaymentsByOrder, orderID))
}

const listPayments = `-- name: ListPayments :many
SELECT p.id, p.order_id, p.user_id, p.payment_method, p.amount, p.currency, p.status,
       p.gateway_payment_intent_id, p.gateway_customer_id, p.card_last4, p.card_brand,
       p.card_exp_month, p.card_exp_year, p.card_holder_name, p.created_at, p.updated_at
FROM payments p
JOIN orders o ON o.id = p.order_id
WHERE ($1::uuid IS NULL OR o.restaurant_id = $1)
  AND ($2::uuid IS NULL OR p.user_id = $2)
  AND ($3::text IS NULL OR p.status = $3)
ORDER BY p.created_at DESC
LIMIT $4 OFFSET $5`

type ListPaymentsParams struct {
	RestaurantID pgtype.UUID `json:"restaurant_id"`
	UserID       pgtype.UUID `json:"user_id"`
	Status       pgtype.Text `json:"status"`
	Limit        int32       `json:"limit"`
	Offset       int32       `json:"offset"`
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	return collectPayments(q.db.Query(ctx, listPayments,
		arg.RestaurantID,
		arg.UserID,
		arg.Status,
		arg.Limit,
		arg.Offset,
	))
}
