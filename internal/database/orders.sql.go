package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, restaurant_id, shipping_address, shipping_city, shipping_postal_code,
    shipping_country, payment_method, items_price, tax_price, shipping_price, total_price,
    is_paid, paid_at, payment_result_id, payment_result_status, payment_result_update_time,
    payment_result_email, is_delivered, delivered_at, status, card_last4, card_brand,
    created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.RestaurantID,
		&i.ShippingAddress,
		&i.ShippingCity,
		&i.ShippingPostalCode,
		&i.ShippingCountry,
		&i.PaymentMethod,
		&i.ItemsPrice,
		&i.TaxPrice,
		&i.ShippingPrice,
		&i.TotalPrice,
		&i.IsPaid,
		&i.PaidAt,
		&i.PaymentResultID,
		&i.PaymentResultStatus,
		&i.PaymentResultUpdateTime,
		&i.PaymentResultEmail,
		&i.IsDelivered,
		&i.DeliveredAt,
		&i.Status,
		&i.CardLast4,
		&i.CardBrand,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (
    user_id, restaurant_id, shipping_address, shipping_city, shipping_postal_code,
    shipping_country, payment_method, items_price, tax_price, shipping_price, total_price,
    card_last4, card_brand
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID             uuid.UUID      `json:"user_id"`
	RestaurantID       uuid.UUID      `json:"restaurant_id"`
	ShippingAddress    string         `json:"shipping_address"`
	ShippingCity       string         `json:"shipping_city"`
	ShippingPostalCode string         `json:"shipping_postal_code"`
	ShippingCountry    string         `json:"shipping_country"`
	PaymentMethod      string         `json:"payment_method"`
	ItemsPrice         pgtype.Numeric `json:"items_price"`
	TaxPrice           pgtype.Numeric `json:"tax_price"`
	ShippingPrice      pgtype.Numeric `json:"shipping_price"`
	TotalPrice         pgtype.Numeric `json:"total_price"`
	CardLast4          pgtype.Text    `json:"card_last4"`
	CardBrand          pgtype.Text    `json:"card_brand"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.RestaurantID,
		arg.ShippingAddress,
		arg.ShippingCity,
		arg.ShippingPostalCode,
		arg.ShippingCountry,
		arg.PaymentMethod,
		arg.ItemsPrice,
		arg.TaxPrice,
		arg.ShippingPrice,
		arg.TotalPrice,
		arg.CardLast4,
		arg.CardBrand,
	)
	return scanOrder(row)
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, position, menu_item_id, name, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, position, menu_item_id, name, price, quantity`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID      `json:"order_id"`
	Position   int32          `json:"position"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.Position,
		arg.MenuItemID,
		arg.Name,
		arg.Price,
		arg.Quantity,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Position,
		&i.MenuItemID,
		&i.Name,
		&i.Price,
		&i.Quantity,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, position, menu_item_id, name, price, quantity
FROM order_items
WHERE order_id = $1
ORDER BY position`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Position,
			&i.MenuItemID,
			&i.Name,
			&i.Price,
			&i.Quantity,
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

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + `
FROM orders
WHERE ($1::uuid IS NULL OR restaurant_id = $1)
  AND ($2::uuid IS NULL OR user_id = $2)
  AND ($3::text IS NULL OR status = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

type ListOrdersParams struct {
	RestaurantID pgtype.UUID `json:"restaurant_id"`
	UserID       pgtype.UUID `json:"user_id"`
	Status       pgtype.Text `json:"status"`
	Limit        int32       `json:"limit"`
	Offset       int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.RestaurantID,
		arg.UserID,
		arg.Status,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status       = $2::text,
    is_delivered = ($2::text = 'Delivered'),
    delivered_at = CASE WHEN $2::text = 'Delivered' THEN COALESCE(delivered_at, now()) ELSE NULL END,
    updated_at   = now()
WHERE id = $1 AND status = $3::text
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	ExpectedStatus string    `json:"expected_status"`
}

// UpdateOrderStatus only matches while the row still has ExpectedStatus, so
// a concurrent transition makes it return pgx.ErrNoRows.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.ExpectedStatus))
}

const markOrderPaid = `-- name: MarkOrderPaid :one
UPDATE orders
SET is_paid                    = true,
    paid_at                    = COALESCE(paid_at, now()),
    payment_result_id          = $2,
    payment_result_status      = $3,
    payment_result_update_time = $4,
    payment_result_email       = $5,
    updated_at                 = now()
WHERE id = $1
RETURNING ` + orderColumns

type MarkOrderPaidParams struct {
	ID                      uuid.UUID   `json:"id"`
	PaymentResultID         pgtype.Text `json:"payment_result_id"`
	PaymentResultStatus     pgtype.Text `json:"payment_result_status"`
	PaymentResultUpdateTime pgtype.Text `json:"payment_result_update_time"`
	PaymentResultEmail      pgtype.Text `json:"payment_result_email"`
}

// MarkOrderPaid keeps the first paid_at so repeated confirmations do not move it.
func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderPaid,
		arg.ID,
		arg.PaymentResultID,
		arg.PaymentResultStatus,
		arg.PaymentResultUpdateTime,
		arg.PaymentResultEmail,
	)
	return scanOrder(row)
}
