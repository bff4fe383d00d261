package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyCart              = errors.New("order items are required")
	ErrInvalidQuantity        = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID      = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound       = errors.New("menu item not found")
	ErrMenuItemUnavailable    = errors.New("menu item is not available")
	ErrCrossRestaurantOrder   = errors.New("all items must come from the same restaurant")
	ErrInvalidPaymentMethod   = errors.New("invalid payment_method")
	ErrInvalidShippingAddress = errors.New("shipping address, city, postal code and country are required")
	ErrInvalidPrice           = errors.New("tax and shipping prices must be non-negative numbers")
	ErrOrderNotFound          = errors.New("order not found")
	ErrNotOrderOwner          = errors.New("order belongs to another customer")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrStatusConflict         = errors.New("order status was changed concurrently")
)

// Order events broadcast to the restaurant's live feed.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderPaid          = "order.paid"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// EventPublisher pushes order events to connected restaurant dashboards.
// Satisfied by *ws.Hub.
type EventPublisher interface {
	PublishOrder(restaurantID uuid.UUID, event string, order database.Order)
}

// ShippingAddress is where the order is delivered.
type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// CreateOrderRequest is the input for creating an order. Line items carry
// only references and quantities; names and prices come from the menu.
type CreateOrderRequest struct {
	CustomerID      uuid.UUID
	Items           []CreateOrderItemRequest
	ShippingAddress ShippingAddress
	PaymentMethod   string
	TaxPrice        string
	ShippingPrice   string
	Card            *CardInput
}

// CreateOrderItemRequest is a single cart line.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
}

// OrderResult is an order with its line items.
type OrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order creation and status transitions.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	events   EventPublisher
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, events EventPublisher) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, events: events}
}

// CreateOrder validates the cart, snapshots menu prices, attributes the
// order to the single restaurant the items belong to and persists it
// atomically with status Pending.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if !enum.IsOrderPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if !req.ShippingAddress.complete() {
		return nil, ErrInvalidShippingAddress
	}
	taxPrice, err := parseNonNegative(req.TaxPrice)
	if err != nil {
		return nil, err
	}
	shippingPrice, err := parseNonNegative(req.ShippingPrice)
	if err != nil {
		return nil, err
	}

	menuItemIDs := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}
		menuItemIDs[i] = id
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve menu items: snapshot + restaurant attribution ---
	var restaurantID uuid.UUID
	itemsPrice := decimal.Zero
	lines := make([]database.CreateOrderItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		menuItem, err := store.GetMenuItem(ctx, menuItemIDs[i])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemUnavailable)
		}
		if i == 0 {
			restaurantID = menuItem.CreatedBy
		} else if menuItem.CreatedBy != restaurantID {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrCrossRestaurantOrder)
		}

		price := numericToDecimal(menuItem.Price)
		itemsPrice = itemsPrice.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		lines = append(lines, database.CreateOrderItemParams{
			Position:   int32(i),
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Price:      decimalToNumeric(price),
			Quantity:   item.Quantity,
		})
	}

	totalPrice := itemsPrice.Add(taxPrice).Add(shippingPrice)

	cardLast4, cardBrand := pgtype.Text{}, pgtype.Text{}
	if req.Card != nil {
		masked := req.Card.Mask()
		cardLast4 = optionalText(masked.Last4)
		cardBrand = optionalText(masked.Brand)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:             req.CustomerID,
		RestaurantID:       restaurantID,
		ShippingAddress:    strings.TrimSpace(req.ShippingAddress.Address),
		ShippingCity:       strings.TrimSpace(req.ShippingAddress.City),
		ShippingPostalCode: strings.TrimSpace(req.ShippingAddress.PostalCode),
		ShippingCountry:    strings.TrimSpace(req.ShippingAddress.Country),
		PaymentMethod:      req.PaymentMethod,
		ItemsPrice:         decimalToNumeric(itemsPrice),
		TaxPrice:           decimalToNumeric(taxPrice),
		ShippingPrice:      decimalToNumeric(shippingPrice),
		TotalPrice:         decimalToNumeric(totalPrice),
		CardLast4:          cardLast4,
		CardBrand:          cardBrand,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(EventOrderCreated, order)
	return &OrderResult{Order: order, Items: items}, nil
}

// UpdateStatus moves an order to status. Any of the four states may be
// reached from any other. Only the owning restaurant admin or a super-admin
// may do it. The write is guarded by the status that was read, so a
// concurrent transition yields ErrStatusConflict instead of a lost update.
func (s *OrderService) UpdateStatus(ctx context.Context, actor access.Principal, orderID uuid.UUID, status string) (database.Order, error) {
	if !enum.IsOrderStatus(status) {
		return database.Order{}, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if err := access.CanMutate(actor, current.RestaurantID).Err(); err != nil {
		return database.Order{}, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             orderID,
		Status:         status,
		ExpectedStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(EventOrderStatusChanged, updated)
	return updated, nil
}

// MarkDelivered is UpdateStatus(Delivered).
func (s *OrderService) MarkDelivered(ctx context.Context, actor access.Principal, orderID uuid.UUID) (database.Order, error) {
	return s.UpdateStatus(ctx, actor, orderID, enum.OrderStatusDelivered)
}

// Receipt is a payment receipt supplied by the paying client.
type Receipt struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// RecordExternallyAssertedPayment marks an order paid on the word of its
// owning customer. The receipt is stored as given and is NOT verified with
// any gateway; verified card payments go through PaymentService.ConfirmCardPayment.
func (s *OrderService) RecordExternallyAssertedPayment(ctx context.Context, customerID, orderID uuid.UUID, receipt Receipt) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != customerID {
		return database.Order{}, ErrNotOrderOwner
	}

	paid, err := store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
		ID:                      orderID,
		PaymentResultID:         optionalText(receipt.ID),
		PaymentResultStatus:     optionalText(receipt.Status),
		PaymentResultUpdateTime: optionalText(receipt.UpdateTime),
		PaymentResultEmail:      pgtype.Text{String: receipt.EmailAddress, Valid: true},
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("mark order paid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(EventOrderPaid, paid)
	return paid, nil
}

func (s *OrderService) publish(event string, order database.Order) {
	if s.events != nil {
		s.events.PublishOrder(order.RestaurantID, event, order)
	}
}

// --- Helpers ---

func (a ShippingAddress) complete() bool {
	return strings.TrimSpace(a.Address) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.PostalCode) != "" &&
		strings.TrimSpace(a.Country) != ""
}

// parseNonNegative parses an optional money amount; empty means zero.
func parseNonNegative(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
