package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/shopspring/decimal"
)

// --- Mock transaction ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr error
	committed bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner and remembers every tx it handed out.
type mockTxBeginner struct {
	err error
	txs []*mockTx
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	tx := &mockTx{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *mockTxBeginner) commits() int {
	n := 0
	for _, tx := range m.txs {
		if tx.committed {
			n++
		}
	}
	return n
}

// --- In-memory store ---

// memStore is an in-memory stand-in for *database.Queries. Its update
// methods follow the same rules as the SQL they replace.
type memStore struct {
	mu       sync.Mutex
	menu     map[uuid.UUID]database.MenuItem
	orders   map[uuid.UUID]database.Order
	items    []database.OrderItem
	payments map[uuid.UUID]database.Payment
	reviews  map[[2]uuid.UUID]database.MenuItemReview

	createOrderErr     error
	createItemErr      error
	createPaymentErr   error
	updateStatusRaceTo string
}

func newMemStore() *memStore {
	return &memStore{
		menu:     map[uuid.UUID]database.MenuItem{},
		orders:   map[uuid.UUID]database.Order{},
		payments: map[uuid.UUID]database.Payment{},
		reviews:  map[[2]uuid.UUID]database.MenuItemReview{},
	}
}

func (m *memStore) addMenuItem(admin uuid.UUID, name, price string) database.MenuItem {
	item := database.MenuItem{
		ID:          uuid.New(),
		Name:        name,
		Price:       makeNumeric(price),
		Category:    enum.CategoryMainCourse,
		IsAvailable: true,
		CreatedBy:   admin,
	}
	m.menu[item.ID] = item
	return item
}

func (m *memStore) addOrder(customer, restaurant uuid.UUID, status string) database.Order {
	o := database.Order{
		ID:           uuid.New(),
		UserID:       customer,
		RestaurantID: restaurant,
		Status:       status,
		TotalPrice:   makeNumeric("20.00"),
	}
	if status == enum.OrderStatusDelivered {
		o.IsDelivered = true
		o.DeliveredAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}
	m.orders[o.ID] = o
	return o
}

func (m *memStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createOrderErr != nil {
		return database.Order{}, m.createOrderErr
	}
	o := database.Order{
		ID:                 uuid.New(),
		UserID:             arg.UserID,
		RestaurantID:       arg.RestaurantID,
		ShippingAddress:    arg.ShippingAddress,
		ShippingCity:       arg.ShippingCity,
		ShippingPostalCode: arg.ShippingPostalCode,
		ShippingCountry:    arg.ShippingCountry,
		PaymentMethod:      arg.PaymentMethod,
		ItemsPrice:         arg.ItemsPrice,
		TaxPrice:           arg.TaxPrice,
		ShippingPrice:      arg.ShippingPrice,
		TotalPrice:         arg.TotalPrice,
		Status:             enum.OrderStatusPending,
		CardLast4:          arg.CardLast4,
		CardBrand:          arg.CardBrand,
		CreatedAt:          time.Now(),
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createItemErr != nil {
		return database.OrderItem{}, m.createItemErr
	}
	item := database.OrderItem{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		Position:   arg.Position,
		MenuItemID: arg.MenuItemID,
		Name:       arg.Name,
		Price:      arg.Price,
		Quantity:   arg.Quantity,
	}
	m.items = append(m.items, item)
	return item, nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	if m.updateStatusRaceTo != "" {
		o.Status = m.updateStatusRaceTo
		m.orders[arg.ID] = o
	}
	if o.Status != arg.ExpectedStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	o.IsDelivered = arg.Status == enum.OrderStatusDelivered
	if o.IsDelivered {
		if !o.DeliveredAt.Valid {
			o.DeliveredAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		}
	} else {
		o.DeliveredAt = pgtype.Timestamptz{}
	}
	m.orders[arg.ID] = o
	return o, nil
}

func (m *memStore) MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.IsPaid = true
	if !o.PaidAt.Valid {
		o.PaidAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}
	o.PaymentResultID = arg.PaymentResultID
	o.PaymentResultStatus = arg.PaymentResultStatus
	o.PaymentResultUpdateTime = arg.PaymentResultUpdateTime
	o.PaymentResultEmail = arg.PaymentResultEmail
	m.orders[arg.ID] = o
	return o, nil
}

func (m *memStore) GetPendingGatewayPayment(ctx context.Context, orderID uuid.UUID) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID && p.Status == enum.PaymentStatusPending && p.PaymentMethod == enum.PaymentMethodStripe {
			return p, nil
		}
	}
	return database.Payment{}, pgx.ErrNoRows
}

func (m *memStore) GetPaymentForUpdate(ctx context.Context, id uuid.UUID) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createPaymentErr != nil {
		return database.Payment{}, m.createPaymentErr
	}
	p := database.Payment{
		ID:                     uuid.New(),
		OrderID:                arg.OrderID,
		UserID:                 arg.UserID,
		PaymentMethod:          arg.PaymentMethod,
		Amount:                 arg.Amount,
		Currency:               arg.Currency,
		Status:                 arg.Status,
		GatewayPaymentIntentID: arg.GatewayPaymentIntentID,
		GatewayCustomerID:      arg.GatewayCustomerID,
		CardLast4:              arg.CardLast4,
		CardBrand:              arg.CardBrand,
		CardExpMonth:           arg.CardExpMonth,
		CardExpYear:            arg.CardExpYear,
		CardHolderName:         arg.CardHolderName,
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *memStore) UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[arg.ID]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	p.Status = arg.Status
	m.payments[arg.ID] = p
	return p, nil
}

func (m *memStore) UpsertReview(ctx context.Context, arg database.UpsertReviewParams) (database.MenuItemReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{arg.MenuItemID, arg.CustomerID}
	r, ok := m.reviews[key]
	if !ok {
		r = database.MenuItemReview{ID: uuid.New(), MenuItemID: arg.MenuItemID, CustomerID: arg.CustomerID}
	}
	r.CustomerName = arg.CustomerName
	r.Rating = arg.Rating
	r.Comment = arg.Comment
	m.reviews[key] = r
	return r, nil
}

func (m *memStore) DeleteReview(ctx context.Context, arg database.DeleteReviewParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]uuid.UUID{arg.MenuItemID, arg.CustomerID}
	if _, ok := m.reviews[key]; !ok {
		return 0, nil
	}
	delete(m.reviews, key)
	return 1, nil
}

func (m *memStore) UpdateMenuItemRating(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menu[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	sum, n := int32(0), int32(0)
	for key, r := range m.reviews {
		if key[0] == id {
			sum += r.Rating
			n++
		}
	}
	rating := decimal.Zero
	if n > 0 {
		rating = decimal.NewFromInt32(sum).Div(decimal.NewFromInt32(n)).Round(2)
	}
	item.Rating = decimalToNumeric(rating)
	item.NumReviews = n
	m.menu[id] = item
	return item, nil
}

// --- Event recorder ---

type recordedEvent struct {
	restaurantID uuid.UUID
	event        string
	orderID      uuid.UUID
}

type recordingPublisher struct {
	events []recordedEvent
}

func (r *recordingPublisher) PublishOrder(restaurantID uuid.UUID, event string, order database.Order) {
	r.events = append(r.events, recordedEvent{restaurantID: restaurantID, event: event, orderID: order.ID})
}

// --- Helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// commitFailingBeginner hands out transactions whose Commit fails.
type commitFailingBeginner struct{}

func (commitFailingBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return &mockTx{commitErr: errors.New("commit failed")}, nil
}
