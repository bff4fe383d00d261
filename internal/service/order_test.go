package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
)

// newTestOrderService wires an OrderService to an in-memory store.
func newTestOrderService(store *memStore) (*OrderService, *mockTxBeginner, *recordingPublisher) {
	pool := &mockTxBeginner{}
	events := &recordingPublisher{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, events), pool, events
}

func testAddress() ShippingAddress {
	return ShippingAddress{Address: "1 Market St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func basicOrderReq(customerID uuid.UUID, items ...CreateOrderItemRequest) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   enum.OrderPaymentCard,
	}
}

func adminPrincipal(id uuid.UUID) access.Principal {
	return access.Principal{ID: id, Kind: enum.PrincipalAdmin, Role: enum.AdminRoleAdmin, Status: enum.AdminStatusApproved}
}

func superAdminPrincipal() access.Principal {
	return access.Principal{ID: uuid.New(), Kind: enum.PrincipalAdmin, Role: enum.AdminRoleSuperAdmin, Status: enum.AdminStatusApproved}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc, pool, _ := newTestOrderService(newMemStore())

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New()))
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got: %v", err)
	}
	if len(pool.txs) != 0 {
		t.Errorf("expected no transaction, got %d", len(pool.txs))
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	svc, _, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 0}))
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_InvalidMenuItemID(t *testing.T) {
	svc, _, _ := newTestOrderService(newMemStore())

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: "not-a-uuid", Quantity: 1}))
	if !errors.Is(err, ErrInvalidMenuItemID) {
		t.Fatalf("expected ErrInvalidMenuItemID, got: %v", err)
	}
}

func TestCreateOrder_MenuItemNotFound(t *testing.T) {
	store := newMemStore()
	svc, pool, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: uuid.New().String(), Quantity: 1}))
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
	if pool.commits() != 0 {
		t.Error("expected no commit")
	}
}

func TestCreateOrder_MenuItemUnavailable(t *testing.T) {
	store := newMemStore()
	admin := uuid.New()
	available := store.addMenuItem(admin, "Pho", "10.00")
	soldOut := store.addMenuItem(admin, "Banh Mi", "6.00")
	soldOut.IsAvailable = false
	store.menu[soldOut.ID] = soldOut
	svc, pool, events := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: available.ID.String(), Quantity: 1},
		CreateOrderItemRequest{MenuItemID: soldOut.ID.String(), Quantity: 1}))
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got: %v", err)
	}
	if pool.commits() != 0 || len(store.orders) != 0 {
		t.Error("expected nothing persisted")
	}
	if len(events.events) != 0 {
		t.Error("expected no events")
	}
}

func TestCreateOrder_InvalidPaymentMethod(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	svc, _, _ := newTestOrderService(store)

	req := basicOrderReq(uuid.New(), CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1})
	req.PaymentMethod = "Bitcoin"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got: %v", err)
	}
}

func TestCreateOrder_MissingShippingAddress(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	svc, _, _ := newTestOrderService(store)

	req := basicOrderReq(uuid.New(), CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1})
	req.ShippingAddress.City = "  "
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidShippingAddress) {
		t.Fatalf("expected ErrInvalidShippingAddress, got: %v", err)
	}
}

func TestCreateOrder_NegativeTax(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	svc, _, _ := newTestOrderService(store)

	req := basicOrderReq(uuid.New(), CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1})
	req.TaxPrice = "-1"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got: %v", err)
	}
}

// =====================
// Attribution + snapshot tests
// =====================

func TestCreateOrder_SingleRestaurant(t *testing.T) {
	store := newMemStore()
	adminX := uuid.New()
	itemA := store.addMenuItem(adminX, "Ramen", "10.00")
	customer := uuid.New()
	svc, pool, events := newTestOrderService(store)

	result, err := svc.CreateOrder(context.Background(), basicOrderReq(customer,
		CreateOrderItemRequest{MenuItemID: itemA.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := result.Order
	if o.RestaurantID != adminX {
		t.Errorf("restaurant = %s, want %s", o.RestaurantID, adminX)
	}
	if o.UserID != customer {
		t.Errorf("user = %s, want %s", o.UserID, customer)
	}
	if o.Status != enum.OrderStatusPending || o.IsPaid || o.IsDelivered {
		t.Errorf("unexpected initial state: status=%q paid=%v delivered=%v", o.Status, o.IsPaid, o.IsDelivered)
	}
	if !numericEquals(o.ItemsPrice, "20.00") {
		t.Errorf("items_price = %v, want 20.00", numericToDecimal(o.ItemsPrice))
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if !numericEquals(result.Items[0].Price, "10.00") {
		t.Errorf("item price = %v, want 10.00", numericToDecimal(result.Items[0].Price))
	}
	if result.Items[0].Name != "Ramen" {
		t.Errorf("item name = %q, want Ramen", result.Items[0].Name)
	}
	if pool.commits() != 1 {
		t.Errorf("expected 1 commit, got %d", pool.commits())
	}
	if len(events.events) != 1 || events.events[0].event != EventOrderCreated || events.events[0].restaurantID != adminX {
		t.Errorf("unexpected events: %+v", events.events)
	}
}

func TestCreateOrder_MultiItemSameRestaurant(t *testing.T) {
	store := newMemStore()
	admin := uuid.New()
	a := store.addMenuItem(admin, "Soup", "4.50")
	b := store.addMenuItem(admin, "Bread", "2.25")
	svc, _, _ := newTestOrderService(store)

	req := basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: a.ID.String(), Quantity: 2},
		CreateOrderItemRequest{MenuItemID: b.ID.String(), Quantity: 3},
	)
	req.TaxPrice = "1.10"
	req.ShippingPrice = "5"

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 4.50*2 + 2.25*3 = 15.75; + 1.10 + 5 = 21.85
	if !numericEquals(result.Order.ItemsPrice, "15.75") {
		t.Errorf("items_price = %v, want 15.75", numericToDecimal(result.Order.ItemsPrice))
	}
	if !numericEquals(result.Order.TotalPrice, "21.85") {
		t.Errorf("total_price = %v, want 21.85", numericToDecimal(result.Order.TotalPrice))
	}
	if result.Order.RestaurantID != admin {
		t.Errorf("restaurant = %s, want %s", result.Order.RestaurantID, admin)
	}
	for i, item := range result.Items {
		if item.Position != int32(i) {
			t.Errorf("item[%d] position = %d", i, item.Position)
		}
	}
}

func TestCreateOrder_CrossRestaurant(t *testing.T) {
	store := newMemStore()
	a := store.addMenuItem(uuid.New(), "Taco", "3.00")
	b := store.addMenuItem(uuid.New(), "Sushi", "12.00")
	svc, pool, events := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: a.ID.String(), Quantity: 1},
		CreateOrderItemRequest{MenuItemID: b.ID.String(), Quantity: 1},
	))
	if !errors.Is(err, ErrCrossRestaurantOrder) {
		t.Fatalf("expected ErrCrossRestaurantOrder, got: %v", err)
	}
	if len(store.orders) != 0 || len(store.items) != 0 {
		t.Errorf("expected nothing persisted, got %d orders %d items", len(store.orders), len(store.items))
	}
	if pool.commits() != 0 {
		t.Error("expected no commit")
	}
	if len(events.events) != 0 {
		t.Error("expected no events")
	}
}

func TestCreateOrder_SnapshotSurvivesMenuPriceChange(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Curry", "9.00")
	svc, _, _ := newTestOrderService(store)

	result, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := store.menu[item.ID]
	changed.Price = makeNumeric("99.00")
	changed.Name = "Deluxe Curry"
	store.menu[item.ID] = changed

	for _, stored := range store.items {
		if stored.OrderID != result.Order.ID {
			continue
		}
		if !numericEquals(stored.Price, "9.00") || stored.Name != "Curry" {
			t.Errorf("snapshot changed: name=%q price=%v", stored.Name, numericToDecimal(stored.Price))
		}
	}
}

func TestCreateOrder_CardMasked(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	svc, _, _ := newTestOrderService(store)

	req := basicOrderReq(uuid.New(), CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1})
	req.Card = &CardInput{Number: "4242 4242 4242 4242"}
	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.CardLast4.String != "4242" || result.Order.CardBrand.String != "visa" {
		t.Errorf("card = %q/%q, want 4242/visa", result.Order.CardLast4.String, result.Order.CardBrand.String)
	}
}

func TestCreateOrder_ItemInsertFails(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	store.createItemErr = errors.New("db down")
	svc, pool, events := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1}))
	if err == nil {
		t.Fatal("expected error")
	}
	if pool.commits() != 0 {
		t.Error("expected rollback, got commit")
	}
	if len(events.events) != 0 {
		t.Error("expected no events")
	}
}

func TestCreateOrder_CommitFails(t *testing.T) {
	store := newMemStore()
	item := store.addMenuItem(uuid.New(), "Pho", "10.00")
	pool := &commitFailingBeginner{}
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return store }, nil)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(uuid.New(),
		CreateOrderItemRequest{MenuItemID: item.ID.String(), Quantity: 1}))
	if err == nil {
		t.Fatal("expected commit error")
	}
}

// =====================
// Status machine tests
// =====================

func TestUpdateStatus_DeliveredSetsFields(t *testing.T) {
	store := newMemStore()
	admin := uuid.New()
	order := store.addOrder(uuid.New(), admin, enum.OrderStatusPending)
	svc, _, events := newTestOrderService(store)

	updated, err := svc.UpdateStatus(context.Background(), adminPrincipal(admin), order.ID, enum.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsDelivered || !updated.DeliveredAt.Valid {
		t.Errorf("expected delivered fields set, got delivered=%v at=%v", updated.IsDelivered, updated.DeliveredAt.Valid)
	}
	if len(events.events) != 1 || events.events[0].event != EventOrderStatusChanged {
		t.Errorf("unexpected events: %+v", events.events)
	}
}

func TestUpdateStatus_LeavingDeliveredClearsFields(t *testing.T) {
	for _, next := range []string{enum.OrderStatusInProcess, enum.OrderStatusOutOfDelivery, enum.OrderStatusPending} {
		t.Run(next, func(t *testing.T) {
			store := newMemStore()
			admin := uuid.New()
			order := store.addOrder(uuid.New(), admin, enum.OrderStatusDelivered)
			svc, _, _ := newTestOrderService(store)

			updated, err := svc.UpdateStatus(context.Background(), adminPrincipal(admin), order.ID, next)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.IsDelivered || updated.DeliveredAt.Valid {
				t.Errorf("expected delivered fields cleared, got delivered=%v at=%v", updated.IsDelivered, updated.DeliveredAt.Valid)
			}
			if updated.Status != next {
				t.Errorf("status = %q, want %q", updated.Status, next)
			}
		})
	}
}

func TestUpdateStatus_DirectJump(t *testing.T) {
	store := newMemStore()
	order := store.addOrder(uuid.New(), uuid.New(), enum.OrderStatusPending)
	svc, _, _ := newTestOrderService(store)

	updated, err := svc.UpdateStatus(context.Background(), superAdminPrincipal(), order.ID, enum.OrderStatusOutOfDelivery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enum.OrderStatusOutOfDelivery {
		t.Errorf("status = %q", updated.Status)
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	store := newMemStore()
	admin := uuid.New()
	order := store.addOrder(uuid.New(), admin, enum.OrderStatusPending)
	svc, pool, _ := newTestOrderService(store)

	_, err := svc.UpdateStatus(context.Background(), adminPrincipal(admin), order.ID, "Shipped")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got: %v", err)
	}
	if len(pool.txs) != 0 {
		t.Error("expected no transaction for invalid status")
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestOrderService(newMemStore())

	_, err := svc.UpdateStatus(context.Background(), superAdminPrincipal(), uuid.New(), enum.OrderStatusInProcess)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestUpdateStatus_NonOwnerRejected(t *testing.T) {
	customer := uuid.New()
	actors := map[string]access.Principal{
		"other admin": adminPrincipal(uuid.New()),
		"customer":    {ID: customer, Kind: enum.PrincipalCustomer, Role: enum.CustomerRoleUser},
		"legacy customer admin": {ID: uuid.New(), Kind: enum.PrincipalCustomer, Role: enum.CustomerRoleAdmin},
	}
	for name, actor := range actors {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			order := store.addOrder(customer, uuid.New(), enum.OrderStatusPending)
			svc, pool, _ := newTestOrderService(store)

			_, err := svc.UpdateStatus(context.Background(), actor, order.ID, enum.OrderStatusInProcess)
			if !errors.Is(err, access.ErrNotAuthorized) {
				t.Fatalf("expected ErrNotAuthorized, got: %v", err)
			}
			if store.orders[order.ID].Status != enum.OrderStatusPending {
				t.Error("status changed for unauthorized actor")
			}
			if pool.commits() != 0 {
				t.Error("expected no commit")
			}

			_, err = svc.MarkDelivered(context.Background(), actor, order.ID)
			if !errors.Is(err, access.ErrNotAuthorized) {
				t.Fatalf("MarkDelivered: expected ErrNotAuthorized, got: %v", err)
			}
		})
	}
}

func TestUpdateStatus_ConcurrentChange(t *testing.T) {
	store := newMemStore()
	admin := uuid.New()
	order := store.addOrder(uuid.New(), admin, enum.OrderStatusPending)
	store.updateStatusRaceTo = enum.OrderStatusInProcess
	svc, _, _ := newTestOrderService(store)

	_, err := svc.UpdateStatus(context.Background(), adminPrincipal(admin), order.ID, enum.OrderStatusDelivered)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got: %v", err)
	}
}

func TestMarkDelivered(t *testing.T) {
	store := newMemStore()
	admin := uuid.New()
	order := store.addOrder(uuid.New(), admin, enum.OrderStatusOutOfDelivery)
	svc, _, _ := newTestOrderService(store)

	updated, err := svc.MarkDelivered(context.Background(), adminPrincipal(admin), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enum.OrderStatusDelivered || !updated.IsDelivered || !updated.DeliveredAt.Valid {
		t.Errorf("unexpected state: %+v", updated)
	}
}

// =====================
// Externally asserted payment
// =====================

func TestRecordExternallyAssertedPayment(t *testing.T) {
	store := newMemStore()
	customer := uuid.New()
	order := store.addOrder(customer, uuid.New(), enum.OrderStatusPending)
	svc, _, events := newTestOrderService(store)

	paid, err := svc.RecordExternallyAssertedPayment(context.Background(), customer, order.ID, Receipt{
		ID: "PAYPAL-123", Status: "COMPLETED", UpdateTime: "2024-01-01T00:00:00Z", EmailAddress: "a@b.c",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !paid.IsPaid || !paid.PaidAt.Valid {
		t.Error("expected order paid")
	}
	if paid.PaymentResultID.String != "PAYPAL-123" || paid.PaymentResultEmail.String != "a@b.c" {
		t.Errorf("unexpected payment result: %+v", paid)
	}
	if len(events.events) != 1 || events.events[0].event != EventOrderPaid {
		t.Errorf("unexpected events: %+v", events.events)
	}
}

func TestRecordExternallyAssertedPayment_NotOwner(t *testing.T) {
	store := newMemStore()
	order := store.addOrder(uuid.New(), uuid.New(), enum.OrderStatusPending)
	svc, _, _ := newTestOrderService(store)

	_, err := svc.RecordExternallyAssertedPayment(context.Background(), uuid.New(), order.ID, Receipt{ID: "x"})
	if !errors.Is(err, ErrNotOrderOwner) {
		t.Fatalf("expected ErrNotOrderOwner, got: %v", err)
	}
	if store.orders[order.ID].IsPaid {
		t.Error("order marked paid by non-owner")
	}
}

func TestRecordExternallyAssertedPayment_NotFound(t *testing.T) {
	svc, _, _ := newTestOrderService(newMemStore())

	_, err := svc.RecordExternallyAssertedPayment(context.Background(), uuid.New(), uuid.New(), Receipt{})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}
