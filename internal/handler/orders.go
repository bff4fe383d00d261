package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/savora-food/api/internal/middleware"
	"github.com/savora-food/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateStatus(ctx context.Context, actor access.Principal, orderID uuid.UUID, status string) (database.Order, error)
	MarkDelivered(ctx context.Context, actor access.Principal, orderID uuid.UUID) (database.Order, error)
	RecordExternallyAssertedPayment(ctx context.Context, customerID, orderID uuid.UUID, receipt service.Receipt) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers endpoints open to any authenticated principal.
// Access to a single order is decided per request.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/payments", h.ListPayments)
}

// RegisterCustomerRoutes registers endpoints for the ordering customer.
// Mount behind RequireCustomer.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders/mine", h.ListMine)
	r.Put("/orders/{id}", h.MarkPaid)
	r.Put("/orders/{id}/pay", h.MarkPaid)
}

// RegisterAdminRoutes registers restaurant-side endpoints. Mount behind
// RequireAdmin.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Put("/orders/{id}/status", h.UpdateStatus)
	r.Put("/orders/{id}/deliver", h.Deliver)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items"`
	ShippingAddress shippingAddressBody      `json:"shipping_address"`
	PaymentMethod   string                   `json:"payment_method"`
	TaxPrice        string                   `json:"tax_price"`
	ShippingPrice   string                   `json:"shipping_price"`
	Card            *cardBody                `json:"card"`
}

type createOrderItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
}

type shippingAddressBody struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type cardBody struct {
	Number     string `json:"number"`
	Brand      string `json:"brand"`
	ExpMonth   int32  `json:"exp_month"`
	ExpYear    int32  `json:"exp_year"`
	HolderName string `json:"holder_name"`
}

func (c *cardBody) toInput() *service.CardInput {
	if c == nil {
		return nil
	}
	return &service.CardInput{
		Number:     c.Number,
		Brand:      c.Brand,
		ExpMonth:   c.ExpMonth,
		ExpYear:    c.ExpYear,
		HolderName: c.HolderName,
	}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type markPaidRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type paymentResultResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type orderResponse struct {
	ID              uuid.UUID              `json:"id"`
	UserID          uuid.UUID              `json:"user_id"`
	RestaurantID    uuid.UUID              `json:"restaurant_id"`
	ShippingAddress shippingAddressBody    `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	ItemsPrice      string                 `json:"items_price"`
	TaxPrice        string                 `json:"tax_price"`
	ShippingPrice   string                 `json:"shipping_price"`
	TotalPrice      string                 `json:"total_price"`
	IsPaid          bool                   `json:"is_paid"`
	PaidAt          *time.Time             `json:"paid_at"`
	PaymentResult   *paymentResultResponse `json:"payment_result"`
	IsDelivered     bool                   `json:"is_delivered"`
	DeliveredAt     *time.Time             `json:"delivered_at"`
	Status          string                 `json:"status"`
	CardLast4       *string                `json:"card_last4"`
	CardBrand       *string                `json:"card_brand"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Items           []orderItemResponse    `json:"items,omitempty"`
}

type orderItemResponse struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Quantity   int32     `json:"quantity"`
}

type orderDetailResponse struct {
	orderResponse
	Payments []paymentResponse `json:"payments"`
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		UserID:       o.UserID,
		RestaurantID: o.RestaurantID,
		ShippingAddress: shippingAddressBody{
			Address:    o.ShippingAddress,
			City:       o.ShippingCity,
			PostalCode: o.ShippingPostalCode,
			Country:    o.ShippingCountry,
		},
		PaymentMethod: o.PaymentMethod,
		ItemsPrice:    numericToString(o.ItemsPrice),
		TaxPrice:      numericToString(o.TaxPrice),
		ShippingPrice: numericToString(o.ShippingPrice),
		TotalPrice:    numericToString(o.TotalPrice),
		IsPaid:        o.IsPaid,
		PaidAt:        timePtr(o.PaidAt),
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   timePtr(o.DeliveredAt),
		Status:        o.Status,
		CardLast4:     textPtr(o.CardLast4),
		CardBrand:     textPtr(o.CardBrand),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.PaymentResultID.Valid {
		resp.PaymentResult = &paymentResultResponse{
			ID:           o.PaymentResultID.String,
			Status:       o.PaymentResultStatus.String,
			UpdateTime:   o.PaymentResultUpdateTime.String,
			EmailAddress: o.PaymentResultEmail.String,
		}
	}
	return resp
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := dbOrderToResponse(o)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      numericToString(item.Price),
			Quantity:   item.Quantity,
		}
	}
	return resp
}

// --- Handlers ---

// Create handles POST /orders. Prices come from the menu, never the client.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, service.ErrEmptyCart.Error())
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == "" {
			writeError(w, http.StatusBadRequest, formatItemError(i, "menu_item_id is required"))
			return
		}
		if item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, formatItemError(i, "quantity must be > 0"))
			return
		}
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerID: middleware.PrincipalFromContext(r.Context()).ID,
		Items:      svcItems,
		ShippingAddress: service.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
		TaxPrice:      req.TaxPrice,
		ShippingPrice: req.ShippingPrice,
		Card:          req.Card.toInput(),
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	writeData(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// ListMine handles GET /orders/mine.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	params, ok := orderFilters(w, r)
	if !ok {
		return
	}
	params.UserID = optionalUUID(p.ID, true)
	h.list(w, r, params)
}

// List handles GET /orders for admins. Restaurant admins only see their own
// orders; super-admins see everything.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := orderFilters(w, r)
	if !ok {
		return
	}
	ownerID, scoped := access.OwnerScope(middleware.PrincipalFromContext(r.Context()))
	params.RestaurantID = optionalUUID(ownerID, scoped)
	h.list(w, r, params)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, params database.ListOrdersParams) {
	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeData(w, http.StatusOK, listResponse[orderResponse]{
		Items:  resp,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternalError(w, "list order items", err)
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternalError(w, "list payments", err)
		return
	}

	writeData(w, http.StatusOK, orderDetailResponse{
		orderResponse: toOrderResponse(order, items),
		Payments:      toPaymentResponses(payments),
	})
}

// ListPayments handles GET /orders/{id}/payments.
func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), order.ID)
	if err != nil {
		writeInternalError(w, "list payments", err)
		return
	}
	writeData(w, http.StatusOK, toPaymentResponses(payments))
}

// MarkPaid handles PUT /orders/{id}/pay (and the older PUT /orders/{id}).
// The receipt is taken on the customer's word.
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req markPaidRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.svc.RecordExternallyAssertedPayment(r.Context(),
		middleware.PrincipalFromContext(r.Context()).ID, orderID, service.Receipt{
			ID:           req.ID,
			Status:       req.Status,
			UpdateTime:   req.UpdateTime,
			EmailAddress: req.EmailAddress,
		})
	if err != nil {
		writeServiceError(w, "mark order paid", err)
		return
	}
	writeData(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateStatus handles PUT /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), middleware.PrincipalFromContext(r.Context()), orderID, req.Status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}
	writeData(w, http.StatusOK, dbOrderToResponse(order))
}

// Deliver handles PUT /orders/{id}/deliver.
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.svc.MarkDelivered(r.Context(), middleware.PrincipalFromContext(r.Context()), orderID)
	if err != nil {
		writeServiceError(w, "deliver order", err)
		return
	}
	writeData(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Helpers ---

func (h *OrderHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.Order, bool) {
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return database.Order{}, false
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return database.Order{}, false
		}
		writeInternalError(w, "get order", err)
		return database.Order{}, false
	}

	p := middleware.PrincipalFromContext(r.Context())
	if err := access.CanViewOrder(p, order.UserID, order.RestaurantID).Err(); err != nil {
		writeServiceError(w, "order access", err)
		return database.Order{}, false
	}
	return order, true
}

func orderFilters(w http.ResponseWriter, r *http.Request) (database.ListOrdersParams, bool) {
	limit, offset := pagination(r)
	params := database.ListOrdersParams{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.IsOrderStatus(s) {
			writeError(w, http.StatusBadRequest, service.ErrInvalidStatus.Error())
			return params, false
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	return params, true
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
