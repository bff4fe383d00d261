package handler

import (
	"context"
	"errors"
	"net/http"
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

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService; narrow interface for testability.
type PaymentServicer interface {
	InitiateCardPayment(ctx context.Context, req service.InitiateRequest) (*service.InitiateResult, error)
	ConfirmCardPayment(ctx context.Context, payerID, paymentID uuid.UUID, intentID string) (*service.PaymentResult, error)
	RecordNonGatewayPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.PaymentResult, error)
}

// PaymentStore defines the database reads needed by payment handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PaymentStore interface {
	GetPayment(ctx context.Context, id uuid.UUID) (database.Payment, error)
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store}
}

// RegisterRoutes registers endpoints open to any authenticated principal.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/payments/{id}", h.Get)
}

// RegisterCustomerRoutes registers the paying endpoints. Mount behind
// RequireCustomer.
func (h *PaymentHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/payments/stripe", h.InitiateCard)
	r.Put("/payments/stripe/{id}/confirm", h.ConfirmCard)
	r.Post("/payments", h.Record)
}

// RegisterAdminRoutes registers the payment listing. Mount behind RequireAdmin.
func (h *PaymentHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/payments", h.List)
}

// --- Request / Response types ---

type initiatePaymentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type initiatePaymentResponse struct {
	ClientSecret string          `json:"client_secret"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Payment      paymentResponse `json:"payment"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type recordPaymentRequest struct {
	OrderID       string    `json:"order_id"`
	PaymentMethod string    `json:"payment_method"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Card          *cardBody `json:"card"`
}

type paymentResponse struct {
	ID                     uuid.UUID `json:"id"`
	OrderID                uuid.UUID `json:"order_id"`
	UserID                 uuid.UUID `json:"user_id"`
	PaymentMethod          string    `json:"payment_method"`
	Amount                 string    `json:"amount"`
	Currency               string    `json:"currency"`
	Status                 string    `json:"status"`
	GatewayPaymentIntentID *string   `json:"gateway_payment_intent_id"`
	CardLast4              *string   `json:"card_last4"`
	CardBrand              *string   `json:"card_brand"`
	CardExpMonth           *int32    `json:"card_exp_month"`
	CardExpYear            *int32    `json:"card_exp_year"`
	CardHolderName         *string   `json:"card_holder_name"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type paymentWithOrderResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:                     p.ID,
		OrderID:                p.OrderID,
		UserID:                 p.UserID,
		PaymentMethod:          p.PaymentMethod,
		Amount:                 numericToString(p.Amount),
		Currency:               p.Currency,
		Status:                 p.Status,
		GatewayPaymentIntentID: textPtr(p.GatewayPaymentIntentID),
		CardLast4:              textPtr(p.CardLast4),
		CardBrand:              textPtr(p.CardBrand),
		CardExpMonth:           int4Ptr(p.CardExpMonth),
		CardExpYear:            int4Ptr(p.CardExpYear),
		CardHolderName:         textPtr(p.CardHolderName),
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
	}
}

func toPaymentResponses(payments []database.Payment) []paymentResponse {
	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dbPaymentToResponse(p)
	}
	return resp
}

func toPaymentWithOrder(res *service.PaymentResult) paymentWithOrderResponse {
	return paymentWithOrderResponse{
		Payment: dbPaymentToResponse(res.Payment),
		Order:   dbOrderToResponse(res.Order),
	}
}

// --- Handlers ---

// InitiateCard handles POST /payments/stripe. The returned client secret is
// used by the browser to complete the card payment with the gateway.
func (h *PaymentHandler) InitiateCard(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	if req.Amount == "" {
		writeError(w, http.StatusBadRequest, "amount is required")
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	customer, err := h.store.GetCustomerByID(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "customer not found")
			return
		}
		writeInternalError(w, "get customer", err)
		return
	}

	result, err := h.svc.InitiateCardPayment(r.Context(), service.InitiateRequest{
		OrderID:    orderID,
		PayerID:    customer.ID,
		PayerEmail: customer.Email,
		Amount:     req.Amount,
		Currency:   req.Currency,
	})
	if err != nil {
		writeServiceError(w, "initiate card payment", err)
		return
	}

	writeData(w, http.StatusCreated, initiatePaymentResponse{
		ClientSecret: result.ClientSecret,
		PaymentID:    result.PaymentID,
		Payment:      dbPaymentToResponse(result.Payment),
	})
}

// ConfirmCard handles PUT /payments/stripe/{id}/confirm.
func (h *PaymentHandler) ConfirmCard(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := urlUUID(w, r, "id", "payment")
	if !ok {
		return
	}

	var req confirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	result, err := h.svc.ConfirmCardPayment(r.Context(), p.ID, paymentID, req.PaymentIntentID)
	if err != nil {
		writeServiceError(w, "confirm card payment", err)
		return
	}
	writeData(w, http.StatusOK, toPaymentWithOrder(result))
}

// Record handles POST /payments for methods that bypass the card gateway.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	if req.PaymentMethod == "" || req.Amount == "" {
		writeError(w, http.StatusBadRequest, "payment_method and amount are required")
		return
	}

	result, err := h.svc.RecordNonGatewayPayment(r.Context(), service.RecordPaymentRequest{
		OrderID:  orderID,
		PayerID:  middleware.PrincipalFromContext(r.Context()).ID,
		Method:   req.PaymentMethod,
		Amount:   req.Amount,
		Currency: req.Currency,
		Card:     req.Card.toInput(),
	})
	if err != nil {
		writeServiceError(w, "record payment", err)
		return
	}
	writeData(w, http.StatusCreated, toPaymentWithOrder(result))
}

// Get handles GET /payments/{id}. Visible to whoever may view the order.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := urlUUID(w, r, "id", "payment")
	if !ok {
		return
	}

	payment, err := h.store.GetPayment(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, service.ErrPaymentNotFound.Error())
			return
		}
		writeInternalError(w, "get payment", err)
		return
	}

	order, err := h.store.GetOrder(r.Context(), payment.OrderID)
	if err != nil {
		writeInternalError(w, "get payment order", err)
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	if err := access.CanViewOrder(p, order.UserID, order.RestaurantID).Err(); err != nil {
		writeServiceError(w, "payment access", err)
		return
	}
	writeData(w, http.StatusOK, dbPaymentToResponse(payment))
}

// List handles GET /payments?status=. Restaurant admins see payments for
// their own orders only.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	params := database.ListPaymentsParams{Limit: limit, Offset: offset}

	if s := r.URL.Query().Get("status"); s != "" {
		if s != enum.PaymentStatusPending && s != enum.PaymentStatusCompleted && s != enum.PaymentStatusFailed {
			writeError(w, http.StatusBadRequest, "invalid payment status")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	ownerID, scoped := access.OwnerScope(middleware.PrincipalFromContext(r.Context()))
	params.RestaurantID = optionalUUID(ownerID, scoped)

	payments, err := h.store.ListPayments(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list payments", err)
		return
	}
	writeData(w, http.StatusOK, listResponse[paymentResponse]{
		Items:  toPaymentResponses(payments),
		Limit:  limit,
		Offset: offset,
	})
}

func int4Ptr(v pgtype.Int4) *int32 {
	if !v.Valid {
		return nil
	}
	return &v.Int32
}
