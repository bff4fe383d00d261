package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the payment service.
var (
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrAmountBelowTotal = errors.New("amount is less than the order total")
	ErrPaymentInFlight  = errors.New("a card payment for this order is already pending")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrIntentMismatch   = errors.New("payment intent does not match payment")
	ErrGatewayMethod    = errors.New("use the card payment flow for Stripe payments")
	ErrInvalidMethod    = errors.New("invalid payment method")
)

const defaultCurrency = "usd"

// intentSucceeded is the only gateway state that completes a payment.
const intentSucceeded = "succeeded"

// GatewayError wraps a failure reported by the payment gateway. Its message
// is the gateway's own and is safe to return to clients.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return e.Err.Error() }
func (e *GatewayError) Unwrap() error { return e.Err }

// Intent is the gateway's view of a charge attempt.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	CustomerID   string
	Created      time.Time
	PayerEmail   string
}

// IntentParams describes a payment intent to create. Amount is in minor units.
type IntentParams struct {
	Amount     int64
	Currency   string
	CustomerID string
	Metadata   map[string]string
}

// PaymentGateway is the external card processor.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreatePaymentIntent(ctx context.Context, params IntentParams) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
}

// PaymentStore defines the DB methods needed for payments.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	MarkOrderPaid(ctx context.Context, arg database.MarkOrderPaidParams) (database.Order, error)
	GetPendingGatewayPayment(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	GetPaymentForUpdate(ctx context.Context, id uuid.UUID) (database.Payment, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg database.UpdatePaymentStatusParams) (database.Payment, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentService creates and reconciles payments.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
	gateway  PaymentGateway
	currency string
	events   EventPublisher
}

// NewPaymentService creates a PaymentService. currency is the default used
// when a request does not name one. events may be nil.
func NewPaymentService(pool TxBeginner, newStore NewPaymentStore, gateway PaymentGateway, currency string, events EventPublisher) *PaymentService {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &PaymentService{pool: pool, newStore: newStore, gateway: gateway, currency: currency, events: events}
}

// InitiateRequest starts a gateway card payment.
type InitiateRequest struct {
	OrderID    uuid.UUID
	PayerID    uuid.UUID
	PayerEmail string
	Amount     string
	Currency   string
}

// InitiateResult is returned to the client to finish the payment with the gateway.
type InitiateResult struct {
	ClientSecret string
	PaymentID    uuid.UUID
	Payment      database.Payment
}

// InitiateCardPayment creates a gateway customer and payment intent and
// records a pending Payment for it.
//
// If the Payment cannot be stored after the intent was created, the intent
// is left at the gateway and its id is logged for manual reconciliation.
func (s *PaymentService) InitiateCardPayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	amount, err := parsePositive(req.Amount)
	if err != nil {
		return nil, err
	}
	currency := s.currencyOrDefault(req.Currency)

	err = s.inTx(ctx, func(store PaymentStore) error {
		order, err := store.GetOrder(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		if order.UserID != req.PayerID {
			return ErrNotOrderOwner
		}
		if order.IsPaid {
			return ErrOrderAlreadyPaid
		}
		_, err = store.GetPendingGatewayPayment(ctx, req.OrderID)
		switch {
		case err == nil:
			return ErrPaymentInFlight
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("get pending payment: %w", err)
		}
		return coversTotal(order, amount)
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"order_id": req.OrderID.String(),
		"user_id":  req.PayerID.String(),
	}
	customerID, err := s.gateway.CreateCustomer(ctx, req.PayerEmail, metadata)
	if err != nil {
		return nil, &GatewayError{Op: "create customer", Err: err}
	}
	intent, err := s.gateway.CreatePaymentIntent(ctx, IntentParams{
		Amount:     toMinorUnits(amount),
		Currency:   currency,
		CustomerID: customerID,
		Metadata:   metadata,
	})
	if err != nil {
		return nil, &GatewayError{Op: "create payment intent", Err: err}
	}

	var payment database.Payment
	err = s.inTx(ctx, func(store PaymentStore) error {
		var err error
		payment, err = store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:                req.OrderID,
			UserID:                 req.PayerID,
			PaymentMethod:          enum.PaymentMethodStripe,
			Amount:                 decimalToNumeric(amount),
			Currency:               currency,
			Status:                 enum.PaymentStatusPending,
			GatewayPaymentIntentID: optionalText(intent.ID),
			GatewayCustomerID:      optionalText(customerID),
		})
		return err
	})
	if err != nil {
		log.Printf("ERROR: payment intent %s created for order %s but not recorded: %v", intent.ID, req.OrderID, err)
		if isPendingPaymentConflict(err) {
			return nil, ErrPaymentInFlight
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	return &InitiateResult{ClientSecret: intent.ClientSecret, PaymentID: payment.ID, Payment: payment}, nil
}

// PaymentResult is a payment together with the order it belongs to.
type PaymentResult struct {
	Payment database.Payment
	Order   database.Order
}

// ConfirmCardPayment reconciles a gateway payment with the intent's current
// state at the gateway. A succeeded intent completes the payment and marks
// the order paid; any other state fails the payment. Repeating the call for
// a terminal intent leaves the order untouched and publishes nothing; an
// order that is already paid keeps its first receipt.
func (s *PaymentService) ConfirmCardPayment(ctx context.Context, payerID, paymentID uuid.UUID, intentID string) (*PaymentResult, error) {
	intent, err := s.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, &GatewayError{Op: "get payment intent", Err: err}
	}

	status := enum.PaymentStatusFailed
	if intent.Status == intentSucceeded {
		status = enum.PaymentStatusCompleted
	}

	var (
		result  PaymentResult
		paidNow bool
	)
	err = s.inTx(ctx, func(store PaymentStore) error {
		payment, err := store.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("get payment: %w", err)
		}
		if payment.UserID != payerID {
			return ErrNotOrderOwner
		}
		if !payment.GatewayPaymentIntentID.Valid || payment.GatewayPaymentIntentID.String != intent.ID {
			return ErrIntentMismatch
		}

		result.Payment, err = store.UpdatePaymentStatus(ctx, database.UpdatePaymentStatusParams{
			ID:     paymentID,
			Status: status,
		})
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		result.Order, err = store.GetOrderForUpdate(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if status != enum.PaymentStatusCompleted || result.Order.IsPaid {
			return nil
		}

		paidNow = true
		result.Order, err = store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
			ID:                      payment.OrderID,
			PaymentResultID:         optionalText(intent.ID),
			PaymentResultStatus:     optionalText(intent.Status),
			PaymentResultUpdateTime: optionalText(intent.Created.UTC().Format(time.RFC3339)),
			PaymentResultEmail:      pgtype.Text{String: intent.PayerEmail, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if paidNow {
		s.publish(EventOrderPaid, result.Order)
	}
	return &result, nil
}

// RecordPaymentRequest records a payment that does not go through the gateway.
type RecordPaymentRequest struct {
	OrderID  uuid.UUID
	PayerID  uuid.UUID
	Method   string
	Amount   string
	Currency string
	Card     *CardInput
}

// RecordNonGatewayPayment stores a payment made outside the card gateway.
// Cash on delivery stays pending and leaves the order unpaid; every other
// method is trusted and completes immediately.
func (s *PaymentService) RecordNonGatewayPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	if req.Method == enum.PaymentMethodStripe {
		return nil, ErrGatewayMethod
	}
	if !enum.IsPaymentMethod(req.Method) {
		return nil, ErrInvalidMethod
	}
	amount, err := parsePositive(req.Amount)
	if err != nil {
		return nil, err
	}

	status := enum.PaymentStatusCompleted
	if req.Method == enum.PaymentMethodCashOnDelivery {
		status = enum.PaymentStatusPending
	}

	params := database.CreatePaymentParams{
		OrderID:       req.OrderID,
		UserID:        req.PayerID,
		PaymentMethod: req.Method,
		Amount:        decimalToNumeric(amount),
		Currency:      s.currencyOrDefault(req.Currency),
		Status:        status,
	}
	if req.Card != nil {
		masked := req.Card.Mask()
		params.CardLast4 = optionalText(masked.Last4)
		params.CardBrand = optionalText(masked.Brand)
		params.CardHolderName = optionalText(masked.HolderName)
		if masked.ExpMonth > 0 {
			params.CardExpMonth = pgtype.Int4{Int32: masked.ExpMonth, Valid: true}
		}
		if masked.ExpYear > 0 {
			params.CardExpYear = pgtype.Int4{Int32: masked.ExpYear, Valid: true}
		}
	}

	var result PaymentResult
	err = s.inTx(ctx, func(store PaymentStore) error {
		order, err := store.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("get order: %w", err)
		}
		if order.UserID != req.PayerID {
			return ErrNotOrderOwner
		}
		if order.IsPaid {
			return ErrOrderAlreadyPaid
		}
		if err := coversTotal(order, amount); err != nil {
			return err
		}

		result.Payment, err = store.CreatePayment(ctx, params)
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		result.Order = order
		if status != enum.PaymentStatusCompleted {
			return nil
		}
		result.Order, err = store.MarkOrderPaid(ctx, database.MarkOrderPaidParams{
			ID:                      order.ID,
			PaymentResultID:         optionalText(result.Payment.ID.String()),
			PaymentResultStatus:     optionalText(status),
			PaymentResultUpdateTime: optionalText(time.Now().UTC().Format(time.RFC3339)),
			PaymentResultEmail:      pgtype.Text{String: "", Valid: true},
		})
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Order.IsPaid {
		s.publish(EventOrderPaid, result.Order)
	}
	return &result, nil
}

// inTx runs fn against a transaction-scoped store and commits when fn succeeds.
func (s *PaymentService) inTx(ctx context.Context, fn func(store PaymentStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.newStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PaymentService) currencyOrDefault(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return s.currency
	}
	return c
}

func (s *PaymentService) publish(event string, order database.Order) {
	if s.events != nil {
		s.events.PublishOrder(order.RestaurantID, event, order)
	}
}

// coversTotal rejects payments smaller than the order's total price.
func coversTotal(order database.Order, amount decimal.Decimal) error {
	if amount.LessThan(numericToDecimal(order.TotalPrice).Round(2)) {
		return ErrAmountBelowTotal
	}
	return nil
}

func parsePositive(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// toMinorUnits converts a major-unit amount to the gateway's integer minor units.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// isPendingPaymentConflict reports a violation of the one-pending-card-payment
// index (pgconn error code 23505).
func isPendingPaymentConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "payments_one_pending_gateway_per_order"
	}
	return false
}
