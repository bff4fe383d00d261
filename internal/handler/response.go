package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/auth"
	"github.com/savora-food/api/internal/service"
	"github.com/savora-food/api/internal/upload"
	"github.com/savora-food/api/internal/vision"
	"github.com/shopspring/decimal"
)

// verboseErrors exposes the text of unexpected errors in 500 responses.
// Only enabled in development.
var verboseErrors atomic.Bool

// SetVerboseErrors toggles whether 500 responses carry the underlying error.
func SetVerboseErrors(on bool) { verboseErrors.Store(on) }

// --- Envelope ---

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: &apiError{Message: msg}})
}

func writeInternalError(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s: %v", op, err)
	msg := "internal server error"
	if verboseErrors.Load() {
		msg = err.Error()
	}
	writeError(w, http.StatusInternalServerError, msg)
}

// writeServiceError maps domain errors to HTTP statuses. Anything it does
// not recognise is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var gwErr *service.GatewayError
	var aiErr *vision.UpstreamError

	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFoundError(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, access.ErrNotAuthorized), errors.Is(err, service.ErrNotOrderOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case isConflictError(err):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &gwErr):
		log.Printf("ERROR: %s: gateway %s: %v", op, gwErr.Op, gwErr.Err)
		writeError(w, http.StatusInternalServerError, gwErr.Error())
	case errors.As(err, &aiErr):
		log.Printf("ERROR: %s: %v", op, aiErr)
		writeError(w, http.StatusInternalServerError, aiErr.Error())
	default:
		writeInternalError(w, op, err)
	}
}

// isValidationError reports errors caused by bad client input (400).
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrCrossRestaurantOrder) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInvalidShippingAddress) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrAmountBelowTotal) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrIntentMismatch) ||
		errors.Is(err, service.ErrGatewayMethod) ||
		errors.Is(err, service.ErrInvalidMethod) ||
		errors.Is(err, service.ErrInvalidRating) ||
		errors.Is(err, upload.ErrTooLarge) ||
		errors.Is(err, upload.ErrUnsupportedType) ||
		errors.Is(err, upload.ErrEmpty) ||
		errors.Is(err, auth.ErrPasswordTooShort)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, service.ErrMenuItemNotFound) ||
		errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrPaymentNotFound) ||
		errors.Is(err, service.ErrReviewNotFound)
}

func isConflictError(err error) bool {
	return errors.Is(err, service.ErrStatusConflict) ||
		errors.Is(err, service.ErrPaymentInFlight) ||
		errors.Is(err, service.ErrOrderAlreadyPaid)
}

// isUniqueViolation checks for PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation checks for PostgreSQL foreign_key_violation (23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// --- Request helpers ---

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func urlUUID(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads limit/offset; limit defaults to 20 and is capped at 100.
func pagination(r *http.Request) (limit, offset int32) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = int32(min(v, 100))
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = int32(v)
		}
	}
	return limit, offset
}

type listResponse[T any] struct {
	Items  []T   `json:"items"`
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

// --- Conversions ---

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

var errInvalidPrice = errors.New("price must be a non-negative number")

// parsePrice parses a non-negative money amount rounded to cents.
func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return pgtype.Numeric{}, errInvalidPrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func optionalUUID(id uuid.UUID, valid bool) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: valid}
}
