package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/middleware"
	"github.com/savora-food/api/internal/service"
)

// ReviewServicer defines the service methods needed by review handlers.
// Satisfied by *service.ReviewService; narrow interface for testability.
type ReviewServicer interface {
	Upsert(ctx context.Context, in service.ReviewInput) (database.MenuItemReview, database.MenuItem, error)
	Remove(ctx context.Context, menuItemID, customerID uuid.UUID) (database.MenuItem, error)
}

// ReviewStore defines the database reads needed by review handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReviewStore interface {
	ListReviewsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.MenuItemReview, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error)
}

// ReviewHandler handles menu item review endpoints.
type ReviewHandler struct {
	svc   ReviewServicer
	store ReviewStore
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(svc ReviewServicer, store ReviewStore) *ReviewHandler {
	return &ReviewHandler{svc: svc, store: store}
}

// RegisterRoutes registers the public review listing.
func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu-items/{id}/reviews", h.List)
}

// RegisterCustomerRoutes registers review writes. Mount behind RequireCustomer.
func (h *ReviewHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/menu-items/{id}/reviews", h.Upsert)
	r.Delete("/menu-items/{id}/reviews", h.Remove)
}

type reviewRequest struct {
	Rating  int32  `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int32     `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type reviewResultResponse struct {
	Review   *reviewResponse  `json:"review,omitempty"`
	MenuItem menuItemResponse `json:"menu_item"`
}

func toReviewResponse(rv database.MenuItemReview) reviewResponse {
	return reviewResponse{
		ID:           rv.ID,
		MenuItemID:   rv.MenuItemID,
		CustomerID:   rv.CustomerID,
		CustomerName: rv.CustomerName,
		Rating:       rv.Rating,
		Comment:      rv.Comment,
		CreatedAt:    rv.CreatedAt,
		UpdatedAt:    rv.UpdatedAt,
	}
}

// List handles GET /menu-items/{id}/reviews.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	reviews, err := h.store.ListReviewsByMenuItem(r.Context(), id)
	if err != nil {
		writeInternalError(w, "list reviews", err)
		return
	}

	resp := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		resp[i] = toReviewResponse(rv)
	}
	writeData(w, http.StatusOK, resp)
}

// Upsert handles POST /menu-items/{id}/reviews. A second review from the
// same customer replaces the first.
func (h *ReviewHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	var req reviewRequest
	if !decodeJSON(w, r, &req) {
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

	review, item, err := h.svc.Upsert(r.Context(), service.ReviewInput{
		MenuItemID:   id,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Rating:       req.Rating,
		Comment:      req.Comment,
	})
	if err != nil {
		writeServiceError(w, "upsert review", err)
		return
	}

	rv := toReviewResponse(review)
	writeData(w, http.StatusOK, reviewResultResponse{Review: &rv, MenuItem: toMenuItemResponse(item)})
}

// Remove handles DELETE /menu-items/{id}/reviews.
func (h *ReviewHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	item, err := h.svc.Remove(r.Context(), id, p.ID)
	if err != nil {
		writeServiceError(w, "remove review", err)
		return
	}

	writeData(w, http.StatusOK, reviewResultResponse{MenuItem: toMenuItemResponse(item)})
}
