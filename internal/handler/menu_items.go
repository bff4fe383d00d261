package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/savora-food/api/internal/middleware"
)

// MenuItemStore defines the database methods needed by menu item handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuItemStore interface {
	ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) (int64, error)
}

// MenuItemHandler handles menu item endpoints.
type MenuItemHandler struct {
	store MenuItemStore
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(store MenuItemStore) *MenuItemHandler {
	return &MenuItemHandler{store: store}
}

// RegisterRoutes registers the public read endpoints.
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu-items", h.List)
	r.Get("/menu-items/{id}", h.Get)
}

// RegisterAdminRoutes registers the owner-gated endpoints. Mount behind
// RequireAdmin.
func (h *MenuItemHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/menu-items/mine", h.ListMine)
	r.Post("/menu-items", h.Create)
	r.Put("/menu-items/{id}", h.Update)
	r.Delete("/menu-items/{id}", h.Delete)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	IsAvailable *bool  `json:"is_available"`
}

type updateMenuItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Category    *string `json:"category"`
	ImageURL    *string `json:"image_url"`
	IsAvailable *bool   `json:"is_available"`
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Category    string    `json:"category"`
	ImageURL    *string   `json:"image_url"`
	IsAvailable bool      `json:"is_available"`
	Rating      string    `json:"rating"`
	NumReviews  int32     `json:"num_reviews"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       numericToString(m.Price),
		Category:    m.Category,
		ImageURL:    textPtr(m.ImageUrl),
		IsAvailable: m.IsAvailable,
		Rating:      numericToString(m.Rating),
		NumReviews:  m.NumReviews,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toMenuItemResponses(items []database.MenuItem) []menuItemResponse {
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	return resp
}

// --- Handlers ---

// List handles GET /menu-items?category=&search=.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := menuFilters(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list menu items", err)
		return
	}
	writeData(w, http.StatusOK, toMenuItemResponses(items))
}

// ListMine handles GET /menu-items/mine. Super-admins see every item.
func (h *MenuItemHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	params, ok := menuFilters(w, r)
	if !ok {
		return
	}
	ownerID, scoped := access.OwnerScope(middleware.PrincipalFromContext(r.Context()))
	params.CreatedBy = optionalUUID(ownerID, scoped)

	items, err := h.store.ListMenuItems(r.Context(), params)
	if err != nil {
		writeInternalError(w, "list own menu items", err)
		return
	}
	writeData(w, http.StatusOK, toMenuItemResponses(items))
}

// Get handles GET /menu-items/{id}.
func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		writeInternalError(w, "get menu item", err)
		return
	}
	writeData(w, http.StatusOK, toMenuItemResponse(item))
}

// Create handles POST /menu-items. The item is owned by the calling admin.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "name, price and category are required")
		return
	}
	if !enum.IsCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		Category:    req.Category,
		ImageUrl:    optionalText(req.ImageURL),
		IsAvailable: available,
		CreatedBy:   middleware.PrincipalFromContext(r.Context()).ID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "a menu item with this name already exists")
			return
		}
		writeInternalError(w, "create menu item", err)
		return
	}

	writeData(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update handles PUT /menu-items/{id}. Omitted fields keep their value.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req updateMenuItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := database.UpdateMenuItemParams{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		Category:    item.Category,
		ImageUrl:    item.ImageUrl,
		IsAvailable: item.IsAvailable,
	}
	if req.Name != nil {
		params.Name = strings.TrimSpace(*req.Name)
		if params.Name == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
	}
	if req.Description != nil {
		params.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Price = price
	}
	if req.Category != nil {
		if !enum.IsCategory(*req.Category) {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		params.Category = *req.Category
	}
	if req.ImageURL != nil {
		params.ImageUrl = optionalText(*req.ImageURL)
	}
	if req.IsAvailable != nil {
		params.IsAvailable = *req.IsAvailable
	}

	updated, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "a menu item with this name already exists")
			return
		}
		writeInternalError(w, "update menu item", err)
		return
	}

	writeData(w, http.StatusOK, toMenuItemResponse(updated))
}

// Delete handles DELETE /menu-items/{id}. Past orders keep their line item
// snapshots.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	n, err := h.store.DeleteMenuItem(r.Context(), item.ID)
	if err != nil {
		writeInternalError(w, "delete menu item", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "menu item not found")
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "menu item deleted"})
}

// --- Helpers ---

// loadOwned fetches the item named in the URL and checks the caller may
// change it.
func (h *MenuItemHandler) loadOwned(w http.ResponseWriter, r *http.Request) (database.MenuItem, bool) {
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return database.MenuItem{}, false
	}

	item, err := h.store.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return database.MenuItem{}, false
		}
		writeInternalError(w, "get menu item", err)
		return database.MenuItem{}, false
	}

	if err := access.CanMutate(middleware.PrincipalFromContext(r.Context()), item.CreatedBy).Err(); err != nil {
		writeServiceError(w, "menu item access", err)
		return database.MenuItem{}, false
	}
	return item, true
}

func menuFilters(w http.ResponseWriter, r *http.Request) (database.ListMenuItemsParams, bool) {
	var params database.ListMenuItemsParams
	if c := r.URL.Query().Get("category"); c != "" {
		if !enum.IsCategory(c) {
			writeError(w, http.StatusBadRequest, "invalid category")
			return params, false
		}
		params.Category = pgtype.Text{String: c, Valid: true}
	}
	if s := strings.TrimSpace(r.URL.Query().Get("search")); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}
	return params, true
}
