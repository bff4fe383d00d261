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
	"github.com/savora-food/api/internal/middleware"
)

// ChefStore defines the database methods needed by chef handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ChefStore interface {
	ListChefs(ctx context.Context, createdBy pgtype.UUID) ([]database.Chef, error)
	GetChef(ctx context.Context, id uuid.UUID) (database.Chef, error)
	CreateChef(ctx context.Context, arg database.CreateChefParams) (database.Chef, error)
	UpdateChef(ctx context.Context, arg database.UpdateChefParams) (database.Chef, error)
	DeleteChef(ctx context.Context, id uuid.UUID) (int64, error)
}

// ChefHandler handles chef profile endpoints.
type ChefHandler struct {
	store ChefStore
}

// NewChefHandler creates a new ChefHandler.
func NewChefHandler(store ChefStore) *ChefHandler {
	return &ChefHandler{store: store}
}

// RegisterRoutes registers the public read endpoints.
func (h *ChefHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chefs", h.List)
	r.Get("/chefs/{id}", h.Get)
}

// RegisterAdminRoutes registers owner-gated writes. Mount behind RequireAdmin.
func (h *ChefHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/chefs", h.Create)
	r.Put("/chefs/{id}", h.Update)
	r.Delete("/chefs/{id}", h.Delete)
}

type chefRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Bio       string `json:"bio"`
	ImageURL  string `json:"image_url"`
}

type chefResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Bio       string    `json:"bio"`
	ImageURL  *string   `json:"image_url"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toChefResponse(c database.Chef) chefResponse {
	return chefResponse{
		ID:        c.ID,
		Name:      c.Name,
		Specialty: c.Specialty,
		Bio:       c.Bio,
		ImageURL:  textPtr(c.ImageUrl),
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// List handles GET /chefs. ?restaurant=<admin id> narrows to one restaurant.
func (h *ChefHandler) List(w http.ResponseWriter, r *http.Request) {
	var owner pgtype.UUID
	if s := r.URL.Query().Get("restaurant"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid restaurant ID")
			return
		}
		owner = optionalUUID(id, true)
	}

	chefs, err := h.store.ListChefs(r.Context(), owner)
	if err != nil {
		writeInternalError(w, "list chefs", err)
		return
	}

	resp := make([]chefResponse, len(chefs))
	for i, c := range chefs {
		resp[i] = toChefResponse(c)
	}
	writeData(w, http.StatusOK, resp)
}

// Get handles GET /chefs/{id}.
func (h *ChefHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "chef")
	if !ok {
		return
	}

	chef, err := h.store.GetChef(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "chef not found")
			return
		}
		writeInternalError(w, "get chef", err)
		return
	}
	writeData(w, http.StatusOK, toChefResponse(chef))
}

// Create handles POST /chefs.
func (h *ChefHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req chefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	chef, err := h.store.CreateChef(r.Context(), database.CreateChefParams{
		Name:      req.Name,
		Specialty: strings.TrimSpace(req.Specialty),
		Bio:       strings.TrimSpace(req.Bio),
		ImageUrl:  optionalText(req.ImageURL),
		CreatedBy: middleware.PrincipalFromContext(r.Context()).ID,
	})
	if err != nil {
		writeInternalError(w, "create chef", err)
		return
	}
	writeData(w, http.StatusCreated, toChefResponse(chef))
}

// Update handles PUT /chefs/{id}.
func (h *ChefHandler) Update(w http.ResponseWriter, r *http.Request) {
	chef, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	var req chefRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := h.store.UpdateChef(r.Context(), database.UpdateChefParams{
		ID:        chef.ID,
		Name:      req.Name,
		Specialty: strings.TrimSpace(req.Specialty),
		Bio:       strings.TrimSpace(req.Bio),
		ImageUrl:  optionalText(req.ImageURL),
	})
	if err != nil {
		writeInternalError(w, "update chef", err)
		return
	}
	writeData(w, http.StatusOK, toChefResponse(updated))
}

// Delete handles DELETE /chefs/{id}.
func (h *ChefHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chef, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	n, err := h.store.DeleteChef(r.Context(), chef.ID)
	if err != nil {
		writeInternalError(w, "delete chef", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "chef not found")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "chef deleted"})
}

func (h *ChefHandler) loadOwned(w http.ResponseWriter, r *http.Request) (database.Chef, bool) {
	id, ok := urlUUID(w, r, "id", "chef")
	if !ok {
		return database.Chef{}, false
	}

	chef, err := h.store.GetChef(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "chef not found")
			return database.Chef{}, false
		}
		writeInternalError(w, "get chef", err)
		return database.Chef{}, false
	}

	if err := access.CanMutate(middleware.PrincipalFromContext(r.Context()), chef.CreatedBy).Err(); err != nil {
		writeServiceError(w, "chef access", err)
		return database.Chef{}, false
	}
	return chef, true
}
