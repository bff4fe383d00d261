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
	"github.com/savora-food/api/internal/enum"
	"github.com/savora-food/api/internal/notify"
)

// AdminStore defines the database methods needed by admin management handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AdminStore interface {
	ListAdmins(ctx context.Context) ([]database.Admin, error)
	UpdateAdminStatus(ctx context.Context, arg database.UpdateAdminStatusParams) (database.Admin, error)
	DeleteAdmin(ctx context.Context, id uuid.UUID) (int64, error)
}

// AdminHandler lets super-admins approve, reject and remove restaurant admins.
type AdminHandler struct {
	store    AdminStore
	notifier notify.Notifier
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminStore, notifier notify.Notifier) *AdminHandler {
	return &AdminHandler{store: store, notifier: notifier}
}

// RegisterRoutes registers admin management endpoints. Mount behind
// RequireSuperAdmin at /admins.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

type updateAdminStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /admins.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeInternalError(w, "list admins", err)
		return
	}

	resp := make([]adminResponse, len(admins))
	for i, a := range admins {
		resp[i] = toAdminResponse(a)
	}
	writeData(w, http.StatusOK, resp)
}

// UpdateStatus handles PUT /admins/{id}/status. The admin is e-mailed about
// the change through the notifier, without waiting for it.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "admin")
	if !ok {
		return
	}

	var req updateAdminStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !enum.IsAdminStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be one of pending, approved, rejected")
		return
	}

	admin, err := h.store.UpdateAdminStatus(r.Context(), database.UpdateAdminStatusParams{
		ID:     id,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "admin not found")
			return
		}
		writeInternalError(w, "update admin status", err)
		return
	}

	if admin.Role != enum.AdminRoleSuperAdmin {
		ev := notify.AdminStatusChanged{
			AdminID:        admin.ID,
			Name:           admin.Name,
			Email:          admin.Email,
			RestaurantName: admin.RestaurantName,
			Status:         admin.Status,
			ChangedAt:      time.Now().UTC(),
		}
		go h.notifier.AdminStatusChanged(context.WithoutCancel(r.Context()), ev)
	}

	writeData(w, http.StatusOK, toAdminResponse(admin))
}

// Delete handles DELETE /admins/{id}. Super-admin accounts cannot be deleted.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "admin")
	if !ok {
		return
	}

	n, err := h.store.DeleteAdmin(r.Context(), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusConflict, "admin still owns menu items, chefs or orders")
			return
		}
		writeInternalError(w, "delete admin", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "admin not found")
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "admin deleted"})
}
