package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/savora-food/api/internal/database"
)

// ContactStore defines the database methods needed by contact form handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ContactStore interface {
	CreateContactMessage(ctx context.Context, arg database.CreateContactMessageParams) (database.ContactMessage, error)
	ListContactMessages(ctx context.Context) ([]database.ContactMessage, error)
	MarkContactMessageRead(ctx context.Context, id uuid.UUID) (database.ContactMessage, error)
	DeleteContactMessage(ctx context.Context, id uuid.UUID) (int64, error)
}

// ContactHandler stores storefront contact form submissions.
type ContactHandler struct {
	store ContactStore
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(store ContactStore) *ContactHandler {
	return &ContactHandler{store: store}
}

// RegisterRoutes registers the public submit endpoint. Rate-limit it.
func (h *ContactHandler) RegisterRoutes(r chi.Router) {
	r.Post("/contact", h.Create)
}

// RegisterSuperAdminRoutes registers the inbox. Mount behind RequireSuperAdmin.
func (h *ContactHandler) RegisterSuperAdminRoutes(r chi.Router) {
	r.Get("/contact", h.List)
	r.Put("/contact/{id}/read", h.MarkRead)
	r.Delete("/contact/{id}", h.Delete)
}

const maxContactMessageLen = 5000

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type contactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func toContactResponse(m database.ContactMessage) contactResponse {
	return contactResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

// Create handles POST /contact.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "name, email and message are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Message) > maxContactMessageLen {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}

	msg, err := h.store.CreateContactMessage(r.Context(), database.CreateContactMessageParams{
		Name:    req.Name,
		Email:   req.Email,
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
	})
	if err != nil {
		writeInternalError(w, "create contact message", err)
		return
	}
	writeData(w, http.StatusCreated, toContactResponse(msg))
}

// List handles GET /contact.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.ListContactMessages(r.Context())
	if err != nil {
		writeInternalError(w, "list contact messages", err)
		return
	}

	resp := make([]contactResponse, len(msgs))
	for i, m := range msgs {
		resp[i] = toContactResponse(m)
	}
	writeData(w, http.StatusOK, resp)
}

// MarkRead handles PUT /contact/{id}/read.
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "message")
	if !ok {
		return
	}

	msg, err := h.store.MarkContactMessageRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		writeInternalError(w, "mark contact message read", err)
		return
	}
	writeData(w, http.StatusOK, toContactResponse(msg))
}

// Delete handles DELETE /contact/{id}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "id", "message")
	if !ok {
		return
	}

	n, err := h.store.DeleteContactMessage(r.Context(), id)
	if err != nil {
		writeInternalError(w, "delete contact message", err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "message deleted"})
}
