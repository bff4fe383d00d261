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
	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/auth"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/savora-food/api/internal/middleware"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (database.Customer, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error)
	CreateAdmin(ctx context.Context, arg database.CreateAdminParams) (database.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (database.Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error)
}

// AuthHandler handles registration, login and token refresh for customers
// and restaurant admins.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.RegisterCustomer)
	r.Post("/auth/login", h.LoginCustomer)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/admin/auth/register", h.RegisterAdmin)
	r.Post("/admin/auth/login", h.LoginAdmin)
}

// --- Request / Response types ---

type registerCustomerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type registerAdminRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	RestaurantName string `json:"restaurant_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         any    `json:"user"`
}

type customerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type adminResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	RestaurantName string    `json:"restaurant_name"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCustomerResponse(c database.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Role:      c.Role,
		Phone:     textPtr(c.Phone),
		CreatedAt: c.CreatedAt,
	}
}

func toAdminResponse(a database.Admin) adminResponse {
	return adminResponse{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Role:           a.Role,
		Status:         a.Status,
		RestaurantName: a.RestaurantName,
		CreatedAt:      a.CreatedAt,
	}
}

// --- Customer handlers ---

// RegisterCustomer handles POST /auth/register.
func (h *AuthHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, "hash password", err)
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: hashed,
		Phone:          optionalText(strings.TrimSpace(req.Phone)),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email is already registered")
			return
		}
		writeInternalError(w, "create customer", err)
		return
	}

	h.respondWithCustomerTokens(w, http.StatusCreated, customer)
}

// LoginCustomer handles POST /auth/login.
func (h *AuthHandler) LoginCustomer(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	customer, err := h.store.GetCustomerByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternalError(w, "get customer by email", err)
		return
	}

	if !auth.CheckPassword(customer.HashedPassword, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithCustomerTokens(w, http.StatusOK, customer)
}

// CustomerMe handles GET /auth/me.
func (h *AuthHandler) CustomerMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	customer, err := h.store.GetCustomerByID(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		writeInternalError(w, "get customer", err)
		return
	}
	writeData(w, http.StatusOK, toCustomerResponse(customer))
}

// --- Admin handlers ---

// RegisterAdmin handles POST /admin/auth/register. New restaurant admins
// start pending and cannot log in until a super-admin approves them.
func (h *AuthHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req registerAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	req.RestaurantName = strings.TrimSpace(req.RestaurantName)
	if req.Name == "" || req.Email == "" || req.Password == "" || req.RestaurantName == "" {
		writeError(w, http.StatusBadRequest, "name, email, password and restaurant_name are required")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, "hash password", err)
		return
	}

	admin, err := h.store.CreateAdmin(r.Context(), database.CreateAdminParams{
		Name:           req.Name,
		Email:          req.Email,
		HashedPassword: hashed,
		Role:           enum.AdminRoleAdmin,
		Status:         enum.AdminStatusPending,
		RestaurantName: req.RestaurantName,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email is already registered")
			return
		}
		writeInternalError(w, "create admin", err)
		return
	}

	writeData(w, http.StatusCreated, toAdminResponse(admin))
}

// LoginAdmin handles POST /admin/auth/login.
func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	admin, err := h.store.GetAdminByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeInternalError(w, "get admin by email", err)
		return
	}

	if !auth.CheckPassword(admin.HashedPassword, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if d := access.CanAdminLogin(admin.Role, admin.Status); !d.Allowed {
		writeError(w, http.StatusForbidden, d.Reason)
		return
	}

	h.respondWithAdminTokens(w, admin)
}

// AdminMe handles GET /admin/auth/me.
func (h *AuthHandler) AdminMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	admin, err := h.store.GetAdminByID(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "admin not found")
			return
		}
		writeInternalError(w, "get admin", err)
		return
	}
	writeData(w, http.StatusOK, toAdminResponse(admin))
}

// --- Refresh ---

// Refresh exchanges a valid refresh token for a new token pair. Role and
// status are re-read so a rejected admin cannot keep refreshing.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	id, kind, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	switch kind {
	case enum.PrincipalCustomer:
		customer, err := h.store.GetCustomerByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusUnauthorized, "user not found")
				return
			}
			writeInternalError(w, "get customer", err)
			return
		}
		h.respondWithCustomerTokens(w, http.StatusOK, customer)

	case enum.PrincipalAdmin:
		admin, err := h.store.GetAdminByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, http.StatusUnauthorized, "user not found")
				return
			}
			writeInternalError(w, "get admin", err)
			return
		}
		if d := access.CanAdminLogin(admin.Role, admin.Status); !d.Allowed {
			writeError(w, http.StatusForbidden, d.Reason)
			return
		}
		h.respondWithAdminTokens(w, admin)

	default:
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	}
}

// --- Helpers ---

func (h *AuthHandler) respondWithCustomerTokens(w http.ResponseWriter, status int, c database.Customer) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, c.ID, enum.PrincipalCustomer, c.Role, "")
	if err != nil {
		writeInternalError(w, "generate token", err)
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, c.ID, enum.PrincipalCustomer)
	if err != nil {
		writeInternalError(w, "generate refresh token", err)
		return
	}
	writeData(w, status, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toCustomerResponse(c),
	})
}

func (h *AuthHandler) respondWithAdminTokens(w http.ResponseWriter, a database.Admin) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, a.ID, enum.PrincipalAdmin, a.Role, a.Status)
	if err != nil {
		writeInternalError(w, "generate token", err)
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, a.ID, enum.PrincipalAdmin)
	if err != nil {
		writeInternalError(w, "generate refresh token", err)
		return
	}
	writeData(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toAdminResponse(a),
	})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
