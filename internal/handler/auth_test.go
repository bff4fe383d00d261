package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/savora-food/api/internal/auth"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/enum"
	"github.com/savora-food/api/internal/handler"
	"github.com/savora-food/api/internal/middleware"
)

// --- Mock AuthStore ---

// mockAuthStore keeps accounts in memory, keyed by e-mail.
type mockAuthStore struct {
	customers map[string]database.Customer
	admins    map[string]database.Admin
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		customers: map[string]database.Customer{},
		admins:    map[string]database.Admin{},
	}
}

func (m *mockAuthStore) CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error) {
	if _, ok := m.customers[arg.Email]; ok {
		return database.Customer{}, &pgconn.PgError{Code: "23505"}
	}
	c := database.Customer{
		ID:             uuid.New(),
		Name:           arg.Name,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		Role:           enum.CustomerRoleUser,
		Phone:          arg.Phone,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.customers[arg.Email] = c
	return c, nil
}

func (m *mockAuthStore) GetCustomerByEmail(ctx context.Context, email string) (database.Customer, error) {
	c, ok := m.customers[email]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockAuthStore) GetCustomerByID(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return database.Customer{}, pgx.ErrNoRows
}

func (m *mockAuthStore) CreateAdmin(ctx context.Context, arg database.CreateAdminParams) (database.Admin, error) {
	if _, ok := m.admins[arg.Email]; ok {
		return database.Admin{}, &pgconn.PgError{Code: "23505"}
	}
	a := database.Admin{
		ID:             uuid.New(),
		Name:           arg.Name,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		Status:         arg.Status,
		RestaurantName: arg.RestaurantName,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.admins[arg.Email] = a
	return a, nil
}

func (m *mockAuthStore) GetAdminByEmail(ctx context.Context, email string) (database.Admin, error) {
	a, ok := m.admins[email]
	if !ok {
		return database.Admin{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockAuthStore) GetAdminByID(ctx context.Context, id uuid.UUID) (database.Admin, error) {
	for _, a := range m.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return database.Admin{}, pgx.ErrNoRows
}

func (m *mockAuthStore) setAdminStatus(email, status string) {
	a := m.admins[email]
	a.Status = status
	m.admins[email] = a
}

// --- Test helpers ---

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.With(middleware.RequireCustomer).Get("/auth/me", h.CustomerMe)
		r.With(middleware.RequireAdmin).Get("/admin/auth/me", h.AdminMe)
	})
	return r
}

func registerCustomer(t *testing.T, router http.Handler, email string) map[string]interface{} {
	t.Helper()
	rr := doAuthRequest(t, router, "POST", "/auth/register", map[string]string{
		"name": "Ada", "email": email, "password": "secret123",
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	return decodeData(t, rr)
}

// --- Customer ---

func TestAuthRegisterCustomer_IssuesTokens(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	data := registerCustomer(t, router, "  Ada@Example.com ")

	claims, err := auth.ValidateToken(testJWTSecret, data["access_token"].(string))
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.Kind != enum.PrincipalCustomer || claims.Role != enum.CustomerRoleUser {
		t.Errorf("claims: got kind %q role %q", claims.Kind, claims.Role)
	}
	if data["refresh_token"] == "" {
		t.Error("expected refresh token")
	}
	user := data["user"].(map[string]interface{})
	if user["email"] != "ada@example.com" {
		t.Errorf("email not normalised: got %v", user["email"])
	}
	if _, leaked := user["hashed_password"]; leaked {
		t.Error("password hash must not be returned")
	}
}

func TestAuthRegisterCustomer_DuplicateEmail(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	registerCustomer(t, router, "ada@example.com")

	rr := doAuthRequest(t, router, "POST", "/auth/register", map[string]string{
		"name": "Ada", "email": "ADA@example.com", "password": "secret123",
	}, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestAuthRegisterCustomer_Validation(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.c", "password": "secret123"}},
		{"missing password", map[string]string{"name": "A", "email": "a@b.c"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.c", "password": "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/auth/register", tt.body, "")
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAuthLoginCustomer(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	registerCustomer(t, router, "ada@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"correct", "ada@example.com", "secret123", http.StatusOK},
		{"wrong password", "ada@example.com", "wrong-pass", http.StatusUnauthorized},
		{"unknown email", "bob@example.com", "secret123", http.StatusUnauthorized},
		{"empty", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/auth/login", map[string]string{
				"email": tt.email, "password": tt.password,
			}, "")
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthCustomerMe(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	data := registerCustomer(t, router, "ada@example.com")

	rr := doAuthRequest(t, router, "GET", "/auth/me", nil, data["access_token"].(string))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if me := decodeData(t, rr); me["email"] != "ada@example.com" {
		t.Errorf("email: got %v", me["email"])
	}
}

// --- Admin ---

func TestAuthAdmin_PendingUntilApproved(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	rr := doAuthRequest(t, router, "POST", "/admin/auth/register", map[string]string{
		"name": "Chef", "email": "chef@example.com", "password": "secret123", "restaurant_name": "Bistro",
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	data := decodeData(t, rr)
	if data["status"] != enum.AdminStatusPending {
		t.Errorf("status: got %v, want pending", data["status"])
	}
	if _, ok := data["access_token"]; ok {
		t.Error("pending admin must not receive tokens on registration")
	}

	login := map[string]string{"email": "chef@example.com", "password": "secret123"}
	rr = doAuthRequest(t, router, "POST", "/admin/auth/login", login, "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("pending login: got %d, want %d", rr.Code, http.StatusForbidden)
	}

	store.setAdminStatus("chef@example.com", enum.AdminStatusApproved)
	rr = doAuthRequest(t, router, "POST", "/admin/auth/login", login, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("approved login: got %d, want %d", rr.Code, http.StatusOK)
	}

	token := decodeData(t, rr)["access_token"].(string)
	rr = doAuthRequest(t, router, "GET", "/admin/auth/me", nil, token)
	if rr.Code != http.StatusOK {
		t.Errorf("me: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthAdmin_RejectedCannotLogin(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	doAuthRequest(t, router, "POST", "/admin/auth/register", map[string]string{
		"name": "Chef", "email": "chef@example.com", "password": "secret123", "restaurant_name": "Bistro",
	}, "")
	store.setAdminStatus("chef@example.com", enum.AdminStatusRejected)

	rr := doAuthRequest(t, router, "POST", "/admin/auth/login", map[string]string{
		"email": "chef@example.com", "password": "secret123",
	}, "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestAuthAdmin_MissingRestaurantName(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	rr := doAuthRequest(t, router, "POST", "/admin/auth/register", map[string]string{
		"name": "Chef", "email": "chef@example.com", "password": "secret123",
	}, "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Refresh ---

func TestAuthRefresh_Customer(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	data := registerCustomer(t, router, "ada@example.com")

	rr := doAuthRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": data["refresh_token"].(string),
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	refreshed := decodeData(t, rr)
	if _, err := auth.ValidateToken(testJWTSecret, refreshed["access_token"].(string)); err != nil {
		t.Errorf("refreshed access token invalid: %v", err)
	}
}

func TestAuthRefresh_AccessTokenRejected(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	data := registerCustomer(t, router, "ada@example.com")

	rr := doAuthRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": data["access_token"].(string),
	}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthRefresh_AdminRevoked(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	hashed, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin, _ := store.CreateAdmin(context.Background(), database.CreateAdminParams{
		Name: "Chef", Email: "chef@example.com", HashedPassword: hashed,
		Role: enum.AdminRoleAdmin, Status: enum.AdminStatusApproved, RestaurantName: "Bistro",
	})
	refresh, err := auth.GenerateRefreshToken(testJWTSecret, admin.ID, enum.PrincipalAdmin)
	if err != nil {
		t.Fatalf("refresh token: %v", err)
	}

	rr := doAuthRequest(t, router, "POST", "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("approved refresh: got %d, want %d", rr.Code, http.StatusOK)
	}

	store.setAdminStatus("chef@example.com", enum.AdminStatusRejected)
	rr = doAuthRequest(t, router, "POST", "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("rejected refresh: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
