package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/savora-food/api/internal/auth"
	"github.com/savora-food/api/internal/enum"
	"github.com/savora-food/api/internal/middleware"
)

const testSecret = "test-secret"

func adminToken(t *testing.T, id uuid.UUID, role, status string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, id, enum.PrincipalAdmin, role, status)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func customerToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, id, enum.PrincipalCustomer, enum.CustomerRoleUser, "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token := customerToken(t, userID)

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.PrincipalID != userID {
			t.Errorf("principal ID: got %v, want %v", claims.PrincipalID, userID)
		}
		p := middleware.PrincipalFromContext(r.Context())
		if !p.IsCustomer() {
			t.Errorf("expected customer principal, got kind %q", p.Kind)
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, token)
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := serve(handler, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Error("expected success=false")
	}
	if body.Error.Message != "missing authorization header" {
		t.Errorf("message: got %q", body.Error.Message)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := serve(handler, "invalid-token")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token, _ := auth.GenerateToken("other-secret", uuid.New(), enum.PrincipalCustomer, enum.CustomerRoleUser, "")
	handler := middleware.Authenticate(testSecret)(okHandler())

	rr := serve(handler, token)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
		want  int
	}{
		{"approved admin", func(t *testing.T) string {
			return adminToken(t, uuid.New(), enum.AdminRoleAdmin, enum.AdminStatusApproved)
		}, http.StatusOK},
		{"super-admin", func(t *testing.T) string {
			return adminToken(t, uuid.New(), enum.AdminRoleSuperAdmin, enum.AdminStatusPending)
		}, http.StatusOK},
		{"pending admin", func(t *testing.T) string {
			return adminToken(t, uuid.New(), enum.AdminRoleAdmin, enum.AdminStatusPending)
		}, http.StatusForbidden},
		{"rejected admin", func(t *testing.T) string {
			return adminToken(t, uuid.New(), enum.AdminRoleAdmin, enum.AdminStatusRejected)
		}, http.StatusForbidden},
		{"customer", func(t *testing.T) string {
			return customerToken(t, uuid.New())
		}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Authenticate(testSecret)(middleware.RequireAdmin(okHandler()))
			rr := serve(handler, tt.token(t))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequireAdmin_WithoutAuthenticate(t *testing.T) {
	rr := serve(middleware.RequireAdmin(okHandler()), "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(middleware.RequireSuperAdmin(okHandler()))

	rr := serve(handler, adminToken(t, uuid.New(), enum.AdminRoleAdmin, enum.AdminStatusApproved))
	if rr.Code != http.StatusForbidden {
		t.Errorf("approved admin: got %d, want %d", rr.Code, http.StatusForbidden)
	}

	rr = serve(handler, adminToken(t, uuid.New(), enum.AdminRoleSuperAdmin, enum.AdminStatusApproved))
	if rr.Code != http.StatusOK {
		t.Errorf("super-admin: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRequireCustomer(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(middleware.RequireCustomer(okHandler()))

	rr := serve(handler, customerToken(t, uuid.New()))
	if rr.Code != http.StatusOK {
		t.Errorf("customer: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = serve(handler, adminToken(t, uuid.New(), enum.AdminRoleSuperAdmin, enum.AdminStatusApproved))
	if rr.Code != http.StatusForbidden {
		t.Errorf("super-admin: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
