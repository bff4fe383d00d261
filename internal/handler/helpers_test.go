package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/savora-food/api/internal/auth"
	"github.com/savora-food/api/internal/enum"
)

const testJWTSecret = "test-secret"

func customerToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, id, enum.PrincipalCustomer, enum.CustomerRoleUser, "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func adminToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, id, enum.PrincipalAdmin, enum.AdminRoleAdmin, enum.AdminStatusApproved)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func superAdminToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, id, enum.PrincipalAdmin, enum.AdminRoleSuperAdmin, enum.AdminStatusApproved)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type envelopeBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var env envelopeBody
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
	return env
}

// decodeData decodes the envelope's data into a generic map.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatalf("expected success, got error: %+v", env.Error)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v (data: %s)", err, env.Data)
	}
	return data
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got: %s", rr.Body.String())
	}
	return env.Error.Message
}

func testNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

// decodeDataList decodes an envelope whose data is a JSON array.
func decodeDataList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Fatalf("expected success, got error: %+v", env.Error)
	}
	var data []map[string]interface{}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v (data: %s)", err, env.Data)
	}
	return data
}
