package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/toxifacil/toxifacil/libs/auth"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/audit"
)

func testHandler() *AuthHandler {
	return &AuthHandler{
		jwtSecret:  "test-secret",
		accessTTL:  time.Hour,
		refreshTTL: 30 * 24 * time.Hour,
		publicURL:  "http://localhost:3000",
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	h := testHandler()
	body := `{"email":"ana@example.com","password":"abc12345","type":"client","client":{"full_name":"Ana Souza","cpf":"52998224725","phone":"11987654321"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "maiúscula") {
		t.Fatalf("expected uppercase-letter message, got %q", rec.Body.String())
	}
}

func TestRegisterRejectsIncompleteProfile(t *testing.T) {
	h := testHandler()
	body := `{"email":"lab@example.com","password":"Abc12345","type":"laboratory","laboratory":{"company_name":"Lab Vida"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterRejectsWrongMethod(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/register", nil)
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSessionReturnsClaims(t *testing.T) {
	h := testHandler()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      "user-1",
		Email:    "ana@example.com",
		Name:     "Ana Souza",
		UserType: auth.UserTypeClient,
		Iat:      now.Unix(),
		Exp:      now.Add(time.Hour).Unix(),
	}, h.jwtSecret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.Session(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "user-1" || resp.UserType != auth.UserTypeClient {
		t.Fatalf("unexpected session response: %+v", resp)
	}
}

func TestSessionExpiredTokenHasDistinctMessage(t *testing.T) {
	h := testHandler()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub: "user-1",
		Iat: now.Add(-2 * time.Hour).Unix(),
		Exp: now.Add(-time.Hour).Unix(),
	}, h.jwtSecret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.Session(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session expired") {
		t.Fatalf("expected session-expired message, got %q", rec.Body.String())
	}
}

func TestSessionMissingHeader(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	rec := httptest.NewRecorder()

	h.Session(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuditDisabledWithoutAdminKey(t *testing.T) {
	h := testHandler()
	h.audit = audit.NewRepository(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/audit", nil)
	rec := httptest.NewRecorder()

	h.Audit(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no admin key configured, got %d", rec.Code)
	}
}

func TestAuditRejectsWrongAdminKey(t *testing.T) {
	h := testHandler()
	h.audit = audit.NewRepository(nil)
	h.adminKey = "ops-key"

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/audit", nil)
	req.Header.Set("X-Admin-Key", "guess")
	rec := httptest.NewRecorder()

	h.Audit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong admin key, got %d", rec.Code)
	}
}
