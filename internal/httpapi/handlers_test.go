package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gudangku/backend/internal/devicestate"
	"gudangku/backend/internal/service"
	"gudangku/backend/internal/staging"
	"gudangku/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_MANAGER_PASSWORD", "manager-dev-password")
	t.Setenv("SEED_STAFF_PASSWORD", "staff-dev-password")

	repo := memory.NewSeeded()
	state := devicestate.NewMemoryStore()
	svc := service.New(repo, staging.New(repo, state), service.Limits{}, "device-1")
	auth := NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, "481592", repo)

	return New(svc, auth, "*")
}

func login(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token")
	}
	return resp.Token
}

func csrfToken(t *testing.T, handler http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token request failed: %d", rec.Code)
	}
	var resp struct {
		Token string `json:"csrf_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	return resp.Token
}

func authedRequest(t *testing.T, handler http.Handler, token string, csrf string, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Device-ID", "device-1")
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestItemsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestStageAndConfirmPurchaseFlow(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "staff", "staff-dev-password")
	csrf := csrfToken(t, handler)

	rec := authedRequest(t, handler, token, csrf, http.MethodPost, "/api/v1/batches/purchase/entries", map[string]any{
		"itemId":   "itm-beras",
		"qty":      "5",
		"unitCost": "15000",
		"taxId":    "tax-ppn",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("stage entry failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = authedRequest(t, handler, token, "", http.MethodGet, "/api/v1/batches/purchase/entries", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list staged failed: %d", rec.Code)
	}
	var staged struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&staged); err != nil {
		t.Fatalf("decode staged: %v", err)
	}
	if len(staged.Entries) != 1 {
		t.Fatalf("expected 1 staged entry, got %d", len(staged.Entries))
	}

	rec = authedRequest(t, handler, token, csrf, http.MethodPost, "/api/v1/batches/purchase/confirm", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm failed: %d %s", rec.Code, rec.Body.String())
	}
	var confirmed struct {
		GroupID string            `json:"groupId"`
		Rows    []json.RawMessage `json:"rows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&confirmed); err != nil {
		t.Fatalf("decode confirm: %v", err)
	}
	if len(confirmed.Rows) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(confirmed.Rows))
	}

	path := fmt.Sprintf("/api/v1/history/groups/%s/rows", confirmed.GroupID)
	rec = authedRequest(t, handler, token, "", http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("group rows failed: %d", rec.Code)
	}
}

func TestStockAndCostEndpoints(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "staff", "staff-dev-password")

	rec := authedRequest(t, handler, token, "", http.MethodGet, "/api/v1/stock?item_id=itm-beras", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stock lookup failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = authedRequest(t, handler, token, "", http.MethodGet, "/api/v1/costs?item_id=itm-beras", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cost lookup failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = authedRequest(t, handler, token, "", http.MethodGet, "/api/v1/costs?item_id=itm-beras&month=not-a-month", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed month, got %d", rec.Code)
	}
}

func TestEndingCountEndpoint(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "staff", "staff-dev-password")
	csrf := csrfToken(t, handler)

	// Seeded itm-telur carries 15 in stock; counting 12 writes off 3.
	rec := authedRequest(t, handler, token, csrf, http.MethodPost, "/api/v1/ending-count", map[string]any{
		"itemId":     "itm-telur",
		"countedQty": "12",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ending count failed: %d %s", rec.Code, rec.Body.String())
	}

	// Counting above the ledger is rejected.
	rec = authedRequest(t, handler, token, csrf, http.MethodPost, "/api/v1/ending-count", map[string]any{
		"itemId":     "itm-telur",
		"countedQty": "999",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for surplus count, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStaffForbiddenFromManagerEndpoints(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "staff", "staff-dev-password")

	rec := authedRequest(t, handler, token, "", http.MethodGet, "/api/v1/audit-logs", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff on audit logs, got %d", rec.Code)
	}
}

func TestVoidRequiresManagerPIN(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	managerToken := login(t, handler, "manager", "manager-dev-password")
	staffToken := login(t, handler, "staff", "staff-dev-password")
	csrf := csrfToken(t, handler)

	rec := authedRequest(t, handler, managerToken, csrf, http.MethodPost, "/api/v1/batches/purchase/entries", map[string]any{
		"itemId":   "itm-gula",
		"qty":      "2",
		"unitCost": "17500",
		"taxId":    "tax-ppn",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("stage entry failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = authedRequest(t, handler, managerToken, csrf, http.MethodPost, "/api/v1/batches/purchase/confirm", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm failed: %d %s", rec.Code, rec.Body.String())
	}
	var confirmed struct {
		Rows []struct {
			ID string `json:"id"`
		} `json:"rows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&confirmed); err != nil {
		t.Fatalf("decode confirm: %v", err)
	}
	rowID := confirmed.Rows[0].ID
	voidPath := fmt.Sprintf("/api/v1/log/%s/void", rowID)

	// Staff role is rejected before the PIN is even checked.
	rec = authedRequest(t, handler, staffToken, csrf, http.MethodPost, voidPath, map[string]any{
		"reason": "typo", "managerPin": "481592",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff void, got %d", rec.Code)
	}

	// Manager with a wrong PIN is rejected.
	rec = authedRequest(t, handler, managerToken, csrf, http.MethodPost, voidPath, map[string]any{
		"reason": "typo", "managerPin": "000001",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for bad PIN, got %d", rec.Code)
	}

	rec = authedRequest(t, handler, managerToken, csrf, http.MethodPost, voidPath, map[string]any{
		"reason": "typo", "managerPin": "481592",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("void failed: %d %s", rec.Code, rec.Body.String())
	}
}
