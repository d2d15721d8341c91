package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/http/handlers"
)

// cart mutations and confirmations leave audit entries
func TestAuditLogs(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})

	entries := captureLogs(t, func() {
		env.do(t, "POST", "/api/v1/carts/general/items", map[string]any{"id": 3, "name": "Olla", "unitPrice": "10"})
		env.do(t, "PUT", "/api/v1/carts/general/items/3", map[string]any{"quantity": 2})
		env.do(t, "POST", "/api/v1/checkout/general", map[string]any{"customerName": "Ana", "customerId": "123"})
	})

	add, ok := findAction(entries, "cart.add")
	if !ok {
		t.Fatalf("expected cart.add audit entry, got %+v", entries)
	}
	if add.ReqID == "" {
		t.Fatal("cart.add entry missing req_id")
	}
	if add.Fields["audit"] != true || add.Fields["kind"] != "general" {
		t.Fatalf("unexpected cart.add fields: %+v", add.Fields)
	}
	if _, ok := findAction(entries, "cart.set_quantity"); !ok {
		t.Fatal("expected cart.set_quantity audit entry")
	}
	conf, ok := findAction(entries, "checkout.confirmed")
	if !ok {
		t.Fatal("expected checkout.confirmed audit entry")
	}
	if conf.Fields["confirmation_id"] != float64(501) || conf.Fields["total"] != "20.00" {
		t.Fatalf("unexpected checkout.confirmed fields: %+v", conf.Fields)
	}
}

func TestValidationFailureIsLogged(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})
	entries := captureLogs(t, func() {
		env.do(t, "POST", "/api/v1/catalog/search", map[string]any{"term": "<b>"})
	})
	e, ok := findAction(entries, "input.invalid.q")
	if !ok {
		t.Fatalf("expected input.invalid.q entry, got %+v", entries)
	}
	if e.Level != "warning" {
		t.Fatalf("security entries log at warning, got %q", e.Level)
	}
}

// missing CSRF token is refused and logged; a matching token passes
func TestCSRFDenialLogs(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{CSRF: true})

	body := []byte(`{"id":1,"name":"Olla","unitPrice":"10"}`)
	var resp *http.Response
	entries := captureLogs(t, func() {
		req := httptest.NewRequest("POST", "/api/v1/carts/general/items", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: "sid", Value: testSID})
		var err error
		resp, err = env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", resp.StatusCode)
	}
	if _, ok := findAction(entries, "csrf.fail"); !ok {
		t.Fatalf("expected csrf.fail entry, got %+v", entries)
	}

	// a safe request issues the token cookie
	getReq := httptest.NewRequest("GET", "/api/v1/carts/general", nil)
	getReq.AddCookie(&http.Cookie{Name: "sid", Value: testSID})
	getResp, err := env.app.Test(getReq, -1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	token := extractCookie(getResp, "csrf_")
	if token == "" {
		t.Fatal("csrf cookie not issued on GET")
	}

	req := httptest.NewRequest("POST", "/api/v1/carts/general/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Csrf-Token", token)
	req.AddCookie(&http.Cookie{Name: "sid", Value: testSID})
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: token})
	okResp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if okResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", okResp.StatusCode)
	}
}
