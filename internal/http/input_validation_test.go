package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"storefront/internal/http/handlers"
)

// reject malformed inputs early
func TestValidationBadInputs(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})

	cases := []struct {
		method, path string
		body         any
		want         int
	}{
		{"GET", "/api/v1/catalog/page?search=%3Cscript%3E", nil, http.StatusBadRequest},
		{"POST", "/api/v1/catalog/search", map[string]any{"term": "<img src=x>"}, http.StatusBadRequest},
		{"PUT", "/api/v1/carts/general/items/abc", map[string]any{"quantity": 1}, http.StatusBadRequest},
		{"DELETE", "/api/v1/carts/general/items/-3", nil, http.StatusBadRequest},
		{"POST", "/api/v1/carts/general/products/0", nil, http.StatusBadRequest},
		{"POST", "/api/v1/checkout/other", map[string]any{"customerName": "Ana", "customerId": "1"}, http.StatusNotFound},
		{"GET", "/api/v1/receipts/x1", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, body := env.do(t, tc.method, tc.path, tc.body)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: expected %d, got %d body=%s", tc.method, tc.path, tc.want, resp.StatusCode, body)
		}
	}

	// markup in the CI never reaches the backend
	env.do(t, "POST", "/api/v1/carts/general/items", map[string]any{"id": 1, "name": "Olla", "unitPrice": "1"})
	resp, _ := env.do(t, "POST", "/api/v1/checkout/general", map[string]any{"customerName": "Ana", "customerId": "<script>"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad CI expected 400, got %d", resp.StatusCode)
	}
	if env.store.orders.Load() != 0 {
		t.Fatal("invalid checkout reached the backend")
	}
}

// templates auto-escape untrusted text
func TestTemplateAutoEscape(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})
	env.do(t, "POST", "/api/v1/carts/reservation/items", map[string]any{"id": 1, "name": "<script>alert(1)</script>", "unitPrice": "1"})
	env.do(t, "POST", "/api/v1/checkout/reservation", map[string]any{"customerName": "<script>alert(2)</script>", "customerId": "77"})

	for _, path := range []string{"/cart/reservation", "/reservas/501"} {
		_, body := env.do(t, "GET", path, nil)
		s := string(body)
		if strings.Contains(s, "<script>alert(") {
			t.Fatalf("%s: found unescaped script tag in output", path)
		}
	}
	_, body := env.do(t, "GET", "/reservas/501", nil)
	if !strings.Contains(string(body), "&lt;script&gt;alert(2)&lt;/script&gt;") {
		t.Fatalf("escaped customer name not found; output=%s", body)
	}
}
