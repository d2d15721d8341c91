package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/repos"
)

const testSID = "6f1c2a9e-3b1d-4c1e-9a57-0d8a3c2b1e10"

// fakeStore stands in for the remote store API: a two-page catalog and an
// order endpoint that rejects the customer "RECHAZAR".
type fakeStore struct {
	orders atomic.Int64
	srv    *httptest.Server
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	fs := &fakeStore{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/productos-moderna/1", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		term := r.URL.Query().Get("search")
		fmt.Fprintf(w, `{"success":true,"productos":{"current_page":%d,"last_page":2,"data":[
		  {"id":%d,"nombre":"Olla %s","descripcion":"","precio":"10.00","precio_descuento":null,"stock":7,"producto":null},
		  {"id":%d,"nombre":"Taza %s","descripcion":"","precio":"5.50","precio_descuento":null,"stock":0,"producto":null}
		]}}`, page, page*10+1, term, page*10+2, term)
	})
	mux.HandleFunc("/api/ventas/moderno", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["nombre_cliente"] == "RECHAZAR" {
			_, _ = io.WriteString(w, `{"success":false,"message":"Stock insuficiente"}`)
			return
		}
		id := 500 + fs.orders.Add(1)
		fmt.Fprintf(w, `{"success":true,"message":"ok","venta":{"id":%d,"fecha":"2026-10-18","nombre_cliente":%q,"ci":%q,"costo_total":%v,"tipo_pago":"Efectivo","garantia":"sin garantia","descuento":0,"estado":"RESERVADO"}}`,
			id, body["nombre_cliente"], body["ci"], body["costo_total"])
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

type testEnv struct {
	app   *fiber.App
	deps  *handlers.Deps
	store *fakeStore
}

func newTestEnv(t *testing.T, opts handlers.AppOptions) *testEnv {
	t.Helper()
	store := newFakeStore(t)
	return newTestEnvWithBackend(t, store, store.srv.URL+"/api", opts)
}

func newTestEnvWithBackend(t *testing.T, store *fakeStore, baseURL string, opts handlers.AppOptions) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		StoreName:      "Importadora Miranda",
		LogoPath:       "../../web/static/missing-logo.png",
		SearchDebounce: 10 * time.Millisecond,
	}
	client := backend.New(backend.Options{BaseURL: baseURL, MediaBaseURL: "http://media.test", Timeout: 2 * time.Second})
	deps := handlers.NewDeps(repos.NewMemoryKV(), db, client, cfg, metrics.New())
	t.Cleanup(deps.Close)
	return &testEnv{app: handlers.NewApp(deps, opts), deps: deps, store: store}
}

// do sends a JSON request with the test session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	return e.doAs(t, testSID, method, path, body)
}

// doAs sends a JSON request as session sid; an empty sid sends no cookie.
func (e *testEnv) doAs(t *testing.T, sid, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	ReqID  string         `json:"req_id"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// captureLogs redirects the structured logger while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	lw := &lockedWriter{w: &bytes.Buffer{}}
	old := applog.Writer()
	applog.SetOutput(lw)
	defer applog.SetOutput(old)

	fn()

	lw.mu.Lock()
	defer lw.mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(lw.w.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findAction(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
