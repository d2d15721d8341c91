package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/http/handlers"
)

type catalogJSON struct {
	Term  string `json:"term"`
	Items []struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		DisplayPrice string `json:"displayPrice"`
		Availability struct {
			Status string `json:"status"`
			Qty    int    `json:"qty"`
		} `json:"availability"`
	} `json:"items"`
	Page    int    `json:"page"`
	HasMore bool   `json:"hasMore"`
	Loading bool   `json:"loading"`
	Err     string `json:"error"`
}

func TestCatalogAPI_BrowseAndPaginate(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})

	resp, body := env.do(t, "GET", "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[catalogJSON](t, body)
	require.Len(t, st.Items, 2)
	assert.Equal(t, 1, st.Page)
	assert.True(t, st.HasMore)
	assert.Equal(t, "IN_STOCK", st.Items[0].Availability.Status)
	assert.Equal(t, "OUT_OF_STOCK", st.Items[1].Availability.Status)
	assert.Equal(t, "10.00", st.Items[0].DisplayPrice)

	resp, body = env.do(t, "POST", "/api/v1/catalog/more", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = decode[catalogJSON](t, body)
	assert.Len(t, st.Items, 4)
	assert.False(t, st.HasMore)
	assert.Equal(t, int64(21), st.Items[2].ID)

	resp, _ = env.do(t, "POST", "/api/v1/catalog/more", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCatalogAPI_AddBrowsedProduct(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})
	env.do(t, "GET", "/api/v1/catalog", nil)

	resp, body := env.do(t, "POST", "/api/v1/carts/reservation/products/11", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	cart := decode[cartJSON](t, body)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "10.00", cart.TotalPrice)

	resp, _ = env.do(t, "POST", "/api/v1/carts/reservation/products/12", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "out of stock")

	resp, _ = env.do(t, "POST", "/api/v1/carts/reservation/products/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, "GET", "/api/v1/catalog/products/11", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"IN_STOCK"`)
}

func TestCatalogAPI_DebouncedSearch(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})

	for _, term := range []string{"o", "ol", "olla"} {
		resp, _ := env.do(t, "POST", "/api/v1/catalog/search", map[string]any{"term": term})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	b := env.deps.Catalog.Catalog.Browser(testSID)
	require.Eventually(t, func() bool {
		st := b.State()
		return st.Term == "olla" && st.Page == 1 && !st.Loading
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Olla olla", b.State().Items[0].Name)
}

func TestCatalogAPI_StatelessPage(t *testing.T) {
	env := newTestEnv(t, handlers.AppOptions{})
	resp, body := env.do(t, "GET", "/api/v1/catalog/page?search=taza&page=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"Taza taza"`)
	assert.Contains(t, string(body), `"hasMore":false`)
	assert.Equal(t, 0, env.deps.Catalog.Catalog.Browser(testSID).State().Page)
}

func TestCatalogAPI_BackendDown(t *testing.T) {
	store := newFakeStore(t)
	url := store.srv.URL
	store.srv.Close()
	env := newTestEnvWithBackend(t, store, url+"/api", handlers.AppOptions{})

	resp, body := env.do(t, "GET", "/api/v1/catalog/page", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), "Verifique su red")
}
