package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"storefront/internal/domain"
)

// price accepts "12.50", 12.5 or null from the wire.
type price struct {
	Value string
	Set   bool
}

func (p *price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = price{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = price{Value: s, Set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = price{Value: n.String(), Set: true}
	return nil
}

type wireFoto struct {
	Foto string `json:"foto"`
}

type wireProductDetail struct {
	Precio          price      `json:"precio"`
	PrecioDescuento price      `json:"precio_descuento"`
	Fotos           []wireFoto `json:"fotos"`
}

type wireProductItem struct {
	ID              int64              `json:"id"`
	Nombre          string             `json:"nombre"`
	Descripcion     string             `json:"descripcion"`
	Precio          price              `json:"precio"`
	PrecioDescuento price              `json:"precio_descuento"`
	Stock           int                `json:"stock"`
	Producto        *wireProductDetail `json:"producto"`
}

type wireCatalogResponse struct {
	Success  *bool  `json:"success"`
	Message  string `json:"message"`
	Products struct {
		CurrentPage int               `json:"current_page"`
		Data        []wireProductItem `json:"data"`
		LastPage    int               `json:"last_page"`
	} `json:"productos"`
}

// FetchPage retrieves one page of the branch catalog filtered by term.
func (c *Client) FetchPage(ctx context.Context, term string, page int) (domain.CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("search", term)
	q.Set("page", strconv.Itoa(page))
	u := fmt.Sprintf("%s/productos-moderna/%d?%s", c.baseURL, c.branchID, q.Encode())

	resp, err := c.do(ctx, "catalog", http.MethodGet, u, nil)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.CatalogPage{}, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var body wireCatalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.CatalogPage{}, fmt.Errorf("%w: decode: %w", ErrCatalogUnavailable, err)
	}
	if body.Success != nil && !*body.Success {
		msg := body.Message
		if msg == "" {
			msg = "request rejected"
		}
		return domain.CatalogPage{}, fmt.Errorf("%w: %s", ErrCatalogUnavailable, msg)
	}

	items := make([]domain.CatalogProduct, 0, len(body.Products.Data))
	for _, w := range body.Products.Data {
		items = append(items, c.toProduct(w))
	}
	last := body.Products.LastPage
	if last < 1 {
		last = 1
	}
	return domain.CatalogPage{
		Items:    items,
		Page:     page,
		LastPage: last,
		HasMore:  page < last,
	}, nil
}

// toProduct prefers the nested product detail for prices and photos, the way
// the storefront shows them; the listing-level fields are the fallback.
func (c *Client) toProduct(w wireProductItem) domain.CatalogProduct {
	p := domain.CatalogProduct{
		ID:          w.ID,
		Name:        w.Nombre,
		Description: w.Descripcion,
		Stock:       w.Stock,
		Photos:      []domain.Photo{},
	}
	listPrice, discount := w.Precio, w.PrecioDescuento
	if w.Producto != nil {
		if w.Producto.Precio.Set {
			listPrice = w.Producto.Precio
			discount = w.Producto.PrecioDescuento
		}
		for _, f := range w.Producto.Fotos {
			if f.Foto == "" {
				continue
			}
			p.Photos = append(p.Photos, domain.Photo{URL: c.PhotoURL(f.Foto)})
		}
	}
	p.Price = listPrice.Value
	if discount.Set && discount.Value != "" {
		d := discount.Value
		p.DiscountPrice = &d
	}
	return p
}

// PhotoURL resolves a stored photo path against the media host.
func (c *Client) PhotoURL(path string) string {
	return c.mediaBase + "/storage/" + path
}
