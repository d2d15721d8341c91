package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidPrice = errors.New("invalid price")

// LineItem is one product entry in a cart.
type LineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	PhotoURL  string          `json:"photoUrl"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice * Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Candidate is a LineItem before it enters a cart (no quantity yet).
type Candidate struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	PhotoURL  string          `json:"photoUrl"`
}

type Photo struct {
	URL string `json:"url"`
}

type CatalogProduct struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         string  `json:"price"`
	DiscountPrice *string `json:"discountPrice,omitempty"`
	Stock         int     `json:"stock"`
	Photos        []Photo `json:"photos"`
}

// DisplayPrice is the discount price when present and non-empty, else the list price.
func (p CatalogProduct) DisplayPrice() (decimal.Decimal, error) {
	raw := p.Price
	if p.DiscountPrice != nil && strings.TrimSpace(*p.DiscountPrice) != "" {
		raw = *p.DiscountPrice
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return d, nil
}

// CoverURL returns the first photo url, or "".
func (p CatalogProduct) CoverURL() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0].URL
}

type CatalogPage struct {
	Items    []CatalogProduct `json:"items"`
	Page     int              `json:"page"`
	LastPage int              `json:"lastPage"`
	HasMore  bool             `json:"hasMore"`
}

type Availability struct {
	Status StockStatus `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int         `json:"qty"`
}

// ListedProduct is a catalog product decorated for display.
type ListedProduct struct {
	CatalogProduct
	DisplayPrice string       `json:"displayPrice"`
	Availability Availability `json:"availability"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order is the submission payload built from a cart snapshot.
type Order struct {
	CustomerName string          `json:"customerName"`
	CustomerID   string          `json:"customerId"`
	TotalCost    decimal.Decimal `json:"totalCost"`
	Items        []OrderItem     `json:"items"`
}

// OrderConfirmation is the server-issued record for a submitted order.
type OrderConfirmation struct {
	ID           int64           `json:"id"`
	Date         string          `json:"date,omitempty"`
	Status       string          `json:"status"`
	PaymentType  string          `json:"paymentType"`
	Warranty     string          `json:"warranty"`
	Discount     decimal.Decimal `json:"discount"`
	CustomerName string          `json:"customerName"`
	CustomerID   string          `json:"customerId"`
	TotalCost    decimal.Decimal `json:"totalCost"`
}
