package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

const (
	PaymentCash = "Efectivo"
	NoWarranty  = "sin garantia"
)

// RejectedError is a response that arrived but did not confirm the order.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order rejected (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("order rejected (status %d): %s", e.StatusCode, e.Message)
}

type wireOrderLine struct {
	ID       int64       `json:"id"`
	Cantidad int         `json:"cantidad"`
	Precio   json.Number `json:"precio"`
}

type wireOrderRequest struct {
	NombreCliente string      `json:"nombre_cliente"`
	CostoTotal    json.Number `json:"costo_total"`
	Productos     string      `json:"productos"`
	IDSucursal    int64       `json:"id_sucursal"`
	CI            string      `json:"ci"`
	TipoPago      string      `json:"tipo_pago"`
	Garantia      string      `json:"garantia"`
	Descuento     json.Number `json:"descuento"`
	IDUser        int64       `json:"id_user"`
	Pagado        json.Number `json:"pagado"`
	PagadoQR      *string     `json:"pagado_qr"`
}

type wireVenta struct {
	ID            int64           `json:"id"`
	Fecha         string          `json:"fecha"`
	NombreCliente string          `json:"nombre_cliente"`
	CI            string          `json:"ci"`
	CostoTotal    decimal.Decimal `json:"costo_total"`
	TipoPago      string          `json:"tipo_pago"`
	Garantia      string          `json:"garantia"`
	Descuento     decimal.Decimal `json:"descuento"`
	Estado        string          `json:"estado"`
}

type wireOrderResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Venta   *wireVenta `json:"venta"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// BuildOrderRequest maps an order onto the wire body of POST /ventas/moderno.
func (c *Client) BuildOrderRequest(o domain.Order) (any, error) {
	lines := make([]wireOrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, wireOrderLine{ID: it.ID, Cantidad: it.Quantity, Precio: number(it.UnitPrice)})
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode order lines: %w", err)
	}
	return wireOrderRequest{
		NombreCliente: o.CustomerName,
		CostoTotal:    number(o.TotalCost),
		Productos:     string(encoded),
		IDSucursal:    c.branchID,
		CI:            o.CustomerID,
		TipoPago:      PaymentCash,
		Garantia:      NoWarranty,
		Descuento:     "0",
		IDUser:        c.userID,
		Pagado:        number(o.TotalCost),
		PagadoQR:      nil,
	}, nil
}

// SubmitOrder posts the order. Errors are either ErrTransport-wrapped (nothing
// came back) or *RejectedError (the server answered without confirming).
func (c *Client) SubmitOrder(ctx context.Context, o domain.Order) (domain.OrderConfirmation, error) {
	body, err := c.BuildOrderRequest(o)
	if err != nil {
		return domain.OrderConfirmation{}, err
	}
	resp, err := c.do(ctx, "order", http.MethodPost, c.baseURL+"/ventas/moderno", body)
	if err != nil {
		return domain.OrderConfirmation{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.OrderConfirmation{}, fmt.Errorf("%w: read order response: %w", ErrTransport, err)
	}

	var out wireOrderResponse
	decodeErr := json.Unmarshal(raw, &out)
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok || decodeErr != nil || !out.Success || out.Venta == nil {
		return domain.OrderConfirmation{}, &RejectedError{StatusCode: resp.StatusCode, Message: out.Message}
	}

	v := out.Venta
	return domain.OrderConfirmation{
		ID:           v.ID,
		Date:         v.Fecha,
		Status:       v.Estado,
		PaymentType:  v.TipoPago,
		Warranty:     v.Garantia,
		Discount:     v.Descuento,
		CustomerName: v.NombreCliente,
		CustomerID:   v.CI,
		TotalCost:    v.CostoTotal,
	}, nil
}
