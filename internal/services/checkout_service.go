package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/backend"
	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/validate"
)

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, o domain.Order) (domain.OrderConfirmation, error)
}

type ReceiptRenderer interface {
	Render(conf domain.OrderConfirmation, items []domain.LineItem) ([]byte, error)
}

// ReceiptArchive keeps a confirmed receipt for the session (owner) that placed it.
type ReceiptArchive interface {
	Save(ctx context.Context, owner string, id int64, fileName, customerName, customerID string, total decimal.Decimal, body []byte) error
}

type Customer struct {
	Name string
	ID   string
}

// Confirmation is what a successful submission hands back to the caller.
type Confirmation struct {
	ID       int64                    `json:"confirmationId"`
	FileName string                   `json:"fileName"`
	Order    domain.OrderConfirmation `json:"order"`
	Items    []domain.LineItem        `json:"items"`
	PDF      []byte                   `json:"-"`
}

type SubmitterState struct {
	State              domain.CheckoutState `json:"state"`
	LastConfirmationID int64                `json:"lastConfirmationId,omitempty"`
	LastError          string               `json:"lastError,omitempty"`
}

type CheckoutService struct {
	Orders   OrderSubmitter
	Receipts ReceiptRenderer
	Archive  ReceiptArchive
	FileName func(id int64) string
	Metrics  *metrics.Metrics

	mu         sync.Mutex
	submitters map[*Cart]*submitterEntry
}

type submitterEntry struct {
	sub      *Submitter
	lastUsed time.Time
}

func NewCheckoutService(orders OrderSubmitter, receipts ReceiptRenderer, archive ReceiptArchive, fileName func(int64) string, m *metrics.Metrics) *CheckoutService {
	return &CheckoutService{
		Orders:     orders,
		Receipts:   receipts,
		Archive:    archive,
		FileName:   fileName,
		Metrics:    m,
		submitters: map[*Cart]*submitterEntry{},
	}
}

// Submitter returns the state machine bound to cart.
func (s *CheckoutService) Submitter(cart *Cart) *Submitter {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.submitters[cart]
	if !ok {
		e = &submitterEntry{sub: &Submitter{svc: s, cart: cart, state: domain.CheckoutIdle}}
		s.submitters[cart] = e
	}
	e.lastUsed = time.Now()
	return e.sub
}

// Evict forgets submitters last used before cutoff, except those with a
// submission still running.
func (s *CheckoutService) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for cart, e := range s.submitters {
		if e.lastUsed.Before(cutoff) && !e.sub.busy() {
			delete(s.submitters, cart)
			n++
		}
	}
	return n
}

// Submitter drives one cart through IDLE, VALIDATING, SUBMITTING and
// CONFIRMED or FAILED. Only one submission runs at a time.
type Submitter struct {
	svc  *CheckoutService
	cart *Cart

	mu      sync.Mutex
	state   domain.CheckoutState
	lastID  int64
	lastErr string
}

func (s *Submitter) State() SubmitterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubmitterState{State: s.state, LastConfirmationID: s.lastID, LastError: s.lastErr}
}

func (s *Submitter) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == domain.CheckoutValidating || s.state == domain.CheckoutSubmitting
}

func (s *Submitter) set(st domain.CheckoutState, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.lastErr = errMsg
}

func (s *Submitter) Submit(ctx context.Context, cust Customer) (*Confirmation, error) {
	s.mu.Lock()
	if s.state == domain.CheckoutValidating || s.state == domain.CheckoutSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	s.state = domain.CheckoutValidating
	s.lastErr = ""
	s.mu.Unlock()

	name, ok := validate.CustomerName(cust.Name)
	if !ok {
		return nil, s.invalid("customerName")
	}
	ci, ok := validate.CustomerID(cust.ID)
	if !ok {
		return nil, s.invalid("customerId")
	}
	items := s.cart.Items()
	if len(items) == 0 {
		return nil, s.invalid("items")
	}

	s.set(domain.CheckoutSubmitting, "")
	order := buildOrder(name, ci, items)

	conf, err := s.svc.Orders.SubmitOrder(ctx, order)
	if err != nil {
		return nil, s.fail(err)
	}
	return s.confirm(ctx, order, conf, items), nil
}

func (s *Submitter) invalid(field string) error {
	err := &ValidationError{Field: field}
	s.set(domain.CheckoutIdle, err.Error())
	s.svc.Metrics.Checkout("invalid")
	return err
}

// fail records the failure and returns to IDLE. The cart is left untouched.
func (s *Submitter) fail(err error) error {
	var out error
	var rej *backend.RejectedError
	result := "network_error"
	if errors.As(err, &rej) {
		out = &ServerRejection{Message: rej.Message, Err: err}
		result = "rejected"
	} else {
		out = &NetworkError{Err: err}
	}
	s.set(domain.CheckoutFailed, out.Error())
	applog.Warn(nil, "checkout.failed", err, map[string]any{"cart": string(s.cart.Kind()), "result": result})
	s.svc.Metrics.Checkout(result)
	s.set(domain.CheckoutIdle, out.Error())
	return out
}

// confirm runs after the server accepted the order, so nothing here can turn
// the submission into a failure: receipt and cart problems are only logged.
func (s *Submitter) confirm(ctx context.Context, order domain.Order, conf domain.OrderConfirmation, items []domain.LineItem) *Confirmation {
	if conf.CustomerName == "" {
		conf.CustomerName = order.CustomerName
	}
	if conf.CustomerID == "" {
		conf.CustomerID = order.CustomerID
	}
	if conf.TotalCost.IsZero() {
		conf.TotalCost = order.TotalCost
	}

	out := &Confirmation{ID: conf.ID, Order: conf, Items: items}
	if s.svc.FileName != nil {
		out.FileName = s.svc.FileName(conf.ID)
	}
	fields := map[string]any{"confirmation_id": conf.ID, "cart": string(s.cart.Kind())}

	if s.svc.Receipts != nil {
		pdf, err := s.svc.Receipts.Render(conf, items)
		if err != nil {
			applog.Error(nil, "receipt.render.failed", err, fields)
		} else {
			out.PDF = pdf
			if s.svc.Archive != nil {
				if err := s.svc.Archive.Save(ctx, s.cart.Owner(), conf.ID, out.FileName, conf.CustomerName, conf.CustomerID, conf.TotalCost, pdf); err != nil {
					applog.Error(nil, "receipt.archive.failed", err, fields)
				}
			}
		}
	}

	if err := s.cart.Clear(ctx); err != nil {
		applog.Error(nil, "checkout.cart.clear_failed", err, fields)
	}

	s.mu.Lock()
	s.state = domain.CheckoutConfirmed
	s.lastID = conf.ID
	s.lastErr = ""
	s.mu.Unlock()

	applog.Audit(nil, "checkout.confirmed", map[string]any{
		"confirmation_id": conf.ID,
		"cart":            string(s.cart.Kind()),
		"items":           len(items),
		"total":           order.TotalCost.StringFixed(2),
	})
	s.svc.Metrics.Checkout("confirmed")
	return out
}

func buildOrder(name, ci string, items []domain.LineItem) domain.Order {
	lines := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, domain.OrderItem{ID: it.ID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return domain.Order{
		CustomerName: name,
		CustomerID:   ci,
		TotalCost:    totalOf(items),
		Items:        lines,
	}
}
