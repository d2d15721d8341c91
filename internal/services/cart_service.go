package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repos"
)

// CartStore is the persistence a Cart writes through to.
type CartStore interface {
	Load(ctx context.Context) ([]domain.LineItem, error)
	Save(ctx context.Context, items []domain.LineItem) error
	Delete(ctx context.Context) error
}

type CartOp string

const (
	OpAdd         CartOp = "add"
	OpSetQuantity CartOp = "set_quantity"
	OpRemove      CartOp = "remove"
	OpClear       CartOp = "clear"
)

// CartEvent is delivered to subscribers after a mutation is committed.
type CartEvent struct {
	Kind  domain.CartKind
	Op    CartOp
	ID    int64
	Items []domain.LineItem
}

// Cart is one independent cart (a kind within a session). Every mutation is
// persisted before it becomes visible in memory.
type Cart struct {
	kind  domain.CartKind
	store CartStore
	owner string

	mu    sync.Mutex
	items []domain.LineItem

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(CartEvent)
}

// NewCart hydrates a cart from its store. A store that cannot be read is an
// error rather than an empty cart, so nothing overwrites the saved entries.
func NewCart(ctx context.Context, kind domain.CartKind, store CartStore) (*Cart, error) {
	items, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Cart{
		kind:  kind,
		store: store,
		items: items,
		subs:  make(map[int]func(CartEvent)),
	}, nil
}

func (c *Cart) Kind() domain.CartKind { return c.kind }

// Owner is the hashed session the cart belongs to; empty for carts built
// outside a CartService.
func (c *Cart) Owner() string { return c.owner }

// AddItem increments an existing entry by one or appends a new one with quantity 1.
func (c *Cart) AddItem(ctx context.Context, cand domain.Candidate) error {
	return c.mutate(ctx, OpAdd, cand.ID, func(cur []domain.LineItem) []domain.LineItem {
		for i := range cur {
			if cur[i].ID == cand.ID {
				cur[i].Quantity++
				return cur
			}
		}
		return append(cur, domain.LineItem{
			ID:        cand.ID,
			Name:      cand.Name,
			UnitPrice: cand.UnitPrice,
			PhotoURL:  cand.PhotoURL,
			Quantity:  1,
		})
	})
}

// SetQuantity replaces the quantity of id; below 1 it removes the entry.
func (c *Cart) SetQuantity(ctx context.Context, id int64, quantity int) error {
	if quantity < 1 {
		return c.RemoveItem(ctx, id)
	}
	return c.mutate(ctx, OpSetQuantity, id, func(cur []domain.LineItem) []domain.LineItem {
		for i := range cur {
			if cur[i].ID == id {
				cur[i].Quantity = quantity
			}
		}
		return cur
	})
}

// RemoveItem drops id; absent ids are a no-op.
func (c *Cart) RemoveItem(ctx context.Context, id int64) error {
	return c.mutate(ctx, OpRemove, id, func(cur []domain.LineItem) []domain.LineItem {
		out := cur[:0]
		for _, it := range cur {
			if it.ID != id {
				out = append(out, it)
			}
		}
		return out
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, OpClear, 0, func([]domain.LineItem) []domain.LineItem {
		return []domain.LineItem{}
	})
}

// Items returns a copy of the current entries in insertion order.
func (c *Cart) Items() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

func (c *Cart) TotalItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.items)
}

// Subscribe registers fn for committed mutations and returns its cancel func.
func (c *Cart) Subscribe(fn func(CartEvent)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Cart) mutate(ctx context.Context, op CartOp, id int64, fn func([]domain.LineItem) []domain.LineItem) error {
	c.mu.Lock()
	next := fn(cloneItems(c.items))
	var err error
	if op == OpClear {
		err = c.store.Delete(ctx)
	} else {
		err = c.store.Save(ctx, next)
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.items = next
	snapshot := cloneItems(next)
	c.mu.Unlock()

	c.notify(CartEvent{Kind: c.kind, Op: op, ID: id, Items: snapshot})
	return nil
}

func (c *Cart) notify(ev CartEvent) {
	c.subMu.Lock()
	fns := make([]func(CartEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func cloneItems(in []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(in))
	copy(out, in)
	return out
}

func totalOf(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// CartService hands out the carts of a session, hydrating each one once.
// Carts not opened for a while can be dropped with Evict; they rehydrate from
// the store on the next Open.
type CartService struct {
	kv      repos.KV
	metrics *metrics.Metrics
	sfg     singleflight.Group // collapses concurrent first opens of one key

	mu    sync.RWMutex
	carts map[string]*cartEntry
}

type cartEntry struct {
	cart     *Cart
	lastUsed time.Time
}

func NewCartService(kv repos.KV, m *metrics.Metrics) *CartService {
	return &CartService{kv: kv, metrics: m, carts: make(map[string]*cartEntry)}
}

func (s *CartService) Open(ctx context.Context, kind domain.CartKind, sessionID string) (*Cart, error) {
	if !kind.Valid() {
		return nil, ErrUnknownCartKind
	}
	key := repos.CartKey(kind.Namespace(), sessionID)
	if c, ok := s.lookup(key); ok {
		return c, nil
	}

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		if existing, ok := s.lookup(key); ok {
			return existing, nil
		}
		// not cached on error: the next Open retries the store
		cart, err := NewCart(ctx, kind, repos.NewCartStore(s.kv, key))
		if err != nil {
			return nil, err
		}
		cart.owner = repos.SessionKey(sessionID)
		cart.Subscribe(func(ev CartEvent) {
			s.metrics.CartMutation(string(ev.Kind), string(ev.Op))
		})
		s.mu.Lock()
		s.carts[key] = &cartEntry{cart: cart, lastUsed: time.Now()}
		s.mu.Unlock()
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

func (s *CartService) lookup(key string) (*Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.carts[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = time.Now()
	return e.cart, true
}

// Evict forgets the carts last opened before cutoff. Their entries stay in
// the store.
func (s *CartService) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.carts {
		if e.lastUsed.Before(cutoff) {
			delete(s.carts, key)
			n++
		}
	}
	return n
}

// Cached reports how many carts are held in memory.
func (s *CartService) Cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.carts)
}

// AddProduct puts a browsed catalog product into the cart, refusing sold-out
// products and unparseable prices.
func (s *CartService) AddProduct(ctx context.Context, cart *Cart, p domain.CatalogProduct) error {
	if domain.ClassifyStock(p.Stock) == domain.OutOfStock {
		return ErrOutOfStock
	}
	price, err := p.DisplayPrice()
	if err != nil {
		return err
	}
	return cart.AddItem(ctx, domain.Candidate{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: price,
		PhotoURL:  p.CoverURL(),
	})
}
