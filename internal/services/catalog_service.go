package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
)

// ErrSuperseded is returned to a Load whose response arrived after a newer
// request had started; its result was discarded.
var ErrSuperseded = errors.New("catalog request superseded")

type CatalogFetcher interface {
	FetchPage(ctx context.Context, term string, page int) (domain.CatalogPage, error)
}

type CatalogService struct {
	Fetcher  CatalogFetcher
	Inv      *InventoryService
	Metrics  *metrics.Metrics
	Debounce time.Duration

	mu       sync.Mutex
	browsers map[string]*browserEntry
}

type browserEntry struct {
	b        *Browser
	lastUsed time.Time
}

func NewCatalogService(f CatalogFetcher, inv *InventoryService, m *metrics.Metrics, debounce time.Duration) *CatalogService {
	if inv == nil {
		inv = NewInventoryService()
	}
	return &CatalogService{Fetcher: f, Inv: inv, Metrics: m, Debounce: debounce, browsers: map[string]*browserEntry{}}
}

// Page fetches one page without touching any session state.
func (s *CatalogService) Page(ctx context.Context, term string, page int) ([]domain.ListedProduct, domain.CatalogPage, error) {
	p, err := s.Fetcher.FetchPage(ctx, term, page)
	if err != nil {
		s.Metrics.CatalogFetch("error")
		return nil, domain.CatalogPage{}, err
	}
	s.Metrics.CatalogFetch("ok")
	return s.Inv.Decorate(p.Items), p, nil
}

// Browser returns the session's browser, creating it on first use.
func (s *CatalogService) Browser(sessionID string) *Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.browsers[sessionID]
	if !ok {
		e = &browserEntry{b: NewBrowser(s.Fetcher, s.Inv, s.Metrics, s.Debounce)}
		s.browsers[sessionID] = e
	}
	e.lastUsed = time.Now()
	return e.b
}

// Evict closes and forgets the browsers last used before cutoff.
func (s *CatalogService) Evict(cutoff time.Time) int {
	s.mu.Lock()
	var idle []*Browser
	for sid, e := range s.browsers {
		if e.lastUsed.Before(cutoff) {
			idle = append(idle, e.b)
			delete(s.browsers, sid)
		}
	}
	s.mu.Unlock()
	for _, b := range idle {
		b.Close()
	}
	return len(idle)
}

// Close stops every browser's pending work.
func (s *CatalogService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.browsers {
		e.b.Close()
	}
}

// BrowserState is a snapshot of a session's listing. Term is the term Items
// belong to; Pending is a term whose first page is still being fetched.
type BrowserState struct {
	Term    string                 `json:"term"`
	Pending string                 `json:"pending,omitempty"`
	Items   []domain.ListedProduct `json:"items"`
	Page    int                    `json:"page"`
	HasMore bool                   `json:"hasMore"`
	Loading bool                   `json:"loading"`
	Err     string                 `json:"error,omitempty"`
}

// Browser keeps the accumulated catalog listing of one session. Requests are
// numbered; only the newest one may change the state.
type Browser struct {
	fetch    CatalogFetcher
	inv      *InventoryService
	metrics  *metrics.Metrics
	debounce time.Duration

	root     context.Context
	stopRoot context.CancelFunc

	mu     sync.Mutex
	state  BrowserState
	seq    uint64
	cancel context.CancelFunc
	timer  *time.Timer

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(BrowserState)
}

func NewBrowser(f CatalogFetcher, inv *InventoryService, m *metrics.Metrics, debounce time.Duration) *Browser {
	if inv == nil {
		inv = NewInventoryService()
	}
	root, stop := context.WithCancel(context.Background())
	return &Browser{
		fetch:    f,
		inv:      inv,
		metrics:  m,
		debounce: debounce,
		root:     root,
		stopRoot: stop,
		state:    BrowserState{Items: []domain.ListedProduct{}},
		subs:     map[int]func(BrowserState){},
	}
}

func (b *Browser) State() BrowserState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

// Product looks up a product among the loaded items.
func (b *Browser) Product(id int64) (domain.CatalogProduct, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, it := range b.state.Items {
		if it.ID == id {
			return it.CatalogProduct, true
		}
	}
	return domain.CatalogProduct{}, false
}

// SetSearchTerm schedules a page-1 load of term after the debounce delay.
// A call within the delay replaces the pending term.
func (b *Browser) SetSearchTerm(term string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, func() {
		if err := b.Load(b.root, term, 1); err != nil && !errors.Is(err, ErrSuperseded) {
			applog.Warn(nil, "catalog.search.failed", err, map[string]any{"term": term})
		}
	})
}

// Load fetches page of term. Page 1 replaces the listing, later pages append.
// Starting a load cancels whatever request was still running. A failed load
// leaves Term and the listing as they were.
func (b *Browser) Load(ctx context.Context, term string, page int) error {
	if page < 1 {
		page = 1
	}
	b.mu.Lock()
	// later pages only extend the listing of the term they belong to
	if page > 1 && term != b.state.Term {
		page = 1
	}
	reqCtx, seq := b.begin(ctx)
	if page == 1 {
		b.state.Pending = term
	}
	st := b.snapshot()
	b.mu.Unlock()
	b.notify(st)

	return b.finish(reqCtx, seq, term, page)
}

// LoadMore fetches the page after the current one for the current term.
func (b *Browser) LoadMore(ctx context.Context) error {
	b.mu.Lock()
	if b.state.Loading {
		b.mu.Unlock()
		return ErrFetchInFlight
	}
	if !b.state.HasMore {
		b.mu.Unlock()
		return ErrNoMorePages
	}
	next := b.state.Page + 1
	term := b.state.Term
	reqCtx, seq := b.begin(ctx)
	st := b.snapshot()
	b.mu.Unlock()
	b.notify(st)

	return b.finish(reqCtx, seq, term, next)
}

// begin must be called with b.mu held.
func (b *Browser) begin(ctx context.Context) (context.Context, uint64) {
	if b.cancel != nil {
		b.cancel()
	}
	b.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.state.Loading = true
	return reqCtx, b.seq
}

func (b *Browser) finish(ctx context.Context, seq uint64, term string, page int) error {
	res, err := b.fetch.FetchPage(ctx, term, page)

	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		b.metrics.CatalogFetch("stale")
		return ErrSuperseded
	}
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.state.Loading = false
	b.state.Pending = ""
	if err != nil {
		b.state.Err = err.Error()
		st := b.snapshot()
		b.mu.Unlock()
		b.metrics.CatalogFetch("error")
		b.notify(st)
		return err
	}

	listed := b.inv.Decorate(res.Items)
	if page == 1 {
		b.state.Items = listed
	} else {
		b.state.Items = append(b.state.Items, listed...)
	}
	b.state.Term = term
	b.state.Page = page
	b.state.HasMore = res.HasMore
	b.state.Err = ""
	st := b.snapshot()
	b.mu.Unlock()

	b.metrics.CatalogFetch("ok")
	b.notify(st)
	return nil
}

func (b *Browser) Subscribe(fn func(BrowserState)) func() {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.subMu.Lock()
		defer b.subMu.Unlock()
		delete(b.subs, id)
	}
}

// Close drops any pending debounce and cancels the running request.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	b.stopRoot()
}

func (b *Browser) snapshot() BrowserState {
	st := b.state
	st.Items = append([]domain.ListedProduct(nil), b.state.Items...)
	if st.Items == nil {
		st.Items = []domain.ListedProduct{}
	}
	return st
}

func (b *Browser) notify(st BrowserState) {
	b.subMu.Lock()
	fns := make([]func(BrowserState), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
