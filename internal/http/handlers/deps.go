package handlers

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/metrics"
	"storefront/internal/receipt"
	"storefront/internal/repos"
	"storefront/internal/services"
)

// Backend is the remote store API: catalog pages and order submission.
type Backend interface {
	services.CatalogFetcher
	services.OrderSubmitter
}

type Deps struct {
	Cart      *CartHandler
	Catalog   *CatalogHandler
	Product   *ProductHandler
	Checkout  *CheckoutHandler
	Receipt   *ReceiptHandler
	Metrics   *metrics.Metrics
	StoreName string

	stopSweep context.CancelFunc
}

func NewDeps(kv repos.KV, db *sqlx.DB, api Backend, cfg config.Config, m *metrics.Metrics) *Deps {
	receiptRepo := repos.NewReceiptRepo(db)
	gen := receipt.New(cfg.StoreName, receipt.FileLogo(cfg.LogoPath))

	invSvc := services.NewInventoryService()
	cartSvc := services.NewCartService(kv, m)
	catalogSvc := services.NewCatalogService(api, invSvc, m, cfg.SearchDebounce)
	checkoutSvc := services.NewCheckoutService(api, gen, receiptRepo, receipt.FileName, m)

	d := &Deps{
		Cart:      &CartHandler{Carts: cartSvc, Catalog: catalogSvc},
		Catalog:   &CatalogHandler{Catalog: catalogSvc},
		Product:   &ProductHandler{Catalog: catalogSvc},
		Checkout:  &CheckoutHandler{Carts: cartSvc, Checkout: checkoutSvc},
		Receipt:   &ReceiptHandler{Receipts: receiptRepo},
		Metrics:   m,
		StoreName: cfg.StoreName,
		stopSweep: func() {},
	}
	if cfg.SessionIdle > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		d.stopSweep = cancel
		go services.SweepIdle(ctx, sweepInterval(cfg.SessionIdle), cfg.SessionIdle, cartSvc, catalogSvc, checkoutSvc)
	}
	return d
}

func sweepInterval(idle time.Duration) time.Duration {
	every := idle / 4
	if every < time.Second {
		every = time.Second
	}
	return every
}

// Close stops the idle sweeper and pending catalog searches.
func (d *Deps) Close() {
	d.stopSweep()
	d.Catalog.Catalog.Close()
}
