package handlers

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	applog "storefront/internal/log"
	"storefront/web"
)

type AppOptions struct {
	CSRF          bool
	AccessLog     bool
	CheckoutLimit int // submissions per LimitWindow and client
	SearchLimit   int
	LimitWindow   time.Duration
}

func (o *AppOptions) defaults() {
	if o.CheckoutLimit <= 0 {
		o.CheckoutLimit = 10
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 60
	}
	if o.LimitWindow <= 0 {
		o.LimitWindow = time.Minute
	}
}

// Views loads the embedded templates.
func Views() *html.Engine {
	sub, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

func rateLimit(name string, max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|" + name
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate."+name+".hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Demasiadas solicitudes, intente en un momento."})
		},
	})
}

// NewApp wires middleware and routes.
func NewApp(d *Deps, opts AppOptions) *fiber.App {
	opts.defaults()

	app := fiber.New(fiber.Config{
		Views:        Views(),
		ErrorHandler: ErrorHandler,
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{Output: applog.Writer()}))
	}
	app.Use(helmet.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("storeName", d.StoreName)
		return c.Next()
	})
	if opts.CSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "header:X-Csrf-Token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			ContextKey:     "csrf",
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Verificación de seguridad fallida. Recargue la página."})
			},
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	api := app.Group("/api/v1")

	api.Get("/catalog", d.Catalog.State)
	api.Get("/catalog/page", d.Product.Page)
	api.Get("/catalog/products/:id", d.Product.Detail)
	api.Post("/catalog/search", rateLimit("search", opts.SearchLimit, opts.LimitWindow), d.Catalog.Search)
	api.Post("/catalog/more", d.Catalog.More)

	api.Get("/carts/:kind", d.Cart.View)
	api.Delete("/carts/:kind", d.Cart.Clear)
	api.Post("/carts/:kind/items", d.Cart.AddItem)
	api.Post("/carts/:kind/products/:id", d.Cart.AddProduct)
	api.Put("/carts/:kind/items/:id", d.Cart.SetQuantity)
	api.Delete("/carts/:kind/items/:id", d.Cart.Remove)

	api.Post("/checkout/:kind", rateLimit("checkout", opts.CheckoutLimit, opts.LimitWindow), d.Checkout.Submit)
	api.Get("/checkout/:kind", d.Checkout.State)

	api.Get("/receipts", d.Receipt.List)
	api.Get("/receipts/:id", d.Receipt.Download)

	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/cart/reservation") })
	app.Get("/cart/:kind", d.Cart.Page)
	app.Get("/reservas/:id", d.Receipt.Page)

	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Página no encontrada")
	})
	return app
}
