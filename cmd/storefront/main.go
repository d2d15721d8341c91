package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/internal/backend"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/metrics"
	"storefront/internal/receipt"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "storefront",
		Usage: "customer storefront for the store API",
		// flags override the environment read by config.Load
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", EnvVars: []string{"PORT"}},
			&cli.StringFlag{Name: "db-dsn", EnvVars: []string{"DB_DSN"}},
			&cli.StringFlag{Name: "store-driver", Usage: "sqlite | redis | memory", EnvVars: []string{"STORE_DRIVER"}},
			&cli.StringFlag{Name: "redis-addr", EnvVars: []string{"REDIS_ADDR"}},
			&cli.StringFlag{Name: "backend-url", EnvVars: []string{"BACKEND_URL"}},
			&cli.StringFlag{Name: "media-base-url", EnvVars: []string{"MEDIA_BASE_URL"}},
			&cli.Int64Flag{Name: "branch-id", EnvVars: []string{"BRANCH_ID"}},
			&cli.StringFlag{Name: "store-name", EnvVars: []string{"STORE_NAME"}},
			&cli.StringFlag{Name: "logo-path", EnvVars: []string{"LOGO_PATH"}},
			&cli.StringFlag{Name: "log-file", EnvVars: []string{"LOG_FILE"}},
		},
		Commands: []*cli.Command{
			serveCmd(),
			catalogCmd(),
			receiptCmd(),
		},
	}
}

func loadConfig(cctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	for name, dst := range map[string]*string{
		"port":           &cfg.Port,
		"db-dsn":         &cfg.DBDSN,
		"store-driver":   &cfg.StoreDriver,
		"redis-addr":     &cfg.RedisAddr,
		"backend-url":    &cfg.BackendURL,
		"media-base-url": &cfg.MediaBaseURL,
		"store-name":     &cfg.StoreName,
		"logo-path":      &cfg.LogoPath,
		"log-file":       &cfg.LogFile,
	} {
		if cctx.IsSet(name) {
			*dst = cctx.String(name)
		}
	}
	if cctx.IsSet("branch-id") {
		cfg.BranchID = cctx.Int64("branch-id")
	}
	return cfg, nil
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP storefront",
		Action: func(cctx *cli.Context) error {
			cfg, err := loadConfig(cctx)
			if err != nil {
				return err
			}

			// Optional file logging
			if cfg.LogFile != "" {
				f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
				if err != nil {
					log.WithError(err).Warnf("could not open log file %s", cfg.LogFile)
				} else {
					defer f.Close()
					applog.SetOutput(io.MultiWriter(os.Stdout, f))
				}
			}

			db, err := repos.OpenDB(cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			kv, closeKV, err := openKV(cfg, db)
			if err != nil {
				return err
			}
			defer closeKV()

			m := metrics.New()
			deps := handlers.NewDeps(kv, db, newClient(cfg, m), cfg, m)
			defer deps.Close()

			app := handlers.NewApp(deps, handlers.AppOptions{CSRF: cfg.CSRF, AccessLog: true})

			ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			errc := make(chan error, 1)
			go func() { errc <- app.Listen(":" + cfg.Port) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				log.Info("shutting down")
				return app.ShutdownWithTimeout(10 * time.Second)
			}
		},
	}
}

func catalogCmd() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "fetch one catalog page and print it as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}},
			&cli.IntFlag{Name: "page", Value: 1},
		},
		Action: func(cctx *cli.Context) error {
			cfg, err := loadConfig(cctx)
			if err != nil {
				return err
			}
			term, ok := validate.Q(cctx.String("search"))
			if !ok {
				return fmt.Errorf("invalid search term %q", cctx.String("search"))
			}
			page, err := newClient(cfg, nil).FetchPage(cctx.Context, term, validate.Page(strconv.Itoa(cctx.Int("page"))))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		},
	}
}

func receiptCmd() *cli.Command {
	return &cli.Command{
		Name:  "receipt",
		Usage: "render a pickup receipt offline",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Required: true},
			&cli.StringFlag{Name: "customer", Required: true},
			&cli.StringFlag{Name: "ci", Required: true},
			&cli.StringSliceFlag{Name: "item", Usage: "name:quantity:unitPrice, repeatable"},
			&cli.StringFlag{Name: "out", Usage: "output file (default reserva-<id>.pdf)"},
		},
		Action: func(cctx *cli.Context) error {
			cfg, err := loadConfig(cctx)
			if err != nil {
				return err
			}
			items, err := parseItems(cctx.StringSlice("item"))
			if err != nil {
				return err
			}
			total := decimal.Zero
			for _, it := range items {
				total = total.Add(it.Subtotal())
			}
			conf := domain.OrderConfirmation{
				ID:           cctx.Int64("id"),
				CustomerName: cctx.String("customer"),
				CustomerID:   cctx.String("ci"),
				TotalCost:    total,
			}
			pdf, err := receipt.New(cfg.StoreName, receipt.FileLogo(cfg.LogoPath)).Render(conf, items)
			if err != nil {
				return err
			}
			out := cctx.String("out")
			if out == "" {
				out = receipt.FileName(conf.ID)
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func parseItems(raw []string) ([]domain.LineItem, error) {
	out := make([]domain.LineItem, 0, len(raw))
	for i, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("item %q: want name:quantity:unitPrice", s)
		}
		qty, ok := validate.Quantity(parts[1])
		if !ok || qty < 1 {
			return nil, fmt.Errorf("item %q: bad quantity", s)
		}
		price, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", s, err)
		}
		out = append(out, domain.LineItem{ID: int64(i + 1), Name: parts[0], UnitPrice: price, Quantity: qty})
	}
	return out, nil
}

func newClient(cfg config.Config, m *metrics.Metrics) *backend.Client {
	return backend.New(backend.Options{
		BaseURL:      cfg.BackendURL,
		MediaBaseURL: cfg.MediaBaseURL,
		BranchID:     cfg.BranchID,
		UserID:       cfg.UserID,
		Timeout:      cfg.RequestTimeout,
		Metrics:      m,
	})
}

// openKV picks the cart persistence backend.
func openKV(cfg config.Config, db *sqlx.DB) (repos.KV, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite", "":
		return repos.NewSQLiteKV(db), func() {}, nil
	case "memory":
		return repos.NewMemoryKV(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return repos.NewRedisKV(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
