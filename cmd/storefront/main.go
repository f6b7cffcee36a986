package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dwikikusuma/storefront-cart/internal/broadcast"
	cartapp "github.com/dwikikusuma/storefront-cart/internal/cart/app"
	"github.com/dwikikusuma/storefront-cart/internal/cart/httpapi"
	catalogapp "github.com/dwikikusuma/storefront-cart/internal/catalog/app"
	"github.com/dwikikusuma/storefront-cart/internal/catalog/infra/memory"
	catalogpg "github.com/dwikikusuma/storefront-cart/internal/catalog/infra/postgres"
	checkoutapp "github.com/dwikikusuma/storefront-cart/internal/checkout/app"
	"github.com/dwikikusuma/storefront-cart/internal/notify"
	orderapp "github.com/dwikikusuma/storefront-cart/internal/order/app"
	"github.com/dwikikusuma/storefront-cart/internal/storage"
	"github.com/dwikikusuma/storefront-cart/internal/storage/filestore"
	"github.com/dwikikusuma/storefront-cart/internal/storage/postgres"
	"github.com/dwikikusuma/storefront-cart/pkg/config"
	"github.com/dwikikusuma/storefront-cart/pkg/logger"
	"github.com/dwikikusuma/storefront-cart/pkg/shutdown"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	err := run(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("storefront stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

// run wires the storefront and serves until ctx is cancelled. Every resource
// it opens is released before it returns.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db := &lazyPool{dsn: cfg.DatabaseURL}
	defer db.Close()

	backend, err := openBackend(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("open storage %q: %w", cfg.StorageDriver, err)
	}
	store := storage.New(backend, log)

	// Catalog
	products, err := openCatalog(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("load catalog %q: %w", cfg.CatalogSource, err)
	}
	catalogSvc := catalogapp.NewService(products)

	// Cart
	events := cartapp.NewEvents()
	if !backend.Available() {
		log.Warn("storage keeps nothing, cart updates are not broadcast", slog.String("driver", cfg.StorageDriver))
		events = cartapp.DiscardEvents()
	}
	cartManager := cartapp.NewManager(store, events, log)
	notifications := broadcast.NewChannel[notify.Notification]("notifications")
	notifier := notify.Fanout{notify.LogNotifier{Log: log}, notify.Broadcast(notifications)}
	actions := cartapp.NewActions(cartManager, store, notifier)

	// Orders
	orderSvc := orderapp.NewService(store)
	checkoutSvc := checkoutapp.NewService(cartManager, catalogSvc, orderSvc, 10)

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.NewServer(httpapi.Deps{
		Actions:       actions,
		Cart:          cartManager,
		Catalog:       catalogSvc,
		Checkout:      checkoutSvc,
		Orders:        orderSvc,
		Session:       store,
		Notifications: notifications,
		Log:           log,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(api, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", addr), slog.String("storage", cfg.StorageDriver), slog.String("profile", cfg.ProfileID))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// lazyPool connects on first use so that the database is only required when
// a postgres driver is selected.
type lazyPool struct {
	dsn  string
	pool *pgxpool.Pool
}

func (l *lazyPool) Get(ctx context.Context) (*pgxpool.Pool, error) {
	if l.pool != nil {
		return l.pool, nil
	}
	if l.dsn == "" {
		return nil, errors.New("DATABASE_URL is required for postgres")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(connectCtx, l.dsn)
	if err != nil {
		return nil, err
	}
	l.pool = pool
	return pool, nil
}

func (l *lazyPool) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

func openBackend(ctx context.Context, cfg config.Config, db *lazyPool) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return storage.NewMemoryBackend(), nil
	case config.DriverFile:
		b, err := filestore.New(cfg.StorageDir, cfg.ProfileID)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.DriverPostgres:
		pool, err := db.Get(ctx)
		if err != nil {
			return nil, err
		}
		b := postgres.New(pool, cfg.ProfileID)
		if err := b.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return b, nil
	case config.DriverNone:
		return storage.Discard(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openCatalog(ctx context.Context, cfg config.Config, db *lazyPool) (catalogapp.ProductRepo, error) {
	products, err := memory.Open(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	switch cfg.CatalogSource {
	case config.DriverMemory:
		return products, nil
	case config.DriverPostgres:
		pool, err := db.Get(ctx)
		if err != nil {
			return nil, err
		}
		repo := catalogpg.NewProductRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if err := repo.Seed(ctx, products.All()); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}
