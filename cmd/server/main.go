package main

import (
	"context"
	"database/sql"
	"delivery-trajectory-service/internal/adapters/cache"
	"delivery-trajectory-service/internal/adapters/repositories"
	"delivery-trajectory-service/internal/adapters/routing"
	"delivery-trajectory-service/internal/api"
	"delivery-trajectory-service/internal/api/handlers"
	"delivery-trajectory-service/internal/config"
	"delivery-trajectory-service/internal/platform/db"
	"delivery-trajectory-service/internal/ports"
	"delivery-trajectory-service/internal/services"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// storage bundles the adapters backed by the configured SQL driver.
type storage struct {
	db      *sql.DB
	reports ports.ReportRepository
	writer  ports.ReportWriter
	routes  ports.RouteStore
}

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, routing backends) behind ports,
// starts the report poller and serves HTTP until interrupted.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	routeStore := store.routes
	if cfg.Storage.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisDB)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()
		routeStore = cache.NewRedisRouteCache(client, cfg.RedisTTL())
		log.Printf("route store: redis addr=%s ttl=%s", cfg.Storage.RedisAddr, cfg.RedisTTL())
	}

	provider, err := newProvider(cfg.Routing)
	if err != nil {
		log.Fatal(err)
	}

	opts := cfg.EngineOptions()
	engine := services.NewEngine(services.NewPlanner(provider, routeStore, opts), opts)
	defer engine.Close()

	hub := handlers.NewStreamHub()
	defer hub.Close()
	unsubscribe := engine.Subscribe(hub)
	defer unsubscribe()

	router := api.NewRouter(engine, store.writer, hub)

	// WriteTimeout is left at zero so WebSocket streams are not cut off.
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server listening addr=%s provider=%s storage=%s", srv.Addr, cfg.Routing.Provider, cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Poll.Enabled {
		poller := services.NewPoller(store.reports, engine, cfg.PollInterval(), cfg.Poll.Concurrency)
		g.Go(func() error {
			if err := poller.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

func openStorage(cfg config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		conn, err := db.Open(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repositories.InitPostgresSchema(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		repo := repositories.NewSQLReportRepository(conn)
		return &storage{db: conn, reports: repo, writer: repo, routes: cache.NewSQLRouteCache(conn)}, nil

	default:
		conn, err := db.OpenSqlite(cfg.Storage.SqlitePath)
		if err != nil {
			return nil, err
		}
		if err := repositories.InitSchema(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open storage: %w", err)
		}
		repo := repositories.NewSqliteReportRepository(conn)
		return &storage{db: conn, reports: repo, writer: repo, routes: cache.NewSqliteRouteCache(conn)}, nil
	}
}

func newProvider(cfg config.RoutingConfig) (ports.RouteProvider, error) {
	switch cfg.Provider {
	case "ors":
		return routing.NewORSRouteProvider(cfg.ORSAPIKey, cfg.ORSBaseURL, cfg.ORSProfile, nil)
	default:
		return routing.NewOSRMRouteProvider(cfg.OSRMBaseURL, "", nil), nil
	}
}
