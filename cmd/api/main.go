package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/recipedia/internal/cache"
	"github.com/geocoder89/recipedia/internal/config"
	"github.com/geocoder89/recipedia/internal/db"
	httpx "github.com/geocoder89/recipedia/internal/http"
	"github.com/geocoder89/recipedia/internal/http/handlers"
	"github.com/geocoder89/recipedia/internal/http/middlewares"
	"github.com/geocoder89/recipedia/internal/observability"
	"github.com/geocoder89/recipedia/internal/redisclient"
	"github.com/geocoder89/recipedia/internal/repo/memory"
	"github.com/geocoder89/recipedia/internal/repo/mongodb"
	"github.com/geocoder89/recipedia/internal/repo/postgres"
)

type stores struct {
	users   handlers.UsersStore
	recipes handlers.RecipesStore
	ready   handlers.Pinger
	close   func()
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env, cfg.OTelServiceName)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	bootCtx, bootCancel := config.WithTimeout(30 * time.Second)
	defer bootCancel()

	shutdownTracer, err := observability.InitTracer(bootCtx, observability.TracerConfig{
		ServiceName: cfg.OTelServiceName,
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm()

	st, err := openStores(bootCtx, cfg, prom, log)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	if err := db.EnsureAdminUser(bootCtx, st.users, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	deps := httpx.Deps{
		Users:   st.users,
		Recipes: st.recipes,
		Ready:   st.ready,
		Prom:    prom,
	}

	// redis backs the list cache and the auth limiter when configured
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		if err := rc.Ping(bootCtx); err != nil {
			log.Warn("redis not reachable at boot", "addr", cfg.RedisAddr, "err", err)
		}

		deps.Cache = cache.NewRedis(rc.Raw(), cfg.CacheTTL, log)
		deps.AuthLimiter = middlewares.NewRedisLimiter(rc.Raw(), "ratelimit:auth:", cfg.RateLimitAuth, cfg.RateLimitWindow)
		deps.Ready = handlers.Pingers{st.ready, rc}
	} else {
		deps.Cache = cache.New(cfg.CacheTTL)
	}

	// set up routers with the log
	router := httpx.NewRouter(log, deps, cfg)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStores(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("ensure schema: %w", err)
		}

		users := postgres.NewUsersRepo(pool, prom)
		return stores{
			users:   users,
			recipes: postgres.NewRecipesRepo(pool, prom),
			ready:   users,
			close:   pool.Close,
		}, nil

	case "mongo":
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return stores{}, fmt.Errorf("connect mongo: %w", err)
		}
		database := client.Database(cfg.MongoDB)
		if err := mongodb.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, fmt.Errorf("ensure indexes: %w", err)
		}

		users := mongodb.NewUsersRepo(database, prom)
		return stores{
			users:   users,
			recipes: mongodb.NewRecipesRepo(database, prom),
			ready:   users,
			close: func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					log.Warn("mongo disconnect failed", "err", err)
				}
			},
		}, nil

	default:
		log.Warn("using in-memory store; data is lost on restart")
		users := memory.NewUsersRepo()
		return stores{
			users:   users,
			recipes: memory.NewRecipesRepo(),
			ready:   users,
			close:   func() {},
		}, nil
	}
}
