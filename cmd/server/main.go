// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/chroma/internal/cache"
	"github.com/jason-s-yu/chroma/internal/config"
	"github.com/jason-s-yu/chroma/internal/database"
	"github.com/jason-s-yu/chroma/internal/handlers"
	"github.com/jason-s-yu/chroma/internal/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.StoreDriver == config.DriverRedis || cfg.RoundJournal {
		rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, rdb)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer closeStore()
	logger.Infof("session store: %s", cfg.StoreDriver)

	router := session.NewPresenceRouter(logger)
	schedOpts := []session.SchedulerOption{session.WithTickInterval(cfg.RoundTick)}
	if cfg.RoundJournal {
		journal := cache.NewRoundJournal(rdb, cfg.JournalQueue, logger)
		schedOpts = append(schedOpts, session.WithRoundObserver(journal.Observe))
	}
	rounds := session.NewRoundScheduler(router, logger, schedOpts...)
	coord := session.NewCoordinator(session.NewRegistry(store), router, rounds, logger,
		session.WithRoundSeconds(cfg.RoundSeconds),
	)

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     handlers.NewRouter(logger, coord, cfg.AllowedOrigins),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	coord.Shutdown()
}

// openStore builds the session store selected by STORE_DRIVER. The returned
// func releases whatever the store holds open.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (session.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.DriverPostgres:
		pool, err := database.ConnectDB(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, nil, err
		}
		s := database.NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	case config.DriverRedis:
		return cache.NewRedisStore(rdb), func() {}, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}
