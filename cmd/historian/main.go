// cmd/historian/main.go drains the round journal from Redis and persists finished rounds to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jason-s-yu/chroma/internal/cache"
	"github.com/jason-s-yu/chroma/internal/config"
	"github.com/jason-s-yu/chroma/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const defaultPopTimeout = 3 * time.Second

type roundWriter interface {
	InsertRounds(ctx context.Context, rows []database.RoundRow) error
}

// historian batches journal records and flushes them in one transaction.
type historian struct {
	journal    *cache.RoundJournal
	store      roundWriter
	batchSize  int
	flushDelay time.Duration
	popTimeout time.Duration
	logger     *logrus.Logger

	batchMu sync.Mutex
	batch   []database.RoundRow
}

func (h *historian) run(ctx context.Context) {
	rows := make(chan database.RoundRow)
	go h.readJournal(ctx, rows)

	ticker := time.NewTicker(h.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flush(context.Background())
			return
		case <-ticker.C:
			h.flush(ctx)
		case row := <-rows:
			h.append(ctx, row)
		}
	}
}

// readJournal pops records off the journal and hands them to run until ctx ends.
func (h *historian) readJournal(ctx context.Context, rows chan<- database.RoundRow) {
	for ctx.Err() == nil {
		rec, err := h.journal.Next(ctx, h.popTimeout)
		if err != nil {
			if ctx.Err() == nil {
				h.logger.Errorf("journal read: %v", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			continue
		}
		if rec == nil {
			continue
		}
		row := database.RoundRow{
			Code:       rec.Code,
			TargetName: rec.TargetName,
			TargetHex:  rec.TargetHex,
			Duration:   rec.Duration,
			Cancelled:  rec.Cancelled,
			EndedAt:    time.UnixMilli(rec.EndedAt),
		}
		select {
		case rows <- row:
		case <-ctx.Done():
			return
		}
	}
}

func (h *historian) append(ctx context.Context, row database.RoundRow) {
	h.batchMu.Lock()
	h.batch = append(h.batch, row)
	full := len(h.batch) >= h.batchSize
	h.batchMu.Unlock()

	if full {
		h.flush(ctx)
	}
}

func (h *historian) flush(ctx context.Context) {
	h.batchMu.Lock()
	if len(h.batch) == 0 {
		h.batchMu.Unlock()
		return
	}
	rows := make([]database.RoundRow, len(h.batch))
	copy(rows, h.batch)
	h.batch = h.batch[:0]
	h.batchMu.Unlock()

	if err := h.store.InsertRounds(ctx, rows); err != nil {
		h.logger.Errorf("flush %d rounds: %v", len(rows), err)
		return
	}
	h.logger.Debugf("Flushed %d rounds to DB.", len(rows))
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	dsn := cfg.PostgresURL()
	if dsn == "" {
		logger.Fatal("historian needs DATABASE_URL or PG_DATABASE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, dsn)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	store := database.NewPostgresStore(pool)
	if err := store.EnsureRoundsSchema(ctx); err != nil {
		logger.Fatalf("postgres: %v", err)
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	h := &historian{
		journal:    cache.NewRoundJournal(rdb, cfg.JournalQueue, logger),
		store:      store,
		batchSize:  max(cfg.HistorianBatchSize, 1),
		flushDelay: cfg.HistorianFlush,
		popTimeout: defaultPopTimeout,
		logger:     logger,
	}
	logger.Infof("chroma-historian reading %s", cfg.JournalQueue)
	h.run(ctx)
	logger.Info("chroma-historian shutdown complete.")
}
