package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ticketforge/hold-engine/internal/adapters/crdb"
	"github.com/ticketforge/hold-engine/internal/adapters/memory"
	mongoadapter "github.com/ticketforge/hold-engine/internal/adapters/mongo"
	redisadapter "github.com/ticketforge/hold-engine/internal/adapters/redis"
	"github.com/ticketforge/hold-engine/internal/catalog"
	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/config"
	"github.com/ticketforge/hold-engine/internal/events"
	"github.com/ticketforge/hold-engine/internal/hold"
	httphandler "github.com/ticketforge/hold-engine/internal/http"
	"github.com/ticketforge/hold-engine/internal/idempotency"
	"github.com/ticketforge/hold-engine/internal/ledger"
	"github.com/ticketforge/hold-engine/internal/observability"
	"github.com/ticketforge/hold-engine/internal/outbox"
	"github.com/ticketforge/hold-engine/internal/rateLimit"
	"github.com/ticketforge/hold-engine/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOtel, err := observability.SetupOTel(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()
	clk := clock.NewSystem()

	var (
		zoneStore  ledger.ZoneStore
		holdStore  sweeper.Lister
		zoneGetter hold.ZoneGetter
		catStore   catalog.Store
		idemStore  idempotency.Store
		emit       events.Emitter = events.Nop{}
		rl         *rateLimit.RateLimiter
	)

	switch cfg.Store {
	case "crdb":
		pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
		if err != nil {
			log.Fatalf("failed to connect to crdb: %v", err)
		}
		defer pool.Close()
		if err := crdb.Migrate(ctx, pool); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		repo := crdb.NewRepository(pool)
		zoneStore, holdStore, zoneGetter, catStore = repo, repo, repo, repo
		emit = outbox.NewRecorder(repo)

		if cfg.RedisAddr == "" {
			log.Fatal("REDIS_ADDR is required with STORE=crdb")
		}
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		idemStore = redisadapter.NewIdempotencyStore(redisClient, cfg.IdempotencyRetention)
		rl = rateLimit.NewRateLimiter(redisadapter.NewCache(redisClient), 100, time.Minute)

		if cfg.MongoURI != "" {
			mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
			if err != nil {
				log.Fatalf("failed to connect to mongo: %v", err)
			}
			defer mongoClient.Disconnect(ctx)
			audit := mongoadapter.NewAuditLogger(mongoClient.Database("holdengine"), logger)
			emit = events.Multi{emit, audit}
		}
	default:
		store := memory.NewStore()
		zoneStore, holdStore, zoneGetter, catStore = store, store, store, store
		memIdem := memory.NewIdempotencyStore(cfg.IdempotencyRetention)
		idemStore = memIdem
		// Redis expires records by TTL; the map needs a periodic sweep.
		go func() {
			ticker := time.NewTicker(cfg.IdempotencyRetention / 4)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					memIdem.GC(now)
				}
			}
		}()
	}

	led := ledger.New(zoneStore)
	idem := idempotency.NewRunner(idemStore, logger)
	manager := hold.NewManager(holdStore, zoneGetter, led, idem, emit, clk, logger, cfg.HoldTTL)
	confirmSvc := hold.NewConfirmService(holdStore, led, idem, emit, clk, logger)
	catalogSvc := catalog.NewService(catStore, led, clk)

	// Memory deployments have no separate expiry worker; sweep in-process.
	if cfg.Store != "crdb" {
		sw := sweeper.New(holdStore, led, emit, clk, logger, cfg.SweepBatchSize)
		go sw.Run(ctx, cfg.SweepInterval)
	}

	handlers := httphandler.NewHandlers(catalogSvc, manager, confirmSvc)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		logger.WithField("addr", cfg.Addr).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("server shutdown: ", err)
	}
	logger.Info("server exiting")
}
