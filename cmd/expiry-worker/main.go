package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ticketforge/hold-engine/internal/adapters/crdb"
	"github.com/ticketforge/hold-engine/internal/adapters/rabbit"
	"github.com/ticketforge/hold-engine/internal/clock"
	"github.com/ticketforge/hold-engine/internal/config"
	"github.com/ticketforge/hold-engine/internal/events"
	"github.com/ticketforge/hold-engine/internal/ledger"
	"github.com/ticketforge/hold-engine/internal/observability"
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

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	var emit events.Emitter = events.Nop{}
	if cfg.RabbitURL != "" {
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer conn.Close()
		pub, err := rabbit.NewPublisher(conn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		emit = pub
	}

	sw := sweeper.New(repo, ledger.New(repo), emit, clock.NewSystem(), logger, cfg.SweepBatchSize)
	go sw.Run(ctx, cfg.SweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown expiry worker")
}
