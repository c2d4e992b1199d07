// Package outbox decouples event emission from broker availability: the
// engine records events next to its data and a relay publishes them.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ticketforge/hold-engine/internal/adapters/crdb"
	"github.com/ticketforge/hold-engine/internal/adapters/rabbit"
	"github.com/ticketforge/hold-engine/internal/observability"
)

// Recorder implements events.Emitter by writing outbox rows.
type Recorder struct {
	repo *crdb.Repository
}

func NewRecorder(repo *crdb.Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Emit(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.repo.InsertOutbox(ctx, crdb.OutboxRecord{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   body,
		DedupeKey: uuid.NewString(),
	})
}

// Publisher relays NEW outbox rows to RabbitMQ.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("outbox publisher started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			p.publishBatch(ctx)
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) {
	records, err := p.repo.GetUnpublishedOutbox(ctx, 50)
	if err != nil {
		p.logger.Error("load outbox batch: ", err)
		return
	}
	for _, rec := range records {
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			p.logger.WithField("outbox_id", rec.ID.String()).Error("publish outbox record: ", err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, time.Now().UTC()); err != nil {
			p.logger.WithField("outbox_id", rec.ID.String()).Error("mark outbox published: ", err)
		}
	}
}
