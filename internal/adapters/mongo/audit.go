// Package mongo keeps an append-only audit trail of hold lifecycle actions.
package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ticketforge/hold-engine/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("hold_audit"),
		logger: logger,
	}
}

type auditDoc struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

// Emit implements events.Emitter; every lifecycle event becomes one audit
// document.
func (a *AuditLogger) Emit(ctx context.Context, eventType string, payload any) error {
	data, ok := payload.(map[string]any)
	if !ok {
		data = map[string]any{"payload": payload}
	}
	doc := auditDoc{
		ID:        uuid.NewString(),
		Action:    eventType,
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, doc); err != nil {
		a.logger.Error("insert audit doc: ", err)
		return err
	}
	return nil
}
