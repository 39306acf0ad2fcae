// Package audit records every mutating decision the automation engine
// makes. Writes are fire-and-forget: an unreachable audit trail must never
// block or fail the primary mutation, so failures are logged and dropped.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldserve/backend/internal/models"
	"github.com/fieldserve/backend/internal/store"
)

const collection = "auditLogs"

type Entry struct {
	Before any
	After  any
	Actor  string
	Reason string
}

type Logger struct {
	Gateway store.Gateway
	Logger  zerolog.Logger
	// Actor used when an entry does not name one (the automation engine).
	DefaultActor string
}

func (l *Logger) Log(entityType, entityID string, e Entry) {
	if l == nil || l.Gateway == nil {
		return
	}
	actor := e.Actor
	if actor == "" {
		actor = l.DefaultActor
	}
	record := models.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Before:     e.Before,
		After:      e.After,
		Actor:      actor,
		Reason:     e.Reason,
		Timestamp:  time.Now().UTC(),
	}
	go func() {
		if _, err := l.Gateway.Push(context.Background(), collection, record); err != nil {
			l.Logger.Warn().Err(err).
				Str("entity_type", entityType).
				Str("entity_id", entityID).
				Msg("audit write failed")
		}
	}()
}
