// Package audit records who did what to which entity. Recording is
// best-effort: a failed audit write is logged and swallowed, never
// surfaced to the caller.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/shared_models"
)

// Recorder is the narrow interface the services depend on.
type Recorder interface {
	Log(ctx context.Context, action, entityType string, entityID, actorID uuid.UUID, details map[string]interface{}) error
}

// PGRecorder writes audit entries to the audit_logs table.
type PGRecorder struct {
	DB *pgxpool.Pool
}

// NewPGRecorder builds a Postgres-backed recorder.
func NewPGRecorder(db *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{DB: db}
}

// Log inserts one audit row.
func (r *PGRecorder) Log(ctx context.Context, action, entityType string, entityID, actorID uuid.UUID, details map[string]interface{}) error {
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return err
	}

	rawDetails, err := json.Marshal(details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, actor_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.DB.Exec(ctx, query, id, action, entityType, entityID, actorID, rawDetails, time.Now()); err != nil {
		logger.WarnLogger.Warnf("Audit write failed for %s %s (%s): %v", entityType, entityID, action, err)
		return err
	}
	return nil
}

// NopRecorder discards everything. Used in tests.
type NopRecorder struct{}

// Log implements Recorder.
func (NopRecorder) Log(ctx context.Context, action, entityType string, entityID, actorID uuid.UUID, details map[string]interface{}) error {
	return nil
}
