package booking_models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/medijourney/booking/utils/apperrors"
)

// History action tags.
const (
	ActionCreated           = "created"
	ActionStepUpdated       = "step_updated"
	ActionStepAdvanced      = "step_advanced"
	ActionStepReverted      = "step_reverted"
	ActionWorkflowCompleted = "workflow_completed"
	ActionSlotReserved      = "consultation_slot_reserved"
	ActionCancelled         = "cancelled"
)

// HistoryEntry is one immutable record of a booking mutation. Entries
// are only ever appended.
type HistoryEntry struct {
	ID        uuid.UUID                   `json:"id"`
	BookingID uuid.UUID                   `json:"booking_id"`
	Action    string                      `json:"action"`
	Status    shared_models.BookingStatus `json:"status"`
	Changes   map[string]interface{}      `json:"changes,omitempty"`
	ActorID   uuid.UUID                   `json:"actor_id"`
	CreatedAt time.Time                   `json:"created_at"`
}

// NewHistoryEntry builds an entry snapshotting the booking's status.
func NewHistoryEntry(bookingID uuid.UUID, action string, status shared_models.BookingStatus, actorID uuid.UUID, changes map[string]interface{}) (*HistoryEntry, error) {
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "uuid_generation_failed", "failed to generate history ID", err)
	}
	return &HistoryEntry{
		ID:        id,
		BookingID: bookingID,
		Action:    action,
		Status:    status,
		Changes:   changes,
		ActorID:   actorID,
		CreatedAt: time.Now(),
	}, nil
}

// AppendHistoryTx inserts the entry inside the caller's transaction.
func AppendHistoryTx(ctx context.Context, tx pgx.Tx, entry *HistoryEntry) error {
	rawChanges, err := json.Marshal(entry.Changes)
	if err != nil {
		return apperrors.Wrap(apperrors.Server, "history_encode_failed", "failed to encode history changes", err)
	}

	query := `
		INSERT INTO booking_history (id, booking_id, action, status, changes, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		entry.ID, entry.BookingID, entry.Action, entry.Status, rawChanges, entry.ActorID, entry.CreatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to append history for booking %s (%s): %v", entry.BookingID, entry.Action, err)
		return apperrors.Wrap(apperrors.Server, "history_append_failed", "failed to append booking history", err)
	}
	return nil
}

// ListHistory returns a booking's history, oldest first.
func ListHistory(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID) ([]HistoryEntry, error) {
	query := `
		SELECT id, booking_id, action, status, changes, actor_id, created_at
		FROM booking_history
		WHERE booking_id = $1
		ORDER BY created_at ASC`

	rows, err := db.Query(ctx, query, bookingID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch history for booking %s: %v", bookingID, err)
		return nil, apperrors.Wrap(apperrors.Server, "history_query_failed", "failed to fetch booking history", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		var rawChanges []byte
		if err := rows.Scan(&e.ID, &e.BookingID, &e.Action, &e.Status, &rawChanges, &e.ActorID, &e.CreatedAt); err != nil {
			logger.ErrorLogger.Errorf("Failed to scan history row: %v", err)
			return nil, apperrors.Wrap(apperrors.Server, "history_scan_failed", "failed to read booking history", err)
		}
		if len(rawChanges) > 0 {
			if err := json.Unmarshal(rawChanges, &e.Changes); err != nil {
				return nil, apperrors.Wrap(apperrors.Server, "history_decode_failed", "failed to decode history changes", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "history_query_failed", "failed to read booking history", err)
	}

	return entries, nil
}
