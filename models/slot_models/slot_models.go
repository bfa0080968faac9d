// Package slot_models owns the pool of reservable time slots. A slot
// is held by at most one active reservation; the conditional UPDATE in
// ClaimSlotTx is the only serialization point for a slot row.
package slot_models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/medijourney/booking/utils/apperrors"
)

// Slot is one reservable time window for a doctor.
type Slot struct {
	ID          uuid.UUID  `json:"id"`
	DoctorID    uuid.UUID  `json:"doctor_id"`
	SlotDate    time.Time  `json:"slot_date"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	IsAvailable bool       `json:"is_available"`
	HeldBy      *uuid.UUID `json:"held_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SlotSpec describes one slot to bulk-create.
type SlotSpec struct {
	SlotDate  time.Time `json:"slot_date" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// NewSlot builds an available slot from a spec.
func NewSlot(doctorID uuid.UUID, spec SlotSpec) (*Slot, error) {
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "uuid_generation_failed", "failed to generate slot ID", err)
	}
	now := time.Now()
	return &Slot{
		ID:          id,
		DoctorID:    doctorID,
		SlotDate:    spec.SlotDate,
		StartTime:   spec.StartTime,
		EndTime:     spec.EndTime,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CreateSlotsTx bulk-inserts available slots inside the caller's
// transaction. Overlapping windows are not checked; slot entry is an
// administrative trust boundary.
func CreateSlotsTx(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID, specs []SlotSpec) ([]Slot, error) {
	logger.InfoLogger.Infof("Creating %d slots for doctor %s", len(specs), doctorID)

	query := `
		INSERT INTO slots (
			id, doctor_id, slot_date, start_time, end_time, is_available, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING id`

	created := make([]Slot, 0, len(specs))
	for _, spec := range specs {
		slot, err := NewSlot(doctorID, spec)
		if err != nil {
			return nil, err
		}

		var insertedID uuid.UUID
		err = tx.QueryRow(ctx, query,
			slot.ID, slot.DoctorID, slot.SlotDate, slot.StartTime, slot.EndTime,
			slot.IsAvailable, slot.CreatedAt, slot.UpdatedAt,
		).Scan(&insertedID)
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to insert slot for doctor %s at %s: %v", doctorID, spec.StartTime, err)
			return nil, apperrors.Wrap(apperrors.Server, "slot_create_failed", "failed to create slot", err)
		}
		created = append(created, *slot)
	}

	logger.InfoLogger.Infof("Created %d slots for doctor %s", len(created), doctorID)
	return created, nil
}

// FindAvailableSlots returns the available slots for a doctor on a
// date, ordered by start time.
func FindAvailableSlots(ctx context.Context, db *pgxpool.Pool, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	query := `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_available, held_by, created_at, updated_at
		FROM slots
		WHERE doctor_id = $1 AND slot_date = $2 AND is_available = TRUE
		ORDER BY start_time ASC`

	rows, err := db.Query(ctx, query, doctorID, date)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch available slots for doctor %s: %v", doctorID, err)
		return nil, apperrors.Wrap(apperrors.Server, "slot_query_failed", "failed to fetch available slots", err)
	}
	defer rows.Close()

	slots := make([]Slot, 0)
	for rows.Next() {
		var s Slot
		if err := rows.Scan(
			&s.ID, &s.DoctorID, &s.SlotDate, &s.StartTime, &s.EndTime,
			&s.IsAvailable, &s.HeldBy, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			logger.ErrorLogger.Errorf("Failed to scan slot row: %v", err)
			return nil, apperrors.Wrap(apperrors.Server, "slot_scan_failed", "failed to read slot", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "slot_query_failed", "failed to read slots", err)
	}

	return slots, nil
}

// GetSlotByID fetches a single slot.
func GetSlotByID(ctx context.Context, db *pgxpool.Pool, slotID uuid.UUID) (*Slot, error) {
	s := &Slot{}
	query := `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_available, held_by, created_at, updated_at
		FROM slots
		WHERE id = $1`

	err := db.QueryRow(ctx, query, slotID).Scan(
		&s.ID, &s.DoctorID, &s.SlotDate, &s.StartTime, &s.EndTime,
		&s.IsAvailable, &s.HeldBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.NotFound, "slot_not_found", "slot not found")
		}
		logger.ErrorLogger.Errorf("Failed to fetch slot %s: %v", slotID, err)
		return nil, apperrors.Wrap(apperrors.Server, "slot_query_failed", "failed to fetch slot", err)
	}
	return s, nil
}

// ClaimSlotTx atomically takes the matching available slot for the
// holder. The WHERE clause does the arbitration: of any number of
// concurrent claims on the same slot row, exactly one update matches
// and the rest observe zero rows and get a conflict.
func ClaimSlotTx(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID, date, startTime time.Time, holderID uuid.UUID) (uuid.UUID, error) {
	query := `
		UPDATE slots
		SET is_available = FALSE, held_by = $4, updated_at = NOW()
		WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3 AND is_available = TRUE
		RETURNING id`

	var slotID uuid.UUID
	err := tx.QueryRow(ctx, query, doctorID, date, startTime, holderID).Scan(&slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.WarnLogger.Warnf("Slot claim lost for doctor %s at %s (holder %s)", doctorID, startTime, holderID)
			return uuid.Nil, apperrors.New(apperrors.Conflict, "slot_unavailable", "slot is not available")
		}
		logger.ErrorLogger.Errorf("Failed to claim slot for doctor %s at %s: %v", doctorID, startTime, err)
		return uuid.Nil, apperrors.Wrap(apperrors.Server, "slot_claim_failed", "failed to claim slot", err)
	}

	logger.InfoLogger.Infof("Slot %s claimed by %s", slotID, holderID)
	return slotID, nil
}

// ReleaseSlotTx frees a slot. Releasing an already-available slot is a
// no-op, not an error.
func ReleaseSlotTx(ctx context.Context, tx pgx.Tx, slotID uuid.UUID) error {
	query := `
		UPDATE slots
		SET is_available = TRUE, held_by = NULL, updated_at = NOW()
		WHERE id = $1`

	cmdTag, err := tx.Exec(ctx, query, slotID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to release slot %s: %v", slotID, err)
		return apperrors.Wrap(apperrors.Server, "slot_release_failed", "failed to release slot", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.New(apperrors.NotFound, "slot_not_found", "slot not found")
	}

	logger.InfoLogger.Infof("Slot %s released", slotID)
	return nil
}

// ReleaseSlotsHeldByTx frees every slot held by the given holder and
// returns how many were released. Used when a booking is cancelled.
func ReleaseSlotsHeldByTx(ctx context.Context, tx pgx.Tx, holderID uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET is_available = TRUE, held_by = NULL, updated_at = NOW()
		WHERE held_by = $1 AND is_available = FALSE`

	cmdTag, err := tx.Exec(ctx, query, holderID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to release slots held by %s: %v", holderID, err)
		return 0, apperrors.Wrap(apperrors.Server, "slot_release_failed", "failed to release held slots", err)
	}
	return cmdTag.RowsAffected(), nil
}
