// Package appointment_models persists appointment rows, the derived
// reservations that link a user to the slot they claimed.
package appointment_models

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

// Appointment is a scheduled reservation against a claimed slot.
type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	DoctorID           uuid.UUID  `json:"doctor_id"`
	SlotID             uuid.UUID  `json:"slot_id"`
	AppointmentDate    time.Time  `json:"appointment_date"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewAppointment builds a scheduled appointment. The slot ID is filled
// in after the claim succeeds.
func NewAppointment(userID, doctorID uuid.UUID, date, startTime, endTime time.Time, notes *string) (*Appointment, error) {
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "uuid_generation_failed", "failed to generate appointment ID", err)
	}
	now := time.Now()
	return &Appointment{
		ID:              id,
		UserID:          userID,
		DoctorID:        doctorID,
		AppointmentDate: date,
		StartTime:       startTime,
		EndTime:         endTime,
		Status:          shared_models.AppointmentStatusScheduled,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

const appointmentColumns = `
	id, user_id, doctor_id, slot_id, appointment_date, start_time, end_time,
	status, notes, cancellation_reason, cancelled_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	a := &Appointment{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.DoctorID, &a.SlotID, &a.AppointmentDate, &a.StartTime, &a.EndTime,
		&a.Status, &a.Notes, &a.CancellationReason, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAppointmentTx inserts the appointment inside the caller's
// transaction, after its slot has been claimed.
func CreateAppointmentTx(ctx context.Context, tx pgx.Tx, a *Appointment) (*Appointment, error) {
	logger.InfoLogger.Infof("Creating appointment %s for user %s with doctor %s", a.ID, a.UserID, a.DoctorID)

	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var insertedID uuid.UUID
	err := tx.QueryRow(ctx, query,
		a.ID, a.UserID, a.DoctorID, a.SlotID, a.AppointmentDate, a.StartTime, a.EndTime,
		a.Status, a.Notes, a.CancellationReason, a.CancelledAt, a.CreatedAt, a.UpdatedAt,
	).Scan(&insertedID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert appointment for user %s: %v", a.UserID, err)
		return nil, apperrors.Wrap(apperrors.Server, "appointment_create_failed", "failed to create appointment", err)
	}

	return a, nil
}

// GetAppointmentByID fetches an appointment without locking.
func GetAppointmentByID(ctx context.Context, db *pgxpool.Pool, appointmentID uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	a, err := scanAppointment(db.QueryRow(ctx, query, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.NotFound, "appointment_not_found", "appointment not found")
		}
		logger.ErrorLogger.Errorf("Failed to fetch appointment %s: %v", appointmentID, err)
		return nil, apperrors.Wrap(apperrors.Server, "appointment_query_failed", "failed to fetch appointment", err)
	}
	return a, nil
}

// GetAppointmentForUpdateTx fetches an appointment with a row lock.
func GetAppointmentForUpdateTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

	a, err := scanAppointment(tx.QueryRow(ctx, query, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.NotFound, "appointment_not_found", "appointment not found")
		}
		logger.ErrorLogger.Errorf("Failed to lock appointment %s: %v", appointmentID, err)
		return nil, apperrors.Wrap(apperrors.Server, "appointment_query_failed", "failed to fetch appointment", err)
	}
	return a, nil
}

// HasActiveAppointment reports whether the user already has a
// non-cancelled appointment with the doctor on the date.
func HasActiveAppointment(ctx context.Context, db *pgxpool.Pool, userID, doctorID uuid.UUID, date time.Time) (bool, error) {
	var found bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE user_id = $1 AND doctor_id = $2 AND appointment_date = $3 AND status <> $4
		)`

	err := db.QueryRow(ctx, query, userID, doctorID, date, shared_models.AppointmentStatusCancelled).Scan(&found)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check active appointment for user %s: %v", userID, err)
		return false, apperrors.Wrap(apperrors.Server, "appointment_query_failed", "failed to check active appointments", err)
	}
	return found, nil
}

// RescheduleTx moves the appointment onto a newly claimed slot.
func RescheduleTx(ctx context.Context, tx pgx.Tx, appointmentID, newSlotID uuid.UUID, date, startTime, endTime time.Time) error {
	query := `
		UPDATE appointments
		SET slot_id = $2, appointment_date = $3, start_time = $4, end_time = $5, updated_at = NOW()
		WHERE id = $1`

	cmdTag, err := tx.Exec(ctx, query, appointmentID, newSlotID, date, startTime, endTime)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to reschedule appointment %s: %v", appointmentID, err)
		return apperrors.Wrap(apperrors.Server, "appointment_update_failed", "failed to reschedule appointment", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.New(apperrors.NotFound, "appointment_not_found", "appointment not found for update")
	}

	logger.InfoLogger.Infof("Appointment %s rescheduled to slot %s", appointmentID, newSlotID)
	return nil
}

// CancelTx marks the appointment cancelled.
func CancelTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, reason string) error {
	query := `
		UPDATE appointments
		SET status = $2, cancellation_reason = $3, cancelled_at = $4, updated_at = $4
		WHERE id = $1`

	now := time.Now()
	cmdTag, err := tx.Exec(ctx, query, appointmentID, shared_models.AppointmentStatusCancelled, reason, now)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to cancel appointment %s: %v", appointmentID, err)
		return apperrors.Wrap(apperrors.Server, "appointment_update_failed", "failed to cancel appointment", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.New(apperrors.NotFound, "appointment_not_found", "appointment not found for update")
	}

	logger.InfoLogger.Infof("Appointment %s cancelled", appointmentID)
	return nil
}

// ListAppointmentsByUser returns the user's appointments, newest first.
func ListAppointmentsByUser(ctx context.Context, db *pgxpool.Pool, userID uuid.UUID) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch appointments for user %s: %v", userID, err)
		return nil, apperrors.Wrap(apperrors.Server, "appointment_query_failed", "failed to fetch appointments", err)
	}
	defer rows.Close()

	appointments := make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.DoctorID, &a.SlotID, &a.AppointmentDate, &a.StartTime, &a.EndTime,
			&a.Status, &a.Notes, &a.CancellationReason, &a.CancelledAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			logger.ErrorLogger.Errorf("Failed to scan appointment row: %v", err)
			return nil, apperrors.Wrap(apperrors.Server, "appointment_scan_failed", "failed to read appointment", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "appointment_query_failed", "failed to read appointments", err)
	}

	return appointments, nil
}
