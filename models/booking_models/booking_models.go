// Package booking_models persists the booking aggregate and its
// append-only history. The aggregate is only mutated through the
// workflow service, inside an explicit transaction.
package booking_models

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/medijourney/booking/utils/apperrors"
)

// StepData is the captured payload for one workflow step. The
// "completed_at" key records when the step's data was last written.
type StepData map[string]interface{}

// WorkflowData maps step numbers (as strings, the JSONB key form) to
// their captured payloads.
type WorkflowData map[string]StepData

// StepKey converts a step number to its WorkflowData key.
func StepKey(step int) string {
	return strconv.Itoa(step)
}

// Booking is the mutable aggregate tracking a user's progress through
// the seven-step acquisition workflow.
type Booking struct {
	ID                  uuid.UUID                   `json:"id"`
	UserID              uuid.UUID                   `json:"user_id"`
	TreatmentID         uuid.UUID                   `json:"treatment_id"`
	CountryID           uuid.UUID                   `json:"country_id"`
	CityID              *uuid.UUID                  `json:"city_id,omitempty"`
	HospitalID          *uuid.UUID                  `json:"hospital_id,omitempty"`
	PackageID           *uuid.UUID                  `json:"package_id,omitempty"`
	CurrentStep         int                         `json:"current_step"`
	Status              shared_models.BookingStatus `json:"status"`
	WorkflowData        WorkflowData                `json:"workflow_data"`
	BasePrice           float64                     `json:"base_price"`
	AddOnsPrice         float64                     `json:"add_ons_price"`
	TotalPrice          float64                     `json:"total_price"`
	CancellationReason  *string                     `json:"cancellation_reason,omitempty"`
	WorkflowCompletedAt *time.Time                  `json:"workflow_completed_at,omitempty"`
	CancelledAt         *time.Time                  `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

// NewBooking builds a fresh aggregate at step 1, status pending.
func NewBooking(userID, treatmentID, countryID uuid.UUID) (*Booking, error) {
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "uuid_generation_failed", "failed to generate booking ID", err)
	}
	now := time.Now()
	return &Booking{
		ID:           id,
		UserID:       userID,
		TreatmentID:  treatmentID,
		CountryID:    countryID,
		CurrentStep:  shared_models.FirstStep,
		Status:       shared_models.StatusPending,
		WorkflowData: WorkflowData{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

const bookingColumns = `
	id, user_id, treatment_id, country_id, city_id, hospital_id, package_id,
	current_step, status, workflow_data, base_price, add_ons_price, total_price,
	cancellation_reason, workflow_completed_at, cancelled_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	b := &Booking{}
	var rawWorkflow []byte
	err := row.Scan(
		&b.ID, &b.UserID, &b.TreatmentID, &b.CountryID, &b.CityID, &b.HospitalID, &b.PackageID,
		&b.CurrentStep, &b.Status, &rawWorkflow, &b.BasePrice, &b.AddOnsPrice, &b.TotalPrice,
		&b.CancellationReason, &b.WorkflowCompletedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.WorkflowData = WorkflowData{}
	if len(rawWorkflow) > 0 {
		if err := json.Unmarshal(rawWorkflow, &b.WorkflowData); err != nil {
			return nil, apperrors.Wrap(apperrors.Server, "workflow_data_corrupt", "failed to decode workflow data", err)
		}
	}
	return b, nil
}

// CreateBookingTx inserts the aggregate inside the caller's transaction.
func CreateBookingTx(ctx context.Context, tx pgx.Tx, b *Booking) (*Booking, error) {
	logger.InfoLogger.Infof("Creating booking %s for user %s (treatment %s)", b.ID, b.UserID, b.TreatmentID)

	rawWorkflow, err := json.Marshal(b.WorkflowData)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "workflow_data_encode_failed", "failed to encode workflow data", err)
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`

	var insertedID uuid.UUID
	err = tx.QueryRow(ctx, query,
		b.ID, b.UserID, b.TreatmentID, b.CountryID, b.CityID, b.HospitalID, b.PackageID,
		b.CurrentStep, b.Status, rawWorkflow, b.BasePrice, b.AddOnsPrice, b.TotalPrice,
		b.CancellationReason, b.WorkflowCompletedAt, b.CancelledAt, b.CreatedAt, b.UpdatedAt,
	).Scan(&insertedID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert booking for user %s: %v", b.UserID, err)
		return nil, apperrors.Wrap(apperrors.Server, "booking_create_failed", "failed to create booking", err)
	}

	logger.InfoLogger.Infof("Booking %s created", insertedID)
	return b, nil
}

// GetBookingByID fetches the aggregate without locking.
func GetBookingByID(ctx context.Context, db *pgxpool.Pool, bookingID uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(db.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.NotFound, "booking_not_found", "booking not found")
		}
		logger.ErrorLogger.Errorf("Failed to fetch booking %s: %v", bookingID, err)
		return nil, apperrors.Wrap(apperrors.Server, "booking_query_failed", "failed to fetch booking", err)
	}
	return b, nil
}

// GetBookingForUpdateTx fetches the aggregate with a row lock, for a
// read-modify-write inside the caller's transaction.
func GetBookingForUpdateTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(tx.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.NotFound, "booking_not_found", "booking not found")
		}
		logger.ErrorLogger.Errorf("Failed to lock booking %s: %v", bookingID, err)
		return nil, apperrors.Wrap(apperrors.Server, "booking_query_failed", "failed to fetch booking", err)
	}
	return b, nil
}

// HasActiveBooking reports whether the user already has a pending or
// expert-review booking for the treatment.
func HasActiveBooking(ctx context.Context, db *pgxpool.Pool, userID, treatmentID uuid.UUID) (bool, error) {
	var found bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND treatment_id = $2 AND status IN ($3, $4)
		)`

	err := db.QueryRow(ctx, query, userID, treatmentID,
		shared_models.StatusPending, shared_models.StatusExpertReview,
	).Scan(&found)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check active booking for user %s: %v", userID, err)
		return false, apperrors.Wrap(apperrors.Server, "booking_query_failed", "failed to check active bookings", err)
	}
	return found, nil
}

// UpdateAggregateTx writes back every mutable column of the aggregate.
func UpdateAggregateTx(ctx context.Context, tx pgx.Tx, b *Booking) error {
	rawWorkflow, err := json.Marshal(b.WorkflowData)
	if err != nil {
		return apperrors.Wrap(apperrors.Server, "workflow_data_encode_failed", "failed to encode workflow data", err)
	}

	query := `
		UPDATE bookings
		SET city_id = $2, hospital_id = $3, package_id = $4,
			current_step = $5, status = $6, workflow_data = $7,
			base_price = $8, add_ons_price = $9, total_price = $10,
			cancellation_reason = $11, workflow_completed_at = $12, cancelled_at = $13,
			updated_at = $14
		WHERE id = $1`

	b.UpdatedAt = time.Now()
	cmdTag, err := tx.Exec(ctx, query,
		b.ID, b.CityID, b.HospitalID, b.PackageID,
		b.CurrentStep, b.Status, rawWorkflow,
		b.BasePrice, b.AddOnsPrice, b.TotalPrice,
		b.CancellationReason, b.WorkflowCompletedAt, b.CancelledAt,
		b.UpdatedAt,
	)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to update booking %s: %v", b.ID, err)
		return apperrors.Wrap(apperrors.Server, "booking_update_failed", "failed to update booking", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.New(apperrors.NotFound, "booking_not_found", "booking not found for update")
	}
	return nil
}
