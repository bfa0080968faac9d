package reservation_controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/audit"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/appointment_models"
	"github.com/medijourney/booking/models/catalog_models"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/medijourney/booking/models/slot_models"
	"github.com/medijourney/booking/notifications"
	"github.com/medijourney/booking/utils/apperrors"
)

// ReservationService coordinates slot claims with appointment rows.
// Claim and appointment write always share one transaction, so a
// failure at any point releases the slot with the rollback.
type ReservationService struct {
	DB       *pgxpool.Pool
	Audit    audit.Recorder
	Notifier notifications.Notifier
}

// NewReservationService wires the coordinator.
func NewReservationService(db *pgxpool.Pool, recorder audit.Recorder, notifier notifications.Notifier) *ReservationService {
	return &ReservationService{DB: db, Audit: recorder, Notifier: notifier}
}

// BookRequest carries the inputs for BookAppointment.
type BookRequest struct {
	UserID    uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
	Notes     *string
}

func (r BookRequest) validate() error {
	if r.UserID == uuid.Nil || r.DoctorID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "missing_ids", "user and doctor IDs are required")
	}
	if r.Date.IsZero() || r.StartTime.IsZero() || r.EndTime.IsZero() {
		return apperrors.New(apperrors.Validation, "missing_times", "date, start time and end time are required")
	}
	if !r.EndTime.After(r.StartTime) {
		return apperrors.New(apperrors.Validation, "invalid_time_range", "end time must be after start time")
	}
	return nil
}

// BookAppointment claims the requested slot and creates the
// appointment in one transaction. Losing the claim race yields a
// conflict with no partial state.
func (s *ReservationService) BookAppointment(ctx context.Context, req BookRequest) (*appointment_models.Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	exists, err := catalog_models.UserExists(ctx, s.DB, req.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.Newf(apperrors.NotFound, "user_not_found", "user %s does not exist", req.UserID)
	}

	active, err := appointment_models.HasActiveAppointment(ctx, s.DB, req.UserID, req.DoctorID, req.Date)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.New(apperrors.Conflict, "appointment_already_exists", "an appointment with this doctor already exists on this date")
	}

	appointment, err := appointment_models.NewAppointment(req.UserID, req.DoctorID, req.Date, req.StartTime, req.EndTime, req.Notes)
	if err != nil {
		return nil, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	slotID, err := slot_models.ClaimSlotTx(ctx, tx, req.DoctorID, req.Date, req.StartTime, appointment.ID)
	if err != nil {
		return nil, err
	}
	appointment.SlotID = slotID

	if _, err := appointment_models.CreateAppointmentTx(ctx, tx, appointment); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit appointment booking", err)
	}

	logger.InfoLogger.Infof("Appointment %s booked on slot %s", appointment.ID, slotID)
	s.dispatch("appointment_booked", appointment.ID, req.UserID, notifications.EventAppointmentBooked, map[string]interface{}{
		"appointment_id": appointment.ID.String(),
		"doctor_id":      req.DoctorID.String(),
		"slot_id":        slotID.String(),
	})
	return appointment, nil
}

// RescheduleAppointment moves an appointment to a new slot. The new
// claim, the old release and the row update commit together; if the
// new slot is taken, nothing changes.
func (s *ReservationService) RescheduleAppointment(ctx context.Context, appointmentID, userID uuid.UUID, date, startTime, endTime time.Time) (*appointment_models.Appointment, error) {
	if appointmentID == uuid.Nil || userID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "missing_ids", "appointment and user IDs are required")
	}
	if date.IsZero() || startTime.IsZero() || endTime.IsZero() {
		return nil, apperrors.New(apperrors.Validation, "missing_times", "date, start time and end time are required")
	}
	if !endTime.After(startTime) {
		return nil, apperrors.New(apperrors.Validation, "invalid_time_range", "end time must be after start time")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	appointment, err := appointment_models.GetAppointmentForUpdateTx(ctx, tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.UserID != userID {
		logger.WarnLogger.Warnf("User %s tried to reschedule appointment %s owned by %s", userID, appointmentID, appointment.UserID)
		return nil, apperrors.New(apperrors.Unauthorized, "not_appointment_owner", "appointment does not belong to this user")
	}
	if appointment.Status != shared_models.AppointmentStatusScheduled {
		return nil, apperrors.Newf(apperrors.Validation, "appointment_not_reschedulable", "appointment in status %s cannot be rescheduled", appointment.Status)
	}

	oldSlotID := appointment.SlotID

	newSlotID, err := slot_models.ClaimSlotTx(ctx, tx, appointment.DoctorID, date, startTime, appointment.ID)
	if err != nil {
		return nil, err
	}

	if err := slot_models.ReleaseSlotTx(ctx, tx, oldSlotID); err != nil {
		return nil, err
	}

	if err := appointment_models.RescheduleTx(ctx, tx, appointmentID, newSlotID, date, startTime, endTime); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit reschedule", err)
	}

	appointment.SlotID = newSlotID
	appointment.AppointmentDate = date
	appointment.StartTime = startTime
	appointment.EndTime = endTime

	logger.InfoLogger.Infof("Appointment %s moved from slot %s to %s", appointmentID, oldSlotID, newSlotID)
	s.dispatch("appointment_rescheduled", appointmentID, userID, notifications.EventAppointmentRescheduled, map[string]interface{}{
		"appointment_id": appointmentID.String(),
		"old_slot_id":    oldSlotID.String(),
		"new_slot_id":    newSlotID.String(),
	})
	return appointment, nil
}

// CancelAppointment cancels the appointment and frees its slot in one
// transaction. Cancelling twice is rejected as a validation error.
func (s *ReservationService) CancelAppointment(ctx context.Context, appointmentID, actorID uuid.UUID, reason string, privileged bool) error {
	if appointmentID == uuid.Nil || actorID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "missing_ids", "appointment and actor IDs are required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	appointment, err := appointment_models.GetAppointmentForUpdateTx(ctx, tx, appointmentID)
	if err != nil {
		return err
	}
	if appointment.UserID != actorID && !privileged {
		logger.WarnLogger.Warnf("User %s tried to cancel appointment %s owned by %s", actorID, appointmentID, appointment.UserID)
		return apperrors.New(apperrors.Unauthorized, "not_appointment_owner", "appointment does not belong to this user")
	}
	if appointment.Status == shared_models.AppointmentStatusCancelled {
		return apperrors.New(apperrors.Validation, "appointment_already_cancelled", "appointment is already cancelled")
	}

	if err := appointment_models.CancelTx(ctx, tx, appointmentID, reason); err != nil {
		return err
	}

	if err := slot_models.ReleaseSlotTx(ctx, tx, appointment.SlotID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit cancellation", err)
	}

	s.dispatch("appointment_cancelled", appointmentID, actorID, notifications.EventAppointmentCancelled, map[string]interface{}{
		"appointment_id": appointmentID.String(),
		"reason":         reason,
	})
	return nil
}

// GetAppointment returns one appointment for its owner or a privileged
// actor.
func (s *ReservationService) GetAppointment(ctx context.Context, appointmentID, actorID uuid.UUID, privileged bool) (*appointment_models.Appointment, error) {
	appointment, err := appointment_models.GetAppointmentByID(ctx, s.DB, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.UserID != actorID && !privileged {
		return nil, apperrors.New(apperrors.Unauthorized, "not_appointment_owner", "appointment does not belong to this user")
	}
	return appointment, nil
}

// ListAppointments returns the caller's appointments, newest first.
func (s *ReservationService) ListAppointments(ctx context.Context, userID uuid.UUID) ([]appointment_models.Appointment, error) {
	return appointment_models.ListAppointmentsByUser(ctx, s.DB, userID)
}

func (s *ReservationService) dispatch(action string, entityID, actorID uuid.UUID, eventType string, payload map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if s.Audit != nil {
			if err := s.Audit.Log(ctx, action, "appointment", entityID, actorID, payload); err != nil {
				logger.WarnLogger.Warnf("Audit dispatch failed for appointment %s: %v", entityID, err)
			}
		}
		if s.Notifier != nil {
			if err := s.Notifier.Send(ctx, actorID, eventType, payload); err != nil {
				logger.WarnLogger.Warnf("Notification dispatch failed for appointment %s: %v", entityID, err)
			}
		}
	}()
}
