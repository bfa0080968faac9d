package workflow_controller

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/audit"
	"github.com/medijourney/booking/clients"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/booking_models"
	"github.com/medijourney/booking/models/catalog_models"
	"github.com/medijourney/booking/models/payment_models"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/medijourney/booking/models/slot_models"
	"github.com/medijourney/booking/notifications"
	"github.com/medijourney/booking/utils/apperrors"
)

// WorkflowService drives the ordered booking workflow: creation,
// per-step data capture, forward/backward navigation, completion and
// cancellation. Every mutation runs inside one transaction; audit and
// notification dispatch happen after commit and never roll it back.
type WorkflowService struct {
	DB                      *pgxpool.Pool
	Audit                   audit.Recorder
	Notifier                notifications.Notifier
	Razorpay                clients.RazorpayClientWrapper
	RefundApprovalThreshold float64
}

// NewWorkflowService wires the service with its collaborators.
func NewWorkflowService(db *pgxpool.Pool, recorder audit.Recorder, notifier notifications.Notifier, razorpay clients.RazorpayClientWrapper, refundApprovalThreshold float64) *WorkflowService {
	return &WorkflowService{
		DB:                      db,
		Audit:                   recorder,
		Notifier:                notifier,
		Razorpay:                razorpay,
		RefundApprovalThreshold: refundApprovalThreshold,
	}
}

// CreateOptions carries the optional inputs for CreateBooking.
type CreateOptions struct {
	Notes string
}

// CreateBooking starts a new workflow at step 1, status pending. A
// user may only have one active booking per treatment.
func (s *WorkflowService) CreateBooking(ctx context.Context, userID, treatmentID, countryID uuid.UUID, opts CreateOptions) (*booking_models.Booking, error) {
	if userID == uuid.Nil || treatmentID == uuid.Nil || countryID == uuid.Nil {
		return nil, apperrors.New(apperrors.Validation, "missing_ids", "user, treatment and country IDs are required")
	}

	for _, check := range []struct {
		name   string
		exists func(context.Context, *pgxpool.Pool, uuid.UUID) (bool, error)
		id     uuid.UUID
	}{
		{"user", catalog_models.UserExists, userID},
		{"treatment", catalog_models.TreatmentExists, treatmentID},
		{"country", catalog_models.CountryExists, countryID},
	} {
		found, err := check.exists(ctx, s.DB, check.id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, apperrors.Newf(apperrors.NotFound, check.name+"_not_found", "%s %s does not exist", check.name, check.id)
		}
	}

	active, err := booking_models.HasActiveBooking(ctx, s.DB, userID, treatmentID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.New(apperrors.Conflict, "booking_already_active", "an active booking already exists for this treatment")
	}

	booking, err := booking_models.NewBooking(userID, treatmentID, countryID)
	if err != nil {
		return nil, err
	}
	if opts.Notes != "" {
		booking.WorkflowData[booking_models.StepKey(shared_models.FirstStep)] = booking_models.StepData{"notes": opts.Notes}
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := booking_models.CreateBookingTx(ctx, tx, booking); err != nil {
		return nil, err
	}

	entry, err := booking_models.NewHistoryEntry(booking.ID, booking_models.ActionCreated, booking.Status, userID, map[string]interface{}{
		"treatment_id": treatmentID.String(),
		"country_id":   countryID.String(),
	})
	if err != nil {
		return nil, err
	}
	if err := booking_models.AppendHistoryTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit booking creation", err)
	}

	s.dispatch(booking_models.ActionCreated, "booking", booking.ID, userID, notifications.EventBookingCreated, map[string]interface{}{
		"booking_id": booking.ID.String(),
	})
	return booking, nil
}

// UpdateStep merges the payload into the step's captured data and
// stamps a completion time. It never advances the current step.
func (s *WorkflowService) UpdateStep(ctx context.Context, bookingID, userID uuid.UUID, stepNumber int, payload booking_models.StepData) error {
	if !shared_models.IsValidStep(stepNumber) {
		return apperrors.Newf(apperrors.Validation, "invalid_step", "step %d is not part of the workflow", stepNumber)
	}
	if bookingID == uuid.Nil || userID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "missing_ids", "booking and user IDs are required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		logger.WarnLogger.Warnf("User %s tried to update booking %s owned by %s", userID, bookingID, booking.UserID)
		return apperrors.New(apperrors.Unauthorized, "not_booking_owner", "booking does not belong to this user")
	}
	if shared_models.StepsLocked(booking.Status) {
		return apperrors.Newf(apperrors.Validation, "workflow_locked", "booking in status %s no longer accepts step changes", booking.Status)
	}

	key := booking_models.StepKey(stepNumber)
	data := booking.WorkflowData[key]
	if data == nil {
		data = booking_models.StepData{}
	}
	for k, v := range payload {
		data[k] = v
	}
	data["completed_at"] = time.Now().UTC().Format(time.RFC3339)
	booking.WorkflowData[key] = data

	if err := s.applyStepSelection(ctx, booking, stepNumber, payload); err != nil {
		return err
	}

	if err := booking_models.UpdateAggregateTx(ctx, tx, booking); err != nil {
		return err
	}

	entry, err := booking_models.NewHistoryEntry(bookingID, booking_models.ActionStepUpdated, booking.Status, booking.UserID, map[string]interface{}{
		"step":      stepNumber,
		"step_name": shared_models.StepName(stepNumber),
	})
	if err != nil {
		return err
	}
	if err := booking_models.AppendHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit step update", err)
	}

	logger.InfoLogger.Infof("Booking %s step %d (%s) updated", bookingID, stepNumber, shared_models.StepName(stepNumber))
	return nil
}

// applyStepSelection pulls the well-known selection keys out of a step
// payload onto the aggregate's columns, keeping the pricing invariant
// total = base + add-ons.
func (s *WorkflowService) applyStepSelection(ctx context.Context, b *booking_models.Booking, stepNumber int, payload booking_models.StepData) error {
	parseID := func(key string) (*uuid.UUID, error) {
		raw, ok := payload[key].(string)
		if !ok || raw == "" {
			return nil, nil
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.Newf(apperrors.Validation, "invalid_"+key, "%s is not a valid UUID", key)
		}
		return &id, nil
	}

	switch stepNumber {
	case shared_models.StepCity:
		id, err := parseID("city_id")
		if err != nil {
			return err
		}
		if id != nil {
			b.CityID = id
		}
	case shared_models.StepHospital:
		id, err := parseID("hospital_id")
		if err != nil {
			return err
		}
		if id != nil {
			b.HospitalID = id
		}
	case shared_models.StepPackage:
		id, err := parseID("package_id")
		if err != nil {
			return err
		}
		if id != nil {
			price, err := catalog_models.GetPackagePrice(ctx, s.DB, *id)
			if err != nil {
				return err
			}
			b.PackageID = id
			b.BasePrice = price
		}
	case shared_models.StepAddOns:
		if rawAddOns, ok := payload["add_ons"].([]interface{}); ok {
			var total float64
			for _, item := range rawAddOns {
				addOn, ok := item.(map[string]interface{})
				if !ok {
					return apperrors.New(apperrors.Validation, "invalid_add_ons", "add_ons entries must be objects")
				}
				price, ok := addOn["price"].(float64)
				if !ok || price < 0 {
					return apperrors.New(apperrors.Validation, "invalid_add_on_price", "each add-on needs a non-negative price")
				}
				total += price
			}
			b.AddOnsPrice = total
		}
	}

	b.TotalPrice = b.BasePrice + b.AddOnsPrice
	return nil
}

// ProceedToNextStep advances the workflow by exactly one step. The
// current step's data must have been captured first.
func (s *WorkflowService) ProceedToNextStep(ctx context.Context, bookingID, userID uuid.UUID) (int, error) {
	return s.moveStep(ctx, bookingID, userID, +1)
}

// GoToPreviousStep steps the workflow back by exactly one step.
func (s *WorkflowService) GoToPreviousStep(ctx context.Context, bookingID, userID uuid.UUID) (int, error) {
	return s.moveStep(ctx, bookingID, userID, -1)
}

func (s *WorkflowService) moveStep(ctx context.Context, bookingID, userID uuid.UUID, delta int) (int, error) {
	if bookingID == uuid.Nil || userID == uuid.Nil {
		return 0, apperrors.New(apperrors.Validation, "missing_ids", "booking and user IDs are required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return 0, err
	}
	if booking.UserID != userID {
		logger.WarnLogger.Warnf("User %s tried to navigate booking %s owned by %s", userID, bookingID, booking.UserID)
		return 0, apperrors.New(apperrors.Unauthorized, "not_booking_owner", "booking does not belong to this user")
	}
	if shared_models.StepsLocked(booking.Status) {
		return 0, apperrors.Newf(apperrors.Validation, "workflow_locked", "booking in status %s no longer accepts step changes", booking.Status)
	}

	action := booking_models.ActionStepAdvanced
	if delta > 0 {
		if booking.CurrentStep >= shared_models.LastStep {
			return 0, apperrors.New(apperrors.Validation, "already_at_last_step", "already at last step")
		}
		if _, captured := booking.WorkflowData[booking_models.StepKey(booking.CurrentStep)]; !captured {
			return 0, apperrors.Newf(apperrors.Validation, "step_incomplete", "step %d data has not been captured", booking.CurrentStep)
		}
	} else {
		if booking.CurrentStep <= shared_models.FirstStep {
			return 0, apperrors.New(apperrors.Validation, "already_at_first_step", "already at first step")
		}
		action = booking_models.ActionStepReverted
	}

	fromStep := booking.CurrentStep
	booking.CurrentStep += delta

	if err := booking_models.UpdateAggregateTx(ctx, tx, booking); err != nil {
		return 0, err
	}

	entry, err := booking_models.NewHistoryEntry(bookingID, action, booking.Status, userID, map[string]interface{}{
		"from_step": fromStep,
		"to_step":   booking.CurrentStep,
	})
	if err != nil {
		return 0, err
	}
	if err := booking_models.AppendHistoryTx(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit step transition", err)
	}

	logger.InfoLogger.Infof("Booking %s moved from step %d to %d", bookingID, fromStep, booking.CurrentStep)
	return booking.CurrentStep, nil
}

// CompleteWorkflow submits the finished workflow for expert review.
// Idempotent: completing an already-completed workflow is a no-op.
func (s *WorkflowService) CompleteWorkflow(ctx context.Context, bookingID, userID uuid.UUID) error {
	if bookingID == uuid.Nil || userID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "missing_ids", "booking and user IDs are required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return apperrors.New(apperrors.Unauthorized, "not_booking_owner", "booking does not belong to this user")
	}
	if booking.WorkflowCompletedAt != nil {
		logger.InfoLogger.Infof("Booking %s workflow already completed at %s, skipping", bookingID, booking.WorkflowCompletedAt)
		return nil
	}
	if booking.CurrentStep != shared_models.LastStep {
		return apperrors.Newf(apperrors.Validation, "workflow_incomplete", "workflow is at step %d of %d", booking.CurrentStep, shared_models.LastStep)
	}
	if !shared_models.CanTransition(booking.Status, shared_models.StatusExpertReview) {
		return apperrors.Newf(apperrors.Validation, "invalid_transition", "cannot move booking from %s to %s", booking.Status, shared_models.StatusExpertReview)
	}

	now := time.Now()
	booking.Status = shared_models.StatusExpertReview
	booking.WorkflowCompletedAt = &now

	if err := booking_models.UpdateAggregateTx(ctx, tx, booking); err != nil {
		return err
	}

	entry, err := booking_models.NewHistoryEntry(bookingID, booking_models.ActionWorkflowCompleted, booking.Status, userID, map[string]interface{}{
		"total_price": booking.TotalPrice,
	})
	if err != nil {
		return err
	}
	if err := booking_models.AppendHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit workflow completion", err)
	}

	s.dispatch(booking_models.ActionWorkflowCompleted, "booking", bookingID, userID, notifications.EventBookingSubmitted, map[string]interface{}{
		"booking_id":  bookingID.String(),
		"total_price": booking.TotalPrice,
	})
	return nil
}

// ReserveConsultationSlot claims a clinician slot for the booking's
// pre-treatment consultation, with the booking itself as the holder.
// Cancelling the booking later frees every slot it holds.
func (s *WorkflowService) ReserveConsultationSlot(ctx context.Context, bookingID, userID, doctorID uuid.UUID, date, startTime time.Time) (uuid.UUID, error) {
	if bookingID == uuid.Nil || userID == uuid.Nil || doctorID == uuid.Nil {
		return uuid.Nil, apperrors.New(apperrors.Validation, "missing_ids", "booking, user and doctor IDs are required")
	}
	if date.IsZero() || startTime.IsZero() {
		return uuid.Nil, apperrors.New(apperrors.Validation, "missing_times", "date and start time are required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return uuid.Nil, apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return uuid.Nil, err
	}
	if booking.UserID != userID {
		logger.WarnLogger.Warnf("User %s tried to reserve a slot for booking %s owned by %s", userID, bookingID, booking.UserID)
		return uuid.Nil, apperrors.New(apperrors.Unauthorized, "not_booking_owner", "booking does not belong to this user")
	}
	if booking.Status == shared_models.StatusCancelled || shared_models.StepsLocked(booking.Status) {
		return uuid.Nil, apperrors.Newf(apperrors.Validation, "booking_not_reservable", "booking in status %s cannot reserve a consultation slot", booking.Status)
	}

	slotID, err := slot_models.ClaimSlotTx(ctx, tx, doctorID, date, startTime, bookingID)
	if err != nil {
		return uuid.Nil, err
	}

	entry, err := booking_models.NewHistoryEntry(bookingID, booking_models.ActionSlotReserved, booking.Status, userID, map[string]interface{}{
		"slot_id":   slotID.String(),
		"doctor_id": doctorID.String(),
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := booking_models.AppendHistoryTx(ctx, tx, entry); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit slot reservation", err)
	}

	s.dispatch(booking_models.ActionSlotReserved, "booking", bookingID, userID, notifications.EventConsultationReserved, map[string]interface{}{
		"booking_id": bookingID.String(),
		"slot_id":    slotID.String(),
	})
	return slotID, nil
}

// CancelBooking cancels the booking, frees any slot it holds and marks
// a captured payment for refund. Privileged actors may cancel bookings
// they do not own.
func (s *WorkflowService) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, reason string, privileged bool) error {
	if bookingID == uuid.Nil || actorID == uuid.Nil {
		return apperrors.New(apperrors.Validation, "missing_ids", "booking and actor IDs are required")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err)
	}
	defer tx.Rollback(ctx)

	booking, err := booking_models.GetBookingForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != actorID && !privileged {
		logger.WarnLogger.Warnf("User %s tried to cancel booking %s owned by %s", actorID, bookingID, booking.UserID)
		return apperrors.New(apperrors.Unauthorized, "not_booking_owner", "booking does not belong to this user")
	}
	if booking.Status == shared_models.StatusCancelled {
		return apperrors.New(apperrors.Validation, "booking_already_cancelled", "booking is already cancelled")
	}
	if !shared_models.CanTransition(booking.Status, shared_models.StatusCancelled) {
		return apperrors.Newf(apperrors.Validation, "invalid_transition", "cannot cancel a booking in status %s", booking.Status)
	}

	now := time.Now()
	booking.Status = shared_models.StatusCancelled
	booking.CancelledAt = &now
	if reason != "" {
		booking.CancellationReason = &reason
	}

	if err := booking_models.UpdateAggregateTx(ctx, tx, booking); err != nil {
		return err
	}

	released, err := slot_models.ReleaseSlotsHeldByTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}

	var payment *payment_models.PaymentTransaction
	payment, err = payment_models.GetCapturedPaymentTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	requiresApproval := false
	if payment != nil {
		requiresApproval = payment_models.RequiresManualApproval(payment.Amount, s.RefundApprovalThreshold)
		if err := payment_models.MarkForRefundTx(ctx, tx, payment.ID, requiresApproval); err != nil {
			return err
		}
	}

	entry, err := booking_models.NewHistoryEntry(bookingID, booking_models.ActionCancelled, booking.Status, actorID, map[string]interface{}{
		"reason":         reason,
		"slots_released": released,
		"refund_pending": payment != nil,
	})
	if err != nil {
		return err
	}
	if err := booking_models.AppendHistoryTx(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit cancellation", err)
	}

	if payment != nil && !requiresApproval {
		s.initiateRefund(payment)
	}

	s.dispatch(booking_models.ActionCancelled, "booking", bookingID, actorID, notifications.EventBookingCancelled, map[string]interface{}{
		"booking_id": bookingID.String(),
		"reason":     reason,
	})
	return nil
}

// initiateRefund calls the gateway after commit. Failures leave the
// payment in refund_pending for the reconciliation job to retry.
func (s *WorkflowService) initiateRefund(payment *payment_models.PaymentTransaction) {
	if s.Razorpay == nil || payment.ProviderPaymentID == nil {
		return
	}

	go func() {
		// Amounts are rupees in float64; rounding keeps 4.35 at 435
		// paise instead of truncating to 434.
		amountInPaise := int(math.Round(payment.Amount * 100))
		result, err := s.Razorpay.RefundPayment(*payment.ProviderPaymentID, amountInPaise, map[string]interface{}{
			"booking_id": payment.BookingID.String(),
		})
		if err != nil {
			logger.ErrorLogger.Errorf("Refund initiation failed for payment %s: %v", payment.ID, err)
			return
		}

		refundID, _ := result["id"].(string)
		if refundID == "" {
			logger.ErrorLogger.Errorf("Refund response for payment %s carried no refund ID", payment.ID)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := payment_models.SetRefundID(ctx, s.DB, payment.ID, refundID); err != nil {
			logger.ErrorLogger.Errorf("Failed to persist refund %s for payment %s: %v", refundID, payment.ID, err)
		}
	}()
}

// GetBooking returns the aggregate for the owner or a privileged actor.
func (s *WorkflowService) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID, privileged bool) (*booking_models.Booking, error) {
	booking, err := booking_models.GetBookingByID(ctx, s.DB, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actorID && !privileged {
		return nil, apperrors.New(apperrors.Unauthorized, "not_booking_owner", "booking does not belong to this user")
	}
	return booking, nil
}

// GetHistory returns the booking's append-only history.
func (s *WorkflowService) GetHistory(ctx context.Context, bookingID, actorID uuid.UUID, privileged bool) ([]booking_models.HistoryEntry, error) {
	if _, err := s.GetBooking(ctx, bookingID, actorID, privileged); err != nil {
		return nil, err
	}
	return booking_models.ListHistory(ctx, s.DB, bookingID)
}

// dispatch sends audit and notification side effects after commit.
// Both are best-effort; failures are logged and swallowed.
func (s *WorkflowService) dispatch(action string, entityType string, entityID, actorID uuid.UUID, eventType string, payload map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if s.Audit != nil {
			if err := s.Audit.Log(ctx, action, entityType, entityID, actorID, payload); err != nil {
				logger.WarnLogger.Warnf("Audit dispatch failed for %s %s: %v", entityType, entityID, err)
			}
		}
		if s.Notifier != nil {
			if err := s.Notifier.Send(ctx, actorID, eventType, payload); err != nil {
				logger.WarnLogger.Warnf("Notification dispatch failed for %s %s: %v", entityType, entityID, err)
			}
		}
	}()
}
