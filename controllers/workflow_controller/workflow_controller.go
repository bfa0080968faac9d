package workflow_controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/booking_models"
	"github.com/medijourney/booking/utils"
	"github.com/medijourney/booking/utils/apperrors"
)

// WorkflowController exposes the booking workflow over HTTP.
type WorkflowController struct {
	Service *WorkflowService
}

// NewWorkflowController builds the controller.
func NewWorkflowController(service *WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

// CreateBookingRequest is the POST /bookings payload.
type CreateBookingRequest struct {
	TreatmentID string `json:"treatment_id" binding:"required"`
	CountryID   string `json:"country_id" binding:"required"`
	Notes       string `json:"notes"`
}

// UpdateStepRequest is the PUT /bookings/:booking_id/steps/:step payload.
type UpdateStepRequest struct {
	Data booking_models.StepData `json:"data" binding:"required"`
}

// CancelBookingRequest is the POST /bookings/:booking_id/cancel payload.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// ReserveSlotRequest is the POST /bookings/:booking_id/consultation-slot
// payload. The date is YYYY-MM-DD, the start time RFC 3339.
type ReserveSlotRequest struct {
	DoctorID  string `json:"doctor_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
}

func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.ErrorLogger.Errorf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperrors.CodeOf(err)})
}

func bindBookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return uuid.Nil, false
	}
	return id, true
}

// CreateBooking handles POST /bookings.
func (ctl *WorkflowController) CreateBooking(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "treatment_id and country_id are required"})
		return
	}

	treatmentID, err := uuid.Parse(req.TreatmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid treatment ID"})
		return
	}
	countryID, err := uuid.Parse(req.CountryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid country ID"})
		return
	}

	booking, err := ctl.Service.CreateBooking(c.Request.Context(), userID, treatmentID, countryID, CreateOptions{Notes: req.Notes})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// UpdateStep handles PUT /bookings/:booking_id/steps/:step.
func (ctl *WorkflowController) UpdateStep(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step number"})
		return
	}

	var req UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step data is required"})
		return
	}

	if err := ctl.Service.UpdateStep(c.Request.Context(), bookingID, userID, step, req.Data); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "step updated", "step": step})
}

// NextStep handles POST /bookings/:booking_id/next.
func (ctl *WorkflowController) NextStep(c *gin.Context) {
	ctl.move(c, ctl.Service.ProceedToNextStep)
}

// PreviousStep handles POST /bookings/:booking_id/previous.
func (ctl *WorkflowController) PreviousStep(c *gin.Context) {
	ctl.move(c, ctl.Service.GoToPreviousStep)
}

func (ctl *WorkflowController) move(c *gin.Context, op func(ctx context.Context, bookingID, userID uuid.UUID) (int, error)) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	currentStep, err := op(c.Request.Context(), bookingID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"current_step": currentStep})
}

// CompleteWorkflow handles POST /bookings/:booking_id/complete.
func (ctl *WorkflowController) CompleteWorkflow(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	if err := ctl.Service.CompleteWorkflow(c.Request.Context(), bookingID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "workflow submitted for expert review"})
}

// ReserveConsultationSlot handles POST /bookings/:booking_id/consultation-slot.
func (ctl *WorkflowController) ReserveConsultationSlot(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	var req ReserveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doctor_id, date and start_time are required"})
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid doctor ID"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be RFC 3339"})
		return
	}

	slotID, err := ctl.Service.ReserveConsultationSlot(c.Request.Context(), bookingID, userID, doctorID, date, start)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"slot_id": slotID})
}

// CancelBooking handles POST /bookings/:booking_id/cancel.
func (ctl *WorkflowController) CancelBooking(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cancel payload"})
		return
	}

	if err := ctl.Service.CancelBooking(c.Request.Context(), bookingID, userID, req.Reason, utils.IsPrivileged(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled"})
}

// GetBooking handles GET /bookings/:booking_id.
func (ctl *WorkflowController) GetBooking(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	booking, err := ctl.Service.GetBooking(c.Request.Context(), bookingID, userID, utils.IsPrivileged(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// GetHistory handles GET /bookings/:booking_id/history.
func (ctl *WorkflowController) GetHistory(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	bookingID, ok := bindBookingID(c)
	if !ok {
		return
	}

	history, err := ctl.Service.GetHistory(c.Request.Context(), bookingID, userID, utils.IsPrivileged(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}
