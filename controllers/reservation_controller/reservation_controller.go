package reservation_controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/utils"
	"github.com/medijourney/booking/utils/apperrors"
)

// ReservationController exposes appointment booking over HTTP.
type ReservationController struct {
	Service *ReservationService
}

// NewReservationController builds the controller.
func NewReservationController(service *ReservationService) *ReservationController {
	return &ReservationController{Service: service}
}

// BookAppointmentRequest is the POST /appointments payload. Times are
// RFC 3339; the date's time-of-day portion is ignored.
type BookAppointmentRequest struct {
	DoctorID  string  `json:"doctor_id" binding:"required"`
	Date      string  `json:"date" binding:"required"`
	StartTime string  `json:"start_time" binding:"required"`
	EndTime   string  `json:"end_time" binding:"required"`
	Notes     *string `json:"notes"`
}

// RescheduleRequest is the PUT /appointments/:appointment_id payload.
type RescheduleRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

// CancelAppointmentRequest is the cancel payload.
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
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

func parseTimes(date, start, end string) (time.Time, time.Time, time.Time, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, apperrors.New(apperrors.Validation, "invalid_date", "date must be YYYY-MM-DD")
	}
	st, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, apperrors.New(apperrors.Validation, "invalid_start_time", "start_time must be RFC 3339")
	}
	et, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return time.Time{}, time.Time{}, time.Time{}, apperrors.New(apperrors.Validation, "invalid_end_time", "end_time must be RFC 3339")
	}
	return d, st, et, nil
}

func bindAppointmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("appointment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment ID"})
		return uuid.Nil, false
	}
	return id, true
}

// BookAppointment handles POST /appointments.
func (ctl *ReservationController) BookAppointment(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doctor_id, date, start_time and end_time are required"})
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid doctor ID"})
		return
	}

	date, start, end, err := parseTimes(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	appointment, err := ctl.Service.BookAppointment(c.Request.Context(), BookRequest{
		UserID:    userID,
		DoctorID:  doctorID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Notes:     req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"appointment": appointment})
}

// RescheduleAppointment handles PUT /appointments/:appointment_id.
func (ctl *ReservationController) RescheduleAppointment(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	appointmentID, ok := bindAppointmentID(c)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date, start_time and end_time are required"})
		return
	}

	date, start, end, err := parseTimes(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	appointment, err := ctl.Service.RescheduleAppointment(c.Request.Context(), appointmentID, userID, date, start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointment": appointment})
}

// CancelAppointment handles POST /appointments/:appointment_id/cancel.
func (ctl *ReservationController) CancelAppointment(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	appointmentID, ok := bindAppointmentID(c)
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cancel payload"})
		return
	}

	if err := ctl.Service.CancelAppointment(c.Request.Context(), appointmentID, userID, req.Reason, utils.IsPrivileged(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "appointment cancelled"})
}

// GetAppointment handles GET /appointments/:appointment_id.
func (ctl *ReservationController) GetAppointment(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	appointmentID, ok := bindAppointmentID(c)
	if !ok {
		return
	}

	appointment, err := ctl.Service.GetAppointment(c.Request.Context(), appointmentID, userID, utils.IsPrivileged(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointment": appointment})
}

// ListAppointments handles GET /appointments.
func (ctl *ReservationController) ListAppointments(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		respondError(c, err)
		return
	}

	appointments, err := ctl.Service.ListAppointments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointments": appointments})
}
