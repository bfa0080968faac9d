package slot_controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/slot_models"
	"github.com/medijourney/booking/utils"
	"github.com/medijourney/booking/utils/apperrors"
)

// SlotController exposes slot administration and availability lookup.
type SlotController struct {
	DB *pgxpool.Pool
}

// NewSlotController builds the controller.
func NewSlotController(db *pgxpool.Pool) *SlotController {
	return &SlotController{DB: db}
}

// CreateSlotsRequest is the POST /doctors/:doctor_id/slots payload.
type CreateSlotsRequest struct {
	Slots []slot_models.SlotSpec `json:"slots" binding:"required,min=1,dive"`
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

func bindDoctorID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("doctor_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid doctor ID"})
		return uuid.Nil, false
	}
	return id, true
}

// CreateSlots handles POST /doctors/:doctor_id/slots. Privileged only;
// all slots in the batch insert in one transaction.
func (ctl *SlotController) CreateSlots(c *gin.Context) {
	if _, err := utils.GetUserIDFromContext(c); err != nil {
		respondError(c, err)
		return
	}
	if !utils.IsPrivileged(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "slot administration requires a privileged role"})
		return
	}

	doctorID, ok := bindDoctorID(c)
	if !ok {
		return
	}

	var req CreateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slots array with slot_date, start_time and end_time is required"})
		return
	}

	for _, spec := range req.Slots {
		if !spec.EndTime.After(spec.StartTime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "each slot's end_time must be after its start_time"})
			return
		}
	}

	ctx := c.Request.Context()
	tx, err := ctl.DB.Begin(ctx)
	if err != nil {
		respondError(c, apperrors.Wrap(apperrors.Server, "tx_begin_failed", "failed to start transaction", err))
		return
	}
	defer tx.Rollback(ctx)

	created, err := slot_models.CreateSlotsTx(ctx, tx, doctorID, req.Slots)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		respondError(c, apperrors.Wrap(apperrors.Conflict, "tx_commit_failed", "failed to commit slot creation", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"slots": created})
}

// GetAvailableSlots handles GET /doctors/:doctor_id/slots?date=YYYY-MM-DD.
func (ctl *SlotController) GetAvailableSlots(c *gin.Context) {
	doctorID, ok := bindDoctorID(c)
	if !ok {
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter must be YYYY-MM-DD"})
		return
	}

	slots, err := slot_models.FindAvailableSlots(c.Request.Context(), ctl.DB, doctorID, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
