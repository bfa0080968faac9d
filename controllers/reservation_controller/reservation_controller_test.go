package reservation_controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func mockAuthMiddleware(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	}
}

func newTestRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewReservationController(newTestService())

	r := gin.New()
	protected := r.Group("/appointments")
	protected.Use(mockAuthMiddleware(userID))
	{
		protected.POST("/", controller.BookAppointment)
		protected.PUT("/:appointment_id", controller.RescheduleAppointment)
		protected.POST("/:appointment_id/cancel", controller.CancelAppointment)
	}
	return r
}

func TestBookAppointmentHandlerValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	post := func(payload map[string]interface{}) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req, _ := http.NewRequest("POST", "/appointments/", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("MissingFields", func(t *testing.T) {
		w := post(map[string]interface{}{"doctor_id": uuid.New().String()})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedDoctorID", func(t *testing.T) {
		w := post(map[string]interface{}{
			"doctor_id":  "nope",
			"date":       "2026-09-14",
			"start_time": "2026-09-14T10:00:00Z",
			"end_time":   "2026-09-14T10:30:00Z",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid doctor ID")
	})

	t.Run("BadDateFormat", func(t *testing.T) {
		w := post(map[string]interface{}{
			"doctor_id":  uuid.New().String(),
			"date":       "14/09/2026",
			"start_time": "2026-09-14T10:00:00Z",
			"end_time":   "2026-09-14T10:30:00Z",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_date")
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		w := post(map[string]interface{}{
			"doctor_id":  uuid.New().String(),
			"date":       "2026-09-14",
			"start_time": "2026-09-14T10:30:00Z",
			"end_time":   "2026-09-14T10:00:00Z",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_time_range")
	})
}

func TestRescheduleHandlerValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	t.Run("BadAppointmentID", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"date":       "2026-09-14",
			"start_time": "2026-09-14T10:00:00Z",
			"end_time":   "2026-09-14T10:30:00Z",
		})
		req, _ := http.NewRequest("PUT", "/appointments/garbage", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid appointment ID")
	})
}

func TestCancelHandlerValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	req, _ := http.NewRequest("POST", "/appointments/not-a-uuid/cancel", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
