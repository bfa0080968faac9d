package workflow_controller

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

// mockAuthMiddleware injects an authenticated user without a real JWT.
func mockAuthMiddleware(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID.String())
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func newTestRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewWorkflowController(newTestService())

	r := gin.New()
	protected := r.Group("/bookings")
	protected.Use(mockAuthMiddleware(userID, ""))
	{
		protected.POST("/", controller.CreateBooking)
		protected.PUT("/:booking_id/steps/:step", controller.UpdateStep)
		protected.POST("/:booking_id/next", controller.NextStep)
		protected.POST("/:booking_id/cancel", controller.CancelBooking)
	}
	return r
}

func TestCreateBookingHandlerValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	t.Run("MissingFields", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"notes": "only notes"})
		req, _ := http.NewRequest("POST", "/bookings/", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MalformedTreatmentID", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"treatment_id": "not-a-uuid",
			"country_id":   uuid.New().String(),
		})
		req, _ := http.NewRequest("POST", "/bookings/", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid treatment ID")
	})
}

func TestUpdateStepHandlerValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	t.Run("BadBookingID", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"data": map[string]string{"k": "v"}})
		req, _ := http.NewRequest("PUT", "/bookings/garbage/steps/3", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid booking ID")
	})

	t.Run("NonNumericStep", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"data": map[string]string{"k": "v"}})
		req, _ := http.NewRequest("PUT", "/bookings/"+uuid.New().String()+"/steps/nine", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("StepOutOfRange", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"data": map[string]string{"k": "v"}})
		req, _ := http.NewRequest("PUT", "/bookings/"+uuid.New().String()+"/steps/9", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_step")
	})

	t.Run("MissingData", func(t *testing.T) {
		req, _ := http.NewRequest("PUT", "/bookings/"+uuid.New().String()+"/steps/3", bytes.NewBuffer([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNextStepHandlerValidation(t *testing.T) {
	r := newTestRouter(uuid.New())

	req, _ := http.NewRequest("POST", "/bookings/not-a-uuid/next", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	controller := NewWorkflowController(newTestService())

	// No auth middleware: user_id never reaches the context.
	r := gin.New()
	r.POST("/bookings/:booking_id/cancel", controller.CancelBooking)

	req, _ := http.NewRequest("POST", "/bookings/"+uuid.New().String()+"/cancel", bytes.NewBuffer([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
