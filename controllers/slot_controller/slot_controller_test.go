package slot_controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medijourney/booking/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.InitLoggers()
	os.Exit(m.Run())
}

func mockAuthMiddleware(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID.String())
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func newTestRouter(role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	controller := NewSlotController(nil)

	r := gin.New()
	r.GET("/doctors/:doctor_id/slots", controller.GetAvailableSlots)
	protected := r.Group("/doctors")
	protected.Use(mockAuthMiddleware(uuid.New(), role))
	{
		protected.POST("/:doctor_id/slots", controller.CreateSlots)
	}
	return r
}

func TestCreateSlotsAuthorization(t *testing.T) {
	t.Run("NonPrivilegedForbidden", func(t *testing.T) {
		r := newTestRouter("patient")

		body, _ := json.Marshal(map[string]interface{}{
			"slots": []map[string]string{{
				"slot_date":  "2026-09-14T00:00:00Z",
				"start_time": "2026-09-14T10:00:00Z",
				"end_time":   "2026-09-14T10:30:00Z",
			}},
		})
		req, _ := http.NewRequest("POST", "/doctors/"+uuid.New().String()+"/slots", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("AdminBadDoctorID", func(t *testing.T) {
		r := newTestRouter("admin")

		req, _ := http.NewRequest("POST", "/doctors/garbage/slots", bytes.NewBuffer([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid doctor ID")
	})

	t.Run("AdminEmptySlots", func(t *testing.T) {
		r := newTestRouter("admin")

		body, _ := json.Marshal(map[string]interface{}{"slots": []map[string]string{}})
		req, _ := http.NewRequest("POST", "/doctors/"+uuid.New().String()+"/slots", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("AdminEndBeforeStart", func(t *testing.T) {
		r := newTestRouter("admin")

		body, _ := json.Marshal(map[string]interface{}{
			"slots": []map[string]string{{
				"slot_date":  "2026-09-14T00:00:00Z",
				"start_time": "2026-09-14T10:30:00Z",
				"end_time":   "2026-09-14T10:00:00Z",
			}},
		})
		req, _ := http.NewRequest("POST", "/doctors/"+uuid.New().String()+"/slots", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "end_time must be after")
	})
}

func TestGetAvailableSlotsValidation(t *testing.T) {
	r := newTestRouter("")

	t.Run("BadDoctorID", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/doctors/nope/slots?date=2026-09-14", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingDate", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/doctors/"+uuid.New().String()+"/slots", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "YYYY-MM-DD")
	})
}
