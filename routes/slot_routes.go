package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/middlewares/auth"

	"github.com/medijourney/booking/controllers/slot_controller"
)

// RegisterSlotRoutes wires slot administration and availability
// lookup. Availability is public; administration is authenticated and
// role-checked in the controller.
func RegisterSlotRoutes(router *gin.Engine, db *pgxpool.Pool) {
	slotController := slot_controller.NewSlotController(db)

	router.GET("/doctors/:doctor_id/slots", slotController.GetAvailableSlots)

	protected := router.Group("/doctors")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/:doctor_id/slots", slotController.CreateSlots)
	}
}
