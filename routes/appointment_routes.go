package routes

import (
	"github.com/gin-gonic/gin"
	middleware "github.com/medijourney/booking/middlewares"
	"github.com/medijourney/booking/middlewares/auth"

	"github.com/medijourney/booking/controllers/reservation_controller"
)

// RegisterAppointmentRoutes wires the appointment reservation
// endpoints.
func RegisterAppointmentRoutes(router *gin.Engine, service *reservation_controller.ReservationService) {
	reservationController := reservation_controller.NewReservationController(service)

	protected := router.Group("/appointments")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/", middleware.NewRateLimiter("20-1m", "bookAppointment"), reservationController.BookAppointment)
		protected.GET("/", reservationController.ListAppointments)
		protected.GET("/:appointment_id", reservationController.GetAppointment)
		protected.PUT("/:appointment_id", reservationController.RescheduleAppointment)
		protected.POST("/:appointment_id/cancel", reservationController.CancelAppointment)
	}
}
