package routes

import (
	"github.com/gin-gonic/gin"
	middleware "github.com/medijourney/booking/middlewares"
	"github.com/medijourney/booking/middlewares/auth"

	"github.com/medijourney/booking/controllers/workflow_controller"
)

// RegisterBookingRoutes wires the booking workflow endpoints. All of
// them require authentication; creation is additionally rate limited.
func RegisterBookingRoutes(router *gin.Engine, service *workflow_controller.WorkflowService) {
	workflowController := workflow_controller.NewWorkflowController(service)

	protected := router.Group("/bookings")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/", middleware.NewRateLimiter("10-1m", "createBooking"), workflowController.CreateBooking)
		protected.GET("/:booking_id", workflowController.GetBooking)
		protected.GET("/:booking_id/history", workflowController.GetHistory)
		protected.PUT("/:booking_id/steps/:step", workflowController.UpdateStep)
		protected.POST("/:booking_id/next", workflowController.NextStep)
		protected.POST("/:booking_id/previous", workflowController.PreviousStep)
		protected.POST("/:booking_id/complete", workflowController.CompleteWorkflow)
		protected.POST("/:booking_id/consultation-slot", workflowController.ReserveConsultationSlot)
		protected.POST("/:booking_id/cancel", workflowController.CancelBooking)
	}
}
