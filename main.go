package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medijourney/booking/audit"
	"github.com/medijourney/booking/clients"
	"github.com/medijourney/booking/config"
	"github.com/medijourney/booking/config/db"
	"github.com/medijourney/booking/config/redis"
	"github.com/medijourney/booking/controllers/reservation_controller"
	"github.com/medijourney/booking/controllers/workflow_controller"
	"github.com/medijourney/booking/jobs"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/middlewares/cors"
	"github.com/medijourney/booking/notifications"
	"github.com/medijourney/booking/routes"
)

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

func main() {
	pool := db.Connect()
	defer db.Close(pool)

	port := config.GetEnv("PORT", "8081")

	var notifier notifications.Notifier = notifications.NopNotifier{}
	redisClient, err := redis.GetRedisClient(context.Background())
	if err != nil {
		logger.WarnLogger.Warnf("Redis unavailable, notifications disabled: %v", err)
	} else {
		notifier = notifications.NewRedisNotifier(redisClient, notifications.NewMailerFromEnv())
		defer redis.CloseRedis()
	}

	var razorpayClient clients.RazorpayClientWrapper
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	if keyID != "" && keySecret != "" {
		razorpayClient = clients.NewRazorpayClient(keyID, keySecret)
	} else {
		logger.WarnLogger.Warn("Razorpay credentials not set, automatic refunds disabled")
	}

	recorder := audit.NewPGRecorder(pool)

	workflowService := workflow_controller.NewWorkflowService(
		pool, recorder, notifier, razorpayClient, config.RefundApprovalThreshold(),
	)
	reservationService := reservation_controller.NewReservationService(pool, recorder, notifier)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.CorsMiddleware())

	routes.RegisterBookingRoutes(r, workflowService)
	routes.RegisterAppointmentRoutes(r, reservationService)
	routes.RegisterSlotRoutes(r, pool)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok from booking service"})
	})

	scheduler := jobs.Start(pool)
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		fmt.Printf("Booking service listening on :%s\n", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorLogger.Errorf("Server failed to listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoLogger.Info("Shutting down booking service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.InfoLogger.Info("Booking service exited gracefully.")
}
