// Package notifications delivers booking-lifecycle events to users.
// Delivery is fire-and-forget: the primary operation has already
// committed by the time anything here runs, and failures are only
// logged.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/medijourney/booking/logger"
	"github.com/redis/go-redis/v9"
)

// Event types published on the notification channel.
const (
	EventBookingCreated         = "booking.created"
	EventBookingSubmitted       = "booking.submitted"
	EventConsultationReserved   = "booking.consultation_reserved"
	EventBookingCancelled       = "booking.cancelled"
	EventAppointmentBooked      = "appointment.booked"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCancelled   = "appointment.cancelled"
)

// Notifier is the narrow interface the services depend on.
type Notifier interface {
	Send(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error
}

// Event is the wire form pushed to the notification queue.
type Event struct {
	UserID    uuid.UUID              `json:"user_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

const (
	notificationChannel = "booking_events"
	notificationQueue   = "booking_events:queue"
)

// mailEvents lists the event types that also get an email when the
// payload carries the recipient's address.
var mailEvents = map[string]bool{
	EventBookingSubmitted:     true,
	EventBookingCancelled:     true,
	EventAppointmentBooked:    true,
	EventAppointmentCancelled: true,
}

// RedisNotifier publishes events to Redis for the notification worker
// and sends lifecycle emails through an optional mailer.
type RedisNotifier struct {
	Client *redis.Client
	Mailer *Mailer
}

// NewRedisNotifier builds a notifier. mailer may be nil when SMTP is
// not configured.
func NewRedisNotifier(client *redis.Client, mailer *Mailer) *RedisNotifier {
	return &RedisNotifier{Client: client, Mailer: mailer}
}

// Send publishes the event and queues it for the worker. When the
// payload carries an email address and the event type warrants it, a
// lifecycle email goes out too.
func (n *RedisNotifier) Send(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error {
	event := Event{
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.Client.Publish(ctx, notificationChannel, raw).Err(); err != nil {
		logger.WarnLogger.Warnf("Failed to publish %s event for user %s: %v", eventType, userID, err)
		return err
	}
	if err := n.Client.LPush(ctx, notificationQueue, raw).Err(); err != nil {
		logger.WarnLogger.Warnf("Failed to enqueue %s event for user %s: %v", eventType, userID, err)
	}

	if n.Mailer != nil && mailEvents[eventType] {
		if email, ok := payload["email"].(string); ok && email != "" {
			if err := n.Mailer.SendEventMail(email, eventType, payload); err != nil {
				logger.WarnLogger.Warnf("Failed to send %s email to %s: %v", eventType, email, err)
			}
		}
	}

	logger.InfoLogger.Infof("Notification %s dispatched for user %s", eventType, userID)
	return nil
}

// NopNotifier discards everything. Used in tests.
type NopNotifier struct{}

// Send implements Notifier.
func (NopNotifier) Send(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) error {
	return nil
}
