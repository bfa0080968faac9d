package notifications

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"os"
	"strconv"

	"github.com/medijourney/booking/logger"
	gomail "gopkg.in/gomail.v2"
)

var eventMailSubjects = map[string]string{
	EventBookingSubmitted:     "Your booking was submitted for expert review",
	EventBookingCancelled:     "Your booking was cancelled",
	EventAppointmentBooked:    "Your appointment is confirmed",
	EventAppointmentCancelled: "Your appointment was cancelled",
}

var eventMailTemplate = template.Must(template.New("event").Parse(`
<html>
<body>
	<p>Hello,</p>
	<p>{{.Subject}}.</p>
	{{if .Reference}}<p>Reference: <strong>{{.Reference}}</strong></p>{{end}}
	<p>— The MediJourney team</p>
</body>
</html>`))

// Mailer sends booking-lifecycle emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewMailerFromEnv builds a mailer from SMTP_* env vars. Returns nil
// when SMTP is not configured, which disables email delivery.
func NewMailerFromEnv() *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		logger.ErrorLogger.Errorf("Invalid SMTP port: %v", err)
		return nil
	}

	dialer := gomail.NewDialer(host, port, os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"))
	dialer.TLSConfig = &tls.Config{ServerName: host}

	return &Mailer{
		dialer: dialer,
		from:   os.Getenv("FROM_EMAIL"),
	}
}

// SendEventMail sends the lifecycle email for an event type.
func (m *Mailer) SendEventMail(toEmail, eventType string, payload map[string]interface{}) error {
	subject, ok := eventMailSubjects[eventType]
	if !ok {
		return fmt.Errorf("no mail subject for event type %s", eventType)
	}

	reference, _ := payload["booking_id"].(string)
	if reference == "" {
		reference, _ = payload["appointment_id"].(string)
	}

	var body bytes.Buffer
	if err := eventMailTemplate.Execute(&body, map[string]string{
		"Subject":   subject,
		"Reference": reference,
	}); err != nil {
		return fmt.Errorf("failed to render event mail: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send event mail: %w", err)
	}

	logger.InfoLogger.Infof("Sent %s email to %s", eventType, toEmail)
	return nil
}
