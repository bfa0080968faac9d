// Package jobs runs the scheduled maintenance work: retiring slots
// whose date has passed so they stop showing up as available.
package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/robfig/cron/v3"
)

// Start schedules the maintenance jobs and returns the running cron
// scheduler. The caller stops it on shutdown.
func Start(db *pgxpool.Pool) *cron.Cron {
	c := cron.New()

	if _, err := c.AddFunc("@daily", func() {
		expirePastSlots(db)
	}); err != nil {
		logger.ErrorLogger.Errorf("Failed to schedule slot expiry job: %v", err)
	}

	c.Start()
	logger.InfoLogger.Info("Maintenance jobs scheduled")
	return c
}

// expirePastSlots retires unclaimed slots whose date is in the past.
func expirePastSlots(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := `
		UPDATE slots
		SET is_available = FALSE, updated_at = NOW()
		WHERE is_available = TRUE AND slot_date < CURRENT_DATE`

	cmdTag, err := db.Exec(ctx, query)
	if err != nil {
		logger.ErrorLogger.Errorf("Slot expiry job failed: %v", err)
		return
	}

	if cmdTag.RowsAffected() > 0 {
		logger.InfoLogger.Infof("Expired %d past slots", cmdTag.RowsAffected())
	}
}
