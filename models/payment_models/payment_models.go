// Package payment_models keeps the payment bookkeeping the workflow
// needs: which booking paid what, and which payments await a refund.
// Gateway integration itself lives behind the clients package.
package payment_models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/utils/apperrors"
)

// Payment statuses.
const (
	PaymentStatusCreated       = "created"
	PaymentStatusCaptured      = "captured"
	PaymentStatusRefundPending = "refund_pending"
	PaymentStatusRefunded      = "refunded"
	PaymentStatusFailed        = "failed"
)

// PaymentTransaction mirrors one gateway payment for a booking.
type PaymentTransaction struct {
	ID                uuid.UUID  `json:"id"`
	BookingID         uuid.UUID  `json:"booking_id"`
	ProviderOrderID   string     `json:"provider_order_id"`
	ProviderPaymentID *string    `json:"provider_payment_id,omitempty"`
	Amount            float64    `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	RequiresApproval  bool       `json:"requires_approval"`
	RefundID          *string    `json:"refund_id,omitempty"`
	CapturedAt        *time.Time `json:"captured_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// RequiresManualApproval reports whether a refund of the given amount
// must wait for manual approval under the configured threshold policy.
func RequiresManualApproval(amount, threshold float64) bool {
	return amount > threshold
}

// GetCapturedPaymentTx returns the captured payment for a booking, or
// nil when the booking never paid.
func GetCapturedPaymentTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) (*PaymentTransaction, error) {
	p := &PaymentTransaction{}
	query := `
		SELECT id, booking_id, provider_order_id, provider_payment_id, amount, currency,
			status, requires_approval, refund_id, captured_at, created_at, updated_at
		FROM payment_transactions
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	err := tx.QueryRow(ctx, query, bookingID, PaymentStatusCaptured).Scan(
		&p.ID, &p.BookingID, &p.ProviderOrderID, &p.ProviderPaymentID, &p.Amount, &p.Currency,
		&p.Status, &p.RequiresApproval, &p.RefundID, &p.CapturedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		logger.ErrorLogger.Errorf("Failed to fetch captured payment for booking %s: %v", bookingID, err)
		return nil, apperrors.Wrap(apperrors.Server, "payment_query_failed", "failed to fetch payment", err)
	}
	return p, nil
}

// MarkForRefundTx moves a captured payment into refund bookkeeping.
// requiresApproval flags refunds above the policy threshold for manual
// review instead of automatic initiation.
func MarkForRefundTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, requiresApproval bool) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, requires_approval = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	cmdTag, err := tx.Exec(ctx, query, paymentID, PaymentStatusRefundPending, requiresApproval, PaymentStatusCaptured)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to mark payment %s for refund: %v", paymentID, err)
		return apperrors.Wrap(apperrors.Server, "payment_update_failed", "failed to mark payment for refund", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.New(apperrors.Conflict, "payment_not_refundable", "payment is not in a refundable state")
	}

	logger.InfoLogger.Infof("Payment %s marked for refund (requires approval: %t)", paymentID, requiresApproval)
	return nil
}

// SetRefundID records the gateway refund reference after a refund was
// initiated. Best-effort bookkeeping outside the cancel transaction.
func SetRefundID(ctx context.Context, db *pgxpool.Pool, paymentID uuid.UUID, refundID string) error {
	query := `
		UPDATE payment_transactions
		SET refund_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1`

	_, err := db.Exec(ctx, query, paymentID, refundID, PaymentStatusRefunded)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to record refund ID for payment %s: %v", paymentID, err)
		return apperrors.Wrap(apperrors.Server, "payment_update_failed", "failed to record refund", err)
	}
	return nil
}
