package workflow_controller

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medijourney/booking/audit"
	"github.com/medijourney/booking/logger"
	"github.com/medijourney/booking/models/booking_models"
	"github.com/medijourney/booking/models/payment_models"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/medijourney/booking/notifications"
	"github.com/medijourney/booking/utils/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLoggers()
	os.Exit(m.Run())
}

func newTestService() *WorkflowService {
	return NewWorkflowService(nil, audit.NopRecorder{}, notifications.NopNotifier{}, nil, 5000.0)
}

func TestCreateBookingValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	t.Run("NilUserID", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, uuid.Nil, uuid.New(), uuid.New(), CreateOptions{})
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
		assert.Equal(t, "missing_ids", apperrors.CodeOf(err))
	})

	t.Run("NilTreatmentID", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, uuid.New(), uuid.Nil, uuid.New(), CreateOptions{})
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("NilCountryID", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, uuid.New(), uuid.New(), uuid.Nil, CreateOptions{})
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})
}

func TestUpdateStepValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	t.Run("StepOutOfRange", func(t *testing.T) {
		for _, step := range []int{0, 8, -3, 100} {
			err := svc.UpdateStep(ctx, uuid.New(), uuid.New(), step, booking_models.StepData{"x": "y"})
			require.Error(t, err, "step %d must be rejected", step)
			assert.Equal(t, "invalid_step", apperrors.CodeOf(err))
		}
	})

	t.Run("NilBookingID", func(t *testing.T) {
		err := svc.UpdateStep(ctx, uuid.Nil, uuid.New(), shared_models.StepCity, booking_models.StepData{})
		require.Error(t, err)
		assert.Equal(t, "missing_ids", apperrors.CodeOf(err))
	})
}

func TestStepNavigationValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	t.Run("NextRequiresIDs", func(t *testing.T) {
		_, err := svc.ProceedToNextStep(ctx, uuid.Nil, uuid.New())
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("PreviousRequiresIDs", func(t *testing.T) {
		_, err := svc.GoToPreviousStep(ctx, uuid.New(), uuid.Nil)
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})
}

func TestCompleteAndCancelValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	err := svc.CompleteWorkflow(ctx, uuid.Nil, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))

	err = svc.CancelBooking(ctx, uuid.New(), uuid.Nil, "changed my mind", false)
	require.Error(t, err)
	assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
}

// stubRefundClient captures the amount sent to the gateway. Returning
// an error stops the goroutine before any bookkeeping write.
type stubRefundClient struct {
	amounts chan int
}

func (s *stubRefundClient) RefundPayment(paymentID string, amountInPaise int, notes map[string]interface{}) (map[string]interface{}, error) {
	s.amounts <- amountInPaise
	return nil, errors.New("gateway unavailable")
}

func TestInitiateRefundAmountRounding(t *testing.T) {
	stub := &stubRefundClient{amounts: make(chan int, 1)}
	svc := NewWorkflowService(nil, audit.NopRecorder{}, notifications.NopNotifier{}, stub, 5000.0)

	cases := []struct {
		amount float64
		want   int
	}{
		{4.35, 435},
		{0.29, 29},
		{1234.56, 123456},
		{5000.0, 500000},
	}

	for _, tc := range cases {
		providerPaymentID := "pay_stub"
		svc.initiateRefund(&payment_models.PaymentTransaction{
			ID:                uuid.New(),
			BookingID:         uuid.New(),
			ProviderPaymentID: &providerPaymentID,
			Amount:            tc.amount,
		})

		select {
		case got := <-stub.amounts:
			assert.Equal(t, tc.want, got, "refund for %v INR sent %d paise, want %d", tc.amount, got, tc.want)
		case <-time.After(2 * time.Second):
			t.Fatalf("refund for %v INR never reached the gateway", tc.amount)
		}
	}
}

func TestInitiateRefundSkipsWithoutGateway(t *testing.T) {
	svc := newTestService()

	providerPaymentID := "pay_stub"
	svc.initiateRefund(&payment_models.PaymentTransaction{
		ID:                uuid.New(),
		ProviderPaymentID: &providerPaymentID,
		Amount:            100.0,
	})

	stub := &stubRefundClient{amounts: make(chan int, 1)}
	svc.Razorpay = stub
	svc.initiateRefund(&payment_models.PaymentTransaction{ID: uuid.New(), Amount: 100.0})

	select {
	case got := <-stub.amounts:
		t.Fatalf("refund without a provider payment ID reached the gateway with %d paise", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReserveConsultationSlotValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	t.Run("NilIDs", func(t *testing.T) {
		_, err := svc.ReserveConsultationSlot(ctx, uuid.Nil, uuid.New(), uuid.New(), date, start)
		require.Error(t, err)
		assert.Equal(t, "missing_ids", apperrors.CodeOf(err))

		_, err = svc.ReserveConsultationSlot(ctx, uuid.New(), uuid.New(), uuid.Nil, date, start)
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("ZeroTimes", func(t *testing.T) {
		_, err := svc.ReserveConsultationSlot(ctx, uuid.New(), uuid.New(), uuid.New(), time.Time{}, start)
		require.Error(t, err)
		assert.Equal(t, "missing_times", apperrors.CodeOf(err))
	})
}

func TestApplyStepSelection(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	booking, err := booking_models.NewBooking(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)

	t.Run("CityID", func(t *testing.T) {
		cityID := uuid.New()
		err := svc.applyStepSelection(ctx, booking, shared_models.StepCity, booking_models.StepData{
			"city_id": cityID.String(),
		})
		require.NoError(t, err)
		require.NotNil(t, booking.CityID)
		assert.Equal(t, cityID, *booking.CityID)
	})

	t.Run("MalformedCityID", func(t *testing.T) {
		err := svc.applyStepSelection(ctx, booking, shared_models.StepCity, booking_models.StepData{
			"city_id": "not-a-uuid",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.Validation, apperrors.KindOf(err))
	})

	t.Run("AddOnsTotal", func(t *testing.T) {
		booking.BasePrice = 1000.0
		err := svc.applyStepSelection(ctx, booking, shared_models.StepAddOns, booking_models.StepData{
			"add_ons": []interface{}{
				map[string]interface{}{"name": "airport pickup", "price": 50.0},
				map[string]interface{}{"name": "translator", "price": 120.5},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 170.5, booking.AddOnsPrice)
		assert.Equal(t, 1170.5, booking.TotalPrice)
	})

	t.Run("NegativeAddOnPrice", func(t *testing.T) {
		err := svc.applyStepSelection(ctx, booking, shared_models.StepAddOns, booking_models.StepData{
			"add_ons": []interface{}{
				map[string]interface{}{"name": "bad", "price": -10.0},
			},
		})
		require.Error(t, err)
		assert.Equal(t, "invalid_add_on_price", apperrors.CodeOf(err))
	})

	t.Run("TotalStaysConsistent", func(t *testing.T) {
		booking.BasePrice = 2000.0
		booking.AddOnsPrice = 300.0
		err := svc.applyStepSelection(ctx, booking, shared_models.StepReview, booking_models.StepData{})
		require.NoError(t, err)
		assert.Equal(t, 2300.0, booking.TotalPrice)
	})
}
