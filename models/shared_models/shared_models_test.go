package shared_models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	t.Run("AllowedTransitions", func(t *testing.T) {
		assert.True(t, CanTransition(StatusPending, StatusExpertReview))
		assert.True(t, CanTransition(StatusPending, StatusCancelled))
		assert.True(t, CanTransition(StatusExpertReview, StatusConfirmed))
		assert.True(t, CanTransition(StatusExpertReview, StatusCancelled))
		assert.True(t, CanTransition(StatusConfirmed, StatusInProgress))
		assert.True(t, CanTransition(StatusInProgress, StatusCompleted))
		assert.True(t, CanTransition(StatusCompleted, StatusRefunded))
		assert.True(t, CanTransition(StatusCancelled, StatusRefunded))
	})

	t.Run("RejectedTransitions", func(t *testing.T) {
		assert.False(t, CanTransition(StatusPending, StatusConfirmed))
		assert.False(t, CanTransition(StatusCompleted, StatusConfirmed))
		assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
		assert.False(t, CanTransition(StatusRefunded, StatusPending))
		assert.False(t, CanTransition(StatusCancelled, StatusPending))
		assert.False(t, CanTransition(StatusExpertReview, StatusInProgress))
	})

	t.Run("RefundedIsTerminal", func(t *testing.T) {
		for _, to := range []BookingStatus{
			StatusPending, StatusExpertReview, StatusConfirmed,
			StatusInProgress, StatusCompleted, StatusCancelled, StatusRefunded,
		} {
			assert.False(t, CanTransition(StatusRefunded, to), "refunded must not move to %s", to)
		}
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		assert.False(t, BookingStatus("bogus").IsValid())
		assert.False(t, CanTransition(BookingStatus("bogus"), StatusPending))
		assert.True(t, StatusPending.IsValid())
	})
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, IsActive(StatusPending))
	assert.True(t, IsActive(StatusExpertReview))
	assert.False(t, IsActive(StatusConfirmed))
	assert.False(t, IsActive(StatusCancelled))

	assert.True(t, StepsLocked(StatusCompleted))
	assert.True(t, StepsLocked(StatusRefunded))
	assert.False(t, StepsLocked(StatusPending))
	assert.False(t, StepsLocked(StatusInProgress))
}

func TestWorkflowSteps(t *testing.T) {
	t.Run("StepBounds", func(t *testing.T) {
		assert.Equal(t, 1, FirstStep)
		assert.Equal(t, 7, LastStep)
		for n := FirstStep; n <= LastStep; n++ {
			assert.True(t, IsValidStep(n), "step %d should be valid", n)
		}
		assert.False(t, IsValidStep(0))
		assert.False(t, IsValidStep(8))
		assert.False(t, IsValidStep(-1))
	})

	t.Run("StepNames", func(t *testing.T) {
		assert.Equal(t, "treatment", StepName(StepTreatment))
		assert.Equal(t, "review", StepName(StepReview))
		assert.Equal(t, "add_ons", StepName(StepAddOns))
		assert.Equal(t, "", StepName(99))
	})
}

func TestGenerateUUIDv7(t *testing.T) {
	id, err := GenerateUUIDv7()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, uuid.Version(7), id.Version())
}
