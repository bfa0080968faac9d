package booking_models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/medijourney/booking/models/shared_models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBooking(t *testing.T) {
	userID := uuid.New()
	treatmentID := uuid.New()
	countryID := uuid.New()

	b, err := NewBooking(userID, treatmentID, countryID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, userID, b.UserID)
	assert.Equal(t, treatmentID, b.TreatmentID)
	assert.Equal(t, countryID, b.CountryID)
	assert.Equal(t, shared_models.FirstStep, b.CurrentStep)
	assert.Equal(t, shared_models.StatusPending, b.Status)
	assert.NotNil(t, b.WorkflowData)
	assert.Empty(t, b.WorkflowData)
	assert.Nil(t, b.CityID)
	assert.Nil(t, b.WorkflowCompletedAt)
	assert.Zero(t, b.TotalPrice)
}

func TestStepKey(t *testing.T) {
	assert.Equal(t, "1", StepKey(1))
	assert.Equal(t, "7", StepKey(7))

	data := WorkflowData{}
	data[StepKey(3)] = StepData{"city_id": uuid.New().String()}
	_, ok := data["3"]
	assert.True(t, ok)
}

func TestNewHistoryEntry(t *testing.T) {
	bookingID := uuid.New()
	actorID := uuid.New()

	entry, err := NewHistoryEntry(bookingID, ActionStepAdvanced, shared_models.StatusPending, actorID, map[string]interface{}{
		"from_step": 2,
		"to_step":   3,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, bookingID, entry.BookingID)
	assert.Equal(t, ActionStepAdvanced, entry.Action)
	assert.Equal(t, shared_models.StatusPending, entry.Status)
	assert.Equal(t, actorID, entry.ActorID)
	assert.Equal(t, 2, entry.Changes["from_step"])
	assert.False(t, entry.CreatedAt.IsZero())
}
