package slot_models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlot(t *testing.T) {
	doctorID := uuid.New()
	start := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	spec := SlotSpec{
		SlotDate:  time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}

	slot, err := NewSlot(doctorID, spec)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, slot.ID)
	assert.Equal(t, doctorID, slot.DoctorID)
	assert.Equal(t, spec.SlotDate, slot.SlotDate)
	assert.Equal(t, spec.StartTime, slot.StartTime)
	assert.Equal(t, spec.EndTime, slot.EndTime)
	assert.True(t, slot.IsAvailable)
	assert.Nil(t, slot.HeldBy)
}
