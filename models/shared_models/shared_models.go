// Package shared_models holds the status and step vocabulary shared by
// the booking workflow and the appointment reservation paths.
package shared_models

import "github.com/google/uuid"

// BookingStatus is the lifecycle state of a booking aggregate.
type BookingStatus string

const (
	StatusPending      BookingStatus = "pending"
	StatusExpertReview BookingStatus = "expert_review"
	StatusConfirmed    BookingStatus = "confirmed"
	StatusInProgress   BookingStatus = "in_progress"
	StatusCompleted    BookingStatus = "completed"
	StatusCancelled    BookingStatus = "cancelled"
	StatusRefunded     BookingStatus = "refunded"
)

// statusTransitions is the closed transition table. A status may only
// move to one of its listed successors; everything else is rejected.
var statusTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:      {StatusExpertReview, StatusCancelled},
	StatusExpertReview: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:    {StatusInProgress, StatusCancelled},
	StatusInProgress:   {StatusCompleted, StatusCancelled},
	StatusCompleted:    {StatusRefunded},
	StatusCancelled:    {StatusRefunded},
	StatusRefunded:     {},
}

// IsValid reports whether s is one of the known statuses.
func (s BookingStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the table allows moving from one
// status to another.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsActive reports whether a booking in this status still blocks a new
// booking for the same user and treatment.
func IsActive(s BookingStatus) bool {
	return s == StatusPending || s == StatusExpertReview
}

// StepsLocked reports whether the status forbids any further step
// mutation on the aggregate.
func StepsLocked(s BookingStatus) bool {
	return s == StatusCompleted || s == StatusRefunded
}

// The workflow is a fixed total order of seven steps. Transitions move
// by exactly one position per call.
const (
	StepTreatment = 1
	StepCountry   = 2
	StepCity      = 3
	StepHospital  = 4
	StepPackage   = 5
	StepAddOns    = 6
	StepReview    = 7

	FirstStep = StepTreatment
	LastStep  = StepReview
)

var stepNames = map[int]string{
	StepTreatment: "treatment",
	StepCountry:   "country",
	StepCity:      "city",
	StepHospital:  "hospital",
	StepPackage:   "package",
	StepAddOns:    "add_ons",
	StepReview:    "review",
}

// IsValidStep reports whether n is one of the ordered workflow steps.
func IsValidStep(n int) bool {
	_, ok := stepNames[n]
	return ok
}

// StepName returns the name of a workflow step, or "" for an unknown
// step number.
func StepName(n int) string {
	return stepNames[n]
}

// Appointment statuses.
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// GenerateUUIDv7 returns a time-ordered UUID for new rows.
func GenerateUUIDv7() (uuid.UUID, error) {
	return uuid.NewV7()
}
