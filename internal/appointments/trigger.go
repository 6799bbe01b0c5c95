package appointments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"triage-assistant/pkg"
)

// Store is the slice of the persistence gateway the trigger needs.
type Store interface {
	CreateAppointment(ctx context.Context, appt pkg.Appointment) (string, error)
}

// Trigger creates pending follow-up appointments for high-urgency
// assessments. It owns no scheduling logic; staff pick up pending records
// from the appointment dashboard.
type Trigger struct {
	store  Store
	logger zerolog.Logger
}

// NewTrigger constructs a repo-backed appointment trigger.
func NewTrigger(store Store, logger zerolog.Logger) *Trigger {
	return &Trigger{store: store, logger: logger.With().Str("component", "appointments").Logger()}
}

// CreateFollowUp records a pending follow-up for the assessment and returns
// the appointment id.
func (t *Trigger) CreateFollowUp(ctx context.Context, assessmentID string, urgency pkg.UrgencyLevel, patientID *string) (string, error) {
	title := "Follow-up appointment"
	if urgency == pkg.UrgencyHigh {
		title = "URGENT: " + title
	}
	id, err := t.store.CreateAppointment(ctx, pkg.Appointment{
		AssessmentID: assessmentID,
		PatientID:    patientID,
		Title:        title,
		Description:  fmt.Sprintf("Automatically scheduled from symptom assessment %s (urgency: %s)", assessmentID, urgency),
		UrgencyLevel: urgency,
		Status:       "pending",
	})
	if err != nil {
		return "", err
	}
	t.logger.Info().Str("assessment_id", assessmentID).Str("appointment_id", id).Msg("follow-up appointment created")
	return id, nil
}
