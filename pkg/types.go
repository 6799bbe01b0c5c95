package pkg

import "time"

// UrgencyLevel is the triage classification assigned to an assessment.
// It is always one of the three enumerated values by the time an
// assessment leaves the orchestrator.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyHigh   UrgencyLevel = "high"
)

// Valid reports whether u is one of the three recognised tiers.
func (u UrgencyLevel) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

// AssessmentRequest carries the patient's free-text symptoms plus optional
// demographic context. It is immutable once submitted.
type AssessmentRequest struct {
	Symptoms       string  `json:"symptoms"`
	Age            *int    `json:"age,omitempty"`
	Sex            string  `json:"sex,omitempty"`
	MedicalHistory string  `json:"medical_history,omitempty"`
	PatientID      *string `json:"patient_id,omitempty"`
}

// ReferenceItem is a literature article summary returned by the reference
// lookup. Published is kept as the raw date string the registry reports
// (e.g. "12 Mar 2021" or a Medline date range).
type ReferenceItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Abstract  string `json:"abstract,omitempty"`
	Published string `json:"published,omitempty"`
}

// TrialStatus is the coarse recruitment status of a clinical trial.
type TrialStatus string

const (
	TrialRecruiting TrialStatus = "recruiting"
	TrialActive     TrialStatus = "active"
	TrialCompleted  TrialStatus = "completed"
	TrialOther      TrialStatus = "other"
)

// TrialItem is a clinical-trial summary from the trials registry.
type TrialItem struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Status         TrialStatus `json:"status"`
	Phase          string      `json:"phase,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	Conditions     []string    `json:"conditions,omitempty"`
	StartDate      string      `json:"start_date,omitempty"`
	CompletionDate string      `json:"completion_date,omitempty"`
	URL            string      `json:"url,omitempty"`
}

// ClinicalAssessment is the aggregate produced once per request. It is
// never mutated after construction; each new assessment for the same
// patient is a new aggregate. ID is assigned at persistence.
//
// Degradations lists enrichment sources that were partially or fully
// unavailable ("references", "trials") or model fields that needed
// coercion ("urgency"). It is an annotation, not an error.
type ClinicalAssessment struct {
	ID                 string            `json:"id,omitempty"`
	Request            AssessmentRequest `json:"request"`
	UrgencyLevel       UrgencyLevel      `json:"urgency_level"`
	UrgencyDescription string            `json:"urgency_description"`
	Reasoning          string            `json:"reasoning"`
	Recommendations    []string          `json:"recommendations"`
	Dos                []string          `json:"dos"`
	Donts              []string          `json:"donts"`
	Disclaimer         string            `json:"disclaimer"`
	References         []ReferenceItem   `json:"references"`
	Trials             []TrialItem       `json:"trials"`
	Degradations       []string          `json:"degradations,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// Appointment is the follow-up record created for high-urgency assessments.
// Scheduling internals live with the appointments collaborator; this core
// only creates the pending record.
type Appointment struct {
	ID           string       `json:"id"`
	AssessmentID string       `json:"assessment_id"`
	PatientID    *string      `json:"patient_id,omitempty"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	UrgencyLevel UrgencyLevel `json:"urgency_level"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}
