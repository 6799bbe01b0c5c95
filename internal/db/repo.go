package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"triage-assistant/pkg"
)

// ErrNotFound is returned when an assessment id does not exist.
var ErrNotFound = errors.New("assessment not found")

// NotifyChannel is the Postgres channel new assessment ids are published on.
const NotifyChannel = "assessment_events"

// Repository is the persistence gateway for assessments and appointments.
// Each assessment is written in a single transaction; records are never
// updated in place.
type Repository struct {
	DB       *sqlx.DB
	notifier *Notifier
	logger   zerolog.Logger
}

// NewRepository constructs a Repository from an existing sqlx.DB. The caller
// is responsible for managing the DB connection lifecycle.
func NewRepository(db *sqlx.DB, logger zerolog.Logger) *Repository {
	return &Repository{
		DB:       db,
		notifier: NewNotifier(db, NotifyChannel),
		logger:   logger.With().Str("component", "db").Logger(),
	}
}

type assessmentRow struct {
	ID                 string         `db:"id"`
	PatientID          *string        `db:"patient_id"`
	Symptoms           string         `db:"symptoms"`
	Age                *int           `db:"age"`
	Sex                *string        `db:"sex"`
	MedicalHistory     string         `db:"medical_history"`
	UrgencyLevel       string         `db:"urgency_level"`
	UrgencyDescription string         `db:"urgency_description"`
	Reasoning          string         `db:"reasoning"`
	Recommendations    []byte         `db:"recommendations"`
	Dos                []byte         `db:"dos"`
	Donts              []byte         `db:"donts"`
	Disclaimer         string         `db:"disclaimer"`
	Degradations       pq.StringArray `db:"degradations"`
	CreatedAt          time.Time      `db:"created_at"`
}

// SaveAssessment inserts the aggregate plus its reference and trial rows in
// one transaction and returns the newly assigned id. A best-effort NOTIFY is
// emitted after commit.
func (r *Repository) SaveAssessment(ctx context.Context, a *pkg.ClinicalAssessment) (string, error) {
	id := uuid.New().String()

	recommendations, err := json.Marshal(a.Recommendations)
	if err != nil {
		return "", fmt.Errorf("marshal recommendations: %w", err)
	}
	dos, err := json.Marshal(a.Dos)
	if err != nil {
		return "", fmt.Errorf("marshal dos: %w", err)
	}
	donts, err := json.Marshal(a.Donts)
	if err != nil {
		return "", fmt.Errorf("marshal donts: %w", err)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var sex *string
	if a.Request.Sex != "" {
		sex = &a.Request.Sex
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO assessments (id, patient_id, symptoms, age, sex, medical_history,
             urgency_level, urgency_description, reasoning, recommendations, dos, donts,
             disclaimer, degradations, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, a.Request.PatientID, a.Request.Symptoms, a.Request.Age, sex, a.Request.MedicalHistory,
		a.UrgencyLevel, a.UrgencyDescription, a.Reasoning, recommendations, dos, donts,
		a.Disclaimer, pq.StringArray(a.Degradations), a.CreatedAt,
	)
	if err != nil {
		return "", err
	}

	for i, ref := range a.References {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO assessment_references (assessment_id, ref_id, title, abstract, published, position)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			id, ref.ID, ref.Title, ref.Abstract, ref.Published, i,
		)
		if err != nil {
			return "", err
		}
	}
	for i, trial := range a.Trials {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO assessment_trials (assessment_id, trial_id, title, status, phase, summary,
                 conditions, start_date, completion_date, url, position)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			id, trial.ID, trial.Title, trial.Status, trial.Phase, trial.Summary,
			pq.StringArray(trial.Conditions), trial.StartDate, trial.CompletionDate, trial.URL, i,
		)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	if err := r.notifier.Notify(ctx, id); err != nil {
		r.logger.Warn().Err(err).Str("assessment_id", id).Msg("assessment notify failed")
	}
	return id, nil
}

// GetAssessment loads one assessment with its references and trials.
func (r *Repository) GetAssessment(ctx context.Context, id string) (*pkg.ClinicalAssessment, error) {
	var row assessmentRow
	err := r.DB.GetContext(ctx, &row,
		`SELECT id, patient_id, symptoms, age, sex, medical_history, urgency_level,
                urgency_description, reasoning, recommendations, dos, donts, disclaimer,
                degradations, created_at
         FROM assessments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a, err := rowToAssessment(row)
	if err != nil {
		return nil, err
	}
	if a.References, err = r.loadReferences(ctx, id); err != nil {
		return nil, err
	}
	if a.Trials, err = r.loadTrials(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssessments returns assessments newest first, optionally filtered by
// patient id.
func (r *Repository) ListAssessments(ctx context.Context, patientID *string) ([]pkg.ClinicalAssessment, error) {
	query := `SELECT id, patient_id, symptoms, age, sex, medical_history, urgency_level,
                     urgency_description, reasoning, recommendations, dos, donts, disclaimer,
                     degradations, created_at
              FROM assessments`
	var rows []assessmentRow
	var err error
	if patientID != nil {
		err = r.DB.SelectContext(ctx, &rows, query+` WHERE patient_id = $1 ORDER BY created_at DESC`, *patientID)
	} else {
		err = r.DB.SelectContext(ctx, &rows, query+` ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, err
	}
	out := make([]pkg.ClinicalAssessment, 0, len(rows))
	for _, row := range rows {
		a, err := rowToAssessment(row)
		if err != nil {
			return nil, err
		}
		if a.References, err = r.loadReferences(ctx, a.ID); err != nil {
			return nil, err
		}
		if a.Trials, err = r.loadTrials(ctx, a.ID); err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// CreateAppointment inserts a follow-up appointment and returns its id.
func (r *Repository) CreateAppointment(ctx context.Context, appt pkg.Appointment) (string, error) {
	id := uuid.New().String()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO appointments (id, assessment_id, patient_id, title, description, urgency_level, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, appt.AssessmentID, appt.PatientID, appt.Title, appt.Description, appt.UrgencyLevel, appt.Status,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) loadReferences(ctx context.Context, assessmentID string) ([]pkg.ReferenceItem, error) {
	type refRow struct {
		RefID     string `db:"ref_id"`
		Title     string `db:"title"`
		Abstract  string `db:"abstract"`
		Published string `db:"published"`
	}
	var rows []refRow
	err := r.DB.SelectContext(ctx, &rows,
		`SELECT ref_id, title, abstract, published
         FROM assessment_references WHERE assessment_id = $1 ORDER BY position`, assessmentID)
	if err != nil {
		return nil, err
	}
	out := make([]pkg.ReferenceItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, pkg.ReferenceItem{
			ID:        row.RefID,
			Title:     row.Title,
			Abstract:  row.Abstract,
			Published: row.Published,
		})
	}
	return out, nil
}

func (r *Repository) loadTrials(ctx context.Context, assessmentID string) ([]pkg.TrialItem, error) {
	type trialRow struct {
		TrialID        string         `db:"trial_id"`
		Title          string         `db:"title"`
		Status         string         `db:"status"`
		Phase          string         `db:"phase"`
		Summary        string         `db:"summary"`
		Conditions     pq.StringArray `db:"conditions"`
		StartDate      string         `db:"start_date"`
		CompletionDate string         `db:"completion_date"`
		URL            string         `db:"url"`
	}
	var rows []trialRow
	err := r.DB.SelectContext(ctx, &rows,
		`SELECT trial_id, title, status, phase, summary, conditions, start_date, completion_date, url
         FROM assessment_trials WHERE assessment_id = $1 ORDER BY position`, assessmentID)
	if err != nil {
		return nil, err
	}
	out := make([]pkg.TrialItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, pkg.TrialItem{
			ID:             row.TrialID,
			Title:          row.Title,
			Status:         pkg.TrialStatus(row.Status),
			Phase:          row.Phase,
			Summary:        row.Summary,
			Conditions:     row.Conditions,
			StartDate:      row.StartDate,
			CompletionDate: row.CompletionDate,
			URL:            row.URL,
		})
	}
	return out, nil
}

func rowToAssessment(row assessmentRow) (*pkg.ClinicalAssessment, error) {
	a := &pkg.ClinicalAssessment{
		ID: row.ID,
		Request: pkg.AssessmentRequest{
			Symptoms:       row.Symptoms,
			Age:            row.Age,
			MedicalHistory: row.MedicalHistory,
			PatientID:      row.PatientID,
		},
		UrgencyLevel:       pkg.UrgencyLevel(row.UrgencyLevel),
		UrgencyDescription: row.UrgencyDescription,
		Reasoning:          row.Reasoning,
		Disclaimer:         row.Disclaimer,
		Degradations:       row.Degradations,
		CreatedAt:          row.CreatedAt,
	}
	if row.Sex != nil {
		a.Request.Sex = *row.Sex
	}
	if err := json.Unmarshal(row.Recommendations, &a.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal(row.Dos, &a.Dos); err != nil {
		return nil, fmt.Errorf("unmarshal dos: %w", err)
	}
	if err := json.Unmarshal(row.Donts, &a.Donts); err != nil {
		return nil, fmt.Errorf("unmarshal donts: %w", err)
	}
	return a, nil
}
