package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"triage-assistant/internal/llm"
	"triage-assistant/pkg"
)

// maxHumanAge bounds the plausible-age check on requests.
const maxHumanAge = 120

// ReferenceSearcher is the literature lookup consumed by the orchestrator.
type ReferenceSearcher interface {
	Search(ctx context.Context, keywords []string, max int) ([]pkg.ReferenceItem, error)
}

// TrialSearcher is the clinical-trials lookup consumed by the orchestrator.
type TrialSearcher interface {
	Search(ctx context.Context, keywords []string, max int) ([]pkg.TrialItem, error)
}

// Store persists finished assessments and returns their assigned id.
type Store interface {
	SaveAssessment(ctx context.Context, a *pkg.ClinicalAssessment) (string, error)
}

// AppointmentTrigger schedules a follow-up for high-urgency assessments.
// The orchestrator only guarantees the call happens before Assess returns;
// scheduling internals belong to the collaborator.
type AppointmentTrigger interface {
	CreateFollowUp(ctx context.Context, assessmentID string, urgency pkg.UrgencyLevel, patientID *string) (string, error)
}

// Options tune the orchestrator's timeouts and result caps.
type Options struct {
	ModelTimeout  time.Duration // per model-completion attempt
	EnrichTimeout time.Duration // per enrichment call
	RetryBackoff  time.Duration // pause before the single model retry
	MaxReferences int
	MaxTrials     int
}

func (o *Options) withDefaults() {
	if o.ModelTimeout <= 0 {
		o.ModelTimeout = 30 * time.Second
	}
	if o.EnrichTimeout <= 0 {
		o.EnrichTimeout = 10 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxReferences <= 0 {
		o.MaxReferences = 3
	}
	if o.MaxTrials <= 0 {
		o.MaxTrials = 5
	}
}

// Service coordinates the symptom-assessment pipeline: concurrent fan-out to
// the model and the two enrichment lookups, shape normalization, urgency
// coercion, persistence and the conditional follow-up trigger.
type Service struct {
	model   llm.Client
	refs    ReferenceSearcher
	trials  TrialSearcher
	store   Store
	trigger AppointmentTrigger
	opts    Options
	logger  zerolog.Logger
}

// NewService wires the orchestrator. All collaborators are required except
// trigger, which may be nil when follow-up creation is disabled.
func NewService(model llm.Client, refs ReferenceSearcher, trials TrialSearcher, store Store, trigger AppointmentTrigger, opts Options, logger zerolog.Logger) *Service {
	opts.withDefaults()
	return &Service{
		model:   model,
		refs:    refs,
		trials:  trials,
		store:   store,
		trigger: trigger,
		opts:    opts,
		logger:  logger.With().Str("component", "assessment").Logger(),
	}
}

// Assess runs the full pipeline for one request. The caller receives either
// a complete, persisted ClinicalAssessment (possibly with empty enrichment
// collections) or a single typed error, never a partial aggregate.
func (s *Service) Assess(ctx context.Context, req pkg.AssessmentRequest) (*pkg.ClinicalAssessment, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	keywords := ExtractKeywords(req.Symptoms)

	var (
		raw            *llm.RawAssessment
		references     []pkg.ReferenceItem
		trialItems     []pkg.TrialItem
		refsDegraded   bool
		trialsDegraded bool
	)

	// The model goroutine returning an error cancels the group context,
	// abandoning any in-flight enrichment calls. Enrichment goroutines never
	// return errors: their failures degrade to empty results plus a warning.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.completeWithRetry(gctx, req)
		if err != nil {
			return err
		}
		raw = r
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, s.opts.EnrichTimeout)
		defer cancel()
		out, err := s.refs.Search(cctx, keywords, s.opts.MaxReferences)
		if err != nil {
			s.logger.Warn().Err(err).Strs("keywords", keywords).Msg("reference lookup degraded")
			refsDegraded = true
			return nil
		}
		references = out
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, s.opts.EnrichTimeout)
		defer cancel()
		out, err := s.trials.Search(cctx, keywords, s.opts.MaxTrials)
		if err != nil {
			s.logger.Warn().Err(err).Strs("keywords", keywords).Msg("trial lookup degraded")
			trialsDegraded = true
			return nil
		}
		trialItems = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	level, known := CoerceUrgency(raw.UrgencyLevel)
	if !known {
		s.logger.Warn().Str("urgency_level", raw.UrgencyLevel).Msg("unrecognized urgency coerced to medium")
	}

	var degradations []string
	if !known {
		degradations = append(degradations, "urgency")
	}
	if refsDegraded {
		degradations = append(degradations, "references")
	}
	if trialsDegraded {
		degradations = append(degradations, "trials")
	}

	description := strings.TrimSpace(raw.UrgencyDescription)
	if description == "" {
		description = DefaultUrgencyDescription(level)
	}
	disclaimer := strings.TrimSpace(raw.Disclaimer)
	if disclaimer == "" {
		disclaimer = llm.DefaultDisclaimer
	}

	a := &pkg.ClinicalAssessment{
		Request:            req,
		UrgencyLevel:       level,
		UrgencyDescription: description,
		Reasoning:          raw.Reasoning,
		Recommendations:    NormalizeList(raw.Recommendations),
		Dos:                NormalizeList(raw.Dos),
		Donts:              NormalizeList(raw.Donts),
		Disclaimer:         disclaimer,
		References:         DedupeReferences(references),
		Trials:             DedupeTrials(trialItems),
		Degradations:       degradations,
		CreatedAt:          time.Now().UTC(),
	}

	id, err := s.store.SaveAssessment(ctx, a)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.ErrPersistenceFailure, Message: "assessment could not be saved", Err: err}
	}
	a.ID = id

	if a.UrgencyLevel == pkg.UrgencyHigh && s.trigger != nil {
		if _, err := s.trigger.CreateFollowUp(ctx, a.ID, a.UrgencyLevel, req.PatientID); err != nil {
			// The triage result is still valid; scheduling failure must not
			// fail the assessment.
			s.logger.Warn().Err(err).Str("assessment_id", a.ID).Msg("follow-up appointment creation failed")
		}
	}
	return a, nil
}

// completeWithRetry runs the mandatory model call with a per-attempt timeout
// and at most one retry, taken only for retryable upstream failures.
func (s *Service) completeWithRetry(ctx context.Context, req pkg.AssessmentRequest) (*llm.RawAssessment, error) {
	raw, err := s.completeOnce(ctx, req)
	if err == nil {
		return raw, nil
	}
	if !pkg.IsRetryable(err) {
		return nil, err
	}
	s.logger.Warn().Err(err).Dur("backoff", s.opts.RetryBackoff).Msg("model completion failed, retrying once")
	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(s.opts.RetryBackoff):
	}
	return s.completeOnce(ctx, req)
}

func (s *Service) completeOnce(ctx context.Context, req pkg.AssessmentRequest) (*llm.RawAssessment, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.ModelTimeout)
	defer cancel()
	raw, err := s.model.Complete(cctx, req)
	if err == nil {
		return raw, nil
	}
	if pkg.KindOf(err) != "" {
		return nil, err
	}
	// Untyped failure from the client, e.g. a bare deadline error.
	return nil, &pkg.Error{
		Kind:      pkg.ErrUpstreamUnavailable,
		Message:   "model completion failed",
		Retryable: errors.Is(err, context.DeadlineExceeded),
		Err:       err,
	}
}

// validateRequest checks the request and canonicalizes sex to lowercase so
// the persisted value and the prompt carry one spelling.
func validateRequest(req *pkg.AssessmentRequest) error {
	if strings.TrimSpace(req.Symptoms) == "" {
		return &pkg.Error{Kind: pkg.ErrInvalidRequest, Message: "symptoms must not be empty"}
	}
	if req.Age != nil && (*req.Age <= 0 || *req.Age > maxHumanAge) {
		return &pkg.Error{Kind: pkg.ErrInvalidRequest, Message: fmt.Sprintf("age %d is not a plausible human age", *req.Age)}
	}
	req.Sex = strings.ToLower(strings.TrimSpace(req.Sex))
	switch req.Sex {
	case "", "male", "female", "other":
	default:
		return &pkg.Error{Kind: pkg.ErrInvalidRequest, Message: "sex must be one of male, female, other"}
	}
	return nil
}
