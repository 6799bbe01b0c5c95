package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"triage-assistant/internal/db"
	"triage-assistant/pkg"
)

// AssessmentService is the orchestrator surface exposed over HTTP.
type AssessmentService interface {
	Assess(ctx context.Context, req pkg.AssessmentRequest) (*pkg.ClinicalAssessment, error)
}

// AssessmentStore is the read side used by the list/get endpoints.
type AssessmentStore interface {
	GetAssessment(ctx context.Context, id string) (*pkg.ClinicalAssessment, error)
	ListAssessments(ctx context.Context, patientID *string) ([]pkg.ClinicalAssessment, error)
}

// Server bundles the dependencies required by the HTTP handlers.
type Server struct {
	svc    AssessmentService
	store  AssessmentStore
	logger zerolog.Logger
}

// NewServer constructs a Server.
func NewServer(svc AssessmentService, store AssessmentStore, logger zerolog.Logger) *Server {
	return &Server{svc: svc, store: store, logger: logger.With().Str("component", "http").Logger()}
}

// Router builds the chi router with the API routes mounted under /api.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/assessments", s.handleCreateAssessment)
		r.Get("/assessments", s.handleListAssessments)
		r.Get("/assessments/{id}", s.handleGetAssessment)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "symptom-assessment",
	})
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req pkg.AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &pkg.Error{Kind: pkg.ErrInvalidRequest, Message: "request body is not valid JSON"})
		return
	}
	a, err := s.svc.Assess(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Msg("assessment failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAssessment(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not_found", "assessment not found"))
			return
		}
		s.logger.Error().Err(err).Str("id", id).Msg("assessment load failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(string(pkg.ErrPersistenceFailure), "assessment could not be loaded"))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	var patientID *string
	if v := r.URL.Query().Get("patient_id"); v != "" {
		patientID = &v
	}
	list, err := s.store.ListAssessments(r.Context(), patientID)
	if err != nil {
		s.logger.Error().Err(err).Msg("assessment list failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(string(pkg.ErrPersistenceFailure), "assessments could not be listed"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP status codes. Callers always
// receive a kind and a human-readable message.
func writeError(w http.ResponseWriter, err error) {
	kind := pkg.KindOf(err)
	status := http.StatusInternalServerError
	message := "internal error"
	switch kind {
	case pkg.ErrInvalidRequest:
		status = http.StatusBadRequest
	case pkg.ErrUpstreamUnavailable, pkg.ErrModelOutputMalformed:
		status = http.StatusBadGateway
	case pkg.ErrPersistenceFailure:
		status = http.StatusInternalServerError
	}
	var typed *pkg.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	if kind == "" {
		kind = "internal"
	}
	writeJSON(w, status, errorBody(string(kind), message))
}

func errorBody(kind, message string) map[string]map[string]string {
	return map[string]map[string]string{
		"error": {"kind": kind, "message": message},
	}
}
