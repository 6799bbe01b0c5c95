package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"triage-assistant/internal/appointments"
	"triage-assistant/internal/assessment"
	"triage-assistant/internal/config"
	"triage-assistant/internal/db"
	httpserver "triage-assistant/internal/http"
	"triage-assistant/internal/llm"
	"triage-assistant/internal/pubmed"
	"triage-assistant/internal/trials"

	_ "github.com/lib/pq"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Open database connection
	dbConn, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping database")
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	repo := db.NewRepository(dbConn, logger)

	// Clients. The PubMed constructor enforces the registry identification
	// contract, so a missing contact email aborts startup here.
	modelClient := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel)
	pubmedClient, err := pubmed.NewClient(cfg.PubMedBaseURL, cfg.PubMedEmail, cfg.PubMedTool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct pubmed client")
	}
	trialsClient := trials.NewClient(cfg.TrialsBaseURL, logger)
	trigger := appointments.NewTrigger(repo, logger)

	svc := assessment.NewService(modelClient, pubmedClient, trialsClient, repo, trigger, assessment.Options{
		ModelTimeout:  cfg.ModelTimeout,
		EnrichTimeout: cfg.EnrichTimeout,
		RetryBackoff:  cfg.RetryBackoff,
		MaxReferences: cfg.MaxReferences,
		MaxTrials:     cfg.MaxTrials,
	}, logger)

	srv := httpserver.NewServer(svc, repo, logger)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("listening")
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
