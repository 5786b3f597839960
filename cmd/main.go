package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-qa/internal/config"
	"pdf-qa/internal/db"
	"pdf-qa/internal/embedding"
	"pdf-qa/internal/helper"
	"pdf-qa/internal/llmservice"
	"pdf-qa/internal/loader"
	"pdf-qa/internal/models"
	"pdf-qa/internal/parser"
	"pdf-qa/internal/pipeline"
	"pdf-qa/internal/rag"
)

const (
	configFilePath = "./configs/config.yaml"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	config.ApplyEnv(cfg, os.Getenv)
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		var stageErr *models.StageError
		if errors.As(err, &stageErr) {
			log.Fatal().Err(stageErr.Err).Str("stage", stageErr.Stage).Msg("Pipeline failed")
		}
		log.Fatal().Err(err).Msg("Pipeline failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	embedder, err := embedding.NewEmbedder(cfg.EmbedLLM)
	if err != nil {
		return fmt.Errorf("error initializing embedder: %w", err)
	}
	llm, err := llmservice.New(cfg.InferenceLLM)
	if err != nil {
		return fmt.Errorf("error initializing LLM: %w", err)
	}

	orchestrator := pipeline.New(cfg, loader.New(parser.Dispatch), embedding.Func(embedder), llmservice.CompleteFunc(llm, cfg.InferenceLLM))
	response, err := orchestrator.Run(ctx, loader.FromPath(cfg.Document), cfg.Query)
	if err != nil {
		return err
	}

	if err := printResponse(os.Stdout, response, cfg.PrintJSON); err != nil {
		return err
	}

	if cfg.Database.Enabled() {
		if err := archive(ctx, &cfg.Database, response); err != nil {
			return fmt.Errorf("error archiving answer: %w", err)
		}
	}
	return nil
}

func printResponse(w io.Writer, response *models.PromptResponse, printJSON bool) error {
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(w, "%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(w, "%s\n%s\n", response.Source, rag.FormatSources(response.Retrieved))

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Fprintf(w, "%s\n\n", response.Content)

	if !printJSON {
		return nil
	}
	if response.ParseFailure != nil {
		log.Warn().Str("reason", response.ParseFailure.Reason).Msg("Answer could not be parsed as JSON")
		return nil
	}
	log.Info().Msg("JSON: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	return helper.PrettyPrint(w, response.Parsed)
}

func archive(ctx context.Context, cfg *config.DatabaseConfig, response *models.PromptResponse) error {
	dbClient, err := db.ConnectDB(cfg)
	if err != nil {
		return err
	}
	dbInstance := db.NewDB(dbClient, cfg.Debug)
	defer dbInstance.Close()

	if err := db.InitDB(ctx, dbInstance); err != nil {
		return err
	}
	return db.StoreAnswer(ctx, dbInstance, response)
}
