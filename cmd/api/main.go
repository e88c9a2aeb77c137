package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kothari1/NuFleet-AI-SOP/internal/export"
	"github.com/kothari1/NuFleet-AI-SOP/internal/frame"
	"github.com/kothari1/NuFleet-AI-SOP/internal/genai"
	"github.com/kothari1/NuFleet-AI-SOP/internal/http/handlers"
	"github.com/kothari1/NuFleet-AI-SOP/internal/http/httpapi"
	"github.com/kothari1/NuFleet-AI-SOP/internal/infra"
	"github.com/kothari1/NuFleet-AI-SOP/internal/sop"
	"github.com/kothari1/NuFleet-AI-SOP/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client, err := genai.NewClient(genai.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		Model:        cfg.GeminiModel,
		PollInterval: cfg.FilePollInterval,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}

	spool, err := storage.NewSpool(cfg.SpoolDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare media spool")
	}

	extractor := frame.NewExtractor(cfg.FFmpegPath, cfg.SnapshotMaxWidth, cfg.SnapshotQuality)
	annotator := sop.NewAnnotator(extractor, &logger)
	service := sop.NewService(client, annotator, cfg.GeminiModel, &logger)

	app := handlers.NewApp(cfg, &logger, client, service, export.NewPDFRenderer(), spool)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
