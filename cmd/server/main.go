package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/docuscan/document-ocr-service/api"
	"github.com/docuscan/document-ocr-service/internal/models"
	"github.com/docuscan/document-ocr-service/internal/ocr"
	"github.com/docuscan/document-ocr-service/internal/storage"
)

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(config.LogLevel)

	spool, err := storage.NewSpool(config.OCR.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create upload spool")
	}

	engine := ocr.NewEngine(config.OCR)
	if err := engine.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OCR engine")
	}
	defer engine.Cleanup()

	handler := api.NewHandler(engine, spool, config)
	router := handler.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	log.Info().
		Str("addr", addr).
		Str("language", engine.Language()).
		Str("upload_dir", spool.Dir()).
		Msgf("starting document OCR service v%s", api.Version)
	log.Info().Msg("  POST /api/v1/ocr/extract - Recognize image by path")
	log.Info().Msg("  POST /api/v1/ocr/text    - Recognize uploaded image")
	log.Info().Msg("  POST /api/v1/ocr/analyze - Classify document by path")
	log.Info().Msg("  POST /api/v1/ocr/batch   - Recognize a list of paths")
	log.Info().Msg("  GET  /health             - Health check")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
}

// loadConfig reads config.yaml over the built-in defaults and applies
// environment overrides on top. A missing config file is not an error.
func loadConfig(path string) (*models.Config, error) {
	config := models.Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		config.Port = p
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if language := os.Getenv("OCR_LANGUAGE"); language != "" {
		config.OCR.Language = language
	}
	if pre := os.Getenv("OCR_PREPROCESSING"); pre != "" {
		config.OCR.PreprocessingEnabled = pre == "true" || pre == "1"
	}
	if dir := os.Getenv("OCR_UPLOAD_DIR"); dir != "" {
		config.OCR.UploadDir = dir
	}

	return config, nil
}

func setupLogger(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
