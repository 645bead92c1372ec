package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docscan/docscan-backend/internal/countries"
	"github.com/docscan/docscan-backend/internal/docprocessing/events"
	"github.com/docscan/docscan-backend/internal/docprocessing/handler"
	"github.com/docscan/docscan-backend/internal/docprocessing/metrics"
	"github.com/docscan/docscan-backend/internal/docprocessing/processor"
	"github.com/docscan/docscan-backend/internal/docprocessing/repository"
	"github.com/docscan/docscan-backend/internal/docprocessing/service"
	"github.com/docscan/docscan-backend/internal/docprocessing/storage"
	"github.com/docscan/docscan-backend/internal/mrz"
	"github.com/docscan/docscan-backend/pkg/config"
	"github.com/docscan/docscan-backend/pkg/database"
	"github.com/docscan/docscan-backend/pkg/httputil"
	"github.com/docscan/docscan-backend/pkg/logger"
	"github.com/docscan/docscan-backend/pkg/messaging"
)

const serviceName = "docscan-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment, cfg.Server.LogLevel)
	log.Info().Msg("starting Docscan Service")

	// Country table
	table, err := countries.Load(cfg.MRZ.CountryTablePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.MRZ.CountryTablePath).Msg("failed to load country table")
	}
	log.Info().Int("countries", table.Len()).Msg("country table loaded")

	decoder := mrz.NewDecoder(mrz.Options{
		Countries:         table,
		Century:           mrz.CenturyPolicy{ExpiryLookaheadYears: cfg.MRZ.ExpiryLookaheadYears},
		LegacyZeroAsMale:  cfg.MRZ.LegacyZeroAsMale,
		VerifyCheckDigits: cfg.MRZ.VerifyCheckDigits,
	})

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Processors, tried in registration order
	mrzProc := processor.NewMRZProcessor(decoder, m)
	var procs []processor.Processor
	if processor.OCRAvailable {
		procs = append(procs, processor.NewOCRProcessor(processor.OCRConfig{
			Languages:   cfg.OCR.Languages,
			PageSegMode: cfg.OCR.PageSegMode,
		}, mrzProc))
	}
	if cfg.Vision.URL != "" {
		procs = append(procs, processor.NewVisionProcessor(processor.VisionConfig{
			URL:         cfg.Vision.URL,
			Timeout:     cfg.Vision.Timeout,
			MaxAttempts: cfg.Vision.MaxAttempts,
			RetryDelay:  cfg.Vision.RetryDelay,
		}, mrzProc))
	}
	procs = append(procs, mrzProc)
	registry := processor.NewRegistry(procs...)
	log.Info().Strs("processors", registry.Names()).Msg("document processors registered")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Job store
	jobs := storage.NewTempStorage(cfg.Jobs.TTL)
	go jobs.Run(ctx)

	// Connect to database
	db, err := database.New(ctx, &cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	auditRepo := repository.NewAuditRepository(db)
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare audit table")
	}

	// Connect to RabbitMQ
	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeDocumentEvents, serviceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	extractionEvents := events.NewExtractionEventPublisher(publisher)

	// Initialize service
	svc := service.NewService(service.Deps{
		Decoder:  decoder,
		MRZ:      mrzProc,
		Registry: registry,
		Storage:  jobs,
		Audit:    auditRepo,
		Events:   extractionEvents,
		Metrics:  m,
		Logger:   log,
	})

	// Start MRZ lines consumer
	if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
		log.Fatal().Err(err).Msg("failed to declare dead letter queue")
	}
	linesConsumer, err := events.NewMRZLinesConsumer(rmq, events.NewMRZLinesHandler(svc, extractionEvents, log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mrz lines consumer")
	}
	if err := linesConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start mrz lines consumer")
	}

	docHandler := handler.NewHandler(svc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", httputil.RequestIDHeader, httputil.UserIDHeader},
		ExposedHeaders:   []string{httputil.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":     "healthy",
			"service":    serviceName,
			"processors": registry.Names(),
			"database":   db.Health(r.Context()),
			"rabbitmq":   rmq.Health(),
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.UserContext)
		docHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let running extraction jobs write their audit rows before the
	// database and broker connections close.
	svc.Wait()

	// Cancel context to stop consumers and the job cleanup loop
	cancel()

	log.Info().Msg("server stopped")
}
