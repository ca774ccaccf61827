package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/handlers"
	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/assistant"
	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/export"
	"github.com/dvloznov/finance-dashboard/internal/gcsuploader"
	infraBQ "github.com/dvloznov/finance-dashboard/internal/infra/bigquery"
	"github.com/dvloznov/finance-dashboard/internal/infra/memory"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/jobs/inmemory"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/metrics"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// feedSource serves transactions from the feed cache and everything else
// from the underlying source, so downloads match what the dashboard shows.
type feedSource struct {
	export.Source
	feed *txview.Feed
}

func (s feedSource) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.feed.ListTransactions(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	var (
		port   = flag.String("port", cfg.Server.Port, "HTTP server port")
		source = flag.String("source", "bigquery", "Record source: bigquery or memory")
	)
	flag.Parse()

	// Initialize logger
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		log.Warn().Err(err).Msg("Invalid logging configuration, using defaults")
	}

	ctx := logger.WithContext(context.Background(), log)
	m := metrics.New()

	// Initialize record source
	var records export.Source
	switch *source {
	case "bigquery":
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQuery)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		records = repo
	case "memory":
		log.Warn().Msg("Serving in-memory sample data")
		records = memory.NewSampleSource(time.Now())
	default:
		log.Fatal().Str("source", *source).Msg("Unknown record source")
	}

	// Transactions feed, refreshed in the background
	feed := txview.NewFeed(records, m)
	if err := feed.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Initial transaction load failed")
	}

	pollCtx, cancelPoll := context.WithCancel(logger.WithContext(ctx, logger.WithComponent(log, "poller")))
	defer cancelPoll()
	poller := txview.NewPoller(feed, cfg.Feed.PollInterval)
	go poller.Run(pollCtx)

	// Export sinks for asynchronous jobs
	sinks := map[jobs.Destination]export.FileSink{
		jobs.DestinationDir: &export.DirSink{Dir: cfg.Export.Dir},
	}
	if cfg.Export.GCSBucket != "" {
		bucket, prefix, err := gcsuploader.ParseDestination(cfg.Export.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid export bucket")
		}
		if prefix == "" {
			prefix = cfg.Export.GCSPrefix
		}
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
		sinks[jobs.DestinationGCS] = &export.GCSSink{
			Storage: storage,
			Bucket:  bucket,
			Prefix:  prefix,
		}
	} else {
		log.Warn().Msg("No GCS bucket configured - exports to gcs will be rejected")
	}
	destinations := make([]jobs.Destination, 0, len(sinks))
	for d := range sinks {
		destinations = append(destinations, d)
	}

	// Initialize job infrastructure
	maxRetries := cfg.Jobs.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueConfig{
		BufferSize: cfg.Jobs.QueueSize,
		Workers:    cfg.Jobs.Workers,
		MaxRetries: maxRetries,
	}, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, logger.WithComponent(log, "export-worker")))
	defer cancelWorker()

	jobService := export.NewService(records, m)
	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting export workers")
	if err := jobQueue.Start(workerCtx, jobs.NewExportHandler(jobService, sinks)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start export workers")
	}

	// Optional assistant
	var answerer assistant.Assistant
	if cfg.Gemini.Project != "" {
		gen, err := assistant.NewGeminiGenerator(ctx, cfg.Gemini)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Gemini client - assistant disabled")
		} else {
			answerer = assistant.New(gen)
		}
	} else {
		log.Info().Msg("No Gemini project configured - assistant disabled")
	}

	// Initialize handlers
	downloads := export.NewService(feedSource{Source: records, feed: feed}, m)
	transactionsHandler := handlers.NewTransactionsHandler(feed, log)
	recordsHandler := handlers.NewRecordsHandler(records, log)
	exportHandler := handlers.NewExportHandler(downloads, jobQueue, destinations, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	assistantHandler := handlers.NewAssistantHandler(feed, answerer, log)

	// Create router
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.Refresh(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts and investments endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			recordsHandler.ListAccounts(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/investments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			recordsHandler.ListInvestments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Export endpoints
	mux.HandleFunc("/api/export/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract entity from path
			entity := strings.TrimPrefix(r.URL.Path, "/api/export/")
			if entity == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Entity is required")
				return
			}
			exportHandler.Download(w, r, entity)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/exports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			exportHandler.Enqueue(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Assistant endpoint
	mux.HandleFunc("/api/assistant", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assistantHandler.Ask(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.Handle("/metrics", m.Handler())

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("source", *source).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop polling
	cancelPoll()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	poller.Wait()
	transactionsHandler.Wait()

	// Stop job queue and wait for in-flight jobs
	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
