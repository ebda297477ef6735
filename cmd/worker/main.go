// The worker sweeps the store for PENDING statement uploads and runs the
// extraction pipeline on each. It exists for deployments where the API
// process only records uploads; with a single process the API's own job
// queue already covers processing.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/networth-labs/tracker/internal/archive"
	"github.com/networth-labs/tracker/internal/config"
	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/observability"
	"github.com/networth-labs/tracker/internal/pipeline"
	"github.com/networth-labs/tracker/internal/reconcile"
	"github.com/networth-labs/tracker/internal/store"
	"github.com/networth-labs/tracker/internal/store/gormstore"
)

func main() {
	var (
		interval = flag.Duration("interval", 30*time.Second, "how often to sweep for pending statements")
		once     = flag.Bool("once", false, "run a single sweep and exit")
	)
	flag.Parse()

	cfg := config.Load()
	log := logger.New()

	// A standalone worker only makes sense against a shared database.
	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required: without a shared store the worker cannot see the API's uploads")
	}
	st, err := gormstore.Open(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MySQL")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var files filestore.Store
	if cfg.GCSBucket != "" {
		gcs, err := filestore.NewGCS(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS file store")
		}
		defer gcs.Close()
		files = gcs
	} else {
		local, err := filestore.NewLocal(cfg.StorageDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create local file store")
		}
		files = local
	}

	var sink archive.Sink = archive.NopSink{}
	if cfg.GCPProject != "" {
		bq, err := archive.NewBigQuery(ctx, cfg.GCPProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery archive")
		}
		defer bq.Close()
		sink = bq
	}

	extractor := extraction.NewClient(extraction.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err := extractor.Ready(); err != nil {
		log.Fatal().Err(err).Msg("GEMINI_API_KEY is required to process statements")
	}

	task := pipeline.NewTask(pipeline.TaskConfig{
		Uploads:    st,
		Files:      files,
		Extractor:  extractor,
		Reconciler: reconcile.New(st, st, cfg.DefaultCurrency),
		Archive:    sink,
		Metrics:    observability.NewMetrics(),
		Retry: pipeline.RetryPolicy{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
		},
	})

	// Cancel the sweep loop on interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Shutting down worker...")
		cancel()
	}()

	log.Info().Dur("interval", *interval).Msg("Worker started, sweeping for pending statements")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		sweep(ctx, log, st, task)
		if *once {
			log.Info().Msg("Single sweep finished")
			return
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Worker exited")
			return
		case <-ticker.C:
		}
	}
}

// sweep processes every PENDING upload it can see. Uploads another worker
// moved to PROCESSING in the meantime fail their transition and are skipped.
// TODO: also pick up PROCESSING uploads orphaned by a crashed process once
// UploadFilter can select on upload age.
func sweep(ctx context.Context, log zerolog.Logger, st store.Store, task *pipeline.Task) {
	uploads, err := st.ListUploads(ctx, store.UploadFilter{Status: domain.StatusPending})
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending statements")
		return
	}
	if len(uploads) == 0 {
		return
	}

	log.Info().Int("pending", len(uploads)).Msg("Sweeping pending statements")

	// Oldest first; lists come back newest first.
	for i := len(uploads) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return
		}
		up := uploads[i]

		res, err := task.ProcessUpload(ctx, up.ID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("upload_id", up.ID).Msg("Statement pipeline failed")
			continue
		}

		log.Info().
			Str("upload_id", up.ID).
			Str("status", res.Status).
			Int("attempts", res.Attempts).
			Msg("Statement processed")
	}
}
