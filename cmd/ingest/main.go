// One-shot ingestion: store a local statement file, create the upload
// record and run the extraction pipeline on it synchronously.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/networth-labs/tracker/internal/archive"
	"github.com/networth-labs/tracker/internal/config"
	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/pipeline"
	"github.com/networth-labs/tracker/internal/reconcile"
	"github.com/networth-labs/tracker/internal/store"
	"github.com/networth-labs/tracker/internal/store/gormstore"
	"github.com/networth-labs/tracker/internal/store/memstore"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	var (
		filePath   = flag.String("file", "", "path to the statement file (PDF or image)")
		userID     = flag.String("user", "", "user the statement belongs to")
		uploadType = flag.String("type", string(domain.UploadBankStatement), "statement type (e.g. BANK_STATEMENT, CREDIT_CARD_STATEMENT)")
	)
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	ut, ok := domain.ParseUploadType(*uploadType)
	if !ok {
		log.Fatal().Str("type", *uploadType).Msg("Error: unknown statement type")
	}

	cfg := config.Load()

	// The timeout covers a full retry schedule plus the extraction calls.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	var st store.Store
	if cfg.MySQLDSN != "" {
		gs, err := gormstore.Open(cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MySQL")
		}
		defer gs.Close()
		st = gs
	} else {
		log.Warn().Msg("No MYSQL_DSN configured - results will not be persisted")
		st = memstore.New()
	}

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
		Retry: pipeline.RetryPolicy{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
		},
	})

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open statement file")
	}
	defer f.Close()

	ref, err := files.Save(ctx, filepath.Base(*filePath), f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to store statement file")
	}

	up := &domain.StatementUpload{
		ID:         uuid.NewString(),
		UserID:     *userID,
		FileName:   filepath.Base(*filePath),
		FileRef:    ref,
		UploadType: ut,
		Status:     domain.StatusPending,
		UploadedAt: time.Now(),
	}
	if err := st.CreateUpload(ctx, up); err != nil {
		log.Fatal().Err(err).Msg("Failed to create upload record")
	}

	log.Info().Str("upload_id", up.ID).Str("file", *filePath).Msg("Starting ingestion")

	res, err := task.ProcessUpload(ctx, up.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
	if res.Status != pipeline.StatusCompleted {
		log.Fatal().
			Str("status", res.Status).
			Str("message", res.Message).
			Int("attempts", res.Attempts).
			Msg("Ingestion did not complete")
	}

	action := "position value unchanged"
	switch {
	case res.Created:
		action = "position created"
	case res.Updated:
		action = "position updated"
	}
	fmt.Printf("Ingestion completed: %s, confidence %s%%.\n", action, res.Confidence.StringFixed(2))
}
