// Admin CLI for poking at statements and positions without going through
// the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/config"
	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/pipeline"
	"github.com/networth-labs/tracker/internal/reconcile"
	"github.com/networth-labs/tracker/internal/store"
	"github.com/networth-labs/tracker/internal/store/gormstore"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "statements":
		runStatements(log)
	case "inspect":
		runInspect(log)
	case "positions":
		runPositions(log)
	case "process":
		runProcess(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Net Worth Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  statements  List statement uploads")
	fmt.Println("  inspect     Inspect one statement upload and its parsed payload")
	fmt.Println("  positions   List a user's positions with a net worth summary")
	fmt.Println("  process     Run the extraction pipeline on an upload by ID")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// openStore connects to MySQL or dies. Every subcommand works against the
// shared database.
func openStore(log zerolog.Logger, cfg *config.Config) *gormstore.Store {
	if cfg.MySQLDSN == "" {
		log.Fatal().Msg("MYSQL_DSN is required")
	}
	st, err := gormstore.Open(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MySQL")
	}
	return st
}

func runStatements(log zerolog.Logger) {
	fs := flag.NewFlagSet("statements", flag.ExitOnError)
	userID := fs.String("user", "", "only this user's statements")
	status := fs.String("status", "", "only statements with this status")
	limit := fs.Int("limit", 20, "maximum number of statements")
	fs.Parse(os.Args[2:])

	cfg := config.Load()
	st := openStore(log, cfg)
	defer st.Close()

	filter := store.UploadFilter{UserID: *userID, Limit: *limit}
	if *status != "" {
		parsed, ok := domain.ParseUploadStatus(*status)
		if !ok {
			log.Fatal().Str("status", *status).Msg("Error: unknown status")
		}
		filter.Status = parsed
	}

	ctx := logger.WithContext(context.Background(), log)
	uploads, err := st.ListUploads(ctx, filter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list statements")
	}

	if len(uploads) == 0 {
		fmt.Println("No statements found.")
		return
	}

	for _, up := range uploads {
		line := fmt.Sprintf("%s  %-10s  %-22s  %s", up.ID, up.Status, up.UploadType, up.FileName)
		if up.ErrorMessage != "" {
			line += "  (" + up.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d statement(s)\n", len(uploads))
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	uploadID := fs.String("id", "", "upload ID to inspect")
	fs.Parse(os.Args[2:])

	if *uploadID == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	cfg := config.Load()
	st := openStore(log, cfg)
	defer st.Close()

	ctx := logger.WithContext(context.Background(), log)
	up, err := st.GetUpload(ctx, *uploadID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load statement")
	}

	fmt.Println("\n=== Statement Upload ===")
	fmt.Printf("ID:          %s\n", up.ID)
	fmt.Printf("User:        %s\n", up.UserID)
	fmt.Printf("File:        %s\n", up.FileName)
	fmt.Printf("Type:        %s\n", up.UploadType)
	fmt.Printf("Status:      %s\n", up.Status)
	fmt.Printf("Uploaded:    %s\n", up.UploadedAt.Format(time.RFC3339))
	if up.ProcessedAt != nil {
		fmt.Printf("Processed:   %s\n", up.ProcessedAt.Format(time.RFC3339))
	}
	if up.ConfidenceScore != nil {
		fmt.Printf("Confidence:  %s%%\n", up.ConfidenceScore.StringFixed(2))
	}
	if up.ErrorMessage != "" {
		fmt.Printf("Error:       %s\n", up.ErrorMessage)
	}

	if len(up.ParsedPayload) == 0 {
		fmt.Println()
		return
	}

	res, err := extraction.Decode(up.ParsedPayload)
	if err != nil {
		log.Fatal().Err(err).Msg("Stored payload failed to decode")
	}

	summary := res.AccountSummary
	fmt.Println("\n=== Parsed Account ===")
	if summary.InstitutionName != nil {
		fmt.Printf("Institution: %s\n", *summary.InstitutionName)
	}
	if summary.AccountNumberMasked != nil {
		fmt.Printf("Account:     %s\n", *summary.AccountNumberMasked)
	}
	fmt.Printf("Type:        %s\n", summary.AccountType)
	if summary.ClosingBalance != nil {
		currency := ""
		if summary.Currency != nil {
			currency = " " + *summary.Currency
		}
		fmt.Printf("Closing:     %s%s\n", summary.ClosingBalance.StringFixed(2), currency)
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(res.Transactions))
	for i, txn := range res.Transactions {
		fmt.Printf("\n%d. %s\n", i+1, txn.Description)
		if txn.TransactionDate != nil {
			fmt.Printf("   Date:   %s\n", txn.TransactionDate)
		}
		fmt.Printf("   Type:   %s\n", txn.TransactionType)
		fmt.Printf("   Amount: %s\n", txn.Amount.StringFixed(2))
	}
	fmt.Println()
}

func runPositions(log zerolog.Logger) {
	fs := flag.NewFlagSet("positions", flag.ExitOnError)
	userID := fs.String("user", "", "user whose positions to list")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	cfg := config.Load()
	st := openStore(log, cfg)
	defer st.Close()

	ctx := logger.WithContext(context.Background(), log)
	list, err := st.ListPositions(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list positions")
	}

	if len(list) == 0 {
		fmt.Println("No positions found.")
		return
	}

	// Net worth per currency; mixing currencies without rates would lie.
	assets := make(map[string]decimal.Decimal)
	liabilities := make(map[string]decimal.Decimal)

	fmt.Printf("\n=== Positions (%d) ===\n", len(list))
	for _, pos := range list {
		fmt.Printf("%-9s  %-18s  %-28s  %12s %s\n",
			pos.Kind, pos.Subtype, pos.Name, pos.Value.StringFixed(2), pos.CurrencyCode)
		switch pos.Kind {
		case domain.KindAsset:
			assets[pos.CurrencyCode] = assets[pos.CurrencyCode].Add(pos.Value)
		case domain.KindLiability:
			liabilities[pos.CurrencyCode] = liabilities[pos.CurrencyCode].Add(pos.Value)
		}
	}

	fmt.Println("\n=== Net Worth ===")
	currencies := make(map[string]bool)
	for code := range assets {
		currencies[code] = true
	}
	for code := range liabilities {
		currencies[code] = true
	}
	for code := range currencies {
		net := assets[code].Sub(liabilities[code])
		fmt.Printf("%s: %s assets, %s liabilities, %s net\n",
			code, assets[code].StringFixed(2), liabilities[code].StringFixed(2), net.StringFixed(2))
	}
	fmt.Println()
}

func runProcess(log zerolog.Logger) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	uploadID := fs.String("id", "", "upload ID to process")
	fs.Parse(os.Args[2:])

	if *uploadID == "" {
		log.Fatal().Msg("Error: --id is required")
	}

	cfg := config.Load()
	st := openStore(log, cfg)
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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
		Retry: pipeline.RetryPolicy{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase,
		},
	})

	log.Info().Str("upload_id", *uploadID).Msg("Processing statement")

	res, err := task.ProcessUpload(ctx, *uploadID)
	if err != nil {
		log.Fatal().Err(err).Msg("Processing failed")
	}

	fmt.Printf("\nStatus:   %s\n", res.Status)
	if res.Message != "" {
		fmt.Printf("Message:  %s\n", res.Message)
	}
	fmt.Printf("Attempts: %d\n", res.Attempts)
	if res.Status == pipeline.StatusCompleted {
		fmt.Printf("Created:  %t\n", res.Created)
		fmt.Printf("Updated:  %t\n", res.Updated)
		fmt.Printf("History:  %d entries\n", res.HistoryCount)
		fmt.Printf("Confidence: %s%%\n", res.Confidence.StringFixed(2))
	}
}
