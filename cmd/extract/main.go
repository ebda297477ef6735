// Runs a single extraction against a local statement file and dumps the
// validated JSON. Debugging harness for the prompt and response schema;
// touches no store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/networth-labs/tracker/internal/config"
	"github.com/networth-labs/tracker/internal/extraction"
	"github.com/networth-labs/tracker/internal/filestore"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func run() error {
	var (
		filePath = flag.String("file", "", "path to the statement file (PDF or image)")
		model    = flag.String("model", "", "model name override (defaults to GEMINI_MODEL)")
	)
	flag.Parse()

	if *filePath == "" {
		return fmt.Errorf("-file is required")
	}

	cfg := config.Load()
	if *model != "" {
		cfg.GeminiModel = *model
	}

	client := extraction.NewClient(extraction.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err := client.Ready(); err != nil {
		return fmt.Errorf("GEMINI_API_KEY is required: %w", err)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("reading statement file: %w", err)
	}
	mimeType := filestore.DetectMIMEType(filepath.Base(*filePath))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := client.Extract(ctx, data, mimeType)
	if err != nil {
		// Contract violations get spelled out per field; everything else
		// is opaque.
		var verr *extraction.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Response violates the extraction contract (%d problem(s)):\n", len(verr.Fields))
			for _, f := range verr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Path, f.Message)
			}
			os.Exit(1)
		}
		return fmt.Errorf("extracting: %w", err)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering result: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
