// Package api assembles the HTTP surface: route table, middleware
// chain and handler wiring.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/networth-labs/tracker/internal/api/handlers"
	"github.com/networth-labs/tracker/internal/api/middleware"
	"github.com/networth-labs/tracker/internal/archive"
	"github.com/networth-labs/tracker/internal/filestore"
	"github.com/networth-labs/tracker/internal/jobs"
	"github.com/networth-labs/tracker/internal/observability"
	"github.com/networth-labs/tracker/internal/positions"
	"github.com/networth-labs/tracker/internal/rates"
	"github.com/networth-labs/tracker/internal/store"
)

// Deps carries everything the router needs. Rates and Metrics may be
// nil when the corresponding backend is not configured; Archive
// defaults to a no-op sink.
type Deps struct {
	Log       zerolog.Logger
	Store     store.Store
	Files     filestore.Store
	Publisher jobs.Publisher
	JobStore  jobs.JobStore
	Positions *positions.Service
	Rates     *rates.Service
	Archive   archive.Sink
	Metrics   *observability.Metrics
}

// NewRouter builds the full route table wrapped in the middleware chain.
func NewRouter(deps Deps) http.Handler {
	if deps.Archive == nil {
		deps.Archive = archive.NopSink{}
	}

	statementsHandler := handlers.NewStatementsHandler(deps.Store, deps.Files, deps.Publisher)
	positionsHandler := handlers.NewPositionsHandler(deps.Positions, deps.Store)
	ratesHandler := handlers.NewRatesHandler(deps.Rates)
	runsHandler := handlers.NewRunsHandler(deps.Archive)
	jobsHandler := handlers.NewJobsHandler(deps.JobStore)

	mux := http.NewServeMux()

	// Statements endpoints
	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			statementsHandler.List(w, r)
		case http.MethodPost:
			statementsHandler.Upload(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/statements/", func(w http.ResponseWriter, r *http.Request) {
		uploadID, action := splitResourcePath(r.URL.Path, "/api/statements/")
		if uploadID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Statement ID is required")
			return
		}
		switch {
		case action == "" && r.Method == http.MethodGet:
			statementsHandler.Get(w, r, uploadID)
		case action == "reprocess" && r.Method == http.MethodPost:
			statementsHandler.Reprocess(w, r, uploadID)
		case action == "review" && r.Method == http.MethodPost:
			statementsHandler.Review(w, r, uploadID)
		case action == "" || action == "reprocess" || action == "review":
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Positions endpoints
	mux.HandleFunc("/api/positions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			positionsHandler.List(w, r)
		case http.MethodPost:
			positionsHandler.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/positions/", func(w http.ResponseWriter, r *http.Request) {
		positionID, action := splitResourcePath(r.URL.Path, "/api/positions/")
		if positionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Position ID is required")
			return
		}
		switch {
		case action == "value" && r.Method == http.MethodPost:
			positionsHandler.SetValue(w, r, positionID)
		case action == "history" && r.Method == http.MethodGet:
			positionsHandler.History(w, r, positionID)
		case action == "value" || action == "history":
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Rates endpoint
	mux.HandleFunc("/api/rates/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ratesHandler.Refresh(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Extraction run archive
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.Recent(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.Get(w, r, jobID)
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

	if deps.Metrics != nil && deps.Metrics.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.RequestID(deps.Log)(handler)
	handler = middleware.Logger(deps.Log)(handler)
	handler = middleware.Recovery(deps.Log)(handler)
	return handler
}

// splitResourcePath pulls the resource ID and optional trailing action
// out of a path like /api/statements/{id}/reprocess.
func splitResourcePath(path, prefix string) (id, action string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
