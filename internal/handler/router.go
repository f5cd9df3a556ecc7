package handler

import (
	"net/http"
	"strings"

	"github.com/dandantas/scout/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	researchHandler  *ResearchHandler
	configureHandler *ConfigureHandler
	healthHandler    *HealthHandler
	corsConfig       middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	researchHandler *ResearchHandler,
	configureHandler *ConfigureHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		researchHandler:  researchHandler,
		configureHandler: configureHandler,
		healthHandler:    healthHandler,
		corsConfig:       corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)

	// API endpoints
	mux.HandleFunc("/configure", rt.handleConfigure)
	mux.HandleFunc("/research", rt.handleResearch)
	mux.HandleFunc("/research/sync", rt.handleSync)
	mux.HandleFunc("/research/", rt.handleResearchWithID)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}

// handleConfigure routes the credential configuration endpoint
func (rt *Router) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rt.configureHandler.Configure(w, r)
}

// handleResearch routes the research collection endpoints
func (rt *Router) handleResearch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.researchHandler.List(w, r)
	case http.MethodPost:
		rt.researchHandler.Submit(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSync routes the synchronous research endpoint
func (rt *Router) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rt.researchHandler.Sync(w, r)
}

// handleResearchWithID routes per-research endpoints:
// /research/{id}/status, /research/{id}/results, /research/{id}/download
func (rt *Router) handleResearchWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/research/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	id, action := parts[0], parts[1]
	switch action {
	case "status":
		rt.researchHandler.Status(w, r, id)
	case "results":
		rt.researchHandler.Results(w, r, id)
	case "download":
		rt.researchHandler.Download(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Endpoint not found")
	}
}
