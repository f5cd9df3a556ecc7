package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dandantas/scout/internal/model"
	"github.com/dandantas/scout/internal/orchestrator"
	"github.com/dandantas/scout/internal/registry"
	"github.com/go-playground/validator/v10"
)

// ResearchHandler handles research submission and retrieval
type ResearchHandler struct {
	orchestrator *orchestrator.Orchestrator
	registry     *registry.Registry
	validate     *validator.Validate
}

// NewResearchHandler creates a new research handler
func NewResearchHandler(orc *orchestrator.Orchestrator, reg *registry.Registry) *ResearchHandler {
	return &ResearchHandler{
		orchestrator: orc,
		registry:     reg,
		validate:     validator.New(),
	}
}

// ResearchRequest is the submission body for both the async and sync endpoints
type ResearchRequest struct {
	Topic         string `json:"topic" validate:"required,min=1"`
	MaxDepth      int    `json:"max_depth" validate:"omitempty,gte=1,lte=5"`
	TimeLimit     int    `json:"time_limit" validate:"omitempty,gte=30,lte=600"`
	MaxURLs       int    `json:"max_urls" validate:"omitempty,gte=1,lte=50"`
	EnhanceReport bool   `json:"enhance_report"`
}

// parameters converts the request into job parameters with defaults applied
func (req *ResearchRequest) parameters() model.Parameters {
	params := model.Parameters{
		MaxDepth:      req.MaxDepth,
		TimeLimit:     req.TimeLimit,
		MaxURLs:       req.MaxURLs,
		EnhanceReport: req.EnhanceReport,
	}
	params.SetDefaults()
	return params
}

// SubmitResponse is the async submission acknowledgement
type SubmitResponse struct {
	ResearchID string `json:"research_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// SyncResponse carries the full terminal record plus a success flag, so a
// failed job still comes back in a 200 body with its error details
type SyncResponse struct {
	Success bool `json:"success"`
	model.Job
}

// decodeRequest decodes and validates a submission body
func (h *ResearchHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*ResearchRequest, bool) {
	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}

	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "topic is required")
		return nil, false
	}

	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return nil, false
	}

	return &req, true
}

// Submit handles POST /research
func (h *ResearchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	id, err := h.orchestrator.Submit(r.Context(), req.Topic, req.parameters())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		ResearchID: id,
		Status:     string(model.StatusPending),
		Message:    "Research process started",
	})
}

// Sync handles POST /research/sync
func (h *ResearchHandler) Sync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	job, err := h.orchestrator.RunSync(r.Context(), req.Topic, req.parameters())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Success: job.Status == model.StatusCompleted,
		Job:     job,
	})
}

// List handles GET /research
func (h *ResearchHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// Status handles GET /research/{id}/status
func (h *ResearchHandler) Status(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job.Summary())
}

// Results handles GET /research/{id}/results
func (h *ResearchHandler) Results(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Success: job.Status == model.StatusCompleted,
		Job:     job,
	})
}

// Download handles GET /research/{id}/download
func (h *ResearchHandler) Download(w http.ResponseWriter, r *http.Request, id string) {
	format := r.URL.Query().Get("format")
	if format != "" && !strings.EqualFold(format, "markdown") {
		writeError(w, http.StatusBadRequest, "Unsupported format. Only 'markdown' is supported.")
		return
	}

	job, err := h.registry.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if job.Status != model.StatusCompleted {
		writeError(w, http.StatusBadRequest, "Research was not successful")
		return
	}

	report := job.Report()
	if report == "" {
		writeError(w, http.StatusNotFound, "No report content available")
		return
	}

	filename := strings.ReplaceAll(job.Topic, " ", "_") + "_report.md"
	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report))
}
