package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dandantas/scout/internal/model"
	"github.com/go-playground/validator/v10"
)

// ProviderConfigurator is the gateway surface the configure endpoint needs
type ProviderConfigurator interface {
	Configure(creds model.Credentials) error
	Configured() bool
}

// ConfigureHandler handles provider credential configuration
type ConfigureHandler struct {
	gateway  ProviderConfigurator
	validate *validator.Validate
}

// NewConfigureHandler creates a new configure handler
func NewConfigureHandler(gateway ProviderConfigurator) *ConfigureHandler {
	return &ConfigureHandler{
		gateway:  gateway,
		validate: validator.New(),
	}
}

// ConfigureResponse acknowledges a successful configuration
type ConfigureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Configure handles POST /configure
func (h *ConfigureHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Configuration error: "+err.Error())
		return
	}

	if err := h.gateway.Configure(creds); err != nil {
		writeError(w, http.StatusBadRequest, "Configuration error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ConfigureResponse{
		Success: true,
		Message: "API keys configured successfully",
	})
}
