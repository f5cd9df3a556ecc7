package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dandantas/scout/internal/config"
	"github.com/dandantas/scout/internal/model"
)

// ResearchOptions tunes a single research call
type ResearchOptions struct {
	MaxDepth  int
	TimeLimit int // In seconds
	MaxURLs   int
}

// ResearchResult is the outcome of a successful research call
type ResearchResult struct {
	Report     string
	Sources    []model.Source
	Activities []string
}

// Researcher produces a research report and its sources for a topic
type Researcher interface {
	Research(ctx context.Context, topic string, opts ResearchOptions) (*ResearchResult, error)
}

// Enhancer improves an existing research report
type Enhancer interface {
	Enhance(ctx context.Context, topic, report string) (string, error)
}

// Gateway is the uniform call contract over the external research and
// enhancement providers. It starts unconfigured; Configure swaps in fresh
// clients and may be called again to rotate credentials.
type Gateway struct {
	cfg *config.Config

	mu         sync.RWMutex
	researcher Researcher
	enhancer   Enhancer
}

// NewGateway creates an unconfigured gateway
func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{cfg: cfg}
}

// Configure validates the credentials and builds the provider clients
func (g *Gateway) Configure(creds model.Credentials) error {
	if creds.GeminiAPIKey == "" {
		return errors.New("gemini_api_key is required")
	}
	if creds.FirecrawlAPIKey == "" {
		return errors.New("firecrawl_api_key is required")
	}

	crawler := NewFirecrawlClient(creds.FirecrawlAPIKey, g.cfg.FirecrawlBaseURL, g.cfg.ProviderTimeout, g.cfg.FirecrawlPollInterval)
	llm := NewGeminiClient(creds.GeminiAPIKey, g.cfg.GeminiBaseURL, g.cfg.GeminiModel)

	g.mu.Lock()
	g.researcher = NewResearchAgent(crawler, llm)
	g.enhancer = NewElaborationAgent(llm)
	g.mu.Unlock()

	slog.Info("Provider gateway configured",
		"firecrawl_base_url", g.cfg.FirecrawlBaseURL,
		"gemini_model", g.cfg.GeminiModel,
	)
	return nil
}

// Configured reports whether credentials have been set
func (g *Gateway) Configured() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.researcher != nil && g.enhancer != nil
}

// Research runs the research provider for a topic
func (g *Gateway) Research(ctx context.Context, topic string, opts ResearchOptions) (*ResearchResult, error) {
	g.mu.RLock()
	researcher := g.researcher
	g.mu.RUnlock()

	if researcher == nil {
		return nil, ErrNotConfigured
	}
	return researcher.Research(ctx, topic, opts)
}

// Enhance runs the enhancement provider over an existing report
func (g *Gateway) Enhance(ctx context.Context, topic, report string) (string, error) {
	g.mu.RLock()
	enhancer := g.enhancer
	g.mu.RUnlock()

	if enhancer == nil {
		return "", ErrNotConfigured
	}
	return enhancer.Enhance(ctx, topic, report)
}
