package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/scout/internal/model"
	"github.com/oliveagle/jsonpath"
)

// maxResponseBytes bounds provider response reads (1MB)
const maxResponseBytes = 1024 * 1024

// DeepResearchData is the raw outcome of a Firecrawl deep research run
type DeepResearchData struct {
	FinalAnalysis string
	Sources       []model.Source
	Activities    []string
}

// FirecrawlClient calls the Firecrawl deep research API. A run is submitted
// and then polled until it reaches a terminal status; the caller's context
// bounds the overall wait.
type FirecrawlClient struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration

	httpClient     *http.Client
	retryStrategy  *RetryStrategy
	circuitBreaker *CircuitBreaker
}

// NewFirecrawlClient creates a Firecrawl deep research client
func NewFirecrawlClient(apiKey, baseURL string, timeout, pollInterval time.Duration) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:       apiKey,
		baseURL:      baseURL,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryStrategy:  NewRetryStrategy(RetryConfig{}),
		circuitBreaker: NewCircuitBreaker(),
	}
}

// DeepResearch runs a deep research job for the query and waits for its result
func (c *FirecrawlClient) DeepResearch(ctx context.Context, query string, opts ResearchOptions) (*DeepResearchData, error) {
	researchID, err := c.submit(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	slog.Info("Deep research submitted to Firecrawl",
		"firecrawl_id", researchID,
		"max_depth", opts.MaxDepth,
		"time_limit_seconds", opts.TimeLimit,
		"max_urls", opts.MaxURLs,
	)

	return c.poll(ctx, researchID)
}

// submit starts a deep research run and returns Firecrawl's run ID
func (c *FirecrawlClient) submit(ctx context.Context, query string, opts ResearchOptions) (string, error) {
	payload := map[string]interface{}{
		"query":     query,
		"maxDepth":  opts.MaxDepth,
		"timeLimit": opts.TimeLimit,
		"maxUrls":   opts.MaxURLs,
	}

	body, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v1/deep-research", payload)
	if err != nil {
		return "", newError("firecrawl.deep-research", err)
	}

	id, err := jsonpath.JsonPathLookup(body, "$.id")
	if err != nil {
		return "", newError("firecrawl.deep-research", fmt.Errorf("response missing run id: %w", err))
	}

	researchID, ok := id.(string)
	if !ok || researchID == "" {
		return "", newError("firecrawl.deep-research", fmt.Errorf("unexpected run id %v", id))
	}
	return researchID, nil
}

// poll waits for the run to finish and extracts its result
func (c *FirecrawlClient) poll(ctx context.Context, researchID string) (*DeepResearchData, error) {
	statusURL := fmt.Sprintf("%s/v1/deep-research/%s", c.baseURL, researchID)

	for {
		body, err := c.doJSON(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, newError("firecrawl.deep-research.status", err)
		}

		status, _ := jsonpath.JsonPathLookup(body, "$.status")
		switch status {
		case "completed":
			return c.extractResult(body)
		case "failed", "cancelled":
			detail, _ := jsonpath.JsonPathLookup(body, "$.error")
			return nil, newError("firecrawl.deep-research", fmt.Errorf("run %s %v: %v", researchID, status, detail))
		}

		select {
		case <-ctx.Done():
			return nil, newError("firecrawl.deep-research", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// extractResult pulls the analysis, sources and activity log out of a
// completed run's response
func (c *FirecrawlClient) extractResult(body interface{}) (*DeepResearchData, error) {
	analysis, err := jsonpath.JsonPathLookup(body, "$.data.finalAnalysis")
	if err != nil {
		return nil, newError("firecrawl.deep-research", fmt.Errorf("response missing finalAnalysis: %w", err))
	}

	finalAnalysis, ok := analysis.(string)
	if !ok || finalAnalysis == "" {
		return nil, newError("firecrawl.deep-research", fmt.Errorf("empty finalAnalysis in completed run"))
	}

	result := &DeepResearchData{FinalAnalysis: finalAnalysis}

	if raw, err := jsonpath.JsonPathLookup(body, "$.data.sources"); err == nil {
		if items, ok := raw.([]interface{}); ok {
			for _, item := range items {
				entry, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				source := model.Source{}
				source.URL, _ = entry["url"].(string)
				source.Title, _ = entry["title"].(string)
				source.Description, _ = entry["description"].(string)
				if source.URL != "" {
					result.Sources = append(result.Sources, source)
				}
			}
		}
	}

	if raw, err := jsonpath.JsonPathLookup(body, "$.data.activities"); err == nil {
		if items, ok := raw.([]interface{}); ok {
			for _, item := range items {
				entry, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				activityType, _ := entry["type"].(string)
				message, _ := entry["message"].(string)
				if message != "" {
					result.Activities = append(result.Activities, fmt.Sprintf("[%s] %s", activityType, message))
				}
			}
		}
	}

	return result, nil
}

// doJSON performs an HTTP call with retry and circuit breaking, and decodes
// the JSON response body
func (c *FirecrawlClient) doJSON(ctx context.Context, method, url string, payload interface{}) (interface{}, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryStrategy.GetMaxAttempts(); attempt++ {
		if !c.circuitBreaker.CanAttempt() {
			slog.Warn("Circuit breaker rejecting Firecrawl call",
				"url", url,
				"circuit_state", c.circuitBreaker.GetStateName(),
			)
			return nil, ErrCircuitOpen
		}

		statusCode, body, err := c.doOnce(ctx, method, url, reqBody)
		if err == nil && statusCode >= 200 && statusCode < 300 {
			c.circuitBreaker.RecordSuccess()

			var decoded interface{}
			if err := json.Unmarshal(body, &decoded); err != nil {
				return nil, fmt.Errorf("malformed response: %w", err)
			}
			return decoded, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("http %d: %s", statusCode, truncate(string(body), 200))
		}

		if !c.retryStrategy.ShouldRetry(attempt, statusCode, err) {
			c.circuitBreaker.RecordFailure()
			return nil, lastErr
		}

		slog.Warn("Firecrawl call failed, retrying",
			"url", url,
			"attempt", attempt,
			"max_attempts", c.retryStrategy.GetMaxAttempts(),
			"error", lastErr.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryStrategy.CalculateDelay(attempt)):
		}
	}

	c.circuitBreaker.RecordFailure()
	return nil, fmt.Errorf("call failed after %d attempts: %w", c.retryStrategy.GetMaxAttempts(), lastErr)
}

// doOnce performs a single HTTP attempt
func (c *FirecrawlClient) doOnce(ctx context.Context, method, url string, reqBody []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
