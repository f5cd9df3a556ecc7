package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() ResearchOptions {
	return ResearchOptions{MaxDepth: 2, TimeLimit: 30, MaxURLs: 3}
}

func newTestFirecrawl(baseURL string) *FirecrawlClient {
	client := NewFirecrawlClient("fc-test-key", baseURL, 5*time.Second, 10*time.Millisecond)
	// Tight retry delays for tests
	client.retryStrategy = NewRetryStrategy(RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})
	return client
}

func TestDeepResearchSubmitAndPoll(t *testing.T) {
	var polls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fc-test-key", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/deep-research":
			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "quantum computing", payload["query"])
			assert.Equal(t, float64(2), payload["maxDepth"])
			assert.Equal(t, float64(30), payload["timeLimit"])
			assert.Equal(t, float64(3), payload["maxUrls"])

			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "id": "run-1"})

		case r.Method == http.MethodGet && r.URL.Path == "/v1/deep-research/run-1":
			if atomic.AddInt32(&polls, 1) < 3 {
				json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "status": "processing"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"status":  "completed",
				"data": map[string]interface{}{
					"finalAnalysis": "deep analysis text",
					"sources": []map[string]interface{}{
						{"url": "http://a", "title": "Source A", "description": "first"},
						{"url": "http://b"},
					},
					"activities": []map[string]interface{}{
						{"type": "search", "message": "searching the web"},
					},
				},
			})

		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestFirecrawl(server.URL)
	data, err := client.DeepResearch(context.Background(), "quantum computing", testOptions())
	require.NoError(t, err)

	assert.Equal(t, "deep analysis text", data.FinalAnalysis)
	require.Len(t, data.Sources, 2)
	assert.Equal(t, "http://a", data.Sources[0].URL)
	assert.Equal(t, "Source A", data.Sources[0].Title)
	assert.Equal(t, "http://b", data.Sources[1].URL)
	assert.Equal(t, []string{"[search] searching the web"}, data.Activities)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
}

func TestDeepResearchRetriesServerErrors(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "id": "run-2"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"status":  "completed",
			"data":    map[string]interface{}{"finalAnalysis": "ok"},
		})
	}))
	defer server.Close()

	client := newTestFirecrawl(server.URL)
	data, err := client.DeepResearch(context.Background(), "topic", testOptions())
	require.NoError(t, err)
	assert.Equal(t, "ok", data.FinalAnalysis)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestDeepResearchDoesNotRetryClientErrors(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	}))
	defer server.Close()

	client := newTestFirecrawl(server.URL)
	_, err := client.DeepResearch(context.Background(), "topic", testOptions())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))

	var providerErr *Error
	assert.ErrorAs(t, err, &providerErr)
}

func TestDeepResearchFailedRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "id": "run-3"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"status":  "failed",
			"error":   "crawl budget exhausted",
		})
	}))
	defer server.Close()

	client := newTestFirecrawl(server.URL)
	_, err := client.DeepResearch(context.Background(), "topic", testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl budget exhausted")
}

func TestDeepResearchHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "id": "run-4"})
			return
		}
		// Never completes
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "status": "processing"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := newTestFirecrawl(server.URL)
	_, err := client.DeepResearch(ctx, "topic", testOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
