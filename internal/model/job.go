package model

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a research job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// transitions is the forward-only state machine: pending -> running -> {completed, failed}
var transitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// Terminal reports whether no further transitions are permitted
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a transition from s to next is permitted
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Source represents a single source consulted during research
type Source struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Job represents one research request's full lifecycle
type Job struct {
	ID             string     `json:"research_id"`
	Topic          string     `json:"topic"`
	Parameters     Parameters `json:"parameters"`
	Status         Status     `json:"status"`
	CurrentStep    string     `json:"current_step"`
	InitialReport  string     `json:"initial_report,omitempty"`
	EnhancedReport string     `json:"enhanced_report,omitempty"`
	Sources        []Source   `json:"sources,omitempty"`
	Activities     []string   `json:"activities,omitempty"`
	Warning        string     `json:"warning,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the job, safe to hand out across goroutines
func (j *Job) Clone() Job {
	clone := *j
	if j.Sources != nil {
		clone.Sources = make([]Source, len(j.Sources))
		copy(clone.Sources, j.Sources)
	}
	if j.Activities != nil {
		clone.Activities = make([]string, len(j.Activities))
		copy(clone.Activities, j.Activities)
	}
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return clone
}

// Report returns the best available report text (enhanced when present)
func (j *Job) Report() string {
	if j.EnhancedReport != "" {
		return j.EnhancedReport
	}
	return j.InitialReport
}

// JobSummary is the listing view of a job
type JobSummary struct {
	ID          string     `json:"research_id"`
	Topic       string     `json:"topic"`
	Status      Status     `json:"status"`
	CurrentStep string     `json:"current_step"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Summary returns the listing view of the job
func (j *Job) Summary() JobSummary {
	summary := JobSummary{
		ID:          j.ID,
		Topic:       j.Topic,
		Status:      j.Status,
		CurrentStep: j.CurrentStep,
		CreatedAt:   j.CreatedAt,
	}
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		summary.CompletedAt = &completedAt
	}
	return summary
}

// Parameters holds the research tuning knobs for a job
type Parameters struct {
	MaxDepth      int  `json:"max_depth"`
	TimeLimit     int  `json:"time_limit"` // In seconds
	MaxURLs       int  `json:"max_urls"`
	EnhanceReport bool `json:"enhance_report"`
}

// Default parameter values, matching the submission endpoint's documented defaults
const (
	DefaultMaxDepth  = 3
	DefaultTimeLimit = 180
	DefaultMaxURLs   = 10
)

// SetDefaults fills in default values for unset parameters
func (p *Parameters) SetDefaults() {
	if p.MaxDepth == 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	if p.TimeLimit == 0 {
		p.TimeLimit = DefaultTimeLimit
	}
	if p.MaxURLs == 0 {
		p.MaxURLs = DefaultMaxURLs
	}
}

// Validate validates parameter values
func (p *Parameters) Validate() error {
	if p.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", p.MaxDepth)
	}
	if p.TimeLimit <= 0 {
		return fmt.Errorf("time_limit must be positive, got %d", p.TimeLimit)
	}
	if p.MaxURLs <= 0 {
		return fmt.Errorf("max_urls must be positive, got %d", p.MaxURLs)
	}
	return nil
}

// TimeBudget returns the time limit as a duration
func (p *Parameters) TimeBudget() time.Duration {
	return time.Duration(p.TimeLimit) * time.Second
}

// Credentials holds the API keys for the external research providers
type Credentials struct {
	GeminiAPIKey    string `json:"gemini_api_key" validate:"required"`
	FirecrawlAPIKey string `json:"firecrawl_api_key" validate:"required"`
}
