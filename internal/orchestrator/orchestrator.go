package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dandantas/scout/internal/config"
	"github.com/dandantas/scout/internal/model"
	"github.com/dandantas/scout/internal/provider"
	"github.com/dandantas/scout/internal/registry"
)

// Gateway is the provider surface the orchestrator drives
type Gateway interface {
	Configured() bool
	Research(ctx context.Context, topic string, opts provider.ResearchOptions) (*provider.ResearchResult, error)
	Enhance(ctx context.Context, topic, report string) (string, error)
}

// Orchestrator runs the research workflow for each job exactly once:
// pending -> running -> {completed, failed}, bounded by the job's time limit.
// Every state change goes through the registry; the forward-only transition
// guard there discards late provider results after a timeout.
type Orchestrator struct {
	cfg      *config.Config
	registry *registry.Registry
	gateway  Gateway

	wg        sync.WaitGroup
	semaphore chan struct{} // Limits concurrent workflows

	mu   sync.Mutex
	done map[string]chan struct{} // Per-job completion signals
}

// New creates an orchestrator over the given registry and provider gateway
func New(cfg *config.Config, reg *registry.Registry, gateway Gateway) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		registry:  reg,
		gateway:   gateway,
		semaphore: make(chan struct{}, cfg.MaxConcurrentJobs),
		done:      make(map[string]chan struct{}),
	}
}

// Submit creates a job and schedules its workflow in the background,
// returning the new research ID immediately
func (o *Orchestrator) Submit(ctx context.Context, topic string, params model.Parameters) (string, error) {
	if !o.gateway.Configured() {
		return "", provider.ErrNotConfigured
	}

	params.SetDefaults()
	if err := params.Validate(); err != nil {
		return "", err
	}

	job := o.registry.Create(topic, params)

	doneCh := make(chan struct{})
	o.mu.Lock()
	o.done[job.ID] = doneCh
	o.mu.Unlock()

	o.wg.Add(1)
	go o.runWorkflow(job.ID, topic, params, doneCh)

	slog.Info("Research submitted",
		"research_id", job.ID,
		"topic", topic,
		"max_depth", params.MaxDepth,
		"time_limit_seconds", params.TimeLimit,
		"max_urls", params.MaxURLs,
		"enhance_report", params.EnhanceReport,
	)

	return job.ID, nil
}

// RunSync runs the identical workflow but blocks until the job reaches a
// terminal state, then returns its record. The caller's context only bounds
// the wait; the workflow itself keeps running if the caller gives up.
func (o *Orchestrator) RunSync(ctx context.Context, topic string, params model.Parameters) (model.Job, error) {
	id, err := o.Submit(ctx, topic, params)
	if err != nil {
		return model.Job{}, err
	}

	o.mu.Lock()
	doneCh := o.done[id]
	o.mu.Unlock()

	select {
	case <-doneCh:
	case <-ctx.Done():
		return model.Job{}, ctx.Err()
	}

	return o.registry.Get(id)
}

// Await blocks until the job's workflow has finished or ctx expires.
// Returns false when the ID is unknown.
func (o *Orchestrator) Await(ctx context.Context, id string) bool {
	o.mu.Lock()
	doneCh, exists := o.done[id]
	o.mu.Unlock()

	if !exists {
		return false
	}

	select {
	case <-doneCh:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop waits for in-flight workflows to finish, logging any it has to abandon
// when ctx expires
func (o *Orchestrator) Stop(ctx context.Context) {
	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		slog.Info("All research workflows completed")
	case <-ctx.Done():
		for _, summary := range o.registry.List() {
			if !summary.Status.Terminal() {
				slog.Warn("Abandoning in-flight research on shutdown",
					"research_id", summary.ID,
					"status", summary.Status,
				)
			}
		}
	}
}

// runWorkflow drives one job from running to a terminal state
func (o *Orchestrator) runWorkflow(id, topic string, params model.Parameters, doneCh chan struct{}) {
	defer o.wg.Done()
	defer close(doneCh)
	defer func() {
		if r := recover(); r != nil {
			o.fail(id, fmt.Errorf("workflow panic: %v", r))
		}
	}()

	o.semaphore <- struct{}{}
	defer func() { <-o.semaphore }()

	if err := o.transition(id, model.StatusRunning, "Conducting initial research"); err != nil {
		slog.Error("Failed to start research workflow", "research_id", id, "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), params.TimeBudget())
	defer cancel()

	result, err := o.research(ctx, topic, params)
	if err != nil {
		o.fail(id, err)
		return
	}

	commitErr := o.registry.Update(id, func(j *model.Job) error {
		j.InitialReport = result.Report
		j.Sources = result.Sources
		j.Activities = result.Activities
		if params.EnhanceReport {
			j.CurrentStep = "Enhancing report with additional information"
		}
		return nil
	})
	if commitErr != nil {
		slog.Error("Failed to commit research result", "research_id", id, "error", commitErr.Error())
		return
	}

	if params.EnhanceReport {
		enhanced, err := o.enhance(ctx, topic, result.Report)
		if err != nil {
			// Enhancement failure is non-fatal: the initial report stands
			slog.Warn("Report enhancement failed, keeping initial report",
				"research_id", id,
				"error", err.Error(),
			)
			o.registry.Update(id, func(j *model.Job) error {
				j.Warning = "report enhancement failed: " + err.Error()
				return nil
			})
		} else {
			o.registry.Update(id, func(j *model.Job) error {
				j.EnhancedReport = enhanced
				return nil
			})
		}
	}

	o.complete(id)
}

// research invokes the research provider, never waiting past ctx. The
// provider call runs in its own goroutine so an unresponsive provider cannot
// wedge the workflow; a late result is simply dropped.
func (o *Orchestrator) research(ctx context.Context, topic string, params model.Parameters) (*provider.ResearchResult, error) {
	type outcome struct {
		result *provider.ResearchResult
		err    error
	}

	resultCh := make(chan outcome, 1)
	go func() {
		result, err := o.gateway.Research(ctx, topic, provider.ResearchOptions{
			MaxDepth:  params.MaxDepth,
			TimeLimit: params.TimeLimit,
			MaxURLs:   params.MaxURLs,
		})
		resultCh <- outcome{result: result, err: err}
	}()

	select {
	case out := <-resultCh:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("research timed out after %d seconds", params.TimeLimit)
		}
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("research timed out after %d seconds", params.TimeLimit)
	}
}

// enhance invokes the enhancement provider under the remaining time budget
func (o *Orchestrator) enhance(ctx context.Context, topic, report string) (string, error) {
	type outcome struct {
		report string
		err    error
	}

	resultCh := make(chan outcome, 1)
	go func() {
		enhanced, err := o.gateway.Enhance(ctx, topic, report)
		resultCh <- outcome{report: enhanced, err: err}
	}()

	select {
	case out := <-resultCh:
		return out.report, out.err
	case <-ctx.Done():
		return "", fmt.Errorf("enhancement timed out: %w", ctx.Err())
	}
}

// transition moves the job to the given status
func (o *Orchestrator) transition(id string, status model.Status, step string) error {
	return o.registry.Update(id, func(j *model.Job) error {
		j.Status = status
		j.CurrentStep = step
		return nil
	})
}

// complete commits the terminal completed state
func (o *Orchestrator) complete(id string) {
	err := o.registry.Update(id, func(j *model.Job) error {
		now := time.Now().UTC()
		j.Status = model.StatusCompleted
		j.CurrentStep = "Research completed successfully"
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		slog.Error("Failed to complete research", "research_id", id, "error", err.Error())
		return
	}

	slog.Info("Research completed", "research_id", id)
}

// fail commits the terminal failed state. When the record is already
// terminal (a provider result arriving after a timeout) the transition guard
// rejects the write and the result is discarded.
func (o *Orchestrator) fail(id string, cause error) {
	err := o.registry.Update(id, func(j *model.Job) error {
		now := time.Now().UTC()
		j.Status = model.StatusFailed
		j.CurrentStep = "Error: " + cause.Error()
		j.Error = cause.Error()
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, registry.ErrInvalidTransition) {
			slog.Debug("Discarding late workflow result", "research_id", id, "cause", cause.Error())
			return
		}
		slog.Error("Failed to record research failure", "research_id", id, "error", err.Error())
		return
	}

	slog.Error("Research failed", "research_id", id, "error", cause.Error())
}
