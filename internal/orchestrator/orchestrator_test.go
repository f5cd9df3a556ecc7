package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dandantas/scout/internal/config"
	"github.com/dandantas/scout/internal/model"
	"github.com/dandantas/scout/internal/provider"
	"github.com/dandantas/scout/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway is a deterministic provider gateway for workflow tests
type stubGateway struct {
	unconfigured bool

	researchDelay time.Duration
	researchErr   error
	report        string // When empty, derived from the topic
	sources       []model.Source
	activities    []string

	enhanceDelay time.Duration
	enhanceErr   error
	enhanced     string

	mu            sync.Mutex
	researchCalls int
}

func (g *stubGateway) Configured() bool {
	return !g.unconfigured
}

func (g *stubGateway) Research(ctx context.Context, topic string, opts provider.ResearchOptions) (*provider.ResearchResult, error) {
	g.mu.Lock()
	g.researchCalls++
	g.mu.Unlock()

	select {
	case <-time.After(g.researchDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if g.researchErr != nil {
		return nil, g.researchErr
	}

	report := g.report
	if report == "" {
		report = "report on " + topic
	}
	sources := g.sources
	if sources == nil {
		sources = []model.Source{{URL: "http://" + topic}}
	}

	return &provider.ResearchResult{
		Report:     report,
		Sources:    sources,
		Activities: g.activities,
	}, nil
}

func (g *stubGateway) Enhance(ctx context.Context, topic, report string) (string, error) {
	select {
	case <-time.After(g.enhanceDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if g.enhanceErr != nil {
		return "", g.enhanceErr
	}
	if g.enhanced != "" {
		return g.enhanced, nil
	}
	return report + "-enhanced", nil
}

func testConfig() *config.Config {
	return &config.Config{MaxConcurrentJobs: 64}
}

func newTestOrchestrator(gateway Gateway) (*Orchestrator, *registry.Registry) {
	reg := registry.New()
	return New(testConfig(), reg, gateway), reg
}

func awaitTerminal(t *testing.T, o *Orchestrator, id string, within time.Duration) model.Job {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	require.True(t, o.Await(ctx, id), "job %s did not finish within %s", id, within)

	job, err := o.registry.Get(id)
	require.NoError(t, err)
	require.True(t, job.Status.Terminal())
	return job
}

func TestSubmitRejectsWhenNotConfigured(t *testing.T) {
	o, _ := newTestOrchestrator(&stubGateway{unconfigured: true})

	_, err := o.Submit(context.Background(), "topic", model.Parameters{})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestSubmitRejectsInvalidParameters(t *testing.T) {
	o, _ := newTestOrchestrator(&stubGateway{})

	_, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: -5})
	require.Error(t, err)
}

func TestSubmitReturnsImmediately(t *testing.T) {
	o, reg := newTestOrchestrator(&stubGateway{researchDelay: 500 * time.Millisecond})

	start := time.Now()
	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 30})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// Right after submission the job is pending or running, never completed
	job, err := reg.Get(id)
	require.NoError(t, err)
	assert.Contains(t, []model.Status{model.StatusPending, model.StatusRunning}, job.Status)

	awaitTerminal(t, o, id, 3*time.Second)
}

func TestWorkflowCompletes(t *testing.T) {
	gateway := &stubGateway{
		researchDelay: 20 * time.Millisecond,
		report:        "R1",
		sources:       []model.Source{{URL: "http://a"}},
		activities:    []string{"[search] found a source"},
	}
	o, _ := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "quantum computing", model.Parameters{TimeLimit: 30})
	require.NoError(t, err)

	job := awaitTerminal(t, o, id, 3*time.Second)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, "R1", job.InitialReport)
	assert.Empty(t, job.EnhancedReport)
	require.Len(t, job.Sources, 1)
	assert.Equal(t, "http://a", job.Sources[0].URL)
	assert.Equal(t, []string{"[search] found a source"}, job.Activities)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.CompletedAt)
}

func TestWorkflowWithEnhancement(t *testing.T) {
	gateway := &stubGateway{
		researchDelay: 20 * time.Millisecond,
		report:        "R1",
		sources:       []model.Source{{URL: "http://a"}},
		enhanceDelay:  20 * time.Millisecond,
		enhanced:      "R1-enhanced",
	}
	o, _ := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "quantum computing", model.Parameters{
		MaxDepth:      2,
		TimeLimit:     5,
		MaxURLs:       3,
		EnhanceReport: true,
	})
	require.NoError(t, err)

	job := awaitTerminal(t, o, id, 3*time.Second)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, "R1", job.InitialReport)
	assert.Equal(t, "R1-enhanced", job.EnhancedReport)
	assert.Equal(t, "http://a", job.Sources[0].URL)
	assert.Empty(t, job.Warning)
}

func TestEnhancementFailureIsNonFatal(t *testing.T) {
	gateway := &stubGateway{
		report:     "R1",
		enhanceErr: errors.New("quota exceeded"),
	}
	o, _ := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 30, EnhanceReport: true})
	require.NoError(t, err)

	job := awaitTerminal(t, o, id, 3*time.Second)
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, "R1", job.InitialReport)
	assert.Empty(t, job.EnhancedReport)
	assert.Contains(t, job.Warning, "quota exceeded")
	assert.Empty(t, job.Error)
}

func TestProviderFailureFailsJob(t *testing.T) {
	gateway := &stubGateway{researchErr: errors.New("network unreachable")}
	o, _ := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 30})
	require.NoError(t, err)

	job := awaitTerminal(t, o, id, 3*time.Second)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "network unreachable")
	assert.Empty(t, job.InitialReport)
	assert.Empty(t, job.Sources)
	require.NotNil(t, job.CompletedAt)
}

func TestTimeLimitFailsJob(t *testing.T) {
	gateway := &stubGateway{researchDelay: 5 * time.Second, report: "too late"}
	o, _ := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 1})
	require.NoError(t, err)

	job := awaitTerminal(t, o, id, 3*time.Second)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "timed out")
	assert.Empty(t, job.InitialReport)
}

func TestLateResultAfterTimeoutIsDiscarded(t *testing.T) {
	gateway := &stubGateway{researchDelay: 1500 * time.Millisecond, report: "late"}
	o, reg := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 1})
	require.NoError(t, err)

	job := awaitTerminal(t, o, id, 3*time.Second)
	require.Equal(t, model.StatusFailed, job.Status)

	// Let the abandoned provider call land, then verify nothing changed
	time.Sleep(1 * time.Second)
	job, err = reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Empty(t, job.InitialReport)
}

func TestStatusIsMonotonic(t *testing.T) {
	gateway := &stubGateway{researchDelay: 200 * time.Millisecond}
	o, reg := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 30})
	require.NoError(t, err)

	rank := map[model.Status]int{
		model.StatusPending:   0,
		model.StatusRunning:   1,
		model.StatusCompleted: 2,
		model.StatusFailed:    2,
	}

	last := -1
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := reg.Get(id)
		require.NoError(t, err)
		require.GreaterOrEqual(t, rank[job.Status], last, "status regressed to %s", job.Status)
		last = rank[job.Status]
		if job.Status.Terminal() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
}

func TestRunSyncMatchesSubmitAndPoll(t *testing.T) {
	gateway := &stubGateway{
		researchDelay: 20 * time.Millisecond,
		report:        "R1",
		sources:       []model.Source{{URL: "http://a"}},
		enhanceDelay:  20 * time.Millisecond,
		enhanced:      "R1-enhanced",
	}
	o, _ := newTestOrchestrator(gateway)

	params := model.Parameters{MaxDepth: 2, TimeLimit: 5, MaxURLs: 3, EnhanceReport: true}

	syncJob, err := o.RunSync(context.Background(), "quantum computing", params)
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, syncJob.Status)

	id, err := o.Submit(context.Background(), "quantum computing", params)
	require.NoError(t, err)
	asyncJob := awaitTerminal(t, o, id, 3*time.Second)

	// Identical terminal records apart from identity and timing
	assert.Equal(t, syncJob.Status, asyncJob.Status)
	assert.Equal(t, syncJob.InitialReport, asyncJob.InitialReport)
	assert.Equal(t, syncJob.EnhancedReport, asyncJob.EnhancedReport)
	assert.Equal(t, syncJob.Sources, asyncJob.Sources)
	assert.Equal(t, syncJob.Error, asyncJob.Error)
	assert.Equal(t, syncJob.Warning, asyncJob.Warning)
}

func TestRunSyncReturnsFailedRecord(t *testing.T) {
	gateway := &stubGateway{researchErr: errors.New("crawler down")}
	o, _ := newTestOrchestrator(gateway)

	job, err := o.RunSync(context.Background(), "topic", model.Parameters{TimeLimit: 30})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "crawler down")
}

func TestConcurrentSubmissions(t *testing.T) {
	gateway := &stubGateway{researchDelay: 10 * time.Millisecond}
	o, reg := newTestOrchestrator(gateway)

	const n = 50
	ids := make([]string, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := o.Submit(context.Background(), fmt.Sprintf("topic-%d", i), model.Parameters{TimeLimit: 30})
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, id := range ids {
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate research id")
		seen[id] = true

		job := awaitTerminal(t, o, id, 5*time.Second)
		assert.Equal(t, model.StatusCompleted, job.Status)

		// No cross-contamination between records
		topic := fmt.Sprintf("topic-%d", i)
		assert.Equal(t, "report on "+topic, job.InitialReport)
		require.Len(t, job.Sources, 1)
		assert.Equal(t, "http://"+topic, job.Sources[0].URL)
	}

	assert.Equal(t, n, reg.Len())
}

func TestStopDrainsInFlightWork(t *testing.T) {
	gateway := &stubGateway{researchDelay: 100 * time.Millisecond}
	o, reg := newTestOrchestrator(gateway)

	id, err := o.Submit(context.Background(), "topic", model.Parameters{TimeLimit: 30})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	o.Stop(ctx)

	job, err := reg.Get(id)
	require.NoError(t, err)
	assert.True(t, job.Status.Terminal())
}
