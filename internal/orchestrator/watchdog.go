package orchestrator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Watchdog periodically reports jobs that are running past their time budget.
// It only observes: stuck jobs are failed by their own workflow's deadline,
// the watchdog just makes them visible in the logs.
type Watchdog struct {
	orchestrator *Orchestrator
	grace        time.Duration
	cron         *cron.Cron
}

// NewWatchdog creates a watchdog over the orchestrator's registry
func NewWatchdog(o *Orchestrator, grace time.Duration) *Watchdog {
	return &Watchdog{
		orchestrator: o,
		grace:        grace,
		cron:         cron.New(),
	}
}

// Start begins the periodic overdue scan
func (w *Watchdog) Start(interval time.Duration) error {
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := w.cron.AddFunc(spec, w.scan); err != nil {
		return fmt.Errorf("schedule watchdog: %w", err)
	}

	w.cron.Start()
	slog.Info("Watchdog started", "interval", interval, "grace", w.grace)
	return nil
}

// Stop halts the scan and waits for a running one to finish
func (w *Watchdog) Stop() {
	<-w.cron.Stop().Done()
	slog.Info("Watchdog stopped")
}

// scan logs every job past its deadline plus grace
func (w *Watchdog) scan() {
	for _, summary := range w.orchestrator.registry.Overdue(w.grace) {
		slog.Warn("Research running past its time limit",
			"research_id", summary.ID,
			"topic", summary.Topic,
			"running_for", time.Since(summary.CreatedAt).Round(time.Second),
		)
	}
}
