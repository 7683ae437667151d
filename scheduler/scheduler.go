// Package scheduler provides the background store monitor for the PillGuide
// API. It refreshes document counts and reachability on a fixed schedule so
// the health endpoint never queries the store on the request path.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/pillguide/pillguide-api/interfaces"
	"github.com/pillguide/pillguide-api/logging"
	"github.com/pillguide/pillguide-api/metrics"
	"github.com/pillguide/pillguide-api/storage"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler refreshes store statistics using dependency injection.
type Scheduler struct {
	store     interfaces.DocumentStore
	stats     interfaces.StatsStore
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler instance with injected dependencies.
func NewScheduler(store interfaces.DocumentStore, stats interfaces.StatsStore) *Scheduler {
	return &Scheduler{
		store:     store,
		stats:     stats,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start runs an initial refresh and schedules recurring ones.
func (s *Scheduler) Start() error {
	if err := s.refreshStats(); err != nil {
		// A refresh failure marks the store unreachable but does not stop
		// the server; uploads fail fast on their own store errors.
		logging.Warn("Initial store stats refresh failed", "error", err)
	}

	if _, err := s.scheduler.Every(15).Minutes().Do(func() {
		if err := s.refreshStats(); err != nil {
			logging.Error("Failed to refresh store stats", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule stats refresh: %w", err)
	}

	if _, err := s.scheduler.Every(1).Hours().Do(s.checkStaleness); err != nil {
		return fmt.Errorf("failed to schedule staleness check: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// refreshStats pings the store, reads collection counts, and swaps them into
// the shared container.
func (s *Scheduler) refreshStats() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.stats.UpdateStats(0, 0, false)
		return fmt.Errorf("store unreachable: %w", err)
	}

	prescriptions, err := s.store.Count(ctx, storage.CollectionPrescriptions)
	if err != nil {
		s.stats.UpdateStats(0, 0, false)
		return err
	}

	medications, err := s.store.Count(ctx, storage.CollectionMedications)
	if err != nil {
		s.stats.UpdateStats(0, 0, false)
		return err
	}

	s.stats.UpdateStats(prescriptions, medications, true)
	metrics.StoreDocumentsTotal.WithLabelValues(storage.CollectionPrescriptions).Set(float64(prescriptions))
	metrics.StoreDocumentsTotal.WithLabelValues(storage.CollectionMedications).Set(float64(medications))

	logging.Debug("Store stats refreshed",
		"prescriptions", prescriptions,
		"medications", medications)

	return nil
}

// checkStaleness warns when the stats have not refreshed in over an hour,
// which means the refresh job itself is wedged.
func (s *Scheduler) checkStaleness() {
	lastChecked := s.stats.GetLastChecked()
	if lastChecked.IsZero() || time.Since(lastChecked) > time.Hour {
		logging.Warn("Store stats have not refreshed in over an hour", "last_checked", lastChecked)
	}
}
