// Package data provides the thread-safe statistics container shared between
// the background store monitor and the health endpoint. Values are swapped
// atomically so readers never block a refresh.
package data

import (
	"sync/atomic"
	"time"

	"github.com/pillguide/pillguide-api/interfaces"
)

// Compile-time check to ensure StatsContainer implements StatsStore
var _ interfaces.StatsStore = (*StatsContainer)(nil)

// StatsContainer holds the last known document-store statistics.
type StatsContainer struct {
	prescriptionCount atomic.Int64
	medicationCount   atomic.Int64
	lastChecked       atomic.Value // time.Time
	storeReachable    atomic.Bool
	serverStartTime   atomic.Value // time.Time
}

// NewStatsContainer creates a container with zeroed statistics.
func NewStatsContainer() *StatsContainer {
	sc := &StatsContainer{}
	sc.lastChecked.Store(time.Time{})
	sc.serverStartTime.Store(time.Now())
	return sc
}

// GetPrescriptionCount returns the prescription count from the last refresh.
func (sc *StatsContainer) GetPrescriptionCount() int64 {
	return sc.prescriptionCount.Load()
}

// GetMedicationCount returns the medication count from the last refresh.
func (sc *StatsContainer) GetMedicationCount() int64 {
	return sc.medicationCount.Load()
}

// GetLastChecked returns when the store was last checked.
func (sc *StatsContainer) GetLastChecked() time.Time {
	if v := sc.lastChecked.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// IsStoreReachable reports whether the last store check succeeded.
func (sc *StatsContainer) IsStoreReachable() bool {
	return sc.storeReachable.Load()
}

// GetServerStartTime returns when the process started.
func (sc *StatsContainer) GetServerStartTime() time.Time {
	if v := sc.serverStartTime.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// UpdateStats records a completed store check.
func (sc *StatsContainer) UpdateStats(prescriptions, medications int64, reachable bool) {
	sc.prescriptionCount.Store(prescriptions)
	sc.medicationCount.Store(medications)
	sc.storeReachable.Store(reachable)
	sc.lastChecked.Store(time.Now())
}
