package data

import (
	"sync"
	"testing"
	"time"
)

func TestNewStatsContainer(t *testing.T) {
	sc := NewStatsContainer()

	if sc.GetPrescriptionCount() != 0 {
		t.Errorf("Expected 0 prescriptions, got %d", sc.GetPrescriptionCount())
	}
	if sc.GetMedicationCount() != 0 {
		t.Errorf("Expected 0 medications, got %d", sc.GetMedicationCount())
	}
	if !sc.GetLastChecked().IsZero() {
		t.Error("Expected zero last-checked time before first refresh")
	}
	if sc.IsStoreReachable() {
		t.Error("Expected store unreachable before first refresh")
	}
	if sc.GetServerStartTime().IsZero() {
		t.Error("Expected server start time set")
	}
}

func TestUpdateStats(t *testing.T) {
	sc := NewStatsContainer()

	before := time.Now()
	sc.UpdateStats(12, 34, true)

	if sc.GetPrescriptionCount() != 12 {
		t.Errorf("Expected 12, got %d", sc.GetPrescriptionCount())
	}
	if sc.GetMedicationCount() != 34 {
		t.Errorf("Expected 34, got %d", sc.GetMedicationCount())
	}
	if !sc.IsStoreReachable() {
		t.Error("Expected store reachable")
	}
	if sc.GetLastChecked().Before(before) {
		t.Error("Expected last-checked to advance")
	}
}

func TestUpdateStatsConcurrent(t *testing.T) {
	sc := NewStatsContainer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc.UpdateStats(int64(i), int64(i), i%2 == 0)
			_ = sc.GetPrescriptionCount()
			_ = sc.IsStoreReachable()
		}(i)
	}
	wg.Wait()

	if sc.GetLastChecked().IsZero() {
		t.Error("Expected last-checked set after concurrent updates")
	}
}
