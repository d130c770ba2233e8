package sysinfo

import "testing"

func TestCollectReturnsPlausibleFigures(t *testing.T) {
	r := Collect(t.TempDir())
	if r.CPUCount <= 0 {
		t.Fatalf("expected at least one CPU, got %d", r.CPUCount)
	}
	if r.MemoryTotalMB == 0 {
		t.Fatalf("expected nonzero total memory")
	}
	if r.MemoryAvailableMB > r.MemoryTotalMB {
		t.Fatalf("available memory %d exceeds total %d", r.MemoryAvailableMB, r.MemoryTotalMB)
	}
	if r.DiskTotalGB <= 0 {
		t.Fatalf("expected nonzero disk total for temp dir")
	}
}

func TestCollectToleratesEmptyStoragePath(t *testing.T) {
	r := Collect("")
	if r.DiskTotalGB != 0 {
		t.Fatalf("expected zero disk figures without a path, got %v", r.DiskTotalGB)
	}
}
