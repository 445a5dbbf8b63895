package tables_test

import (
	"context"
	"testing"
	"time"

	"github.com/wardenhq/warden/propagation/storage/shared"
	"github.com/wardenhq/warden/propagation/storage/sqlite3"
)

func mustMakeDatabase(t *testing.T) *shared.Database {
	t.Helper()
	db, err := sqlite3.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.DB.Close() })
	return db
}

func TestAddProcessedGroupsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := mustMakeDatabase(t)
	target := "972527332312@s.whatsapp.net"

	if err := db.AddProcessedGroups(ctx, target, []string{"g1", "g2"}); err != nil {
		t.Fatalf("AddProcessedGroups failed: %v", err)
	}
	if err := db.AddProcessedGroups(ctx, target, []string{"g1", "g2"}); err != nil {
		t.Fatalf("repeated AddProcessedGroups failed: %v", err)
	}

	set, err := db.ProcessedGroups(ctx, target)
	if err != nil {
		t.Fatalf("ProcessedGroups failed: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected 2 processed groups, got %d", len(set))
	}

	status, err := db.TrackingSummary(ctx, target)
	if err != nil {
		t.Fatalf("TrackingSummary failed: %v", err)
	}
	if status.TotalProcessed != 2 {
		t.Fatalf("expected TotalProcessed=2, got %d", status.TotalProcessed)
	}
}

func TestAddProcessedGroupsGrowsTheSet(t *testing.T) {
	ctx := context.Background()
	db := mustMakeDatabase(t)
	target := "t@s.whatsapp.net"

	if err := db.AddProcessedGroups(ctx, target, []string{"g1"}); err != nil {
		t.Fatalf("AddProcessedGroups failed: %v", err)
	}
	if err := db.AddProcessedGroups(ctx, target, []string{"g2", "g3"}); err != nil {
		t.Fatalf("AddProcessedGroups failed: %v", err)
	}

	status, err := db.TrackingSummary(ctx, target)
	if err != nil {
		t.Fatalf("TrackingSummary failed: %v", err)
	}
	if status.TotalProcessed != 3 {
		t.Fatalf("expected TotalProcessed=3, got %d", status.TotalProcessed)
	}
	if len(status.ProcessedGroups) != 3 {
		t.Fatalf("expected 3 group IDs, got %v", status.ProcessedGroups)
	}
	if status.LastUpdated.IsZero() || time.Since(status.LastUpdated) > time.Minute {
		t.Fatalf("unexpected LastUpdated: %v", status.LastUpdated)
	}
}

func TestTrackingIsPerTarget(t *testing.T) {
	ctx := context.Background()
	db := mustMakeDatabase(t)

	if err := db.AddProcessedGroups(ctx, "a@s.whatsapp.net", []string{"g1"}); err != nil {
		t.Fatalf("AddProcessedGroups failed: %v", err)
	}

	status, err := db.TrackingSummary(ctx, "b@s.whatsapp.net")
	if err != nil {
		t.Fatalf("TrackingSummary failed: %v", err)
	}
	if status.IsTracked {
		t.Fatal("target b must not be tracked")
	}

	set, err := db.ProcessedGroups(ctx, "b@s.whatsapp.net")
	if err != nil {
		t.Fatalf("ProcessedGroups failed: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty set, got %v", set)
	}
}

func TestClearTracking(t *testing.T) {
	ctx := context.Background()
	db := mustMakeDatabase(t)
	target := "t@s.whatsapp.net"

	if err := db.AddProcessedGroups(ctx, target, []string{"g1", "g2"}); err != nil {
		t.Fatalf("AddProcessedGroups failed: %v", err)
	}

	removed, err := db.ClearTracking(ctx, target)
	if err != nil {
		t.Fatalf("ClearTracking failed: %v", err)
	}
	if !removed {
		t.Fatal("expected ClearTracking to report removal")
	}

	status, err := db.TrackingSummary(ctx, target)
	if err != nil {
		t.Fatalf("TrackingSummary failed: %v", err)
	}
	if status.IsTracked || status.TotalProcessed != 0 {
		t.Fatalf("expected empty tracking after clear, got %+v", status)
	}

	// Clearing again is a no-op.
	removed, err = db.ClearTracking(ctx, target)
	if err != nil {
		t.Fatalf("second ClearTracking failed: %v", err)
	}
	if removed {
		t.Fatal("second clear should not report removal")
	}
}
