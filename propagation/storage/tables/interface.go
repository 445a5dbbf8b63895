// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package tables

import (
	"context"
	"database/sql"
	"time"
)

// CheckpointSummary is the aggregate view of one target's campaign.
// TotalProcessed is always recomputed from the stored set, never inferred
// incrementally, so out-of-band edits to the table cannot cause drift.
type CheckpointSummary struct {
	TargetKey      string
	TotalProcessed int
	LastUpdated    time.Time
}

// CheckpointsTable persists which groups have already been handled for a
// given target. Inserting an already-present group ID is a no-op, which is
// what makes checkpoint writes safe to retry.
type CheckpointsTable interface {
	InsertProcessedGroups(ctx context.Context, txn *sql.Tx, targetKey string, groupIDs []string, updated time.Time) error
	SelectProcessedGroups(ctx context.Context, txn *sql.Tx, targetKey string) ([]string, error)
	SelectCheckpointSummary(ctx context.Context, txn *sql.Tx, targetKey string) (CheckpointSummary, bool, error)
	DeleteCheckpoints(ctx context.Context, txn *sql.Tx, targetKey string) (int64, error)
}
