// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package shared

import (
	"context"
	"database/sql"
	"time"

	"github.com/wardenhq/warden/internal/sqlutil"
	"github.com/wardenhq/warden/propagation/api"
	"github.com/wardenhq/warden/propagation/storage/tables"
)

// Database is the engine-facing checkpoint store, implemented on top of a
// driver-specific CheckpointsTable.
type Database struct {
	DB          *sql.DB
	Checkpoints tables.CheckpointsTable
}

// ProcessedGroups returns the set of group IDs already handled for the
// target, as a membership map.
func (d *Database) ProcessedGroups(ctx context.Context, targetKey string) (map[string]struct{}, error) {
	groupIDs, err := d.Checkpoints.SelectProcessedGroups(ctx, nil, targetKey)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(groupIDs))
	for _, groupID := range groupIDs {
		set[groupID] = struct{}{}
	}
	return set, nil
}

// AddProcessedGroups unions groupIDs into the stored set for the target.
// Safe to retry: re-adding a present group ID does not change cardinality.
func (d *Database) AddProcessedGroups(ctx context.Context, targetKey string, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	return sqlutil.WithTransaction(d.DB, func(txn *sql.Tx) error {
		return d.Checkpoints.InsertProcessedGroups(ctx, txn, targetKey, groupIDs, time.Now())
	})
}

// ClearTracking deletes the target's entire checkpoint record. Returns
// whether anything was actually removed.
func (d *Database) ClearTracking(ctx context.Context, targetKey string) (bool, error) {
	var removed int64
	err := sqlutil.WithTransaction(d.DB, func(txn *sql.Tx) (err error) {
		removed, err = d.Checkpoints.DeleteCheckpoints(ctx, txn, targetKey)
		return
	})
	return removed > 0, err
}

// TrackingSummary reports the persisted campaign state for the target.
func (d *Database) TrackingSummary(ctx context.Context, targetKey string) (*api.CampaignStatus, error) {
	summary, tracked, err := d.Checkpoints.SelectCheckpointSummary(ctx, nil, targetKey)
	if err != nil {
		return nil, err
	}
	status := &api.CampaignStatus{IsTracked: tracked}
	if !tracked {
		return status, nil
	}
	status.TotalProcessed = summary.TotalProcessed
	status.LastUpdated = summary.LastUpdated
	if status.ProcessedGroups, err = d.Checkpoints.SelectProcessedGroups(ctx, nil, targetKey); err != nil {
		return nil, err
	}
	return status, nil
}
