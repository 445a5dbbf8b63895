// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package storage

import (
	"context"

	"github.com/wardenhq/warden/propagation/api"
)

// Database is the checkpoint store consumed by the propagation scheduler.
// It is the only cross-invocation shared mutable state in the engine.
type Database interface {
	ProcessedGroups(ctx context.Context, targetKey string) (map[string]struct{}, error)
	AddProcessedGroups(ctx context.Context, targetKey string, groupIDs []string) error
	ClearTracking(ctx context.Context, targetKey string) (bool, error)
	TrackingSummary(ctx context.Context, targetKey string) (*api.CampaignStatus, error)
}
