// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package api

import (
	"context"
	"time"
)

// Target is the actor a moderation campaign removes. Raw is the reference
// exactly as the operator supplied it, Key the canonical form, and
// ResolvedPhone the stable digits behind a hidden reference when resolution
// succeeded. A Target is immutable once built.
type Target struct {
	Raw           string `json:"raw"`
	Key           string `json:"key"`
	ResolvedPhone string `json:"resolved_phone,omitempty"`
}

// OutcomeStatus classifies what happened to one group during a run.
type OutcomeStatus string

const (
	// OutcomeSuccess means the target was found and removed.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFailed means the target was found but the removal failed.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeSkipped means the target is not a member of the group.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeError means the group could not be examined at all.
	OutcomeError OutcomeStatus = "error"
)

// GroupOutcome records the per-group result, in processing order.
type GroupOutcome struct {
	GroupID   string        `json:"group_id"`
	GroupName string        `json:"group_name"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
}

// Report summarizes one scheduler invocation. It is never persisted.
type Report struct {
	TotalGroupsAvailable int            `json:"total_groups_available"`
	GroupsProcessed      int            `json:"groups_processed"`
	GroupsWithTarget     int            `json:"groups_with_target"`
	Removed              int            `json:"removed"`
	Failed               int            `json:"failed"`
	Skipped              int            `json:"skipped"`
	Remaining            int            `json:"remaining"`
	LimitReached         bool           `json:"limit_reached"`
	AllGroupsProcessed   bool           `json:"all_groups_processed"`
	Outcomes             []GroupOutcome `json:"outcomes"`
}

// CampaignStatus is the persisted checkpoint state for one target.
type CampaignStatus struct {
	IsTracked       bool      `json:"is_tracked"`
	ProcessedGroups []string  `json:"processed_groups"`
	TotalProcessed  int       `json:"total_processed"`
	LastUpdated     time.Time `json:"last_updated,omitempty"`
}

// SelectionEntry is one row of the interactive candidate-group menu.
// Index is 1-based because it is operator-facing.
type SelectionEntry struct {
	Index       int    `json:"index"`
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	MemberCount int    `json:"member_count"`
}

// SelectionResult is the outcome of feeding an operator reply into the
// selection workflow. Either NeedsConfirmation is set and no removal has
// happened yet, or Report carries the executed result.
type SelectionResult struct {
	NeedsConfirmation bool    `json:"needs_confirmation"`
	PendingCount      int     `json:"pending_count,omitempty"`
	Report            *Report `json:"report,omitempty"`
}

// PropagationAPI is the engine surface exposed to supervisors.
type PropagationAPI interface {
	// BuildTarget normalizes and, for hidden references, resolves a raw
	// operator-supplied reference into a Target. Resolution failure is not
	// an error; the Target simply carries no ResolvedPhone.
	BuildTarget(ctx context.Context, raw string) (Target, error)

	// RunPropagation executes one checkpointed batch pass for the target,
	// processing at most cap groups (<=0 selects the configured default).
	RunPropagation(ctx context.Context, target Target, cap int) (*Report, error)

	// ListCandidateGroups scans every administered group for the target and
	// opens an interactive selection session for the operator.
	ListCandidateGroups(ctx context.Context, operator string, target Target) ([]SelectionEntry, error)

	// ReplySelection feeds the operator's reply ("1,3,5", "all", or a
	// confirmation) into their open selection session.
	ReplySelection(ctx context.Context, operator, reply string) (*SelectionResult, error)

	// ExecuteSelection removes the target from exactly the given groups,
	// bypassing the checkpoint store.
	ExecuteSelection(ctx context.Context, target Target, groupIDs []string) (*Report, error)

	// CampaignStatus reports the checkpoint state for the target.
	CampaignStatus(ctx context.Context, target Target) (*CampaignStatus, error)

	// ClearCampaign deletes the target's checkpoint record so a future
	// campaign starts from zero.
	ClearCampaign(ctx context.Context, target Target) error
}
