// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package platform

import (
	"context"
	"errors"
)

// AdminRole describes the privilege a participant holds within a group.
type AdminRole string

const (
	RoleNone  AdminRole = ""
	RoleAdmin AdminRole = "admin"
	RoleOwner AdminRole = "owner"
)

// Participant is one member of a group as the platform exposes it. ID is
// always populated and may be either a stable phone-derived JID or a hidden
// session-scoped JID. PhoneNumber is the stable JID and is only present when
// the platform chooses to disclose it alongside a hidden ID.
type Participant struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Role        AdminRole `json:"role,omitempty"`
}

// Group is a group the operator participates in. Participant order follows
// whatever the platform returned; callers must not rely on it beyond being
// stable within a single fetch.
type Group struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}

// Sentinel errors for the platform error taxonomy. Implementations wrap
// these so callers can classify failures with errors.Is.
var (
	// ErrRateLimited indicates the platform throttled the call. The caller
	// should back off and continue rather than abort.
	ErrRateLimited = errors.New("platform: rate limited")
	// ErrPermissionDenied indicates the operator lacks the privilege for the
	// requested action in that group.
	ErrPermissionDenied = errors.New("platform: permission denied")
	// ErrNotFound indicates the referenced group, participant or mapping
	// does not exist (any more).
	ErrNotFound = errors.New("platform: not found")
)

// GroupDirectory lists and describes the groups the operator's session can
// see. Listings are fetched fresh on every call because membership and
// metadata change between invocations.
type GroupDirectory interface {
	// ListAdministeredGroups returns every group the operator participates
	// in, in the platform's own order.
	ListAdministeredGroups(ctx context.Context) ([]Group, error)
	// FetchGroupMetadata returns current name and membership for one group.
	FetchGroupMetadata(ctx context.Context, groupID string) (Group, error)
}

// KickExecutor removes a participant from a group. Implementations are
// expected to retry transient failures internally; the engine does not
// retry removals itself.
type KickExecutor interface {
	RemoveParticipant(ctx context.Context, groupID, participantID string) error
}

// IdentityMapper resolves a hidden session-scoped identifier to the stable
// phone digits behind it. Returns ErrNotFound when no mapping is known.
type IdentityMapper interface {
	ResolveHiddenID(ctx context.Context, hiddenID string) (string, error)
}

// Client bundles the three platform capabilities the engine consumes.
type Client interface {
	GroupDirectory
	KickExecutor
	IdentityMapper
}
