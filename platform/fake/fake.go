// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

// Package fake provides a scripted in-memory platform client for tests.
package fake

import (
	"context"
	"sync"

	"github.com/wardenhq/warden/platform"
)

// Kick records one RemoveParticipant call.
type Kick struct {
	GroupID       string
	ParticipantID string
}

// Client is a scripted platform.Client. Zero value is usable; populate
// Groups and error maps as the test needs. All methods are safe for
// concurrent use.
type Client struct {
	mu sync.Mutex

	Groups []platform.Group

	// ListErr, MetadataErr and KickErr inject failures. MetadataErr and
	// KickErr are keyed by group ID.
	ListErr     error
	MetadataErr map[string]error
	KickErr     map[string]error

	// Mappings backs ResolveHiddenID; ResolveErr overrides it entirely.
	Mappings   map[string]string
	ResolveErr error

	Kicks []Kick
}

func (c *Client) ListAdministeredGroups(ctx context.Context) ([]platform.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ListErr != nil {
		return nil, c.ListErr
	}
	out := make([]platform.Group, len(c.Groups))
	copy(out, c.Groups)
	return out, nil
}

func (c *Client) FetchGroupMetadata(ctx context.Context, groupID string) (platform.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.MetadataErr[groupID]; err != nil {
		return platform.Group{}, err
	}
	for _, g := range c.Groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return platform.Group{}, platform.ErrNotFound
}

func (c *Client) RemoveParticipant(ctx context.Context, groupID, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.KickErr[groupID]; err != nil {
		return err
	}
	c.Kicks = append(c.Kicks, Kick{GroupID: groupID, ParticipantID: participantID})
	for i := range c.Groups {
		if c.Groups[i].ID != groupID {
			continue
		}
		participants := c.Groups[i].Participants[:0]
		for _, p := range c.Groups[i].Participants {
			if p.ID != participantID {
				participants = append(participants, p)
			}
		}
		c.Groups[i].Participants = participants
	}
	return nil
}

func (c *Client) ResolveHiddenID(ctx context.Context, hiddenID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ResolveErr != nil {
		return "", c.ResolveErr
	}
	if phone, ok := c.Mappings[hiddenID]; ok {
		return phone, nil
	}
	return "", platform.ErrNotFound
}

// KickedFrom reports whether participantID was removed from groupID.
func (c *Client) KickedFrom(groupID, participantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.Kicks {
		if k.GroupID == groupID && k.ParticipantID == participantID {
			return true
		}
	}
	return false
}
