// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/propagation/api"
)

// ErrNoActiveSelection is returned when an operator reply arrives with no
// open selection session, either because none was started or because the
// session expired. Expiry is operator abandonment, not a fault.
var ErrNoActiveSelection = errors.New("propagation: no active selection for this operator")

// ErrInvalidSelection is returned when a reply cannot be interpreted as a
// selection. The session stays open so the operator can try again.
var ErrInvalidSelection = errors.New("propagation: invalid selection")

type selectionState int

const (
	stateAwaitingSelection selectionState = iota
	stateAwaitingConfirmation
)

// selectionSession is the transient per-operator record backing the
// interactive workflow. It lives only in the TTL cache; nothing about a
// selection is ever persisted.
type selectionSession struct {
	ID      string
	Target  api.Target
	Entries []api.SelectionEntry
	Groups  []platform.Group
	Pending []platform.Group
	State   selectionState
}

// Selector owns interactive selection sessions, keyed by operator. The TTL
// cache replaces the process-wide globals the workflow historically relied
// on, so concurrent operators cannot trample each other's state.
type Selector struct {
	Propagator *Propagator
	sessions   *gocache.Cache
}

func NewSelector(p *Propagator) *Selector {
	ttl := time.Duration(p.Cfg.SelectionTTLSeconds) * time.Second
	return &Selector{
		Propagator: p,
		sessions:   gocache.New(ttl, ttl),
	}
}

// PerformListCandidates scans every administered group for the target,
// paced like a sweep, and opens a session holding the 1-based menu of
// groups that contain it.
func (s *Selector) PerformListCandidates(ctx context.Context, operator string, target api.Target) ([]api.SelectionEntry, error) {
	groups, err := s.Propagator.Directory.ListAdministeredGroups(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list administered groups")
	}

	entries := []api.SelectionEntry{}
	var candidates []platform.Group
	for _, g := range groups {
		if err := s.Propagator.Pacer.Wait(ctx); err != nil {
			return nil, err
		}
		meta, err := s.Propagator.Directory.FetchGroupMetadata(ctx, g.ID)
		s.Propagator.Pacer.AfterFetch(ctx)
		if err != nil {
			logrus.WithError(err).WithField("group_id", g.ID).
				Warn("Skipping group in candidate scan, metadata fetch failed")
			if errors.Is(err, platform.ErrRateLimited) {
				s.Propagator.Pacer.Backoff(ctx)
			}
			continue
		}
		if _, _, found := FindParticipant(target, meta, s.Propagator.Domains); !found {
			continue
		}
		entries = append(entries, api.SelectionEntry{
			Index:       len(entries) + 1,
			GroupID:     g.ID,
			GroupName:   meta.Name,
			MemberCount: len(meta.Participants),
		})
		candidates = append(candidates, platform.Group{ID: g.ID, Name: meta.Name})
	}

	if len(entries) == 0 {
		return entries, nil
	}

	session := &selectionSession{
		ID:      uuid.NewString(),
		Target:  target,
		Entries: entries,
		Groups:  candidates,
		State:   stateAwaitingSelection,
	}
	s.sessions.SetDefault(operator, session)
	logrus.WithFields(logrus.Fields{
		"operator":   operator,
		"session_id": session.ID,
		"candidates": len(entries),
	}).Info("Opened selection session")
	return entries, nil
}

// PerformSelectionReply interprets the operator's next reply against their
// open session: either a comma-separated index list / "all", or the
// confirmation answer when the previous reply exceeded the safety
// threshold.
func (s *Selector) PerformSelectionReply(ctx context.Context, operator, reply string) (*api.SelectionResult, error) {
	v, found := s.sessions.Get(operator)
	if !found {
		return nil, ErrNoActiveSelection
	}
	session := v.(*selectionSession)
	reply = strings.ToLower(strings.TrimSpace(reply))

	switch session.State {
	case stateAwaitingConfirmation:
		switch reply {
		case "continue", "confirm", "yes":
			return s.execute(ctx, operator, session, session.Pending)
		case "cancel", "no":
			s.sessions.Delete(operator)
			return &api.SelectionResult{}, nil
		default:
			// Unrecognized reply: keep waiting rather than guessing at a
			// mass action.
			return &api.SelectionResult{
				NeedsConfirmation: true,
				PendingCount:      len(session.Pending),
			}, nil
		}

	default:
		chosen, err := resolveSelection(reply, session)
		if err != nil {
			return nil, err
		}
		if len(chosen) > s.Propagator.Cfg.ConfirmThreshold {
			session.Pending = chosen
			session.State = stateAwaitingConfirmation
			s.sessions.SetDefault(operator, session)
			return &api.SelectionResult{
				NeedsConfirmation: true,
				PendingCount:      len(chosen),
			}, nil
		}
		return s.execute(ctx, operator, session, chosen)
	}
}

// PerformSelectionExecute removes the target from exactly the given groups.
// Interactive selection is a deliberate one-shot action, so the checkpoint
// store is bypassed.
func (s *Selector) PerformSelectionExecute(ctx context.Context, target api.Target, groupIDs []string) (*api.Report, error) {
	groups := make([]platform.Group, 0, len(groupIDs))
	for _, id := range groupIDs {
		groups = append(groups, platform.Group{ID: id})
	}
	return s.run(ctx, target, groups)
}

func (s *Selector) execute(ctx context.Context, operator string, session *selectionSession, groups []platform.Group) (*api.SelectionResult, error) {
	s.sessions.Delete(operator)
	report, err := s.run(ctx, session.Target, groups)
	if err != nil {
		return nil, err
	}
	return &api.SelectionResult{Report: report}, nil
}

func (s *Selector) run(ctx context.Context, target api.Target, groups []platform.Group) (*api.Report, error) {
	if !s.Propagator.acquireTarget(target.Key) {
		return nil, ErrCampaignInFlight
	}
	defer s.Propagator.releaseTarget(target.Key)
	report := s.Propagator.processGroups(ctx, target, groups, false)
	report.TotalGroupsAvailable = len(groups)
	return report, nil
}

// resolveSelection maps "all" or "1,3,5" onto the session's group list.
func resolveSelection(reply string, session *selectionSession) ([]platform.Group, error) {
	if reply == "all" {
		return session.Groups, nil
	}
	var chosen []platform.Group
	seen := make(map[int]struct{})
	for _, part := range strings.Split(reply, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		index, err := strconv.Atoi(part)
		if err != nil || index < 1 || index > len(session.Groups) {
			return nil, errors.Wrapf(ErrInvalidSelection, "%q: expected \"all\" or indices between 1 and %d", part, len(session.Groups))
		}
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}
		chosen = append(chosen, session.Groups[index-1])
	}
	if len(chosen) == 0 {
		return nil, errors.Wrap(ErrInvalidSelection, "empty selection")
	}
	return chosen, nil
}
