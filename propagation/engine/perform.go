// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"context"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/propagation/api"
	"github.com/wardenhq/warden/propagation/storage"
	"github.com/wardenhq/warden/setup/config"
)

// ErrCampaignInFlight is returned when a propagation run is requested for a
// target that already has one running in this process. The checkpoint store
// has no cross-invocation locking, so the engine refuses rather than racing.
var ErrCampaignInFlight = errors.New("propagation: a run for this target is already in flight")

// Propagator drives checkpointed batch removal runs. Groups are processed
// strictly in sequence: the platform's rate limits are per-account, so
// parallelizing the loop would only hit them sooner.
type Propagator struct {
	Cfg       *config.Propagation
	Domains   identity.Domains
	Directory platform.GroupDirectory
	Kicker    platform.KickExecutor
	DB        storage.Database
	Pacer     *Pacer

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

func (p *Propagator) acquireTarget(targetKey string) bool {
	p.inFlightMu.Lock()
	defer p.inFlightMu.Unlock()
	if p.inFlight == nil {
		p.inFlight = make(map[string]struct{})
	}
	if _, busy := p.inFlight[targetKey]; busy {
		return false
	}
	p.inFlight[targetKey] = struct{}{}
	return true
}

func (p *Propagator) releaseTarget(targetKey string) {
	p.inFlightMu.Lock()
	defer p.inFlightMu.Unlock()
	delete(p.inFlight, targetKey)
}

// PerformPropagation runs one batch pass: list groups, subtract the
// checkpointed set, process up to cap of what remains, checkpoint as it
// goes. The only fatal failure is being unable to list groups at all; every
// other problem is recorded per group and the run continues.
func (p *Propagator) PerformPropagation(ctx context.Context, target api.Target, cap int) (*api.Report, error) {
	if !p.acquireTarget(target.Key) {
		return nil, ErrCampaignInFlight
	}
	defer p.releaseTarget(target.Key)

	groups, err := p.Directory.ListAdministeredGroups(ctx)
	if err != nil {
		err = errors.Wrap(err, "failed to list administered groups")
		// This is the engine's only fatal failure mode, so it is the one
		// thing worth paging on.
		if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub.CaptureException(err)
		}
		return nil, err
	}

	processed, err := p.DB.ProcessedGroups(ctx, target.Key)
	if err != nil {
		// Reads degrade to an empty set: reprocessing is safe because
		// removal of an absent member is a no-op.
		logrus.WithError(err).WithField("target", target.Key).
			Warn("Failed to read checkpoints, treating all groups as unprocessed")
		processed = map[string]struct{}{}
	}

	remaining := make([]platform.Group, 0, len(groups))
	for _, g := range groups {
		if _, done := processed[g.ID]; !done {
			remaining = append(remaining, g)
		}
	}

	if len(remaining) == 0 {
		return &api.Report{
			TotalGroupsAvailable: len(groups),
			AllGroupsProcessed:   true,
		}, nil
	}

	if cap <= 0 {
		cap = p.Cfg.DefaultCap
	}
	selected := remaining
	if len(selected) > cap {
		selected = selected[:cap]
	}

	logrus.WithFields(logrus.Fields{
		"target":    target.Key,
		"available": len(groups),
		"remaining": len(remaining),
		"selected":  len(selected),
	}).Info("Starting propagation run")

	report := p.processGroups(ctx, target, selected, true)
	report.TotalGroupsAvailable = len(groups)
	report.Remaining = len(remaining) - len(selected)
	report.LimitReached = len(remaining) > cap
	return report, nil
}

// processGroups runs the per-group pipeline: fetch fresh metadata, match,
// kick, checkpoint, pace. Used by both the checkpointed sweep and the
// interactive selection path (which passes checkpoint=false).
func (p *Propagator) processGroups(ctx context.Context, target api.Target, groups []platform.Group, checkpoint bool) *api.Report {
	report := &api.Report{}
	for i, g := range groups {
		outcome := p.processOneGroup(ctx, target, g, checkpoint)
		report.Outcomes = append(report.Outcomes, outcome)
		report.GroupsProcessed++
		groupOutcomes.WithLabelValues(string(outcome.Status)).Inc()
		switch outcome.Status {
		case api.OutcomeSuccess:
			report.GroupsWithTarget++
			report.Removed++
		case api.OutcomeFailed:
			report.GroupsWithTarget++
			report.Failed++
		case api.OutcomeSkipped:
			report.Skipped++
		}
		p.Pacer.MaybeBatchPause(ctx, i+1)
		if ctx.Err() != nil {
			break
		}
	}
	return report
}

func (p *Propagator) processOneGroup(ctx context.Context, target api.Target, g platform.Group, checkpoint bool) api.GroupOutcome {
	outcome := api.GroupOutcome{GroupID: g.ID, GroupName: g.Name}
	log := logrus.WithFields(logrus.Fields{
		"target":   target.Key,
		"group_id": g.ID,
	})

	if err := p.Pacer.Wait(ctx); err != nil {
		outcome.Status = api.OutcomeError
		outcome.Reason = err.Error()
		return outcome
	}

	meta, err := p.Directory.FetchGroupMetadata(ctx, g.ID)
	p.Pacer.AfterFetch(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch group metadata")
		outcome.Status = api.OutcomeError
		if errors.Is(err, platform.ErrRateLimited) {
			outcome.Reason = "rate limited"
			p.Pacer.Backoff(ctx)
		} else {
			outcome.Reason = err.Error()
		}
		return outcome
	}
	if meta.Name != "" {
		outcome.GroupName = meta.Name
	}

	participant, tier, found := FindParticipant(target, meta, p.Domains)
	if !found {
		outcome.Status = api.OutcomeSkipped
		outcome.Reason = "not a member"
		if checkpoint {
			p.checkpointGroup(ctx, target, g.ID, log)
		}
		return outcome
	}
	if tier == matchTierPhoneSuffix {
		// Last-resort heuristic matches are approximate across country
		// codes, so every one is surfaced for audit.
		suffixHeuristicMatches.Inc()
		log.WithFields(logrus.Fields{
			"participant":    participant.ID,
			"resolved_phone": target.ResolvedPhone,
		}).Warn("Membership matched solely via last-9-digit heuristic")
	}

	if err := p.Kicker.RemoveParticipant(ctx, g.ID, participant.ID); err != nil {
		log.WithError(err).WithField("participant", participant.ID).Warn("Removal failed")
		outcome.Status = api.OutcomeFailed
		switch {
		case errors.Is(err, platform.ErrPermissionDenied):
			outcome.Reason = "insufficient privilege"
		case errors.Is(err, platform.ErrNotFound):
			outcome.Reason = "target already left"
		case errors.Is(err, platform.ErrRateLimited):
			outcome.Reason = "rate limited"
			p.Pacer.Backoff(ctx)
		default:
			outcome.Reason = err.Error()
		}
		return outcome
	}

	log.WithField("participant", participant.ID).Info("Removed target from group")
	outcome.Status = api.OutcomeSuccess
	p.Pacer.AfterRemoval(ctx)
	if checkpoint {
		p.checkpointGroup(ctx, target, g.ID, log)
	}
	return outcome
}

// checkpointGroup appends one group to the target's processed set. Write
// failures are logged and the run continues: at-least-once semantics mean a
// future invocation may simply reprocess the group.
func (p *Propagator) checkpointGroup(ctx context.Context, target api.Target, groupID string, log *logrus.Entry) {
	if err := p.DB.AddProcessedGroups(ctx, target.Key, []string{groupID}); err != nil {
		log.WithError(err).Warn("Failed to checkpoint processed group")
	}
}
