// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/propagation/api"
	"github.com/wardenhq/warden/propagation/storage"
	"github.com/wardenhq/warden/setup/config"
)

// PropagationEngine implements api.PropagationAPI by composing the
// scheduler, the selection workflow, the identity resolver and the
// checkpoint store.
type PropagationEngine struct {
	Propagator *Propagator
	Selector   *Selector
	Resolver   *identity.Resolver
}

func NewPropagationEngine(
	cfg *config.Warden,
	client platform.Client,
	db storage.Database,
) *PropagationEngine {
	domains := identity.Domains{
		Stable: cfg.Identity.StableDomain,
		Hidden: cfg.Identity.HiddenDomain,
	}
	propagator := &Propagator{
		Cfg:       &cfg.Propagation,
		Domains:   domains,
		Directory: client,
		Kicker:    client,
		DB:        db,
		Pacer:     NewPacer(&cfg.Propagation),
	}
	return &PropagationEngine{
		Propagator: propagator,
		Selector:   NewSelector(propagator),
		Resolver: &identity.Resolver{
			Mapper:   client,
			CacheDir: cfg.Identity.ContactCacheDir,
			Domains:  domains,
		},
	}
}

// BuildTarget normalizes a raw reference and resolves it when it carries
// the hidden domain. A resolution gap is logged, not fatal: the run
// continues on the raw identifier with degraded matching precision.
func (e *PropagationEngine) BuildTarget(ctx context.Context, raw string) (api.Target, error) {
	key := identity.Normalize(raw, e.Propagator.Domains)
	if key == "" {
		return api.Target{}, errors.Errorf("could not normalize target reference %q", raw)
	}
	target := api.Target{Raw: raw, Key: key}
	if e.Propagator.Domains.IsHidden(key) {
		phone, err := e.Resolver.Resolve(ctx, key)
		switch {
		case err == nil:
			target.ResolvedPhone = phone
		case errors.Is(err, identity.ErrNoMapping):
			logrus.WithField("target", key).
				Warn("No phone mapping for hidden target, matching on raw identifier only")
		default:
			return api.Target{}, err
		}
	}
	return target, nil
}

func (e *PropagationEngine) RunPropagation(ctx context.Context, target api.Target, cap int) (*api.Report, error) {
	return e.Propagator.PerformPropagation(ctx, target, cap)
}

func (e *PropagationEngine) ListCandidateGroups(ctx context.Context, operator string, target api.Target) ([]api.SelectionEntry, error) {
	return e.Selector.PerformListCandidates(ctx, operator, target)
}

func (e *PropagationEngine) ReplySelection(ctx context.Context, operator, reply string) (*api.SelectionResult, error) {
	return e.Selector.PerformSelectionReply(ctx, operator, reply)
}

func (e *PropagationEngine) ExecuteSelection(ctx context.Context, target api.Target, groupIDs []string) (*api.Report, error) {
	return e.Selector.PerformSelectionExecute(ctx, target, groupIDs)
}

func (e *PropagationEngine) CampaignStatus(ctx context.Context, target api.Target) (*api.CampaignStatus, error) {
	return e.Propagator.DB.TrackingSummary(ctx, target.Key)
}

func (e *PropagationEngine) ClearCampaign(ctx context.Context, target api.Target) error {
	cleared, err := e.Propagator.DB.ClearTracking(ctx, target.Key)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"target":  target.Key,
		"cleared": cleared,
	}).Info("Cleared campaign tracking")
	return nil
}
