// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wardenhq/warden/setup/config"
)

// Pacer spaces platform calls so one propagation run stays under the
// platform's unpublished per-account rate limits. A token bucket bounds the
// baseline call rate; on top of that the scheduler asks for explicit pauses
// after fetches, after removals, periodically per batch, and after a
// detected rate-limit error. All waits abort early when ctx is cancelled.
type Pacer struct {
	cfg     *config.Propagation
	limiter *rate.Limiter
}

func NewPacer(cfg *config.Propagation) *Pacer {
	return &Pacer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), cfg.CallBurst),
	}
}

// Wait blocks until the baseline token bucket permits the next platform
// call.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// AfterFetch pauses briefly after a group metadata fetch.
func (p *Pacer) AfterFetch(ctx context.Context) {
	p.sleep(ctx, time.Duration(p.cfg.GroupFetchDelayMS)*time.Millisecond)
}

// AfterRemoval pauses after a successful removal, which is the costliest
// call from the platform's perspective.
func (p *Pacer) AfterRemoval(ctx context.Context) {
	p.sleep(ctx, time.Duration(p.cfg.RemovalDelayMS)*time.Millisecond)
}

// MaybeBatchPause inserts the extended periodic pause once every
// BatchPauseEvery processed groups.
func (p *Pacer) MaybeBatchPause(ctx context.Context, processed int) {
	if p.cfg.BatchPauseEvery <= 0 || processed == 0 || processed%p.cfg.BatchPauseEvery != 0 {
		return
	}
	logrus.WithField("processed", processed).Debug("Taking periodic batch pause")
	p.sleep(ctx, time.Duration(p.cfg.BatchPauseMS)*time.Millisecond)
}

// Backoff applies the single extended pause taken when the platform
// reported rate limiting. The run then continues with the next group.
func (p *Pacer) Backoff(ctx context.Context) {
	rateLimitBackoffs.Inc()
	logrus.Warn("Platform rate limit detected, backing off before continuing")
	p.sleep(ctx, time.Duration(p.cfg.RateLimitBackoffMS)*time.Millisecond)
}

func (p *Pacer) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
