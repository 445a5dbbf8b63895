// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package config

// Propagation tunes the batch removal job. The pacing values exist to keep
// one operator account under the platform's unpublished rate-limit
// thresholds; raising them trades job duration for account risk.
type Propagation struct {
	// DefaultCap bounds how many groups one invocation will process when
	// the caller does not specify a cap.
	DefaultCap int `yaml:"default_cap"`

	// ConfirmThreshold is the interactive-selection size above which an
	// explicit confirmation reply is required before any removal happens.
	ConfirmThreshold int `yaml:"confirm_threshold"`

	// GroupFetchDelayMS is slept after every group metadata fetch.
	GroupFetchDelayMS int64 `yaml:"group_fetch_delay_ms"`

	// RemovalDelayMS is slept after every successful removal.
	RemovalDelayMS int64 `yaml:"removal_delay_ms"`

	// BatchPauseEvery and BatchPauseMS insert an extended pause after every
	// BatchPauseEvery groups processed.
	BatchPauseEvery int   `yaml:"batch_pause_every"`
	BatchPauseMS    int64 `yaml:"batch_pause_ms"`

	// RateLimitBackoffMS is the single extended pause applied when the
	// platform reports rate limiting mid-batch.
	RateLimitBackoffMS int64 `yaml:"rate_limit_backoff_ms"`

	// CallsPerSecond and CallBurst bound the baseline platform call rate
	// on top of the explicit delays above.
	CallsPerSecond float64 `yaml:"calls_per_second"`
	CallBurst      int     `yaml:"call_burst"`

	// SelectionTTLSeconds bounds how long an interactive selection waits
	// for the operator's reply before being silently discarded.
	SelectionTTLSeconds int64 `yaml:"selection_ttl_seconds"`
}

func (c *Propagation) Defaults() {
	c.DefaultCap = 10
	c.ConfirmThreshold = 10
	c.GroupFetchDelayMS = 2000
	c.RemovalDelayMS = 5000
	c.BatchPauseEvery = 5
	c.BatchPauseMS = 15000
	c.RateLimitBackoffMS = 30000
	c.CallsPerSecond = 1
	c.CallBurst = 1
	c.SelectionTTLSeconds = 300
}

func (c *Propagation) Verify(configErrs *ConfigErrors) {
	if c.DefaultCap <= 0 {
		configErrs.Add("invalid value for config key \"propagation.default_cap\": must be positive")
	}
	if c.ConfirmThreshold <= 0 {
		configErrs.Add("invalid value for config key \"propagation.confirm_threshold\": must be positive")
	}
	checkPositive(configErrs, "propagation.group_fetch_delay_ms", c.GroupFetchDelayMS)
	checkPositive(configErrs, "propagation.removal_delay_ms", c.RemovalDelayMS)
	checkPositive(configErrs, "propagation.batch_pause_every", int64(c.BatchPauseEvery))
	checkPositive(configErrs, "propagation.batch_pause_ms", c.BatchPauseMS)
	checkPositive(configErrs, "propagation.rate_limit_backoff_ms", c.RateLimitBackoffMS)
	checkPositive(configErrs, "propagation.selection_ttl_seconds", c.SelectionTTLSeconds)
	if c.CallsPerSecond <= 0 {
		configErrs.Add("invalid value for config key \"propagation.calls_per_second\": must be positive")
	}
	if c.CallBurst < 1 {
		configErrs.Add("invalid value for config key \"propagation.call_burst\": must be at least 1")
	}
}
