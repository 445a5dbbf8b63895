// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package config

type Global struct {
	// LogLevel is the logrus level name, e.g. "info" or "debug".
	LogLevel string `yaml:"log_level"`

	// DatabasePath is the sqlite file holding campaign checkpoints.
	DatabasePath string `yaml:"database_path"`

	Sentry Sentry `yaml:"sentry"`
}

func (c *Global) Defaults() {
	c.LogLevel = "info"
	c.DatabasePath = "warden.db"
	c.Sentry.Defaults()
}

func (c *Global) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "global.log_level", c.LogLevel)
	checkNotEmpty(configErrs, "global.database_path", c.DatabasePath)
	c.Sentry.Verify(configErrs)
}

// Sentry configures the sentry.io integration for reporting fatal
// propagation failures. Disabled by default.
type Sentry struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

func (c *Sentry) Defaults() {
	c.Enabled = false
}

func (c *Sentry) Verify(configErrs *ConfigErrors) {
	if c.Enabled {
		checkNotEmpty(configErrs, "global.sentry.dsn", c.DSN)
	}
}
