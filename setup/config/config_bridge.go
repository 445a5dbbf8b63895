// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package config

import (
	"net/url"

	"github.com/wardenhq/warden/internal/httputil"
)

// Bridge points at the local platform bridge that owns the messaging
// session. The engine never speaks the platform wire protocol itself.
type Bridge struct {
	BaseURL        string `yaml:"base_url"`
	AccessToken    string `yaml:"access_token"`
	TimeoutSeconds int64  `yaml:"timeout_seconds"`
}

func (c *Bridge) Defaults() {
	c.BaseURL = "http://localhost:3000"
	c.TimeoutSeconds = 30
}

func (c *Bridge) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "bridge.base_url", c.BaseURL)
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			configErrs.Add("invalid value for config key \"bridge.base_url\": " + err.Error())
		}
	}
	checkPositive(configErrs, "bridge.timeout_seconds", c.TimeoutSeconds)
}

// API configures the HTTP surface the engine exposes to its supervisor.
type API struct {
	ListenAddress string             `yaml:"listen_address"`
	BasicAuth     httputil.BasicAuth `yaml:"basic_auth"`
}

func (c *API) Defaults() {
	c.ListenAddress = "localhost:7575"
}

func (c *API) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "api.listen_address", c.ListenAddress)
}
