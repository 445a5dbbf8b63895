// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package config

// Identity configures how user references are canonicalized and resolved.
type Identity struct {
	// StableDomain is the domain suffix of stable phone-derived JIDs.
	StableDomain string `yaml:"stable_domain"`

	// HiddenDomain is the domain suffix of session-scoped hidden JIDs,
	// which must be resolved to a stable phone number before matching can
	// use digit comparison.
	HiddenDomain string `yaml:"hidden_domain"`

	// ContactCacheDir is a directory of previously-captured reverse
	// mappings from hidden IDs to phone digits, used when the live
	// identity-mapping lookup is unavailable. Empty disables the fallback.
	ContactCacheDir string `yaml:"contact_cache_dir"`
}

func (c *Identity) Defaults() {
	c.StableDomain = "s.whatsapp.net"
	c.HiddenDomain = "lid"
	c.ContactCacheDir = ""
}

func (c *Identity) Verify(configErrs *ConfigErrors) {
	checkNotEmpty(configErrs, "identity.stable_domain", c.StableDomain)
	checkNotEmpty(configErrs, "identity.hidden_domain", c.HiddenDomain)
}
