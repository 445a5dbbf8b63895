// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Warden is the top level configuration for the moderation engine.
type Warden struct {
	Global      Global      `yaml:"global"`
	Identity    Identity    `yaml:"identity"`
	Propagation Propagation `yaml:"propagation"`
	Bridge      Bridge      `yaml:"bridge"`
	API         API         `yaml:"api"`
}

func (c *Warden) Defaults() {
	c.Global.Defaults()
	c.Identity.Defaults()
	c.Propagation.Defaults()
	c.Bridge.Defaults()
	c.API.Defaults()
}

func (c *Warden) Verify(configErrs *ConfigErrors) {
	c.Global.Verify(configErrs)
	c.Identity.Verify(configErrs)
	c.Propagation.Verify(configErrs)
	c.Bridge.Verify(configErrs)
	c.API.Verify(configErrs)
}

// Load parses the given file into a Warden config, applying defaults for
// anything the file leaves unset and validating the result.
func Load(path string) (*Warden, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loadConfig(data)
}

func loadConfig(data []byte) (*Warden, error) {
	var c Warden
	c.Defaults()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	var configErrs ConfigErrors
	c.Verify(&configErrs)
	if len(configErrs) > 0 {
		return nil, configErrs
	}
	return &c, nil
}

// ConfigErrors stores problems encountered when parsing a config file.
// It implements the error interface.
type ConfigErrors []string

// Add appends an error to the list of errors in this ConfigErrors.
// It is a wrapper to the builtin append and hides pointers from
// the client code.
// This method is safe to use with an uninitialized ConfigErrors because
// if it is nil, it will be properly allocated.
func (errs *ConfigErrors) Add(str string) {
	*errs = append(*errs, str)
}

// Error returns a string detailing how many errors were contained within a
// ConfigErrors type.
func (errs ConfigErrors) Error() string {
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Sprintf(
		"%s (and %d other problems)", errs[0], len(errs)-1,
	)
}

// checkNotEmpty verifies the given value is not empty in the configuration.
// If it is, adds an error to the list.
func checkNotEmpty(configErrs *ConfigErrors, key, value string) {
	if value == "" {
		configErrs.Add(fmt.Sprintf("missing config key %q", key))
	}
}

// checkPositive verifies the given value is positive (zero included)
// in the configuration. If it is not, adds an error to the list.
func checkPositive(configErrs *ConfigErrors, key string, value int64) {
	if value < 0 {
		configErrs.Add(fmt.Sprintf("invalid value for config key %q: %d", key, value))
	}
}
