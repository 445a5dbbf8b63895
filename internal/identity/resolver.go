// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package identity

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/wardenhq/warden/platform"
)

// ErrNoMapping is returned when neither the live identity-mapping lookup
// nor the on-disk cache knows the phone number behind a hidden ID. Callers
// continue with the raw identifier; matching precision degrades but the
// moderation pass is not aborted.
var ErrNoMapping = errors.New("identity: no mapping found for hidden id")

// Resolver converts hidden session-scoped identifiers into stable
// phone-derived digit strings, preferring a live lookup and falling back to
// a directory of previously-captured reverse mappings.
type Resolver struct {
	Mapper   platform.IdentityMapper
	CacheDir string
	Domains  Domains
}

// Resolve returns the phone digits behind hiddenID, or ErrNoMapping.
// Passing a non-hidden reference is an error: the caller is expected to
// check Domains.IsHidden first.
func (r *Resolver) Resolve(ctx context.Context, hiddenID string) (string, error) {
	if !r.Domains.IsHidden(hiddenID) {
		return "", errors.Errorf("identity: %q is not a hidden-domain reference", hiddenID)
	}

	if r.Mapper != nil {
		phone, err := r.Mapper.ResolveHiddenID(ctx, hiddenID)
		if err == nil && Digits(phone) != "" {
			logrus.WithFields(logrus.Fields{
				"hidden_id": hiddenID,
				"source":    "live",
			}).Info("Resolved hidden ID to phone number")
			return Digits(phone), nil
		}
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			logrus.WithError(err).WithField("hidden_id", hiddenID).
				Warn("Live identity-mapping lookup failed, trying contact cache")
		}
	}

	if phone := r.cachedPhone(hiddenID); phone != "" {
		logrus.WithFields(logrus.Fields{
			"hidden_id": hiddenID,
			"source":    "cache",
		}).Info("Resolved hidden ID to phone number")
		return phone, nil
	}

	return "", ErrNoMapping
}

// cachedPhone reads the reverse-mapping file for hiddenID, if any. Cache
// files are written by the capture side and may be a raw value, a quoted
// string or a small JSON object.
func (r *Resolver) cachedPhone(hiddenID string) string {
	if r.CacheDir == "" {
		return ""
	}
	name := UserPart(hiddenID)
	if name == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(r.CacheDir, name+".json"))
	if err != nil {
		return ""
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, "{") && gjson.Valid(content) {
		for _, key := range []string{"phone_number", "phone"} {
			if v := gjson.Get(content, key).String(); Digits(v) != "" {
				return Digits(v)
			}
		}
		return ""
	}
	content = strings.Trim(content, `"'`)
	return Digits(content)
}
