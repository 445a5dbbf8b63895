// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package identity

import "strings"

// Domains holds the two JID domain suffixes the platform emits: the legacy
// stable phone-derived domain and the session-scoped hidden domain.
type Domains struct {
	Stable string
	Hidden string
}

func (d Domains) StableSuffix() string { return "@" + d.Stable }
func (d Domains) HiddenSuffix() string { return "@" + d.Hidden }

// IsStable reports whether ref carries the stable phone-derived domain.
func (d Domains) IsStable(ref string) bool {
	return strings.HasSuffix(strings.ToLower(ref), d.StableSuffix())
}

// IsHidden reports whether ref carries the hidden session-scoped domain.
func (d Domains) IsHidden(ref string) bool {
	return strings.HasSuffix(strings.ToLower(ref), d.HiddenSuffix())
}

// Normalize canonicalizes any user reference string into a single stable
// lowercase key. References that already carry a domain keep it, minus any
// device/resource suffix. Bare phone numbers are reduced to digits and get
// the stable domain appended; digit-free non-empty input is treated as an
// opaque username on the stable domain. Returns "" only when the input
// carries no usable information; callers must treat "" as "could not
// normalize", never as a valid key.
func Normalize(ref string, d Domains) string {
	ref = strings.TrimSpace(stripDirectionalMarks(ref))
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, "@") {
		user, domain, _ := strings.Cut(ref, "@")
		// Device suffixes ("12345:3@...") are session detail, not identity.
		if colon := strings.Index(user, ":"); colon >= 0 {
			user = user[:colon]
		}
		return strings.ToLower(user + "@" + domain)
	}
	if digits := Digits(ref); digits != "" {
		return digits + d.StableSuffix()
	}
	return strings.ToLower(ref) + d.StableSuffix()
}

// Reference is a structured user reference as platform-native objects carry
// it. Fields are consulted in order: FullID, RawID, then User+Server.
type Reference struct {
	FullID string
	RawID  string
	User   string
	Server string
}

// NormalizeReference canonicalizes a structured reference via Normalize.
func NormalizeReference(ref Reference, d Domains) string {
	switch {
	case ref.FullID != "":
		return Normalize(ref.FullID, d)
	case ref.RawID != "":
		return Normalize(ref.RawID, d)
	case ref.User != "" && ref.Server != "":
		return Normalize(ref.User+"@"+ref.Server, d)
	case ref.User != "":
		return Normalize(ref.User, d)
	}
	return ""
}

// UserPart returns the portion of a JID before the "@", with any device
// suffix removed. Returns the input unchanged if it has no domain.
func UserPart(jid string) string {
	user, _, _ := strings.Cut(jid, "@")
	if colon := strings.Index(user, ":"); colon >= 0 {
		user = user[:colon]
	}
	return user
}

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripDirectionalMarks removes the Unicode bidi control characters that
// chat clients embed around phone numbers.
func stripDirectionalMarks(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '‎', '‏', '؜', '‪', '‫', '‬', '‭', '‮':
			return -1
		}
		return r
	}, s)
}
