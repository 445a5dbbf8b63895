// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"strings"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/propagation/api"
)

// Match tiers, in precedence order. Exact identifier equality is preferred
// over digit heuristics to minimize false positives; the digit-suffix tier
// exists only because no single participant field is reliably populated
// across every group.
const (
	matchTierExactID = iota + 1
	matchTierExactPhone
	matchTierStableDigits
	matchTierHiddenUser
	matchTierPhoneSuffix
)

// phoneSuffixLen is how many trailing digits tier 5 compares. Nine digits
// survive the divergent country-code and leading-zero conventions between
// the two numbering representations the platform emits.
const phoneSuffixLen = 9

// FindParticipant decides whether target is present in group and, if so,
// returns the matching participant together with the tier that matched.
// Absence of a match across all tiers means the target is not a member.
func FindParticipant(target api.Target, group platform.Group, domains identity.Domains) (platform.Participant, int, bool) {
	for _, p := range group.Participants {
		if tier, ok := matchOne(target, p, domains); ok {
			return p, tier, true
		}
	}
	return platform.Participant{}, 0, false
}

func matchOne(target api.Target, p platform.Participant, domains identity.Domains) (int, bool) {
	pid := strings.ToLower(p.ID)
	phone := strings.ToLower(p.PhoneNumber)
	raw := strings.ToLower(strings.TrimSpace(target.Raw))
	key := strings.ToLower(target.Key)

	// Tier 1: exact participant ID equality.
	if pid != "" && (pid == raw || pid == key) {
		return matchTierExactID, true
	}

	// Tier 2: exact disclosed phone-field equality.
	if phone != "" && (phone == raw || phone == key) {
		return matchTierExactPhone, true
	}

	// Tier 3: stable-domain target vs the digit portion of the phone field.
	if domains.IsStable(key) && phone != "" {
		targetDigits := identity.Digits(identity.UserPart(key))
		phoneDigits := identity.Digits(identity.UserPart(phone))
		if targetDigits != "" && targetDigits == phoneDigits {
			return matchTierStableDigits, true
		}
	}

	// Tier 4: both sides hidden-domain, compare the opaque user portions.
	if domains.IsHidden(key) && domains.IsHidden(pid) {
		if u := identity.UserPart(key); u != "" && u == identity.UserPart(pid) {
			return matchTierHiddenUser, true
		}
	}

	// Tier 5: resolved phone vs phone field, last nine digits only.
	if target.ResolvedPhone != "" && phone != "" {
		resolved := lastDigits(identity.Digits(target.ResolvedPhone), phoneSuffixLen)
		disclosed := lastDigits(identity.Digits(identity.UserPart(phone)), phoneSuffixLen)
		if resolved != "" && resolved == disclosed {
			return matchTierPhoneSuffix, true
		}
	}

	return 0, false
}

func lastDigits(digits string, n int) string {
	if len(digits) <= n {
		return digits
	}
	return digits[len(digits)-n:]
}
