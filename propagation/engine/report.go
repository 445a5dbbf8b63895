// Copyright 2025 Warden Contributors
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see LICENSE files in the repository root for full details.

package engine

import (
	"fmt"
	"strings"

	"github.com/wardenhq/warden/propagation/api"
)

// FormatReport renders a propagation report as operator-facing text. It is
// a pure function of the report. Groups the target was simply absent from
// are summarized as a count, not an error; groups where the removal was
// refused for lack of privilege are listed individually because they need
// operator action.
func FormatReport(r *api.Report) string {
	var b strings.Builder

	if r.AllGroupsProcessed {
		fmt.Fprintf(&b, "All %d groups have already been processed for this target. Nothing to do.\n", r.TotalGroupsAvailable)
		return b.String()
	}

	fmt.Fprintf(&b, "Processed %d of %d groups this run.\n", r.GroupsProcessed, r.TotalGroupsAvailable)
	fmt.Fprintf(&b, "Target found in %d groups, removed from %d.\n", r.GroupsWithTarget, r.Removed)
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "Not a member of %d groups.\n", r.Skipped)
	}

	var permissionDenied []api.GroupOutcome
	var otherFailures []api.GroupOutcome
	for _, o := range r.Outcomes {
		switch {
		case o.Status == api.OutcomeFailed && o.Reason == "insufficient privilege":
			permissionDenied = append(permissionDenied, o)
		case o.Status == api.OutcomeFailed || o.Status == api.OutcomeError:
			otherFailures = append(otherFailures, o)
		}
	}
	if len(permissionDenied) > 0 {
		fmt.Fprintf(&b, "Removal refused in %d groups (not an admin there):\n", len(permissionDenied))
		for _, o := range permissionDenied {
			fmt.Fprintf(&b, "  - %s\n", outcomeLabel(o))
		}
	}
	if len(otherFailures) > 0 {
		fmt.Fprintf(&b, "%d groups had errors:\n", len(otherFailures))
		for _, o := range otherFailures {
			fmt.Fprintf(&b, "  - %s: %s\n", outcomeLabel(o), o.Reason)
		}
	}

	if r.LimitReached {
		fmt.Fprintf(&b, "Safety cap reached: %d groups remain. Run again to continue.\n", r.Remaining)
	}
	return b.String()
}

// FormatSelectionMenu renders the 1-based candidate menu shown to the
// operator before they choose a subset.
func FormatSelectionMenu(entries []api.SelectionEntry) string {
	if len(entries) == 0 {
		return "The target was not found in any of your groups.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Target found in %d groups:\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. %s (%d members)\n", e.Index, e.GroupName, e.MemberCount)
	}
	b.WriteString("Reply with a comma-separated list of numbers, or \"all\".\n")
	return b.String()
}

func outcomeLabel(o api.GroupOutcome) string {
	if o.GroupName != "" {
		return o.GroupName
	}
	return o.GroupID
}
