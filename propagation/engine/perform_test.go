package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/platform/fake"
	"github.com/wardenhq/warden/propagation/api"
	"github.com/wardenhq/warden/propagation/storage/sqlite3"
	"github.com/wardenhq/warden/setup/config"
)

// testConfig returns a config with pacing disabled so tests run instantly.
func testConfig() *config.Warden {
	cfg := &config.Warden{}
	cfg.Defaults()
	cfg.Identity.StableDomain = "stable"
	cfg.Identity.HiddenDomain = "anon"
	cfg.Propagation.GroupFetchDelayMS = 0
	cfg.Propagation.RemovalDelayMS = 0
	cfg.Propagation.BatchPauseMS = 0
	cfg.Propagation.RateLimitBackoffMS = 0
	cfg.Propagation.CallsPerSecond = 100000
	cfg.Propagation.CallBurst = 1000
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Warden, client *fake.Client) *PropagationEngine {
	t.Helper()
	db, err := sqlite3.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.DB.Close() })
	return NewPropagationEngine(cfg, client, db)
}

func stableTarget(raw string) api.Target {
	return api.Target{Raw: raw, Key: raw}
}

func groupWithTarget(id, name, targetID string) platform.Group {
	return platform.Group{
		ID:   id,
		Name: name,
		Participants: []platform.Participant{
			{ID: "111@stable", Role: platform.RoleAdmin},
			{ID: targetID},
		},
	}
}

func TestPerformPropagationRemovesAndCheckpoints(t *testing.T) {
	// Scenario: the target is a direct participant of one group.
	client := &fake.Client{
		Groups: []platform.Group{groupWithTarget("north", "North", "972527332312@stable")},
	}
	engine := newTestEngine(t, testConfig(), client)
	ctx := context.Background()
	tgt := stableTarget("972527332312@stable")

	report, err := engine.RunPropagation(ctx, tgt, 0)
	require.NoError(t, err)
	require.Equal(t, 1, report.GroupsProcessed)
	require.Equal(t, 1, report.Removed)
	require.Equal(t, 0, report.Failed)
	require.True(t, client.KickedFrom("north", "972527332312@stable"))
	require.Equal(t, api.OutcomeSuccess, report.Outcomes[0].Status)
	require.Equal(t, "North", report.Outcomes[0].GroupName)

	status, err := engine.CampaignStatus(ctx, tgt)
	require.NoError(t, err)
	require.True(t, status.IsTracked)
	require.Equal(t, []string{"north"}, status.ProcessedGroups)
	require.Equal(t, 1, status.TotalProcessed)
	require.False(t, status.LastUpdated.IsZero())
}

func TestPerformPropagationSafetyCap(t *testing.T) {
	client := &fake.Client{}
	for i := 1; i <= 25; i++ {
		client.Groups = append(client.Groups,
			groupWithTarget(fmt.Sprintf("g%02d", i), fmt.Sprintf("Group %d", i), "t@stable"))
	}
	engine := newTestEngine(t, testConfig(), client)
	ctx := context.Background()
	tgt := stableTarget("t@stable")

	report, err := engine.RunPropagation(ctx, tgt, 10)
	require.NoError(t, err)
	require.Equal(t, 10, report.GroupsProcessed)
	require.True(t, report.LimitReached)
	require.Equal(t, 15, report.Remaining)
	require.Equal(t, 25, report.TotalGroupsAvailable)
	require.Len(t, client.Kicks, 10)
	require.Equal(t, "g01", client.Kicks[0].GroupID)
	require.Equal(t, "g10", client.Kicks[9].GroupID)

	// A second invocation picks up exactly where the checkpoints left off.
	report, err = engine.RunPropagation(ctx, tgt, 10)
	require.NoError(t, err)
	require.Equal(t, 10, report.GroupsProcessed)
	require.True(t, report.LimitReached)
	require.Equal(t, 5, report.Remaining)
	require.Len(t, client.Kicks, 20)
	require.Equal(t, "g11", client.Kicks[10].GroupID)
	require.Equal(t, "g20", client.Kicks[19].GroupID)

	// Third run drains the remainder; fourth has nothing left.
	report, err = engine.RunPropagation(ctx, tgt, 10)
	require.NoError(t, err)
	require.Equal(t, 5, report.GroupsProcessed)
	require.False(t, report.LimitReached)

	report, err = engine.RunPropagation(ctx, tgt, 10)
	require.NoError(t, err)
	require.True(t, report.AllGroupsProcessed)
	require.Zero(t, report.GroupsProcessed)
}

func TestPerformPropagationAbsentTargetIsSkipped(t *testing.T) {
	client := &fake.Client{
		Groups: []platform.Group{{
			ID:   "south",
			Name: "South",
			Participants: []platform.Participant{
				{ID: "111@stable"},
				{ID: "222@stable"},
			},
		}},
	}
	engine := newTestEngine(t, testConfig(), client)

	report, err := engine.RunPropagation(context.Background(), stableTarget("999@stable"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped)
	require.Zero(t, report.Failed)
	require.Equal(t, api.OutcomeSkipped, report.Outcomes[0].Status)
	require.Equal(t, "not a member", report.Outcomes[0].Reason)
	require.Empty(t, client.Kicks)
}

func TestPerformPropagationMetadataErrorDoesNotAbortBatch(t *testing.T) {
	client := &fake.Client{
		Groups: []platform.Group{
			groupWithTarget("bad", "Bad", "t@stable"),
			groupWithTarget("good", "Good", "t@stable"),
		},
		MetadataErr: map[string]error{"bad": errors.New("connection reset")},
	}
	engine := newTestEngine(t, testConfig(), client)

	report, err := engine.RunPropagation(context.Background(), stableTarget("t@stable"), 0)
	require.NoError(t, err)
	require.Equal(t, 2, report.GroupsProcessed)
	require.Equal(t, api.OutcomeError, report.Outcomes[0].Status)
	require.Equal(t, api.OutcomeSuccess, report.Outcomes[1].Status)

	// The failed group was not checkpointed, so the next run retries it.
	client.MetadataErr = nil
	report, err = engine.RunPropagation(context.Background(), stableTarget("t@stable"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, report.GroupsProcessed)
	require.Equal(t, "bad", report.Outcomes[0].GroupID)
}

func TestPerformPropagationPermissionDenied(t *testing.T) {
	client := &fake.Client{
		Groups:  []platform.Group{groupWithTarget("locked", "Locked", "t@stable")},
		KickErr: map[string]error{"locked": platform.ErrPermissionDenied},
	}
	engine := newTestEngine(t, testConfig(), client)

	report, err := engine.RunPropagation(context.Background(), stableTarget("t@stable"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, api.OutcomeFailed, report.Outcomes[0].Status)
	require.Equal(t, "insufficient privilege", report.Outcomes[0].Reason)
}

func TestPerformPropagationRateLimitedRemovalContinues(t *testing.T) {
	client := &fake.Client{
		Groups: []platform.Group{
			groupWithTarget("g1", "One", "t@stable"),
			groupWithTarget("g2", "Two", "t@stable"),
		},
		KickErr: map[string]error{"g1": platform.ErrRateLimited},
	}
	engine := newTestEngine(t, testConfig(), client)

	report, err := engine.RunPropagation(context.Background(), stableTarget("t@stable"), 0)
	require.NoError(t, err)
	require.Equal(t, api.OutcomeFailed, report.Outcomes[0].Status)
	require.Equal(t, "rate limited", report.Outcomes[0].Reason)
	require.Equal(t, api.OutcomeSuccess, report.Outcomes[1].Status)
}

func TestPerformPropagationListFailureIsFatal(t *testing.T) {
	client := &fake.Client{ListErr: errors.New("session disconnected")}
	engine := newTestEngine(t, testConfig(), client)

	report, err := engine.RunPropagation(context.Background(), stableTarget("t@stable"), 0)
	require.Error(t, err)
	require.Nil(t, report)
}

func TestPerformPropagationRefusesConcurrentRunForSameTarget(t *testing.T) {
	client := &fake.Client{}
	engine := newTestEngine(t, testConfig(), client)
	tgt := stableTarget("t@stable")

	require.True(t, engine.Propagator.acquireTarget(tgt.Key))
	defer engine.Propagator.releaseTarget(tgt.Key)

	_, err := engine.RunPropagation(context.Background(), tgt, 0)
	require.ErrorIs(t, err, ErrCampaignInFlight)

	// A different target is unaffected.
	_, err = engine.RunPropagation(context.Background(), stableTarget("other@stable"), 0)
	require.NoError(t, err)
}
