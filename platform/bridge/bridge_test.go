package bridge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/setup/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Bridge{
		BaseURL:        srv.URL,
		AccessToken:    "test-token",
		TimeoutSeconds: 5,
	})
}

func TestListAdministeredGroups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/groups", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"groups": [
				{"id": "g1", "name": "North", "participants": [
					{"id": "111@s.whatsapp.net", "role": "admin"},
					{"id": "abc@lid", "phone_number": "972500000000@s.whatsapp.net"}
				]},
				{"id": "g2", "name": "South", "participants": []}
			]
		}`))
	})

	groups, err := client.ListAdministeredGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, "North", groups[0].Name)
	require.Len(t, groups[0].Participants, 2)
	assert.Equal(t, platform.RoleAdmin, groups[0].Participants[0].Role)
	assert.Equal(t, "972500000000@s.whatsapp.net", groups[0].Participants[1].PhoneNumber)
	assert.Empty(t, groups[1].Participants)
}

func TestFetchGroupMetadata(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/groups/g1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": "g1", "name": "North", "participants": [{"id": "111@s.whatsapp.net"}]}`))
	})

	group, err := client.FetchGroupMetadata(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "North", group.Name)
	require.Len(t, group.Participants, 1)
}

func TestRemoveParticipant(t *testing.T) {
	var gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/groups/g1/kick", r.URL.Path)
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	})

	err := client.RemoveParticipant(context.Background(), "g1", "111@s.whatsapp.net")
	require.NoError(t, err)
	assert.JSONEq(t, `{"participant": "111@s.whatsapp.net"}`, gotBody)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, platform.ErrRateLimited},
		{"permission denied", http.StatusForbidden, platform.ErrPermissionDenied},
		{"not found", http.StatusNotFound, platform.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error": "nope"}`))
			})
			err := client.RemoveParticipant(context.Background(), "g1", "x")
			require.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestServerErrorIsTransientNotTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := client.RemoveParticipant(context.Background(), "g1", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, platform.ErrRateLimited)
	assert.NotErrorIs(t, err, platform.ErrPermissionDenied)
}

func TestResolveHiddenID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/contacts/abc@lid", r.URL.Path)
		_, _ = w.Write([]byte(`{"phone_number": "972500000000"}`))
	})

	phone, err := client.ResolveHiddenID(context.Background(), "abc@lid")
	require.NoError(t, err)
	assert.Equal(t, "972500000000", phone)
}

func TestResolveHiddenIDEmptyBodyIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := client.ResolveHiddenID(context.Background(), "abc@lid")
	require.ErrorIs(t, err, platform.ErrNotFound)
}
