package identity_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/identity"
	"github.com/wardenhq/warden/platform"
	"github.com/wardenhq/warden/platform/fake"
)

var testDomains = identity.Domains{Stable: "s.whatsapp.net", Hidden: "lid"}

func TestResolverLiveLookup(t *testing.T) {
	client := &fake.Client{
		Mappings: map[string]string{"77709346664559@lid": "+972 50 733 2312"},
	}
	r := &identity.Resolver{Mapper: client, Domains: testDomains}

	phone, err := r.Resolve(context.Background(), "77709346664559@lid")
	require.NoError(t, err)
	require.Equal(t, "972507332312", phone)
}

func TestResolverCacheFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "77709346664559.json"), []byte(`"972500000000"`), 0o600))

	client := &fake.Client{ResolveErr: errors.New("session gone")}
	r := &identity.Resolver{Mapper: client, CacheDir: dir, Domains: testDomains}

	phone, err := r.Resolve(context.Background(), "77709346664559@lid")
	require.NoError(t, err)
	require.Equal(t, "972500000000", phone)
}

func TestResolverCacheJSONObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "123456.json"),
		[]byte(`{"phone_number": "972527332312", "name": "someone"}`), 0o600,
	))

	r := &identity.Resolver{Mapper: &fake.Client{}, CacheDir: dir, Domains: testDomains}

	phone, err := r.Resolve(context.Background(), "123456@lid")
	require.NoError(t, err)
	require.Equal(t, "972527332312", phone)
}

func TestResolverNoMapping(t *testing.T) {
	r := &identity.Resolver{Mapper: &fake.Client{}, CacheDir: t.TempDir(), Domains: testDomains}

	_, err := r.Resolve(context.Background(), "unknown@lid")
	require.ErrorIs(t, err, identity.ErrNoMapping)
}

func TestResolverRejectsNonHiddenReference(t *testing.T) {
	r := &identity.Resolver{Mapper: &fake.Client{}, Domains: testDomains}

	_, err := r.Resolve(context.Background(), "972500000000@s.whatsapp.net")
	require.Error(t, err)
	require.NotErrorIs(t, err, identity.ErrNoMapping)
}

func TestResolverLiveNotFoundFallsThroughToCache(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "9999.json"), []byte("  '972511111111'\n"), 0o600))

	client := &fake.Client{Mappings: map[string]string{}}
	r := &identity.Resolver{Mapper: client, CacheDir: dir, Domains: testDomains}

	phone, err := r.Resolve(context.Background(), "9999@lid")
	require.NoError(t, err)
	require.Equal(t, "972511111111", phone)
}

var _ platform.IdentityMapper = (*fake.Client)(nil)
