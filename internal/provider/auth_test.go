package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zdx-sub/zdx/internal/credentials"
)

func TestAuthMode_ApiKey_ResolvesFromEnv(t *testing.T) {
	t.Setenv("FAKE_PROVIDER_API_KEY", "secret-token")
	mode := ApiKey("FAKE_PROVIDER_API_KEY")

	token, account, err := mode.Resolve()
	require.NoError(t, err)
	require.Equal(t, "secret-token", token)
	require.Empty(t, account)
}

func TestAuthMode_ApiKey_ErrorsWhenUnset(t *testing.T) {
	t.Setenv("FAKE_PROVIDER_API_KEY_UNSET", "")
	mode := ApiKey("FAKE_PROVIDER_API_KEY_UNSET")

	_, _, err := mode.Resolve()
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	require.Equal(t, ErrAuth, se.Kind)
}

func TestAuthMode_OAuthRefresh_ResolvesFromStore(t *testing.T) {
	home := t.TempDir()
	store := credentials.NewOAuthStore(home, "anthropic", func(refresh string) (string, int64, string, error) {
		return "refreshed", time.Now().Add(time.Hour).Unix(), "acct-1", nil
	})
	require.NoError(t, store.Save(&credentials.OAuthCredentials{
		Access: "tok", Refresh: "r1", Expires: time.Now().Add(time.Hour).Unix(),
	}))

	mode := OAuthRefresh(store)
	token, _, err := mode.Resolve()
	require.NoError(t, err)
	require.Equal(t, "tok", token)
}

func TestAuthMode_DeviceCode_FallsBackToLoginWhenNoStoredCreds(t *testing.T) {
	home := t.TempDir()
	store := credentials.NewOAuthStore(home, "codex", nil)

	called := false
	login := func() (*credentials.OAuthCredentials, error) {
		called = true
		return &credentials.OAuthCredentials{Access: "new-tok", Expires: time.Now().Add(time.Hour).Unix()}, nil
	}

	mode := DeviceCode(store, login)
	token, _, err := mode.Resolve()
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, "new-tok", token)

	// persisted for next resolve
	reloaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "new-tok", reloaded.Access)
}

func TestAuthMode_DeviceCode_ErrorsWithNoLoginAndNoStore(t *testing.T) {
	home := t.TempDir()
	store := credentials.NewOAuthStore(home, "gemini", nil)
	mode := DeviceCode(store, nil)

	_, _, err := mode.Resolve()
	require.Error(t, err)
}

func TestAuthMode_Unconfigured_ReturnsAuthError(t *testing.T) {
	var mode AuthMode
	_, _, err := mode.Resolve()
	require.Error(t, err)
	var se *StreamError
	require.ErrorAs(t, err, &se)
	require.Equal(t, ErrAuth, se.Kind)
}
