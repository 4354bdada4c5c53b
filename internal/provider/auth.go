package provider

import (
	"fmt"
	"os"

	"github.com/zdx-sub/zdx/internal/credentials"
)

// AuthModeKind discriminates AuthMode's variants.
type AuthModeKind string

const (
	AuthAPIKey       AuthModeKind = "api_key"
	AuthOAuthRefresh AuthModeKind = "oauth_refresh"
	AuthDeviceCode   AuthModeKind = "device_code"
)

// AuthMode resolves the bearer credential a backend attaches to its
// requests. Exactly one constructor below should be used per provider.
type AuthMode struct {
	kind   AuthModeKind
	envVar string
	store  *credentials.OAuthStore
	device DeviceCodeLogin
}

// ApiKey resolves the credential from the named environment variable;
// absence is a terminal Error{kind=Auth}.
func ApiKey(envVar string) AuthMode {
	return AuthMode{kind: AuthAPIKey, envVar: envVar}
}

// OAuthRefresh resolves the credential from a persisted per-provider
// credential file, transparently refreshing it when expired.
func OAuthRefresh(store *credentials.OAuthStore) AuthMode {
	return AuthMode{kind: AuthOAuthRefresh, store: store}
}

// DeviceCode resolves the credential the same way OAuthRefresh does, but
// falls back to an out-of-band device-code login flow when no credential
// file exists yet.
func DeviceCode(store *credentials.OAuthStore, login DeviceCodeLogin) AuthMode {
	return AuthMode{kind: AuthDeviceCode, store: store, device: login}
}

// DeviceCodeLogin drives an out-of-band device-authorization flow to
// completion and returns the resulting credentials, which the caller
// persists via store.Save.
type DeviceCodeLogin func() (*credentials.OAuthCredentials, error)

// Resolve returns the current access token (and, if applicable, account
// id) to attach to the next request, or a terminal auth StreamError.
func (a AuthMode) Resolve() (token, accountID string, err error) {
	switch a.kind {
	case AuthAPIKey:
		v := os.Getenv(a.envVar)
		if v == "" {
			return "", "", &StreamError{Kind: ErrAuth, Message: fmt.Sprintf("%s is not set", a.envVar)}
		}
		return v, "", nil

	case AuthOAuthRefresh:
		creds, err := a.store.Load()
		if err != nil {
			return "", "", &StreamError{Kind: ErrAuth, Message: err.Error()}
		}
		return creds.Access, creds.AccountID, nil

	case AuthDeviceCode:
		creds, err := a.store.Load()
		if err == nil {
			return creds.Access, creds.AccountID, nil
		}
		if a.device == nil {
			return "", "", &StreamError{Kind: ErrAuth, Message: "no stored credentials and no device-code login available"}
		}
		creds, err = a.device()
		if err != nil {
			return "", "", &StreamError{Kind: ErrAuth, Message: err.Error()}
		}
		if err := a.store.Save(creds); err != nil {
			return "", "", &StreamError{Kind: ErrAuth, Message: err.Error()}
		}
		return creds.Access, creds.AccountID, nil

	default:
		return "", "", &StreamError{Kind: ErrAuth, Message: "unconfigured auth mode"}
	}
}
